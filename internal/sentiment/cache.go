package sentiment

import (
	"context"
	"log/slog"

	"github.com/spacesedan/instalens/internal/models"
)

// ClassificationCache stores classifier answers keyed by text.
type ClassificationCache interface {
	GetClassification(ctx context.Context, text string) (models.Classification, bool, error)
	SetClassification(ctx context.Context, text string, c models.Classification) error
}

// CachedClassifier consults the cache before calling the wrapped classifier.
// Cache failures are logged and never fail a classification.
type CachedClassifier struct {
	next  Classifier
	cache ClassificationCache
}

func NewCachedClassifier(next Classifier, cache ClassificationCache) *CachedClassifier {
	return &CachedClassifier{next: next, cache: cache}
}

func (c *CachedClassifier) Classify(ctx context.Context, text string) (models.Classification, error) {
	cached, ok, err := c.cache.GetClassification(ctx, text)
	if err != nil {
		slog.Warn("[CachedClassifier] Cache lookup failed",
			slog.String("error", err.Error()))
	}
	if ok {
		return cached, nil
	}

	out, err := c.next.Classify(ctx, text)
	if err != nil {
		return out, err
	}

	if err := c.cache.SetClassification(ctx, text, out); err != nil {
		slog.Warn("[CachedClassifier] Cache store failed",
			slog.String("error", err.Error()))
	}
	return out, nil
}

// Unwrap returns the classifier behind the cache.
func (c *CachedClassifier) Unwrap() Classifier {
	return c.next
}
