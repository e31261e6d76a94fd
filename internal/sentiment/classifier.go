package sentiment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/spacesedan/instalens/internal/models"
)

// Classifier labels a single piece of text. Implementations must be safe
// for concurrent use and give the same answer for the same text.
type Classifier interface {
	Classify(ctx context.Context, text string) (models.Classification, error)
}

type ClassifierFunc func(ctx context.Context, text string) (models.Classification, error)

func (f ClassifierFunc) Classify(ctx context.Context, text string) (models.Classification, error) {
	return f(ctx, text)
}

var (
	ErrClassification = errors.New("classification failed")
	ErrAllFailed      = errors.New("every classification in the batch failed")
)

type ClassificationError struct {
	Text string
	Err  error
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("classification failed for %q: %v", preview(e.Text), e.Err)
}

func (e *ClassificationError) Unwrap() []error {
	return []error{ErrClassification, e.Err}
}

// NormalizeLabel folds case and surrounding whitespace and maps the result
// onto one of the three canonical labels. Unrecognized labels become neutral;
// ok reports whether the label was recognized.
func NormalizeLabel(raw string) (label models.SentimentLabel, ok bool) {
	switch models.SentimentLabel(strings.ToLower(strings.TrimSpace(raw))) {
	case models.SentimentPositive:
		return models.SentimentPositive, true
	case models.SentimentNegative:
		return models.SentimentNegative, true
	case models.SentimentNeutral:
		return models.SentimentNeutral, true
	default:
		return models.SentimentNeutral, false
	}
}

func clampScore(score float64) float64 {
	switch {
	case math.IsNaN(score) || score < 0:
		return 0
	case score > 1:
		return 1
	default:
		return score
	}
}

func preview(s string) string {
	const limit = 40
	r := []rune(s)
	if len(r) > limit {
		return string(r[:limit]) + "..."
	}
	return s
}

func logUnknownLabel(raw string) {
	slog.Warn("[Annotator] Classifier returned an unrecognized label, treating as neutral",
		slog.String("label", raw))
}
