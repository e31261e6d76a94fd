package sentiment

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spacesedan/instalens/config"
	"github.com/spacesedan/instalens/internal/clients"
)

const (
	BackendVADER  = "vader"
	BackendHugot  = "hugot"
	BackendRemote = "remote"
	BackendOpenAI = "openai"
)

// NewClassifier builds the configured backend. The returned close func
// releases backend resources and is never nil. When cache is non-nil and
// caching is enabled the backend is wrapped in a CachedClassifier.
func NewClassifier(cfg config.ClassifierConfig, cache ClassificationCache) (Classifier, func() error, error) {
	var (
		classifier Classifier
		closeFn    = func() error { return nil }
	)

	backend := strings.ToLower(strings.TrimSpace(cfg.Backend))
	switch backend {
	case "", BackendVADER:
		classifier = NewVADERClassifier()
	case BackendHugot:
		h, err := NewHugotClassifier(cfg.HugotModel, cfg.HugotModelDir, cfg.HugotModelPath)
		if err != nil {
			return nil, closeFn, err
		}
		classifier, closeFn = h, h.Close
	case BackendRemote:
		classifier = clients.NewHuggingFaceClient(cfg.RemoteEndpoint, cfg.RemoteHealthEndpoint, cfg.RemoteTimeout)
	case BackendOpenAI:
		o, err := clients.NewOpenAIClassifier(cfg.OpenAIAPIKey, cfg.OpenAIModel)
		if err != nil {
			return nil, closeFn, err
		}
		classifier = o
	default:
		return nil, closeFn, fmt.Errorf("unknown classifier backend %q", cfg.Backend)
	}

	if cache != nil && cfg.CacheEnabled {
		classifier = NewCachedClassifier(classifier, cache)
	}

	slog.Info("[Classifier] Classifier ready",
		slog.String("backend", backend),
		slog.Bool("cached", cache != nil && cfg.CacheEnabled))

	return classifier, closeFn, nil
}
