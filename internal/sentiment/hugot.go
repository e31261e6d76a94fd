package sentiment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"
	"github.com/spacesedan/instalens/internal/models"
)

// HugotClassifier runs a local ONNX text classification model.
type HugotClassifier struct {
	session  *hugot.Session
	pipeline *pipelines.TextClassificationPipeline
	mu       sync.Mutex
}

// NewHugotClassifier loads the model at modelPath, downloading modelName
// into modelDir first when no usable path is given.
func NewHugotClassifier(modelName, modelDir, modelPath string) (*HugotClassifier, error) {
	if modelPath == "" {
		if err := os.MkdirAll(modelDir, os.ModePerm); err != nil {
			return nil, fmt.Errorf("failed to create model directory: %w", err)
		}

		slog.Info("[HugotClassifier] Model path not set, downloading...",
			slog.String("model", modelName))
		path, err := hugot.DownloadModel(modelName, modelDir, hugot.NewDownloadOptions())
		if err != nil {
			return nil, fmt.Errorf("failed to download model %s: %w", modelName, err)
		}
		modelPath = path
	} else if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model path %s: %w", modelPath, err)
	}
	slog.Info("[HugotClassifier] Using model", slog.String("path", modelPath))

	session, err := hugot.NewORTSession()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize hugot session: %w", err)
	}

	config := hugot.TextClassificationConfig{
		ModelPath: modelPath,
		Name:      "sentimentPipeline",
	}
	pipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("failed to initialize pipeline: %w", err), session.Destroy())
	}

	return &HugotClassifier{session: session, pipeline: pipeline}, nil
}

func (h *HugotClassifier) Classify(ctx context.Context, text string) (models.Classification, error) {
	if err := ctx.Err(); err != nil {
		return models.Classification{}, err
	}

	h.mu.Lock()
	output, err := h.pipeline.RunPipeline([]string{text})
	h.mu.Unlock()
	if err != nil {
		return models.Classification{}, err
	}

	if len(output.ClassificationOutputs) == 0 || len(output.ClassificationOutputs[0]) == 0 {
		return models.Classification{}, errors.New("model returned no classification")
	}

	best := output.ClassificationOutputs[0][0]
	for _, c := range output.ClassificationOutputs[0][1:] {
		if c.Score > best.Score {
			best = c
		}
	}

	return models.Classification{Label: best.Label, Score: float64(best.Score)}, nil
}

func (h *HugotClassifier) Close() error {
	return h.session.Destroy()
}
