package sentiment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spacesedan/instalens/internal/models"
	"golang.org/x/sync/errgroup"
)

const defaultConcurrency = 4

type Annotator struct {
	classifier   Classifier
	concurrency  int
	abortOnError bool
}

type Option func(*Annotator)

// WithConcurrency bounds the number of classifier calls in flight.
func WithConcurrency(n int) Option {
	return func(a *Annotator) {
		if n > 0 {
			a.concurrency = n
		}
	}
}

// WithAbortOnError makes the first classification failure abort the batch.
func WithAbortOnError(abort bool) Option {
	return func(a *Annotator) {
		a.abortOnError = abort
	}
}

func NewAnnotator(classifier Classifier, opts ...Option) *Annotator {
	a := &Annotator{
		classifier:  classifier,
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Annotate classifies a single text. Nil or blank text returns (nil, nil)
// without reaching the classifier.
func (a *Annotator) Annotate(ctx context.Context, text *string) (*models.SentimentLabel, *float64, error) {
	if text == nil || strings.TrimSpace(*text) == "" {
		return nil, nil, nil
	}

	out, err := a.classifier.Classify(ctx, *text)
	if err != nil {
		return nil, nil, &ClassificationError{Text: *text, Err: err}
	}

	label, ok := NormalizeLabel(out.Label)
	if !ok {
		logUnknownLabel(out.Label)
	}
	score := clampScore(out.Score)

	return &label, &score, nil
}

type AnnotationResult struct {
	Records []models.Record
	Stats   models.AnnotationStats
	Errors  []error
}

type outcome struct {
	label *models.SentimentLabel
	score *float64
	err   error
}

// AnnotateRecords attaches sentiment to every comment row. Each distinct
// comment text is classified once and the outcome is joined back to every
// row carrying that text. The input slice is not modified.
//
// A failed classification leaves the row's sentiment nil and is reported in
// the result. An error is returned when the context ends before the pass
// completes, when every classified row failed, or on the first failure if
// the annotator aborts on error. No records are returned alongside an error.
func (a *Annotator) AnnotateRecords(ctx context.Context, records []models.Record) (AnnotationResult, error) {
	start := time.Now()

	var texts []string
	index := make(map[string]int)
	var stats models.AnnotationStats

	for _, r := range records {
		if !r.HasComment() {
			continue
		}
		if strings.TrimSpace(*r.Comment) == "" {
			stats.Skipped++
			continue
		}
		if _, ok := index[*r.Comment]; !ok {
			index[*r.Comment] = len(texts)
			texts = append(texts, *r.Comment)
		}
	}

	outcomes := make([]outcome, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i, text := range texts {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			label, score, err := a.Annotate(gctx, &text)
			outcomes[i] = outcome{label: label, score: score, err: err}
			if err != nil && a.abortOnError {
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return AnnotationResult{}, fmt.Errorf("annotation aborted: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return AnnotationResult{}, fmt.Errorf("annotation aborted: %w", err)
	}

	out := make([]models.Record, len(records))
	copy(out, records)

	var errs []error
	for i := range out {
		r := &out[i]
		if !r.HasComment() {
			continue
		}
		idx, ok := index[*r.Comment]
		if !ok {
			continue
		}
		o := outcomes[idx]
		if o.err != nil {
			stats.Failed++
			continue
		}
		r.SentimentLabel = o.label
		r.SentimentScore = o.score
		stats.Classified++
	}
	for _, o := range outcomes {
		if o.err != nil {
			errs = append(errs, o.err)
		}
	}

	if stats.Failed > 0 && stats.Classified == 0 {
		return AnnotationResult{}, fmt.Errorf("%w: %w", ErrAllFailed, errors.Join(errs...))
	}

	slog.Info("[Annotator] Annotated comments",
		slog.Int("distinct_texts", len(texts)),
		slog.Int("classified", stats.Classified),
		slog.Int("failed", stats.Failed),
		slog.Int("skipped", stats.Skipped),
		slog.Duration("elapsed", time.Since(start)))

	return AnnotationResult{Records: out, Stats: stats, Errors: errs}, nil
}
