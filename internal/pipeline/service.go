package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/spacesedan/instalens/internal/aggregate"
	"github.com/spacesedan/instalens/internal/filter"
	"github.com/spacesedan/instalens/internal/models"
	"github.com/spacesedan/instalens/internal/normalize"
	"github.com/spacesedan/instalens/internal/sentiment"
)

// DatasetCache keeps the last annotated dataset per account so a report can
// still be served when a later annotation pass fails.
type DatasetCache interface {
	GetDataset(ctx context.Context, key string) ([]models.Record, bool, error)
	PutDataset(ctx context.Context, key string, records []models.Record) error
}

// Dataset is the canonical, annotated record set for one capture.
type Dataset struct {
	Handle     string
	Records    []models.Record
	Normalize  models.NormalizeStats
	Annotation models.AnnotationStats
	FromCache  bool

	// Warnings holds the recovered per-row errors from normalization and
	// annotation.
	Warnings []error
}

type Service struct {
	annotator *sentiment.Annotator
	cache     DatasetCache
	location  *time.Location
	now       func() time.Time
}

type Option func(*Service)

func WithDatasetCache(cache DatasetCache) Option {
	return func(s *Service) {
		s.cache = cache
	}
}

// WithLocation sets the zone record dates and times are derived in.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.location = loc
		}
	}
}

func NewService(annotator *sentiment.Annotator, opts ...Option) *Service {
	s := &Service{
		annotator: annotator,
		location:  time.UTC,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Build normalizes and annotates a capture, keeping only posts inside the
// capture's date window when it carries one. When annotation fails and a
// dataset for the same account is cached, the cached dataset is returned
// with FromCache set instead of the error.
func (s *Service) Build(ctx context.Context, capture models.RawCapture) (Dataset, error) {
	start := time.Now()

	norm := normalize.Normalize(capture, normalize.Options{
		Location: s.location,
		From:     capture.From,
		To:       capture.To,
	})
	handle := capture.Handle
	if handle == "" && len(norm.Records) > 0 {
		handle = norm.Records[0].Handle
	}

	annotated, err := s.annotator.AnnotateRecords(ctx, norm.Records)
	if err != nil {
		if cached, ok := s.cachedDataset(handle); ok {
			slog.Warn("[Pipeline] Annotation failed, serving cached dataset",
				slog.String("handle", handle),
				slog.String("error", err.Error()))
			return cached, nil
		}
		return Dataset{}, fmt.Errorf("failed to annotate capture for %s: %w", handle, err)
	}

	ds := Dataset{
		Handle:     handle,
		Records:    annotated.Records,
		Normalize:  norm.Stats,
		Annotation: annotated.Stats,
		Warnings:   slices.Concat(norm.Errors, annotated.Errors),
	}

	if s.cache != nil && handle != "" {
		if err := s.cache.PutDataset(ctx, handle, ds.Records); err != nil {
			slog.Warn("[Pipeline] Failed to cache dataset",
				slog.String("handle", handle),
				slog.String("error", err.Error()))
		}
	}

	slog.Info("[Pipeline] Dataset built",
		slog.String("handle", handle),
		slog.Int("posts", ds.Normalize.Posts),
		slog.Int("comments", ds.Normalize.Comments),
		slog.Int("classified", ds.Annotation.Classified),
		slog.Duration("elapsed", time.Since(start)))

	return ds, nil
}

// cachedDataset uses a fresh context; the caller's may already be done.
func (s *Service) cachedDataset(handle string) (Dataset, bool) {
	if s.cache == nil || handle == "" {
		return Dataset{}, false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	records, ok, err := s.cache.GetDataset(ctx, handle)
	if err != nil {
		slog.Warn("[Pipeline] Dataset cache lookup failed",
			slog.String("handle", handle),
			slog.String("error", err.Error()))
		return Dataset{}, false
	}
	if !ok {
		return Dataset{}, false
	}

	ds := Dataset{Handle: handle, Records: records, FromCache: true}
	for _, r := range records {
		if r.IsPost() {
			ds.Normalize.Posts++
			continue
		}
		if r.HasComment() {
			ds.Normalize.Comments++
			if r.SentimentLabel != nil {
				ds.Annotation.Classified++
			}
		}
	}
	return ds, true
}

// Report filters the dataset to the query bounds and aggregates it.
func (s *Service) Report(ds Dataset, q models.Query) (models.Report, error) {
	filtered, err := filter.Apply(ds.Records, q)
	if err != nil {
		return models.Report{}, err
	}

	overview, summaries := aggregate.Summarize(filtered)
	if overview.Handle == "" {
		overview.Handle = firstNonEmpty(q.Handle, ds.Handle)
	}

	return models.Report{
		ID:          uuid.NewString(),
		Query:       q,
		Overview:    overview,
		Summaries:   summaries,
		TopByLikes:  aggregate.RankByLikes(summaries),
		Normalize:   ds.Normalize,
		Annotation:  ds.Annotation,
		FromCache:   ds.FromCache,
		GeneratedAt: s.now().UTC(),
	}, nil
}

// Run validates the query, then builds the dataset and reports on it.
func (s *Service) Run(ctx context.Context, capture models.RawCapture, q models.Query) (models.Report, Dataset, error) {
	if err := filter.Validate(q); err != nil {
		return models.Report{}, Dataset{}, err
	}

	ds, err := s.Build(ctx, capture)
	if err != nil {
		return models.Report{}, Dataset{}, err
	}

	report, err := s.Report(ds, q)
	if err != nil {
		return models.Report{}, Dataset{}, err
	}
	return report, ds, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
