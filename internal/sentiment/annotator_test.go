package sentiment

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/spacesedan/instalens/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingClassifier struct {
	mu     sync.Mutex
	calls  map[string]int
	answer func(text string) (models.Classification, error)
}

func newCountingClassifier(answer func(string) (models.Classification, error)) *countingClassifier {
	return &countingClassifier{calls: make(map[string]int), answer: answer}
}

func (c *countingClassifier) Classify(_ context.Context, text string) (models.Classification, error) {
	c.mu.Lock()
	c.calls[text]++
	c.mu.Unlock()
	return c.answer(text)
}

func (c *countingClassifier) total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, v := range c.calls {
		n += v
	}
	return n
}

func lexicon(text string) (models.Classification, error) {
	switch {
	case strings.Contains(text, "love"):
		return models.Classification{Label: "POSITIVE", Score: 0.9}, nil
	case strings.Contains(text, "hate"):
		return models.Classification{Label: " negative ", Score: 0.8}, nil
	case strings.Contains(text, "boom"):
		return models.Classification{}, errors.New("model exploded")
	default:
		return models.Classification{Label: "neutral", Score: 0.6}, nil
	}
}

func ptr[T any](v T) *T { return &v }

func commentRow(url, text string) models.Record {
	return models.Record{Kind: models.RecordComment, Handle: "acme", URL: url, Comment: ptr(text)}
}

func TestAnnotate_BlankTextSkipsClassifier(t *testing.T) {
	fake := newCountingClassifier(lexicon)
	a := NewAnnotator(fake)

	for _, text := range []*string{nil, ptr(""), ptr("   \n\t")} {
		label, score, err := a.Annotate(context.Background(), text)
		require.NoError(t, err)
		assert.Nil(t, label)
		assert.Nil(t, score)
	}
	assert.Zero(t, fake.total())
}

func TestAnnotate_NormalizesLabelAndScore(t *testing.T) {
	a := NewAnnotator(ClassifierFunc(func(_ context.Context, text string) (models.Classification, error) {
		return models.Classification{Label: "Joyful", Score: 1.7}, nil
	}))

	label, score, err := a.Annotate(context.Background(), ptr("whatever"))
	require.NoError(t, err)
	assert.Equal(t, models.SentimentNeutral, *label)
	assert.Equal(t, 1.0, *score)
}

func TestAnnotate_WrapsClassifierFailure(t *testing.T) {
	a := NewAnnotator(newCountingClassifier(lexicon))

	_, _, err := a.Annotate(context.Background(), ptr("boom"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrClassification)

	var ce *ClassificationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "boom", ce.Text)
}

func TestAnnotateRecords_ClassifiesDistinctTextsOnce(t *testing.T) {
	fake := newCountingClassifier(lexicon)
	a := NewAnnotator(fake, WithConcurrency(3))

	caption := "Great day!"
	records := []models.Record{
		{Kind: models.RecordPost, Handle: "acme", URL: "p1", Caption: &caption},
		commentRow("p1", "love it"),
		commentRow("p1", "meh"),
		commentRow("p2", "love it"),
		commentRow("p2", "i hate mondays"),
		commentRow("p2", "  "),
	}

	res, err := a.AnnotateRecords(context.Background(), records)
	require.NoError(t, err)
	require.Len(t, res.Records, len(records))

	assert.Equal(t, 1, fake.calls["love it"])
	assert.Equal(t, 3, fake.total())

	assert.Nil(t, res.Records[0].SentimentLabel)
	assert.Equal(t, models.SentimentPositive, *res.Records[1].SentimentLabel)
	assert.Equal(t, models.SentimentNeutral, *res.Records[2].SentimentLabel)
	assert.Equal(t, models.SentimentPositive, *res.Records[3].SentimentLabel)
	assert.Equal(t, models.SentimentNegative, *res.Records[4].SentimentLabel)
	assert.Nil(t, res.Records[5].SentimentLabel)

	assert.Equal(t, models.AnnotationStats{Classified: 4, Skipped: 1}, res.Stats)

	// input untouched
	assert.Nil(t, records[1].SentimentLabel)
}

func TestAnnotateRecords_PartialFailureKeepsGoing(t *testing.T) {
	a := NewAnnotator(newCountingClassifier(lexicon))

	res, err := a.AnnotateRecords(context.Background(), []models.Record{
		commentRow("p1", "love it"),
		commentRow("p1", "boom"),
		commentRow("p2", "boom"),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Stats.Classified)
	assert.Equal(t, 2, res.Stats.Failed)
	require.Len(t, res.Errors, 1)
	assert.ErrorIs(t, res.Errors[0], ErrClassification)
	assert.Nil(t, res.Records[1].SentimentLabel)
	assert.Nil(t, res.Records[1].SentimentScore)
}

func TestAnnotateRecords_AllFailed(t *testing.T) {
	a := NewAnnotator(newCountingClassifier(lexicon))

	res, err := a.AnnotateRecords(context.Background(), []models.Record{
		commentRow("p1", "boom"),
		commentRow("p2", "boom boom"),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAllFailed)
	assert.ErrorIs(t, err, ErrClassification)
	assert.Nil(t, res.Records)
}

func TestAnnotateRecords_AbortOnError(t *testing.T) {
	a := NewAnnotator(newCountingClassifier(lexicon), WithAbortOnError(true), WithConcurrency(1))

	res, err := a.AnnotateRecords(context.Background(), []models.Record{
		commentRow("p1", "love it"),
		commentRow("p1", "boom"),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrClassification)
	assert.Nil(t, res.Records)
}

func TestAnnotateRecords_ContextCancelled(t *testing.T) {
	var calls atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	a := NewAnnotator(ClassifierFunc(func(ctx context.Context, text string) (models.Classification, error) {
		calls.Add(1)
		cancel()
		return models.Classification{Label: "positive", Score: 1}, nil
	}), WithConcurrency(1))

	res, err := a.AnnotateRecords(ctx, []models.Record{
		commentRow("p1", "one"),
		commentRow("p1", "two"),
		commentRow("p1", "three"),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, res.Records)
	assert.Equal(t, int32(1), calls.Load())
}

func TestAnnotateRecords_NoComments(t *testing.T) {
	fake := newCountingClassifier(lexicon)
	a := NewAnnotator(fake)

	res, err := a.AnnotateRecords(context.Background(), []models.Record{
		{Kind: models.RecordPost, URL: "p1"},
	})
	require.NoError(t, err)
	assert.Len(t, res.Records, 1)
	assert.Zero(t, fake.total())
}

func TestNormalizeLabel(t *testing.T) {
	tests := []struct {
		raw   string
		label models.SentimentLabel
		ok    bool
	}{
		{"positive", models.SentimentPositive, true},
		{"  NEGATIVE\n", models.SentimentNegative, true},
		{"Neutral", models.SentimentNeutral, true},
		{"LABEL_1", models.SentimentNeutral, false},
		{"", models.SentimentNeutral, false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			label, ok := NormalizeLabel(tt.raw)
			assert.Equal(t, tt.label, label)
			assert.Equal(t, tt.ok, ok)
		})
	}
}
