package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"cloud.google.com/go/civil"
	"github.com/spacesedan/instalens/internal/models"
	"github.com/spacesedan/instalens/internal/sentiment"
	"github.com/spacesedan/instalens/internal/text"
)

// Header is the stable column order of an exported dataset.
var Header = []string{
	"handle", "url", "date", "time", "likes", "caption", "comment",
	"sentiment_label", "sentiment_score", "commentor", "hashtags", "kind",
}

// WriteCSV writes the canonical dataset, one line per record. Absent values
// are written as empty fields.
func WriteCSV(w io.Writer, records []models.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, r := range records {
		if err := cw.Write(row(r)); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func row(r models.Record) []string {
	var date, tod, likes, label, score string
	if r.Date != nil {
		date = r.Date.String()
	}
	if r.Time != nil {
		tod = r.Time.String()
	}
	if r.Likes != nil {
		likes = strconv.FormatInt(*r.Likes, 10)
	}
	if r.SentimentLabel != nil {
		label = string(*r.SentimentLabel)
	}
	if r.SentimentScore != nil {
		score = strconv.FormatFloat(*r.SentimentScore, 'f', -1, 64)
	}

	return []string{
		r.Handle, r.URL, date, tod, likes,
		deref(r.Caption), deref(r.Comment),
		label, score, r.Commentor, deref(r.Hashtags), r.Kind.String(),
	}
}

// ReadCSV loads a dataset previously written by WriteCSV. The kind column
// decides whether a row is a post row or a comment row. An empty caption
// reads back as no caption.
func ReadCSV(rd io.Reader) ([]models.Record, error) {
	cr := csv.NewReader(rd)
	cr.FieldsPerRecord = len(Header)

	head, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty dataset file")
		}
		return nil, err
	}
	for i, col := range Header {
		if head[i] != col {
			return nil, fmt.Errorf("unexpected column %q at position %d, want %q", head[i], i, col)
		}
	}

	var records []models.Record
	for line := 2; ; line++ {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, err
		}

		r, err := parseRow(fields)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, r)
	}
}

func parseRow(f []string) (models.Record, error) {
	r := models.Record{
		Kind:      models.RecordComment,
		Handle:    f[0],
		URL:       f[1],
		Commentor: f[9],
	}

	if f[2] != "" {
		d, err := civil.ParseDate(f[2])
		if err != nil {
			return r, err
		}
		r.Date = &d
	}
	if f[3] != "" {
		t, err := civil.ParseTime(f[3])
		if err != nil {
			return r, err
		}
		r.Time = &t
	}

	switch f[11] {
	case models.RecordPost.String():
		r.Kind = models.RecordPost
	case models.RecordComment.String():
	default:
		return r, fmt.Errorf("kind: unknown record kind %q", f[11])
	}

	if r.Kind == models.RecordPost {
		if f[5] != "" {
			caption := f[5]
			r.Caption = &caption
			r.CleanCaption, r.Hashtags = text.Extract(&caption)
		}
		if f[4] != "" {
			likes, err := strconv.ParseInt(f[4], 10, 64)
			if err != nil {
				return r, fmt.Errorf("likes: %w", err)
			}
			r.Likes = &likes
		}
		return r, nil
	}

	comment := f[6]
	r.Comment = &comment
	if f[7] != "" {
		label, _ := sentiment.NormalizeLabel(f[7])
		r.SentimentLabel = &label
	}
	if f[8] != "" {
		score, err := strconv.ParseFloat(f[8], 64)
		if err != nil {
			return r, fmt.Errorf("sentiment_score: %w", err)
		}
		r.SentimentScore = &score
	}
	return r, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
