package normalize

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/spacesedan/instalens/internal/models"
	"github.com/spacesedan/instalens/internal/text"
)

const instagramPostURL = "https://www.instagram.com/p/%s/"

type Options struct {
	// Location is the zone dates and times of day are read in. Defaults to UTC.
	Location *time.Location

	// From and To, when set, keep only posts published within the inclusive
	// date window. Comments follow their post.
	From *civil.Date
	To   *civil.Date
}

type Result struct {
	Records []models.Record
	Stats   models.NormalizeStats
	Errors  []error
}

// Normalize maps a capture from any backend onto canonical records: one post
// row per post followed by one comment row per comment. Raw posts lacking an
// identifier or a timestamp are dropped and reported through Result.Errors.
func Normalize(capture models.RawCapture, opts Options) Result {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	var res Result
	seen := make(map[string]struct{}, len(capture.Posts))
	var likeSum int64

	for i, raw := range capture.Posts {
		url := postURL(raw)
		if url == "" {
			res.drop(&CaptureShapeError{Source: capture.Source, Index: i, Reason: "post has no identifier"})
			continue
		}

		takenAt, err := parseTimestamp(raw.TakenAt, raw.Timestamp)
		if err != nil {
			res.drop(&CaptureShapeError{Source: capture.Source, Index: i, Ref: url, Reason: err.Error()})
			continue
		}

		if _, dup := seen[url]; dup {
			res.drop(&CaptureShapeError{Source: capture.Source, Index: i, Ref: url, Reason: "duplicate post identifier"})
			continue
		}
		seen[url] = struct{}{}

		local := takenAt.In(loc)
		date, tod := civil.DateOf(local), civil.TimeOf(local)
		if !inWindow(date, opts) {
			continue
		}

		handle := firstNonEmpty(raw.Owner, capture.Handle)
		likes := firstInt(raw.LikeCount, raw.Likes)
		caption := firstCaption(raw.Caption, raw.CaptionText)
		clean, tags := text.Extract(caption)

		if likes != nil {
			likeSum += *likes
		}

		res.Records = append(res.Records, models.Record{
			Kind:             models.RecordPost,
			Handle:           handle,
			Commentor:        handle,
			URL:              url,
			Date:             &date,
			Time:             &tod,
			Likes:            likes,
			Caption:          caption,
			CleanCaption:     clean,
			Hashtags:         tags,
			ReportedComments: raw.CommentCount,
		})
		res.Stats.Posts++

		for j, c := range raw.Comments {
			createdAt, err := parseTimestamp(c.CreatedAt, c.Timestamp)
			if err != nil {
				res.drop(&CaptureShapeError{
					Source: capture.Source,
					Index:  j,
					Ref:    fmt.Sprintf("%s comment #%d", url, j),
					Reason: err.Error(),
				})
				continue
			}
			res.addComment(handle, url, c.Username, c.Text, createdAt.In(loc))
		}

		// Text-only comment lists carry no author or timestamp of their own.
		for _, body := range raw.CommentTexts {
			res.addComment(handle, url, "", body, local)
		}
	}

	if capture.TotalLikes != nil && *capture.TotalLikes != likeSum {
		slog.Warn("[Normalizer] Reported total likes differs from post sum, keeping post values",
			slog.String("handle", capture.Handle),
			slog.Int64("reported", *capture.TotalLikes),
			slog.Int64("post_sum", likeSum))
	}

	if res.Stats.Dropped > 0 {
		slog.Warn("[Normalizer] Dropped malformed capture records",
			slog.String("source", capture.Source),
			slog.String("handle", capture.Handle),
			slog.Int("dropped", res.Stats.Dropped))
	}

	return res
}

func (res *Result) drop(err *CaptureShapeError) {
	res.Stats.Dropped++
	res.Errors = append(res.Errors, err)
}

func (res *Result) addComment(handle, url, commentor, body string, at time.Time) {
	date, tod := civil.DateOf(at), civil.TimeOf(at)
	comment := body
	res.Records = append(res.Records, models.Record{
		Kind:      models.RecordComment,
		Handle:    handle,
		Commentor: commentor,
		URL:       url,
		Date:      &date,
		Time:      &tod,
		Comment:   &comment,
	})
	res.Stats.Comments++
}

func postURL(raw models.RawPost) string {
	switch {
	case strings.TrimSpace(raw.URL) != "":
		return strings.TrimSpace(raw.URL)
	case strings.TrimSpace(raw.Code) != "":
		return fmt.Sprintf(instagramPostURL, strings.TrimSpace(raw.Code))
	default:
		return strings.TrimSpace(raw.ID)
	}
}

// timestampLayouts are tried in order. Layouts without an offset are read
// as UTC. Fractional seconds are accepted by every layout.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
}

func parseTimestamp(raw string, unix *int64) (time.Time, error) {
	if s := strings.TrimSpace(raw); s != "" {
		for _, layout := range timestampLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("unparsable timestamp %q", s)
	}
	if unix != nil {
		return time.Unix(*unix, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("missing timestamp")
}

func inWindow(d civil.Date, opts Options) bool {
	if opts.From != nil && d.Before(*opts.From) {
		return false
	}
	if opts.To != nil && d.After(*opts.To) {
		return false
	}
	return true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstInt(values ...*int64) *int64 {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

// firstCaption treats an empty caption as no caption.
func firstCaption(values ...*string) *string {
	for _, v := range values {
		if v != nil && *v != "" {
			return v
		}
	}
	return nil
}
