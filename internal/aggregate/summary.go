package aggregate

import (
	"cmp"
	"slices"

	"github.com/spacesedan/instalens/internal/format"
	"github.com/spacesedan/instalens/internal/models"
	"github.com/spacesedan/instalens/internal/text"
)

// CaptionSnippetLength is the rune limit for captions in summary rows.
const CaptionSnippetLength = 60

type labelCounts map[models.SentimentLabel]int

func (c labelCounts) total() int {
	n := 0
	for _, v := range c {
		n += v
	}
	return n
}

// dominant picks the most frequent label. Ties resolve in the order of
// models.SentimentLabels.
func (c labelCounts) dominant() (*models.SentimentLabel, float64) {
	total := c.total()
	if total == 0 {
		return nil, 0
	}

	var best models.SentimentLabel
	bestCount := -1
	for _, l := range models.SentimentLabels {
		if c[l] > bestCount {
			best, bestCount = l, c[l]
		}
	}
	return &best, percent(bestCount, total)
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) * 100 / float64(total)
}

type postAccumulator struct {
	entry  models.SummaryEntry
	counts labelCounts
}

// Summarize computes the overview and one summary entry per distinct post
// URL, in order of first appearance. Records are expected to be filtered
// already. Empty input yields a zero overview and an empty list.
func Summarize(records []models.Record) (models.Overview, []models.SummaryEntry) {
	var overview models.Overview
	totals := labelCounts{}

	order := make([]string, 0)
	posts := make(map[string]*postAccumulator)

	for _, r := range records {
		if overview.Handle == "" {
			overview.Handle = r.Handle
		}

		acc, ok := posts[r.URL]
		if !ok {
			acc = &postAccumulator{entry: models.SummaryEntry{URL: r.URL}, counts: labelCounts{}}
			posts[r.URL] = acc
			order = append(order, r.URL)
		}

		if r.IsPost() {
			if r.Likes != nil {
				acc.entry.Likes += *r.Likes
				overview.TotalLikes += *r.Likes
			}
			switch {
			case r.CleanCaption != nil:
				acc.entry.Caption = text.Snippet(*r.CleanCaption, CaptionSnippetLength)
			case r.Caption != nil:
				acc.entry.Caption = text.Snippet(*r.Caption, CaptionSnippetLength)
			}
			if r.Hashtags != nil {
				acc.entry.Hashtags = *r.Hashtags
			}
			continue
		}

		if !r.HasComment() {
			continue
		}
		acc.entry.Comments++
		overview.TotalComments++

		if r.SentimentLabel != nil {
			acc.counts[*r.SentimentLabel]++
			totals[*r.SentimentLabel]++
		}
	}

	overview.TotalPosts = len(order)
	labelled := totals.total()
	overview.PositivePct = percent(totals[models.SentimentPositive], labelled)
	overview.NegativePct = percent(totals[models.SentimentNegative], labelled)
	overview.NeutralPct = percent(totals[models.SentimentNeutral], labelled)

	entries := make([]models.SummaryEntry, 0, len(order))
	for _, url := range order {
		acc := posts[url]
		acc.entry.FormattedLikes = format.Indian(acc.entry.Likes)
		acc.entry.Dominant, acc.entry.DominantPct = acc.counts.dominant()
		entries = append(entries, acc.entry)
	}

	return overview, entries
}

// RankByLikes returns a copy of entries ordered by likes, highest first.
// Entries with equal likes keep their relative order.
func RankByLikes(entries []models.SummaryEntry) []models.SummaryEntry {
	ranked := slices.Clone(entries)
	if ranked == nil {
		ranked = []models.SummaryEntry{}
	}
	slices.SortStableFunc(ranked, func(a, b models.SummaryEntry) int {
		return cmp.Compare(b.Likes, a.Likes)
	})
	return ranked
}
