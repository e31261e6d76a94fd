package models

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
)

// Query holds the bounds of a report. Both ranges are inclusive.
type Query struct {
	Handle string     `json:"handle"`
	From   civil.Date `json:"from"`
	To     civil.Date `json:"to"`
	Start  civil.Time `json:"start"`
	End    civil.Time `json:"end"`
}

type Overview struct {
	Handle        string  `json:"handle"`
	TotalPosts    int     `json:"total_posts"`
	TotalLikes    int64   `json:"total_likes"`
	TotalComments int     `json:"total_comments"`
	PositivePct   float64 `json:"positive_pct"`
	NegativePct   float64 `json:"negative_pct"`
	NeutralPct    float64 `json:"neutral_pct"`
}

type SummaryEntry struct {
	URL            string          `json:"url"`
	Caption        string          `json:"caption"`
	Hashtags       string          `json:"hashtags"`
	Likes          int64           `json:"likes"`
	FormattedLikes string          `json:"formatted_likes"`
	Comments       int             `json:"comments"`
	Dominant       *SentimentLabel `json:"dominant,omitempty"`
	DominantPct    float64         `json:"dominant_pct"`
}

// DominantDisplay renders the dominant sentiment as "Positive (50.0%)", or
// "-" when none of the post's comments carry a label.
func (e SummaryEntry) DominantDisplay() string {
	if e.Dominant == nil {
		return "-"
	}
	return fmt.Sprintf("%s (%.1f%%)", e.Dominant.Title(), e.DominantPct)
}

type NormalizeStats struct {
	Posts    int `json:"posts"`
	Comments int `json:"comments"`
	Dropped  int `json:"dropped"`
}

type AnnotationStats struct {
	Classified int `json:"classified"`
	Failed     int `json:"failed"`
	Skipped    int `json:"skipped"`
}

type Report struct {
	ID          string          `json:"id"`
	Query       Query           `json:"query"`
	Overview    Overview        `json:"overview"`
	Summaries   []SummaryEntry  `json:"summaries"`
	TopByLikes  []SummaryEntry  `json:"top_by_likes"`
	Normalize   NormalizeStats  `json:"normalize"`
	Annotation  AnnotationStats `json:"annotation"`
	FromCache   bool            `json:"from_cache"`
	GeneratedAt time.Time       `json:"generated_at"`
}
