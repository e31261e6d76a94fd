package models

type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "positive"
	SentimentNegative SentimentLabel = "negative"
	SentimentNeutral  SentimentLabel = "neutral"
)

// SentimentLabels is the fixed priority order used to break ties.
var SentimentLabels = []SentimentLabel{SentimentPositive, SentimentNegative, SentimentNeutral}

// Title returns the display form, e.g. "Positive".
func (l SentimentLabel) Title() string {
	switch l {
	case SentimentPositive:
		return "Positive"
	case SentimentNegative:
		return "Negative"
	case SentimentNeutral:
		return "Neutral"
	default:
		return string(l)
	}
}

// Classification is the raw answer of a classifier before the label is
// normalized.
type Classification struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}
