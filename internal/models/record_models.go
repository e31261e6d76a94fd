package models

import "cloud.google.com/go/civil"

type RecordKind int

const (
	RecordPost RecordKind = iota
	RecordComment
)

func (k RecordKind) String() string {
	switch k {
	case RecordPost:
		return "post"
	case RecordComment:
		return "comment"
	default:
		return "unknown"
	}
}

// Record is the canonical row shared by every stage after normalization.
// Post rows carry the caption fields, comment rows carry the comment and
// sentiment fields; the two sets never mix on one row.
type Record struct {
	Kind      RecordKind  `json:"kind"`
	Handle    string      `json:"handle"`
	Commentor string      `json:"commentor"`
	URL       string      `json:"url"`
	Date      *civil.Date `json:"date,omitempty"`
	Time      *civil.Time `json:"time,omitempty"`

	Likes        *int64  `json:"likes,omitempty"`
	Caption      *string `json:"caption,omitempty"`
	CleanCaption *string `json:"clean_caption,omitempty"`
	Hashtags     *string `json:"hashtags,omitempty"`

	// ReportedComments is the comment count some backends give instead of
	// the comment bodies. It is informational only.
	ReportedComments *int64 `json:"reported_comments,omitempty"`

	Comment        *string         `json:"comment,omitempty"`
	SentimentLabel *SentimentLabel `json:"sentiment_label,omitempty"`
	SentimentScore *float64        `json:"sentiment_score,omitempty"`
}

func (r Record) IsPost() bool {
	return r.Kind == RecordPost
}

// HasComment reports whether the row carries comment text.
func (r Record) HasComment() bool {
	return r.Comment != nil
}
