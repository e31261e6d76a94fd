package models

import "cloud.google.com/go/civil"

// RawCapture is the loose envelope every capture backend produces. Field
// availability depends on the backend, so most post fields are optional and
// resolved by the normalizer.
type RawCapture struct {
	Source string    `json:"source"`
	Handle string    `json:"handle"`
	Posts  []RawPost `json:"posts"`

	// Some backends report an account level like total next to the posts.
	TotalLikes *int64 `json:"total_likes,omitempty"`

	// From and To are the inclusive date window the capture was taken for.
	// Posts published outside it are left out of the dataset along with
	// their comments.
	From *civil.Date `json:"from,omitempty"`
	To   *civil.Date `json:"to,omitempty"`
}

type RawPost struct {
	URL  string `json:"url,omitempty"`
	Code string `json:"code,omitempty"`
	ID   string `json:"id,omitempty"`

	Owner string `json:"owner,omitempty"`

	// TakenAt is an ISO 8601 timestamp, read as UTC when it carries no
	// offset. Timestamp is unix seconds.
	TakenAt   string `json:"taken_at,omitempty"`
	Timestamp *int64 `json:"timestamp,omitempty"`

	LikeCount *int64 `json:"like_count,omitempty"`
	Likes     *int64 `json:"likes,omitempty"`

	Caption     *string `json:"caption,omitempty"`
	CaptionText *string `json:"caption_text,omitempty"`

	Comments     []RawComment `json:"comments,omitempty"`
	CommentTexts []string     `json:"comment_texts,omitempty"`
	CommentCount *int64       `json:"comment_count,omitempty"`
}

type RawComment struct {
	Username  string `json:"username"`
	CreatedAt string `json:"created_at,omitempty"`
	Timestamp *int64 `json:"timestamp,omitempty"`
	Text      string `json:"text"`
}

// ReportRequest is the payload consumed from the report request topic.
type ReportRequest struct {
	RequestID string     `json:"request_id"`
	Capture   RawCapture `json:"capture"`
	Query     Query      `json:"query"`
}
