package filter

import (
	"cmp"

	"cloud.google.com/go/civil"
	"github.com/spacesedan/instalens/internal/models"
)

// Validate checks the query bounds. Bounds are never swapped on the
// caller's behalf.
func Validate(q models.Query) error {
	if !q.From.IsValid() {
		return &FilterInputError{Field: "from", Reason: "not a valid date"}
	}
	if !q.To.IsValid() {
		return &FilterInputError{Field: "to", Reason: "not a valid date"}
	}
	if !q.Start.IsValid() {
		return &FilterInputError{Field: "start", Reason: "not a valid time of day"}
	}
	if !q.End.IsValid() {
		return &FilterInputError{Field: "end", Reason: "not a valid time of day"}
	}
	if q.From.After(q.To) {
		return &FilterInputError{Field: "from", Reason: "from " + q.From.String() + " is after to " + q.To.String()}
	}
	if compareTime(q.Start, q.End) > 0 {
		return &FilterInputError{Field: "start", Reason: "start " + q.Start.String() + " is after end " + q.End.String()}
	}
	return nil
}

// Apply keeps the rows whose date lies in [From, To] and whose time of day
// lies in [Start, End]. The two checks are independent: the time of day is
// compared without regard to the date it belongs to. Rows lacking a date or
// a time never match. When q.Handle is set, rows of other accounts are
// dropped as well.
func Apply(records []models.Record, q models.Query) ([]models.Record, error) {
	if err := Validate(q); err != nil {
		return nil, err
	}

	out := make([]models.Record, 0, len(records))
	for _, r := range records {
		if matches(r, q) {
			out = append(out, r)
		}
	}
	return out, nil
}

func matches(r models.Record, q models.Query) bool {
	if q.Handle != "" && r.Handle != q.Handle {
		return false
	}
	if r.Date == nil || r.Time == nil {
		return false
	}
	if r.Date.Before(q.From) || r.Date.After(q.To) {
		return false
	}
	return compareTime(*r.Time, q.Start) >= 0 && compareTime(*r.Time, q.End) <= 0
}

func compareTime(a, b civil.Time) int {
	switch {
	case a.Hour != b.Hour:
		return cmp.Compare(a.Hour, b.Hour)
	case a.Minute != b.Minute:
		return cmp.Compare(a.Minute, b.Minute)
	case a.Second != b.Second:
		return cmp.Compare(a.Second, b.Second)
	default:
		return cmp.Compare(a.Nanosecond, b.Nanosecond)
	}
}
