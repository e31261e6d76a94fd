package filter

import (
	"testing"

	"cloud.google.com/go/civil"
	"github.com/spacesedan/instalens/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func row(url, date, tod string) models.Record {
	r := models.Record{Kind: models.RecordPost, Handle: "acme", URL: url}
	if date != "" {
		d, err := civil.ParseDate(date)
		if err != nil {
			panic(err)
		}
		r.Date = &d
	}
	if tod != "" {
		tm, err := civil.ParseTime(tod)
		if err != nil {
			panic(err)
		}
		r.Time = &tm
	}
	return r
}

func query(from, to, start, end string) models.Query {
	q := models.Query{}
	q.From, _ = civil.ParseDate(from)
	q.To, _ = civil.ParseDate(to)
	q.Start, _ = civil.ParseTime(start)
	q.End, _ = civil.ParseTime(end)
	return q
}

func urls(records []models.Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.URL)
	}
	return out
}

func TestApply(t *testing.T) {
	records := []models.Record{
		row("before-range", "2024-02-28", "12:00:00"),
		row("from-boundary", "2024-03-01", "00:00:00"),
		row("inside", "2024-03-10", "18:30:00"),
		row("to-boundary", "2024-03-31", "23:59:59"),
		row("after-range", "2024-04-01", "12:00:00"),
		row("no-date", "", "12:00:00"),
		row("no-time", "2024-03-10", ""),
	}

	got, err := Apply(records, query("2024-03-01", "2024-03-31", "00:00:00", "23:59:59"))
	require.NoError(t, err)
	assert.Equal(t, []string{"from-boundary", "inside", "to-boundary"}, urls(got))
}

func TestApply_TimeOfDayIgnoresDate(t *testing.T) {
	records := []models.Record{
		row("day1-morning", "2024-03-01", "08:00:00"),
		row("day1-evening", "2024-03-01", "19:00:00"),
		row("day2-morning", "2024-03-02", "08:00:00"),
		row("day2-evening", "2024-03-02", "20:00:00"),
		row("day2-late", "2024-03-02", "22:00:01"),
	}

	got, err := Apply(records, query("2024-03-01", "2024-03-02", "18:00:00", "22:00:00"))
	require.NoError(t, err)
	assert.Equal(t, []string{"day1-evening", "day2-evening"}, urls(got))
}

func TestApply_Handle(t *testing.T) {
	other := row("other", "2024-03-01", "10:00:00")
	other.Handle = "someone-else"
	records := []models.Record{row("mine", "2024-03-01", "10:00:00"), other}

	q := query("2024-03-01", "2024-03-01", "00:00:00", "23:59:59")
	q.Handle = "acme"

	got, err := Apply(records, q)
	require.NoError(t, err)
	assert.Equal(t, []string{"mine"}, urls(got))
}

func TestApply_Idempotent(t *testing.T) {
	records := []models.Record{
		row("a", "2024-01-01", "09:00:00"),
		row("b", "2024-01-02", "13:00:00"),
		row("c", "2024-01-03", "17:00:00"),
		row("d", "2024-01-04", "21:00:00"),
		row("e", "", ""),
	}
	q := query("2024-01-02", "2024-01-04", "10:00:00", "20:00:00")

	once, err := Apply(records, q)
	require.NoError(t, err)
	twice, err := Apply(once, q)
	require.NoError(t, err)

	assert.Equal(t, once, twice)
	assert.Equal(t, []string{"b", "c"}, urls(twice))
}

func TestApply_EmptyInput(t *testing.T) {
	got, err := Apply(nil, query("2024-01-01", "2024-01-01", "00:00:00", "23:59:59"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestApply_RejectsBadBounds(t *testing.T) {
	tests := []struct {
		name  string
		q     models.Query
		field string
	}{
		{"from after to", query("2024-03-02", "2024-03-01", "00:00:00", "23:59:59"), "from"},
		{"start after end", query("2024-03-01", "2024-03-02", "12:00:00", "11:59:59"), "start"},
		{"zero from", models.Query{To: civil.Date{Year: 2024, Month: 1, Day: 1}}, "from"},
		{"invalid time", func() models.Query {
			q := query("2024-03-01", "2024-03-02", "00:00:00", "23:59:59")
			q.End = civil.Time{Hour: 25}
			return q
		}(), "end"},
	}

	records := []models.Record{row("a", "2024-03-01", "10:00:00")}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Apply(records, tt.q)
			require.Error(t, err)
			assert.Nil(t, got)
			assert.ErrorIs(t, err, ErrFilterInput)

			var inputErr *FilterInputError
			require.ErrorAs(t, err, &inputErr)
			assert.Equal(t, tt.field, inputErr.Field)
		})
	}
}

func TestApply_SameDayRange(t *testing.T) {
	records := []models.Record{row("a", "2024-03-01", "10:00:00")}
	got, err := Apply(records, query("2024-03-01", "2024-03-01", "10:00:00", "10:00:00"))
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
