package format

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIndian(t *testing.T) {
	likes := int64(2500)
	var missing *int64

	tests := []struct {
		name  string
		input any
		want  string
	}{
		{"zero", 0, "0"},
		{"three digits", 999, "999"},
		{"four digits", 1000, "1,000"},
		{"lakh", 100000, "1,00,000"},
		{"seven digits", 1234567, "12,34,567"},
		{"crore", int64(123456789), "12,34,56,789"},
		{"likes pointer", &likes, "2,500"},
		{"nil pointer", missing, "0"},
		{"nil", nil, "0"},
		{"float truncates", 1234.99, "1,234"},
		{"numeric string", "98765", "98,765"},
		{"padded numeric string", " 1000 ", "1,000"},
		{"float string", "1234567.8", "12,34,567"},
		{"json number", json.Number("5000"), "5,000"},
		{"uint", uint32(12345), "12,345"},
		{"max int64", int64(math.MaxInt64), "92,23,37,20,36,85,47,75,807"},
		{"non numeric", "abc", "0"},
		{"empty string", "", "0"},
		{"nan", math.NaN(), "0"},
		{"inf", math.Inf(1), "0"},
		{"struct", struct{}{}, "0"},
		{"negative", -1234567, "-12,34,567"},
		{"min int64", int64(math.MinInt64), "-92,23,37,20,36,85,47,75,808"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Indian(tt.input))
		})
	}
}
