package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Nisha-Mashhood/connectsphere_backend/models"
)

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestCountDistinctDates(t *testing.T) {
	tests := []struct {
		name    string
		entries []models.DateAndReason
		want    int
	}{
		{
			name: "seven distinct days",
			entries: []models.DateAndReason{
				{Date: day("2025-03-01"), Reason: "travel"},
				{Date: day("2025-03-02"), Reason: "travel"},
				{Date: day("2025-03-03"), Reason: "travel"},
				{Date: day("2025-03-04"), Reason: "travel"},
				{Date: day("2025-03-05"), Reason: "travel"},
				{Date: day("2025-03-06"), Reason: "travel"},
				{Date: day("2025-03-07"), Reason: "travel"},
			},
			want: 7,
		},
		{
			name: "duplicate dates collapse",
			entries: []models.DateAndReason{
				{Date: day("2025-03-01"), Reason: "sick"},
				{Date: day("2025-03-01"), Reason: "still sick"},
			},
			want: 1,
		},
		{
			name: "same day different hours is one date",
			entries: []models.DateAndReason{
				{Date: day("2025-03-01").Add(9 * time.Hour), Reason: "morning"},
				{Date: day("2025-03-01").Add(17 * time.Hour), Reason: "evening"},
			},
			want: 1,
		},
		{
			name:    "zero dates are ignored",
			entries: []models.DateAndReason{{Reason: "missing date"}},
			want:    0,
		},
		{
			name: "nil",
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CountDistinctDates(tt.entries))
		})
	}
}

// An approved 7-day unavailability pushes the end date forward by exactly 7
// days; the arithmetic must not depend on month boundaries
func TestEndDateExtensionArithmetic(t *testing.T) {
	end := day("2025-02-26")
	entries := make([]models.DateAndReason, 7)
	for i := range entries {
		entries[i] = models.DateAndReason{Date: day("2025-03-01").AddDate(0, 0, i), Reason: "away"}
	}

	extended := end.AddDate(0, 0, CountDistinctDates(entries))
	assert.Equal(t, day("2025-03-05"), extended)
}
