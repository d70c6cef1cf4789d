package search

import (
	"errors"
	"testing"
	"time"
)

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Period
		wantErr bool
	}{
		{name: "empty defaults to all time", input: "", want: PeriodAllTime},
		{name: "all_time", input: "all_time", want: PeriodAllTime},
		{name: "last_week", input: "last_week", want: PeriodLastWeek},
		{name: "last_month", input: "last_month", want: PeriodLastMonth},
		{name: "last_3_month", input: "last_3_month", want: PeriodLast3Month},
		{name: "last_6_month", input: "last_6_month", want: PeriodLast6Month},
		{name: "last_year", input: "last_year", want: PeriodLastYear},
		{name: "unknown", input: "yesterday", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePeriod(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidPeriod) {
					t.Errorf("ParsePeriod(%q) error = %v, want ErrInvalidPeriod", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParsePeriod(%q): %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParsePeriod(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestPeriod_Start(t *testing.T) {
	now := time.Date(2024, 5, 15, 13, 45, 30, 0, time.UTC)

	tests := []struct {
		period Period
		want   time.Time
	}{
		{PeriodAllTime, time.Time{}},
		{PeriodLastWeek, time.Date(2024, 5, 8, 0, 0, 0, 0, time.UTC)},
		{PeriodLastMonth, time.Date(2024, 4, 15, 0, 0, 0, 0, time.UTC)},
		{PeriodLastYear, time.Date(2023, 5, 16, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(string(tt.period), func(t *testing.T) {
			if got := tt.period.Start(now); !got.Equal(tt.want) {
				t.Errorf("Start = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPeriod_StartAnchorsAtDayStart(t *testing.T) {
	// Two calls on the same UTC day must produce the same window start.
	morning := time.Date(2024, 5, 15, 0, 1, 0, 0, time.UTC)
	evening := time.Date(2024, 5, 15, 23, 59, 0, 0, time.UTC)

	if a, b := PeriodLastWeek.Start(morning), PeriodLastWeek.Start(evening); !a.Equal(b) {
		t.Errorf("Start differs within one day: %v vs %v", a, b)
	}
}
