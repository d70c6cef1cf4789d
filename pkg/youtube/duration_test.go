package youtube

import "testing"

func TestParseDuration(t *testing.T) {
	tests := []struct {
		input    string
		expected int
	}{
		{"PT15S", 15},
		{"PT59S", 59},
		{"PT1M", 60},
		{"PT3M20S", 200},
		{"PT1H", 3600},
		{"PT1H2M3S", 3723},
		{"PT10H0M0S", 36000},
		{"", 0},
		{"P1D", 0},
		{"garbage", 0},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseDuration(tt.input); got != tt.expected {
				t.Errorf("ParseDuration(%q) = %d, want %d", tt.input, got, tt.expected)
			}
		})
	}
}
