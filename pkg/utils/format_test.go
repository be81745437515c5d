package utils

import "testing"

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		input    float64
		expected string
	}{
		{0, "0.00"},
		{100, "100.00"},
		{4512.5, "4,512.50"},
		{1234567.25, "1,234,567.25"},
		{-1234.25, "-1,234.25"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			result := FormatPrice(tt.input)
			if result != tt.expected {
				t.Errorf("FormatPrice(%f) = %s, want %s", tt.input, result, tt.expected)
			}
		})
	}
}

func TestFormatCount(t *testing.T) {
	if got := FormatCount(1234567); got != "1,234,567" {
		t.Errorf("FormatCount = %s, want 1,234,567", got)
	}
	if got := FormatCount(12); got != "12" {
		t.Errorf("FormatCount = %s, want 12", got)
	}
}

func TestFormatVolume(t *testing.T) {
	tests := []struct {
		input    float64
		expected string
	}{
		{500, "500"},
		{1000, "1 k"},
		{1250, "1.2 k"},
		{3400000, "3.4 M"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			result := FormatVolume(tt.input)
			if result != tt.expected {
				t.Errorf("FormatVolume(%f) = %s, want %s", tt.input, result, tt.expected)
			}
		})
	}
}

func TestFormatPct(t *testing.T) {
	if got := FormatPct(0.625); got != "62.5%" {
		t.Errorf("FormatPct = %s, want 62.5%%", got)
	}
	if got := FormatSignedPct(-0.0125); got != "-1.25%" {
		t.Errorf("FormatSignedPct = %s, want -1.25%%", got)
	}
	if got := FormatSignedPct(0.02); got != "+2.00%" {
		t.Errorf("FormatSignedPct = %s, want +2.00%%", got)
	}
}
