package util

import (
	"math"
	"testing"
)

func TestSafeDiv(t *testing.T) {
	tests := []struct {
		name     string
		a, b     float64
		def      float64
		expected float64
	}{
		{"normal", 10, 4, 0, 2.5},
		{"zero denominator", 10, 0, -1, -1},
		{"zero over zero", 0, 0, 0, 0},
		{"overflow", math.MaxFloat64, 1e-300, 7, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SafeDiv(tt.a, tt.b, tt.def)
			if result != tt.expected {
				t.Errorf("SafeDiv(%v, %v, %v) = %v, want %v", tt.a, tt.b, tt.def, result, tt.expected)
			}
		})
	}
}

func TestFinite(t *testing.T) {
	if !Finite(1.5) {
		t.Error("1.5 should be finite")
	}
	if Finite(math.NaN()) || Finite(math.Inf(1)) || Finite(math.Inf(-1)) {
		t.Error("NaN and Inf should not be finite")
	}
}

func TestCeilSecond(t *testing.T) {
	tests := []struct {
		ms       float64
		expected int
	}{
		{0, 0},
		{1, 1},
		{999, 1},
		{1000, 1},
		{1001, 2},
		{10000, 10},
	}

	for _, tt := range tests {
		if got := CeilSecond(tt.ms); got != tt.expected {
			t.Errorf("CeilSecond(%v) = %d, want %d", tt.ms, got, tt.expected)
		}
	}
}

func TestTrimIDPrefix(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		wantID int
		wantOK bool
	}{
		{"skill", "s1234", 1234, true},
		{"buff", "b740", 740, true},
		{"negative mod", "d-12", -12, true},
		{"bare number", "42", 42, true},
		{"bare negative", "-7", -7, true},
		{"empty", "", 0, false},
		{"garbage", "sabc", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := TrimIDPrefix(tt.input)
			if id != tt.wantID || ok != tt.wantOK {
				t.Errorf("TrimIDPrefix(%q) = (%d, %v), want (%d, %v)", tt.input, id, ok, tt.wantID, tt.wantOK)
			}
		})
	}
}
