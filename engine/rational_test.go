package engine

import (
	"math"
	"testing"
)

func TestRationalRescale(t *testing.T) {
	tests := []struct {
		name string
		v    int64
		src  Rational
		dst  Rational
		want int64
	}{
		{"identity", 42, NewRational(1, 90000), NewRational(1, 90000), 42},
		{"eighths to sixteenths", 1, NewRational(1, 8), NewRational(1, 16), 2},
		{"round up", 2, NewRational(1, 3), NewRational(1, 7), 5},
		{"round half away from zero", 1, NewRational(1, 2), NewRational(1, 1), 1},
		{"negative half away from zero", -1, NewRational(1, 2), NewRational(1, 1), -1},
		{"ms to 90k", 40, NewRational(1, 1000), NewRational(1, 90000), 3600},
		{"us to ms", 1499, NewRational(1, 1000000), NewRational(1, 1000), 1},
		{"large", math.MaxInt64 / 2, NewRational(1, 1000000), NewRational(1, 1000000), math.MaxInt64 / 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.src.Rescale(tt.v, tt.dst)
			if !ok {
				t.Fatalf("Rescale(%d, %v -> %v) not ok", tt.v, tt.src, tt.dst)
			}
			if got != tt.want {
				t.Errorf("Rescale(%d, %v -> %v) = %d, want %d", tt.v, tt.src, tt.dst, got, tt.want)
			}
		})
	}
}

func TestRationalRescaleInvalid(t *testing.T) {
	if _, ok := NewRational(1, 90000).Rescale(10, Rational{}); ok {
		t.Error("rescale into zero rational should fail")
	}
	if _, ok := NewRational(1, 1).Rescale(math.MaxInt64, NewRational(1, 1000)); ok {
		t.Error("overflowing rescale should fail")
	}
}

func TestRationalRescaleTS(t *testing.T) {
	if got := NewRational(1, 1000).RescaleTS(NoPTS, NewRational(1, 90000)); got != NoPTS {
		t.Errorf("NoPTS rescaled to %d", got)
	}
	if got := NewRational(1, 1000).RescaleTS(1, NewRational(1, 90000)); got != 90 {
		t.Errorf("RescaleTS = %d, want 90", got)
	}
}

func TestRationalFloat64(t *testing.T) {
	if got := NewRational(30000, 1001).Float64(); got < 29.97 || got > 29.98 {
		t.Errorf("Float64 = %f", got)
	}
	if got := NewRational(1, 0).Float64(); got != 0 {
		t.Errorf("zero denominator Float64 = %f", got)
	}
}
