package videoio

import (
	"math"
	"testing"
	"time"

	"github.com/thesyncim/videoio/engine"
)

func TestTimeAlignedWith(t *testing.T) {
	a := TimeFromUnits(3, 16).AlignedWith(TimeFromUnits(1, 8))
	lhs, rhs := a.Values()
	if lhs != 3 || rhs != 2 {
		t.Fatalf("aligned values = (%d, %d), want (3, 2)", lhs, rhs)
	}

	sum := a.Add()
	if v, _ := sum.Value(); v != 5 {
		t.Errorf("Add = %d, want 5", v)
	}
	if sum.Base() != engine.NewRational(1, 16) {
		t.Errorf("Add base = %v, want 1/16", sum.Base())
	}
}

func TestTimeAlignedRounding(t *testing.T) {
	a := TimeFromUnits(2, 7).AlignedWith(TimeFromUnits(2, 3))
	if _, rhs := a.Values(); rhs != 5 {
		t.Errorf("2/3 in 1/7 base = %d, want 5", rhs)
	}
}

func TestTimeAddSubtractSeconds(t *testing.T) {
	tests := []struct {
		a, b float64
	}{
		{0.2, 0.3},
		{1.0, 0.04},
		{10.5, 3.25},
		{0, 0},
	}
	for _, tt := range tests {
		x, y := TimeFromSecs(tt.a), TimeFromSecs(tt.b)
		if got := x.AlignedWith(y).Add().Seconds(); math.Abs(got-(tt.a+tt.b)) > 1e-6 {
			t.Errorf("%v + %v = %v", tt.a, tt.b, got)
		}
		if got := x.AlignedWith(y).Subtract().Seconds(); math.Abs(got-(tt.a-tt.b)) > 1e-6 {
			t.Errorf("%v - %v = %v", tt.a, tt.b, got)
		}
	}

	if !TimeFromSecs(0.2).AlignedWith(TimeFromSecs(0.3)).Add().Equal(TimeFromSecs(0.5)) {
		t.Error("0.2s + 0.3s != 0.5s")
	}
}

func TestTimeAcrossBases(t *testing.T) {
	frame := TimeFromNthOfASecond(25)
	start := TimeFromUnits(90000, 90000)
	next := start.AlignedWith(frame).Add()
	if v, _ := next.Value(); v != 93600 {
		t.Errorf("1s + 1/25s in 90k = %d, want 93600", v)
	}
	if math.Abs(next.Seconds()-1.04) > 1e-9 {
		t.Errorf("Seconds = %v", next.Seconds())
	}
}

func TestTimeWithoutValue(t *testing.T) {
	none := NoTime(engine.Rational{})
	if none.HasValue() {
		t.Fatal("HasValue() = true")
	}
	if none.Seconds() != 0 {
		t.Errorf("Seconds() = %v, want 0", none.Seconds())
	}
	if none.Duration() != 0 {
		t.Errorf("Duration() = %v, want 0", none.Duration())
	}
	if got := none.AlignedWith(TimeFromSecs(1)).Add(); got.HasValue() {
		t.Errorf("none + 1s = %v, want none", got)
	}
	if got := TimeFromSecs(1).AlignedWith(none).Subtract(); got.HasValue() {
		t.Errorf("1s - none = %v, want none", got)
	}
	if none.String() != "none" {
		t.Errorf("String() = %q", none.String())
	}
}

func TestTimeDurationRoundTrip(t *testing.T) {
	d := 1500 * time.Millisecond
	tm := TimeFromDuration(d)
	if tm.Duration() != d {
		t.Errorf("Duration() = %v, want %v", tm.Duration(), d)
	}
	if tm.Seconds() != 1.5 {
		t.Errorf("Seconds() = %v", tm.Seconds())
	}

	ninety := NewTime(45000, engine.NewRational(1, 90000))
	if ninety.Duration() != 500*time.Millisecond {
		t.Errorf("90k Duration() = %v", ninety.Duration())
	}
}

func TestTimeString(t *testing.T) {
	if got := TimeFromUnits(3, 16).String(); got != "3/16 secs" {
		t.Errorf("String() = %q", got)
	}
	if got := ZeroTime().String(); got != "0/90000 secs" {
		t.Errorf("ZeroTime String() = %q", got)
	}
}
