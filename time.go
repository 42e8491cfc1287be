package videoio

import (
	"fmt"
	"math"
	"time"

	"github.com/thesyncim/videoio/engine"
)

// Rational is a time base or frame rate.
type Rational = engine.Rational

// TimeBase is the microsecond time base used for wall-clock conversions,
// encoder contexts and seeking.
var TimeBase = engine.NewRational(1, 1000000)

// Time is a timestamp or duration expressed in ticks of its own time base.
// A Time may have no value, for example a packet whose PTS was never set.
type Time struct {
	value int64
	valid bool
	base  Rational
}

// NewTime returns value ticks of base.
func NewTime(value int64, base Rational) Time {
	return Time{value: value, valid: true, base: base}
}

// NoTime returns a Time without a value in base.
func NoTime(base Rational) Time {
	return Time{base: base}
}

// timeFromTS converts an engine timestamp, where NoPTS means no value.
func timeFromTS(ts int64, base Rational) Time {
	if ts == engine.NoPTS {
		return NoTime(base)
	}
	return NewTime(ts, base)
}

// TimeFromSecs returns a Time of secs seconds in microsecond precision.
func TimeFromSecs(secs float64) Time {
	return NewTime(int64(math.Round(secs*float64(TimeBase.Den))), TimeBase)
}

// TimeFromNthOfASecond returns 1/n seconds, e.g. the duration of one frame at
// n frames per second.
func TimeFromNthOfASecond(n int) Time {
	return NewTime(1, engine.NewRational(1, n))
}

// TimeFromUnits returns units ticks of 1/den seconds.
func TimeFromUnits(units int64, den int) Time {
	return NewTime(units, engine.NewRational(1, den))
}

// TimeFromDuration converts a wall-clock duration.
func TimeFromDuration(d time.Duration) Time {
	return NewTime(d.Microseconds(), TimeBase)
}

// ZeroTime returns zero in the 90 kHz time base.
func ZeroTime() Time {
	return NewTime(0, engine.NewRational(1, 90000))
}

// HasValue reports whether t carries a tick count.
func (t Time) HasValue() bool { return t.valid }

// Value returns the tick count and whether it is set.
func (t Time) Value() (int64, bool) { return t.value, t.valid }

// Base returns the time base.
func (t Time) Base() Rational { return t.base }

// ts returns the value as an engine timestamp.
func (t Time) ts() int64 {
	if !t.valid {
		return engine.NoPTS
	}
	return t.value
}

// Rescale converts t into base. A Time without value stays without value.
func (t Time) Rescale(base Rational) Time {
	if !t.valid {
		return NoTime(base)
	}
	v, ok := t.base.Rescale(t.value, base)
	if !ok {
		return NoTime(base)
	}
	return NewTime(v, base)
}

// AlignedWith rescales rhs into the time base of t so both can be combined.
func (t Time) AlignedWith(rhs Time) Aligned {
	r := rhs.Rescale(t.base)
	return Aligned{
		lhs:      t.value,
		lhsValid: t.valid,
		rhs:      r.value,
		rhsValid: r.valid,
		base:     t.base,
	}
}

// Seconds returns t in seconds, 0 when t has no value.
func (t Time) Seconds() float64 {
	if !t.valid || t.base.Den == 0 {
		return 0
	}
	return float64(t.value) * float64(t.base.Num) / float64(t.base.Den)
}

// Duration converts t to a wall-clock duration, 0 when t has no value.
func (t Time) Duration() time.Duration {
	if !t.valid {
		return 0
	}
	us := t.Rescale(TimeBase)
	if !us.valid {
		return 0
	}
	return time.Duration(us.value) * time.Microsecond
}

// Equal reports whether both times describe the same instant. Times without
// value are equal to each other.
func (t Time) Equal(o Time) bool {
	if !t.valid || !o.valid {
		return t.valid == o.valid
	}
	a := t.AlignedWith(o)
	return a.lhs == a.rhs
}

func (t Time) String() string {
	if !t.valid {
		return "none"
	}
	return fmt.Sprintf("%d/%d secs", t.value*int64(t.base.Num), t.base.Den)
}

// Aligned is a pair of tick values sharing one time base.
type Aligned struct {
	lhs      int64
	lhsValid bool
	rhs      int64
	rhsValid bool
	base     Rational
}

// Add returns lhs + rhs.
func (a Aligned) Add() Time {
	return a.Apply(func(l, r int64) int64 { return l + r })
}

// Subtract returns lhs - rhs.
func (a Aligned) Subtract() Time {
	return a.Apply(func(l, r int64) int64 { return l - r })
}

// Apply combines both values with op. The result has no value if either side
// has none.
func (a Aligned) Apply(op func(lhs, rhs int64) int64) Time {
	if !a.lhsValid || !a.rhsValid {
		return NoTime(a.base)
	}
	return NewTime(op(a.lhs, a.rhs), a.base)
}

// Values returns both tick values.
func (a Aligned) Values() (lhs, rhs int64) { return a.lhs, a.rhs }
