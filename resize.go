package videoio

import "math"

// ResizeKind selects a resize policy.
type ResizeKind int

const (
	// ResizeKindExact resizes to the bound, ignoring aspect ratio.
	ResizeKindExact ResizeKind = iota
	// ResizeKindFit resizes to the largest size within the bound that keeps
	// the aspect ratio. Sources that already fit are left alone.
	ResizeKindFit
	// ResizeKindFitEven is ResizeKindFit with both dimensions even.
	ResizeKindFitEven
)

func (k ResizeKind) String() string {
	switch k {
	case ResizeKindExact:
		return "exact"
	case ResizeKindFit:
		return "fit"
	case ResizeKindFitEven:
		return "fit-even"
	default:
		return "unknown"
	}
}

// Resize is a policy mapping source dimensions to output dimensions.
type Resize struct {
	Kind   ResizeKind
	Width  uint32
	Height uint32
}

// ResizeExact resizes to exactly w x h.
func ResizeExact(w, h uint32) Resize { return Resize{Kind: ResizeKindExact, Width: w, Height: h} }

// ResizeFit fits within w x h preserving aspect ratio.
func ResizeFit(w, h uint32) Resize { return Resize{Kind: ResizeKindFit, Width: w, Height: h} }

// ResizeFitEven fits within w x h preserving aspect ratio with even output.
func ResizeFitEven(w, h uint32) Resize { return Resize{Kind: ResizeKindFitEven, Width: w, Height: h} }

// ComputeFor returns the output dimensions for a w x h source. ok is false
// when no valid dimensions exist.
func (r Resize) ComputeFor(w, h uint32) (outW, outH uint32, ok bool) {
	switch r.Kind {
	case ResizeKindExact:
		return r.Width, r.Height, true
	case ResizeKindFit:
		return fit(w, h, r.Width, r.Height)
	case ResizeKindFitEven:
		return fitEven(w, h, r.Width, r.Height)
	default:
		return 0, 0, false
	}
}

func fit(w, h, wMax, hMax uint32) (uint32, uint32, bool) {
	if wMax >= w && hMax >= h {
		return w, h, true
	}
	if w == 0 || h == 0 {
		return 0, 0, false
	}
	wf := float32(wMax) / float32(w)
	hf := float32(hMax) / float32(h)
	f := min(wf, hf)
	outW := uint32(float32(w) * f)
	outH := uint32(float32(h) * f)
	if outW == 0 || outH == 0 {
		return 0, 0, false
	}
	return outW, outH, true
}

// fitEven shrinks the bound one pixel at a time on the tighter axis until the
// scaled size rounds to even numbers on both axes.
func fitEven(w, h, wMax, hMax uint32) (uint32, uint32, bool) {
	if w == 0 || h == 0 {
		return 0, 0, false
	}
	for wMax > 0 && hMax > 0 {
		wf := float32(wMax) / float32(w)
		hf := float32(hMax) / float32(h)
		f := min(wf, hf, 1)
		outW := uint32(math.Round(float64(float32(w) * f)))
		outH := uint32(math.Round(float64(float32(h) * f)))
		if outW == 0 || outH == 0 {
			break
		}
		if outW%2 == 0 && outH%2 == 0 {
			return outW, outH, true
		}
		if wf < hf {
			wMax--
		} else {
			hMax--
		}
	}
	return 0, 0, false
}
