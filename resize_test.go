package videoio

import "testing"

var resizeGrid = []uint32{0, 1, 2, 3, 8, 111, 256, 1000}

func TestResizeExact(t *testing.T) {
	w, h, ok := ResizeExact(640, 360).ComputeFor(1920, 1080)
	if !ok || w != 640 || h != 360 {
		t.Errorf("Exact = %dx%d %v", w, h, ok)
	}
	w, h, ok = ResizeExact(0, 0).ComputeFor(0, 0)
	if !ok || w != 0 || h != 0 {
		t.Errorf("Exact zero = %dx%d %v", w, h, ok)
	}
}

func TestResizeFit(t *testing.T) {
	tests := []struct {
		name         string
		srcW, srcH   uint32
		boundW, bndH uint32
		wantW, wantH uint32
		wantOK       bool
	}{
		{"fits already", 640, 480, 1920, 1080, 640, 480, true},
		{"downscale wide", 1920, 1080, 1280, 1280, 1280, 720, true},
		{"downscale tall", 1080, 1920, 1280, 1280, 720, 1280, true},
		{"degenerate", 1000, 1, 8, 8, 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h, ok := ResizeFit(tt.boundW, tt.bndH).ComputeFor(tt.srcW, tt.srcH)
			if ok != tt.wantOK || w != tt.wantW || h != tt.wantH {
				t.Errorf("Fit(%dx%d in %dx%d) = %dx%d %v, want %dx%d %v",
					tt.srcW, tt.srcH, tt.boundW, tt.bndH, w, h, ok, tt.wantW, tt.wantH, tt.wantOK)
			}
		})
	}
}

func TestResizeFitGrid(t *testing.T) {
	for _, w := range resizeGrid {
		for _, h := range resizeGrid {
			for _, bw := range resizeGrid {
				for _, bh := range resizeGrid {
					outW, outH, ok := ResizeFit(bw, bh).ComputeFor(w, h)
					if !ok {
						continue
					}
					if (outW == 0 || outH == 0) && w != 0 && h != 0 && bw != 0 && bh != 0 {
						t.Errorf("Fit(%dx%d in %dx%d) produced zero dimension %dx%d", w, h, bw, bh, outW, outH)
					}
					if outW > bw || outH > bh {
						t.Errorf("Fit(%dx%d in %dx%d) = %dx%d exceeds bound", w, h, bw, bh, outW, outH)
					}
				}
			}
		}
	}
}

func TestResizeFitEven(t *testing.T) {
	w, h, ok := ResizeFitEven(1280, 1280).ComputeFor(1920, 1080)
	if !ok || w != 1280 || h != 720 {
		t.Errorf("FitEven 1080p = %dx%d %v", w, h, ok)
	}
	w, h, ok = ResizeFitEven(8, 8).ComputeFor(3, 3)
	if !ok || w%2 != 0 || h%2 != 0 {
		t.Errorf("FitEven odd source = %dx%d %v", w, h, ok)
	}
	if _, _, ok := ResizeFitEven(0, 100).ComputeFor(100, 100); ok {
		t.Error("FitEven with zero bound should fail")
	}
}

func TestResizeFitEvenGrid(t *testing.T) {
	for _, w := range resizeGrid {
		for _, h := range resizeGrid {
			for _, bw := range resizeGrid {
				for _, bh := range resizeGrid {
					outW, outH, ok := ResizeFitEven(bw, bh).ComputeFor(w, h)
					if !ok {
						continue
					}
					if outW%2 != 0 || outH%2 != 0 {
						t.Errorf("FitEven(%dx%d in %dx%d) = %dx%d not even", w, h, bw, bh, outW, outH)
					}
					if outW > bw || outH > bh {
						t.Errorf("FitEven(%dx%d in %dx%d) = %dx%d exceeds bound", w, h, bw, bh, outW, outH)
					}
					if outW == 0 || outH == 0 {
						t.Errorf("FitEven(%dx%d in %dx%d) returned zero dimension", w, h, bw, bh)
					}
				}
			}
		}
	}
}
