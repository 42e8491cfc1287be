package h264

import (
	"math/bits"
	"testing"
)

// spsWriter builds SPS payloads bit by bit.
type spsWriter struct {
	buf []byte
	n   int
}

func (w *spsWriter) u(n int, v uint32) {
	for i := n - 1; i >= 0; i-- {
		if w.n%8 == 0 {
			w.buf = append(w.buf, 0)
		}
		if v>>i&1 == 1 {
			w.buf[len(w.buf)-1] |= 0x80 >> (w.n % 8)
		}
		w.n++
	}
}

func (w *spsWriter) ue(v uint32) {
	l := bits.Len32(v + 1)
	w.u(l-1, 0)
	w.u(l, v+1)
}

// nal closes the RBSP and returns the escaped NAL unit with its header.
func (w *spsWriter) nal() []byte {
	w.u(1, 1)
	for w.n%8 != 0 {
		w.u(1, 0)
	}
	out := []byte{0x67}
	zeros := 0
	for _, b := range w.buf {
		if zeros >= 2 && b <= 3 {
			out = append(out, 3)
			zeros = 0
		}
		out = append(out, b)
		if b == 0 {
			zeros++
		} else {
			zeros = 0
		}
	}
	return out
}

func baselineSPS(timing bool) []byte {
	w := &spsWriter{}
	w.u(8, 66)
	w.u(8, 0xc0)
	w.u(8, 30)
	w.ue(0) // id
	w.ue(0)
	w.ue(0) // poc type
	w.ue(0)
	w.ue(1)
	w.u(1, 0)
	w.ue(19) // 320
	w.ue(14) // 240
	w.u(1, 1)
	w.u(1, 1)
	w.u(1, 0)
	if !timing {
		w.u(1, 0)
		return w.nal()
	}
	w.u(1, 1)
	w.u(4, 0) // aspect, overscan, signal type, chroma loc
	w.u(1, 1)
	w.u(32, 1)
	w.u(32, 50)
	w.u(1, 1)
	return w.nal()
}

func highSPS() []byte {
	w := &spsWriter{}
	w.u(8, 100)
	w.u(8, 0)
	w.u(8, 40)
	w.ue(0)
	w.ue(1) // 4:2:0
	w.ue(0)
	w.ue(0)
	w.u(1, 0)
	w.u(1, 1) // scaling matrix present
	for i := range 8 {
		w.u(1, uint32(i%2))
		if i%2 == 1 {
			size := 16
			if i >= 6 {
				size = 64
			}
			for range size {
				w.ue(0) // delta_scale 0
			}
		}
	}
	w.ue(0)
	w.ue(1) // poc type 1
	w.u(1, 0)
	w.ue(1) // se +1
	w.ue(2) // se -1
	w.ue(2)
	w.ue(1)
	w.ue(2)
	w.ue(4)
	w.u(1, 0)
	w.ue(119) // 1920
	w.ue(67)  // 1088
	w.u(1, 1)
	w.u(1, 1)
	w.u(1, 1) // cropping
	w.ue(0)
	w.ue(0)
	w.ue(0)
	w.ue(4)
	w.u(1, 0)
	return w.nal()
}

func TestParseSPS(t *testing.T) {
	tests := []struct {
		name    string
		nal     []byte
		want    SPSInfo
		wantErr bool
	}{
		{
			name: "baseline",
			nal:  []byte{0x67, 0x42, 0xc0, 0x1e, 0xda, 0x05, 0x07, 0xe4},
			want: SPSInfo{Profile: 66, Level: 30, Width: 320, Height: 240},
		},
		{
			name: "vui timing",
			nal:  baselineSPS(true),
			want: SPSInfo{Profile: 66, Level: 30, Width: 320, Height: 240, NumUnitsInTick: 1, TimeScale: 50},
		},
		{
			name: "high cropped",
			nal:  highSPS(),
			want: SPSInfo{Profile: 100, Level: 40, Width: 1920, Height: 1080},
		},
		{name: "truncated", nal: []byte{0x67, 0x42, 0xc0, 0x1e, 0xda}, wantErr: true},
		{name: "pps", nal: []byte{0x68, 0xce, 0x38, 0x80}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSPS(tt.nal)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseSPS(% x) = %+v, want error", tt.nal, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseSPS: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseSPS = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestBaselineWithoutTiming(t *testing.T) {
	info, err := ParseSPS(baselineSPS(false))
	if err != nil {
		t.Fatalf("ParseSPS: %v", err)
	}
	if info.TimeScale != 0 || info.NumUnitsInTick != 0 {
		t.Errorf("timing = %d/%d, want none", info.NumUnitsInTick, info.TimeScale)
	}
}

func TestUnescape(t *testing.T) {
	got := Unescape([]byte{0x00, 0x00, 0x03, 0x01, 0x00, 0x00, 0x03, 0x00, 0x05})
	want := []byte{0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x05}
	if string(got) != string(want) {
		t.Errorf("Unescape = % x, want % x", got, want)
	}
}
