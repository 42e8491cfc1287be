package h264

import (
	"errors"
	"fmt"
)

var errShortSPS = errors.New("h264: sps too short")

// SPSInfo is what videoio reads from a sequence parameter set.
type SPSInfo struct {
	Profile byte
	Level   byte
	Width   int
	Height  int
	// NumUnitsInTick and TimeScale come from the VUI timing info, zero when
	// absent. Frame rate is TimeScale / (2 * NumUnitsInTick).
	NumUnitsInTick uint32
	TimeScale      uint32
}

type bitReader struct {
	data []byte
	pos  int
	bit  int
}

func (r *bitReader) u(n int) (uint32, error) {
	var v uint32
	for range n {
		if r.pos >= len(r.data) {
			return 0, errShortSPS
		}
		v = v<<1 | uint32(r.data[r.pos]>>(7-r.bit)&1)
		if r.bit++; r.bit == 8 {
			r.bit = 0
			r.pos++
		}
	}
	return v, nil
}

func (r *bitReader) ue() (uint32, error) {
	zeros := 0
	for {
		b, err := r.u(1)
		if err != nil {
			return 0, err
		}
		if b == 1 {
			break
		}
		if zeros++; zeros > 31 {
			return 0, errShortSPS
		}
	}
	suffix, err := r.u(zeros)
	if err != nil {
		return 0, err
	}
	return 1<<zeros - 1 + suffix, nil
}

func (r *bitReader) se() (int32, error) {
	v, err := r.ue()
	if err != nil {
		return 0, err
	}
	if v%2 == 0 {
		return -int32(v / 2), nil
	}
	return int32(v/2 + 1), nil
}

// skip reads and discards fields, stopping at the first error.
func (r *bitReader) skip(err *error, fields ...func() error) {
	for _, f := range fields {
		if *err != nil {
			return
		}
		*err = f()
	}
}

func (r *bitReader) skipU(n int) func() error {
	return func() error { _, err := r.u(n); return err }
}

func (r *bitReader) skipUE() error { _, err := r.ue(); return err }

func (r *bitReader) skipSE() error { _, err := r.se(); return err }

func (r *bitReader) skipScalingList(size int) error {
	last, next := int32(8), int32(8)
	for range size {
		if next != 0 {
			delta, err := r.se()
			if err != nil {
				return err
			}
			next = (last + delta + 256) % 256
		}
		if next != 0 {
			last = next
		}
	}
	return nil
}

// Unescape removes emulation prevention bytes from a NAL unit payload.
func Unescape(data []byte) []byte {
	out := make([]byte, 0, len(data))
	zeros := 0
	for _, b := range data {
		if zeros >= 2 && b == 3 {
			zeros = 0
			continue
		}
		if b == 0 {
			zeros++
		} else {
			zeros = 0
		}
		out = append(out, b)
	}
	return out
}

// highProfile lists the profiles whose SPS carries chroma format and bit
// depth fields.
func highProfile(p uint32) bool {
	switch p {
	case 100, 110, 122, 244, 44, 83, 86, 118, 128, 138, 139, 134, 135:
		return true
	}
	return false
}

// ParseSPS reads picture size, profile, level and timing from an SPS NAL
// unit, header byte included.
func ParseSPS(nal []byte) (SPSInfo, error) {
	if NALType(nal) != NALTypeSPS || len(nal) < 4 {
		return SPSInfo{}, fmt.Errorf("h264: not an sps")
	}
	r := &bitReader{data: Unescape(nal[1:])}
	info := SPSInfo{Profile: nal[1], Level: nal[3]}
	r.pos = 3 // profile_idc, constraint flags, level_idc

	var err error
	if _, err = r.ue(); err != nil { // seq_parameter_set_id
		return info, err
	}

	chromaFormat := uint32(1)
	separatePlanes := uint32(0)
	if highProfile(uint32(info.Profile)) {
		if chromaFormat, err = r.ue(); err != nil {
			return info, err
		}
		if chromaFormat == 3 {
			if separatePlanes, err = r.u(1); err != nil {
				return info, err
			}
		}
		r.skip(&err, r.skipUE, r.skipUE, r.skipU(1)) // bit depths, transform bypass
		if err != nil {
			return info, err
		}
		matrix, err := r.u(1)
		if err != nil {
			return info, err
		}
		if matrix == 1 {
			lists := 8
			if chromaFormat == 3 {
				lists = 12
			}
			for i := range lists {
				present, err := r.u(1)
				if err != nil {
					return info, err
				}
				if present == 0 {
					continue
				}
				size := 16
				if i >= 6 {
					size = 64
				}
				if err := r.skipScalingList(size); err != nil {
					return info, err
				}
			}
		}
	}

	r.skip(&err, r.skipUE) // log2_max_frame_num_minus4
	if err != nil {
		return info, err
	}
	pocType, err := r.ue()
	if err != nil {
		return info, err
	}
	switch pocType {
	case 0:
		r.skip(&err, r.skipUE)
	case 1:
		r.skip(&err, r.skipU(1), r.skipSE, r.skipSE)
		if err != nil {
			return info, err
		}
		var cycle uint32
		if cycle, err = r.ue(); err != nil {
			return info, err
		}
		for range cycle {
			r.skip(&err, r.skipSE)
		}
	}
	r.skip(&err, r.skipUE, r.skipU(1)) // max_num_ref_frames, gaps allowed
	if err != nil {
		return info, err
	}

	widthMbs, err := r.ue()
	if err != nil {
		return info, err
	}
	heightUnits, err := r.ue()
	if err != nil {
		return info, err
	}
	frameMbsOnly, err := r.u(1)
	if err != nil {
		return info, err
	}
	if frameMbsOnly == 0 {
		r.skip(&err, r.skipU(1)) // mb_adaptive_frame_field_flag
	}
	r.skip(&err, r.skipU(1)) // direct_8x8_inference_flag
	if err != nil {
		return info, err
	}

	var cropL, cropR, cropT, cropB uint32
	cropping, err := r.u(1)
	if err != nil {
		return info, err
	}
	if cropping == 1 {
		for _, v := range []*uint32{&cropL, &cropR, &cropT, &cropB} {
			if *v, err = r.ue(); err != nil {
				return info, err
			}
		}
	}

	subW, subH := uint32(2), uint32(2)
	switch {
	case separatePlanes == 1 || chromaFormat == 0 || chromaFormat == 3:
		subW, subH = 1, 1
	case chromaFormat == 2:
		subH = 1
	}
	cropUnitY := subH * (2 - frameMbsOnly)
	if separatePlanes == 0 && chromaFormat == 0 {
		cropUnitY = 2 - frameMbsOnly
	}
	info.Width = int((widthMbs+1)*16 - subW*(cropL+cropR))
	info.Height = int((heightUnits+1)*16*(2-frameMbsOnly) - cropUnitY*(cropT+cropB))

	vui, err := r.u(1)
	if err != nil || vui == 0 {
		return info, nil
	}
	info.NumUnitsInTick, info.TimeScale = r.vuiTiming()
	return info, nil
}

// vuiTiming skips to the VUI timing info. A truncated VUI gives zeros.
func (r *bitReader) vuiTiming() (uint32, uint32) {
	var err error
	if ar, _ := r.u(1); ar == 1 {
		if idc, _ := r.u(8); idc == 255 {
			r.skip(&err, r.skipU(32)) // sar width and height
		}
	}
	if overscan, _ := r.u(1); overscan == 1 {
		r.skip(&err, r.skipU(1))
	}
	if signal, _ := r.u(1); signal == 1 {
		r.skip(&err, r.skipU(4))
		if colour, _ := r.u(1); colour == 1 {
			r.skip(&err, r.skipU(24))
		}
	}
	if chromaLoc, _ := r.u(1); chromaLoc == 1 {
		r.skip(&err, r.skipUE, r.skipUE)
	}
	timing, e := r.u(1)
	if err != nil || e != nil || timing == 0 {
		return 0, 0
	}
	tick, err1 := r.u(32)
	scale, err2 := r.u(32)
	if err1 != nil || err2 != nil {
		return 0, 0
	}
	return tick, scale
}
