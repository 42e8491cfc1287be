package h264

// IsAnnexB reports whether data starts with a start code followed by a
// valid H.264 NAL unit header.
func IsAnnexB(data []byte) bool {
	var off int
	switch {
	case len(data) >= 5 && data[0] == 0 && data[1] == 0 && data[2] == 0 && data[3] == 1:
		off = 4
	case len(data) >= 4 && data[0] == 0 && data[1] == 0 && data[2] == 1:
		off = 3
	default:
		return false
	}
	if data[off]&0x80 != 0 { // forbidden_zero_bit
		return false
	}
	t := data[off] & 0x1f
	return (t >= 1 && t <= 12) || (t >= 19 && t <= 21)
}

func isVCL(t byte) bool { return t >= NALTypeSlice && t <= NALTypeIDR }

// firstSlice reports whether a VCL NAL unit starts a new picture, i.e.
// first_mb_in_slice is zero. That ue(v) value is the single bit 1.
func firstSlice(nal []byte) bool {
	return len(nal) > 1 && nal[1]&0x80 != 0
}

// AccessUnits groups the NAL units of an elementary stream into access
// units. A unit ends before an AUD, SPS, PPS or SEI that follows a slice,
// and before a slice that starts a new picture.
func AccessUnits(nals [][]byte) [][][]byte {
	var (
		aus     [][][]byte
		cur     [][]byte
		haveVCL bool
	)
	for _, nal := range nals {
		t := NALType(nal)
		boundary := false
		switch {
		case t == NALTypeAUD, t == NALTypeSPS, t == NALTypePPS, t == NALTypeSEI:
			boundary = haveVCL
		case isVCL(t):
			boundary = haveVCL && firstSlice(nal)
		}
		if boundary {
			aus = append(aus, cur)
			cur, haveVCL = nil, false
		}
		cur = append(cur, nal)
		if isVCL(t) {
			haveVCL = true
		}
	}
	if len(cur) > 0 {
		aus = append(aus, cur)
	}
	return aus
}
