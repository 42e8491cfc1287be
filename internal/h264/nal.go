// Package h264 holds the small amount of H.264 bitstream handling videoio
// needs: NAL unit framing, parameter sets, SPS parsing, access unit
// grouping, RTP packetization and SDP.
package h264

import (
	"bytes"
	"encoding/binary"
)

// NAL unit types
const (
	NALTypeSlice = 1
	NALTypeIDR   = 5
	NALTypeSEI   = 6
	NALTypeSPS   = 7
	NALTypePPS   = 8
	NALTypeAUD   = 9
	NALTypeSTAPA = 24 // Single-time aggregation packet
	NALTypeFUA   = 28 // Fragmentation Unit A
)

// NALType returns the type of a NAL unit, 0 for an empty unit.
func NALType(nal []byte) byte {
	if len(nal) == 0 {
		return 0
	}
	return nal[0] & 0x1f
}

// ExtraDataError describes malformed codec extradata.
type ExtraDataError struct {
	Reason string
}

func (e *ExtraDataError) Error() string { return "h264: invalid extradata: " + e.Reason }

func invalid(reason string) error { return &ExtraDataError{Reason: reason} }

// ParameterSets returns the SPS and PPS units of extradata in AVCC (first
// byte 1) or Annex B (first byte 0) form. The slices alias b.
func ParameterSets(b []byte) (sps []byte, pps [][]byte, err error) {
	if len(b) == 0 {
		return nil, nil, invalid("empty")
	}
	switch b[0] {
	case 0x00:
		return parameterSetsAnnexB(b)
	case 0x01:
		return parameterSetsAVCC(b)
	default:
		return nil, nil, invalid("unknown format")
	}
}

// parameterSetsAVCC reads an AVCDecoderConfigurationRecord with one SPS.
func parameterSetsAVCC(b []byte) ([]byte, [][]byte, error) {
	if len(b) <= 8 {
		return nil, nil, invalid("avcc record too short")
	}
	spsEnd := 8 + int(binary.BigEndian.Uint16(b[6:8]))
	if spsEnd > len(b) {
		return nil, nil, invalid("sps length exceeds record")
	}
	sps := b[8:spsEnd]

	rest := b[spsEnd:]
	if len(rest) <= 1 {
		return nil, nil, invalid("missing pps")
	}
	count := int(rest[0])
	rest = rest[1:]
	pps := make([][]byte, 0, count)
	for range count {
		if len(rest) < 2 {
			return nil, nil, invalid("truncated pps length")
		}
		n := int(binary.BigEndian.Uint16(rest))
		if len(rest)-2 < n {
			return nil, nil, invalid("pps length exceeds record")
		}
		pps = append(pps, rest[2:2+n])
		rest = rest[2+n:]
	}
	return sps, pps, nil
}

// parameterSetsAnnexB keeps the first SPS and every PPS.
func parameterSetsAnnexB(b []byte) ([]byte, [][]byte, error) {
	var (
		sps []byte
		pps [][]byte
	)
	for _, nal := range SplitAnnexB(b) {
		switch NALType(nal) {
		case NALTypeSPS:
			if sps == nil {
				sps = nal
			}
		case NALTypePPS:
			pps = append(pps, nal)
		}
	}
	if sps == nil {
		return nil, nil, invalid("no sps in annex b stream")
	}
	return sps, pps, nil
}

// SplitAnnexB returns the non-empty NAL units of an Annex B byte stream.
// Start codes are 0x000001 or 0x00000001.
func SplitAnnexB(data []byte) [][]byte {
	var nals [][]byte
	start := -1
	for i := 0; i+2 < len(data); i++ {
		if data[i] != 0 || data[i+1] != 0 || data[i+2] != 1 {
			continue
		}
		if start >= 0 {
			nals = appendNAL(nals, data[start:i])
		}
		start = i + 3
		i += 2
	}
	if start >= 0 && start < len(data) {
		nals = appendNAL(nals, data[start:])
	}
	return nals
}

// appendNAL drops the leading zero of a 4 byte start code, which ends up
// trailing the previous unit, and skips empty units.
func appendNAL(nals [][]byte, nal []byte) [][]byte {
	nal = bytes.TrimRight(nal, "\x00")
	if len(nal) == 0 {
		return nals
	}
	return append(nals, nal)
}

// AnnexB joins NAL units with 4 byte start codes.
func AnnexB(nals ...[]byte) []byte {
	n := 0
	for _, nal := range nals {
		n += 4 + len(nal)
	}
	out := make([]byte, 0, n)
	for _, nal := range nals {
		out = append(out, 0, 0, 0, 1)
		out = append(out, nal...)
	}
	return out
}

// AVCCRecord builds an AVCDecoderConfigurationRecord with 4 byte NAL
// lengths.
func AVCCRecord(sps []byte, pps ...[]byte) []byte {
	if len(sps) < 4 {
		return nil
	}
	out := []byte{0x01, sps[1], sps[2], sps[3], 0xff, 0xe1}
	out = binary.BigEndian.AppendUint16(out, uint16(len(sps)))
	out = append(out, sps...)
	out = append(out, byte(len(pps)))
	for _, p := range pps {
		out = binary.BigEndian.AppendUint16(out, uint16(len(p)))
		out = append(out, p...)
	}
	return out
}

// ContainsIDR reports whether an Annex B access unit carries an IDR slice.
func ContainsIDR(data []byte) bool {
	for _, nal := range SplitAnnexB(data) {
		if NALType(nal) == NALTypeIDR {
			return true
		}
	}
	return false
}

// SplitAccessUnit returns the NAL units of an access unit in either Annex B
// or 4 byte length-prefixed (AVCC) framing.
func SplitAccessUnit(data []byte) [][]byte {
	if bytes.HasPrefix(data, []byte{0, 0, 1}) || bytes.HasPrefix(data, []byte{0, 0, 0, 1}) {
		return SplitAnnexB(data)
	}
	var nals [][]byte
	for len(data) >= 4 {
		n := int(binary.BigEndian.Uint32(data))
		data = data[4:]
		if n > len(data) {
			break
		}
		if n > 0 {
			nals = append(nals, data[:n])
		}
		data = data[n:]
	}
	return nals
}
