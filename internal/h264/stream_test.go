package h264

import "testing"

func TestIsAnnexB(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want bool
	}{
		{"four byte start code", []byte{0, 0, 0, 1, 0x67, 0x42}, true},
		{"three byte start code", []byte{0, 0, 1, 0x65, 0x88}, true},
		{"aud", []byte{0, 0, 0, 1, 0x09, 0xf0}, true},
		{"avcc length prefix", []byte{0, 0, 0, 4, 0x67, 0x42}, false},
		{"forbidden bit", []byte{0, 0, 1, 0xe7, 0x42}, false},
		{"reserved type", []byte{0, 0, 1, 0x18, 0x00}, false},
		{"too short", []byte{0, 0, 1}, false},
		{"empty", nil, false},
	}
	for _, tt := range tests {
		if got := IsAnnexB(tt.data); got != tt.want {
			t.Errorf("%s: IsAnnexB = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestAccessUnits(t *testing.T) {
	sps := []byte{0x67, 0x42}
	pps := []byte{0x68, 0xce}
	idr := []byte{0x65, 0x88}
	p := []byte{0x41, 0x9a}
	pCont := []byte{0x41, 0x1a} // first_mb_in_slice != 0
	aud := []byte{0x09, 0xf0}

	aus := AccessUnits([][]byte{sps, pps, idr, p, pCont, aud, p, sps, pps, idr})
	want := [][]byte{
		{NALTypeSPS, NALTypePPS, NALTypeIDR},
		{NALTypeSlice, NALTypeSlice},
		{NALTypeAUD, NALTypeSlice},
		{NALTypeSPS, NALTypePPS, NALTypeIDR},
	}
	if len(aus) != len(want) {
		t.Fatalf("got %d access units, want %d", len(aus), len(want))
	}
	for i, au := range aus {
		var types []byte
		for _, nal := range au {
			types = append(types, NALType(nal))
		}
		if string(types) != string(want[i]) {
			t.Errorf("unit %d types = %v, want %v", i, types, want[i])
		}
	}

	if got := AccessUnits(nil); len(got) != 0 {
		t.Errorf("AccessUnits(nil) = %d units", len(got))
	}
}
