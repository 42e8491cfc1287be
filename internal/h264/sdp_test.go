package h264

import (
	"strings"
	"testing"
)

func TestHostPort(t *testing.T) {
	tests := []struct {
		url  string
		host string
		port int
	}{
		{"rtp://10.0.0.2:5004", "10.0.0.2", 5004},
		{"rtp://[::1]:6000?pkt_size=1200", "::1", 6000},
		{"rtp://example.com", "example.com", 0},
		{"", "", 0},
		{"/tmp/out.sdp", "", 0},
	}
	for _, tt := range tests {
		host, port := HostPort(tt.url)
		if host != tt.host || port != tt.port {
			t.Errorf("HostPort(%q) = %q, %d; want %q, %d", tt.url, host, port, tt.host, tt.port)
		}
	}
}

func TestSDPIPv6AndInvalidExtraData(t *testing.T) {
	s, err := SDP(SDPParams{Host: "::1", Port: 9, PayloadType: 97, Mode: 1})
	if err != nil {
		t.Fatalf("SDP: %v", err)
	}
	for _, want := range []string{"c=IN IP6 ::1", "m=video 9 RTP/AVP 97", "a=rtpmap:97 H264/90000", "a=fmtp:97 packetization-mode=1"} {
		if !strings.Contains(s, want) {
			t.Errorf("sdp lacks %q:\n%s", want, s)
		}
	}

	if _, err := SDP(SDPParams{ExtraData: []byte{0x02, 0x00}}); err == nil {
		t.Error("SDP accepted invalid extradata")
	}
}
