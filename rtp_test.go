package videoio

import (
	"bytes"
	"strings"
	"testing"

	"github.com/thesyncim/videoio/engine"
	"github.com/thesyncim/videoio/engine/native"
	"github.com/thesyncim/videoio/internal/h264"
)

// testAccessUnit returns an Annex B IDR slice of n payload bytes.
func testAccessUnit(n int) []byte {
	return h264.AnnexB(append([]byte{0x65}, bytes.Repeat([]byte{0x9a}, n)...))
}

func TestClassifyRTPBuf(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want RTPBufKind
	}{
		{"empty", nil, RTPBufKindRTP},
		{"one byte", []byte{0x80}, RTPBufKindRTP},
		{"rtp", []byte{0x80, 0x60, 0x00, 0x01}, RTPBufKindRTP},
		{"rtp marker", []byte{0x80, 0xe0, 0x00, 0x01}, RTPBufKindRTP},
		{"sender report", []byte{0x80, 200, 0x00, 0x06}, RTPBufKindRTCP},
		{"receiver report", []byte{0x80, 201, 0x00, 0x01}, RTPBufKindRTP},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyRTPBuf(tt.in)
			if got.Kind != tt.want {
				t.Errorf("kind = %s, want %s", got.Kind, tt.want)
			}
			if !bytes.Equal(got.Data, tt.in) {
				t.Errorf("data changed")
			}
		})
	}
}

func newTestRTPMuxer(t *testing.T, options Options) *RTPMuxer {
	t.Helper()
	params := native.NewVideoParameters(engine.CodecH264, 64, 48, engine.PixelFormatYUV420P, testAVCC())
	m, err := NewRTPMuxerBuilder().
		WithEngine(native.New(native.Config{})).
		WithOptions(options).
		WithStream(StreamInfo{Index: 0, Params: params, TimeBase: engine.NewRational(1, 90000)}).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func TestRTPMuxerPackets(t *testing.T) {
	m := newTestRTPMuxer(t, nil)
	if seq, ts := m.SeqAndTimestamp(); seq != 0 || ts != 0 {
		t.Errorf("SeqAndTimestamp before output = %d, %d", seq, ts)
	}

	tb := engine.NewRational(1, 90000)
	p := NewPacket(native.NewPacket(0, testAccessUnit(3000), 0, 0, true), tb)
	bufs, err := m.Mux(p)
	if err != nil {
		t.Fatalf("Mux: %v", err)
	}
	if len(bufs) < 2 {
		t.Fatalf("got %d buffers", len(bufs))
	}
	if bufs[0].Kind != RTPBufKindRTCP {
		t.Errorf("first buffer is %s, want the header sender report", bufs[0].Kind)
	}
	if _, err := bufs[0].SenderReport(); err != nil {
		t.Errorf("SenderReport: %v", err)
	}

	var last uint16
	var lastTS uint32
	for i, b := range bufs[1:] {
		if b.Kind != RTPBufKindRTP {
			t.Fatalf("buffer %d is %s", i+1, b.Kind)
		}
		h, err := b.Header()
		if err != nil {
			t.Fatal(err)
		}
		if i > 0 && h.SequenceNumber != last+1 {
			t.Errorf("sequence %d after %d", h.SequenceNumber, last)
		}
		last, lastTS = h.SequenceNumber, h.Timestamp
	}
	seq, ts := m.SeqAndTimestamp()
	if seq != last+1 || ts != lastTS {
		t.Errorf("SeqAndTimestamp = %d, %d, want %d, %d", seq, ts, last+1, lastTS)
	}

	p2 := NewPacket(native.NewPacket(0, testAccessUnit(100), 3000, 3000, false), tb)
	bufs, err = m.Mux(p2)
	if err != nil {
		t.Fatal(err)
	}
	if len(bufs) != 1 {
		t.Fatalf("small access unit gave %d buffers", len(bufs))
	}
	h, err := bufs[0].Header()
	if err != nil {
		t.Fatal(err)
	}
	if h.SequenceNumber != seq {
		t.Errorf("next sequence = %d, want %d", h.SequenceNumber, seq)
	}
	if h.Timestamp-lastTS != 3000 {
		t.Errorf("timestamp advanced by %d, want 3000", h.Timestamp-lastTS)
	}
	if !h.Marker {
		t.Error("last packet of an access unit has no marker")
	}
}

func TestRTPMuxerPacketizationMode(t *testing.T) {
	if got := newTestRTPMuxer(t, nil).PacketizationMode(); got != 1 {
		t.Errorf("default mode = %d, want 1", got)
	}
	m := newTestRTPMuxer(t, Options{"rtpflags": "h264_mode0"})
	if got := m.PacketizationMode(); got != 0 {
		t.Errorf("mode with h264_mode0 = %d, want 0", got)
	}
	s, err := m.SDP()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(s, "packetization-mode=0") {
		t.Errorf("sdp does not announce mode 0:\n%s", s)
	}
}

func TestRTPMuxerSessionDescription(t *testing.T) {
	m := newTestRTPMuxer(t, nil)
	desc, err := m.SessionDescription()
	if err != nil {
		t.Fatal(err)
	}
	if len(desc.MediaDescriptions) != 1 {
		t.Fatalf("%d media descriptions", len(desc.MediaDescriptions))
	}
	md := desc.MediaDescriptions[0]
	if md.MediaName.Media != "video" || len(md.MediaName.Formats) != 1 || md.MediaName.Formats[0] != "96" {
		t.Errorf("media = %+v", md.MediaName)
	}
	rtpmap, ok := md.Attribute("rtpmap")
	if !ok || rtpmap != "96 H264/90000" {
		t.Errorf("rtpmap = %q", rtpmap)
	}
	fmtp, _ := md.Attribute("fmtp")
	if !strings.Contains(fmtp, "sprop-parameter-sets=Z0LAHtoFB+Q=,aM48gA==") {
		t.Errorf("fmtp = %q", fmtp)
	}

	res := m.ParameterSetsH264()
	if len(res) != 1 || res[0].Err != nil || !bytes.Equal(res[0].SPS, testSPS) {
		t.Errorf("ParameterSetsH264 = %+v", res)
	}
}

func TestRTPMuxerFinish(t *testing.T) {
	m := newTestRTPMuxer(t, nil)
	if bufs, err := m.Finish(); err != nil || bufs != nil {
		t.Errorf("Finish before output = %v, %v", bufs, err)
	}
}
