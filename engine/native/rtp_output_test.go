package native

import (
	"bytes"
	"strings"
	"testing"

	"github.com/pion/rtcp"
	"github.com/pion/rtp"
	"github.com/pion/sdp/v3"

	"github.com/thesyncim/videoio/engine"
	"github.com/thesyncim/videoio/internal/h264"
)

var (
	testSPS = []byte{0x67, 0x42, 0xc0, 0x1e, 0xda}
	testPPS = []byte{0x68, 0xce, 0x3c, 0x80}
	testIDR = []byte{0x65, 0x88, 0x84, 0x21}
)

// packetRecorder keeps every Write as one packet.
type packetRecorder struct {
	packets [][]byte
}

func (r *packetRecorder) Write(b []byte) (int, error) {
	r.packets = append(r.packets, bytes.Clone(b))
	return len(b), nil
}

func h264Params(extra []byte) *CodecParameters {
	return NewVideoParameters(engine.CodecH264, 64, 48, engine.PixelFormatYUV420P, extra)
}

func openRTP(t *testing.T, options map[string]string, mtu int) (engine.Output, *packetRecorder) {
	t.Helper()
	rec := &packetRecorder{}
	out, err := New(Config{}).OpenOutput(engine.OutputConfig{
		URL:        "rtp://239.0.0.1:5004",
		Format:     "rtp",
		Options:    options,
		Sink:       rec,
		PacketSize: mtu,
	})
	if err != nil {
		t.Fatalf("OpenOutput: %v", err)
	}
	return out, rec
}

func TestRTPOutputPackets(t *testing.T) {
	out, rec := openRTP(t, map[string]string{"ssrc": "1234"}, 1024)
	if _, err := out.AddStream(h264Params(h264.AVCCRecord(testSPS, testPPS))); err != nil {
		t.Fatalf("AddStream: %v", err)
	}
	if tb := out.StreamTimeBase(0); tb != engine.NewRational(1, 90000) {
		t.Errorf("time base = %v", tb)
	}
	if err := out.WriteHeader(); err != nil {
		t.Fatalf("WriteHeader: %v", err)
	}
	if len(rec.packets) != 1 || rec.packets[0][1] != 200 {
		t.Fatalf("header wrote %d packets, want one sender report", len(rec.packets))
	}
	sr := new(rtcp.SenderReport)
	if err := sr.Unmarshal(rec.packets[0]); err != nil {
		t.Fatalf("sender report: %v", err)
	}
	if sr.SSRC != 1234 {
		t.Errorf("sender report ssrc = %d", sr.SSRC)
	}

	big := append([]byte{0x65}, bytes.Repeat([]byte{0xab}, 3000)...)
	p := NewPacket(0, h264.AnnexB(big), 3000, 3000, true)
	if err := out.WritePacket(p); err != nil {
		t.Fatalf("WritePacket: %v", err)
	}

	var pkts []*rtp.Packet
	for _, b := range rec.packets[1:] {
		if len(b) > 1024 {
			t.Errorf("packet of %d bytes exceeds packet size", len(b))
		}
		pkt := new(rtp.Packet)
		if err := pkt.Unmarshal(b); err != nil {
			t.Fatalf("rtp: %v", err)
		}
		pkts = append(pkts, pkt)
	}
	// SPS, PPS, then FU-A fragments of the IDR slice.
	if len(pkts) < 5 {
		t.Fatalf("got %d rtp packets", len(pkts))
	}
	if pkts[0].Payload[0]&0x1f != h264.NALTypeSPS || pkts[1].Payload[0]&0x1f != h264.NALTypePPS {
		t.Errorf("key frame not preceded by parameter sets")
	}
	for i, pkt := range pkts {
		if pkt.SSRC != 1234 || pkt.PayloadType != 96 {
			t.Errorf("packet %d ssrc=%d pt=%d", i, pkt.SSRC, pkt.PayloadType)
		}
		if pkt.Timestamp != pkts[0].Timestamp {
			t.Errorf("packet %d timestamp differs", i)
		}
		if i > 0 && pkt.SequenceNumber != pkts[i-1].SequenceNumber+1 {
			t.Errorf("packet %d sequence %d after %d", i, pkt.SequenceNumber, pkts[i-1].SequenceNumber)
		}
		if last := i == len(pkts)-1; pkt.Marker != last {
			t.Errorf("packet %d marker = %v", i, pkt.Marker)
		}
	}
}

func TestRTPOutputMode0(t *testing.T) {
	out, _ := openRTP(t, map[string]string{"rtpflags": "h264_mode0"}, 200)
	if _, err := out.AddStream(h264Params(nil)); err != nil {
		t.Fatalf("AddStream: %v", err)
	}
	if err := out.WriteHeader(); err != nil {
		t.Fatalf("WriteHeader: %v", err)
	}
	big := append([]byte{0x41}, bytes.Repeat([]byte{0xab}, 500)...)
	if err := out.WritePacket(NewPacket(0, h264.AnnexB(big), 0, 0, false)); err == nil {
		t.Error("mode 0 accepted a NAL unit larger than the packet size")
	}
	desc, err := out.SDP()
	if err != nil {
		t.Fatalf("SDP: %v", err)
	}
	if !strings.Contains(desc, "packetization-mode=0") {
		t.Errorf("sdp lacks mode 0:\n%s", desc)
	}
}

func TestRTPOutputSDP(t *testing.T) {
	out, _ := openRTP(t, nil, 0)
	if _, err := out.SDP(); err == nil {
		t.Error("SDP without streams succeeded")
	}
	if _, err := out.AddStream(h264Params(h264.AnnexB(testSPS, testPPS))); err != nil {
		t.Fatalf("AddStream: %v", err)
	}
	text, err := out.SDP()
	if err != nil {
		t.Fatalf("SDP: %v", err)
	}

	var desc sdp.SessionDescription
	if err := desc.UnmarshalString(text); err != nil {
		t.Fatalf("parse sdp: %v\n%s", err, text)
	}
	if len(desc.MediaDescriptions) != 1 {
		t.Fatalf("media sections = %d", len(desc.MediaDescriptions))
	}
	md := desc.MediaDescriptions[0]
	if md.MediaName.Media != "video" || md.MediaName.Port.Value != 5004 {
		t.Errorf("media = %s port %d", md.MediaName.Media, md.MediaName.Port.Value)
	}
	if desc.ConnectionInformation == nil || desc.ConnectionInformation.Address.Address != "239.0.0.1" {
		t.Errorf("connection = %+v", desc.ConnectionInformation)
	}
	rtpmap, _ := md.Attribute("rtpmap")
	if rtpmap != "96 H264/90000" {
		t.Errorf("rtpmap = %q", rtpmap)
	}
	fmtp, _ := md.Attribute("fmtp")
	for _, want := range []string{"packetization-mode=1", "sprop-parameter-sets=Z0LAHto=,aM48gA==", "profile-level-id=42C01E"} {
		if !strings.Contains(fmtp, want) {
			t.Errorf("fmtp %q lacks %q", fmtp, want)
		}
	}
}

func TestRTPOutputRejectsOtherCodecs(t *testing.T) {
	out, _ := openRTP(t, nil, 0)
	if _, err := out.AddStream(rawParams(2, 2)); err == nil {
		t.Error("rawvideo stream accepted")
	}
	if _, err := New(Config{}).OpenOutput(engine.OutputConfig{Format: "rtp"}); err == nil {
		t.Error("rtp output without a sink opened")
	}
}
