package videoio

import (
	"strings"
	"testing"

	"github.com/thesyncim/videoio/engine"
	"github.com/thesyncim/videoio/engine/native"
)

// fixtureTick is one frame at 25 fps in the memory container time base.
const fixtureTick = 3600

func memName(t *testing.T) string {
	t.Helper()
	return strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())
}

// writeFixture stores frames RGB24 pictures of w x h in a memory container.
// Pixel values of frame i are all i. A second stream is added when extra is
// set, with one packet after every video packet.
func writeFixture(t *testing.T, eng *native.Engine, name string, frames, w, h int, extra bool) Location {
	t.Helper()
	out, err := eng.OpenOutput(engine.OutputConfig{URL: native.URL(name)})
	if err != nil {
		t.Fatalf("OpenOutput: %v", err)
	}
	if _, err := out.AddStream(native.NewVideoParameters(engine.CodecRawVideo, w, h, engine.PixelFormatRGB24, nil)); err != nil {
		t.Fatal(err)
	}
	if extra {
		if _, err := out.AddStream(native.NewVideoParameters(engine.CodecRawVideo, 2, 2, engine.PixelFormatRGB24, nil)); err != nil {
			t.Fatal(err)
		}
	}
	if err := out.WriteHeader(); err != nil {
		t.Fatal(err)
	}
	for i := range frames {
		data := make([]byte, w*h*3)
		for j := range data {
			data[j] = byte(i)
		}
		ts := int64(i * fixtureTick)
		p := native.NewPacket(0, data, ts, ts, true)
		p.SetDuration(fixtureTick)
		if err := out.WritePacket(p); err != nil {
			t.Fatal(err)
		}
		if extra {
			if err := out.WritePacket(native.NewPacket(1, make([]byte, 12), ts, ts, true)); err != nil {
				t.Fatal(err)
			}
		}
	}
	if err := out.WriteTrailer(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { native.Remove(name) })
	return ParseLocation(native.URL(name))
}

// H.264 parameter sets of a 320x240 baseline stream.
var (
	testSPS  = []byte{0x67, 0x42, 0xc0, 0x1e, 0xda, 0x05, 0x07, 0xe4}
	testPPS  = []byte{0x68, 0xce, 0x3c, 0x80}
	testPPS2 = []byte{0x68, 0xce, 0x06, 0xe2}
)

// avccRecord lays out an AVCDecoderConfigurationRecord by hand.
func avccRecord(sps []byte, pps ...[]byte) []byte {
	b := []byte{0x01, sps[1], sps[2], sps[3], 0xff, 0xe1, byte(len(sps) >> 8), byte(len(sps))}
	b = append(b, sps...)
	b = append(b, byte(len(pps)))
	for _, p := range pps {
		b = append(b, byte(len(p)>>8), byte(len(p)))
		b = append(b, p...)
	}
	return b
}

func testAVCC() []byte { return avccRecord(testSPS, testPPS) }
