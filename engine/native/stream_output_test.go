package native

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/thesyncim/videoio/engine"
	"github.com/thesyncim/videoio/internal/h264"
)

func TestAnnexBOutput(t *testing.T) {
	var buf bytes.Buffer
	out, err := New(Config{}).OpenOutput(engine.OutputConfig{Format: "h264", Sink: &buf})
	if err != nil {
		t.Fatalf("OpenOutput: %v", err)
	}
	if _, err := out.AddStream(h264Params(h264.AVCCRecord(testSPS, testPPS))); err != nil {
		t.Fatalf("AddStream: %v", err)
	}
	if _, err := out.AddStream(h264Params(nil)); err == nil {
		t.Error("second stream accepted")
	}
	if err := out.WriteHeader(); err != nil {
		t.Fatalf("WriteHeader: %v", err)
	}

	// Length prefixed input comes out with start codes.
	avcc := append([]byte{0, 0, 0, byte(len(testIDR))}, testIDR...)
	if err := out.WritePacket(NewPacket(0, avcc, 0, 0, true)); err != nil {
		t.Fatalf("WritePacket: %v", err)
	}
	if err := out.WriteTrailer(); err != nil {
		t.Fatalf("WriteTrailer: %v", err)
	}

	want := h264.AnnexB(testSPS, testPPS, testIDR)
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("stream = %x, want %x", buf.Bytes(), want)
	}
}

func TestRawvideoFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.rgb")
	out, err := New(Config{}).OpenOutput(engine.OutputConfig{URL: path})
	if err != nil {
		t.Fatalf("OpenOutput: %v", err)
	}
	if _, err := out.AddStream(h264Params(nil)); err == nil {
		t.Error("h264 stream accepted by rawvideo output")
	}
	if _, err := out.AddStream(rawParams(1, 1)); err != nil {
		t.Fatalf("AddStream: %v", err)
	}
	if err := out.WriteHeader(); err != nil {
		t.Fatalf("WriteHeader: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := out.WritePacket(NewPacket(0, []byte{byte(i), 0, 0}, int64(i), int64(i), true)); err != nil {
			t.Fatalf("WritePacket: %v", err)
		}
	}
	if err := out.WriteTrailer(); err != nil {
		t.Fatalf("WriteTrailer: %v", err)
	}
	if err := out.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(b, []byte{0, 0, 0, 1, 0, 0, 2, 0, 0}) {
		t.Errorf("file = %v", b)
	}
}

func TestGuessFormat(t *testing.T) {
	tests := map[string]string{
		"mem://a":         "mem",
		"rtp://1.2.3.4:5": "rtp",
		"clip.h264":       "h264",
		"CLIP.264":        "h264",
		"frames.yuv":      "rawvideo",
		"video.mp4":       "",
	}
	for url, want := range tests {
		if got := guessFormat(url); got != want {
			t.Errorf("guessFormat(%q) = %q, want %q", url, got, want)
		}
	}
}
