package videoio

import (
	"net/url"
	"testing"
)

func TestParseLocation(t *testing.T) {
	tests := []struct {
		in      string
		network bool
		str     string
		ext     string
	}{
		{"video.mp4", false, "video.mp4", "mp4"},
		{"/tmp/out.MKV", false, "/tmp/out.MKV", "mkv"},
		{"file:///tmp/a.mov", false, "/tmp/a.mov", "mov"},
		{"rtsp://camera.local:554/stream", true, "rtsp://camera.local:554/stream", ""},
		{"rtmp://localhost/live/key", true, "rtmp://localhost/live/key", ""},
		{"https://example.com/v/clip.mp4", true, "https://example.com/v/clip.mp4", "mp4"},
		{`C://video.mp4`, false, `C://video.mp4`, "mp4"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			l := ParseLocation(tt.in)
			if l.IsNetwork() != tt.network {
				t.Errorf("IsNetwork() = %v, want %v", l.IsNetwork(), tt.network)
			}
			if l.String() != tt.str {
				t.Errorf("String() = %q, want %q", l.String(), tt.str)
			}
			if l.Ext() != tt.ext {
				t.Errorf("Ext() = %q, want %q", l.Ext(), tt.ext)
			}
		})
	}
}

func TestNetworkLocation(t *testing.T) {
	u, _ := url.Parse("rtsp://10.0.0.1/live")
	l := NetworkLocation(u)
	if !l.IsNetwork() || l.URL() != u || l.Path() != "/live" {
		t.Errorf("NetworkLocation = %+v", l)
	}
	if FileLocation("a.mp4").URL() != nil {
		t.Error("file location has URL")
	}
}
