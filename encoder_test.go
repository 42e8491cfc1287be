package videoio

import (
	"errors"
	"fmt"
	"testing"

	"github.com/thesyncim/videoio/engine"
	"github.com/thesyncim/videoio/engine/native"
)

func rawSettings(w, h int, pf engine.PixelFormat) EncoderSettings {
	s := DefaultEncoderSettings(w, h)
	s.Codec = "rawvideo"
	s.Fallback = engine.CodecRawVideo
	s.PixelFormat = pf
	s.FrameRate = engine.NewRational(25, 1)
	s.Options = nil
	return s
}

func solidFrame(w, h int, v byte) *Frame {
	f := NewFrame(h, w)
	for i := range f.Pix() {
		f.Pix()[i] = v
	}
	return f
}

// encodeToMemory encodes frames solid frames and returns the container
// location.
func encodeToMemory(t *testing.T, eng *native.Engine, frames int, pf engine.PixelFormat) Location {
	t.Helper()
	name := memName(t)
	t.Cleanup(func() { native.Remove(name) })
	loc := ParseLocation(native.URL(name))

	enc, err := NewEncoderBuilder(loc, rawSettings(16, 8, pf)).WithEngine(eng).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	frameTime := TimeFromNthOfASecond(25)
	ts := ZeroTime()
	for i := range frames {
		if err := enc.Encode(solidFrame(16, 8, byte(10*i)), ts); err != nil {
			t.Fatalf("Encode %d: %v", i, err)
		}
		ts = ts.AlignedWith(frameTime).Add()
	}
	if err := enc.Finish(); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if got := enc.FramesWritten(); got != uint64(frames) {
		t.Errorf("FramesWritten = %d, want %d", got, frames)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
	return loc
}

func TestEncoderKeepsEveryFrame(t *testing.T) {
	for _, delay := range []int{0, 3} {
		eng := native.New(native.Config{EncoderDelay: delay})
		t.Run(fmt.Sprintf("delay%d", delay), func(t *testing.T) {
			loc := encodeToMemory(t, eng, 10, engine.PixelFormatRGB24)
			n, err := native.PacketCount(loc.URL().Host)
			if err != nil {
				t.Fatal(err)
			}
			if n != 10 {
				t.Errorf("delay %d: %d packets stored, want 10", delay, n)
			}
		})
	}
}

func TestEncoderTimestamps(t *testing.T) {
	eng := native.New(native.Config{})
	loc := encodeToMemory(t, eng, 5, engine.PixelFormatYUV420P)

	r, err := NewReaderBuilder(loc).WithEngine(eng).Build()
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	for i := range 5 {
		p, err := r.Read(0)
		if err != nil {
			t.Fatal(err)
		}
		want := TimeFromUnits(int64(i), 25)
		if !p.PTS().Equal(want) {
			t.Errorf("packet %d pts = %v, want %v", i, p.PTS(), want)
		}
		if i == 0 && !p.IsKey() {
			t.Error("first packet is not a key frame")
		}
		p.Release()
	}
}

func TestEncoderRejectsWrongFrame(t *testing.T) {
	eng := native.New(native.Config{})
	name := memName(t)
	t.Cleanup(func() { native.Remove(name) })
	enc, err := NewEncoderBuilder(ParseLocation(native.URL(name)), rawSettings(16, 8, engine.PixelFormatRGB24)).
		WithEngine(eng).Build()
	if err != nil {
		t.Fatal(err)
	}
	defer enc.Close()
	if err := enc.Encode(NewFrame(4, 4), ZeroTime()); !errors.Is(err, ErrInvalidFrameFormat) {
		t.Errorf("Encode = %v, want ErrInvalidFrameFormat", err)
	}
}

func TestEncoderFinishOnce(t *testing.T) {
	eng := native.New(native.Config{})
	name := memName(t)
	t.Cleanup(func() { native.Remove(name) })
	enc, err := NewEncoderBuilder(ParseLocation(native.URL(name)), rawSettings(16, 8, engine.PixelFormatRGB24)).
		WithEngine(eng).Build()
	if err != nil {
		t.Fatal(err)
	}
	// Nothing was encoded, so there is no header and no trailer.
	if err := enc.Finish(); err != nil {
		t.Fatal(err)
	}
	if _, err := native.PacketCount(name); err == nil {
		t.Error("Finish without frames wrote a header")
	}
	if err := enc.Encode(solidFrame(16, 8, 1), ZeroTime()); err != nil {
		t.Fatal(err)
	}
	if err := enc.Finish(); err != nil {
		t.Fatal(err)
	}
	if err := enc.Finish(); err != nil {
		t.Errorf("second Finish: %v", err)
	}
	if err := enc.Encode(solidFrame(16, 8, 1), ZeroTime()); !errors.Is(err, ErrUninitializedCodec) {
		t.Errorf("Encode after Finish = %v, want ErrUninitializedCodec", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestEncoderSettingsPresets(t *testing.T) {
	s := PresetH264YUV420P(640, 480, true)
	if s.Options["tune"] != "zerolatency" {
		t.Errorf("realtime preset options = %v", s.Options)
	}
	if s.PixelFormat != engine.PixelFormatYUV420P || s.KeyFrameInterval != DefaultKeyFrameInterval {
		t.Errorf("preset = %+v", s)
	}
	c := PresetH264Custom(320, 240, engine.PixelFormatNV12, Options{"crf": "20"})
	if c.PixelFormat != engine.PixelFormatNV12 || c.Options["crf"] != "20" {
		t.Errorf("custom preset = %+v", c)
	}
}

// keyEngine records the key flag of every frame its encoders are fed.
type keyEngine struct {
	engine.Engine
	keys []bool
}

func (e *keyEngine) OpenEncoder(cfg engine.EncoderConfig) (engine.Encoder, error) {
	enc, err := e.Engine.OpenEncoder(cfg)
	if err != nil {
		return nil, err
	}
	return &keyEncoder{Encoder: enc, keys: &e.keys}, nil
}

type keyEncoder struct {
	engine.Encoder
	keys *[]bool
}

func (e *keyEncoder) Feed(f engine.Frame) error {
	if f != nil {
		*e.keys = append(*e.keys, f.Key())
	}
	return e.Encoder.Feed(f)
}

func TestEncoderKeyFrameInterval(t *testing.T) {
	tests := []struct {
		name     string
		interval uint64
		frames   int
		want     []int
	}{
		{"default", 0, 26, []int{0, 12, 24}},
		{"custom", 5, 12, []int{0, 5, 10}},
		{"every frame", 1, 3, []int{0, 1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := &keyEngine{Engine: native.New(native.Config{})}
			name := memName(t)
			t.Cleanup(func() { native.Remove(name) })

			s := rawSettings(16, 8, engine.PixelFormatRGB24)
			s.KeyFrameInterval = tt.interval
			enc, err := NewEncoderBuilder(ParseLocation(native.URL(name)), s).WithEngine(eng).Build()
			if err != nil {
				t.Fatalf("Build: %v", err)
			}
			defer enc.Close()
			frameTime := TimeFromNthOfASecond(25)
			ts := ZeroTime()
			for i := range tt.frames {
				if err := enc.Encode(solidFrame(16, 8, byte(i)), ts); err != nil {
					t.Fatalf("Encode %d: %v", i, err)
				}
				ts = ts.AlignedWith(frameTime).Add()
			}
			if err := enc.Finish(); err != nil {
				t.Fatal(err)
			}

			if len(eng.keys) != tt.frames {
				t.Fatalf("fed %d frames, want %d", len(eng.keys), tt.frames)
			}
			var got []int
			for i, key := range eng.keys {
				if key {
					got = append(got, i)
				}
			}
			if fmt.Sprint(got) != fmt.Sprint(tt.want) {
				t.Errorf("key frames at %v, want %v", got, tt.want)
			}
		})
	}
}
