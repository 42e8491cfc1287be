package native

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/thesyncim/videoio/engine"
)

const patternScheme = "testsrc://"

// Pattern names a synthetic picture served by testsrc:// inputs.
type Pattern string

const (
	PatternBars         Pattern = "bars" // 75% color bars
	PatternGradient     Pattern = "gradient"
	PatternCheckerboard Pattern = "checkerboard"
	PatternNoise        Pattern = "noise"
	PatternMovingBox    Pattern = "box" // animated
)

// PatternURL builds a testsrc url serving frames pictures of width x height
// at rate frames per second.
func PatternURL(p Pattern, width, height, rate, frames int) string {
	return fmt.Sprintf("%s%s?size=%dx%d&rate=%d&frames=%d", patternScheme, p, width, height, rate, frames)
}

type patternConfig struct {
	pattern       Pattern
	width, height int
	rate          engine.Rational
	frames        int
}

func parsePatternURL(raw string) (patternConfig, error) {
	cfg := patternConfig{width: 320, height: 240, rate: engine.NewRational(25, 1), frames: 250}
	u, err := url.Parse(raw)
	if err != nil {
		return cfg, fmt.Errorf("native: %w", err)
	}
	cfg.pattern = Pattern(u.Host)
	switch cfg.pattern {
	case "":
		cfg.pattern = PatternBars
	case PatternBars, PatternGradient, PatternCheckerboard, PatternNoise, PatternMovingBox:
	default:
		return cfg, fmt.Errorf("%w: unknown test pattern %q", engine.ErrNotSupported, u.Host)
	}

	q := u.Query()
	if s := q.Get("size"); s != "" {
		w, h, ok := strings.Cut(s, "x")
		if cfg.width, err = strconv.Atoi(w); err != nil || !ok {
			return cfg, fmt.Errorf("native: bad size %q", s)
		}
		if cfg.height, err = strconv.Atoi(h); err != nil {
			return cfg, fmt.Errorf("native: bad size %q", s)
		}
	}
	if cfg.width < 2 || cfg.height < 2 || cfg.width%2 != 0 || cfg.height%2 != 0 {
		return cfg, fmt.Errorf("native: test pattern size %dx%d must be even", cfg.width, cfg.height)
	}
	if s := q.Get("rate"); s != "" {
		if cfg.rate, err = parseRate(s); err != nil {
			return cfg, fmt.Errorf("native: bad rate %q", s)
		}
	}
	if s := q.Get("frames"); s != "" {
		if cfg.frames, err = strconv.Atoi(s); err != nil || cfg.frames < 0 {
			return cfg, fmt.Errorf("native: bad frame count %q", s)
		}
	}
	return cfg, nil
}

// patternInput serves rawvideo yuv420p packets drawn on demand. Every
// packet is a key packet, so seeking is exact.
type patternInput struct {
	cfg    patternConfig
	tick   int64
	stream engine.Stream
	pos    int
	rng    uint64
}

func openPatternInput(raw string) (*patternInput, error) {
	cfg, err := parsePatternURL(raw)
	if err != nil {
		return nil, err
	}
	tick, ok := cfg.rate.Invert().Rescale(1, memTimeBase)
	if !ok || tick <= 0 {
		return nil, fmt.Errorf("native: frame rate %v out of range", cfg.rate)
	}
	return &patternInput{
		cfg:  cfg,
		tick: tick,
		stream: engine.Stream{
			TimeBase:  memTimeBase,
			FrameRate: cfg.rate,
			Duration:  int64(cfg.frames) * tick,
			Frames:    int64(cfg.frames),
			Params:    NewVideoParameters(engine.CodecRawVideo, cfg.width, cfg.height, engine.PixelFormatYUV420P, nil),
		},
		rng: 0x9e3779b97f4a7c15,
	}, nil
}

func (in *patternInput) Streams() []engine.Stream { return []engine.Stream{in.stream} }

func (in *patternInput) ReadPacket() (engine.Packet, error) {
	if in.pos >= in.cfg.frames {
		return nil, engine.ErrEOF
	}
	ts := int64(in.pos) * in.tick
	p := NewPacket(0, in.draw(in.pos), ts, ts, true)
	p.duration = in.tick
	in.pos++
	return p, nil
}

func (in *patternInput) Seek(minTS, ts, maxTS int64) error {
	if ts == math.MinInt64 {
		in.pos = 0
		return nil
	}
	us := engine.NewRational(1, 1000000)
	i := us.RescaleTS(max(ts, minTS), memTimeBase) / in.tick
	if i > int64(in.cfg.frames) {
		return fmt.Errorf("native: seek to %d past end of test pattern", ts)
	}
	in.pos = int(max(i, 0))
	return nil
}

func (in *patternInput) BestVideoStream() (int, error) { return 0, nil }

func (in *patternInput) Close() error { return nil }

var barColors = [8][3]uint8{
	{192, 192, 192},
	{192, 192, 0},
	{0, 192, 192},
	{0, 192, 0},
	{192, 0, 192},
	{192, 0, 0},
	{0, 0, 192},
	{16, 16, 16},
}

// draw renders picture n as packed yuv420p.
func (in *patternInput) draw(n int) []byte {
	w, h := in.cfg.width, in.cfg.height
	buf := make([]byte, engine.PixelFormatYUV420P.BufferSize(w, h))
	y := buf[:w*h]
	u := buf[w*h : w*h+w*h/4]
	v := buf[w*h+w*h/4:]
	for i := range u {
		u[i], v[i] = 128, 128
	}

	switch in.cfg.pattern {
	case PatternBars:
		bar := max(w/8, 1)
		for row := range h {
			for x := range w {
				c := barColors[min(x/bar, 7)]
				yy, uu, vv := rgbToYUV(c[0], c[1], c[2])
				y[row*w+x] = yy
				if x%2 == 0 && row%2 == 0 {
					i := (row/2)*(w/2) + x/2
					u[i], v[i] = uu, vv
				}
			}
		}
	case PatternGradient:
		for row := range h {
			for x := range w {
				y[row*w+x] = uint8(x * 255 / w)
			}
		}
	case PatternCheckerboard:
		const size = 32
		for row := range h {
			for x := range w {
				if (x/size+row/size)%2 == 0 {
					y[row*w+x] = 235
				} else {
					y[row*w+x] = 16
				}
			}
		}
	case PatternNoise:
		for i := range y {
			in.rng ^= in.rng << 13
			in.rng ^= in.rng >> 7
			in.rng ^= in.rng << 17
			y[i] = uint8(in.rng)
		}
	case PatternMovingBox:
		for i := range y {
			y[i] = 16
		}
		box := max(min(w, h)/4, 2)
		radius := float64(min(w, h)) / 4
		angle := float64(n) * 0.05
		bx := w/2 + int(radius*math.Cos(angle)) - box/2
		by := h/2 + int(radius*math.Sin(angle)) - box/2
		for row := max(by, 0); row < min(by+box, h); row++ {
			for x := max(bx, 0); x < min(bx+box, w); x++ {
				y[row*w+x] = 235
			}
		}
	}
	return buf
}
