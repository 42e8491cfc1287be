// Package native is a pure Go engine. It keeps containers in memory, draws
// test patterns, reads and writes Annex B byte streams, writes raw
// pictures, packetizes H.264 into RTP, scales in software and encodes H.264
// through the libmedia_h264 shim when that library is installed.
//
// The engine registers itself as "native" with a low priority, so it is
// used when no FFmpeg engine is available.
package native

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/thesyncim/videoio/engine"
)

// Name is the registry name of the engine.
const Name = "native"

// Priority ranks the engine below engines backed by FFmpeg.
const Priority = 10

func init() {
	engine.Register(Name, Priority, func() (engine.Engine, error) {
		return New(Config{}), nil
	})
}

// Config tunes the engine.
type Config struct {
	// EncoderDelay is the number of frames rawvideo encoders hold back before
	// emitting packets, mimicking codecs with look-ahead.
	EncoderDelay int
	// DecoderDelay is the same for rawvideo decoders.
	DecoderDelay int
	// RTPPayloadType is used for RTP output. Zero selects 96.
	RTPPayloadType uint8
}

// Engine implements engine.Engine without cgo.
type Engine struct {
	cfg Config

	mu  sync.RWMutex
	log func(engine.LogLevel, string)
}

var _ engine.Engine = (*Engine)(nil)

// New returns an engine configured by cfg.
func New(cfg Config) *Engine {
	if cfg.RTPPayloadType == 0 {
		cfg.RTPPayloadType = 96
	}
	return &Engine{cfg: cfg}
}

func (e *Engine) Name() string { return Name }

func (e *Engine) Init(cfg engine.InitConfig) error {
	e.mu.Lock()
	e.log = cfg.Log
	e.mu.Unlock()
	e.logf(engine.LogLevelDebug, "native engine ready, h264 shim available: %v", h264Available())
	return nil
}

func (e *Engine) logf(level engine.LogLevel, format string, args ...any) {
	e.mu.RLock()
	log := e.log
	e.mu.RUnlock()
	if log != nil {
		log(level, fmt.Sprintf(format, args...))
	}
}

func (e *Engine) OpenInput(url string, options map[string]string) (engine.Input, error) {
	if name, ok := strings.CutPrefix(url, memScheme); ok {
		c, err := lookupContainer(name)
		if err != nil {
			return nil, err
		}
		e.logf(engine.LogLevelDebug, "opened memory input %q with %d streams", name, len(c.streams))
		return newMemInput(c), nil
	}
	if strings.HasPrefix(url, patternScheme) {
		in, err := openPatternInput(url)
		if err != nil {
			return nil, err
		}
		e.logf(engine.LogLevelDebug, "opened %s pattern, %d frames", in.cfg.pattern, in.cfg.frames)
		return in, nil
	}
	if options["f"] != "h264" && guessFormat(url) != "h264" {
		return nil, fmt.Errorf("%w: native engine reads %s and %s urls and H.264 elementary streams, got %q",
			engine.ErrNotSupported, memScheme, patternScheme, url)
	}
	c, err := openElementaryInput(strings.TrimPrefix(url, "file://"), options)
	if err != nil {
		return nil, err
	}
	e.logf(engine.LogLevelDebug, "opened %s: %d access units, %dx%d at %v fps", url, len(c.packets),
		c.streams[0].Params.Width(), c.streams[0].Params.Height(), c.streams[0].FrameRate)
	return newMemInput(c), nil
}

func (e *Engine) OpenOutput(cfg engine.OutputConfig) (engine.Output, error) {
	format := cfg.Format
	if format == "" {
		format = guessFormat(cfg.URL)
	}
	switch format {
	case "mem":
		name := strings.TrimPrefix(cfg.URL, memScheme)
		if name == "" {
			return nil, fmt.Errorf("%w: memory output needs a %s url", engine.ErrNotSupported, memScheme)
		}
		return newMemOutput(name), nil
	case "rtp":
		if cfg.Sink == nil {
			return nil, fmt.Errorf("%w: rtp output needs a sink", engine.ErrNotSupported)
		}
		return newRTPOutput(e, cfg)
	case "h264", "rawvideo":
		return newStreamOutput(format, cfg)
	default:
		return nil, fmt.Errorf("%w: output format %q", engine.ErrNotSupported, format)
	}
}

func guessFormat(url string) string {
	if strings.HasPrefix(url, memScheme) {
		return "mem"
	}
	if strings.HasPrefix(url, "rtp://") {
		return "rtp"
	}
	switch strings.ToLower(filepath.Ext(url)) {
	case ".h264", ".264":
		return "h264"
	case ".yuv", ".rgb", ".raw":
		return "rawvideo"
	}
	return ""
}

func (e *Engine) OpenDecoder(cfg engine.DecoderConfig) (engine.Decoder, error) {
	if cfg.HWDevice != nil {
		return nil, fmt.Errorf("%w: hardware decoding", engine.ErrNotSupported)
	}
	if cfg.Params == nil {
		return nil, fmt.Errorf("%w: missing codec parameters", engine.ErrUnknownCodec)
	}
	switch cfg.Params.CodecID() {
	case engine.CodecRawVideo:
		return newRawDecoder(cfg, e.cfg.DecoderDelay), nil
	case engine.CodecH264:
		return newH264Decoder(cfg)
	default:
		return nil, fmt.Errorf("%w: %s decoder", engine.ErrUnknownCodec, cfg.Params.CodecID())
	}
}

func (e *Engine) OpenEncoder(cfg engine.EncoderConfig) (engine.Encoder, error) {
	codec := encoderCodec(cfg.Codec)
	if codec == engine.CodecNone {
		codec = cfg.Fallback
	}
	switch codec {
	case engine.CodecRawVideo:
		return newRawEncoder(cfg, e.cfg.EncoderDelay), nil
	case engine.CodecH264:
		return newH264Encoder(cfg)
	default:
		return nil, fmt.Errorf("%w: encoder %q", engine.ErrUnknownCodec, cfg.Codec)
	}
}

// encoderCodec maps encoder names to the codec the engine implements them
// with.
func encoderCodec(name string) engine.CodecID {
	switch name {
	case "rawvideo":
		return engine.CodecRawVideo
	case "libx264", "h264", "libopenh264":
		if h264Available() {
			return engine.CodecH264
		}
	}
	return engine.CodecNone
}

func (e *Engine) NewScaler(cfg engine.ScalerConfig) (engine.Scaler, error) {
	return newScaler(cfg)
}

func (e *Engine) NewFrame(width, height int, format engine.PixelFormat) (engine.Frame, error) {
	f, err := NewFrame(width, height, format)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (e *Engine) CreateHWDevice(t engine.HWDeviceType) (engine.HWDevice, error) {
	return nil, fmt.Errorf("%w: %s device", engine.ErrNotSupported, t)
}

// HWDeviceTypes returns nil; the native engine decodes in software only.
func (e *Engine) HWDeviceTypes() []engine.HWDeviceType { return nil }
