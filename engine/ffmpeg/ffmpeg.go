//go:build cgo && !noffmpeg

package ffmpeg

import (
	"fmt"
	"strings"
	"sync"

	"github.com/asticode/go-astiav"

	"github.com/thesyncim/videoio/engine"
)

// Name is the registry name of the engine.
const Name = "ffmpeg"

// Priority ranks the engine above the native engine.
const Priority = 100

func init() {
	engine.Register(Name, Priority, func() (engine.Engine, error) {
		return New(), nil
	})
}

// Engine implements engine.Engine on libavformat, libavcodec, libswscale and
// libavutil.
type Engine struct {
	mu  sync.RWMutex
	log func(engine.LogLevel, string)
}

var _ engine.Engine = (*Engine)(nil)

func New() *Engine { return &Engine{} }

func (e *Engine) Name() string { return Name }

// Init routes FFmpeg log output to cfg.Log. The FFmpeg log callback is
// process wide, so the last engine initialized wins.
func (e *Engine) Init(cfg engine.InitConfig) error {
	e.mu.Lock()
	e.log = cfg.Log
	e.mu.Unlock()

	if cfg.Log == nil {
		astiav.SetLogLevel(astiav.LogLevelQuiet)
		return nil
	}
	astiav.SetLogLevel(astiav.LogLevelInfo)
	astiav.SetLogCallback(func(_ astiav.Classer, l astiav.LogLevel, _, msg string) {
		msg = strings.TrimRight(msg, "\n")
		if msg == "" {
			return
		}
		e.logf(logLevel(l), "%s", msg)
	})
	return nil
}

func logLevel(l astiav.LogLevel) engine.LogLevel {
	switch {
	case l <= astiav.LogLevelFatal:
		return engine.LogLevelFatal
	case l <= astiav.LogLevelError:
		return engine.LogLevelError
	case l <= astiav.LogLevelWarning:
		return engine.LogLevelWarn
	case l <= astiav.LogLevelInfo:
		return engine.LogLevelInfo
	case l <= astiav.LogLevelDebug:
		return engine.LogLevelDebug
	default:
		return engine.LogLevelTrace
	}
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
	in, err := openInput(url, options)
	if err != nil {
		return nil, err
	}
	return in, nil
}

func (e *Engine) OpenOutput(cfg engine.OutputConfig) (engine.Output, error) {
	out, err := openOutput(cfg)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Engine) OpenDecoder(cfg engine.DecoderConfig) (engine.Decoder, error) {
	d, err := openDecoder(cfg)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (e *Engine) OpenEncoder(cfg engine.EncoderConfig) (engine.Encoder, error) {
	enc, err := openEncoder(cfg)
	if err != nil {
		return nil, err
	}
	return enc, nil
}

func (e *Engine) NewScaler(cfg engine.ScalerConfig) (engine.Scaler, error) {
	s, err := newScaler(cfg)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (e *Engine) NewFrame(width, height int, format engine.PixelFormat) (engine.Frame, error) {
	f, err := allocFrame(width, height, format)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (e *Engine) CreateHWDevice(t engine.HWDeviceType) (engine.HWDevice, error) {
	dev, err := createHWDevice(t)
	if err != nil {
		return nil, err
	}
	return dev, nil
}

// HWDeviceTypes lists the device types libavutil knows by name.
func (e *Engine) HWDeviceTypes() []engine.HWDeviceType {
	var out []engine.HWDeviceType
	for _, t := range engine.HWDeviceTypes() {
		if astiav.FindHardwareDeviceTypeByName(t.String()) != astiav.HardwareDeviceTypeNone {
			out = append(out, t)
		}
	}
	return out
}
