//go:build cgo && !noffmpeg

package ffmpeg

import (
	"errors"
	"fmt"

	"github.com/asticode/go-astiav"

	"github.com/thesyncim/videoio/engine"
)

func applyThreading(cc *astiav.CodecContext, t *engine.Threading) {
	if t == nil {
		return
	}
	cc.SetThreadCount(t.Count)
	if t.Kind == engine.ThreadingSlice {
		cc.SetThreadType(astiav.ThreadTypeSlice)
	} else {
		cc.SetThreadType(astiav.ThreadTypeFrame)
	}
}

type decoder struct {
	cc *astiav.CodecContext
	// pending holds a packet the codec refused with EAGAIN. It is sent
	// again once a frame has been drained.
	pending *astiav.Packet
	eof     bool
}

func openDecoder(cfg engine.DecoderConfig) (*decoder, error) {
	params, err := avParameters(cfg.Params)
	if err != nil {
		return nil, err
	}
	codec := astiav.FindDecoder(params.cp.CodecID())
	if codec == nil {
		return nil, fmt.Errorf("%w: %s decoder", engine.ErrUnknownCodec, cfg.Params.CodecID())
	}
	cc := astiav.AllocCodecContext(codec)
	if cc == nil {
		return nil, fmt.Errorf("ffmpeg: allocate %s decoder", codec.Name())
	}
	if err := params.cp.ToCodecContext(cc); err != nil {
		cc.Free()
		return nil, fmt.Errorf("ffmpeg: decoder parameters: %w", err)
	}
	if cfg.TimeBase.Valid() {
		cc.SetTimeBase(toAVRational(cfg.TimeBase))
	}
	applyThreading(cc, cfg.Threading)

	if cfg.HWDevice != nil {
		if err := attachHWDevice(cc, codec, cfg.HWDevice); err != nil {
			cc.Free()
			return nil, err
		}
	}
	if err := cc.Open(codec, nil); err != nil {
		cc.Free()
		return nil, fmt.Errorf("ffmpeg: open %s decoder: %w", codec.Name(), err)
	}
	return &decoder{cc: cc}, nil
}

func (d *decoder) Feed(p engine.Packet) error {
	if p == nil {
		d.eof = true
		if d.pending != nil {
			return nil
		}
		return codecErr(d.cc.SendPacket(nil))
	}
	pkt, free, err := avPacket(p)
	if err != nil {
		return err
	}
	defer free()
	err = d.cc.SendPacket(pkt)
	if errors.Is(err, astiav.ErrEagain) && d.pending == nil {
		d.pending = pkt.Clone()
		return nil
	}
	return codecErr(err)
}

func (d *decoder) TryDrain() (engine.Frame, error) {
	f := astiav.AllocFrame()
	err := d.cc.ReceiveFrame(f)
	if err != nil {
		f.Free()
		if errors.Is(err, astiav.ErrEagain) && d.pending != nil {
			if err := d.resend(); err != nil {
				return nil, err
			}
			return d.TryDrain()
		}
		return nil, codecErr(err)
	}
	if d.pending != nil {
		if err := d.resend(); err != nil && !errors.Is(err, engine.ErrAgain) {
			f.Free()
			return nil, err
		}
	}
	return &frame{f: f}, nil
}

// resend retries the pending packet, then the end of stream marker if
// input has ended.
func (d *decoder) resend() error {
	err := d.cc.SendPacket(d.pending)
	if errors.Is(err, astiav.ErrEagain) {
		return engine.ErrAgain
	}
	d.pending.Free()
	d.pending = nil
	if err != nil {
		return codecErr(err)
	}
	if d.eof {
		return codecErr(d.cc.SendPacket(nil))
	}
	return nil
}

func (d *decoder) TimeBase() engine.Rational       { return fromAVRational(d.cc.TimeBase()) }
func (d *decoder) Width() int                      { return d.cc.Width() }
func (d *decoder) Height() int                     { return d.cc.Height() }
func (d *decoder) PixelFormat() engine.PixelFormat { return fromAVPixelFormat(d.cc.PixelFormat()) }

func (d *decoder) Close() error {
	if d.pending != nil {
		d.pending.Free()
		d.pending = nil
	}
	if d.cc != nil {
		d.cc.Free()
		d.cc = nil
	}
	return nil
}

type encoder struct {
	cc      *astiav.CodecContext
	pending *frame
	eof     bool
}

// findEncoder tries the encoder name first, then any encoder of the fallback
// codec.
func findEncoder(cfg engine.EncoderConfig) (*astiav.Codec, error) {
	if cfg.Codec != "" {
		if c := astiav.FindEncoderByName(cfg.Codec); c != nil {
			return c, nil
		}
	}
	if id, ok := toAVCodecID(cfg.Fallback); ok {
		if c := astiav.FindEncoder(id); c != nil {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: encoder %q, fallback %s", engine.ErrUnknownCodec, cfg.Codec, cfg.Fallback)
}

func openEncoder(cfg engine.EncoderConfig) (*encoder, error) {
	codec, err := findEncoder(cfg)
	if err != nil {
		return nil, err
	}
	cc := astiav.AllocCodecContext(codec)
	if cc == nil {
		return nil, fmt.Errorf("ffmpeg: allocate %s encoder", codec.Name())
	}
	cc.SetWidth(cfg.Width)
	cc.SetHeight(cfg.Height)
	cc.SetPixelFormat(toAVPixelFormat(cfg.PixelFormat))
	if cfg.FrameRate.Valid() {
		cc.SetFramerate(toAVRational(cfg.FrameRate))
	}
	tb := cfg.TimeBase
	if !tb.Valid() {
		tb = cfg.FrameRate.Invert()
	}
	cc.SetTimeBase(toAVRational(tb))
	if cfg.GlobalHeader {
		cc.SetFlags(cc.Flags().Add(astiav.CodecContextFlagGlobalHeader))
	}
	applyThreading(cc, cfg.Threading)

	d, err := dictionary(cfg.Options)
	if err != nil {
		cc.Free()
		return nil, err
	}
	defer freeDictionary(d)
	if err := cc.Open(codec, d); err != nil {
		cc.Free()
		return nil, fmt.Errorf("ffmpeg: open %s encoder: %w", codec.Name(), err)
	}
	return &encoder{cc: cc}, nil
}

func (e *encoder) Feed(f engine.Frame) error {
	if f == nil {
		e.eof = true
		if e.pending != nil {
			return nil
		}
		return codecErr(e.cc.SendFrame(nil))
	}
	af, free, err := avFrame(f)
	if err != nil {
		return err
	}
	defer free()
	err = e.cc.SendFrame(af.f)
	if errors.Is(err, astiav.ErrEagain) && e.pending == nil {
		clone := af.f.Clone()
		if clone == nil {
			return fmt.Errorf("ffmpeg: clone frame")
		}
		e.pending = &frame{f: clone}
		return nil
	}
	return codecErr(err)
}

func (e *encoder) TryDrain() (engine.Packet, error) {
	pkt := astiav.AllocPacket()
	err := e.cc.ReceivePacket(pkt)
	if err != nil {
		pkt.Free()
		if errors.Is(err, astiav.ErrEagain) && e.pending != nil {
			if err := e.resend(); err != nil {
				return nil, err
			}
			return e.TryDrain()
		}
		return nil, codecErr(err)
	}
	if e.pending != nil {
		if err := e.resend(); err != nil && !errors.Is(err, engine.ErrAgain) {
			pkt.Free()
			return nil, err
		}
	}
	return &packet{p: pkt}, nil
}

func (e *encoder) resend() error {
	err := e.cc.SendFrame(e.pending.f)
	if errors.Is(err, astiav.ErrEagain) {
		return engine.ErrAgain
	}
	e.pending.Release()
	e.pending = nil
	if err != nil {
		return codecErr(err)
	}
	if e.eof {
		return codecErr(e.cc.SendFrame(nil))
	}
	return nil
}

func (e *encoder) TimeBase() engine.Rational       { return fromAVRational(e.cc.TimeBase()) }
func (e *encoder) Width() int                      { return e.cc.Width() }
func (e *encoder) Height() int                     { return e.cc.Height() }
func (e *encoder) PixelFormat() engine.PixelFormat { return fromAVPixelFormat(e.cc.PixelFormat()) }

func (e *encoder) Parameters() engine.CodecParameters {
	p := newCodecParameters()
	if err := p.cp.FromCodecContext(e.cc); err != nil {
		return nil
	}
	return p
}

func (e *encoder) Close() error {
	if e.pending != nil {
		e.pending.Release()
		e.pending = nil
	}
	if e.cc != nil {
		e.cc.Free()
		e.cc = nil
	}
	return nil
}
