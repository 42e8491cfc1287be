package videoio

import (
	"errors"
	"fmt"
	"iter"

	"github.com/hashicorp/go-multierror"

	"github.com/thesyncim/videoio/engine"
)

// DefaultDrainRetryLimit bounds every drain loop run by decoders and
// encoders.
const DefaultDrainRetryLimit = 100

// DecoderBuilder configures a Decoder.
type DecoderBuilder struct {
	source    Location
	options   Options
	resize    *Resize
	hwDevice  HWDeviceType
	threading *Threading
	drain     int
	eng       engine.Engine
}

// NewDecoderBuilder starts building a Decoder reading from source.
func NewDecoderBuilder(source Location) *DecoderBuilder {
	return &DecoderBuilder{source: source, drain: DefaultDrainRetryLimit}
}

// WithOptions sets demuxer options.
func (b *DecoderBuilder) WithOptions(o Options) *DecoderBuilder {
	b.options = o
	return b
}

// WithResize scales decoded frames.
func (b *DecoderBuilder) WithResize(r Resize) *DecoderBuilder {
	b.resize = &r
	return b
}

// WithHardwareAcceleration decodes on a hardware device.
func (b *DecoderBuilder) WithHardwareAcceleration(t HWDeviceType) *DecoderBuilder {
	b.hwDevice = t
	return b
}

func (b *DecoderBuilder) WithThreading(t Threading) *DecoderBuilder {
	b.threading = &t
	return b
}

// WithDrainRetryLimit bounds the drain loop run on Close.
func (b *DecoderBuilder) WithDrainRetryLimit(n int) *DecoderBuilder {
	if n > 0 {
		b.drain = n
	}
	return b
}

func (b *DecoderBuilder) WithEngine(e engine.Engine) *DecoderBuilder {
	b.eng = e
	return b
}

// Build opens the source and a decoder for its best video stream.
func (b *DecoderBuilder) Build() (*Decoder, error) {
	reader, err := NewReaderBuilder(b.source).
		WithOptions(b.options).
		WithEngine(b.eng).
		Build()
	if err != nil {
		return nil, err
	}
	idx, err := reader.BestVideoStreamIndex()
	if err != nil {
		reader.Close()
		return nil, err
	}
	split, err := NewDecoderSplit(reader, idx, DecoderSplitConfig{
		Resize:          b.resize,
		HWDevice:        b.hwDevice,
		Threading:       b.threading,
		DrainRetryLimit: b.drain,
	})
	if err != nil {
		reader.Close()
		return nil, err
	}
	return &Decoder{split: split, reader: reader, streamIndex: idx}, nil
}

// NewDecoder opens source and decodes its best video stream to RGB24.
func NewDecoder(source Location) (*Decoder, error) {
	return NewDecoderBuilder(source).Build()
}

// NewDecoderWithResize is NewDecoder with frames resized by r.
func NewDecoderWithResize(source Location, r Resize) (*Decoder, error) {
	return NewDecoderBuilder(source).WithResize(r).Build()
}

// DecodedFrame is a frame and the decoding timestamp it was produced at.
type DecodedFrame struct {
	Time  Time
	Frame *Frame
}

// Decoder reads packets of one stream and decodes them into RGB24 frames.
type Decoder struct {
	split       *DecoderSplit
	reader      *Reader
	streamIndex int
}

// Decode returns the next frame. Packets are read until the decoder outputs
// a frame or the reader fails, ErrReadExhausted at the end of the input.
func (d *Decoder) Decode() (Time, *Frame, error) {
	if !d.open() {
		return NoTime(Rational{}), nil, ErrUninitializedCodec
	}
	for {
		p, err := d.reader.Read(d.streamIndex)
		if err != nil {
			return NoTime(d.split.decoderTimeBase), nil, err
		}
		ts, f, err := d.split.Decode(p)
		p.Release()
		if err != nil || f != nil {
			return ts, f, err
		}
	}
}

// DecodeRaw is Decode without conversion to Frame.
func (d *Decoder) DecodeRaw() (*RawFrame, error) {
	if !d.open() {
		return nil, ErrUninitializedCodec
	}
	for {
		p, err := d.reader.Read(d.streamIndex)
		if err != nil {
			return nil, err
		}
		f, err := d.split.DecodeRaw(p)
		p.Release()
		if err != nil || f != nil {
			return f, err
		}
	}
}

// DecodeIter yields every frame of the stream including the frames still
// buffered in the decoder when the input ends. A failure is yielded once and
// ends the iteration.
func (d *Decoder) DecodeIter() iter.Seq2[DecodedFrame, error] {
	return func(yield func(DecodedFrame, error) bool) {
		for {
			ts, f, err := d.Decode()
			if errors.Is(err, ErrReadExhausted) {
				break
			}
			if err != nil {
				yield(DecodedFrame{}, err)
				return
			}
			if !yield(DecodedFrame{Time: ts, Frame: f}, nil) {
				return
			}
		}
		for {
			ts, f, err := d.split.Drain()
			if err != nil {
				yield(DecodedFrame{}, err)
				return
			}
			if f == nil {
				return
			}
			if !yield(DecodedFrame{Time: ts, Frame: f}, nil) {
				return
			}
		}
	}
}

// DecodeRawIter is DecodeIter for raw frames. The caller releases each
// frame.
func (d *Decoder) DecodeRawIter() iter.Seq2[*RawFrame, error] {
	return func(yield func(*RawFrame, error) bool) {
		for {
			f, err := d.DecodeRaw()
			if errors.Is(err, ErrReadExhausted) {
				break
			}
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(f, nil) {
				return
			}
		}
		for {
			f, err := d.split.DrainRaw()
			if err != nil {
				yield(nil, err)
				return
			}
			if f == nil {
				return
			}
			if !yield(f, nil) {
				return
			}
		}
	}
}

// open reports whether the decoder still owns its parts. Close and
// IntoParts take them away.
func (d *Decoder) open() bool { return d.split != nil && d.reader != nil }

// IntoParts hands over the decoder internals. The Decoder must not be used
// afterwards.
func (d *Decoder) IntoParts() (*DecoderSplit, *Reader, int) {
	split, reader := d.split, d.reader
	d.split, d.reader = nil, nil
	return split, reader, d.streamIndex
}

// StreamIndex returns the decoded stream.
func (d *Decoder) StreamIndex() int { return d.streamIndex }

// Size returns the decoded picture size before resizing.
func (d *Decoder) Size() (uint32, uint32) {
	if !d.open() {
		return 0, 0
	}
	return d.split.Size()
}

// SizeOut returns the size of frames returned by Decode.
func (d *Decoder) SizeOut() (uint32, uint32) {
	if !d.open() {
		return 0, 0
	}
	return d.split.SizeOut()
}

// FrameRate returns the average frame rate of the stream, 0 if unknown.
func (d *Decoder) FrameRate() float32 {
	s, err := d.stream()
	if err != nil || s.FrameRate.Den == 0 {
		return 0
	}
	return float32(s.FrameRate.Num) / float32(s.FrameRate.Den)
}

// TimeBase returns the time base of the stream.
func (d *Decoder) TimeBase() Rational {
	s, err := d.stream()
	if err != nil {
		return Rational{}
	}
	return s.TimeBase
}

// Duration returns the stream duration. The Time has no value when the
// container does not know it.
func (d *Decoder) Duration() (Time, error) {
	s, err := d.stream()
	if err != nil {
		return Time{}, err
	}
	return timeFromTS(s.Duration, s.TimeBase), nil
}

// Frames returns the frame count reported by the container, 0 if unknown.
func (d *Decoder) Frames() (uint64, error) {
	s, err := d.stream()
	if err != nil {
		return 0, err
	}
	if s.Frames < 0 {
		return 0, nil
	}
	return uint64(s.Frames), nil
}

func (d *Decoder) stream() (engine.Stream, error) {
	if !d.open() {
		return engine.Stream{}, ErrUninitializedCodec
	}
	return d.reader.stream(d.streamIndex)
}

// Close drains and releases the decoder and closes the reader.
func (d *Decoder) Close() error {
	var result *multierror.Error
	if d.split != nil {
		result = multierror.Append(result, d.split.Close())
		d.split = nil
	}
	if d.reader != nil {
		result = multierror.Append(result, d.reader.Close())
		d.reader = nil
	}
	return result.ErrorOrNil()
}

// DecoderSplitConfig configures a DecoderSplit.
type DecoderSplitConfig struct {
	// Resize scales output frames. Nil keeps the decoded size.
	Resize *Resize
	// HWDevice decodes on a hardware device. Zero decodes in software.
	HWDevice  HWDeviceType
	Threading *Threading
	// DrainRetryLimit bounds drain loops.
	DrainRetryLimit int
}

// DefaultDecoderSplitConfig returns a software decoder configuration without
// resizing.
func DefaultDecoderSplitConfig() DecoderSplitConfig {
	return DecoderSplitConfig{DrainRetryLimit: DefaultDrainRetryLimit}
}

// DecoderSplit decodes packets handed to it. It is the decoding half of a
// Decoder, for callers that demux themselves.
type DecoderSplit struct {
	decoder         engine.Decoder
	scaler          engine.Scaler
	hw              engine.HWDevice
	decoderTimeBase Rational

	width, height       uint32
	widthOut, heightOut uint32

	drainLimit int
	draining   bool
	closed     bool
}

// NewDecoderSplit opens a decoder for stream streamIndex of reader.
func NewDecoderSplit(reader *Reader, streamIndex int, cfg DecoderSplitConfig) (*DecoderSplit, error) {
	info, err := reader.StreamInfo(streamIndex)
	if err != nil {
		return nil, err
	}
	if info.Params == nil {
		return nil, ErrMissingCodecParameters
	}
	eng := reader.Engine()
	if cfg.DrainRetryLimit <= 0 {
		cfg.DrainRetryLimit = DefaultDrainRetryLimit
	}

	s := &DecoderSplit{drainLimit: cfg.DrainRetryLimit}
	if cfg.HWDevice != engine.HWDeviceNone {
		if s.hw, err = openHWDevice(eng, cfg.HWDevice); err != nil {
			return nil, err
		}
	}

	s.decoder, err = eng.OpenDecoder(engine.DecoderConfig{
		Params:    info.Params,
		TimeBase:  info.TimeBase,
		HWDevice:  s.hw,
		Threading: cfg.Threading,
	})
	if err != nil {
		s.release()
		return nil, backendErr(fmt.Sprintf("open %s decoder", info.Params.CodecID()), err)
	}
	s.decoderTimeBase = s.decoder.TimeBase()
	if !s.decoderTimeBase.Valid() {
		s.decoderTimeBase = info.TimeBase
	}

	pf := s.decoder.PixelFormat()
	w, h := s.decoder.Width(), s.decoder.Height()
	if pf.IsNone() || w <= 0 || h <= 0 {
		s.release()
		return nil, fmt.Errorf("%w: %dx%d %s", ErrMissingCodecParameters, w, h, pf)
	}
	s.width, s.height = uint32(w), uint32(h)
	s.widthOut, s.heightOut = s.width, s.height
	if cfg.Resize != nil {
		var ok bool
		s.widthOut, s.heightOut, ok = cfg.Resize.ComputeFor(s.width, s.height)
		if !ok {
			s.release()
			return nil, fmt.Errorf("%w: %v for %dx%d", ErrInvalidResizeParameters, *cfg.Resize, w, h)
		}
	}

	// Hardware frames are downloaded as NV12 before scaling.
	scalerIn := pf
	if s.hw != nil {
		scalerIn = engine.PixelFormatNV12
	}
	if scalerIn != engine.PixelFormatRGB24 || s.widthOut != s.width || s.heightOut != s.height {
		s.scaler, err = eng.NewScaler(engine.ScalerConfig{
			SrcWidth:  w,
			SrcHeight: h,
			SrcFormat: scalerIn,
			DstWidth:  int(s.widthOut),
			DstHeight: int(s.heightOut),
			DstFormat: engine.PixelFormatRGB24,
			Flags:     engine.ScaleFlagArea,
		})
		if err != nil {
			s.release()
			return nil, backendErr("create scaler", err)
		}
	}

	Logger().WithField("codec", info.Params.CodecID().String()).
		WithField("size", fmt.Sprintf("%dx%d", w, h)).
		WithField("size_out", fmt.Sprintf("%dx%d", s.widthOut, s.heightOut)).
		WithField("pixel_format", pf.String()).
		WithField("hw", s.hw != nil).
		Debug("decoder opened")
	return s, nil
}

// Decode decodes p into an RGB24 frame. A nil frame without error means the
// decoder needs more packets. The Time is the DTS of the packet that produced
// the frame, in the decoder time base.
func (s *DecoderSplit) Decode(p *Packet) (Time, *Frame, error) {
	raw, err := s.DecodeRaw(p)
	if err != nil || raw == nil {
		return NoTime(s.decoderTimeBase), nil, err
	}
	return s.toFrame(raw)
}

// DecodeRaw decodes p without conversion to Frame.
func (s *DecoderSplit) DecodeRaw(p *Packet) (*RawFrame, error) {
	if s.closed {
		return nil, ErrUninitializedCodec
	}
	p.rescaleTo(s.decoderTimeBase)
	if err := s.decoder.Feed(p.Inner()); err != nil {
		return nil, backendErr("send packet", err)
	}
	f, err := s.decoder.TryDrain()
	switch {
	case err == nil:
		return s.process(f)
	case errors.Is(err, engine.ErrAgain), errors.Is(err, engine.ErrEOF):
		return nil, nil
	default:
		return nil, backendErr("receive frame", err)
	}
}

// Drain signals the end of input and returns the frames still buffered in
// the decoder, one per call. A nil frame without error means the decoder is
// empty.
func (s *DecoderSplit) Drain() (Time, *Frame, error) {
	raw, err := s.DrainRaw()
	if err != nil || raw == nil {
		return NoTime(s.decoderTimeBase), nil, err
	}
	return s.toFrame(raw)
}

// DrainRaw is Drain without conversion to Frame.
func (s *DecoderSplit) DrainRaw() (*RawFrame, error) {
	if s.closed {
		return nil, nil
	}
	if !s.draining {
		s.draining = true
		if err := s.decoder.Feed(nil); err != nil {
			return nil, backendErr("send eof", err)
		}
	}
	for range s.drainLimit {
		f, err := s.decoder.TryDrain()
		switch {
		case err == nil:
			return s.process(f)
		case errors.Is(err, engine.ErrAgain):
			continue
		case errors.Is(err, engine.ErrEOF):
			return nil, nil
		default:
			return nil, backendErr("receive frame", err)
		}
	}
	return nil, nil
}

func (s *DecoderSplit) toFrame(raw *RawFrame) (Time, *Frame, error) {
	defer raw.Release()
	ts := raw.PacketDTS()
	f, err := frameFromRaw(raw)
	if err != nil {
		return NoTime(s.decoderTimeBase), nil, err
	}
	return ts, f, nil
}

// process downloads hardware frames and scales. Frame properties survive
// every step.
func (s *DecoderSplit) process(f engine.Frame) (*RawFrame, error) {
	if s.hw != nil && f.PixelFormat() == s.hw.SurfaceFormat() {
		host, err := s.hw.TransferFrame(f)
		if err != nil {
			f.Release()
			return nil, backendErr("transfer hardware frame", err)
		}
		f.CopyPropsTo(host)
		f.Release()
		f = host
	}
	if s.scaler != nil {
		scaled, err := s.scaler.Convert(f)
		if err != nil {
			f.Release()
			return nil, backendErr("scale frame", err)
		}
		f.CopyPropsTo(scaled)
		f.Release()
		f = scaled
	}
	return NewRawFrame(f, s.decoderTimeBase), nil
}

// Size returns the decoded picture size.
func (s *DecoderSplit) Size() (uint32, uint32) { return s.width, s.height }

// SizeOut returns the size of output frames.
func (s *DecoderSplit) SizeOut() (uint32, uint32) { return s.widthOut, s.heightOut }

// TimeBase returns the decoder time base.
func (s *DecoderSplit) TimeBase() Rational { return s.decoderTimeBase }

// Close flushes the decoder, dropping any remaining frames, and releases
// it. Flush errors are ignored.
func (s *DecoderSplit) Close() error {
	if s.closed {
		return nil
	}
	if !s.draining {
		s.draining = true
		if err := s.decoder.Feed(nil); err != nil {
			Logger().WithError(err).Debug("decoder flush failed")
		}
	}
	for range s.drainLimit {
		f, err := s.decoder.TryDrain()
		if err == nil {
			f.Release()
			continue
		}
		if errors.Is(err, engine.ErrAgain) {
			continue
		}
		break
	}
	return s.release()
}

func (s *DecoderSplit) release() error {
	s.closed = true
	var result *multierror.Error
	if s.scaler != nil {
		result = multierror.Append(result, backendErr("close scaler", s.scaler.Close()))
		s.scaler = nil
	}
	if s.decoder != nil {
		result = multierror.Append(result, backendErr("close decoder", s.decoder.Close()))
		s.decoder = nil
	}
	if s.hw != nil {
		result = multierror.Append(result, backendErr("close hardware device", s.hw.Close()))
		s.hw = nil
	}
	return result.ErrorOrNil()
}
