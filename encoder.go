package videoio

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/thesyncim/videoio/engine"
)

// DefaultKeyFrameInterval is the number of frames between forced key frames.
const DefaultKeyFrameInterval = 12

// EncoderSettings configures the codec side of an Encoder.
type EncoderSettings struct {
	Width       int                // Frame width
	Height      int                // Frame height
	PixelFormat engine.PixelFormat // Encoder input format; RGB frames are converted to it
	FrameRate   Rational           // Nominal frame rate

	Codec    string         // Encoder name tried first, e.g. "libx264"
	Fallback engine.CodecID // Codec used when Codec is unavailable
	Options  Options        // Private codec options

	Threading        *Threading // Nil lets the engine decide
	KeyFrameInterval uint64     // Every n-th frame is forced to be a key frame
	DrainRetryLimit  int        // Bound for the drain loop in Finish
}

// DefaultEncoderSettings returns H.264 settings for a width x height YUV420P
// stream at 30 fps.
func DefaultEncoderSettings(width, height int) EncoderSettings {
	return EncoderSettings{
		Width:            width,
		Height:           height,
		PixelFormat:      engine.PixelFormatYUV420P,
		FrameRate:        engine.NewRational(30, 1),
		Codec:            "libx264",
		Fallback:         engine.CodecH264,
		Options:          PresetH264(),
		KeyFrameInterval: DefaultKeyFrameInterval,
		DrainRetryLimit:  DefaultDrainRetryLimit,
	}
}

// PresetH264YUV420P returns H.264 settings, tuned for low latency when
// realtime is set.
func PresetH264YUV420P(width, height int, realtime bool) EncoderSettings {
	s := DefaultEncoderSettings(width, height)
	if realtime {
		s.Options = PresetH264Realtime()
	}
	return s
}

// PresetH264Custom returns H.264 settings with a custom pixel format and
// codec options.
func PresetH264Custom(width, height int, pixelFormat engine.PixelFormat, options Options) EncoderSettings {
	s := DefaultEncoderSettings(width, height)
	s.PixelFormat = pixelFormat
	s.Options = options
	return s
}

// EncoderBuilder configures an Encoder.
type EncoderBuilder struct {
	dest        Location
	settings    EncoderSettings
	options     Options
	format      string
	interleaved bool
	eng         engine.Engine
}

// NewEncoderBuilder starts building an Encoder writing to dest.
func NewEncoderBuilder(dest Location, settings EncoderSettings) *EncoderBuilder {
	return &EncoderBuilder{dest: dest, settings: settings}
}

// WithOptions sets muxer options, e.g. PresetFragmentedMOV().
func (b *EncoderBuilder) WithOptions(o Options) *EncoderBuilder {
	b.options = o
	return b
}

// WithFormat forces the container format.
func (b *EncoderBuilder) WithFormat(format string) *EncoderBuilder {
	b.format = format
	return b
}

// Interleaved lets the muxer reorder packets by DTS.
func (b *EncoderBuilder) Interleaved() *EncoderBuilder {
	b.interleaved = true
	return b
}

func (b *EncoderBuilder) WithEngine(e engine.Engine) *EncoderBuilder {
	b.eng = e
	return b
}

// Build opens the output and the encoder.
func (b *EncoderBuilder) Build() (*Encoder, error) {
	s := b.settings
	if s.KeyFrameInterval == 0 {
		s.KeyFrameInterval = DefaultKeyFrameInterval
	}
	if s.DrainRetryLimit <= 0 {
		s.DrainRetryLimit = DefaultDrainRetryLimit
	}
	if !s.FrameRate.Valid() {
		s.FrameRate = engine.NewRational(30, 1)
	}

	writer, err := NewWriterBuilder(b.dest).
		WithFormat(b.format).
		WithOptions(b.options).
		WithEngine(b.eng).
		Build()
	if err != nil {
		return nil, err
	}
	e := &Encoder{
		writer:      writer,
		eng:         writer.Engine(),
		settings:    s,
		interleaved: b.interleaved,
	}

	out := writer.Output()
	e.encoder, err = e.eng.OpenEncoder(engine.EncoderConfig{
		Codec:        s.Codec,
		Fallback:     s.Fallback,
		Width:        s.Width,
		Height:       s.Height,
		PixelFormat:  s.PixelFormat,
		FrameRate:    s.FrameRate,
		TimeBase:     TimeBase,
		GlobalHeader: out.NeedsGlobalHeader(),
		Options:      s.Options,
		Threading:    s.Threading,
	})
	if err != nil {
		e.release()
		return nil, backendErr(fmt.Sprintf("open encoder %s", s.Codec), err)
	}
	e.encoderTimeBase = e.encoder.TimeBase()
	if !e.encoderTimeBase.Valid() {
		e.encoderTimeBase = TimeBase
	}

	if e.streamIndex, err = out.AddEncoderStream(e.encoder); err != nil {
		e.release()
		return nil, backendErr("add stream", err)
	}

	if s.PixelFormat != engine.PixelFormatRGB24 {
		e.scaler, err = e.eng.NewScaler(engine.ScalerConfig{
			SrcWidth:  s.Width,
			SrcHeight: s.Height,
			SrcFormat: engine.PixelFormatRGB24,
			DstWidth:  s.Width,
			DstHeight: s.Height,
			DstFormat: s.PixelFormat,
		})
		if err != nil {
			e.release()
			return nil, backendErr("create scaler", err)
		}
	}

	Logger().WithField("dest", b.dest.String()).
		WithField("codec", s.Codec).
		WithField("size", fmt.Sprintf("%dx%d", s.Width, s.Height)).
		WithField("pixel_format", s.PixelFormat.String()).
		Debug("encoder opened")
	return e, nil
}

// NewEncoder opens dest and an encoder configured by settings.
func NewEncoder(dest Location, settings EncoderSettings) (*Encoder, error) {
	return NewEncoderBuilder(dest, settings).Build()
}

// Encoder encodes RGB24 frames and muxes the packets into a file.
type Encoder struct {
	writer          *Writer
	eng             engine.Engine
	encoder         engine.Encoder
	scaler          engine.Scaler
	settings        EncoderSettings
	encoderTimeBase Rational
	streamIndex     int
	interleaved     bool

	framesSent     uint64
	packetsWritten uint64

	headerWritten  bool
	trailerWritten bool
	closed         bool
}

// Encode encodes one frame presented at ts.
func (e *Encoder) Encode(frame *Frame, ts Time) error {
	h, w, c := frame.Dim()
	if h != e.settings.Height || w != e.settings.Width || c != frameChannels {
		return fmt.Errorf("%w: got %dx%dx%d, want %dx%dx3", ErrInvalidFrameFormat,
			h, w, c, e.settings.Height, e.settings.Width)
	}
	if e.closed {
		return ErrUninitializedCodec
	}
	raw, err := rawFromFrame(e.eng, frame, e.encoderTimeBase)
	if err != nil {
		return err
	}
	defer raw.Release()
	raw.SetPTS(ts)
	return e.EncodeRaw(raw)
}

// EncodeRaw encodes an RGB24 engine frame. Its PTS is used as presentation
// time.
func (e *Encoder) EncodeRaw(raw *RawFrame) error {
	if raw.Width() != e.settings.Width || raw.Height() != e.settings.Height ||
		raw.PixelFormat() != engine.PixelFormatRGB24 {
		return fmt.Errorf("%w: got %dx%d %s, want %dx%d rgb24", ErrInvalidFrameFormat,
			raw.Width(), raw.Height(), raw.PixelFormat(), e.settings.Width, e.settings.Height)
	}
	if e.closed || e.trailerWritten {
		return ErrUninitializedCodec
	}
	if !e.headerWritten {
		if _, err := writeHeader[struct{}](e.writer); err != nil {
			return err
		}
		e.headerWritten = true
	}

	pts := raw.PTS().Rescale(e.encoderTimeBase).ts()
	frame := raw.Inner()
	if e.scaler != nil {
		scaled, err := e.scaler.Convert(frame)
		if err != nil {
			return backendErr("scale frame", err)
		}
		defer scaled.Release()
		frame = scaled
	}
	frame.SetPTS(pts)
	frame.SetKeyFrame(e.framesSent%e.settings.KeyFrameInterval == 0)
	e.framesSent++

	if err := e.encoder.Feed(frame); err != nil {
		return backendErr("send frame", err)
	}
	p, err := e.encoder.TryDrain()
	switch {
	case err == nil:
		return e.writePacket(p)
	case errors.Is(err, engine.ErrAgain), errors.Is(err, engine.ErrEOF):
		return nil
	default:
		return backendErr("receive packet", err)
	}
}

func (e *Encoder) writePacket(p engine.Packet) error {
	pkt := NewPacket(p, e.encoderTimeBase)
	defer pkt.Release()

	out := e.writer.Output()
	pkt.SetStreamIndex(e.streamIndex)
	p.SetPosition(-1)
	pkt.rescaleTo(out.StreamTimeBase(e.streamIndex))

	var err error
	if e.interleaved {
		_, err = writeInterleavedPacket[struct{}](e.writer, pkt)
	} else {
		_, err = writePacket[struct{}](e.writer, pkt)
	}
	if err != nil {
		return err
	}
	e.packetsWritten++
	return nil
}

// Finish flushes the encoder and writes the trailer. Calling it again, or
// before anything was encoded, does nothing.
func (e *Encoder) Finish() error {
	if !e.headerWritten || e.trailerWritten {
		return nil
	}
	e.trailerWritten = true

	if err := e.encoder.Feed(nil); err != nil {
		return backendErr("send eof", err)
	}
	for range e.settings.DrainRetryLimit {
		p, err := e.encoder.TryDrain()
		if errors.Is(err, engine.ErrAgain) {
			continue
		}
		if err != nil {
			break
		}
		if err := e.writePacket(p); err != nil {
			return err
		}
	}
	_, err := writeTrailer[struct{}](e.writer)
	return err
}

// TimeBase returns the encoder time base.
func (e *Encoder) TimeBase() Rational { return e.encoderTimeBase }

// FramesWritten returns the number of packets handed to the muxer.
func (e *Encoder) FramesWritten() uint64 { return e.packetsWritten }

// Close finishes the stream if needed and releases everything. Finish
// errors are logged rather than returned.
func (e *Encoder) Close() error {
	if e.closed {
		return nil
	}
	if err := e.Finish(); err != nil {
		Logger().WithError(err).Warn("encoder finish on close failed")
	}
	return e.release()
}

func (e *Encoder) release() error {
	e.closed = true
	var result *multierror.Error
	if e.scaler != nil {
		result = multierror.Append(result, backendErr("close scaler", e.scaler.Close()))
		e.scaler = nil
	}
	if e.encoder != nil {
		result = multierror.Append(result, backendErr("close encoder", e.encoder.Close()))
		e.encoder = nil
	}
	if e.writer != nil {
		result = multierror.Append(result, e.writer.Close())
		e.writer = nil
	}
	return result.ErrorOrNil()
}
