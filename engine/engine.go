// Package engine defines the capability contract between videoio pipelines
// and the codec/container engine that does the actual work.
//
// Decoders and encoders follow a feed / try-drain protocol: Feed hands one
// unit of input to the codec, TryDrain returns one unit of output or ErrAgain
// when more input is needed, and ErrEOF once a codec that was fed nil has been
// emptied. Retry policy belongs to the caller.
package engine

import "io"

// Engine opens inputs, outputs, codecs and scalers.
type Engine interface {
	Name() string

	// Init performs process-wide setup. It is called once by videoio.Init.
	Init(cfg InitConfig) error

	OpenInput(url string, options map[string]string) (Input, error)
	OpenOutput(cfg OutputConfig) (Output, error)
	OpenDecoder(cfg DecoderConfig) (Decoder, error)
	OpenEncoder(cfg EncoderConfig) (Encoder, error)
	NewScaler(cfg ScalerConfig) (Scaler, error)

	// NewFrame allocates an empty frame with buffers for the given layout.
	NewFrame(width, height int, format PixelFormat) (Frame, error)

	CreateHWDevice(t HWDeviceType) (HWDevice, error)
	// HWDeviceTypes lists the device types the engine was built with.
	HWDeviceTypes() []HWDeviceType
}

// InitConfig carries process-wide settings.
type InitConfig struct {
	// Log receives engine log lines. Nil silences the engine.
	Log func(level LogLevel, msg string)
}

// Stream describes one stream of an opened input or output.
type Stream struct {
	Index     int
	TimeBase  Rational
	FrameRate Rational
	// Duration in TimeBase ticks, NoPTS when unknown.
	Duration int64
	// Frames is the frame count reported by the container, 0 when unknown.
	Frames int64
	Params CodecParameters
}

// CodecParameters is the engine-owned description of an encoded stream.
type CodecParameters interface {
	MediaType() MediaType
	CodecID() CodecID
	Width() int
	Height() int
	PixelFormat() PixelFormat
	ExtraData() []byte
}

// Input is an opened demuxer.
type Input interface {
	Streams() []Stream
	// ReadPacket returns the next packet of any stream, ErrEOF at the end.
	ReadPacket() (Packet, error)
	// Seek moves to ts, accepting any position in [min, max]. Units are
	// microseconds.
	Seek(min, ts, max int64) error
	BestVideoStream() (int, error)
	Close() error
}

// OutputConfig describes a muxing destination.
type OutputConfig struct {
	// URL is the file path or network URL. Ignored when Sink is set.
	URL string
	// Format forces a container format. Empty guesses from URL.
	Format  string
	Options map[string]string
	// Sink receives muxed bytes instead of URL.
	Sink io.Writer
	// PacketSize, when positive, makes each Sink write a single packet no
	// larger than PacketSize bytes.
	PacketSize int
}

// Output is an opened muxer.
type Output interface {
	AddStream(params CodecParameters) (int, error)
	AddEncoderStream(enc Encoder) (int, error)
	// NeedsGlobalHeader reports whether the format wants codec headers out of
	// band rather than in the bitstream.
	NeedsGlobalHeader() bool
	StreamCount() int
	// StreamTimeBase may change when the header is written.
	StreamTimeBase(index int) Rational
	StreamParameters(index int) CodecParameters
	WriteHeader() error
	WritePacket(p Packet) error
	WriteInterleavedPacket(p Packet) error
	WriteTrailer() error
	// Flush pushes buffered bytes to the sink.
	Flush() error
	SDP() (string, error)
	Close() error
}

// DecoderConfig opens a decoder for a demuxed stream.
type DecoderConfig struct {
	Params    CodecParameters
	TimeBase  Rational
	HWDevice  HWDevice
	Threading *Threading
}

// Decoder turns packets into frames.
type Decoder interface {
	// Feed queues one packet. A nil packet signals end of stream. The caller
	// keeps ownership of p.
	Feed(p Packet) error
	// TryDrain returns one frame, ErrAgain or ErrEOF.
	TryDrain() (Frame, error)
	TimeBase() Rational
	Width() int
	Height() int
	PixelFormat() PixelFormat
	Close() error
}

// EncoderConfig opens an encoder.
type EncoderConfig struct {
	// Codec is tried by name first.
	Codec string
	// Fallback is used when Codec is not available.
	Fallback     CodecID
	Width        int
	Height       int
	PixelFormat  PixelFormat
	FrameRate    Rational
	TimeBase     Rational
	GlobalHeader bool
	Options      map[string]string
	Threading    *Threading
}

// Encoder turns frames into packets.
type Encoder interface {
	// Feed queues one frame. A nil frame signals end of stream. The caller
	// keeps ownership of f.
	Feed(f Frame) error
	// TryDrain returns one packet, ErrAgain or ErrEOF.
	TryDrain() (Packet, error)
	TimeBase() Rational
	Width() int
	Height() int
	PixelFormat() PixelFormat
	Parameters() CodecParameters
	Close() error
}

// ScalerConfig describes a pixel format and size conversion.
type ScalerConfig struct {
	SrcWidth, SrcHeight int
	SrcFormat           PixelFormat
	DstWidth, DstHeight int
	DstFormat           PixelFormat
	Flags               ScaleFlags
}

// Scaler converts frames between layouts.
type Scaler interface {
	// Convert returns a new frame. Frame properties are not copied.
	Convert(src Frame) (Frame, error)
	Close() error
}

// HWDevice is an opened hardware acceleration device.
type HWDevice interface {
	Type() HWDeviceType
	// SurfaceFormat is the pixel format of frames living on the device.
	SurfaceFormat() PixelFormat
	// TransferFrame downloads a device frame to host memory as NV12.
	TransferFrame(src Frame) (Frame, error)
	Close() error
}

// Packet is an engine-owned compressed data unit.
type Packet interface {
	StreamIndex() int
	SetStreamIndex(i int)
	PTS() int64
	SetPTS(v int64)
	DTS() int64
	SetDTS(v int64)
	Duration() int64
	SetDuration(v int64)
	SetPosition(v int64)
	Key() bool
	Data() []byte
	Release()
}

// Frame is an engine-owned picture.
type Frame interface {
	Width() int
	Height() int
	PixelFormat() PixelFormat
	PTS() int64
	SetPTS(v int64)
	// PacketDTS is the DTS of the packet that produced the frame.
	PacketDTS() int64
	Key() bool
	// SetKeyFrame forces the encoder to emit an intra frame.
	SetKeyFrame(key bool)
	// CopyPropsTo copies timestamps and flags to dst.
	CopyPropsTo(dst Frame)
	// Bytes returns the picture planes packed without padding.
	Bytes() ([]byte, error)
	// SetBytes fills the planes from a packed buffer.
	SetBytes(b []byte) error
	Release()
}
