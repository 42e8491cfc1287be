package videoio

import (
	"fmt"

	"github.com/thesyncim/videoio/engine"
)

// RawFrame is an engine picture in whatever pixel format the pipeline
// negotiated. It must be released exactly once; Release is idempotent.
type RawFrame struct {
	inner    engine.Frame
	timeBase Rational
}

// NewRawFrame wraps an engine frame whose PTS is in timeBase.
func NewRawFrame(inner engine.Frame, timeBase Rational) *RawFrame {
	return &RawFrame{inner: inner, timeBase: timeBase}
}

// Inner returns the engine frame, nil after Release.
func (f *RawFrame) Inner() engine.Frame { return f.inner }

func (f *RawFrame) Width() int { return f.inner.Width() }

func (f *RawFrame) Height() int { return f.inner.Height() }

func (f *RawFrame) PixelFormat() engine.PixelFormat { return f.inner.PixelFormat() }

func (f *RawFrame) TimeBase() Rational { return f.timeBase }

func (f *RawFrame) PTS() Time { return timeFromTS(f.inner.PTS(), f.timeBase) }

// SetPTS stores t aligned into the frame time base.
func (f *RawFrame) SetPTS(t Time) { f.inner.SetPTS(t.Rescale(f.timeBase).ts()) }

// PacketDTS is the DTS of the packet the frame was decoded from.
func (f *RawFrame) PacketDTS() Time { return timeFromTS(f.inner.PacketDTS(), f.timeBase) }

func (f *RawFrame) IsKey() bool { return f.inner.Key() }

// Bytes returns a packed copy of the picture planes.
func (f *RawFrame) Bytes() ([]byte, error) { return f.inner.Bytes() }

func (f *RawFrame) Release() {
	if f == nil || f.inner == nil {
		return
	}
	f.inner.Release()
	f.inner = nil
}

// frameChannels is the channel count of Frame pixels.
const frameChannels = 3

// Frame is a dense RGB24 picture laid out as (height, width, channel).
type Frame struct {
	height, width int
	pix           []byte
}

// NewFrame allocates a black frame.
func NewFrame(height, width int) *Frame {
	return &Frame{height: height, width: width, pix: make([]byte, height*width*frameChannels)}
}

// FrameFromPix wraps pix without copying. len(pix) must be height*width*3.
func FrameFromPix(height, width int, pix []byte) (*Frame, error) {
	if height < 0 || width < 0 || len(pix) != height*width*frameChannels {
		return nil, fmt.Errorf("%w: %d bytes for %dx%d rgb24", ErrInvalidFrameFormat, len(pix), width, height)
	}
	return &Frame{height: height, width: width, pix: pix}, nil
}

// Dim returns (height, width, channels).
func (f *Frame) Dim() (int, int, int) { return f.height, f.width, frameChannels }

// At returns channel c of the pixel at row y, column x.
func (f *Frame) At(y, x, c int) uint8 { return f.pix[f.offset(y, x, c)] }

// Set assigns channel c of the pixel at row y, column x.
func (f *Frame) Set(y, x, c int, v uint8) { f.pix[f.offset(y, x, c)] = v }

// SetRGB assigns all channels of one pixel.
func (f *Frame) SetRGB(y, x int, r, g, b uint8) {
	o := f.offset(y, x, 0)
	f.pix[o], f.pix[o+1], f.pix[o+2] = r, g, b
}

// Pix returns the backing buffer in row-major RGB order.
func (f *Frame) Pix() []byte { return f.pix }

func (f *Frame) offset(y, x, c int) int {
	return (y*f.width+x)*frameChannels + c
}

// frameFromRaw copies an RGB24 engine frame into a Frame.
func frameFromRaw(raw *RawFrame) (*Frame, error) {
	if raw.PixelFormat() != engine.PixelFormatRGB24 {
		return nil, fmt.Errorf("%w: got %s, want rgb24", ErrInvalidFrameFormat, raw.PixelFormat())
	}
	b, err := raw.Bytes()
	if err != nil {
		return nil, backendErr("frame bytes", err)
	}
	return FrameFromPix(raw.Height(), raw.Width(), b)
}

// rawFromFrame uploads f into a new RGB24 engine frame.
func rawFromFrame(eng engine.Engine, f *Frame, timeBase Rational) (*RawFrame, error) {
	inner, err := eng.NewFrame(f.width, f.height, engine.PixelFormatRGB24)
	if err != nil {
		return nil, backendErr("allocate frame", err)
	}
	if err := inner.SetBytes(f.pix); err != nil {
		inner.Release()
		return nil, backendErr("fill frame", err)
	}
	return NewRawFrame(inner, timeBase), nil
}
