package native

import (
	"bytes"
	"fmt"

	"github.com/thesyncim/videoio/engine"
)

// CodecParameters describes a video stream.
type CodecParameters struct {
	codec     engine.CodecID
	width     int
	height    int
	format    engine.PixelFormat
	extraData []byte
}

var _ engine.CodecParameters = (*CodecParameters)(nil)

// NewVideoParameters returns parameters of a video stream.
func NewVideoParameters(codec engine.CodecID, width, height int, format engine.PixelFormat, extraData []byte) *CodecParameters {
	return &CodecParameters{
		codec:     codec,
		width:     width,
		height:    height,
		format:    format,
		extraData: bytes.Clone(extraData),
	}
}

// copyParameters copies any engine's parameters.
func copyParameters(p engine.CodecParameters) *CodecParameters {
	if cp, ok := p.(*CodecParameters); ok {
		return NewVideoParameters(cp.codec, cp.width, cp.height, cp.format, cp.extraData)
	}
	return NewVideoParameters(p.CodecID(), p.Width(), p.Height(), p.PixelFormat(), p.ExtraData())
}

func (p *CodecParameters) MediaType() engine.MediaType     { return engine.MediaTypeVideo }
func (p *CodecParameters) CodecID() engine.CodecID         { return p.codec }
func (p *CodecParameters) Width() int                      { return p.width }
func (p *CodecParameters) Height() int                     { return p.height }
func (p *CodecParameters) PixelFormat() engine.PixelFormat { return p.format }
func (p *CodecParameters) ExtraData() []byte               { return p.extraData }

// Packet is an in-memory compressed packet.
type Packet struct {
	stream   int
	pts      int64
	dts      int64
	duration int64
	pos      int64
	key      bool
	data     []byte
}

var _ engine.Packet = (*Packet)(nil)

// NewPacket returns a packet of stream carrying data. The data is not
// copied.
func NewPacket(stream int, data []byte, pts, dts int64, key bool) *Packet {
	return &Packet{stream: stream, data: data, pts: pts, dts: dts, key: key, pos: -1}
}

func (p *Packet) StreamIndex() int     { return p.stream }
func (p *Packet) SetStreamIndex(i int) { p.stream = i }
func (p *Packet) PTS() int64           { return p.pts }
func (p *Packet) SetPTS(v int64)       { p.pts = v }
func (p *Packet) DTS() int64           { return p.dts }
func (p *Packet) SetDTS(v int64)       { p.dts = v }
func (p *Packet) Duration() int64      { return p.duration }
func (p *Packet) SetDuration(v int64)  { p.duration = v }
func (p *Packet) Position() int64      { return p.pos }
func (p *Packet) SetPosition(v int64)  { p.pos = v }
func (p *Packet) Key() bool            { return p.key }
func (p *Packet) Data() []byte         { return p.data }
func (p *Packet) Release()             { p.data = nil }

func (p *Packet) clone() *Packet {
	c := *p
	c.data = bytes.Clone(p.data)
	return &c
}

// Frame is a tightly packed picture in host memory.
type Frame struct {
	width, height int
	format        engine.PixelFormat
	pts           int64
	pktDTS        int64
	key           bool
	buf           []byte
}

var _ engine.Frame = (*Frame)(nil)

// NewFrame allocates a zeroed frame.
func NewFrame(width, height int, format engine.PixelFormat) (*Frame, error) {
	size := format.BufferSize(width, height)
	if size == 0 || width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d %s frame", engine.ErrNotSupported, width, height, format)
	}
	return &Frame{
		width:  width,
		height: height,
		format: format,
		pts:    engine.NoPTS,
		pktDTS: engine.NoPTS,
		buf:    make([]byte, size),
	}, nil
}

func (f *Frame) Width() int                      { return f.width }
func (f *Frame) Height() int                     { return f.height }
func (f *Frame) PixelFormat() engine.PixelFormat { return f.format }
func (f *Frame) PTS() int64                      { return f.pts }
func (f *Frame) SetPTS(v int64)                  { f.pts = v }
func (f *Frame) PacketDTS() int64                { return f.pktDTS }
func (f *Frame) Key() bool                       { return f.key }
func (f *Frame) SetKeyFrame(key bool)            { f.key = key }

// CopyPropsTo copies timestamps and the key flag to another frame.
func (f *Frame) CopyPropsTo(dst engine.Frame) {
	dst.SetPTS(f.pts)
	dst.SetKeyFrame(f.key)
	if d, ok := dst.(*Frame); ok {
		d.pktDTS = f.pktDTS
	}
}

// Bytes returns a copy of the picture.
func (f *Frame) Bytes() ([]byte, error) { return bytes.Clone(f.buf), nil }

// SetBytes copies b into the picture.
func (f *Frame) SetBytes(b []byte) error {
	if len(b) != len(f.buf) {
		return fmt.Errorf("native: %d bytes for a %d byte %s frame", len(b), len(f.buf), f.format)
	}
	copy(f.buf, b)
	return nil
}

func (f *Frame) Release() { f.buf = nil }

// frameFromEngine returns f as a native frame, copying foreign frames.
func frameFromEngine(f engine.Frame) (*Frame, error) {
	if nf, ok := f.(*Frame); ok {
		return nf, nil
	}
	nf, err := NewFrame(f.Width(), f.Height(), f.PixelFormat())
	if err != nil {
		return nil, err
	}
	b, err := f.Bytes()
	if err != nil {
		return nil, err
	}
	if err := nf.SetBytes(b); err != nil {
		return nil, err
	}
	f.CopyPropsTo(nf)
	nf.pktDTS = f.PacketDTS()
	return nf, nil
}
