//go:build cgo && !noffmpeg

package ffmpeg

import (
	"fmt"
	"runtime"

	"github.com/asticode/go-astiav"

	"github.com/thesyncim/videoio/engine"
)

// codecParameters owns a copy of FFmpeg codec parameters. The copy is freed
// by a finalizer since parameters outlive the contexts they came from.
type codecParameters struct {
	cp *astiav.CodecParameters
}

var _ engine.CodecParameters = (*codecParameters)(nil)

func newCodecParameters() *codecParameters {
	p := &codecParameters{cp: astiav.AllocCodecParameters()}
	runtime.SetFinalizer(p, func(p *codecParameters) { p.cp.Free() })
	return p
}

func copyCodecParameters(src *astiav.CodecParameters) (*codecParameters, error) {
	p := newCodecParameters()
	if err := src.Copy(p.cp); err != nil {
		return nil, fmt.Errorf("ffmpeg: copy codec parameters: %w", err)
	}
	return p, nil
}

// avParameters returns FFmpeg parameters for any engine's parameters.
func avParameters(params engine.CodecParameters) (*codecParameters, error) {
	if p, ok := params.(*codecParameters); ok {
		return p, nil
	}
	id, ok := toAVCodecID(params.CodecID())
	if !ok {
		return nil, fmt.Errorf("%w: %s", engine.ErrUnknownCodec, params.CodecID())
	}
	p := newCodecParameters()
	p.cp.SetMediaType(astiav.MediaTypeVideo)
	p.cp.SetCodecID(id)
	p.cp.SetWidth(params.Width())
	p.cp.SetHeight(params.Height())
	p.cp.SetPixelFormat(toAVPixelFormat(params.PixelFormat()))
	if extra := params.ExtraData(); len(extra) > 0 {
		if err := p.cp.SetExtraData(extra); err != nil {
			return nil, fmt.Errorf("ffmpeg: set extradata: %w", err)
		}
	}
	return p, nil
}

func (p *codecParameters) MediaType() engine.MediaType { return fromAVMediaType(p.cp.MediaType()) }
func (p *codecParameters) CodecID() engine.CodecID     { return fromAVCodecID(p.cp.CodecID()) }
func (p *codecParameters) Width() int                  { return p.cp.Width() }
func (p *codecParameters) Height() int                 { return p.cp.Height() }
func (p *codecParameters) PixelFormat() engine.PixelFormat {
	return fromAVPixelFormat(p.cp.PixelFormat())
}
func (p *codecParameters) ExtraData() []byte { return p.cp.ExtraData() }

// packet wraps an AVPacket.
type packet struct {
	p *astiav.Packet
}

var _ engine.Packet = (*packet)(nil)

func (p *packet) StreamIndex() int     { return p.p.StreamIndex() }
func (p *packet) SetStreamIndex(i int) { p.p.SetStreamIndex(i) }
func (p *packet) PTS() int64           { return p.p.Pts() }
func (p *packet) SetPTS(v int64)       { p.p.SetPts(v) }
func (p *packet) DTS() int64           { return p.p.Dts() }
func (p *packet) SetDTS(v int64)       { p.p.SetDts(v) }
func (p *packet) Duration() int64      { return p.p.Duration() }
func (p *packet) SetDuration(v int64)  { p.p.SetDuration(v) }
func (p *packet) SetPosition(v int64)  { p.p.SetPos(v) }
func (p *packet) Key() bool            { return p.p.Flags().Has(astiav.PacketFlagKey) }
func (p *packet) Data() []byte         { return p.p.Data() }

func (p *packet) Release() {
	if p.p != nil {
		p.p.Free()
		p.p = nil
	}
}

// avPacket returns an AVPacket for p. Foreign packets are copied into a new
// packet that the returned function frees.
func avPacket(p engine.Packet) (*astiav.Packet, func(), error) {
	if ap, ok := p.(*packet); ok {
		return ap.p, func() {}, nil
	}
	pkt := astiav.AllocPacket()
	if err := pkt.FromData(append([]byte(nil), p.Data()...)); err != nil {
		pkt.Free()
		return nil, nil, fmt.Errorf("ffmpeg: packet data: %w", err)
	}
	pkt.SetStreamIndex(p.StreamIndex())
	pkt.SetPts(p.PTS())
	pkt.SetDts(p.DTS())
	pkt.SetDuration(p.Duration())
	pkt.SetPos(-1)
	if p.Key() {
		pkt.SetFlags(pkt.Flags().Add(astiav.PacketFlagKey))
	}
	return pkt, pkt.Free, nil
}

// frame wraps an AVFrame. pktDTS overrides the frame's own packet DTS after
// CopyPropsTo, which has no libavutil counterpart.
type frame struct {
	f      *astiav.Frame
	pktDTS int64
	hasDTS bool
}

var _ engine.Frame = (*frame)(nil)

func allocFrame(width, height int, format engine.PixelFormat) (*frame, error) {
	f := astiav.AllocFrame()
	f.SetWidth(width)
	f.SetHeight(height)
	f.SetPixelFormat(toAVPixelFormat(format))
	if err := f.AllocBuffer(0); err != nil {
		f.Free()
		return nil, fmt.Errorf("ffmpeg: allocate %dx%d %s frame: %w", width, height, format, err)
	}
	return &frame{f: f}, nil
}

func (f *frame) Width() int                      { return f.f.Width() }
func (f *frame) Height() int                     { return f.f.Height() }
func (f *frame) PixelFormat() engine.PixelFormat { return fromAVPixelFormat(f.f.PixelFormat()) }
func (f *frame) PTS() int64                      { return f.f.Pts() }
func (f *frame) SetPTS(v int64)                  { f.f.SetPts(v) }

func (f *frame) PacketDTS() int64 {
	if f.hasDTS {
		return f.pktDTS
	}
	return f.f.PktDts()
}

func (f *frame) Key() bool {
	return f.f.KeyFrame() || f.f.PictureType() == astiav.PictureTypeI
}

func (f *frame) SetKeyFrame(key bool) {
	f.f.SetKeyFrame(key)
	if key {
		f.f.SetPictureType(astiav.PictureTypeI)
	} else {
		f.f.SetPictureType(astiav.PictureTypeNone)
	}
}

func (f *frame) CopyPropsTo(dst engine.Frame) {
	dst.SetPTS(f.PTS())
	dst.SetKeyFrame(f.Key())
	if d, ok := dst.(*frame); ok {
		d.pktDTS, d.hasDTS = f.PacketDTS(), true
	}
}

func (f *frame) Bytes() ([]byte, error) { return f.f.Data().Bytes(1) }

func (f *frame) SetBytes(b []byte) error { return f.f.Data().SetBytes(b, 1) }

func (f *frame) Release() {
	if f.f != nil {
		f.f.Free()
		f.f = nil
	}
}

// avFrame returns an FFmpeg frame for f, copying frames of other engines.
func avFrame(f engine.Frame) (*frame, func(), error) {
	if af, ok := f.(*frame); ok {
		return af, func() {}, nil
	}
	af, err := allocFrame(f.Width(), f.Height(), f.PixelFormat())
	if err != nil {
		return nil, nil, err
	}
	b, err := f.Bytes()
	if err == nil {
		err = af.SetBytes(b)
	}
	if err != nil {
		af.Release()
		return nil, nil, err
	}
	f.CopyPropsTo(af)
	return af, af.Release, nil
}
