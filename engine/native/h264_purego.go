//go:build (darwin || linux) && !noh264

package native

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"

	"github.com/thesyncim/videoio/engine"
	"github.com/thesyncim/videoio/internal/dynlib"
	"github.com/thesyncim/videoio/internal/h264"
)

var shimLib = dynlib.Library{
	Base:    "media_h264",
	PathEnv: "MEDIA_H264_LIB_PATH",
	DirEnv:  "MEDIA_SDK_LIB_PATH",
}

var (
	shimOnce sync.Once
	shimErr  error
)

// libmedia_h264 entry points
var (
	shimEncoderCreate  func(width, height, fps, bitrateKbps, profile, threads int32) uint64
	shimEncoderEncode  func(enc uint64, y, u, v uintptr, yStride, uvStride, forceKeyframe int32, out uintptr, outCapacity int32, outFrameType, outPTS, outDTS uintptr) int32
	shimEncoderMaxSize func(enc uint64) int32
	shimEncoderSPSPPS  func(enc uint64, sps uintptr, spsCapacity int32, spsLen uintptr, pps uintptr, ppsCapacity int32, ppsLen uintptr) int32
	shimEncoderDestroy func(enc uint64)

	shimDecoderCreate  func(threads int32) uint64
	shimDecoderDecode  func(dec uint64, data uintptr, dataLen int32, outY, outU, outV, outYStride, outUVStride, outWidth, outHeight uintptr) int32
	shimDecoderDestroy func(dec uint64)

	shimGetError         func() uintptr
	shimEncoderAvailable func() int32
	shimDecoderAvailable func() int32
)

const (
	shimProfileBaseline = 66
	shimProfileMain     = 77
	shimProfileHigh     = 100

	shimFrameI   = 0
	shimFrameIDR = 3
)

func loadShim() error {
	shimOnce.Do(func() {
		handle, err := shimLib.Open()
		if err != nil {
			shimErr = fmt.Errorf("load libmedia_h264: %w", err)
			return
		}
		purego.RegisterLibFunc(&shimEncoderCreate, handle, "media_h264_encoder_create")
		purego.RegisterLibFunc(&shimEncoderEncode, handle, "media_h264_encoder_encode")
		purego.RegisterLibFunc(&shimEncoderMaxSize, handle, "media_h264_encoder_max_output_size")
		purego.RegisterLibFunc(&shimEncoderSPSPPS, handle, "media_h264_encoder_get_sps_pps")
		purego.RegisterLibFunc(&shimEncoderDestroy, handle, "media_h264_encoder_destroy")
		purego.RegisterLibFunc(&shimDecoderCreate, handle, "media_h264_decoder_create")
		purego.RegisterLibFunc(&shimDecoderDecode, handle, "media_h264_decoder_decode")
		purego.RegisterLibFunc(&shimDecoderDestroy, handle, "media_h264_decoder_destroy")
		purego.RegisterLibFunc(&shimGetError, handle, "media_h264_get_error")
		purego.RegisterLibFunc(&shimEncoderAvailable, handle, "media_h264_encoder_available")
		purego.RegisterLibFunc(&shimDecoderAvailable, handle, "media_h264_decoder_available")
	})
	return shimErr
}

func h264Available() bool {
	return loadShim() == nil && shimEncoderAvailable() != 0
}

func shimError() string {
	ptr := shimGetError()
	if ptr == 0 {
		return "unknown error"
	}
	return dynlib.GoString(ptr)
}

// shimProfile maps the x264 style "profile" option.
func shimProfile(name string) int32 {
	switch name {
	case "main":
		return shimProfileMain
	case "high":
		return shimProfileHigh
	default:
		return shimProfileBaseline
	}
}

func shimThreads(t *engine.Threading) int32 {
	if t == nil || t.Count <= 0 {
		return 4
	}
	return int32(t.Count)
}

// h264Encoder encodes YUV420P frames. The shim has no look-ahead, so every
// frame produces at most one packet and there is nothing to flush at the end.
type h264Encoder struct {
	cfg      engine.EncoderConfig
	timeBase engine.Rational
	duration int64

	handle    uint64
	out       []byte
	extraData []byte

	pending []int64 // pts of frames fed but not emitted
	queue   delayQueue[*Packet]
}

func newH264Encoder(cfg engine.EncoderConfig) (engine.Encoder, error) {
	if err := loadShim(); err != nil {
		return nil, fmt.Errorf("%w: %v", engine.ErrUnknownCodec, err)
	}
	if shimEncoderAvailable() == 0 {
		return nil, fmt.Errorf("%w: libmedia_h264 built without an encoder", engine.ErrUnknownCodec)
	}
	if cfg.PixelFormat != engine.PixelFormatYUV420P {
		return nil, fmt.Errorf("%w: h264 encoder needs yuv420p, got %s", engine.ErrNotSupported, cfg.PixelFormat)
	}

	fps := int32(30)
	if cfg.FrameRate.Valid() {
		fps = int32(cfg.FrameRate.Float64() + 0.5)
	}
	bitrate := int32(1000)
	if v, ok := cfg.Options["b"]; ok {
		var bps int
		if _, err := fmt.Sscan(v, &bps); err == nil && bps > 0 {
			bitrate = int32(bps / 1000)
		}
	}

	handle := shimEncoderCreate(int32(cfg.Width), int32(cfg.Height), fps, bitrate,
		shimProfile(cfg.Options["profile"]), shimThreads(cfg.Threading))
	if handle == 0 {
		return nil, fmt.Errorf("create h264 encoder: %s", shimError())
	}

	maxOut := shimEncoderMaxSize(handle)
	if maxOut <= 0 {
		maxOut = int32(cfg.PixelFormat.BufferSize(cfg.Width, cfg.Height))
	}

	tb := cfg.TimeBase
	if !tb.Valid() {
		tb = engine.NewRational(1, int(fps))
	}
	e := &h264Encoder{
		cfg:      cfg,
		timeBase: tb,
		handle:   handle,
		out:      make([]byte, maxOut),
	}
	if cfg.FrameRate.Valid() {
		e.duration, _ = cfg.FrameRate.Invert().Rescale(1, tb)
	}

	sps, pps := e.parameterSets()
	if len(sps) > 0 {
		if cfg.GlobalHeader {
			e.extraData = h264.AVCCRecord(sps, pps)
		} else {
			e.extraData = h264.AnnexB(sps, pps)
		}
	}
	return e, nil
}

func (e *h264Encoder) parameterSets() (sps, pps []byte) {
	spsBuf := make([]byte, 256)
	ppsBuf := make([]byte, 256)
	lens := new([2]int32)
	shimEncoderSPSPPS(e.handle,
		uintptr(unsafe.Pointer(&spsBuf[0])), int32(len(spsBuf)), uintptr(unsafe.Pointer(&lens[0])),
		uintptr(unsafe.Pointer(&ppsBuf[0])), int32(len(ppsBuf)), uintptr(unsafe.Pointer(&lens[1])),
	)
	runtime.KeepAlive(lens)
	return spsBuf[:lens[0]], ppsBuf[:lens[1]]
}

func (e *h264Encoder) Feed(f engine.Frame) error {
	if f == nil {
		e.queue.eof = true
		return nil
	}
	if e.handle == 0 {
		return errors.New("native: h264 encoder closed")
	}
	nf, err := frameFromEngine(f)
	if err != nil {
		return err
	}
	if nf.width != e.cfg.Width || nf.height != e.cfg.Height || nf.format != engine.PixelFormatYUV420P {
		return fmt.Errorf("native: h264 encoder got %dx%d %s", nf.width, nf.height, nf.format)
	}

	w, h := nf.width, nf.height
	cw := (w + 1) / 2
	u := w * h
	v := u + cw*((h+1)/2)

	force := int32(0)
	if nf.key {
		force = 1
	}
	res := new(struct {
		frameType int32
		pts, dts  int64
	})
	n := shimEncoderEncode(e.handle,
		uintptr(unsafe.Pointer(&nf.buf[0])),
		uintptr(unsafe.Pointer(&nf.buf[u])),
		uintptr(unsafe.Pointer(&nf.buf[v])),
		int32(w), int32(cw), force,
		uintptr(unsafe.Pointer(&e.out[0])), int32(len(e.out)),
		uintptr(unsafe.Pointer(&res.frameType)),
		uintptr(unsafe.Pointer(&res.pts)),
		uintptr(unsafe.Pointer(&res.dts)),
	)
	runtime.KeepAlive(nf.buf)
	runtime.KeepAlive(res)
	if n < 0 {
		return fmt.Errorf("h264 encode: %s", shimError())
	}

	e.pending = append(e.pending, nf.pts)
	if n == 0 {
		return nil
	}
	pts := e.pending[0]
	e.pending = e.pending[1:]
	key := res.frameType == shimFrameIDR || res.frameType == shimFrameI
	p := NewPacket(0, append([]byte(nil), e.out[:n]...), pts, pts, key)
	p.duration = e.duration
	return e.queue.push(p)
}

func (e *h264Encoder) TryDrain() (engine.Packet, error) {
	p, err := e.queue.pop()
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (e *h264Encoder) TimeBase() engine.Rational       { return e.timeBase }
func (e *h264Encoder) Width() int                      { return e.cfg.Width }
func (e *h264Encoder) Height() int                     { return e.cfg.Height }
func (e *h264Encoder) PixelFormat() engine.PixelFormat { return e.cfg.PixelFormat }

func (e *h264Encoder) Parameters() engine.CodecParameters {
	return NewVideoParameters(engine.CodecH264, e.cfg.Width, e.cfg.Height, e.cfg.PixelFormat, e.extraData)
}

func (e *h264Encoder) Close() error {
	if e.handle != 0 {
		shimEncoderDestroy(e.handle)
		e.handle = 0
	}
	return nil
}

// decodeResult receives the decoder's out parameters. It lives on the heap
// so the collector cannot move it during the call.
type decodeResult struct {
	y, u, v       uintptr
	yStride       int32
	uvStride      int32
	width, height int32
}

type h264Decoder struct {
	timeBase engine.Rational
	width    int
	height   int
	handle   uint64
	prefix   []byte // Annex B parameter sets sent before the first packet
	result   *decodeResult
	queue    delayQueue[*Frame]
}

func newH264Decoder(cfg engine.DecoderConfig) (engine.Decoder, error) {
	if err := loadShim(); err != nil {
		return nil, fmt.Errorf("%w: %v", engine.ErrUnknownCodec, err)
	}
	if shimDecoderAvailable() == 0 {
		return nil, fmt.Errorf("%w: libmedia_h264 built without a decoder", engine.ErrUnknownCodec)
	}
	handle := shimDecoderCreate(shimThreads(cfg.Threading))
	if handle == 0 {
		return nil, fmt.Errorf("create h264 decoder: %s", shimError())
	}
	d := &h264Decoder{
		timeBase: cfg.TimeBase,
		width:    cfg.Params.Width(),
		height:   cfg.Params.Height(),
		handle:   handle,
		result:   &decodeResult{},
	}
	if extra := cfg.Params.ExtraData(); len(extra) > 0 {
		if sps, pps, err := h264.ParameterSets(extra); err == nil {
			d.prefix = h264.AnnexB(append([][]byte{sps}, pps...)...)
		}
	}
	return d, nil
}

func (d *h264Decoder) Feed(p engine.Packet) error {
	if p == nil {
		d.queue.eof = true
		return nil
	}
	if d.handle == 0 {
		return errors.New("native: h264 decoder closed")
	}
	data := h264.AnnexB(h264.SplitAccessUnit(p.Data())...)
	if len(data) == 0 {
		return nil
	}
	if d.prefix != nil {
		data = append(d.prefix, data...)
		d.prefix = nil
	}

	out := d.result
	n := shimDecoderDecode(d.handle,
		uintptr(unsafe.Pointer(&data[0])), int32(len(data)),
		uintptr(unsafe.Pointer(&out.y)),
		uintptr(unsafe.Pointer(&out.u)),
		uintptr(unsafe.Pointer(&out.v)),
		uintptr(unsafe.Pointer(&out.yStride)),
		uintptr(unsafe.Pointer(&out.uvStride)),
		uintptr(unsafe.Pointer(&out.width)),
		uintptr(unsafe.Pointer(&out.height)),
	)
	runtime.KeepAlive(data)
	runtime.KeepAlive(out)
	if n < 0 {
		return fmt.Errorf("h264 decode: %s", shimError())
	}
	if n == 0 {
		return nil
	}
	if out.yStride <= 0 || out.uvStride <= 0 || out.width <= 0 || out.height <= 0 || out.y == 0 {
		return fmt.Errorf("h264 decode: invalid output %dx%d stride %d/%d",
			out.width, out.height, out.yStride, out.uvStride)
	}

	f, err := d.copyOut(out)
	if err != nil {
		return err
	}
	f.pts = p.PTS()
	f.pktDTS = p.DTS()
	f.key = p.Key()
	return d.queue.push(f)
}

// copyOut packs the decoder's strided planes into a new frame.
func (d *h264Decoder) copyOut(out *decodeResult) (*Frame, error) {
	w, h := int(out.width), int(out.height)
	d.width, d.height = w, h
	f, err := NewFrame(w, h, engine.PixelFormatYUV420P)
	if err != nil {
		return nil, err
	}
	cw, ch := (w+1)/2, (h+1)/2
	off := 0
	planes := []struct {
		ptr     uintptr
		stride  int
		w, rows int
	}{
		{out.y, int(out.yStride), w, h},
		{out.u, int(out.uvStride), cw, ch},
		{out.v, int(out.uvStride), cw, ch},
	}
	for _, pl := range planes {
		for row := 0; row < pl.rows; row++ {
			src := unsafe.Slice((*byte)(unsafe.Pointer(pl.ptr+uintptr(row*pl.stride))), pl.w)
			off += copy(f.buf[off:off+pl.w], src)
		}
	}
	return f, nil
}

func (d *h264Decoder) TryDrain() (engine.Frame, error) {
	f, err := d.queue.pop()
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (d *h264Decoder) TimeBase() engine.Rational       { return d.timeBase }
func (d *h264Decoder) Width() int                      { return d.width }
func (d *h264Decoder) Height() int                     { return d.height }
func (d *h264Decoder) PixelFormat() engine.PixelFormat { return engine.PixelFormatYUV420P }

func (d *h264Decoder) Close() error {
	if d.handle != 0 {
		shimDecoderDestroy(d.handle)
		d.handle = 0
	}
	return nil
}
