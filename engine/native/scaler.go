package native

import (
	"fmt"

	"github.com/thesyncim/videoio/engine"
)

// planeSet is a picture split into full planes. RGB pictures carry R, G and B
// at full size; YUV pictures carry Y at full size and U, V subsampled 2x2.
type planeSet struct {
	rgb           bool
	width, height int
	p             [3][]byte
}

func planeDims(rgb bool, i, w, h int) (int, int) {
	if rgb || i == 0 {
		return w, h
	}
	return (w + 1) / 2, (h + 1) / 2
}

// scaler resizes planes bilinearly and converts between RGB and YUV with
// BT.601 limited range coefficients.
type scaler struct {
	cfg engine.ScalerConfig
}

func scalable(f engine.PixelFormat) bool {
	switch f {
	case engine.PixelFormatRGB24, engine.PixelFormatYUV420P, engine.PixelFormatNV12:
		return true
	}
	return false
}

func newScaler(cfg engine.ScalerConfig) (engine.Scaler, error) {
	if !scalable(cfg.SrcFormat) || !scalable(cfg.DstFormat) {
		return nil, fmt.Errorf("%w: scaling %s to %s", engine.ErrNotSupported, cfg.SrcFormat, cfg.DstFormat)
	}
	if cfg.SrcWidth <= 0 || cfg.SrcHeight <= 0 || cfg.DstWidth <= 0 || cfg.DstHeight <= 0 {
		return nil, fmt.Errorf("%w: scaling %dx%d to %dx%d", engine.ErrNotSupported,
			cfg.SrcWidth, cfg.SrcHeight, cfg.DstWidth, cfg.DstHeight)
	}
	return &scaler{cfg: cfg}, nil
}

func (s *scaler) Convert(src engine.Frame) (engine.Frame, error) {
	c := s.cfg
	if src.Width() != c.SrcWidth || src.Height() != c.SrcHeight || src.PixelFormat() != c.SrcFormat {
		return nil, fmt.Errorf("native: scaler for %dx%d %s got %dx%d %s",
			c.SrcWidth, c.SrcHeight, c.SrcFormat, src.Width(), src.Height(), src.PixelFormat())
	}
	b, err := src.Bytes()
	if err != nil {
		return nil, err
	}
	ps := split(b, c.SrcWidth, c.SrcHeight, c.SrcFormat)
	ps = ps.resize(c.DstWidth, c.DstHeight)
	if dstRGB := c.DstFormat == engine.PixelFormatRGB24; dstRGB != ps.rgb {
		if dstRGB {
			ps = ps.toRGB()
		} else {
			ps = ps.toYUV()
		}
	}
	dst, err := NewFrame(c.DstWidth, c.DstHeight, c.DstFormat)
	if err != nil {
		return nil, err
	}
	ps.pack(dst.buf, c.DstFormat)
	return dst, nil
}

func (s *scaler) Close() error { return nil }

// split unpacks a tightly packed picture.
func split(b []byte, w, h int, format engine.PixelFormat) planeSet {
	ps := planeSet{rgb: format == engine.PixelFormatRGB24, width: w, height: h}
	switch format {
	case engine.PixelFormatRGB24:
		for i := range ps.p {
			ps.p[i] = make([]byte, w*h)
		}
		for i := 0; i < w*h; i++ {
			ps.p[0][i], ps.p[1][i], ps.p[2][i] = b[3*i], b[3*i+1], b[3*i+2]
		}
	case engine.PixelFormatYUV420P:
		cw, ch := planeDims(false, 1, w, h)
		ps.p[0] = b[:w*h]
		ps.p[1] = b[w*h : w*h+cw*ch]
		ps.p[2] = b[w*h+cw*ch : w*h+2*cw*ch]
	case engine.PixelFormatNV12:
		cw, ch := planeDims(false, 1, w, h)
		ps.p[0] = b[:w*h]
		ps.p[1] = make([]byte, cw*ch)
		ps.p[2] = make([]byte, cw*ch)
		uv := b[w*h:]
		for i := 0; i < cw*ch; i++ {
			ps.p[1][i], ps.p[2][i] = uv[2*i], uv[2*i+1]
		}
	}
	return ps
}

// pack writes the planes into dst using format's layout.
func (ps planeSet) pack(dst []byte, format engine.PixelFormat) {
	w, h := ps.width, ps.height
	switch format {
	case engine.PixelFormatRGB24:
		for i := 0; i < w*h; i++ {
			dst[3*i], dst[3*i+1], dst[3*i+2] = ps.p[0][i], ps.p[1][i], ps.p[2][i]
		}
	case engine.PixelFormatYUV420P:
		off := copy(dst, ps.p[0])
		off += copy(dst[off:], ps.p[1])
		copy(dst[off:], ps.p[2])
	case engine.PixelFormatNV12:
		uv := dst[copy(dst, ps.p[0]):]
		for i := range ps.p[1] {
			uv[2*i], uv[2*i+1] = ps.p[1][i], ps.p[2][i]
		}
	}
}

func (ps planeSet) resize(w, h int) planeSet {
	if w == ps.width && h == ps.height {
		return ps
	}
	out := planeSet{rgb: ps.rgb, width: w, height: h}
	for i := range ps.p {
		sw, sh := planeDims(ps.rgb, i, ps.width, ps.height)
		dw, dh := planeDims(ps.rgb, i, w, h)
		out.p[i] = make([]byte, dw*dh)
		scalePlane(ps.p[i], sw, sw, sh, out.p[i], dw, dh)
	}
	return out
}

func (ps planeSet) toRGB() planeSet {
	w, h := ps.width, ps.height
	cw, ch := planeDims(false, 1, w, h)
	u := make([]byte, w*h)
	v := make([]byte, w*h)
	scalePlane(ps.p[1], cw, cw, ch, u, w, h)
	scalePlane(ps.p[2], cw, cw, ch, v, w, h)

	out := planeSet{rgb: true, width: w, height: h}
	for i := range out.p {
		out.p[i] = make([]byte, w*h)
	}
	for i := 0; i < w*h; i++ {
		c := 298 * (int(ps.p[0][i]) - 16)
		d := int(u[i]) - 128
		e := int(v[i]) - 128
		out.p[0][i] = clamp8((c + 409*e + 128) >> 8)
		out.p[1][i] = clamp8((c - 100*d - 208*e + 128) >> 8)
		out.p[2][i] = clamp8((c + 516*d + 128) >> 8)
	}
	return out
}

func (ps planeSet) toYUV() planeSet {
	w, h := ps.width, ps.height
	y := make([]byte, w*h)
	u := make([]byte, w*h)
	v := make([]byte, w*h)
	for i := 0; i < w*h; i++ {
		y[i], u[i], v[i] = rgbToYUV(ps.p[0][i], ps.p[1][i], ps.p[2][i])
	}
	cw, ch := planeDims(false, 1, w, h)
	out := planeSet{width: w, height: h, p: [3][]byte{y, make([]byte, cw*ch), make([]byte, cw*ch)}}
	scalePlane(u, w, w, h, out.p[1], cw, ch)
	scalePlane(v, w, w, h, out.p[2], cw, ch)
	return out
}

// rgbToYUV converts one pixel to BT.601 limited range.
func rgbToYUV(r8, g8, b8 byte) (y, u, v byte) {
	r, g, b := int(r8), int(g8), int(b8)
	y = clamp8(16 + (66*r+129*g+25*b+128)>>8)
	u = clamp8(128 + (-38*r-74*g+112*b+128)>>8)
	v = clamp8(128 + (112*r-94*g-18*b+128)>>8)
	return y, u, v
}

func clamp8(v int) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}

// scalePlane resizes one plane with 16.16 fixed point bilinear
// interpolation. The destination is tightly packed.
func scalePlane(src []byte, srcStride, srcW, srcH int, dst []byte, dstW, dstH int) {
	if srcW <= 0 || srcH <= 0 || dstW <= 0 || dstH <= 0 {
		return
	}
	xRatio := (srcW << 16) / dstW
	yRatio := (srcH << 16) / dstH

	for y := 0; y < dstH; y++ {
		sy := y * yRatio
		y0 := sy >> 16
		yw := sy & 0xFFFF
		y1 := y0 + 1
		if y1 >= srcH {
			y1 = y0
		}
		for x := 0; x < dstW; x++ {
			sx := x * xRatio
			x0 := sx >> 16
			xw := sx & 0xFFFF
			x1 := x0 + 1
			if x1 >= srcW {
				x1 = x0
			}

			p00 := int(src[y0*srcStride+x0])
			p10 := int(src[y0*srcStride+x1])
			p01 := int(src[y1*srcStride+x0])
			p11 := int(src[y1*srcStride+x1])

			top := (p00*(0x10000-xw) + p10*xw) >> 16
			bottom := (p01*(0x10000-xw) + p11*xw) >> 16
			dst[y*dstW+x] = byte((top*(0x10000-yw) + bottom*yw) >> 16)
		}
	}
}
