//go:build cgo && !noffmpeg

package ffmpeg

import (
	"fmt"

	"github.com/asticode/go-astiav"

	"github.com/thesyncim/videoio/engine"
)

type scaler struct {
	ssc    *astiav.SoftwareScaleContext
	width  int
	height int
	format engine.PixelFormat
}

func scaleFlags(f engine.ScaleFlags) astiav.SoftwareScaleContextFlags {
	switch {
	case f&engine.ScaleFlagBilinear != 0:
		return astiav.NewSoftwareScaleContextFlags(astiav.SoftwareScaleContextFlagBilinear)
	case f&engine.ScaleFlagBicubic != 0:
		return astiav.NewSoftwareScaleContextFlags(astiav.SoftwareScaleContextFlagBicubic)
	case f&engine.ScaleFlagFastBilinear != 0:
		return astiav.NewSoftwareScaleContextFlags(astiav.SoftwareScaleContextFlagFastBilinear)
	default:
		return astiav.NewSoftwareScaleContextFlags(astiav.SoftwareScaleContextFlagArea)
	}
}

func newScaler(cfg engine.ScalerConfig) (*scaler, error) {
	ssc, err := astiav.CreateSoftwareScaleContext(
		cfg.SrcWidth, cfg.SrcHeight, toAVPixelFormat(cfg.SrcFormat),
		cfg.DstWidth, cfg.DstHeight, toAVPixelFormat(cfg.DstFormat),
		scaleFlags(cfg.Flags),
	)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg: scale %dx%d %s to %dx%d %s: %w",
			cfg.SrcWidth, cfg.SrcHeight, cfg.SrcFormat, cfg.DstWidth, cfg.DstHeight, cfg.DstFormat, err)
	}
	return &scaler{ssc: ssc, width: cfg.DstWidth, height: cfg.DstHeight, format: cfg.DstFormat}, nil
}

func (s *scaler) Convert(src engine.Frame) (engine.Frame, error) {
	in, free, err := avFrame(src)
	if err != nil {
		return nil, err
	}
	defer free()
	dst, err := allocFrame(s.width, s.height, s.format)
	if err != nil {
		return nil, err
	}
	if err := s.ssc.ScaleFrame(in.f, dst.f); err != nil {
		dst.Release()
		return nil, fmt.Errorf("ffmpeg: scale frame: %w", err)
	}
	return dst, nil
}

func (s *scaler) Close() error {
	if s.ssc != nil {
		s.ssc.Free()
		s.ssc = nil
	}
	return nil
}
