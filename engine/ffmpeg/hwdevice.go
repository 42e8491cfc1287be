//go:build cgo && !noffmpeg

package ffmpeg

import (
	"fmt"

	"github.com/asticode/go-astiav"

	"github.com/thesyncim/videoio/engine"
)

type hwDevice struct {
	t      engine.HWDeviceType
	avType astiav.HardwareDeviceType
	ctx    *astiav.HardwareDeviceContext
	// surface is set when a decoder is attached to the device.
	surface astiav.PixelFormat
}

func createHWDevice(t engine.HWDeviceType) (*hwDevice, error) {
	avType := astiav.FindHardwareDeviceTypeByName(t.String())
	if avType == astiav.HardwareDeviceTypeNone {
		return nil, fmt.Errorf("%w: %s device", engine.ErrNotSupported, t)
	}
	ctx, err := astiav.CreateHardwareDeviceContext(avType, "", nil, 0)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg: create %s device: %w", t, err)
	}
	return &hwDevice{t: t, avType: avType, ctx: ctx, surface: astiav.PixelFormatNone}, nil
}

// attachHWDevice makes cc decode on dev, picking the surface format the
// codec uses with that device.
func attachHWDevice(cc *astiav.CodecContext, codec *astiav.Codec, dev engine.HWDevice) error {
	d, ok := dev.(*hwDevice)
	if !ok {
		return fmt.Errorf("%w: %s device from another engine", engine.ErrNotSupported, dev.Type())
	}
	surface := astiav.PixelFormatNone
	for _, hc := range codec.HardwareConfigs() {
		if hc.MethodFlags().Has(astiav.CodecHardwareConfigMethodFlagHwDeviceCtx) && hc.HardwareDeviceType() == d.avType {
			surface = hc.PixelFormat()
			break
		}
	}
	if surface == astiav.PixelFormatNone {
		return fmt.Errorf("%w: %s cannot decode on %s", engine.ErrNotSupported, codec.Name(), d.t)
	}
	d.surface = surface
	cc.SetHardwareDeviceContext(d.ctx)
	cc.SetPixelFormatCallback(func(pfs []astiav.PixelFormat) astiav.PixelFormat {
		for _, pf := range pfs {
			if pf == surface {
				return pf
			}
		}
		return astiav.PixelFormatNone
	})
	return nil
}

func (d *hwDevice) Type() engine.HWDeviceType { return d.t }

func (d *hwDevice) SurfaceFormat() engine.PixelFormat { return fromAVPixelFormat(d.surface) }

// TransferFrame downloads src to an NV12 host frame.
func (d *hwDevice) TransferFrame(src engine.Frame) (engine.Frame, error) {
	in, ok := src.(*frame)
	if !ok {
		return nil, fmt.Errorf("%w: transfer of a foreign frame", engine.ErrNotSupported)
	}
	dst := astiav.AllocFrame()
	dst.SetPixelFormat(astiav.PixelFormatNv12)
	if err := in.f.TransferHardwareData(dst); err != nil {
		dst.Free()
		return nil, fmt.Errorf("ffmpeg: transfer from %s: %w", d.t, err)
	}
	return &frame{f: dst}, nil
}

func (d *hwDevice) Close() error {
	if d.ctx != nil {
		d.ctx.Free()
		d.ctx = nil
	}
	return nil
}
