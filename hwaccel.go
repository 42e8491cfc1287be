package videoio

import (
	"fmt"
	"slices"

	"github.com/thesyncim/videoio/engine"
)

// HWDeviceType identifies a hardware acceleration backend.
type HWDeviceType = engine.HWDeviceType

const (
	HWDeviceVdpau        = engine.HWDeviceVdpau
	HWDeviceCuda         = engine.HWDeviceCuda
	HWDeviceVaApi        = engine.HWDeviceVaApi
	HWDeviceDxva2        = engine.HWDeviceDxva2
	HWDeviceQsv          = engine.HWDeviceQsv
	HWDeviceVideoToolbox = engine.HWDeviceVideoToolbox
	HWDeviceD3D11Va      = engine.HWDeviceD3D11Va
	HWDeviceDrm          = engine.HWDeviceDrm
	HWDeviceOpenCl       = engine.HWDeviceOpenCl
	HWDeviceMediaCodec   = engine.HWDeviceMediaCodec
	HWDeviceVulkan       = engine.HWDeviceVulkan
	HWDeviceD3D12Va      = engine.HWDeviceD3D12Va
)

// ParseHWDeviceType maps an FFmpeg device name such as "cuda" to its type.
func ParseHWDeviceType(name string) (HWDeviceType, bool) {
	return engine.ParseHWDeviceType(name)
}

// ListAvailableHWDeviceTypes returns the device types the default engine
// supports, together with those reported by a loadable libavutil.
func ListAvailableHWDeviceTypes() []HWDeviceType {
	var out []HWDeviceType
	if eng, err := engine.Default(); err == nil {
		out = append(out, eng.HWDeviceTypes()...)
	}
	for _, t := range probeAVUtilHWDeviceTypes() {
		if !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	slices.Sort(out)
	return out
}

// IsAvailable reports whether t can be used on this machine.
func IsAvailable(t HWDeviceType) bool {
	return slices.Contains(ListAvailableHWDeviceTypes(), t)
}

// openHWDevice creates a device for decoding.
func openHWDevice(eng engine.Engine, t HWDeviceType) (engine.HWDevice, error) {
	if !slices.Contains(eng.HWDeviceTypes(), t) {
		return nil, fmt.Errorf("%w: %s with engine %s", ErrUnsupportedHWDeviceType, t, eng.Name())
	}
	dev, err := eng.CreateHWDevice(t)
	if err != nil {
		return nil, backendErr(fmt.Sprintf("create %s device", t), err)
	}
	Logger().WithField("device", t.String()).Debug("hardware device created")
	return dev, nil
}
