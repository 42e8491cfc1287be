//go:build darwin || linux

package videoio

import (
	"sync"

	"github.com/ebitengine/purego"

	"github.com/thesyncim/videoio/engine"
	"github.com/thesyncim/videoio/internal/dynlib"
)

var avutil = dynlib.Library{
	Base:     "avutil",
	Versions: []string{"60", "59", "58", "57", "56"},
	PathEnv:  "VIDEOIO_AVUTIL_PATH",
}

var (
	avutilOnce  sync.Once
	avutilTypes []engine.HWDeviceType
)

// probeAVUtilHWDeviceTypes asks libavutil which device types it was built
// with. It returns nil when libavutil cannot be loaded.
func probeAVUtilHWDeviceTypes() []engine.HWDeviceType {
	avutilOnce.Do(func() {
		handle, err := avutil.Open()
		if err != nil {
			Logger().WithError(err).Trace("libavutil not loadable, skipping device probe")
			return
		}

		if _, err := purego.Dlsym(handle, "av_hwdevice_iterate_types"); err != nil {
			return
		}
		var (
			iterateTypes func(prev int32) int32
			typeName     func(t int32) uintptr
		)
		purego.RegisterLibFunc(&iterateTypes, handle, "av_hwdevice_iterate_types")
		purego.RegisterLibFunc(&typeName, handle, "av_hwdevice_get_type_name")

		// AV_HWDEVICE_TYPE_NONE starts and ends the iteration.
		for t := iterateTypes(0); t != 0; t = iterateTypes(t) {
			if dt, ok := engine.ParseHWDeviceType(dynlib.GoString(typeName(t))); ok {
				avutilTypes = append(avutilTypes, dt)
			}
		}
	})
	return avutilTypes
}
