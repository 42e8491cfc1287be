//go:build !darwin && !linux

package videoio

import "github.com/thesyncim/videoio/engine"

func probeAVUtilHWDeviceTypes() []engine.HWDeviceType { return nil }
