package engine

import "strings"

// PixelFormat names a pixel layout using the FFmpeg pixel format name.
type PixelFormat string

const (
	PixelFormatNone    PixelFormat = "none"
	PixelFormatYUV420P PixelFormat = "yuv420p"
	PixelFormatYUV422P PixelFormat = "yuv422p"
	PixelFormatYUV444P PixelFormat = "yuv444p"
	PixelFormatNV12    PixelFormat = "nv12"
	PixelFormatRGB24   PixelFormat = "rgb24"
	PixelFormatRGBA    PixelFormat = "rgba"
	PixelFormatBGRA    PixelFormat = "bgra"
	PixelFormatGray8   PixelFormat = "gray"
)

// IsNone reports whether the format is unset.
func (p PixelFormat) IsNone() bool { return p == "" || p == PixelFormatNone }

func (p PixelFormat) String() string {
	if p == "" {
		return string(PixelFormatNone)
	}
	return string(p)
}

// PlaneCount returns the number of planes of the format, 0 if unknown.
func (p PixelFormat) PlaneCount() int {
	switch p {
	case PixelFormatYUV420P, PixelFormatYUV422P, PixelFormatYUV444P:
		return 3 // Y, U, V
	case PixelFormatNV12:
		return 2 // Y, UV
	case PixelFormatRGB24, PixelFormatRGBA, PixelFormatBGRA, PixelFormatGray8:
		return 1 // Packed
	default:
		return 0
	}
}

// BufferSize returns the size of a tightly packed picture, 0 if the format
// is unknown. Chroma dimensions round up.
func (p PixelFormat) BufferSize(width, height int) int {
	cw, ch := (width+1)/2, (height+1)/2
	switch p {
	case PixelFormatYUV420P:
		return width*height + 2*cw*ch
	case PixelFormatNV12:
		return width*height + 2*cw*ch
	case PixelFormatYUV422P:
		return width*height + 2*cw*height
	case PixelFormatYUV444P, PixelFormatRGB24:
		return 3 * width * height
	case PixelFormatRGBA, PixelFormatBGRA:
		return 4 * width * height
	case PixelFormatGray8:
		return width * height
	default:
		return 0
	}
}

// CodecID names a codec using the FFmpeg codec name.
type CodecID string

const (
	CodecNone     CodecID = "none"
	CodecH264     CodecID = "h264"
	CodecHEVC     CodecID = "hevc"
	CodecVP8      CodecID = "vp8"
	CodecVP9      CodecID = "vp9"
	CodecAV1      CodecID = "av1"
	CodecMJPEG    CodecID = "mjpeg"
	CodecRawVideo CodecID = "rawvideo"
)

func (c CodecID) String() string { return string(c) }

// MediaType identifies the kind of data carried by a stream.
type MediaType int

const (
	MediaTypeUnknown MediaType = iota
	MediaTypeVideo
	MediaTypeAudio
	MediaTypeData
	MediaTypeSubtitle
)

func (m MediaType) String() string {
	switch m {
	case MediaTypeVideo:
		return "video"
	case MediaTypeAudio:
		return "audio"
	case MediaTypeData:
		return "data"
	case MediaTypeSubtitle:
		return "subtitle"
	default:
		return "unknown"
	}
}

// HWDeviceType identifies a hardware acceleration backend.
type HWDeviceType int

const (
	HWDeviceNone HWDeviceType = iota
	HWDeviceVdpau
	HWDeviceCuda
	HWDeviceVaApi
	HWDeviceDxva2
	HWDeviceQsv
	HWDeviceVideoToolbox
	HWDeviceD3D11Va
	HWDeviceDrm
	HWDeviceOpenCl
	HWDeviceMediaCodec
	HWDeviceVulkan
	HWDeviceD3D12Va
	hwDeviceCount
)

var hwDeviceNames = [hwDeviceCount]string{
	HWDeviceNone:         "none",
	HWDeviceVdpau:        "vdpau",
	HWDeviceCuda:         "cuda",
	HWDeviceVaApi:        "vaapi",
	HWDeviceDxva2:        "dxva2",
	HWDeviceQsv:          "qsv",
	HWDeviceVideoToolbox: "videotoolbox",
	HWDeviceD3D11Va:      "d3d11va",
	HWDeviceDrm:          "drm",
	HWDeviceOpenCl:       "opencl",
	HWDeviceMediaCodec:   "mediacodec",
	HWDeviceVulkan:       "vulkan",
	HWDeviceD3D12Va:      "d3d12va",
}

// String returns the FFmpeg device type name.
func (t HWDeviceType) String() string {
	if t < 0 || t >= hwDeviceCount {
		return "unknown"
	}
	return hwDeviceNames[t]
}

// ParseHWDeviceType maps an FFmpeg device type name to an HWDeviceType.
func ParseHWDeviceType(name string) (HWDeviceType, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i := HWDeviceVdpau; i < hwDeviceCount; i++ {
		if hwDeviceNames[i] == name {
			return i, true
		}
	}
	return HWDeviceNone, false
}

// HWDeviceTypes returns every known device type, excluding HWDeviceNone.
func HWDeviceTypes() []HWDeviceType {
	out := make([]HWDeviceType, 0, hwDeviceCount-1)
	for i := HWDeviceVdpau; i < hwDeviceCount; i++ {
		out = append(out, i)
	}
	return out
}

// ThreadingKind selects how a codec parallelizes work.
type ThreadingKind int

const (
	ThreadingFrame ThreadingKind = iota
	ThreadingSlice
)

func (k ThreadingKind) String() string {
	if k == ThreadingSlice {
		return "slice"
	}
	return "frame"
}

// Threading configures codec threads. Count 0 lets the engine decide.
type Threading struct {
	Kind  ThreadingKind
	Count int
}

// ScaleFlags selects the scaling algorithm. Zero uses the engine default.
type ScaleFlags int

const (
	ScaleFlagArea ScaleFlags = 1 << iota
	ScaleFlagBilinear
	ScaleFlagBicubic
	ScaleFlagFastBilinear
)

// LogLevel is the severity of an engine log line.
type LogLevel int

const (
	LogLevelTrace LogLevel = iota
	LogLevelDebug
	LogLevelInfo
	LogLevelWarn
	LogLevelError
	LogLevelFatal
)
