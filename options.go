package videoio

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Options is a set of engine options, the key/value dictionary handed to
// demuxers, muxers and codecs.
type Options map[string]string

// PresetRTSPTransportTCP forces RTSP over TCP interleaved transport.
func PresetRTSPTransportTCP() Options {
	return Options{"rtsp_transport": "tcp"}
}

// PresetRTSPTransportTCPAndSaneTimeouts forces RTSP over TCP and sets 16 second
// read and socket timeouts so dead cameras do not hang readers.
func PresetRTSPTransportTCPAndSaneTimeouts() Options {
	return Options{
		"rtsp_transport": "tcp",
		"rw_timeout":     "16000000",
		"stimeout":       "16000000",
	}
}

// PresetFragmentedMOV configures the mov/mp4 muxer for fragmented output
// that can be streamed while being written.
func PresetFragmentedMOV() Options {
	return Options{"movflags": "faststart+frag_keyframe+frag_custom+empty_moov+omit_tfhd_offset"}
}

// PresetH264 is the default H.264 encoder preset.
func PresetH264() Options {
	return Options{"preset": "medium"}
}

// PresetH264Realtime tunes H.264 for low latency.
func PresetH264Realtime() Options {
	return Options{"preset": "medium", "tune": "zerolatency"}
}

// Clone returns a copy of o. A nil Options clones to an empty one.
func (o Options) Clone() Options {
	out := make(Options, len(o))
	for k, v := range o {
		out[k] = v
	}
	return out
}

// Merge returns a copy of o with every entry of others applied in order.
// Later values win.
func (o Options) Merge(others ...Options) Options {
	out := o.Clone()
	for _, other := range others {
		for k, v := range other {
			out[k] = v
		}
	}
	return out
}

// Get returns the value for key.
func (o Options) Get(key string) (string, bool) {
	v, ok := o[key]
	return v, ok
}

func (o Options) String() string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + o[k]
	}
	return strings.Join(parts, ":")
}

// RTSPInputOptions are the demuxer options commonly set for RTSP cameras.
type RTSPInputOptions struct {
	Transport string `mapstructure:"rtsp_transport,omitempty"`
	// Timeouts are in microseconds.
	ReadWriteTimeout int `mapstructure:"rw_timeout,omitempty"`
	SocketTimeout    int `mapstructure:"stimeout,omitempty"`
	BufferSize       int `mapstructure:"buffer_size,omitempty"`
}

// H264EncoderOptions are the libx264 private options.
type H264EncoderOptions struct {
	Preset  string `mapstructure:"preset,omitempty"`
	Tune    string `mapstructure:"tune,omitempty"`
	Profile string `mapstructure:"profile,omitempty"`
	CRF     int    `mapstructure:"crf,omitempty"`
	X264    string `mapstructure:"x264-params,omitempty"`
}

// OptionsFromStruct converts a struct with mapstructure tags into Options.
// Zero fields tagged omitempty are left out.
func OptionsFromStruct(v any) (Options, error) {
	var raw map[string]any
	if err := mapstructure.Decode(v, &raw); err != nil {
		return nil, fmt.Errorf("videoio: options from %T: %w", v, err)
	}
	out := make(Options, len(raw))
	for k, val := range raw {
		s, err := optionString(val)
		if err != nil {
			return nil, fmt.Errorf("videoio: option %q: %w", k, err)
		}
		out[k] = s
	}
	return out, nil
}

func optionString(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case bool:
		if x {
			return "1", nil
		}
		return "0", nil
	case int:
		return strconv.Itoa(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case uint32:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint64:
		return strconv.FormatUint(x, 10), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case fmt.Stringer:
		return x.String(), nil
	default:
		return "", fmt.Errorf("unsupported value type %T", v)
	}
}
