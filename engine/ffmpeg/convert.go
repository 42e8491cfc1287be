//go:build cgo && !noffmpeg

package ffmpeg

import (
	"errors"
	"fmt"

	"github.com/asticode/go-astiav"

	"github.com/thesyncim/videoio/engine"
)

func toAVRational(r engine.Rational) astiav.Rational {
	return astiav.NewRational(r.Num, r.Den)
}

func fromAVRational(r astiav.Rational) engine.Rational {
	return engine.NewRational(r.Num(), r.Den())
}

func toAVPixelFormat(p engine.PixelFormat) astiav.PixelFormat {
	if p.IsNone() {
		return astiav.PixelFormatNone
	}
	return astiav.FindPixelFormatByName(string(p))
}

func fromAVPixelFormat(p astiav.PixelFormat) engine.PixelFormat {
	if p == astiav.PixelFormatNone {
		return engine.PixelFormatNone
	}
	return engine.PixelFormat(p.String())
}

// toAVCodecID resolves a codec by the name of its decoder, which matches the
// codec name for every codec videoio names.
func toAVCodecID(id engine.CodecID) (astiav.CodecID, bool) {
	c := astiav.FindDecoderByName(string(id))
	if c == nil {
		return 0, false
	}
	return c.ID(), true
}

func fromAVCodecID(id astiav.CodecID) engine.CodecID {
	return engine.CodecID(id.Name())
}

func fromAVMediaType(t astiav.MediaType) engine.MediaType {
	switch t {
	case astiav.MediaTypeVideo:
		return engine.MediaTypeVideo
	case astiav.MediaTypeAudio:
		return engine.MediaTypeAudio
	case astiav.MediaTypeData:
		return engine.MediaTypeData
	case astiav.MediaTypeSubtitle:
		return engine.MediaTypeSubtitle
	default:
		return engine.MediaTypeUnknown
	}
}

// dictionary converts options. The caller frees the result; nil options
// give a nil dictionary.
func dictionary(options map[string]string) (*astiav.Dictionary, error) {
	if len(options) == 0 {
		return nil, nil
	}
	d := astiav.NewDictionary()
	for k, v := range options {
		if err := d.Set(k, v, astiav.DictionaryFlags(0)); err != nil {
			d.Free()
			return nil, fmt.Errorf("ffmpeg: option %s=%s: %w", k, v, err)
		}
	}
	return d, nil
}

func freeDictionary(d *astiav.Dictionary) {
	if d != nil {
		d.Free()
	}
}

// codecErr maps the FFmpeg EAGAIN and EOF codes to the engine sentinels.
func codecErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, astiav.ErrEagain):
		return engine.ErrAgain
	case errors.Is(err, astiav.ErrEof):
		return engine.ErrEOF
	default:
		return err
	}
}
