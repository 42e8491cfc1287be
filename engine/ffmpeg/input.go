//go:build cgo && !noffmpeg

package ffmpeg

import (
	"fmt"
	"math"

	"github.com/asticode/go-astiav"

	"github.com/thesyncim/videoio/engine"
)

type input struct {
	fc      *astiav.FormatContext
	streams []engine.Stream
}

func openInput(url string, options map[string]string) (*input, error) {
	fc := astiav.AllocFormatContext()
	if fc == nil {
		return nil, fmt.Errorf("ffmpeg: allocate format context")
	}
	d, err := dictionary(options)
	if err != nil {
		fc.Free()
		return nil, err
	}
	defer freeDictionary(d)

	if err := fc.OpenInput(url, nil, d); err != nil {
		fc.Free()
		return nil, fmt.Errorf("ffmpeg: open %s: %w", url, err)
	}
	if err := fc.FindStreamInfo(nil); err != nil {
		fc.CloseInput()
		fc.Free()
		return nil, fmt.Errorf("ffmpeg: stream info of %s: %w", url, err)
	}

	in := &input{fc: fc}
	for _, s := range fc.Streams() {
		params, err := copyCodecParameters(s.CodecParameters())
		if err != nil {
			in.Close()
			return nil, err
		}
		in.streams = append(in.streams, engine.Stream{
			Index:     s.Index(),
			TimeBase:  fromAVRational(s.TimeBase()),
			FrameRate: fromAVRational(s.AvgFrameRate()),
			Duration:  s.Duration(),
			Frames:    s.NbFrames(),
			Params:    params,
		})
	}
	return in, nil
}

func (in *input) Streams() []engine.Stream {
	return append([]engine.Stream(nil), in.streams...)
}

func (in *input) ReadPacket() (engine.Packet, error) {
	pkt := astiav.AllocPacket()
	if err := in.fc.ReadFrame(pkt); err != nil {
		pkt.Free()
		return nil, codecErr(err)
	}
	return &packet{p: pkt}, nil
}

// Seek seeks across all streams, so timestamps are in AV_TIME_BASE units.
// FFmpeg lands on the key frame at or before ts; targets outside
// [minTS, maxTS] are rejected up front.
func (in *input) Seek(minTS, ts, maxTS int64) error {
	if ts == math.MinInt64 {
		ts = 0
	}
	if ts < minTS || ts > maxTS {
		return fmt.Errorf("ffmpeg: seek target %d outside [%d, %d]", ts, minTS, maxTS)
	}
	if err := in.fc.SeekFrame(-1, ts, astiav.NewSeekFlags(astiav.SeekFlagBackward)); err != nil {
		return codecErr(err)
	}
	return nil
}

// BestVideoStream returns the first video stream FFmpeg can decode.
func (in *input) BestVideoStream() (int, error) {
	for _, s := range in.streams {
		if s.Params.MediaType() != engine.MediaTypeVideo {
			continue
		}
		if astiav.FindDecoder(s.Params.(*codecParameters).cp.CodecID()) != nil {
			return s.Index, nil
		}
	}
	return 0, engine.ErrStreamNotFound
}

func (in *input) Close() error {
	if in.fc != nil {
		in.fc.CloseInput()
		in.fc.Free()
		in.fc = nil
	}
	return nil
}
