package native

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/thesyncim/videoio/engine"
	"github.com/thesyncim/videoio/internal/h264"
)

// defaultElementaryRate is used when neither the options nor the SPS give a
// frame rate.
var defaultElementaryRate = engine.NewRational(25, 1)

// openElementaryInput demuxes an H.264 Annex B file into access units held
// in memory. Timestamps are synthesized from the frame rate, taken from the
// "framerate" option, the SPS timing info or defaultElementaryRate in that
// order. Streams with B-frames get presentation order wrong.
func openElementaryInput(path string, options map[string]string) (*memContainer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("native: read %s: %w", path, err)
	}
	if !h264.IsAnnexB(data) {
		return nil, fmt.Errorf("%w: %s is not an H.264 Annex B stream", engine.ErrNotSupported, path)
	}

	aus := h264.AccessUnits(h264.SplitAnnexB(data))
	var (
		sps  []byte
		pps  [][]byte
		info h264.SPSInfo
	)
	for _, au := range aus {
		for _, nal := range au {
			switch h264.NALType(nal) {
			case h264.NALTypeSPS:
				if sps == nil {
					sps = nal
				}
			case h264.NALTypePPS:
				if len(pps) == 0 {
					pps = append(pps, nal)
				}
			}
		}
		if sps != nil && len(pps) > 0 {
			break
		}
	}
	if sps == nil {
		return nil, fmt.Errorf("native: %s has no sequence parameter set", path)
	}
	if info, err = h264.ParseSPS(sps); err != nil {
		return nil, fmt.Errorf("native: %s: %w", path, err)
	}

	rate, err := elementaryRate(options, info)
	if err != nil {
		return nil, err
	}
	tick, ok := rate.Invert().Rescale(1, memTimeBase)
	if !ok || tick <= 0 {
		return nil, fmt.Errorf("native: frame rate %v out of range", rate)
	}

	c := &memContainer{}
	for i, au := range aus {
		ts := int64(i) * tick
		b := h264.AnnexB(au...)
		p := NewPacket(0, b, ts, ts, h264.ContainsIDR(b))
		p.duration = tick
		c.packets = append(c.packets, p)
	}
	c.streams = []engine.Stream{{
		Index:     0,
		TimeBase:  memTimeBase,
		FrameRate: rate,
		Duration:  int64(len(aus)) * tick,
		Frames:    int64(len(aus)),
		Params: NewVideoParameters(engine.CodecH264, info.Width, info.Height, engine.PixelFormatYUV420P,
			h264.AnnexB(append([][]byte{sps}, pps...)...)),
	}}
	return c, nil
}

func elementaryRate(options map[string]string, info h264.SPSInfo) (engine.Rational, error) {
	if v, ok := options["framerate"]; ok {
		r, err := parseRate(v)
		if err != nil {
			return engine.Rational{}, fmt.Errorf("native: framerate option %q: %w", v, err)
		}
		return r, nil
	}
	if info.NumUnitsInTick > 0 && info.TimeScale > 0 {
		return engine.NewRational(int(info.TimeScale), 2*int(info.NumUnitsInTick)), nil
	}
	return defaultElementaryRate, nil
}

// parseRate accepts "25" or "30000/1001".
func parseRate(s string) (engine.Rational, error) {
	num, den, found := strings.Cut(s, "/")
	n, err := strconv.Atoi(num)
	if err != nil {
		return engine.Rational{}, err
	}
	d := 1
	if found {
		if d, err = strconv.Atoi(den); err != nil {
			return engine.Rational{}, err
		}
	}
	r := engine.NewRational(n, d)
	if !r.Valid() || n < 0 || d < 0 {
		return engine.Rational{}, fmt.Errorf("invalid rate")
	}
	return r, nil
}
