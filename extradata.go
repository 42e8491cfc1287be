package videoio

import (
	"errors"
	"fmt"

	"github.com/thesyncim/videoio/internal/h264"
)

// ExtractParameterSetsH264 returns the SPS and PPS units carried in H.264
// extradata, either an AVCDecoderConfigurationRecord (AVCC, first byte 1) or
// an Annex B byte stream (first byte 0). Only the first SPS is returned. The
// slices alias b.
func ExtractParameterSetsH264(b []byte) (sps []byte, pps [][]byte, err error) {
	sps, pps, err = h264.ParameterSets(b)
	if err != nil {
		var ed *h264.ExtraDataError
		if errors.As(err, &ed) {
			return nil, nil, fmt.Errorf("%w: %s", ErrInvalidExtraData, ed.Reason)
		}
		return nil, nil, err
	}
	return sps, pps, nil
}
