//go:build !(darwin || linux) || noh264

package native

import (
	"fmt"

	"github.com/thesyncim/videoio/engine"
)

func h264Available() bool { return false }

func newH264Encoder(engine.EncoderConfig) (engine.Encoder, error) {
	return nil, fmt.Errorf("%w: h264 encoder not built", engine.ErrUnknownCodec)
}

func newH264Decoder(engine.DecoderConfig) (engine.Decoder, error) {
	return nil, fmt.Errorf("%w: h264 decoder not built", engine.ErrUnknownCodec)
}
