package videoio

import "github.com/thesyncim/videoio/engine"

// Threading configures codec threads. Count 0 lets the engine decide.
type Threading = engine.Threading

// ThreadingKind selects frame or slice threading.
type ThreadingKind = engine.ThreadingKind

const (
	ThreadingFrame = engine.ThreadingFrame
	ThreadingSlice = engine.ThreadingSlice
)

// StreamInfo describes a demuxed stream well enough to recreate it in
// another container.
type StreamInfo struct {
	Index    int
	Params   engine.CodecParameters
	TimeBase Rational
}

// IsVideo reports whether the stream carries video.
func (s StreamInfo) IsVideo() bool {
	return s.Params != nil && s.Params.MediaType() == engine.MediaTypeVideo
}
