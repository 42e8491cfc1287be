// Package ffmpeg implements the videoio engine on FFmpeg through go-astiav.
//
// The engine is built with cgo and registers itself as "ffmpeg" with a
// priority above the native engine. Build with the noffmpeg tag, or without
// cgo, to leave it out; importing the package is then a no-op.
package ffmpeg
