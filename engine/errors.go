package engine

import "errors"

var (
	// ErrAgain means the codec needs more input before it can produce output.
	ErrAgain = errors.New("engine: resource temporarily unavailable")
	// ErrEOF means the codec or input has been fully drained.
	ErrEOF = errors.New("engine: end of stream")
	// ErrNotSupported is returned for operations an engine does not implement.
	ErrNotSupported = errors.New("engine: operation not supported")
	// ErrUnknownEngine is returned by Lookup for unregistered names.
	ErrUnknownEngine = errors.New("engine: unknown engine")
	// ErrNoEngine is returned by Default when nothing is registered.
	ErrNoEngine = errors.New("engine: no engine registered")
	// ErrUnknownCodec is returned when a codec is not available in the engine.
	ErrUnknownCodec = errors.New("engine: codec not found")
	// ErrStreamNotFound is returned for out-of-range stream indices.
	ErrStreamNotFound = errors.New("engine: stream not found")
)
