package videoio

import (
	"errors"
	"fmt"
)

var (
	ErrReadExhausted                 = errors.New("videoio: stream exhausted")
	ErrWriteRetryLimitReached        = errors.New("videoio: cannot write, retry limit reached")
	ErrInvalidFrameFormat            = errors.New("videoio: provided frame does not match expected dimensions and/or pixel format")
	ErrInvalidExtraData              = errors.New("videoio: codec parameters extradata is corrupted")
	ErrMissingCodecParameters        = errors.New("videoio: codec parameters missing")
	ErrInvalidResizeParameters       = errors.New("videoio: cannot resize frame into provided dimensions")
	ErrUnsupportedCodecParameterSets = errors.New("videoio: extracting parameter sets for this codec is not supported")
	ErrUninitializedCodec            = errors.New("videoio: uninitialized codec")
	ErrUnsupportedHWDeviceType       = errors.New("videoio: unsupported hardware acceleration device type")
	ErrStreamNotFound                = errors.New("videoio: stream not found")
)

// BackendError wraps a failure reported by the engine.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("videoio: %s: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

func backendErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var be *BackendError
	if errors.As(err, &be) {
		return err
	}
	return &BackendError{Op: op, Err: err}
}
