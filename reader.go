package videoio

import (
	"errors"
	"fmt"
	"math"

	"github.com/thesyncim/videoio/engine"
)

// DefaultReadRetryLimit is the number of consecutive empty reads tolerated
// before a Reader reports ErrReadExhausted.
const DefaultReadRetryLimit = 3

// seekWindow is the tolerance around a seek target in microseconds.
const seekWindow = 1000000

// ReaderBuilder configures a Reader.
type ReaderBuilder struct {
	source     Location
	options    Options
	eng        engine.Engine
	retryLimit int
}

// NewReaderBuilder starts building a Reader for source.
func NewReaderBuilder(source Location) *ReaderBuilder {
	return &ReaderBuilder{source: source, retryLimit: DefaultReadRetryLimit}
}

// WithOptions sets demuxer options, e.g. PresetRTSPTransportTCP().
func (b *ReaderBuilder) WithOptions(o Options) *ReaderBuilder {
	b.options = o
	return b
}

// WithEngine selects the engine instead of the default one.
func (b *ReaderBuilder) WithEngine(e engine.Engine) *ReaderBuilder {
	b.eng = e
	return b
}

// WithReadRetryLimit sets how many consecutive empty reads are tolerated.
func (b *ReaderBuilder) WithReadRetryLimit(n int) *ReaderBuilder {
	if n >= 0 {
		b.retryLimit = n
	}
	return b
}

// Build opens the input.
func (b *ReaderBuilder) Build() (*Reader, error) {
	eng, err := resolveEngine(b.eng)
	if err != nil {
		return nil, err
	}
	in, err := eng.OpenInput(b.source.String(), b.options)
	if err != nil {
		return nil, backendErr(fmt.Sprintf("open input %s", b.source), err)
	}
	Logger().WithField("source", b.source.String()).
		WithField("streams", len(in.Streams())).
		Debug("input opened")
	return &Reader{
		source:     b.source,
		input:      in,
		eng:        eng,
		retryLimit: b.retryLimit,
	}, nil
}

// Reader demuxes packets from a file or network source.
type Reader struct {
	source     Location
	input      engine.Input
	eng        engine.Engine
	retryLimit int
}

// NewReader opens source with default settings.
func NewReader(source Location) (*Reader, error) {
	return NewReaderBuilder(source).Build()
}

// Source returns the location the reader was opened on.
func (r *Reader) Source() Location { return r.source }

// Engine returns the engine backing the reader.
func (r *Reader) Engine() engine.Engine { return r.eng }

// Input returns the engine input.
func (r *Reader) Input() engine.Input { return r.input }

// Read returns the next packet of streamIndex. Packets of other streams are
// dropped.
func (r *Reader) Read(streamIndex int) (*Packet, error) {
	tb, err := r.streamTimeBase(streamIndex)
	if err != nil {
		return nil, err
	}
	empty := 0
	for {
		p, err := r.input.ReadPacket()
		switch {
		case err == nil:
			empty = 0
			if p.StreamIndex() != streamIndex {
				p.Release()
				continue
			}
			return NewPacket(p, tb), nil
		case isEmptyRead(err):
			empty++
			if empty > r.retryLimit {
				return nil, ErrReadExhausted
			}
		default:
			return nil, backendErr("read packet", err)
		}
	}
}

// ReadAny returns the next packet of any stream in its stream time base.
func (r *Reader) ReadAny() (*Packet, error) {
	empty := 0
	for {
		p, err := r.input.ReadPacket()
		switch {
		case err == nil:
			tb, terr := r.streamTimeBase(p.StreamIndex())
			if terr != nil {
				p.Release()
				continue
			}
			return NewPacket(p, tb), nil
		case isEmptyRead(err):
			empty++
			if empty > r.retryLimit {
				return nil, ErrReadExhausted
			}
		default:
			return nil, backendErr("read packet", err)
		}
	}
}

func isEmptyRead(err error) bool {
	return errors.Is(err, engine.ErrEOF) || errors.Is(err, engine.ErrAgain)
}

// StreamInfo describes stream i.
func (r *Reader) StreamInfo(i int) (StreamInfo, error) {
	s, err := r.stream(i)
	if err != nil {
		return StreamInfo{}, err
	}
	return StreamInfo{Index: s.Index, Params: s.Params, TimeBase: s.TimeBase}, nil
}

// Streams returns the number of streams in the input.
func (r *Reader) Streams() int { return len(r.input.Streams()) }

// Seek moves to ms milliseconds, accepting any position within one second.
func (r *Reader) Seek(ms int64) error {
	ts := ms * 1000
	if err := r.input.Seek(ts-seekWindow, ts, ts+seekWindow); err != nil {
		return backendErr("seek", err)
	}
	return nil
}

// SeekToStart rewinds to the first packet.
func (r *Reader) SeekToStart() error {
	if err := r.input.Seek(math.MinInt64, math.MinInt64, math.MaxInt64); err != nil {
		return backendErr("seek to start", err)
	}
	return nil
}

// BestVideoStreamIndex returns the index of the most suitable video stream.
func (r *Reader) BestVideoStreamIndex() (int, error) {
	i, err := r.input.BestVideoStream()
	if err != nil {
		return 0, fmt.Errorf("%w: no video stream in %s", ErrStreamNotFound, r.source)
	}
	return i, nil
}

// Close releases the input.
func (r *Reader) Close() error {
	if r.input == nil {
		return nil
	}
	err := r.input.Close()
	r.input = nil
	return backendErr("close input", err)
}

func (r *Reader) stream(i int) (engine.Stream, error) {
	streams := r.input.Streams()
	if i < 0 || i >= len(streams) {
		return engine.Stream{}, fmt.Errorf("%w: index %d", ErrStreamNotFound, i)
	}
	return streams[i], nil
}

func (r *Reader) streamTimeBase(i int) (Rational, error) {
	s, err := r.stream(i)
	if err != nil {
		return Rational{}, err
	}
	return s.TimeBase, nil
}
