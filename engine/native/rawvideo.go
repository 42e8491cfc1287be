package native

import (
	"fmt"

	"github.com/thesyncim/videoio/engine"
)

// delayQueue holds codec output back until more than delay items are
// queued, or input has ended.
type delayQueue[T any] struct {
	delay int
	items []T
	eof   bool
}

func (q *delayQueue[T]) push(v T) error {
	if q.eof {
		return fmt.Errorf("native: input after end of stream")
	}
	q.items = append(q.items, v)
	return nil
}

func (q *delayQueue[T]) pop() (T, error) {
	var zero T
	if len(q.items) == 0 {
		if q.eof {
			return zero, engine.ErrEOF
		}
		return zero, engine.ErrAgain
	}
	if !q.eof && len(q.items) <= q.delay {
		return zero, engine.ErrAgain
	}
	v := q.items[0]
	q.items = q.items[1:]
	return v, nil
}

// rawEncoder stores pictures uncompressed.
type rawEncoder struct {
	cfg      engine.EncoderConfig
	timeBase engine.Rational
	duration int64
	queue    delayQueue[*Packet]
}

func newRawEncoder(cfg engine.EncoderConfig, delay int) *rawEncoder {
	tb := cfg.TimeBase
	if !tb.Valid() {
		tb = cfg.FrameRate.Invert()
	}
	e := &rawEncoder{cfg: cfg, timeBase: tb, queue: delayQueue[*Packet]{delay: delay}}
	if cfg.FrameRate.Valid() {
		e.duration, _ = cfg.FrameRate.Invert().Rescale(1, tb)
	}
	return e
}

func (e *rawEncoder) Feed(f engine.Frame) error {
	if f == nil {
		e.queue.eof = true
		return nil
	}
	if f.Width() != e.cfg.Width || f.Height() != e.cfg.Height || f.PixelFormat() != e.cfg.PixelFormat {
		return fmt.Errorf("native: rawvideo encoder got %dx%d %s, opened for %dx%d %s",
			f.Width(), f.Height(), f.PixelFormat(), e.cfg.Width, e.cfg.Height, e.cfg.PixelFormat)
	}
	b, err := f.Bytes()
	if err != nil {
		return err
	}
	p := NewPacket(0, b, f.PTS(), f.PTS(), true)
	p.duration = e.duration
	return e.queue.push(p)
}

func (e *rawEncoder) TryDrain() (engine.Packet, error) {
	p, err := e.queue.pop()
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (e *rawEncoder) TimeBase() engine.Rational       { return e.timeBase }
func (e *rawEncoder) Width() int                      { return e.cfg.Width }
func (e *rawEncoder) Height() int                     { return e.cfg.Height }
func (e *rawEncoder) PixelFormat() engine.PixelFormat { return e.cfg.PixelFormat }

func (e *rawEncoder) Parameters() engine.CodecParameters {
	return NewVideoParameters(engine.CodecRawVideo, e.cfg.Width, e.cfg.Height, e.cfg.PixelFormat, nil)
}

func (e *rawEncoder) Close() error {
	e.queue.items = nil
	return nil
}

// rawDecoder turns uncompressed packets back into frames.
type rawDecoder struct {
	width, height int
	format        engine.PixelFormat
	timeBase      engine.Rational
	queue         delayQueue[*Frame]
}

func newRawDecoder(cfg engine.DecoderConfig, delay int) *rawDecoder {
	return &rawDecoder{
		width:    cfg.Params.Width(),
		height:   cfg.Params.Height(),
		format:   cfg.Params.PixelFormat(),
		timeBase: cfg.TimeBase,
		queue:    delayQueue[*Frame]{delay: delay},
	}
}

func (d *rawDecoder) Feed(p engine.Packet) error {
	if p == nil {
		d.queue.eof = true
		return nil
	}
	f, err := NewFrame(d.width, d.height, d.format)
	if err != nil {
		return err
	}
	if err := f.SetBytes(p.Data()); err != nil {
		return err
	}
	f.pts = p.PTS()
	f.pktDTS = p.DTS()
	f.key = p.Key()
	return d.queue.push(f)
}

func (d *rawDecoder) TryDrain() (engine.Frame, error) {
	f, err := d.queue.pop()
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (d *rawDecoder) TimeBase() engine.Rational       { return d.timeBase }
func (d *rawDecoder) Width() int                      { return d.width }
func (d *rawDecoder) Height() int                     { return d.height }
func (d *rawDecoder) PixelFormat() engine.PixelFormat { return d.format }

func (d *rawDecoder) Close() error {
	d.queue.items = nil
	return nil
}
