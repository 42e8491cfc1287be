package native

import (
	"bufio"
	"fmt"
	"os"

	"github.com/thesyncim/videoio/engine"
	"github.com/thesyncim/videoio/internal/h264"
)

// streamOutput writes the packets of a single stream back to back: raw
// pictures for "rawvideo", an Annex B elementary stream for "h264".
type streamOutput struct {
	format   string
	w        *bufio.Writer
	file     *os.File
	params   engine.CodecParameters
	timeBase engine.Rational
	header   bool
}

func newStreamOutput(format string, cfg engine.OutputConfig) (engine.Output, error) {
	o := &streamOutput{format: format, timeBase: memTimeBase}
	sink := cfg.Sink
	if sink == nil {
		if cfg.URL == "" {
			return nil, fmt.Errorf("native: %s output needs a url or sink", format)
		}
		f, err := os.Create(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("native: create %s: %w", cfg.URL, err)
		}
		o.file = f
		sink = f
	}
	o.w = bufio.NewWriter(sink)
	return o, nil
}

func (o *streamOutput) AddStream(params engine.CodecParameters) (int, error) {
	if o.params != nil {
		return 0, fmt.Errorf("%w: %s output carries a single stream", engine.ErrNotSupported, o.format)
	}
	want := engine.CodecRawVideo
	if o.format == "h264" {
		want = engine.CodecH264
	}
	if params.CodecID() != want {
		return 0, fmt.Errorf("%w: %s stream in %s output", engine.ErrNotSupported, params.CodecID(), o.format)
	}
	o.params = copyParameters(params)
	return 0, nil
}

func (o *streamOutput) AddEncoderStream(enc engine.Encoder) (int, error) {
	i, err := o.AddStream(enc.Parameters())
	if err != nil {
		return 0, err
	}
	o.timeBase = enc.TimeBase()
	return i, nil
}

func (o *streamOutput) NeedsGlobalHeader() bool { return false }

func (o *streamOutput) StreamCount() int {
	if o.params == nil {
		return 0
	}
	return 1
}

func (o *streamOutput) StreamTimeBase(i int) engine.Rational {
	if i != 0 {
		return engine.Rational{}
	}
	return o.timeBase
}

func (o *streamOutput) StreamParameters(i int) engine.CodecParameters {
	if i != 0 {
		return nil
	}
	return o.params
}

func (o *streamOutput) WriteHeader() error {
	if o.params == nil {
		return fmt.Errorf("native: %s output has no stream", o.format)
	}
	o.header = true
	if o.format != "h264" {
		return nil
	}
	// Parameter sets from a global header go in front of the first access
	// unit.
	extra := o.params.ExtraData()
	if len(extra) == 0 {
		return nil
	}
	sps, pps, err := h264.ParameterSets(extra)
	if err != nil {
		return err
	}
	_, err = o.w.Write(h264.AnnexB(append([][]byte{sps}, pps...)...))
	return err
}

func (o *streamOutput) WritePacket(p engine.Packet) error {
	if !o.header {
		return fmt.Errorf("native: packet written before header")
	}
	if p.StreamIndex() != 0 {
		return fmt.Errorf("%w: %d", engine.ErrStreamNotFound, p.StreamIndex())
	}
	data := p.Data()
	if o.format == "h264" {
		data = h264.AnnexB(h264.SplitAccessUnit(data)...)
	}
	_, err := o.w.Write(data)
	return err
}

// WriteInterleavedPacket writes immediately; a single stream needs no
// interleaving.
func (o *streamOutput) WriteInterleavedPacket(p engine.Packet) error {
	return o.WritePacket(p)
}

func (o *streamOutput) WriteTrailer() error { return o.w.Flush() }

func (o *streamOutput) Flush() error { return o.w.Flush() }

func (o *streamOutput) SDP() (string, error) {
	return "", fmt.Errorf("%w: sdp for %s output", engine.ErrNotSupported, o.format)
}

func (o *streamOutput) Close() error {
	err := o.w.Flush()
	if o.file != nil {
		if cerr := o.file.Close(); err == nil {
			err = cerr
		}
		o.file = nil
	}
	return err
}
