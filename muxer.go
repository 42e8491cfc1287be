package videoio

import (
	"fmt"
	"maps"

	"github.com/thesyncim/videoio/engine"
)

type streamMapping struct {
	dst         int
	srcTimeBase Rational
}

// MuxerBuilder configures a Muxer. Errors from WithStream and WithStreams
// are reported by Build.
type MuxerBuilder[Out any] struct {
	dest        Destination[Out]
	interleaved bool
	mapping     map[int]streamMapping
	err         error
}

// NewMuxerBuilder starts building a Muxer writing to dest.
func NewMuxerBuilder[Out any](dest Destination[Out]) *MuxerBuilder[Out] {
	return &MuxerBuilder[Out]{dest: dest, mapping: make(map[int]streamMapping)}
}

// WithStream adds an output stream with the parameters of info. Packets of
// input stream info.Index are muxed into it.
func (b *MuxerBuilder[Out]) WithStream(info StreamInfo) *MuxerBuilder[Out] {
	if b.err != nil {
		return b
	}
	if info.Params == nil {
		b.err = fmt.Errorf("%w: stream %d", ErrMissingCodecParameters, info.Index)
		return b
	}
	dst, err := b.dest.Output().AddStream(info.Params)
	if err != nil {
		b.err = backendErr(fmt.Sprintf("add stream %d", info.Index), err)
		return b
	}
	b.mapping[info.Index] = streamMapping{dst: dst, srcTimeBase: info.TimeBase}
	return b
}

// WithStreams adds every stream of reader.
func (b *MuxerBuilder[Out]) WithStreams(reader *Reader) *MuxerBuilder[Out] {
	for i := range reader.Streams() {
		info, err := reader.StreamInfo(i)
		if err != nil {
			if b.err == nil {
				b.err = err
			}
			return b
		}
		b.WithStream(info)
	}
	return b
}

// Interleaved lets the muxer reorder packets by DTS.
func (b *MuxerBuilder[Out]) Interleaved() *MuxerBuilder[Out] {
	b.interleaved = true
	return b
}

// Build returns a Muxer with the streams added so far. Later calls on the
// builder do not change it.
func (b *MuxerBuilder[Out]) Build() (*Muxer[Out], error) {
	if b.err != nil {
		return nil, b.err
	}
	return &Muxer[Out]{dest: b.dest, interleaved: b.interleaved, mapping: maps.Clone(b.mapping)}, nil
}

// Muxer remuxes packets into a Destination without decoding them.
type Muxer[Out any] struct {
	dest        Destination[Out]
	interleaved bool
	mapping     map[int]streamMapping

	headerWritten  bool
	trailerWritten bool
	closed         bool
}

// FileMuxer muxes into a file or URL.
type FileMuxer = Muxer[struct{}]

// BufMuxer muxes into memory and returns the bytes of each write.
type BufMuxer = Muxer[[]byte]

// PacketizedBufMuxer muxes into memory and returns the packets of each
// write.
type PacketizedBufMuxer = Muxer[[][]byte]

// Mux writes p to the output stream mapped to its stream index. The header
// is written before the first packet and its output is included.
func (m *Muxer[Out]) Mux(p *Packet) (Out, error) {
	var head Out
	if m.closed || m.trailerWritten {
		return head, ErrUninitializedCodec
	}
	mapping, ok := m.mapping[p.StreamIndex()]
	if !ok {
		return head, fmt.Errorf("%w: input stream %d is not mapped", ErrStreamNotFound, p.StreamIndex())
	}
	if !m.headerWritten {
		var err error
		if head, err = writeHeader(m.dest); err != nil {
			return head, err
		}
		m.headerWritten = true
	}

	if !p.timeBase.Valid() {
		p.timeBase = mapping.srcTimeBase
	}
	out := m.dest.Output()
	p.SetStreamIndex(mapping.dst)
	p.Inner().SetPosition(-1)
	// Muxers may change the stream time base when writing the header.
	p.rescaleTo(out.StreamTimeBase(mapping.dst))

	var (
		body Out
		err  error
	)
	if m.interleaved {
		body, err = writeInterleavedPacket(m.dest, p)
	} else {
		body, err = writePacket(m.dest, p)
	}
	if err != nil {
		return head, err
	}
	return m.dest.join(head, body), nil
}

// Finish writes the trailer once. It does nothing when no packet was muxed.
func (m *Muxer[Out]) Finish() (Out, error) {
	var zero Out
	if !m.headerWritten || m.trailerWritten {
		return zero, nil
	}
	m.trailerWritten = true
	return writeTrailer(m.dest)
}

// Destination returns where the muxer writes.
func (m *Muxer[Out]) Destination() Destination[Out] { return m.dest }

// ParameterSetsResult holds the H.264 parameter sets of one output stream.
type ParameterSetsResult struct {
	StreamIndex int
	SPS         []byte
	PPS         [][]byte
	Err         error
}

// ParameterSetsH264 extracts SPS and PPS from every output stream. Streams
// that are not H.264 report ErrUnsupportedCodecParameterSets.
func (m *Muxer[Out]) ParameterSetsH264() []ParameterSetsResult {
	return parameterSetsH264(m.dest.Output())
}

func parameterSetsH264(out engine.Output) []ParameterSetsResult {
	n := out.StreamCount()
	results := make([]ParameterSetsResult, n)
	for i := range n {
		results[i].StreamIndex = i
		params := out.StreamParameters(i)
		if params == nil || params.CodecID() != engine.CodecH264 {
			results[i].Err = ErrUnsupportedCodecParameterSets
			continue
		}
		results[i].SPS, results[i].PPS, results[i].Err = ExtractParameterSetsH264(params.ExtraData())
	}
	return results
}

// Close finishes the output if needed and closes the destination.
func (m *Muxer[Out]) Close() error {
	if m.closed {
		return nil
	}
	if _, err := m.Finish(); err != nil {
		Logger().WithError(err).Warn("muxer finish on close failed")
	}
	m.closed = true
	return m.dest.Close()
}
