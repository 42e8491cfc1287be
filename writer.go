package videoio

import (
	"bytes"
	"fmt"

	"github.com/thesyncim/videoio/engine"
)

// PacketSize is the largest packet a PacketizedBufWriter emits.
const PacketSize = 1024

// Destination is where muxed output goes. Out is what one header, packet or
// trailer write produces: nothing for files, bytes for buffers, packets for
// packetized buffers. The interface is sealed; use Writer, BufWriter or
// PacketizedBufWriter.
type Destination[Out any] interface {
	// Output returns the engine muxer.
	Output() engine.Output
	// Engine returns the engine the output was opened with.
	Engine() engine.Engine
	Close() error

	collect(write func() error) (Out, error)
	join(a, b Out) Out
}

type writerBase struct {
	eng engine.Engine
	out engine.Output
}

func (w *writerBase) Output() engine.Output { return w.out }

func (w *writerBase) Engine() engine.Engine { return w.eng }

func (w *writerBase) Close() error {
	if w.out == nil {
		return nil
	}
	err := w.out.Close()
	w.out = nil
	return backendErr("close output", err)
}

func writeHeader[Out any](d Destination[Out]) (Out, error) {
	return d.collect(func() error {
		return backendErr("write header", d.Output().WriteHeader())
	})
}

func writePacket[Out any](d Destination[Out], p *Packet) (Out, error) {
	return d.collect(func() error {
		return backendErr("write packet", d.Output().WritePacket(p.Inner()))
	})
}

func writeInterleavedPacket[Out any](d Destination[Out], p *Packet) (Out, error) {
	return d.collect(func() error {
		return backendErr("write interleaved packet", d.Output().WriteInterleavedPacket(p.Inner()))
	})
}

func writeTrailer[Out any](d Destination[Out]) (Out, error) {
	return d.collect(func() error {
		return backendErr("write trailer", d.Output().WriteTrailer())
	})
}

type writerConfig struct {
	format  string
	options Options
	eng     engine.Engine
}

func (c writerConfig) open(cfg engine.OutputConfig) (*writerBase, error) {
	eng, err := resolveEngine(c.eng)
	if err != nil {
		return nil, err
	}
	cfg.Format = c.format
	cfg.Options = c.options
	out, err := eng.OpenOutput(cfg)
	if err != nil {
		name := cfg.URL
		if name == "" {
			name = cfg.Format
		}
		return nil, backendErr(fmt.Sprintf("open output %s", name), err)
	}
	return &writerBase{eng: eng, out: out}, nil
}

// Writer muxes into a file or network URL.
type Writer struct {
	writerBase
	dest Location
}

var _ Destination[struct{}] = (*Writer)(nil)

// NewWriter opens dest guessing the container from its extension.
func NewWriter(dest Location) (*Writer, error) {
	return NewWriterBuilder(dest).Build()
}

// WriterBuilder configures a Writer.
type WriterBuilder struct {
	dest Location
	cfg  writerConfig
}

func NewWriterBuilder(dest Location) *WriterBuilder {
	return &WriterBuilder{dest: dest}
}

// WithFormat forces the container format, e.g. "mp4" or "rtsp".
func (b *WriterBuilder) WithFormat(format string) *WriterBuilder {
	b.cfg.format = format
	return b
}

func (b *WriterBuilder) WithOptions(o Options) *WriterBuilder {
	b.cfg.options = o
	return b
}

func (b *WriterBuilder) WithEngine(e engine.Engine) *WriterBuilder {
	b.cfg.eng = e
	return b
}

func (b *WriterBuilder) Build() (*Writer, error) {
	base, err := b.cfg.open(engine.OutputConfig{URL: b.dest.String()})
	if err != nil {
		return nil, err
	}
	return &Writer{writerBase: *base, dest: b.dest}, nil
}

// Destination returns the location being written.
func (w *Writer) Destination() Location { return w.dest }

func (w *Writer) collect(write func() error) (struct{}, error) {
	return struct{}{}, write()
}

func (w *Writer) join(_, _ struct{}) struct{} { return struct{}{} }

// BufWriter muxes into memory. Every write returns the bytes it produced.
type BufWriter struct {
	writerBase
	buf *bytes.Buffer
}

var _ Destination[[]byte] = (*BufWriter)(nil)

// NewBufWriter muxes into memory using container format.
func NewBufWriter(format string) (*BufWriter, error) {
	return NewBufWriterBuilder(format).Build()
}

// BufWriterBuilder configures a BufWriter.
type BufWriterBuilder struct {
	cfg writerConfig
}

func NewBufWriterBuilder(format string) *BufWriterBuilder {
	return &BufWriterBuilder{cfg: writerConfig{format: format}}
}

func (b *BufWriterBuilder) WithOptions(o Options) *BufWriterBuilder {
	b.cfg.options = o
	return b
}

func (b *BufWriterBuilder) WithEngine(e engine.Engine) *BufWriterBuilder {
	b.cfg.eng = e
	return b
}

func (b *BufWriterBuilder) Build() (*BufWriter, error) {
	buf := new(bytes.Buffer)
	base, err := b.cfg.open(engine.OutputConfig{Sink: buf})
	if err != nil {
		return nil, err
	}
	return &BufWriter{writerBase: *base, buf: buf}, nil
}

func (w *BufWriter) collect(write func() error) ([]byte, error) {
	// A failed write may leave partial output behind; drop it so the
	// next call does not return it.
	if err := write(); err != nil {
		w.buf.Reset()
		return nil, err
	}
	if err := w.out.Flush(); err != nil {
		w.buf.Reset()
		return nil, backendErr("flush output", err)
	}
	if w.buf.Len() == 0 {
		return nil, nil
	}
	out := bytes.Clone(w.buf.Bytes())
	w.buf.Reset()
	return out, nil
}

func (w *BufWriter) join(a, b []byte) []byte {
	if len(a) == 0 {
		return b
	}
	return append(a, b...)
}

// packetSink records every write as its own packet.
type packetSink struct {
	packets [][]byte
}

func (s *packetSink) Write(b []byte) (int, error) {
	s.packets = append(s.packets, bytes.Clone(b))
	return len(b), nil
}

func (s *packetSink) take() [][]byte {
	out := s.packets
	s.packets = nil
	return out
}

// PacketizedBufWriter muxes into memory and returns individual packets no
// larger than PacketSize. It is used for RTP.
type PacketizedBufWriter struct {
	writerBase
	sink *packetSink
}

var _ Destination[[][]byte] = (*PacketizedBufWriter)(nil)

func NewPacketizedBufWriter(format string) (*PacketizedBufWriter, error) {
	return NewPacketizedBufWriterBuilder(format).Build()
}

// PacketizedBufWriterBuilder configures a PacketizedBufWriter.
type PacketizedBufWriterBuilder struct {
	cfg writerConfig
}

func NewPacketizedBufWriterBuilder(format string) *PacketizedBufWriterBuilder {
	return &PacketizedBufWriterBuilder{cfg: writerConfig{format: format}}
}

func (b *PacketizedBufWriterBuilder) WithOptions(o Options) *PacketizedBufWriterBuilder {
	b.cfg.options = o
	return b
}

func (b *PacketizedBufWriterBuilder) WithEngine(e engine.Engine) *PacketizedBufWriterBuilder {
	b.cfg.eng = e
	return b
}

func (b *PacketizedBufWriterBuilder) Build() (*PacketizedBufWriter, error) {
	sink := new(packetSink)
	base, err := b.cfg.open(engine.OutputConfig{Sink: sink, PacketSize: PacketSize})
	if err != nil {
		return nil, err
	}
	return &PacketizedBufWriter{writerBase: *base, sink: sink}, nil
}

func (w *PacketizedBufWriter) collect(write func() error) ([][]byte, error) {
	if err := write(); err != nil {
		w.sink.take()
		return nil, err
	}
	if err := w.out.Flush(); err != nil {
		return nil, backendErr("flush output", err)
	}
	return w.sink.take(), nil
}

func (w *PacketizedBufWriter) join(a, b [][]byte) [][]byte {
	if len(a) == 0 {
		return b
	}
	return append(a, b...)
}
