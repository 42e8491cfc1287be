//go:build cgo && !noffmpeg

package ffmpeg

import (
	"fmt"
	"strconv"

	"github.com/asticode/go-astiav"
	"github.com/hashicorp/go-multierror"

	"github.com/thesyncim/videoio/engine"
)

// sinkBufferSize is the AVIO buffer used for sinks without a packet size.
const sinkBufferSize = 4096

type output struct {
	fc      *astiav.FormatContext
	pb      *astiav.IOContext
	ownsPB  bool // pb came from AllocIOContext and must be freed
	url     string
	options map[string]string
}

func openOutput(cfg engine.OutputConfig) (*output, error) {
	// The url is kept with a Sink too; the SDP writer reads the destination
	// from it.
	fc, err := astiav.AllocOutputFormatContext(nil, cfg.Format, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg: output format for %q (%s): %w", cfg.URL, cfg.Format, err)
	}
	o := &output{fc: fc, url: cfg.URL, options: make(map[string]string, len(cfg.Options)+1)}
	for k, v := range cfg.Options {
		o.options[k] = v
	}

	switch {
	case cfg.Sink != nil:
		size := sinkBufferSize
		if cfg.PacketSize > 0 {
			// The rtp muxer flushes after every packet, so a buffer of
			// packetsize bytes turns each flush into one sink write.
			size = cfg.PacketSize
			o.options["packetsize"] = strconv.Itoa(cfg.PacketSize)
		}
		pb, err := astiav.AllocIOContext(size, true, nil, nil, func(b []byte) (int, error) {
			return cfg.Sink.Write(b)
		})
		if err != nil {
			fc.Free()
			return nil, fmt.Errorf("ffmpeg: io context: %w", err)
		}
		fc.SetPb(pb)
		o.pb, o.ownsPB = pb, true
	case !fc.OutputFormat().Flags().Has(astiav.IOFormatFlagNofile):
		pb, err := astiav.OpenIOContext(cfg.URL, astiav.NewIOContextFlags(astiav.IOContextFlagWrite), nil, nil)
		if err != nil {
			fc.Free()
			return nil, fmt.Errorf("ffmpeg: open %s: %w", cfg.URL, err)
		}
		fc.SetPb(pb)
		o.pb = pb
	}
	return o, nil
}

func (o *output) AddStream(params engine.CodecParameters) (int, error) {
	p, err := avParameters(params)
	if err != nil {
		return 0, err
	}
	s := o.fc.NewStream(nil)
	if s == nil {
		return 0, fmt.Errorf("ffmpeg: new stream")
	}
	if err := p.cp.Copy(s.CodecParameters()); err != nil {
		return 0, fmt.Errorf("ffmpeg: copy stream parameters: %w", err)
	}
	// Tags are container specific.
	s.CodecParameters().SetCodecTag(0)
	return s.Index(), nil
}

func (o *output) AddEncoderStream(enc engine.Encoder) (int, error) {
	e, ok := enc.(*encoder)
	if !ok {
		i, err := o.AddStream(enc.Parameters())
		if err == nil {
			o.fc.Streams()[i].SetTimeBase(toAVRational(enc.TimeBase()))
		}
		return i, err
	}
	s := o.fc.NewStream(nil)
	if s == nil {
		return 0, fmt.Errorf("ffmpeg: new stream")
	}
	if err := s.CodecParameters().FromCodecContext(e.cc); err != nil {
		return 0, fmt.Errorf("ffmpeg: stream parameters from encoder: %w", err)
	}
	s.SetTimeBase(e.cc.TimeBase())
	return s.Index(), nil
}

func (o *output) NeedsGlobalHeader() bool {
	return o.fc.OutputFormat().Flags().Has(astiav.IOFormatFlagGlobalheader)
}

func (o *output) StreamCount() int { return o.fc.NbStreams() }

func (o *output) stream(i int) *astiav.Stream {
	streams := o.fc.Streams()
	if i < 0 || i >= len(streams) {
		return nil
	}
	return streams[i]
}

func (o *output) StreamTimeBase(i int) engine.Rational {
	s := o.stream(i)
	if s == nil {
		return engine.Rational{}
	}
	return fromAVRational(s.TimeBase())
}

func (o *output) StreamParameters(i int) engine.CodecParameters {
	s := o.stream(i)
	if s == nil {
		return nil
	}
	p, err := copyCodecParameters(s.CodecParameters())
	if err != nil {
		return nil
	}
	return p
}

func (o *output) WriteHeader() error {
	d, err := dictionary(o.options)
	if err != nil {
		return err
	}
	defer freeDictionary(d)
	return o.fc.WriteHeader(d)
}

func (o *output) WritePacket(p engine.Packet) error {
	pkt, free, err := avPacket(p)
	if err != nil {
		return err
	}
	defer free()
	return o.fc.WriteFrame(pkt)
}

// WriteInterleavedPacket hands p to the muxer's interleaving queue, which
// takes over the packet's data reference.
func (o *output) WriteInterleavedPacket(p engine.Packet) error {
	pkt, free, err := avPacket(p)
	if err != nil {
		return err
	}
	defer free()
	return o.fc.WriteInterleavedFrame(pkt)
}

func (o *output) WriteTrailer() error { return o.fc.WriteTrailer() }

func (o *output) Flush() error {
	if o.pb != nil {
		o.pb.Flush()
	}
	return nil
}

// SDP returns the session description FFmpeg writes for the output's
// streams.
func (o *output) SDP() (string, error) {
	if o.fc.NbStreams() == 0 {
		return "", fmt.Errorf("%w: output without streams", engine.ErrStreamNotFound)
	}
	sdp, err := o.fc.SDPCreate()
	if err != nil {
		return "", fmt.Errorf("ffmpeg: create sdp: %w", err)
	}
	return sdp, nil
}

func (o *output) Close() error {
	var result *multierror.Error
	if o.pb != nil {
		if o.ownsPB {
			o.pb.Free()
		} else if err := o.pb.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("ffmpeg: close %s: %w", o.url, err))
		}
		o.pb = nil
	}
	if o.fc != nil {
		o.fc.Free()
		o.fc = nil
	}
	return result.ErrorOrNil()
}
