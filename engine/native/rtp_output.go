package native

import (
	"fmt"
	"io"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/pion/rtcp"

	"github.com/thesyncim/videoio/engine"
	"github.com/thesyncim/videoio/internal/h264"
)

const (
	// srInterval is the number of RTP packets between sender reports.
	srInterval = 100
	// ntpEpochOffset is the number of seconds from 1900 to 1970.
	ntpEpochOffset = 2208988800
)

var rtpTimeBase = engine.NewRational(1, h264.ClockRate)

// rtpOutput packetizes one H.264 stream into RTP. Every RTP and RTCP packet
// is handed to the sink in its own Write call.
type rtpOutput struct {
	sink        io.Writer
	host        string
	port        int
	payloadType uint8
	mode        int
	packetizer  *h264.Packetizer
	params      *CodecParameters
	paramSets   []byte // Annex B SPS and PPS, sent ahead of key frames

	tsOffset uint32
	lastTS   uint32
	packets  uint32
	octets   uint32
	header   bool
	trailer  bool
}

func newRTPOutput(e *Engine, cfg engine.OutputConfig) (engine.Output, error) {
	o := &rtpOutput{
		sink:        cfg.Sink,
		payloadType: e.cfg.RTPPayloadType,
		mode:        1,
		tsOffset:    rand.Uint32(),
	}
	if strings.Contains(cfg.Options["rtpflags"], "h264_mode0") {
		o.mode = 0
	}
	ssrc := rand.Uint32()
	if v, ok := cfg.Options["ssrc"]; ok {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("native: rtp ssrc option %q: %w", v, err)
		}
		ssrc = uint32(n)
	}
	o.host, o.port = h264.HostPort(cfg.URL)
	o.packetizer = h264.NewPacketizer(ssrc, o.payloadType, cfg.PacketSize, o.mode)
	e.logf(engine.LogLevelDebug, "rtp output ssrc=%d pt=%d mode=%d mtu=%d", ssrc, o.payloadType, o.mode, cfg.PacketSize)
	return o, nil
}

func (o *rtpOutput) AddStream(params engine.CodecParameters) (int, error) {
	if o.params != nil {
		return 0, fmt.Errorf("%w: rtp output carries one stream", engine.ErrNotSupported)
	}
	if params.CodecID() != engine.CodecH264 {
		return 0, fmt.Errorf("%w: rtp payload for %s", engine.ErrNotSupported, params.CodecID())
	}
	o.params = copyParameters(params)
	if extra := o.params.ExtraData(); len(extra) > 0 {
		sps, pps, err := h264.ParameterSets(extra)
		if err == nil {
			o.paramSets = h264.AnnexB(append([][]byte{sps}, pps...)...)
		}
	}
	return 0, nil
}

func (o *rtpOutput) AddEncoderStream(enc engine.Encoder) (int, error) {
	return o.AddStream(enc.Parameters())
}

func (o *rtpOutput) NeedsGlobalHeader() bool { return false }

func (o *rtpOutput) StreamCount() int {
	if o.params == nil {
		return 0
	}
	return 1
}

func (o *rtpOutput) StreamTimeBase(index int) engine.Rational {
	if index != 0 || o.params == nil {
		return engine.Rational{}
	}
	return rtpTimeBase
}

func (o *rtpOutput) StreamParameters(index int) engine.CodecParameters {
	if index != 0 || o.params == nil {
		return nil
	}
	return o.params
}

// WriteHeader sends an initial sender report.
func (o *rtpOutput) WriteHeader() error {
	if o.params == nil {
		return fmt.Errorf("%w: rtp output without streams", engine.ErrStreamNotFound)
	}
	o.header = true
	o.lastTS = o.tsOffset
	return o.sendReport()
}

func (o *rtpOutput) WritePacket(p engine.Packet) error {
	if !o.header {
		return fmt.Errorf("native: rtp packet written before header")
	}
	if p.StreamIndex() != 0 {
		return fmt.Errorf("%w: rtp stream %d", engine.ErrStreamNotFound, p.StreamIndex())
	}
	data := p.Data()
	if p.Key() && o.paramSets != nil && !hasParameterSets(data) {
		data = append(append([]byte(nil), o.paramSets...), h264.AnnexB(h264.SplitAccessUnit(data)...)...)
	}
	pts := p.PTS()
	if pts == engine.NoPTS {
		pts = p.DTS()
	}
	ts := o.tsOffset + uint32(pts)
	pkts, err := o.packetizer.Packetize(data, ts)
	if err != nil {
		return err
	}
	o.lastTS = ts
	for _, pkt := range pkts {
		b, err := pkt.Marshal()
		if err != nil {
			return err
		}
		if _, err := o.sink.Write(b); err != nil {
			return err
		}
		o.packets++
		o.octets += uint32(len(pkt.Payload))
		if o.packets%srInterval == 0 {
			if err := o.sendReport(); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteInterleavedPacket writes directly; a single stream needs no
// interleaving.
func (o *rtpOutput) WriteInterleavedPacket(p engine.Packet) error { return o.WritePacket(p) }

func hasParameterSets(au []byte) bool {
	for _, nal := range h264.SplitAccessUnit(au) {
		if h264.NALType(nal) == h264.NALTypeSPS {
			return true
		}
	}
	return false
}

func (o *rtpOutput) sendReport() error {
	now := time.Now()
	secs := uint64(now.Unix()) + ntpEpochOffset
	frac := uint64(now.Nanosecond()) << 32 / uint64(time.Second)
	sr := rtcp.SenderReport{
		SSRC:        o.packetizer.SSRC(),
		NTPTime:     secs<<32 | frac,
		RTPTime:     o.lastTS,
		PacketCount: o.packets,
		OctetCount:  o.octets,
	}
	b, err := sr.Marshal()
	if err != nil {
		return fmt.Errorf("native: marshal sender report: %w", err)
	}
	_, err = o.sink.Write(b)
	return err
}

func (o *rtpOutput) WriteTrailer() error {
	o.trailer = true
	return nil
}

func (o *rtpOutput) Flush() error { return nil }

func (o *rtpOutput) SDP() (string, error) {
	if o.params == nil {
		return "", fmt.Errorf("%w: rtp output without streams", engine.ErrStreamNotFound)
	}
	return h264.SDP(h264.SDPParams{
		Host:        o.host,
		Port:        o.port,
		PayloadType: o.payloadType,
		Mode:        o.mode,
		ExtraData:   o.params.ExtraData(),
	})
}

func (o *rtpOutput) Close() error { return nil }
