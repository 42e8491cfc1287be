package videoio

import (
	"fmt"
	"strings"

	"github.com/pion/rtcp"
	"github.com/pion/rtp"
	"github.com/pion/sdp/v3"

	"github.com/thesyncim/videoio/engine"
)

// rtcpSenderReport is the packet type byte of an RTCP sender report.
const rtcpSenderReport = 200

// RTPBufKind tells RTP media packets from RTCP control packets.
type RTPBufKind int

const (
	RTPBufKindRTP RTPBufKind = iota
	RTPBufKindRTCP
)

func (k RTPBufKind) String() string {
	if k == RTPBufKindRTCP {
		return "rtcp"
	}
	return "rtp"
}

// RTPBuf is one packet produced by an RTPMuxer.
type RTPBuf struct {
	Kind RTPBufKind
	Data []byte
}

// ClassifyRTPBuf marks b as RTCP when its second byte is the sender report
// packet type. Only sender reports are emitted by RTP muxers, so other RTCP
// types are not recognized.
func ClassifyRTPBuf(b []byte) RTPBuf {
	if len(b) >= 2 && b[1] == rtcpSenderReport {
		return RTPBuf{Kind: RTPBufKindRTCP, Data: b}
	}
	return RTPBuf{Kind: RTPBufKindRTP, Data: b}
}

// Header parses the RTP header of an RTP buffer.
func (b RTPBuf) Header() (*rtp.Header, error) {
	if b.Kind != RTPBufKindRTP {
		return nil, fmt.Errorf("videoio: %s buffer has no rtp header", b.Kind)
	}
	h := new(rtp.Header)
	if _, err := h.Unmarshal(b.Data); err != nil {
		return nil, fmt.Errorf("videoio: parse rtp header: %w", err)
	}
	return h, nil
}

// SenderReport parses an RTCP buffer.
func (b RTPBuf) SenderReport() (*rtcp.SenderReport, error) {
	if b.Kind != RTPBufKindRTCP {
		return nil, fmt.Errorf("videoio: %s buffer is not a sender report", b.Kind)
	}
	sr := new(rtcp.SenderReport)
	if err := sr.Unmarshal(b.Data); err != nil {
		return nil, fmt.Errorf("videoio: parse sender report: %w", err)
	}
	return sr, nil
}

// RTPMuxerBuilder configures an RTPMuxer. WithEngine and WithOptions must be
// called before streams are added. Errors are reported by Build.
type RTPMuxerBuilder struct {
	options Options
	eng     engine.Engine
	inner   *MuxerBuilder[[][]byte]
	err     error
}

func NewRTPMuxerBuilder() *RTPMuxerBuilder {
	return &RTPMuxerBuilder{}
}

func (b *RTPMuxerBuilder) WithEngine(e engine.Engine) *RTPMuxerBuilder {
	b.eng = e
	return b
}

// WithOptions sets muxer options such as rtpflags.
func (b *RTPMuxerBuilder) WithOptions(o Options) *RTPMuxerBuilder {
	b.options = o
	return b
}

func (b *RTPMuxerBuilder) WithStream(info StreamInfo) *RTPMuxerBuilder {
	if b.open() {
		b.inner.WithStream(info)
	}
	return b
}

func (b *RTPMuxerBuilder) WithStreams(reader *Reader) *RTPMuxerBuilder {
	if b.open() {
		b.inner.WithStreams(reader)
	}
	return b
}

// open creates the packetized output on first use.
func (b *RTPMuxerBuilder) open() bool {
	if b.err != nil {
		return false
	}
	if b.inner != nil {
		return true
	}
	w, err := NewPacketizedBufWriterBuilder("rtp").
		WithOptions(b.options).
		WithEngine(b.eng).
		Build()
	if err != nil {
		b.err = err
		return false
	}
	b.inner = NewMuxerBuilder[[][]byte](w)
	return true
}

func (b *RTPMuxerBuilder) Build() (*RTPMuxer, error) {
	if !b.open() {
		return nil, b.err
	}
	m, err := b.inner.Build()
	if err != nil {
		b.inner.dest.Close()
		return nil, err
	}
	return &RTPMuxer{muxer: m, options: b.options.Clone()}, nil
}

// NewRTPMuxer returns an RTP muxer without streams on the default engine.
// Use NewRTPMuxerBuilder to add streams.
func NewRTPMuxer() (*RTPMuxer, error) {
	return NewRTPMuxerBuilder().Build()
}

// RTPMuxer packetizes streams into RTP, one RTP session per stream.
type RTPMuxer struct {
	muxer   *PacketizedBufMuxer
	options Options

	seen      bool
	nextSeq   uint16
	timestamp uint32
}

// Mux packetizes p. The header write on the first call may add packets.
func (m *RTPMuxer) Mux(p *Packet) ([]RTPBuf, error) {
	bufs, err := m.muxer.Mux(p)
	if err != nil {
		return nil, err
	}
	return m.classify(bufs), nil
}

// Finish flushes the muxer. It returns nothing on repeated calls.
func (m *RTPMuxer) Finish() ([]RTPBuf, error) {
	bufs, err := m.muxer.Finish()
	if err != nil {
		return nil, err
	}
	return m.classify(bufs), nil
}

func (m *RTPMuxer) classify(bufs [][]byte) []RTPBuf {
	if len(bufs) == 0 {
		return nil
	}
	out := make([]RTPBuf, len(bufs))
	for i, b := range bufs {
		out[i] = ClassifyRTPBuf(b)
		if out[i].Kind != RTPBufKindRTP {
			continue
		}
		if h, err := out[i].Header(); err == nil {
			m.seen = true
			m.nextSeq = h.SequenceNumber + 1
			m.timestamp = h.Timestamp
		}
	}
	return out
}

// PacketizationMode returns the H.264 packetization mode of the output: 0
// when rtpflags contain h264_mode0, 1 otherwise.
func (m *RTPMuxer) PacketizationMode() int {
	if flags, ok := m.options["rtpflags"]; ok && strings.Contains(flags, "h264_mode0") {
		return 0
	}
	return 1
}

// SeqAndTimestamp returns the sequence number of the next RTP packet and the
// timestamp of the last one. Both are zero before the first packet.
func (m *RTPMuxer) SeqAndTimestamp() (uint16, uint32) {
	if !m.seen {
		return 0, 0
	}
	return m.nextSeq, m.timestamp
}

// ParameterSetsH264 extracts SPS and PPS of every stream.
func (m *RTPMuxer) ParameterSetsH264() []ParameterSetsResult {
	return m.muxer.ParameterSetsH264()
}

// SDP returns the session description of the output as produced by the
// engine.
func (m *RTPMuxer) SDP() (string, error) {
	s, err := m.muxer.Destination().Output().SDP()
	if err != nil {
		return "", backendErr("create sdp", err)
	}
	return s, nil
}

// SessionDescription returns the parsed SDP.
func (m *RTPMuxer) SessionDescription() (*sdp.SessionDescription, error) {
	s, err := m.SDP()
	if err != nil {
		return nil, err
	}
	desc := new(sdp.SessionDescription)
	if err := desc.UnmarshalString(s); err != nil {
		return nil, fmt.Errorf("videoio: parse sdp: %w", err)
	}
	return desc, nil
}

// Close finishes the stream if needed and releases the output.
func (m *RTPMuxer) Close() error {
	return m.muxer.Close()
}
