package h264

import (
	"fmt"

	"github.com/pion/rtp"
)

const rtpHeaderSize = 12

// Packetizer splits H.264 access units into RTP packets (RFC 6184).
// Packetization mode 1 fragments large NAL units with FU-A; mode 0 sends
// every NAL unit in its own packet and fails on units that do not fit.
type Packetizer struct {
	ssrc        uint32
	payloadType uint8
	mtu         int
	mode        int
	sequencer   rtp.Sequencer
}

// NewPacketizer creates a packetizer. mtu is the largest packet size
// including the RTP header.
func NewPacketizer(ssrc uint32, payloadType uint8, mtu, mode int) *Packetizer {
	if mtu <= rtpHeaderSize+2 {
		mtu = 1200
	}
	return &Packetizer{
		ssrc:        ssrc,
		payloadType: payloadType,
		mtu:         mtu,
		mode:        mode,
		sequencer:   rtp.NewRandomSequencer(),
	}
}

func (p *Packetizer) SSRC() uint32 { return p.ssrc }

func (p *Packetizer) PayloadType() uint8 { return p.payloadType }

// Packetize converts one access unit into RTP packets sharing timestamp.
// The marker bit is set on the last packet.
func (p *Packetizer) Packetize(au []byte, timestamp uint32) ([]*rtp.Packet, error) {
	nalUnits := SplitAccessUnit(au)
	if len(nalUnits) == 0 {
		return nil, fmt.Errorf("h264: no NAL units in access unit")
	}

	var packets []*rtp.Packet
	for i, nalu := range nalUnits {
		isLast := i == len(nalUnits)-1

		if len(nalu) <= p.mtu-rtpHeaderSize {
			packets = append(packets, p.packet(nalu, timestamp, isLast))
			continue
		}
		if p.mode == 0 {
			return nil, fmt.Errorf("h264: NAL unit of %d bytes exceeds mtu %d in packetization mode 0", len(nalu), p.mtu)
		}
		packets = append(packets, p.fragment(nalu, timestamp, isLast)...)
	}
	return packets, nil
}

func (p *Packetizer) packet(payload []byte, timestamp uint32, marker bool) *rtp.Packet {
	return &rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			Marker:         marker,
			PayloadType:    p.payloadType,
			SequenceNumber: p.sequencer.NextSequenceNumber(),
			Timestamp:      timestamp,
			SSRC:           p.ssrc,
		},
		Payload: payload,
	}
}

// fragment splits a NAL unit into FU-A packets.
func (p *Packetizer) fragment(nalu []byte, timestamp uint32, isLastNALU bool) []*rtp.Packet {
	nalHeader := nalu[0]
	nalType := nalHeader & 0x1f
	nri := nalHeader & 0x60

	payload := nalu[1:]
	maxPayload := p.mtu - rtpHeaderSize - 2 // FU indicator + FU header

	var packets []*rtp.Packet
	for offset := 0; offset < len(payload); {
		end := min(offset+maxPayload, len(payload))
		isStart := offset == 0
		isEnd := end == len(payload)

		// FU header: S=start, E=end, R=0, Type=original NAL type
		fuHeader := nalType
		if isStart {
			fuHeader |= 0x80
		}
		if isEnd {
			fuHeader |= 0x40
		}

		fu := make([]byte, 2+end-offset)
		fu[0] = nri | NALTypeFUA
		fu[1] = fuHeader
		copy(fu[2:], payload[offset:end])

		packets = append(packets, p.packet(fu, timestamp, isEnd && isLastNALU))
		offset = end
	}
	return packets
}
