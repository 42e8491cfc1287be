package h264

import (
	"encoding/base64"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/pion/sdp/v3"
)

// ClockRate is the RTP clock rate of H.264 video.
const ClockRate = 90000

// SDPParams describes one H.264 RTP session.
type SDPParams struct {
	// Host is the destination address. Empty means 127.0.0.1.
	Host        string
	Port        int
	PayloadType uint8
	// Mode is the packetization mode, 0 or 1.
	Mode int
	// ExtraData holds the parameter sets, AVCC or Annex B.
	ExtraData []byte
}

// SDP renders a session description announcing a single H.264 video
// stream: rtpmap, packetization mode and, when known, the parameter sets
// and profile.
func SDP(p SDPParams) (string, error) {
	host := p.Host
	if host == "" {
		host = "127.0.0.1"
	}
	addrType := "IP4"
	if ip := net.ParseIP(host); ip != nil && ip.To4() == nil {
		addrType = "IP6"
	}

	fmtp := "packetization-mode=" + strconv.Itoa(p.Mode)
	if len(p.ExtraData) > 0 {
		sps, pps, err := ParameterSets(p.ExtraData)
		if err != nil {
			return "", err
		}
		sets := []string{base64.StdEncoding.EncodeToString(sps)}
		for _, pp := range pps {
			sets = append(sets, base64.StdEncoding.EncodeToString(pp))
		}
		fmtp += "; sprop-parameter-sets=" + strings.Join(sets, ",")
		if len(sps) >= 4 {
			fmtp += fmt.Sprintf("; profile-level-id=%02X%02X%02X", sps[1], sps[2], sps[3])
		}
	}

	pt := strconv.Itoa(int(p.PayloadType))
	desc := sdp.SessionDescription{
		Origin: sdp.Origin{
			Username:       "-",
			NetworkType:    "IN",
			AddressType:    addrType,
			UnicastAddress: "127.0.0.1",
		},
		SessionName: "No Name",
		ConnectionInformation: &sdp.ConnectionInformation{
			NetworkType: "IN",
			AddressType: addrType,
			Address:     &sdp.Address{Address: host},
		},
		TimeDescriptions: []sdp.TimeDescription{{Timing: sdp.Timing{}}},
		MediaDescriptions: []*sdp.MediaDescription{{
			MediaName: sdp.MediaName{
				Media:   "video",
				Port:    sdp.RangedPort{Value: p.Port},
				Protos:  []string{"RTP", "AVP"},
				Formats: []string{pt},
			},
			Attributes: []sdp.Attribute{
				sdp.NewAttribute("rtpmap", pt+" H264/"+strconv.Itoa(ClockRate)),
				sdp.NewAttribute("fmtp", pt+" "+fmtp),
			},
		}},
	}
	b, err := desc.Marshal()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// HostPort splits an rtp://host:port url. Missing parts are left empty.
func HostPort(rawURL string) (string, int) {
	rest, ok := strings.CutPrefix(rawURL, "rtp://")
	if !ok {
		return "", 0
	}
	if i := strings.IndexAny(rest, "/?"); i >= 0 {
		rest = rest[:i]
	}
	host, port, err := net.SplitHostPort(rest)
	if err != nil {
		return strings.Trim(rest, "[]"), 0
	}
	n, _ := strconv.Atoi(port)
	return host, n
}
