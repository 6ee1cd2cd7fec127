package webrtc

import (
	"encoding/json"
	"fmt"

	pion "github.com/pion/webrtc/v4"
)

// signalPayload is the body of a relayed offer or answer. ICE gathering is
// complete before it is sent, so the SDP carries every candidate.
type signalPayload struct {
	Type string `json:"type"`
	SDP  string `json:"sdp"`
}

func encodeSignal(desc pion.SessionDescription) ([]byte, error) {
	return json.Marshal(signalPayload{Type: desc.Type.String(), SDP: desc.SDP})
}

func decodeSignal(data []byte) (pion.SessionDescription, error) {
	var p signalPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return pion.SessionDescription{}, fmt.Errorf("%w: %v", ErrInvalidSignal, err)
	}

	t := pion.NewSDPType(p.Type)
	if t != pion.SDPTypeOffer && t != pion.SDPTypeAnswer {
		return pion.SessionDescription{}, fmt.Errorf("%w: type %q", ErrInvalidSignal, p.Type)
	}
	if p.SDP == "" {
		return pion.SessionDescription{}, fmt.Errorf("%w: empty sdp", ErrInvalidSignal)
	}

	return pion.SessionDescription{Type: t, SDP: p.SDP}, nil
}
