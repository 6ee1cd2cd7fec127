package signaling

// Message defines the structure for all C2S (Client to Server)
// and S2C (Server to Client) websocket messages.
type Message struct {
	Type      string `json:"type"`
	RoomID    string `json:"room_id,omitempty"`
	ClientID  string `json:"client_id,omitempty"`
	SenderID  string `json:"sender_id,omitempty"`
	TargetID  string `json:"target_id,omitempty"`
	PartnerID string `json:"partner_id,omitempty"`

	// Payload is the opaque negotiation blob. It is relayed untouched.
	Payload []byte `json:"payload,omitempty"`

	Error string `json:"error,omitempty"`

	// client is the client that sent the message.
	// It's used internally by the Hub and not sent over JSON.
	client *Client `json:"-"`

	// malformed marks a frame the read pump could not decode.
	malformed bool
}

// Message type constants.
const (
	MessageTypeJoin   = "join"
	MessageTypeLeave  = "leave"
	MessageTypeOffer  = "offer"
	MessageTypeAnswer = "answer"

	MessageTypePartner       = "partner"
	MessageTypePeerJoined    = "peer_joined"
	MessageTypePeerLeft      = "peer_left"
	MessageTypeRoomFull      = "room_full"
	MessageTypeUndeliverable = "undeliverable"
	MessageTypeError         = "error"
)

// isSignal reports whether t is one of the relayed negotiation kinds.
func isSignal(t string) bool {
	return t == MessageTypeOffer || t == MessageTypeAnswer
}
