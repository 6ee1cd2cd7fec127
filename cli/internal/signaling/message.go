package signaling

// Message represents all WebSocket messages between CLI and server.
type Message struct {
	Type      string `json:"type"`
	RoomID    string `json:"room_id,omitempty"`
	ClientID  string `json:"client_id,omitempty"`
	SenderID  string `json:"sender_id,omitempty"`
	TargetID  string `json:"target_id,omitempty"`
	PartnerID string `json:"partner_id,omitempty"`

	// Payload is the negotiation blob. The relay never looks inside it.
	Payload []byte `json:"payload,omitempty"`

	Error string `json:"error,omitempty"`
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

// PartnerInfo is the server's answer to a join.
type PartnerInfo struct {
	RoomID    string
	ClientID  string
	PartnerID string
}

// Signal is a negotiation payload relayed from the partner.
type Signal struct {
	Type     string
	SenderID string
	Payload  []byte
}
