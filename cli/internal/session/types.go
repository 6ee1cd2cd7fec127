package session

// Role is fixed once when a session creates its transport handle.
type Role int

const (
	// RoleNone means no negotiation has started.
	RoleNone Role = iota
	// RoleResponder is the first arrival in a room. It answers.
	RoleResponder
	// RoleInitiator is the second arrival in a room. It offers.
	RoleInitiator
)

func (r Role) String() string {
	switch r {
	case RoleResponder:
		return "responder"
	case RoleInitiator:
		return "initiator"
	default:
		return "none"
	}
}

// State is the negotiation state of a Session.
type State int

const (
	StateIdle State = iota
	StateNegotiating
	StateConnected
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateNegotiating:
		return "negotiating"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// LocalMedia is the handle produced by media capture. The transport decides
// how to attach it.
type LocalMedia interface {
	Close() error
}

// RemoteStream is the partner's inbound media as reported by the transport.
type RemoteStream interface {
	ID() string
}

// Connection is a single transport handle.
type Connection interface {
	// ApplySignal applies a negotiation payload received from the partner.
	ApplySignal(payload []byte) error
	// SendData writes to the data channel.
	SendData(data []byte) error
	Close() error
}

// ConnectionEvents are invoked by the transport from its own goroutines.
type ConnectionEvents struct {
	OnSignal       func(payload []byte)
	OnConnected    func()
	OnRemoteStream func(stream RemoteStream)
	OnData         func(data []byte)
	OnClosed       func(err error)
}

// Transport creates connection handles. Local media must be attached before
// the handle produces its first signal.
type Transport interface {
	NewConnection(role Role, media LocalMedia, events ConnectionEvents) (Connection, error)
}

// Signaler delivers negotiation payloads to the partner through the relay.
type Signaler interface {
	SendOffer(partnerID string, payload []byte) error
	SendAnswer(partnerID string, payload []byte) error
}

// Player is the playback widget.
type Player interface {
	Load(reference string) error
	Play() error
	Pause() error
}

// Display shows the partner's inbound media.
type Display interface {
	Attach(stream RemoteStream)
}
