package signaling

import "log/slog"

// Handler routes incoming signaling messages to appropriate channels.
// All channels are closed when the connection ends.
type Handler struct {
	client        *Client
	Partner       chan *PartnerInfo
	PeerJoined    chan string
	PeerLeft      chan string
	Signal        chan *Signal
	RoomFull      chan string
	Undeliverable chan string
	Error         chan string
}

// NewHandler creates a new message handler.
func NewHandler(client *Client) *Handler {
	return &Handler{
		client:        client,
		Partner:       make(chan *PartnerInfo, 1),
		PeerJoined:    make(chan string, 1),
		PeerLeft:      make(chan string, 1),
		Signal:        make(chan *Signal, 32),
		RoomFull:      make(chan string, 1),
		Undeliverable: make(chan string, 4),
		Error:         make(chan string, 4),
	}
}

// Start begins listening to incoming messages and routing them. It returns
// when the connection ends.
func (h *Handler) Start() {
	defer h.close()

	for msg := range h.client.Incoming() {
		switch msg.Type {
		case MessageTypePartner:
			deliver(h, h.Partner, &PartnerInfo{
				RoomID:    msg.RoomID,
				ClientID:  msg.ClientID,
				PartnerID: msg.PartnerID,
			})

		case MessageTypePeerJoined:
			deliver(h, h.PeerJoined, msg.PartnerID)

		case MessageTypePeerLeft:
			deliver(h, h.PeerLeft, msg.PartnerID)

		case MessageTypeOffer, MessageTypeAnswer:
			deliver(h, h.Signal, &Signal{
				Type:     msg.Type,
				SenderID: msg.SenderID,
				Payload:  msg.Payload,
			})

		case MessageTypeRoomFull:
			deliver(h, h.RoomFull, msg.RoomID)

		case MessageTypeUndeliverable:
			deliver(h, h.Undeliverable, msg.TargetID)

		case MessageTypeError:
			deliver(h, h.Error, msg.Error)

		default:
			slog.Debug("ignoring signaling message", "type", msg.Type)
		}
	}
}

// deliver blocks until ch accepts v or the client closes.
func deliver[T any](h *Handler, ch chan T, v T) {
	select {
	case ch <- v:
	case <-h.client.Done():
	}
}

func (h *Handler) close() {
	close(h.Partner)
	close(h.PeerJoined)
	close(h.PeerLeft)
	close(h.Signal)
	close(h.RoomFull)
	close(h.Undeliverable)
	close(h.Error)
}
