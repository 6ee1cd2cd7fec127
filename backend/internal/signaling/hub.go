package signaling

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
)

// Hub is the signal relay. It owns the live client table and consults the
// Registry for room membership.
//
// Run is the single goroutine that touches the client table, so routing
// decisions never race with registration. The Registry carries its own lock
// and stays safe for concurrent use on its own.
type Hub struct {
	registry *Registry

	// clients maps connection identifiers to live clients. Owned by Run.
	clients map[string]*Client
	live    atomic.Int64

	// Register is a channel for registering new clients.
	Register chan *Client

	// Unregister is a channel for unregistering clients.
	Unregister chan *Client

	// Inbound carries every decoded client message to the hub.
	Inbound chan *Message

	done chan struct{}
}

// NewHub creates a new Hub backed by registry.
func NewHub(registry *Registry) *Hub {
	return &Hub{
		registry:   registry,
		clients:    make(map[string]*Client),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Inbound:    make(chan *Message),
		done:       make(chan struct{}),
	}
}

// Registry returns the room registry the hub routes against.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// Clients returns the number of live signaling sessions.
func (h *Hub) Clients() int {
	return int(h.live.Load())
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Run starts the hub's main processing loop and returns when ctx is done.
// Every client still connected at that point has its send queue closed.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for id, client := range h.clients {
				delete(h.clients, id)
				close(client.Send)
			}
			h.live.Store(0)
			return

		case client := <-h.Register:
			h.clients[client.ID] = client
			h.live.Store(int64(len(h.clients)))
			slog.Info("client registered", "client", client.ID)

		case client := <-h.Unregister:
			if _, ok := h.clients[client.ID]; !ok {
				continue
			}
			if client.RoomID != "" {
				h.leaveRoom(client)
			}
			delete(h.clients, client.ID)
			h.live.Store(int64(len(h.clients)))
			close(client.Send)
			slog.Info("client unregistered", "client", client.ID)

		case message := <-h.Inbound:
			h.handle(message)
		}
	}
}

// Connect hands a freshly accepted client to the hub. It reports false if the
// hub has stopped.
func (h *Hub) Connect(c *Client) bool {
	select {
	case h.Register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) unregister(c *Client) {
	select {
	case h.Unregister <- c:
	case <-h.done:
	}
}

// submit hands a decoded message to the hub. It reports false if the hub has
// stopped.
func (h *Hub) submit(m *Message) bool {
	select {
	case h.Inbound <- m:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) handle(message *Message) {
	client := message.client
	if _, ok := h.clients[client.ID]; !ok {
		// Message raced with unregistration.
		return
	}

	if message.malformed {
		h.deliver(client, &Message{Type: MessageTypeError, Error: "malformed message"})
		return
	}

	slog.Debug("message received", "type", message.Type, "client", client.ID)

	switch message.Type {
	case MessageTypeJoin:
		h.handleJoin(client, message.RoomID)

	case MessageTypeLeave:
		if client.RoomID != "" {
			h.leaveRoom(client)
		}

	case MessageTypeOffer, MessageTypeAnswer:
		h.handleSignal(client, message)

	default:
		slog.Warn("unknown message type", "type", message.Type, "client", client.ID)
		h.deliver(client, &Message{Type: MessageTypeError, Error: "unknown message type: " + message.Type})
	}
}

func (h *Hub) handleJoin(client *Client, roomID string) {
	if roomID == "" {
		roomID = generateRoomID(h.registry.Exists)
	}

	if client.RoomID == roomID {
		h.deliver(client, &Message{Type: MessageTypeError, RoomID: roomID, Error: ErrAlreadyJoined.Error()})
		return
	}

	var (
		result     JoinResult
		leftBehind string
		err        error
	)
	previous := client.RoomID
	if previous != "" {
		result, leftBehind, err = h.registry.Move(previous, roomID, client.ID)
	} else {
		result, err = h.registry.Join(roomID, client.ID)
	}
	if errors.Is(err, ErrRoomFull) {
		slog.Info("room join rejected", "room", roomID, "client", client.ID, "error", err)
		h.deliver(client, &Message{Type: MessageTypeRoomFull, RoomID: roomID})
		return
	}
	if err != nil {
		h.deliver(client, &Message{Type: MessageTypeError, RoomID: roomID, Error: err.Error()})
		return
	}

	if previous != "" {
		h.notifyLeft(previous, client.ID, leftBehind)
	}

	client.RoomID = roomID
	slog.Info("client joined room", "room", roomID, "client", client.ID, "partner", result.PartnerID)

	// The first arrival hears about the joiner before the joiner learns its
	// partner, so the offer that follows always finds a known target.
	if result.PartnerID != "" {
		if partner, ok := h.clients[result.PartnerID]; ok {
			h.deliver(partner, &Message{
				Type:      MessageTypePeerJoined,
				RoomID:    roomID,
				PartnerID: client.ID,
			})
		}
	}

	h.deliver(client, &Message{
		Type:      MessageTypePartner,
		RoomID:    roomID,
		ClientID:  client.ID,
		PartnerID: result.PartnerID,
	})
}

func (h *Hub) leaveRoom(client *Client) {
	roomID := client.RoomID
	client.RoomID = ""

	partnerID, err := h.registry.Leave(roomID, client.ID)
	if err != nil {
		slog.Warn("leave failed", "room", roomID, "client", client.ID, "error", err)
		return
	}

	h.notifyLeft(roomID, client.ID, partnerID)
}

// notifyLeft tells partnerID that clientID is gone from roomID. An empty
// partnerID means the room was dropped.
func (h *Hub) notifyLeft(roomID, clientID, partnerID string) {
	if partnerID == "" {
		slog.Info("room deleted", "room", roomID)
		return
	}

	slog.Info("peer left room", "room", roomID, "client", clientID)
	if partner, ok := h.clients[partnerID]; ok {
		h.deliver(partner, &Message{
			Type:      MessageTypePeerLeft,
			RoomID:    roomID,
			PartnerID: clientID,
		})
	}
}

func (h *Hub) handleSignal(client *Client, message *Message) {
	if client.RoomID == "" {
		h.deliver(client, &Message{Type: MessageTypeError, Error: "you must join a room first"})
		return
	}

	target := message.TargetID
	partnerID, ok := h.registry.Partner(client.RoomID, client.ID)
	if target == "" {
		target = partnerID
	}

	if !ok || target != partnerID || !h.forward(client.ID, target, message.Type, message.Payload) {
		slog.Info("signal undeliverable", "type", message.Type, "client", client.ID, "target", target)
		h.deliver(client, &Message{
			Type:     MessageTypeUndeliverable,
			RoomID:   client.RoomID,
			TargetID: target,
			Error:    "partner unreachable",
		})
		return
	}

	slog.Debug("signal relayed", "type", message.Type, "client", client.ID, "target", target)
}

// forward delivers payload verbatim from fromID to toID. It reports whether
// toID had a live signaling session that accepted the message.
func (h *Hub) forward(fromID, toID, kind string, payload []byte) bool {
	if !isSignal(kind) {
		return false
	}
	target, ok := h.clients[toID]
	if !ok {
		return false
	}
	return h.deliver(target, &Message{
		Type:     kind,
		SenderID: fromID,
		TargetID: toID,
		Payload:  payload,
	})
}

// deliver queues m on the client's send channel without blocking. A client
// whose queue is full is treated as unreachable.
func (h *Hub) deliver(c *Client, m *Message) bool {
	select {
	case c.Send <- m:
		return true
	default:
		slog.Warn("send queue full, dropping message", "client", c.ID, "type", m.Type)
		return false
	}
}
