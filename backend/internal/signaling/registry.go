package signaling

import (
	"errors"
	"sync"
)

var (
	// ErrRoomFull is returned when a third connection tries to join a room.
	ErrRoomFull = errors.New("room is full")

	// ErrAlreadyJoined is returned when a connection joins a room it is already in.
	ErrAlreadyJoined = errors.New("already in room")

	// ErrNotMember is returned when a connection leaves a room it is not in.
	ErrNotMember = errors.New("not a member of room")
)

// JoinResult describes the outcome of a successful join.
type JoinResult struct {
	// PartnerID is the member that was already in the room, or empty if the
	// joiner is the first arrival.
	PartnerID string
}

// Registry tracks which connection identifiers belong to which room.
//
// All operations take a single lock, so join and leave decisions on the same
// room are linearizable: two joins can never both observe an empty room and a
// third joiner can never slip into a full one.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*Room
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]*Room),
	}
}

// Join adds connID to roomID, creating the room on first use.
func (r *Registry) Join(roomID, connID string) (JoinResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkJoinLocked(roomID, connID); err != nil {
		return JoinResult{}, err
	}
	return r.joinLocked(roomID, connID), nil
}

// Move takes connID out of fromRoom and into toRoom in one step. If toRoom
// cannot take it, nothing changes. leftBehind is the member remaining in
// fromRoom, if any.
func (r *Registry) Move(fromRoom, toRoom, connID string) (result JoinResult, leftBehind string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if fromRoom == toRoom {
		return JoinResult{}, "", ErrAlreadyJoined
	}
	from, ok := r.rooms[fromRoom]
	if !ok || !from.Has(connID) {
		return JoinResult{}, "", ErrNotMember
	}
	if err := r.checkJoinLocked(toRoom, connID); err != nil {
		return JoinResult{}, "", err
	}

	from.Remove(connID)
	if len(from.Members) == 0 {
		delete(r.rooms, fromRoom)
	} else {
		leftBehind = from.First()
	}

	return r.joinLocked(toRoom, connID), leftBehind, nil
}

func (r *Registry) checkJoinLocked(roomID, connID string) error {
	room, ok := r.rooms[roomID]
	if !ok {
		return nil
	}
	if room.Has(connID) {
		return ErrAlreadyJoined
	}
	if room.Full() {
		return ErrRoomFull
	}
	return nil
}

func (r *Registry) joinLocked(roomID, connID string) JoinResult {
	room, ok := r.rooms[roomID]
	if !ok {
		room = &Room{ID: roomID}
		r.rooms[roomID] = room
	}

	partner := room.First()
	room.Members = append(room.Members, connID)
	return JoinResult{PartnerID: partner}
}

// Leave removes connID from roomID. It returns the member left behind, if any.
// A room that becomes empty is dropped.
func (r *Registry) Leave(roomID, connID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok || !room.Remove(connID) {
		return "", ErrNotMember
	}

	if len(room.Members) == 0 {
		delete(r.rooms, roomID)
		return "", nil
	}
	return room.First(), nil
}

// Partner returns the other member of roomID, if connID is a member and the
// room holds two connections.
func (r *Registry) Partner(roomID, connID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok || !room.Has(connID) {
		return "", false
	}
	return room.Other(connID)
}

// Members returns a copy of the membership list of roomID in arrival order.
func (r *Registry) Members(roomID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return nil
	}
	return append([]string(nil), room.Members...)
}

// Exists reports whether roomID currently has at least one member.
func (r *Registry) Exists(roomID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.rooms[roomID]
	return ok
}

// Stats returns the number of live rooms and the total number of members.
func (r *Registry) Stats() (rooms, members int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, room := range r.rooms {
		members += len(room.Members)
	}
	return len(r.rooms), members
}
