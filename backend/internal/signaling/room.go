package signaling

// MaxMembers is the capacity of a room.
const MaxMembers = 2

// Room is a single two-party room. The first member is the Responder, the
// second one the Initiator.
type Room struct {
	// ID is the caller-supplied (or generated) room identifier.
	ID string

	// Members holds connection identifiers in arrival order.
	Members []string
}

// Has reports whether connID is a member of the room.
func (r *Room) Has(connID string) bool {
	for _, id := range r.Members {
		if id == connID {
			return true
		}
	}
	return false
}

// Full reports whether the room has reached capacity.
func (r *Room) Full() bool {
	return len(r.Members) >= MaxMembers
}

// First returns the earliest member, or empty if the room is empty.
func (r *Room) First() string {
	if len(r.Members) == 0 {
		return ""
	}
	return r.Members[0]
}

// Other returns the member that is not connID.
func (r *Room) Other(connID string) (string, bool) {
	for _, id := range r.Members {
		if id != connID {
			return id, true
		}
	}
	return "", false
}

// Remove drops connID from the room and reports whether it was present.
func (r *Room) Remove(connID string) bool {
	for i, id := range r.Members {
		if id == connID {
			r.Members = append(r.Members[:i], r.Members[i+1:]...)
			return true
		}
	}
	return false
}
