package control

import (
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// ErrMalformedCommand is returned when a data channel message cannot be
// decoded into a known command.
var ErrMalformedCommand = errors.New("malformed control command")

// Kind is the wire tag of a command.
type Kind string

const (
	KindLoadMedia Kind = "load_media"
	KindPlay      Kind = "play"
	KindPause     Kind = "pause"
)

// Command is a playback command exchanged over the data channel. The set of
// implementations is closed: LoadMedia, Play and Pause.
type Command interface {
	Kind() Kind
	String() string
	command()
}

// LoadMedia asks the partner to load a media reference. The reference is
// opaque here; the playback widget resolves it.
type LoadMedia struct {
	Reference string
}

// Play resumes playback.
type Play struct{}

// Pause pauses playback.
type Pause struct{}

func (LoadMedia) Kind() Kind { return KindLoadMedia }
func (Play) Kind() Kind      { return KindPlay }
func (Pause) Kind() Kind     { return KindPause }

func (c LoadMedia) String() string { return fmt.Sprintf("load %q", c.Reference) }
func (Play) String() string        { return "play" }
func (Pause) String() string       { return "pause" }

func (LoadMedia) command() {}
func (Play) command()      {}
func (Pause) command()     {}

// Encode serializes cmd into a data channel payload.
func Encode(cmd Command) ([]byte, error) {
	var (
		msg Message
		err error
	)

	switch c := cmd.(type) {
	case LoadMedia:
		msg, err = NewMessage(KindLoadMedia, LoadMediaPayload{Reference: c.Reference})
	case Play:
		msg, err = NewMessage(KindPlay, nil)
	case Pause:
		msg, err = NewMessage(KindPause, nil)
	default:
		return nil, fmt.Errorf("encode command: unsupported type %T", cmd)
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", cmd.Kind(), err)
	}

	return msgpack.Marshal(msg)
}

// Decode parses a data channel payload. Anything that is not a well-formed
// known command yields an error wrapping ErrMalformedCommand.
func Decode(data []byte) (Command, error) {
	var msg Message
	if err := msgpack.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCommand, err)
	}

	switch msg.Type {
	case KindLoadMedia:
		if len(msg.Payload) == 0 {
			return nil, fmt.Errorf("%w: load_media without payload", ErrMalformedCommand)
		}
		var p LoadMediaPayload
		if err := msg.DecodePayload(&p); err != nil {
			return nil, fmt.Errorf("%w: load_media payload: %v", ErrMalformedCommand, err)
		}
		return LoadMedia{Reference: p.Reference}, nil

	case KindPlay:
		return Play{}, nil

	case KindPause:
		return Pause{}, nil

	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrMalformedCommand, msg.Type)
	}
}
