package control

import "github.com/vmihailenco/msgpack/v5"

// Message is the data channel envelope for a control command.
type Message struct {
	Type    Kind               `msgpack:"type"`
	Payload msgpack.RawMessage `msgpack:"payload,omitempty"`
}

// LoadMediaPayload is the body of a load_media message.
type LoadMediaPayload struct {
	Reference string `msgpack:"reference"`
}

// DecodePayload decodes the message payload into the provided struct
func (m Message) DecodePayload(v any) error {
	return msgpack.Unmarshal(m.Payload, v)
}

// NewMessage creates a new Message with the given type and payload.
// A nil payload produces a message without a body.
func NewMessage(t Kind, payload any) (Message, error) {
	if payload == nil {
		return Message{Type: t}, nil
	}

	b, err := msgpack.Marshal(payload)
	if err != nil {
		return Message{}, err
	}

	return Message{
		Type:    t,
		Payload: b,
	}, nil
}
