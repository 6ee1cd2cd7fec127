package control

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func TestEncodeDecode(t *testing.T) {
	tests := []struct {
		name string
		cmd  Command
	}{
		{"load media", LoadMedia{Reference: "https://www.youtube.com/watch?v=abc123"}},
		{"load empty reference", LoadMedia{}},
		{"play", Play{}},
		{"pause", Pause{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Encode(tt.cmd)
			require.NoError(t, err)

			got, err := Decode(data)
			require.NoError(t, err)
			assert.Equal(t, tt.cmd, got)
		})
	}
}

func TestWireFormat(t *testing.T) {
	data, err := Encode(LoadMedia{Reference: "abc123"})
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, msgpack.Unmarshal(data, &raw))
	assert.Equal(t, "load_media", raw["type"])

	payload, ok := raw["payload"].(map[string]any)
	require.True(t, ok, "payload should decode as a map, got %T", raw["payload"])
	assert.Equal(t, "abc123", payload["reference"])

	data, err = Encode(Pause{})
	require.NoError(t, err)
	raw = nil
	require.NoError(t, msgpack.Unmarshal(data, &raw))
	assert.Equal(t, "pause", raw["type"])
	assert.NotContains(t, raw, "payload")
}

func TestDecodeMalformed(t *testing.T) {
	unknown, err := msgpack.Marshal(Message{Type: "rewind"})
	require.NoError(t, err)

	noPayload, err := msgpack.Marshal(Message{Type: KindLoadMedia})
	require.NoError(t, err)

	badPayload, err := msgpack.Marshal(Message{Type: KindLoadMedia, Payload: msgpack.RawMessage{0xc1}})
	require.NoError(t, err)

	notAnEnvelope, err := msgpack.Marshal("play")
	require.NoError(t, err)

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"garbage", []byte{0xc1, 0xff, 0x00}},
		{"unknown tag", unknown},
		{"load without payload", noPayload},
		{"load with corrupt payload", badPayload},
		{"not an envelope", notAnEnvelope},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := Decode(tt.data)
			assert.Nil(t, cmd)
			assert.ErrorIs(t, err, ErrMalformedCommand)
		})
	}
}

func TestEncodeRejectsNil(t *testing.T) {
	_, err := Encode(nil)
	assert.Error(t, err)
}
