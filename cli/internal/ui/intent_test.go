package ui

import (
	"testing"

	"github.com/BioHazard786/Synctube/cli/internal/control"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIntent(t *testing.T) {
	tests := []struct {
		line string
		want Intent
	}{
		{"", Intent{}},
		{"   ", Intent{}},
		{"load https://youtu.be/abc123", Intent{Command: control.LoadMedia{Reference: "https://youtu.be/abc123"}}},
		{"L abc123", Intent{Command: control.LoadMedia{Reference: "abc123"}}},
		{"play", Intent{Command: control.Play{}}},
		{"p", Intent{Command: control.Play{}}},
		{"PAUSE", Intent{Command: control.Pause{}}},
		{"s", Intent{Command: control.Pause{}}},
		{"retry", Intent{Retry: true}},
		{"R", Intent{Retry: true}},
		{"quit", Intent{Quit: true}},
		{"leave", Intent{Quit: true}},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := ParseIntent(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseIntentErrors(t *testing.T) {
	_, err := ParseIntent("load")
	assert.Error(t, err)

	_, err = ParseIntent("rewind 10")
	assert.ErrorIs(t, err, ErrUnknownCommand)
}

func TestIntentEmpty(t *testing.T) {
	assert.True(t, Intent{}.Empty())
	assert.False(t, Intent{Retry: true}.Empty())
	assert.False(t, Intent{Quit: true}.Empty())
	assert.False(t, Intent{Command: control.Play{}}.Empty())
}
