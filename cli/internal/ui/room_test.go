package ui

import (
	"testing"
	"time"

	"github.com/BioHazard786/Synctube/cli/internal/control"
	"github.com/BioHazard786/Synctube/cli/internal/player"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestModel() (*RoomModel, chan Intent) {
	intents := make(chan Intent, 4)
	m := newRoomModel(make(chan RoomUpdate), intents, make(chan struct{}))
	return m, intents
}

func typeLine(m *RoomModel, line string) tea.Cmd {
	m.input.SetValue(line)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return cmd
}

func TestRoomModelEmitsCommands(t *testing.T) {
	m, intents := newTestModel()

	typeLine(m, "load abc123")
	require.Len(t, intents, 1)
	assert.Equal(t, control.LoadMedia{Reference: "abc123"}, (<-intents).Command)
	assert.Empty(t, m.input.Value())

	typeLine(m, "")
	assert.Empty(t, intents)
}

func TestRoomModelQuit(t *testing.T) {
	m, intents := newTestModel()

	cmd := typeLine(m, "quit")
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
	assert.True(t, (<-intents).Quit)

	m, intents = newTestModel()
	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.True(t, (<-intents).Quit)
}

func TestRoomModelBadInputBecomesNotice(t *testing.T) {
	m, intents := newTestModel()

	typeLine(m, "rewind")
	assert.Empty(t, intents)
	require.Len(t, m.notices, 1)
	assert.Equal(t, LevelWarn, m.notices[0].level)
	assert.Contains(t, m.View(), "unknown command")
}

func TestRoomModelUpdates(t *testing.T) {
	m, _ := newTestModel()

	m.Update(RoomUpdate{Type: UpdateRoom, Message: "kitten-waffle", Link: "https://synctube.qzz.io/r/kitten-waffle"})
	m.Update(RoomUpdate{Type: UpdatePartner, Message: "peer-42"})
	m.Update(RoomUpdate{Type: UpdatePhase, Phase: PhaseConnected})
	m.Update(RoomUpdate{Type: UpdatePlayer, Player: player.State{MediaID: "abc123", Status: player.StatusPaused, Position: 75 * time.Second}})

	view := m.View()
	assert.Contains(t, view, "kitten-waffle")
	assert.Contains(t, view, "peer-42")
	assert.Contains(t, view, "Connected")
	assert.Contains(t, view, "abc123")
	assert.Contains(t, view, "1:15")
}

func TestRoomModelKeepsLastNotices(t *testing.T) {
	m, _ := newTestModel()

	for i := 0; i < maxNotices+3; i++ {
		m.Update(RoomUpdate{Type: UpdateNotice, Message: string(rune('a' + i))})
	}

	require.Len(t, m.notices, maxNotices)
	assert.Equal(t, "d", m.notices[0].text)
	assert.Equal(t, "h", m.notices[maxNotices-1].text)
}

func TestFormatPosition(t *testing.T) {
	assert.Equal(t, "0:00", formatPosition(0))
	assert.Equal(t, "2:05", formatPosition(125*time.Second+400*time.Millisecond))
	assert.Equal(t, "1:01:01", formatPosition(time.Hour+61*time.Second))
}
