package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/BioHazard786/Synctube/cli/internal/player"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// Phase is what the room view is showing.
type Phase int

const (
	PhaseConnecting Phase = iota
	PhaseWaiting
	PhaseNegotiating
	PhaseConnected
	PhaseClosed
)

// Level is the severity of a notice.
type Level int

const (
	LevelInfo Level = iota
	LevelWarn
	LevelError
)

const maxNotices = 5

// RoomUpdate is a message sent from other goroutines to update the view.
type RoomUpdate struct {
	Type    UpdateType
	Phase   Phase
	Level   Level
	Message string
	Link    string
	Player  player.State
}

type UpdateType int

const (
	UpdatePhase UpdateType = iota
	UpdateRoom
	UpdatePartner
	UpdatePlayer
	UpdateNotice
)

type notice struct {
	level Level
	text  string
	at    time.Time
}

type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// RoomModel is the Bubble Tea model for a room.
type RoomModel struct {
	phase     Phase
	phaseMsg  string
	roomID    string
	roomLink  string
	partnerID string
	player    player.State
	notices   []notice

	input   textinput.Model
	spinner spinner.Model

	updates <-chan RoomUpdate
	intents chan<- Intent
	done    <-chan struct{}
}

func newRoomModel(updates <-chan RoomUpdate, intents chan<- Intent, done <-chan struct{}) *RoomModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	ti := textinput.New()
	ti.Placeholder = "load <url>, play, pause, retry, quit"
	ti.Prompt = "› "
	ti.CharLimit = 512
	ti.Focus()

	return &RoomModel{
		phase:    PhaseConnecting,
		phaseMsg: "Connecting to server...",
		input:    ti,
		spinner:  s,
		updates:  updates,
		intents:  intents,
		done:     done,
	}
}

func (m *RoomModel) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spinner.Tick,
		m.waitForUpdates(),
		tickCmd(),
	)
}

// waitForUpdates returns a command that listens for external updates
func (m *RoomModel) waitForUpdates() tea.Cmd {
	return func() tea.Msg {
		select {
		case update := <-m.updates:
			return update
		case <-m.done:
			return nil
		}
	}
}

func (m *RoomModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			m.emit(Intent{Quit: true})
			return m, tea.Quit
		case tea.KeyEsc:
			m.input.Reset()
			return m, nil
		case tea.KeyEnter:
			line := m.input.Value()
			m.input.Reset()
			intent, err := ParseIntent(line)
			if err != nil {
				m.addNotice(LevelWarn, err.Error())
				return m, nil
			}
			if intent.Quit {
				m.emit(intent)
				return m, tea.Quit
			}
			if !intent.Empty() {
				m.emit(intent)
			}
			return m, nil
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tickMsg:
		return m, tickCmd()

	case RoomUpdate:
		m.handleUpdate(msg)
		return m, m.waitForUpdates()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m *RoomModel) emit(intent Intent) {
	select {
	case m.intents <- intent:
	default:
		m.addNotice(LevelWarn, "busy, try again")
	}
}

func (m *RoomModel) handleUpdate(update RoomUpdate) {
	switch update.Type {
	case UpdatePhase:
		m.phase = update.Phase
		m.phaseMsg = update.Message
	case UpdateRoom:
		m.roomID = update.Message
		m.roomLink = update.Link
	case UpdatePartner:
		m.partnerID = update.Message
	case UpdatePlayer:
		m.player = update.Player
	case UpdateNotice:
		m.addNotice(update.Level, update.Message)
	}
}

func (m *RoomModel) addNotice(level Level, text string) {
	m.notices = append(m.notices, notice{level: level, text: text, at: time.Now()})
	if len(m.notices) > maxNotices {
		m.notices = m.notices[len(m.notices)-maxNotices:]
	}
}

func (m *RoomModel) View() string {
	var b strings.Builder

	b.WriteString(HeaderStyle.Render(fmt.Sprintf("%s Synctube", IconMedia)) + "\n")

	if m.roomID != "" {
		b.WriteString(NewRoomInfo(m.roomID, m.roomLink).View() + "\n\n")
	}

	b.WriteString(m.viewPhase() + "\n")
	if m.partnerID != "" {
		b.WriteString(MutedStyle.Render(fmt.Sprintf("%s partner %s", IconPeer, m.partnerID)) + "\n")
	}
	b.WriteString("\n" + m.viewPlayer() + "\n")

	if len(m.notices) > 0 {
		b.WriteString("\n")
		for _, n := range m.notices {
			b.WriteString(viewNotice(n) + "\n")
		}
	}

	if m.phase != PhaseClosed {
		b.WriteString("\n" + m.input.View() + "\n")
	}
	b.WriteString(FooterStyle.Render("Enter to send · Esc to clear · Ctrl+C to leave"))

	return ContainerStyle.Render(b.String())
}

func (m *RoomModel) viewPhase() string {
	switch m.phase {
	case PhaseConnected:
		return StatusStyle.Render(fmt.Sprintf("%s Connected", IconConnect))
	case PhaseClosed:
		return ErrorStyle.Render(fmt.Sprintf("%s %s", IconLeft, m.phaseMsg))
	default:
		return fmt.Sprintf("%s %s", m.spinner.View(), m.phaseMsg)
	}
}

func (m *RoomModel) viewPlayer() string {
	st := m.player
	switch st.Status {
	case player.StatusPlaying:
		return BoxStyle.Render(fmt.Sprintf("%s %s  %s", IconPlay, BoldStyle.Render(st.MediaID), formatPosition(st.Position)))
	case player.StatusPaused:
		return BoxStyle.Render(fmt.Sprintf("%s %s  %s", IconPause, BoldStyle.Render(st.MediaID), formatPosition(st.Position)))
	default:
		return BoxStyle.Render(MutedStyle.Render(fmt.Sprintf("%s nothing loaded", IconEmpty)))
	}
}

func viewNotice(n notice) string {
	stamp := MutedStyle.Render(n.at.Format("15:04:05"))
	switch n.level {
	case LevelError:
		return fmt.Sprintf("%s %s", stamp, ErrorStyle.Render(n.text))
	case LevelWarn:
		return fmt.Sprintf("%s %s", stamp, WarningStyle.Render(n.text))
	default:
		return fmt.Sprintf("%s %s", stamp, n.text)
	}
}

func formatPosition(d time.Duration) string {
	d = d.Truncate(time.Second)
	h := int(d / time.Hour)
	mnt := int(d/time.Minute) % 60
	s := int(d/time.Second) % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, mnt, s)
	}
	return fmt.Sprintf("%d:%02d", mnt, s)
}
