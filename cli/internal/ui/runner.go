package ui

import (
	"fmt"
	"sync"

	"github.com/BioHazard786/Synctube/cli/internal/player"
	tea "github.com/charmbracelet/bubbletea"
)

// RoomUI runs the room view and exposes what the user types.
type RoomUI struct {
	program  *tea.Program
	model    *RoomModel
	updates  chan RoomUpdate
	intents  chan Intent
	done     chan struct{}
	exited   chan struct{}
	stopOnce sync.Once
}

// NewRoomUI creates a new room UI
func NewRoomUI() *RoomUI {
	ui := &RoomUI{
		updates: make(chan RoomUpdate, 100),
		intents: make(chan Intent, 16),
		done:    make(chan struct{}),
		exited:  make(chan struct{}),
	}
	ui.model = newRoomModel(ui.updates, ui.intents, ui.done)
	return ui
}

// Start starts the UI in a goroutine
func (ui *RoomUI) Start() {
	// Inline mode keeps earlier terminal output visible.
	ui.program = tea.NewProgram(ui.model)
	go func() {
		defer close(ui.exited)
		if _, err := ui.program.Run(); err != nil {
			fmt.Printf("UI error: %v\n", err)
		}
	}()
}

// Intents delivers commands and quit requests typed by the user.
func (ui *RoomUI) Intents() <-chan Intent {
	return ui.intents
}

// Exited is closed once the program has stopped.
func (ui *RoomUI) Exited() <-chan struct{} {
	return ui.exited
}

func (ui *RoomUI) send(update RoomUpdate) {
	select {
	case ui.updates <- update:
	default:
	}
}

func (ui *RoomUI) SetPhase(phase Phase, msg string) {
	ui.send(RoomUpdate{Type: UpdatePhase, Phase: phase, Message: msg})
}

func (ui *RoomUI) SetRoom(roomID, link string) {
	ui.send(RoomUpdate{Type: UpdateRoom, Message: roomID, Link: link})
}

func (ui *RoomUI) SetPartner(partnerID string) {
	ui.send(RoomUpdate{Type: UpdatePartner, Message: partnerID})
}

func (ui *RoomUI) SetPlayer(st player.State) {
	ui.send(RoomUpdate{Type: UpdatePlayer, Player: st})
}

func (ui *RoomUI) Notice(level Level, msg string) {
	ui.send(RoomUpdate{Type: UpdateNotice, Level: level, Message: msg})
}

// Stop stops the UI and waits for the terminal to be restored.
func (ui *RoomUI) Stop() {
	ui.stopOnce.Do(func() {
		close(ui.done)
		if ui.program != nil {
			ui.program.Quit()
			<-ui.exited
		}
	})
}
