package ui

import (
	"bufio"
	"fmt"
	"io"
	"sync"

	"github.com/BioHazard786/Synctube/cli/internal/player"
)

// ConsoleUI is the line-oriented room view used when no terminal UI is
// wanted. Commands are read one per line from in.
type ConsoleUI struct {
	in  io.Reader
	out io.Writer

	mu       sync.Mutex
	intents  chan Intent
	done     chan struct{}
	stopOnce sync.Once
}

func NewConsoleUI(in io.Reader, out io.Writer) *ConsoleUI {
	return &ConsoleUI{
		in:      in,
		out:     out,
		intents: make(chan Intent, 16),
		done:    make(chan struct{}),
	}
}

// Start begins reading commands. End of input is a quit request.
func (c *ConsoleUI) Start() {
	go c.readLoop()
}

func (c *ConsoleUI) readLoop() {
	scanner := bufio.NewScanner(c.in)
	for scanner.Scan() {
		intent, err := ParseIntent(scanner.Text())
		if err != nil {
			c.Notice(LevelWarn, err.Error())
			continue
		}
		if intent.Empty() {
			continue
		}
		if !c.emit(intent) || intent.Quit {
			return
		}
	}
	c.emit(Intent{Quit: true})
}

func (c *ConsoleUI) emit(intent Intent) bool {
	select {
	case c.intents <- intent:
		return true
	case <-c.done:
		return false
	}
}

func (c *ConsoleUI) Intents() <-chan Intent {
	return c.intents
}

func (c *ConsoleUI) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format+"\n", args...)
}

func (c *ConsoleUI) SetPhase(phase Phase, msg string) {
	switch phase {
	case PhaseConnected:
		c.printf("%s %s", SuccessStyle.Render(IconConnect), orText(msg, "Connected"))
	case PhaseClosed:
		c.printf("%s %s", IconLeft, msg)
	default:
		c.printf("%s %s", IconWaiting, msg)
	}
}

func (c *ConsoleUI) SetRoom(roomID, link string) {
	c.printf("%s", NewRoomInfo(roomID, link).View())
}

func (c *ConsoleUI) SetPartner(partnerID string) {
	if partnerID == "" {
		return
	}
	c.printf("%s partner %s", IconPeer, partnerID)
}

func (c *ConsoleUI) SetPlayer(st player.State) {
	switch st.Status {
	case player.StatusPlaying:
		c.printf("%s %s %s", IconPlay, st.MediaID, formatPosition(st.Position))
	case player.StatusPaused:
		c.printf("%s %s %s", IconPause, st.MediaID, formatPosition(st.Position))
	default:
		c.printf("%s nothing loaded", IconEmpty)
	}
}

func (c *ConsoleUI) Notice(level Level, msg string) {
	switch level {
	case LevelError:
		c.printf("%s %s", IconError, msg)
	case LevelWarn:
		c.printf("%s %s", IconWarning, msg)
	default:
		c.printf("%s %s", IconInfo, msg)
	}
}

func (c *ConsoleUI) Stop() {
	c.stopOnce.Do(func() { close(c.done) })
}

func orText(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
