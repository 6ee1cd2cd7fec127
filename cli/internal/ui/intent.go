package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BioHazard786/Synctube/cli/internal/control"
)

var ErrUnknownCommand = errors.New("unknown command")

// Intent is one line typed at the room prompt.
type Intent struct {
	Command control.Command
	Retry   bool
	Quit    bool
}

// Empty reports whether the line asked for nothing.
func (i Intent) Empty() bool {
	return i.Command == nil && !i.Retry && !i.Quit
}

// ParseIntent turns a prompt line into a control command, a retry or a quit
// request.
// Blank lines yield a zero Intent.
func ParseIntent(line string) (Intent, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Intent{}, nil
	}

	switch verb := strings.ToLower(fields[0]); verb {
	case "load", "l":
		if len(fields) < 2 {
			return Intent{}, fmt.Errorf("usage: load <url|id>")
		}
		return Intent{Command: control.LoadMedia{Reference: strings.Join(fields[1:], " ")}}, nil
	case "play", "p":
		return Intent{Command: control.Play{}}, nil
	case "pause", "s":
		return Intent{Command: control.Pause{}}, nil
	case "retry", "r":
		return Intent{Retry: true}, nil
	case "quit", "q", "leave", "exit":
		return Intent{Quit: true}, nil
	default:
		return Intent{}, fmt.Errorf("%w %q", ErrUnknownCommand, verb)
	}
}
