package player

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"
)

var (
	ErrMalformedReference = errors.New("malformed media reference")
	ErrNoMedia            = errors.New("no media loaded")
)

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Status is the playback status of the widget.
type Status int

const (
	StatusEmpty Status = iota
	StatusPaused
	StatusPlaying
)

func (s Status) String() string {
	switch s {
	case StatusPaused:
		return "paused"
	case StatusPlaying:
		return "playing"
	default:
		return "empty"
	}
}

// State is what the widget currently shows.
type State struct {
	MediaID   string
	Reference string
	Status    Status
	Position  time.Duration
}

// Player is the local playback widget. It keeps the loaded media id, the
// play/pause status and an approximate position. Safe for concurrent use.
type Player struct {
	mu        sync.Mutex
	mediaID   string
	reference string
	status    Status
	offset    time.Duration
	startedAt time.Time
	onChange  func(State)
	now       func() time.Time
}

func New() *Player {
	return &Player{now: time.Now}
}

// OnChange registers fn to be called after every observable change.
func (p *Player) OnChange(fn func(State)) {
	p.mu.Lock()
	p.onChange = fn
	p.mu.Unlock()
}

// Load resolves reference to a media id and starts playing it from the
// beginning. Loading the media that is already loaded restarts it.
func (p *Player) Load(reference string) error {
	id, err := ExtractID(reference)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.mediaID = id
	p.reference = reference
	p.status = StatusPlaying
	p.offset = 0
	p.startedAt = p.now()
	p.mu.Unlock()

	p.notify()
	return nil
}

// Play resumes playback. Playing while already playing is a no-op.
func (p *Player) Play() error {
	p.mu.Lock()
	switch p.status {
	case StatusEmpty:
		p.mu.Unlock()
		return ErrNoMedia
	case StatusPlaying:
		p.mu.Unlock()
		return nil
	}
	p.status = StatusPlaying
	p.startedAt = p.now()
	p.mu.Unlock()

	p.notify()
	return nil
}

// Pause stops playback. Pausing while paused, or with nothing loaded, is a
// no-op.
func (p *Player) Pause() error {
	p.mu.Lock()
	if p.status != StatusPlaying {
		p.mu.Unlock()
		return nil
	}
	p.offset += p.now().Sub(p.startedAt)
	p.status = StatusPaused
	p.mu.Unlock()

	p.notify()
	return nil
}

// State returns a snapshot of the widget.
func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stateLocked()
}

func (p *Player) stateLocked() State {
	pos := p.offset
	if p.status == StatusPlaying {
		pos += p.now().Sub(p.startedAt)
	}
	return State{
		MediaID:   p.mediaID,
		Reference: p.reference,
		Status:    p.status,
		Position:  pos,
	}
}

func (p *Player) notify() {
	p.mu.Lock()
	fn := p.onChange
	st := p.stateLocked()
	p.mu.Unlock()

	if fn != nil {
		fn(st)
	}
}

// ExtractID resolves a media reference to a media id. It accepts a bare id,
// a watch URL carrying the id in its v parameter, and short, embed and
// shorts links.
func ExtractID(reference string) (string, error) {
	ref := strings.TrimSpace(reference)
	if ref == "" {
		return "", fmt.Errorf("%w: empty", ErrMalformedReference)
	}
	if idPattern.MatchString(ref) {
		return ref, nil
	}

	raw := ref
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrMalformedReference, reference)
	}

	var id string
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")

	switch {
	case u.Query().Get("v") != "":
		id = u.Query().Get("v")
	case strings.TrimPrefix(u.Hostname(), "www.") == "youtu.be" && len(segments) == 1:
		id = segments[0]
	case len(segments) == 2 && (segments[0] == "embed" || segments[0] == "shorts" || segments[0] == "live"):
		id = segments[1]
	}

	if !idPattern.MatchString(id) {
		return "", fmt.Errorf("%w: %q", ErrMalformedReference, reference)
	}
	return id, nil
}
