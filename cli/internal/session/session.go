package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/BioHazard786/Synctube/cli/internal/control"
)

// DefaultNegotiationTimeout bounds how long a session may stay Negotiating.
const DefaultNegotiationTimeout = 30 * time.Second

// Hooks observe a session. They run on the session goroutine and must not
// call back into the Session.
type Hooks struct {
	OnStateChange     func(from, to State)
	OnError           func(err error)
	OnCommandSent     func(cmd control.Command)
	OnCommandReceived func(cmd control.Command)
}

// Config wires a Session to its collaborators.
type Config struct {
	Transport Transport
	Signaler  Signaler
	Player    Player
	Display   Display

	// Media is attached to every connection the session creates. It may be
	// nil for a data-only session.
	Media LocalMedia

	// NegotiationTimeout resets a stuck negotiation to Idle. Zero means
	// DefaultNegotiationTimeout, negative disables the timer.
	NegotiationTimeout time.Duration

	Hooks Hooks
}

// Snapshot is a point-in-time copy of the session's observable state.
type Snapshot struct {
	State       State
	Role        Role
	PartnerID   string
	Sent        int
	Received    int
	ConnectedAt time.Time

	// Err is the reason the session closed, if it closed on a failure.
	Err error
}

// Session is the peer negotiation state machine for one participant.
//
// Transport callbacks, relay events and user intent are all funneled into a
// single event loop (Run), so the state is only ever touched by one
// goroutine. Callbacks from a torn-down connection carry a stale generation
// and are ignored.
type Session struct {
	cfg    Config
	events chan func()
	done   chan struct{}

	mu   sync.RWMutex
	snap Snapshot

	// Owned by the event loop.
	conn     Connection
	gen      uint64
	applied  int
	offered  bool
	answered bool
	pending  []control.Command
	inbound  [][]byte
	remote   RemoteStream
	attached bool
	timer    *time.Timer
}

// New creates an Idle session. Run must be called for it to make progress.
func New(cfg Config) (*Session, error) {
	if cfg.Transport == nil || cfg.Signaler == nil || cfg.Player == nil {
		return nil, errors.New("session: transport, signaler and player are required")
	}
	if cfg.NegotiationTimeout == 0 {
		cfg.NegotiationTimeout = DefaultNegotiationTimeout
	}

	return &Session{
		cfg:    cfg,
		events: make(chan func(), 64),
		done:   make(chan struct{}),
	}, nil
}

// Run processes session events until the session is Closed or ctx is done.
// It returns the error that closed the session, if any.
func (s *Session) Run(ctx context.Context) error {
	defer close(s.done)

	for {
		select {
		case <-ctx.Done():
			if s.snap.State != StateClosed {
				s.closeWith(nil)
			}
			return nil

		case fn := <-s.events:
			fn()
			if s.snap.State == StateClosed {
				return s.snap.Err
			}
		}
	}
}

// Done is closed once Run has returned.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Snapshot returns the current observable state.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// State returns the current state.
func (s *Session) State() State {
	return s.Snapshot().State
}

// Initiate starts negotiating as Initiator towards partnerID.
func (s *Session) Initiate(partnerID string) error {
	return s.do(func() error {
		switch s.snap.State {
		case StateClosed:
			return NewError("initiate", ErrClosed)
		case StateNegotiating, StateConnected:
			return NewError("initiate", ErrBusy)
		}
		if partnerID == "" {
			return WrapError("initiate", ErrPartnerUnreachable, "no partner id")
		}
		return s.start(RoleInitiator, partnerID)
	})
}

// HandleOffer applies an offer relayed from senderID. An Idle session
// becomes the Responder; an offer in any other state is rejected.
func (s *Session) HandleOffer(senderID string, payload []byte) error {
	return s.do(func() error {
		switch s.snap.State {
		case StateIdle:
			if err := s.start(RoleResponder, senderID); err != nil {
				return err
			}
			return s.apply(payload)
		case StateClosed:
			return s.reject("handle offer", ErrClosed, "offer from "+senderID)
		default:
			return s.reject("handle offer", ErrUnexpectedSignal,
				fmt.Sprintf("offer from %s while %s", senderID, s.snap.State))
		}
	})
}

// HandleAnswer applies an answer relayed from senderID. Only an Initiator
// that has sent its offer and not yet applied an answer accepts it.
func (s *Session) HandleAnswer(senderID string, payload []byte) error {
	return s.do(func() error {
		switch {
		case s.snap.State == StateClosed:
			return s.reject("handle answer", ErrClosed, "answer from "+senderID)
		case s.snap.State != StateNegotiating || s.snap.Role != RoleInitiator:
			return s.reject("handle answer", ErrUnexpectedSignal,
				fmt.Sprintf("answer from %s while %s %s", senderID, s.snap.State, s.snap.Role))
		case senderID != s.snap.PartnerID:
			return s.reject("handle answer", ErrUnexpectedSignal, "answer from unknown sender "+senderID)
		case !s.offered:
			return s.reject("handle answer", ErrUnexpectedSignal, "answer before offer")
		case s.applied > 0:
			return s.reject("handle answer", ErrUnexpectedSignal, "duplicate answer")
		}
		return s.apply(payload)
	})
}

// Undeliverable reports that the relay could not reach targetID. A session
// negotiating with that partner tears down and returns to Idle.
func (s *Session) Undeliverable(targetID string) error {
	return s.do(func() error {
		if s.snap.State != StateNegotiating {
			return nil
		}
		if targetID != "" && targetID != s.snap.PartnerID {
			return nil
		}
		s.resetIdle(WrapError("signal", ErrPartnerUnreachable, s.snap.PartnerID))
		return nil
	})
}

// PartnerLeft reports that partnerID's signaling session ended.
func (s *Session) PartnerLeft(partnerID string) error {
	return s.do(func() error {
		if s.snap.State != StateNegotiating && s.snap.State != StateConnected {
			return nil
		}
		if partnerID != "" && partnerID != s.snap.PartnerID {
			return nil
		}
		s.closeWith(WrapError("session", ErrPartnerLeft, partnerID))
		return nil
	})
}

// Send transmits cmd to the partner. Commands issued while Negotiating are
// queued and flushed once Connected.
func (s *Session) Send(cmd control.Command) error {
	if cmd == nil {
		return errors.New("send: nil command")
	}
	return s.do(func() error {
		return s.send(cmd)
	})
}

// Perform applies cmd to the local player and then sends it to the partner.
// A command the local player rejects is not sent.
func (s *Session) Perform(cmd control.Command) error {
	if cmd == nil {
		return errors.New("perform: nil command")
	}
	return s.do(func() error {
		if err := s.applyCommand(cmd); err != nil {
			return NewError("perform "+string(cmd.Kind()), err)
		}
		return s.send(cmd)
	})
}

// Close leaves the session. It is safe to call in any state and more than once.
func (s *Session) Close() error {
	err := s.do(func() error {
		if s.snap.State != StateClosed {
			s.closeWith(nil)
		}
		return nil
	})
	if errors.Is(err, ErrClosed) {
		return nil
	}
	return err
}

func (s *Session) post(fn func()) bool {
	select {
	case s.events <- fn:
		return true
	case <-s.done:
		return false
	}
}

// do runs fn on the event loop and waits for its result.
func (s *Session) do(fn func() error) error {
	errc := make(chan error, 1)
	if !s.post(func() { errc <- fn() }) {
		return ErrClosed
	}

	select {
	case err := <-errc:
		return err
	case <-s.done:
		select {
		case err := <-errc:
			return err
		default:
			return ErrClosed
		}
	}
}

func (s *Session) update(fn func(*Snapshot)) {
	s.mu.Lock()
	fn(&s.snap)
	s.mu.Unlock()
}

func (s *Session) setState(to State) {
	from := s.snap.State
	if from == to {
		return
	}
	s.update(func(sn *Snapshot) { sn.State = to })

	slog.Info("session state changed", "from", from, "to", to, "role", s.snap.Role, "partner", s.snap.PartnerID)
	if h := s.cfg.Hooks.OnStateChange; h != nil {
		h(from, to)
	}
}

func (s *Session) report(err error) {
	slog.Warn("session error", "state", s.snap.State, "error", err)
	if h := s.cfg.Hooks.OnError; h != nil {
		h(err)
	}
}

func (s *Session) reject(op string, err error, details string) error {
	e := WrapError(op, err, details)
	s.report(e)
	return e
}

func (s *Session) start(role Role, partnerID string) error {
	s.gen++
	gen := s.gen
	s.applied = 0
	s.offered = false
	s.answered = false
	s.attached = false
	s.remote = nil
	s.inbound = nil

	conn, err := s.cfg.Transport.NewConnection(role, s.cfg.Media, s.eventsFor(gen))
	if err != nil {
		e := NewError("create connection", err)
		s.report(e)
		return e
	}

	s.conn = conn
	s.update(func(sn *Snapshot) {
		sn.Role = role
		sn.PartnerID = partnerID
	})
	s.setState(StateNegotiating)
	s.armTimer(gen)
	return nil
}

func (s *Session) eventsFor(gen uint64) ConnectionEvents {
	return ConnectionEvents{
		OnSignal: func(payload []byte) {
			s.post(func() { s.onSignal(gen, payload) })
		},
		OnConnected: func() {
			s.post(func() { s.onConnected(gen) })
		},
		OnRemoteStream: func(stream RemoteStream) {
			s.post(func() { s.onRemoteStream(gen, stream) })
		},
		OnData: func(data []byte) {
			s.post(func() { s.onData(gen, data) })
		},
		OnClosed: func(err error) {
			s.post(func() { s.onClosed(gen, err) })
		},
	}
}

func (s *Session) current(gen uint64) bool {
	return gen == s.gen && s.conn != nil
}

func (s *Session) apply(payload []byte) error {
	if err := s.conn.ApplySignal(payload); err != nil {
		e := WrapError("apply signal", ErrMalformedSignal, err.Error())
		s.closeWith(e)
		return e
	}
	s.applied++
	return nil
}

func (s *Session) onSignal(gen uint64, payload []byte) {
	if !s.current(gen) || s.snap.State != StateNegotiating {
		return
	}

	partnerID := s.snap.PartnerID
	var err error

	switch s.snap.Role {
	case RoleInitiator:
		if s.offered {
			slog.Debug("extra local signal ignored", "role", s.snap.Role)
			return
		}
		s.offered = true
		err = s.cfg.Signaler.SendOffer(partnerID, payload)

	case RoleResponder:
		if s.applied == 0 || s.answered {
			slog.Debug("extra local signal ignored", "role", s.snap.Role)
			return
		}
		s.answered = true
		err = s.cfg.Signaler.SendAnswer(partnerID, payload)
	}

	if err != nil {
		s.resetIdle(WrapError("send signal", ErrPartnerUnreachable, err.Error()))
	}
}

func (s *Session) onConnected(gen uint64) {
	if !s.current(gen) || s.snap.State != StateNegotiating {
		return
	}
	if s.applied != 1 {
		slog.Warn("transport connected without a remote signal, ignoring", "applied", s.applied)
		return
	}

	s.stopTimer()
	s.update(func(sn *Snapshot) { sn.ConnectedAt = time.Now() })
	s.setState(StateConnected)

	if s.remote != nil {
		s.attach()
	}

	pending := s.pending
	s.pending = nil
	for _, cmd := range pending {
		if err := s.send(cmd); err != nil {
			s.report(err)
		}
	}

	inbound := s.inbound
	s.inbound = nil
	for _, data := range inbound {
		s.receive(data)
	}
}

func (s *Session) onRemoteStream(gen uint64, stream RemoteStream) {
	if !s.current(gen) || stream == nil {
		return
	}
	if s.remote == nil {
		s.remote = stream
	}
	if s.snap.State == StateConnected {
		s.attach()
	}
}

func (s *Session) attach() {
	if s.attached || s.cfg.Display == nil {
		return
	}
	s.attached = true
	slog.Info("attaching partner stream", "stream", s.remote.ID())
	s.cfg.Display.Attach(s.remote)
}

func (s *Session) onData(gen uint64, data []byte) {
	if !s.current(gen) {
		return
	}
	switch s.snap.State {
	case StateNegotiating:
		s.inbound = append(s.inbound, data)
	case StateConnected:
		s.receive(data)
	}
}

func (s *Session) onClosed(gen uint64, err error) {
	if !s.current(gen) {
		return
	}
	details := "transport closed"
	if err != nil {
		details = err.Error()
	}
	s.closeWith(WrapError("connection", ErrTransportClosed, details))
}

func (s *Session) onTimeout(gen uint64) {
	if !s.current(gen) || s.snap.State != StateNegotiating {
		return
	}
	s.resetIdle(WrapError("negotiate", ErrNegotiationTimeout, s.cfg.NegotiationTimeout.String()))
}

func (s *Session) receive(data []byte) {
	cmd, err := control.Decode(data)
	if err != nil {
		s.report(NewError("receive command", err))
		return
	}

	s.update(func(sn *Snapshot) { sn.Received++ })
	slog.Debug("command received", "command", cmd.String())
	if h := s.cfg.Hooks.OnCommandReceived; h != nil {
		h(cmd)
	}

	if err := s.applyCommand(cmd); err != nil {
		s.report(NewError("apply "+string(cmd.Kind()), err))
	}
}

func (s *Session) applyCommand(cmd control.Command) error {
	switch c := cmd.(type) {
	case control.LoadMedia:
		return s.cfg.Player.Load(c.Reference)
	case control.Play:
		return s.cfg.Player.Play()
	case control.Pause:
		return s.cfg.Player.Pause()
	default:
		return fmt.Errorf("unsupported command %T", cmd)
	}
}

func (s *Session) send(cmd control.Command) error {
	op := "send " + string(cmd.Kind())

	switch s.snap.State {
	case StateConnected:
		data, err := control.Encode(cmd)
		if err != nil {
			return NewError(op, err)
		}
		if err := s.conn.SendData(data); err != nil {
			return NewError(op, err)
		}
		s.update(func(sn *Snapshot) { sn.Sent++ })
		slog.Debug("command sent", "command", cmd.String())
		if h := s.cfg.Hooks.OnCommandSent; h != nil {
			h(cmd)
		}
		return nil

	case StateNegotiating:
		s.pending = append(s.pending, cmd)
		return nil

	default:
		return NewError(op, ErrNotConnected)
	}
}

func (s *Session) armTimer(gen uint64) {
	s.stopTimer()
	if s.cfg.NegotiationTimeout < 0 {
		return
	}
	s.timer = time.AfterFunc(s.cfg.NegotiationTimeout, func() {
		s.post(func() { s.onTimeout(gen) })
	})
}

func (s *Session) stopTimer() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// teardown releases the connection. Close runs off the loop so a transport
// that blocks on its own callbacks cannot stall it.
func (s *Session) teardown() {
	s.stopTimer()
	s.gen++

	if conn := s.conn; conn != nil {
		s.conn = nil
		go func() {
			if err := conn.Close(); err != nil {
				slog.Debug("close connection", "error", err)
			}
		}()
	}

	if len(s.pending) > 0 {
		slog.Warn("dropping queued commands", "count", len(s.pending))
	}
	s.applied = 0
	s.offered = false
	s.answered = false
	s.pending = nil
	s.inbound = nil
	s.remote = nil
	s.attached = false
}

func (s *Session) resetIdle(err error) {
	s.teardown()
	s.update(func(sn *Snapshot) {
		sn.Role = RoleNone
		sn.PartnerID = ""
	})
	s.setState(StateIdle)
	s.report(err)
}

func (s *Session) closeWith(err error) {
	s.teardown()
	s.update(func(sn *Snapshot) { sn.Err = err })
	s.setState(StateClosed)
	if err != nil {
		s.report(err)
	}
}
