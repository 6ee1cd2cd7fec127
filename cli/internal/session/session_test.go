package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BioHazard786/Synctube/cli/internal/control"
)

const eventually = time.Second

type harness struct {
	t         *testing.T
	s         *Session
	transport *fakeTransport
	signaler  *fakeSignaler
	player    *fakePlayer
	display   *fakeDisplay
	runErr    chan error

	mu     sync.Mutex
	states []State
	errs   []error
}

func newHarness(t *testing.T, configure ...func(*Config)) *harness {
	t.Helper()

	h := &harness{
		t:         t,
		transport: &fakeTransport{},
		signaler:  &fakeSignaler{},
		player:    &fakePlayer{},
		display:   &fakeDisplay{},
		runErr:    make(chan error, 1),
	}

	cfg := Config{
		Transport:          h.transport,
		Signaler:           h.signaler,
		Player:             h.player,
		Display:            h.display,
		Media:              fakeMedia{},
		NegotiationTimeout: -1,
		Hooks: Hooks{
			OnStateChange: func(_, to State) {
				h.mu.Lock()
				h.states = append(h.states, to)
				h.mu.Unlock()
			},
			OnError: func(err error) {
				h.mu.Lock()
				h.errs = append(h.errs, err)
				h.mu.Unlock()
			},
		},
	}
	for _, fn := range configure {
		fn(&cfg)
	}

	s, err := New(cfg)
	require.NoError(t, err)
	h.s = s

	ctx, cancel := context.WithCancel(context.Background())
	go func() { h.runErr <- s.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-s.Done()
	})
	return h
}

// sync waits until every event posted so far has been processed.
func (h *harness) sync() {
	_ = h.s.do(func() error { return nil })
}

func (h *harness) States() []State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]State(nil), h.states...)
}

func (h *harness) Errs() []error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]error(nil), h.errs...)
}

func (h *harness) sawError(target error) bool {
	for _, err := range h.Errs() {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// connectInitiator drives the session through a full Initiator negotiation.
func (h *harness) connectInitiator(partnerID string) *fakeConn {
	h.t.Helper()
	require.NoError(h.t, h.s.Initiate(partnerID))
	conn := h.transport.Last()
	conn.events.OnSignal([]byte("offer"))
	h.sync()
	require.NoError(h.t, h.s.HandleAnswer(partnerID, []byte("answer")))
	conn.events.OnConnected()
	h.sync()
	require.Equal(h.t, StateConnected, h.s.State())
	return conn
}

func mustEncode(t *testing.T, cmd control.Command) []byte {
	t.Helper()
	data, err := control.Encode(cmd)
	require.NoError(t, err)
	return data
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestInitiatorNegotiation(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.s.Initiate("x"))
	conn := h.transport.Last()
	require.NotNil(t, conn)
	assert.Equal(t, RoleInitiator, conn.role)
	assert.Equal(t, fakeMedia{}, conn.media, "local media is attached at creation")
	assert.Equal(t, StateNegotiating, h.s.State())

	conn.events.OnSignal([]byte("offer"))
	h.sync()
	assert.Equal(t, []sentSignal{{"x", []byte("offer")}}, h.signaler.Offers())

	require.NoError(t, h.s.HandleAnswer("x", []byte("answer")))
	assert.Equal(t, [][]byte{[]byte("answer")}, conn.Applied())

	conn.events.OnConnected()
	h.sync()

	snap := h.s.Snapshot()
	assert.Equal(t, StateConnected, snap.State)
	assert.Equal(t, RoleInitiator, snap.Role)
	assert.Equal(t, "x", snap.PartnerID)
	assert.False(t, snap.ConnectedAt.IsZero())
	assert.Equal(t, []State{StateNegotiating, StateConnected}, h.States())
}

func TestResponderNegotiation(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.s.HandleOffer("y", []byte("offer")))
	conn := h.transport.Last()
	require.NotNil(t, conn)
	assert.Equal(t, RoleResponder, conn.role)
	assert.Equal(t, [][]byte{[]byte("offer")}, conn.Applied())

	conn.events.OnSignal([]byte("answer"))
	h.sync()
	assert.Equal(t, []sentSignal{{"y", []byte("answer")}}, h.signaler.Answers())
	assert.Empty(t, h.signaler.Offers())

	conn.events.OnConnected()
	h.sync()
	assert.Equal(t, StateConnected, h.s.State())
	assert.Equal(t, RoleResponder, h.s.Snapshot().Role)
}

func TestConnectedRequiresAppliedSignal(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.s.Initiate("x"))
	conn := h.transport.Last()
	conn.events.OnSignal([]byte("offer"))
	conn.events.OnConnected()
	h.sync()

	assert.Equal(t, StateNegotiating, h.s.State())
	assert.Empty(t, conn.Applied())
}

func TestAnswerOrderingRules(t *testing.T) {
	t.Run("before offer", func(t *testing.T) {
		h := newHarness(t)
		require.NoError(t, h.s.Initiate("x"))

		err := h.s.HandleAnswer("x", []byte("answer"))
		assert.ErrorIs(t, err, ErrUnexpectedSignal)
		assert.Empty(t, h.transport.Last().Applied())
		assert.Equal(t, StateNegotiating, h.s.State())
	})

	t.Run("from unknown sender", func(t *testing.T) {
		h := newHarness(t)
		require.NoError(t, h.s.Initiate("x"))
		h.transport.Last().events.OnSignal([]byte("offer"))
		h.sync()

		err := h.s.HandleAnswer("intruder", []byte("answer"))
		assert.ErrorIs(t, err, ErrUnexpectedSignal)
		assert.Empty(t, h.transport.Last().Applied())
	})

	t.Run("duplicate", func(t *testing.T) {
		h := newHarness(t)
		require.NoError(t, h.s.Initiate("x"))
		h.transport.Last().events.OnSignal([]byte("offer"))
		h.sync()
		require.NoError(t, h.s.HandleAnswer("x", []byte("answer")))

		err := h.s.HandleAnswer("x", []byte("answer"))
		assert.ErrorIs(t, err, ErrUnexpectedSignal)
		assert.Len(t, h.transport.Last().Applied(), 1)
	})

	t.Run("responder", func(t *testing.T) {
		h := newHarness(t)
		require.NoError(t, h.s.HandleOffer("y", []byte("offer")))

		err := h.s.HandleAnswer("y", []byte("answer"))
		assert.ErrorIs(t, err, ErrUnexpectedSignal)
	})
}

func TestSignalsWithoutSessionAreSurfaced(t *testing.T) {
	h := newHarness(t)

	err := h.s.HandleAnswer("x", []byte("answer"))
	assert.ErrorIs(t, err, ErrUnexpectedSignal)
	assert.True(t, h.sawError(ErrUnexpectedSignal))
	assert.Equal(t, StateIdle, h.s.State())
	assert.Zero(t, h.transport.Count())
}

func TestOfferWhileNegotiatingIsRejected(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.s.Initiate("x"))

	err := h.s.HandleOffer("x", []byte("offer"))
	assert.ErrorIs(t, err, ErrUnexpectedSignal)
	assert.Equal(t, 1, h.transport.Count())
	assert.Equal(t, RoleInitiator, h.s.Snapshot().Role)
}

func TestInitiateWhileBusy(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.s.Initiate("x"))
	assert.ErrorIs(t, h.s.Initiate("x"), ErrBusy)
}

func TestTransportCreationFailureStaysIdle(t *testing.T) {
	h := newHarness(t)
	h.transport.err = errors.New("no ice servers")

	err := h.s.Initiate("x")
	assert.Error(t, err)
	assert.Equal(t, StateIdle, h.s.State())
}

func TestMalformedSignalClosesSession(t *testing.T) {
	h := newHarness(t)
	h.transport.applyErr = errors.New("invalid sdp")

	err := h.s.HandleOffer("y", []byte("garbage"))
	assert.ErrorIs(t, err, ErrMalformedSignal)
	assert.Equal(t, StateClosed, h.s.State())

	select {
	case runErr := <-h.runErr:
		assert.ErrorIs(t, runErr, ErrMalformedSignal)
	case <-time.After(eventually):
		t.Fatal("Run did not return after the session closed")
	}

	conn := h.transport.Last()
	assert.Eventually(t, conn.Closed, eventually, 5*time.Millisecond)
}

func TestUndeliverableResetsToIdle(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.s.Initiate("x"))
	first := h.transport.Last()
	first.events.OnSignal([]byte("offer"))
	h.sync()

	require.NoError(t, h.s.Undeliverable("x"))

	snap := h.s.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.Equal(t, RoleNone, snap.Role)
	assert.Empty(t, snap.PartnerID)
	assert.True(t, h.sawError(ErrPartnerUnreachable))
	assert.Eventually(t, first.Closed, eventually, 5*time.Millisecond)

	// The session can negotiate again, and the torn-down handle can no
	// longer move it.
	require.NoError(t, h.s.Initiate("x"))
	second := h.transport.Last()
	require.NotSame(t, first, second)

	first.events.OnConnected()
	first.events.OnSignal([]byte("stale offer"))
	h.sync()
	assert.Equal(t, StateNegotiating, h.s.State())
	assert.Len(t, h.signaler.Offers(), 1)
}

func TestUndeliverableForOtherTargetIsIgnored(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.s.Initiate("x"))

	require.NoError(t, h.s.Undeliverable("someone-else"))
	assert.Equal(t, StateNegotiating, h.s.State())
}

func TestSignalerFailureResetsToIdle(t *testing.T) {
	h := newHarness(t)
	h.signaler.err = errors.New("websocket closed")

	require.NoError(t, h.s.Initiate("x"))
	h.transport.Last().events.OnSignal([]byte("offer"))
	h.sync()

	assert.Equal(t, StateIdle, h.s.State())
	assert.True(t, h.sawError(ErrPartnerUnreachable))
}

func TestNegotiationTimeout(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.NegotiationTimeout = 30 * time.Millisecond })

	require.NoError(t, h.s.Initiate("x"))
	conn := h.transport.Last()

	assert.Eventually(t, func() bool { return h.s.State() == StateIdle }, eventually, 5*time.Millisecond)
	h.sync()
	assert.True(t, h.sawError(ErrNegotiationTimeout))
	assert.Eventually(t, conn.Closed, eventually, 5*time.Millisecond)
}

func TestTimeoutDoesNotFireOnceConnected(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.NegotiationTimeout = 100 * time.Millisecond })
	h.connectInitiator("x")

	time.Sleep(150 * time.Millisecond)
	h.sync()
	assert.Equal(t, StateConnected, h.s.State())
}

func TestPartnerLeftClosesSession(t *testing.T) {
	h := newHarness(t)
	conn := h.connectInitiator("x")

	require.NoError(t, h.s.PartnerLeft("x"))

	select {
	case err := <-h.runErr:
		assert.ErrorIs(t, err, ErrPartnerLeft)
	case <-time.After(eventually):
		t.Fatal("Run did not return")
	}
	assert.Equal(t, StateClosed, h.s.State())
	assert.Eventually(t, conn.Closed, eventually, 5*time.Millisecond)
}

func TestPartnerLeftWhileIdleIsIgnored(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.s.PartnerLeft("x"))
	assert.Equal(t, StateIdle, h.s.State())
}

func TestTransportDisconnectClosesSession(t *testing.T) {
	h := newHarness(t)
	conn := h.connectInitiator("x")

	conn.events.OnClosed(errors.New("ice failed"))

	select {
	case err := <-h.runErr:
		assert.ErrorIs(t, err, ErrTransportClosed)
	case <-time.After(eventually):
		t.Fatal("Run did not return")
	}
	assert.Equal(t, StateClosed, h.s.State())
}

func TestSendByState(t *testing.T) {
	h := newHarness(t)

	err := h.s.Send(control.Play{})
	assert.ErrorIs(t, err, ErrNotConnected)

	require.NoError(t, h.s.Initiate("x"))
	conn := h.transport.Last()

	require.NoError(t, h.s.Send(control.LoadMedia{Reference: "abc123"}))
	require.NoError(t, h.s.Send(control.Play{}))
	assert.Empty(t, conn.Sent(), "commands wait for the connection")

	conn.events.OnSignal([]byte("offer"))
	h.sync()
	require.NoError(t, h.s.HandleAnswer("x", []byte("answer")))
	conn.events.OnConnected()
	h.sync()

	sent := conn.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, mustEncode(t, control.LoadMedia{Reference: "abc123"}), sent[0])
	assert.Equal(t, mustEncode(t, control.Play{}), sent[1])

	require.NoError(t, h.s.Send(control.Pause{}))
	assert.Len(t, conn.Sent(), 3)
	assert.Equal(t, 3, h.s.Snapshot().Sent)

	require.NoError(t, h.s.Close())
	assert.Error(t, h.s.Send(control.Play{}))
}

func TestSendFailureIsReturned(t *testing.T) {
	h := newHarness(t)
	conn := h.connectInitiator("x")
	conn.mu.Lock()
	conn.sendErr = errors.New("data channel closed")
	conn.mu.Unlock()

	assert.Error(t, h.s.Send(control.Play{}))
	assert.Equal(t, StateConnected, h.s.State())
}

func TestReceivedCommandsDriveThePlayer(t *testing.T) {
	h := newHarness(t)
	conn := h.connectInitiator("x")

	conn.events.OnData(mustEncode(t, control.LoadMedia{Reference: "abc123"}))
	conn.events.OnData(mustEncode(t, control.Play{}))
	conn.events.OnData(mustEncode(t, control.Pause{}))
	h.sync()

	assert.Equal(t, []string{"abc123"}, h.player.Loads())
	plays, pauses := h.player.Counts()
	assert.Equal(t, 1, plays)
	assert.Equal(t, 1, pauses)
	assert.Equal(t, 3, h.s.Snapshot().Received)
}

func TestMalformedCommandIsDropped(t *testing.T) {
	h := newHarness(t)
	conn := h.connectInitiator("x")

	conn.events.OnData([]byte{0xc1, 0x00})
	conn.events.OnData(mustEncode(t, control.Play{}))
	h.sync()

	assert.True(t, h.sawError(ErrMalformedCommand))
	assert.Equal(t, StateConnected, h.s.State())
	plays, _ := h.player.Counts()
	assert.Equal(t, 1, plays, "channel keeps working after a bad command")
}

func TestDataBeforeConnectedIsBuffered(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.s.HandleOffer("y", []byte("offer")))
	conn := h.transport.Last()

	conn.events.OnData(mustEncode(t, control.LoadMedia{Reference: "early"}))
	h.sync()
	assert.Empty(t, h.player.Loads())

	conn.events.OnConnected()
	h.sync()
	assert.Equal(t, []string{"early"}, h.player.Loads())
}

func TestRemoteStreamAttachedOnce(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.s.HandleOffer("y", []byte("offer")))
	conn := h.transport.Last()

	conn.events.OnRemoteStream(fakeStream("partner"))
	h.sync()
	assert.Empty(t, h.display.Attached(), "not attached before connected")

	conn.events.OnConnected()
	conn.events.OnRemoteStream(fakeStream("partner"))
	conn.events.OnRemoteStream(fakeStream("other"))
	h.sync()

	assert.Equal(t, []RemoteStream{fakeStream("partner")}, h.display.Attached())
}

func TestRemoteStreamAfterConnected(t *testing.T) {
	h := newHarness(t)
	conn := h.connectInitiator("x")

	conn.events.OnRemoteStream(fakeStream("late"))
	h.sync()
	assert.Equal(t, []RemoteStream{fakeStream("late")}, h.display.Attached())
}

func TestPerformEchoesLocally(t *testing.T) {
	h := newHarness(t)
	conn := h.connectInitiator("x")

	require.NoError(t, h.s.Perform(control.LoadMedia{Reference: "abc123"}))
	assert.Equal(t, []string{"abc123"}, h.player.Loads())
	assert.Len(t, conn.Sent(), 1)

	err := h.s.Perform(control.LoadMedia{})
	assert.ErrorIs(t, err, errBadReference)
	assert.Len(t, conn.Sent(), 1, "rejected reference is not sent")
}

func TestPerformWhileIdle(t *testing.T) {
	h := newHarness(t)

	err := h.s.Perform(control.Play{})
	assert.ErrorIs(t, err, ErrNotConnected)
	plays, _ := h.player.Counts()
	assert.Equal(t, 1, plays, "local player still follows the user")
}

func TestCloseInAnyState(t *testing.T) {
	t.Run("idle", func(t *testing.T) {
		h := newHarness(t)
		require.NoError(t, h.s.Close())
		require.NoError(t, h.s.Close())
		assert.Equal(t, StateClosed, h.s.State())
	})

	t.Run("negotiating", func(t *testing.T) {
		h := newHarness(t)
		require.NoError(t, h.s.Initiate("x"))
		conn := h.transport.Last()

		require.NoError(t, h.s.Close())
		assert.Equal(t, StateClosed, h.s.State())
		assert.Eventually(t, conn.Closed, eventually, 5*time.Millisecond)

		// Late callbacks from the released handle find no session to mutate.
		conn.events.OnConnected()
		conn.events.OnData(mustEncode(t, control.Play{}))
		plays, _ := h.player.Counts()
		assert.Zero(t, plays)
		assert.Equal(t, StateClosed, h.s.State())
	})

	t.Run("connected", func(t *testing.T) {
		h := newHarness(t)
		conn := h.connectInitiator("x")
		require.NoError(t, h.s.Close())
		assert.Eventually(t, conn.Closed, eventually, 5*time.Millisecond)

		select {
		case err := <-h.runErr:
			assert.NoError(t, err)
		case <-time.After(eventually):
			t.Fatal("Run did not return")
		}
	})

	t.Run("closed sessions do not restart", func(t *testing.T) {
		h := newHarness(t)
		require.NoError(t, h.s.Close())
		assert.Error(t, h.s.Initiate("x"))
		assert.Error(t, h.s.HandleOffer("y", []byte("offer")))
		assert.Zero(t, h.transport.Count())
	})
}
