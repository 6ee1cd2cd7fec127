package webrtc

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BioHazard786/Synctube/cli/internal/config"
	"github.com/BioHazard786/Synctube/cli/internal/session"
	"github.com/pion/interceptor"
	pion "github.com/pion/webrtc/v4"
)

var (
	ErrInvalidSignal    = errors.New("invalid negotiation payload")
	ErrUnexpectedSignal = errors.New("unexpected negotiation payload")
	ErrChannelNotOpen   = errors.New("control channel not open")
	ErrChannelClosed    = errors.New("control channel closed")
	ErrConnectionFailed = errors.New("peer connection failed")
	ErrConnectionClosed = errors.New("peer connection closed")
)

const (
	controlLabel  = "control"
	gatherTimeout = 10 * time.Second
)

// localTracks is local media that carries tracks to send.
type localTracks interface {
	Tracks() []pion.TrackLocal
}

// Transport creates pion peer connections. It implements session.Transport.
type Transport struct {
	api    *pion.API
	config pion.Configuration
}

// NewTransport builds a transport using the ICE servers and relay policy
// in cfg.
func NewTransport(cfg *config.Config) (*Transport, error) {
	return newTransport(iceConfiguration(cfg), pion.SettingEngine{})
}

func newTransport(conf pion.Configuration, se pion.SettingEngine) (*Transport, error) {
	m := &pion.MediaEngine{}
	if err := m.RegisterDefaultCodecs(); err != nil {
		return nil, fmt.Errorf("register codecs: %w", err)
	}

	registry := &interceptor.Registry{}
	if err := pion.RegisterDefaultInterceptors(m, registry); err != nil {
		return nil, fmt.Errorf("register interceptors: %w", err)
	}

	api := pion.NewAPI(
		pion.WithMediaEngine(m),
		pion.WithInterceptorRegistry(registry),
		pion.WithSettingEngine(se),
	)
	return &Transport{api: api, config: conf}, nil
}

// NewConnection creates a peer connection for role with media attached. The
// initiator starts producing its offer right away; the responder waits for
// ApplySignal.
func (t *Transport) NewConnection(role session.Role, media session.LocalMedia, events session.ConnectionEvents) (session.Connection, error) {
	pc, err := t.api.NewPeerConnection(t.config)
	if err != nil {
		return nil, fmt.Errorf("create peer connection: %w", err)
	}

	c := &Connection{pc: pc, role: role, events: events}
	c.setupHandlers()

	if err := c.attachMedia(media); err != nil {
		pc.Close()
		return nil, err
	}

	if role == session.RoleInitiator {
		ordered := true
		dc, err := pc.CreateDataChannel(controlLabel, &pion.DataChannelInit{Ordered: &ordered})
		if err != nil {
			pc.Close()
			return nil, fmt.Errorf("create data channel: %w", err)
		}
		c.setupDataChannel(dc)
		go c.offer()
	}

	return c, nil
}

// Connection is one pion peer connection plus its control data channel.
type Connection struct {
	pc     *pion.PeerConnection
	role   session.Role
	events session.ConnectionEvents

	mu     sync.Mutex
	dc     *pion.DataChannel
	stream *RemoteStream

	closing   atomic.Bool
	closeOnce sync.Once
	failOnce  sync.Once
}

func (c *Connection) setupHandlers() {
	c.pc.OnDataChannel(func(dc *pion.DataChannel) {
		if dc.Label() != controlLabel {
			slog.Debug("ignoring data channel", "label", dc.Label())
			return
		}
		c.setupDataChannel(dc)
	})

	c.pc.OnTrack(func(track *pion.TrackRemote, _ *pion.RTPReceiver) {
		c.addTrack(track)
	})

	c.pc.OnConnectionStateChange(func(state pion.PeerConnectionState) {
		slog.Debug("peer connection state", "role", c.role.String(), "state", state.String())
		switch state {
		case pion.PeerConnectionStateFailed:
			c.fail(ErrConnectionFailed)
		case pion.PeerConnectionStateClosed:
			c.fail(ErrConnectionClosed)
		}
	})
}

func (c *Connection) attachMedia(media session.LocalMedia) error {
	sending := map[pion.RTPCodecType]bool{}

	if lt, ok := media.(localTracks); ok {
		for _, track := range lt.Tracks() {
			sender, err := c.pc.AddTrack(track)
			if err != nil {
				return fmt.Errorf("add %s track: %w", track.Kind(), err)
			}
			sending[track.Kind()] = true
			go drainRTCP(sender)
		}
	}

	// The initiator's offer decides which m-lines exist, so it asks for
	// whatever it does not send itself.
	if c.role == session.RoleInitiator {
		for _, kind := range []pion.RTPCodecType{pion.RTPCodecTypeAudio, pion.RTPCodecTypeVideo} {
			if sending[kind] {
				continue
			}
			if _, err := c.pc.AddTransceiverFromKind(kind, pion.RTPTransceiverInit{
				Direction: pion.RTPTransceiverDirectionRecvonly,
			}); err != nil {
				return fmt.Errorf("add %s transceiver: %w", kind, err)
			}
		}
	}
	return nil
}

// drainRTCP reads incoming RTCP so interceptors keep working.
func drainRTCP(sender *pion.RTPSender) {
	buf := make([]byte, 1500)
	for {
		if _, _, err := sender.Read(buf); err != nil {
			return
		}
	}
}

func (c *Connection) setupDataChannel(dc *pion.DataChannel) {
	c.mu.Lock()
	c.dc = dc
	c.mu.Unlock()

	dc.OnOpen(func() {
		if !c.closing.Load() {
			c.events.OnConnected()
		}
	})
	dc.OnMessage(func(msg pion.DataChannelMessage) {
		c.events.OnData(msg.Data)
	})
	dc.OnClose(func() {
		c.fail(ErrChannelClosed)
	})
}

func (c *Connection) addTrack(track *pion.TrackRemote) {
	c.mu.Lock()
	first := c.stream == nil
	if first {
		c.stream = newRemoteStream(track.StreamID())
	}
	stream := c.stream
	c.mu.Unlock()

	slog.Debug("remote track", "stream", track.StreamID(), "kind", track.Kind().String(), "codec", track.Codec().MimeType)
	stream.add(&remoteTrack{track: track})
	if first {
		c.events.OnRemoteStream(stream)
	}
}

func (c *Connection) offer() {
	offer, err := c.pc.CreateOffer(nil)
	if err != nil {
		c.fail(fmt.Errorf("create offer: %w", err))
		return
	}
	c.publish(offer)
}

func (c *Connection) answer() {
	answer, err := c.pc.CreateAnswer(nil)
	if err != nil {
		c.fail(fmt.Errorf("create answer: %w", err))
		return
	}
	c.publish(answer)
}

// publish sets desc as the local description and emits it once ICE
// gathering has finished.
func (c *Connection) publish(desc pion.SessionDescription) {
	gathered := pion.GatheringCompletePromise(c.pc)

	if err := c.pc.SetLocalDescription(desc); err != nil {
		c.fail(fmt.Errorf("set local description: %w", err))
		return
	}

	select {
	case <-gathered:
	case <-time.After(gatherTimeout):
		slog.Warn("ICE gathering incomplete, sending partial candidates", "role", c.role.String())
	}

	if c.closing.Load() {
		return
	}

	payload, err := encodeSignal(*c.pc.LocalDescription())
	if err != nil {
		c.fail(fmt.Errorf("encode %s: %w", desc.Type, err))
		return
	}
	c.events.OnSignal(payload)
}

// ApplySignal applies the partner's offer or answer. The responder answers
// asynchronously through OnSignal.
func (c *Connection) ApplySignal(payload []byte) error {
	desc, err := decodeSignal(payload)
	if err != nil {
		return err
	}

	switch {
	case c.role == session.RoleResponder && desc.Type == pion.SDPTypeOffer:
		if err := c.pc.SetRemoteDescription(desc); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidSignal, err)
		}
		go c.answer()
		return nil

	case c.role == session.RoleInitiator && desc.Type == pion.SDPTypeAnswer:
		if err := c.pc.SetRemoteDescription(desc); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidSignal, err)
		}
		return nil

	default:
		return fmt.Errorf("%w: %s for %s", ErrUnexpectedSignal, desc.Type, c.role)
	}
}

// SendData writes data to the control channel.
func (c *Connection) SendData(data []byte) error {
	c.mu.Lock()
	dc := c.dc
	c.mu.Unlock()

	if dc == nil || dc.ReadyState() != pion.DataChannelStateOpen {
		return ErrChannelNotOpen
	}
	return dc.Send(data)
}

// Close closes the peer connection. No OnClosed event follows a local close.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.closing.Store(true)
		err = c.pc.Close()
	})
	return err
}

// fail reports the first transport failure unless the connection is being
// closed locally.
func (c *Connection) fail(err error) {
	if c.closing.Load() {
		return
	}
	c.failOnce.Do(func() {
		slog.Debug("transport closed", "role", c.role.String(), "error", err)
		c.events.OnClosed(err)
	})
}
