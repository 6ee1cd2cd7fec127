package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BioHazard786/Synctube/cli/internal/config"
	"github.com/BioHazard786/Synctube/cli/internal/control"
	"github.com/BioHazard786/Synctube/cli/internal/media"
	"github.com/BioHazard786/Synctube/cli/internal/player"
	"github.com/BioHazard786/Synctube/cli/internal/session"
	"github.com/BioHazard786/Synctube/cli/internal/signaling"
	"github.com/BioHazard786/Synctube/cli/internal/ui"
	"github.com/BioHazard786/Synctube/cli/internal/utils"
	"github.com/BioHazard786/Synctube/cli/internal/webrtc"
)

const (
	recorderDrainTimeout = 3 * time.Second
	stateChangeBuffer    = 16
)

// roomView shows a room and collects what the user types.
type roomView interface {
	Start()
	Intents() <-chan ui.Intent
	SetPhase(phase ui.Phase, msg string)
	SetRoom(roomID, link string)
	SetPartner(partnerID string)
	SetPlayer(st player.State)
	Notice(level ui.Level, msg string)
	Stop()
}

type roomOptions struct {
	config.Options
	Headless bool
}

type ConnectionContext struct {
	Client  *signaling.Client
	Handler *signaling.Handler
	Config  *config.Config
}

func NewConnectionContext(ctx context.Context, cfg *config.Config) (*ConnectionContext, error) {
	client := signaling.NewClient(cfg.WebSocketURL)
	if err := client.Connect(ctx); err != nil {
		return nil, session.NewError("connect to server", err)
	}

	handler := signaling.NewHandler(client)
	go handler.Start()

	return &ConnectionContext{
		Client:  client,
		Handler: handler,
		Config:  cfg,
	}, nil
}

func (c *ConnectionContext) Close() {
	if c.Client != nil {
		c.Client.Leave()
		c.Client.Close()
	}
}

func LoadConfig(opts config.Options) (*config.Config, error) {
	cfg, err := config.Load(opts)
	if err != nil {
		return nil, session.NewError("load config", err)
	}

	if cfg.ForceRelay && cfg.GetTURNServers() == nil {
		return nil, fmt.Errorf("cannot force relay mode without TURN server configured")
	}

	return cfg, nil
}

func acquireMedia(cfg *config.Config) (*media.Stream, error) {
	if cfg.MediaSource == config.MediaFile {
		infos, err := media.ValidateFiles(cfg.VideoFile, cfg.AudioFile)
		if err != nil {
			return nil, err
		}
		for _, info := range infos {
			ui.PrintInfof("Streaming %s %s (%s)", info.Kind, info.Name, utils.FormatSize(info.Size))
		}
	}

	stream, err := media.Acquire(media.Options{
		Source:    media.Source(cfg.MediaSource),
		VideoFile: cfg.VideoFile,
		AudioFile: cfg.AudioFile,
	})
	if err != nil {
		return nil, session.NewError("acquire media", err)
	}
	return stream, nil
}

// runRoom joins roomID, or creates a room when roomID is empty, and keeps
// the local player in step with the partner's until the user leaves.
func runRoom(roomID string, opts roomOptions) error {
	cfg, err := LoadConfig(opts.Options)
	if err != nil {
		return err
	}

	stream, err := acquireMedia(cfg)
	if err != nil {
		return err
	}
	defer stream.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Println()
	spin := ui.RunConnectionSpinner("Connecting to server...")
	conn, err := NewConnectionContext(ctx, cfg)
	if err != nil {
		spin.Error("Could not reach the signaling server")
		return err
	}
	defer conn.Close()

	spin.UpdateMessage("Preparing peer connection...")
	transport, err := webrtc.NewTransport(cfg)
	if err != nil {
		spin.Error("Could not set up WebRTC")
		return session.NewError("create transport", err)
	}
	spin.Success("Connected to server")

	var view roomView
	if opts.Headless {
		view = ui.NewConsoleUI(os.Stdin, os.Stdout)
	} else {
		fmt.Println(ui.CommandTableView())
		view = ui.NewRoomUI()
	}

	r := newRoom(conn, view, media.NewRecorder(cfg.RecordDir))
	sess, err := session.New(session.Config{
		Transport:          transport,
		Signaler:           conn.Client,
		Player:             r.player,
		Display:            r.recorder,
		Media:              stream,
		NegotiationTimeout: cfg.NegotiationTimeout,
		Hooks:              r.hooks(),
	})
	if err != nil {
		return err
	}
	r.session = sess

	view.Start()
	runErr := r.run(ctx, roomID)
	view.Stop()

	stream.Close()
	r.drainRecorder()
	ui.RenderSessionSummary(r.summary(runErr))

	if errors.Is(runErr, session.ErrPartnerLeft) {
		ui.PrintWarning("Your partner left the room")
		return nil
	}
	return runErr
}

// room ties relay events and user intent to one session.
type room struct {
	conn     *ConnectionContext
	view     roomView
	session  *session.Session
	player   *player.Player
	recorder *media.Recorder

	// Owned by run.
	stateChanges chan session.State
	partnerID    string
	initiator    bool

	roomID string
	ended  time.Time
}

func newRoom(conn *ConnectionContext, view roomView, recorder *media.Recorder) *room {
	r := &room{
		conn:     conn,
		view:     view,
		player:   player.New(),
		recorder: recorder,

		stateChanges: make(chan session.State, stateChangeBuffer),
	}

	r.player.OnChange(view.SetPlayer)
	recorder.OnAttach(func(streamID string) {
		view.Notice(ui.LevelInfo, fmt.Sprintf("%s receiving partner media", ui.IconMedia))
	})
	recorder.OnFile(func(path string) {
		view.Notice(ui.LevelInfo, fmt.Sprintf("%s recording to %s", ui.IconRecord, path))
	})
	return r
}

// hooks run on the session goroutine. They only touch the view, and state
// changes are handed to run, which knows whether a partner is present.
func (r *room) hooks() session.Hooks {
	return session.Hooks{
		OnStateChange: func(from, to session.State) {
			select {
			case r.stateChanges <- to:
			default:
				slog.Debug("state change dropped", "from", from, "to", to)
			}
		},
		OnError: func(err error) {
			r.view.Notice(ui.LevelError, err.Error())
		},
		OnCommandSent: func(cmd control.Command) {
			r.view.Notice(ui.LevelInfo, fmt.Sprintf("you: %s", cmd))
		},
		OnCommandReceived: func(cmd control.Command) {
			r.view.Notice(ui.LevelInfo, fmt.Sprintf("partner: %s", cmd))
		},
	}
}

func (r *room) run(ctx context.Context, roomID string) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errc := make(chan error, 1)
	go func() { errc <- r.session.Run(runCtx) }()

	finish := func() error {
		r.session.Close()
		err := <-errc
		r.ended = time.Now()
		return err
	}

	r.view.SetPhase(ui.PhaseConnecting, "Joining room...")
	if err := r.conn.Client.Join(roomID); err != nil {
		finish()
		return session.NewError("join room", err)
	}

	h := r.conn.Handler
	partner, peerJoined, peerLeft := h.Partner, h.PeerJoined, h.PeerLeft
	signals, roomFull, undeliverable, relayErrors := h.Signal, h.RoomFull, h.Undeliverable, h.Error
	relayDone := r.conn.Client.Done()

	for {
		select {
		case <-ctx.Done():
			return finish()

		case err := <-errc:
			r.ended = time.Now()
			return err

		case intent := <-r.view.Intents():
			if intent.Quit {
				return finish()
			}
			if intent.Retry {
				r.retry()
				continue
			}
			if intent.Command == nil {
				continue
			}
			if err := r.session.Perform(intent.Command); err != nil {
				slog.Debug("perform failed", "command", intent.Command.Kind(), "error", err)
				if errors.Is(err, session.ErrNotConnected) {
					r.view.Notice(ui.LevelWarn, "no partner yet, applied locally only")
				} else {
					r.view.Notice(ui.LevelWarn, err.Error())
				}
			}

		case to := <-r.stateChanges:
			r.onStateChange(to)

		case info, ok := <-partner:
			if !ok {
				partner = nil
				continue
			}
			r.onPartner(info)

		case id, ok := <-peerJoined:
			if !ok {
				peerJoined = nil
				continue
			}
			r.onPeerJoined(id)

		case sig, ok := <-signals:
			if !ok {
				signals = nil
				continue
			}
			r.onSignal(sig)

		case id, ok := <-undeliverable:
			if !ok {
				undeliverable = nil
				continue
			}
			r.session.Undeliverable(id)

		case id, ok := <-peerLeft:
			if !ok {
				peerLeft = nil
				continue
			}
			r.onPeerLeft(id)

		case id, ok := <-roomFull:
			if !ok {
				roomFull = nil
				continue
			}
			finish()
			return session.WrapError("join room", session.ErrRoomFull, id)

		case msg, ok := <-relayErrors:
			if !ok {
				relayErrors = nil
				continue
			}
			r.view.Notice(ui.LevelError, "server: "+msg)

		case <-relayDone:
			// The relay is gone. A connected session keeps its direct link;
			// anything else cannot make progress.
			relayDone = nil
			if r.session.State() != session.StateConnected {
				finish()
				return session.NewError("signaling", signaling.ErrClosed)
			}
			r.view.Notice(ui.LevelWarn, "lost the signaling server, staying connected to partner")
		}
	}
}

func (r *room) onPartner(info *signaling.PartnerInfo) {
	if info == nil {
		return
	}
	r.roomID = info.RoomID
	r.view.SetRoom(info.RoomID, r.conn.Config.GetRoomLink(info.RoomID))

	if info.PartnerID == "" {
		r.view.SetPhase(ui.PhaseWaiting, "Waiting for a partner to join...")
		return
	}

	r.partnerID = info.PartnerID
	r.initiator = true
	r.view.SetPartner(info.PartnerID)
	if err := r.session.Initiate(info.PartnerID); err != nil {
		slog.Debug("initiate failed", "partner", info.PartnerID, "error", err)
	}
}

func (r *room) onPeerJoined(id string) {
	r.partnerID = id
	r.initiator = false
	r.view.SetPartner(id)
	r.view.Notice(ui.LevelInfo, fmt.Sprintf("%s partner joined", ui.IconPeer))
}

func (r *room) onPeerLeft(id string) {
	if id == r.partnerID {
		r.partnerID = ""
		r.initiator = false
		r.view.SetPartner("")
	}
	r.view.Notice(ui.LevelWarn, fmt.Sprintf("%s partner left", ui.IconLeft))
	r.session.PartnerLeft(id)
}

func (r *room) onStateChange(to session.State) {
	switch to {
	case session.StateIdle:
		if r.partnerID == "" {
			r.view.SetPhase(ui.PhaseWaiting, "Waiting for a partner to join...")
			return
		}
		// Negotiation failed with the partner still in the room.
		r.view.SetPhase(ui.PhaseWaiting, "Connection attempt failed")
		if r.initiator {
			r.view.Notice(ui.LevelWarn, "could not reach your partner, type retry to try again")
		} else {
			r.view.Notice(ui.LevelWarn, "could not reach your partner, waiting for them to retry")
		}
	case session.StateNegotiating:
		r.view.SetPhase(ui.PhaseNegotiating, "Connecting to partner...")
	case session.StateConnected:
		r.view.SetPhase(ui.PhaseConnected, "Connected")
	case session.StateClosed:
		r.view.SetPhase(ui.PhaseClosed, "Session closed")
	}
}

// retry starts a fresh negotiation with the partner already in the room.
// Only the initiator offers, so the responder just keeps waiting.
func (r *room) retry() {
	switch {
	case r.partnerID == "":
		r.view.Notice(ui.LevelWarn, "no partner in the room yet")
	case !r.initiator:
		r.view.Notice(ui.LevelInfo, "waiting for your partner to retry")
	default:
		if err := r.session.Initiate(r.partnerID); err != nil {
			slog.Debug("retry failed", "partner", r.partnerID, "error", err)
			if errors.Is(err, session.ErrBusy) {
				r.view.Notice(ui.LevelWarn, "already connecting or connected")
			} else {
				r.view.Notice(ui.LevelWarn, err.Error())
			}
		}
	}
}

func (r *room) onSignal(sig *signaling.Signal) {
	if sig == nil {
		return
	}

	var err error
	switch sig.Type {
	case signaling.MessageTypeOffer:
		err = r.session.HandleOffer(sig.SenderID, sig.Payload)
	case signaling.MessageTypeAnswer:
		err = r.session.HandleAnswer(sig.SenderID, sig.Payload)
	}
	if err != nil {
		slog.Debug("signal rejected", "type", sig.Type, "sender", sig.SenderID, "error", err)
	}
}

func (r *room) drainRecorder() {
	done := make(chan struct{})
	go func() {
		r.recorder.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(recorderDrainTimeout):
		slog.Warn("recorder still writing at exit")
	}
}

func (r *room) summary(err error) ui.SessionSummary {
	snap := r.session.Snapshot()

	var connected time.Duration
	if !snap.ConnectedAt.IsZero() && !r.ended.IsZero() {
		connected = r.ended.Sub(snap.ConnectedAt)
	}

	return ui.SessionSummary{
		RoomID:     r.roomID,
		Role:       snap.Role.String(),
		PartnerID:  snap.PartnerID,
		State:      snap.State.String(),
		Sent:       snap.Sent,
		Received:   snap.Received,
		Duration:   connected,
		Recordings: r.recorder.Files(),
		Err:        err,
	}
}
