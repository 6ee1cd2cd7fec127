package media

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BioHazard786/Synctube/cli/internal/session"
	"github.com/BioHazard786/Synctube/cli/internal/utils"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media/ivfwriter"
	"github.com/pion/webrtc/v4/pkg/media/oggwriter"
)

// RemoteTrack is one inbound track of the partner's stream.
type RemoteTrack interface {
	ID() string
	MimeType() string
	ReadRTP() (*rtp.Packet, error)
}

// TrackStream is a remote stream that announces its tracks as they arrive.
type TrackStream interface {
	session.RemoteStream
	OnTrack(fn func(RemoteTrack))
}

type rtpWriter interface {
	WriteRTP(packet *rtp.Packet) error
	Close() error
}

// Recorder shows the partner's stream by writing each of its tracks to disk.
// VP8 goes to IVF, Opus to Ogg; other codecs are drained and dropped. With
// no directory the stream is announced but nothing is written.
type Recorder struct {
	dir string

	mu       sync.Mutex
	files    []string
	onAttach func(streamID string)
	onFile   func(path string)
	wg       sync.WaitGroup
}

func NewRecorder(dir string) *Recorder {
	return &Recorder{dir: dir}
}

// OnAttach registers fn to be called when a partner stream is attached.
func (r *Recorder) OnAttach(fn func(streamID string)) {
	r.mu.Lock()
	r.onAttach = fn
	r.mu.Unlock()
}

// OnFile registers fn to be called when a recording file is created.
func (r *Recorder) OnFile(fn func(path string)) {
	r.mu.Lock()
	r.onFile = fn
	r.mu.Unlock()
}

// Attach implements session.Display.
func (r *Recorder) Attach(stream session.RemoteStream) {
	r.mu.Lock()
	onAttach := r.onAttach
	r.mu.Unlock()
	if onAttach != nil {
		onAttach(stream.ID())
	}

	ts, ok := stream.(TrackStream)
	if !ok {
		slog.Debug("remote stream carries no tracks", "stream", stream.ID())
		return
	}
	ts.OnTrack(func(track RemoteTrack) {
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			r.record(stream.ID(), track)
		}()
	})
}

// Files lists the recordings created so far.
func (r *Recorder) Files() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.files...)
}

// Wait blocks until every attached track has ended.
func (r *Recorder) Wait() {
	r.wg.Wait()
}

func (r *Recorder) record(streamID string, track RemoteTrack) {
	w, path, err := r.open(streamID, track)
	if err != nil {
		slog.Warn("cannot record partner track", "track", track.ID(), "error", err)
	}
	if w != nil {
		defer w.Close()
		r.mu.Lock()
		r.files = append(r.files, path)
		onFile := r.onFile
		r.mu.Unlock()
		if onFile != nil {
			onFile(path)
		}
	}

	for {
		pkt, err := track.ReadRTP()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				slog.Debug("partner track ended", "track", track.ID(), "error", err)
			}
			return
		}
		if w == nil {
			continue
		}
		if err := w.WriteRTP(pkt); err != nil {
			slog.Warn("recording failed", "path", path, "error", err)
			w = nil
		}
	}
}

func (r *Recorder) open(streamID string, track RemoteTrack) (rtpWriter, string, error) {
	if r.dir == "" {
		return nil, "", nil
	}

	var ext string
	switch {
	case strings.EqualFold(track.MimeType(), webrtc.MimeTypeVP8):
		ext = ".ivf"
	case strings.EqualFold(track.MimeType(), webrtc.MimeTypeOpus):
		ext = ".ogg"
	default:
		return nil, "", fmt.Errorf("unsupported codec %s", track.MimeType())
	}

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return nil, "", fmt.Errorf("create record dir: %w", err)
	}
	path := utils.UniquePath(filepath.Join(r.dir, "partner-"+sanitize(streamID)+ext))

	var w rtpWriter
	var err error
	if ext == ".ivf" {
		w, err = ivfwriter.New(path)
	} else {
		w, err = oggwriter.New(path, oggSampleRate, 2)
	}
	if err != nil {
		return nil, "", fmt.Errorf("create %s: %w", path, err)
	}
	return w, path, nil
}

func sanitize(id string) string {
	if id == "" {
		return "stream"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, id)
}
