package webrtc

import (
	"sync"

	"github.com/BioHazard786/Synctube/cli/internal/media"
	"github.com/pion/rtp"
	pion "github.com/pion/webrtc/v4"
)

// RemoteStream collects the partner's inbound tracks. Tracks keep arriving
// after the stream is first reported, so consumers subscribe with OnTrack.
type RemoteStream struct {
	id string

	mu     sync.Mutex
	tracks []media.RemoteTrack
	subs   []func(media.RemoteTrack)
}

func newRemoteStream(id string) *RemoteStream {
	return &RemoteStream{id: id}
}

func (s *RemoteStream) ID() string {
	return s.id
}

// OnTrack calls fn for every track already received and every later one.
func (s *RemoteStream) OnTrack(fn func(media.RemoteTrack)) {
	s.mu.Lock()
	s.subs = append(s.subs, fn)
	tracks := append([]media.RemoteTrack(nil), s.tracks...)
	s.mu.Unlock()

	for _, t := range tracks {
		fn(t)
	}
}

func (s *RemoteStream) add(track media.RemoteTrack) {
	s.mu.Lock()
	s.tracks = append(s.tracks, track)
	subs := append([]func(media.RemoteTrack)(nil), s.subs...)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(track)
	}
}

// remoteTrack adapts a pion track to media.RemoteTrack.
type remoteTrack struct {
	track *pion.TrackRemote
}

func (t *remoteTrack) ID() string {
	return t.track.ID()
}

func (t *remoteTrack) MimeType() string {
	return t.track.Codec().MimeType
}

func (t *remoteTrack) ReadRTP() (*rtp.Packet, error) {
	pkt, _, err := t.track.ReadRTP()
	return pkt, err
}
