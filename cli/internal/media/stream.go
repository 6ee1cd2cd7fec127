package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pion/webrtc/v4"
)

// Source selects what the local stream carries.
type Source string

const (
	SourceNone Source = "none"
	SourceTone Source = "tone"
	SourceFile Source = "file"
)

const streamID = "synctube"

// Options configure Acquire.
type Options struct {
	Source    Source
	VideoFile string
	AudioFile string
}

// Stream is the local outbound media. Its tracks are fed by background
// goroutines until Close.
type Stream struct {
	tracks []webrtc.TrackLocal
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// Acquire opens the local media described by opts and starts feeding its
// tracks. A none source yields a stream without tracks.
func Acquire(opts Options) (*Stream, error) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Stream{cancel: cancel}

	var err error
	switch opts.Source {
	case SourceNone, "":
	case SourceTone:
		err = s.addTone(ctx)
	case SourceFile:
		err = s.addFiles(ctx, opts.VideoFile, opts.AudioFile)
	default:
		err = fmt.Errorf("unknown media source %q", opts.Source)
	}
	if err != nil {
		s.Close()
		return nil, err
	}

	return s, nil
}

// Tracks returns the tracks to attach to a peer connection.
func (s *Stream) Tracks() []webrtc.TrackLocal {
	return s.tracks
}

// Close stops feeding the tracks and waits for the feeders to exit.
func (s *Stream) Close() error {
	s.once.Do(func() {
		s.cancel()
		s.wg.Wait()
	})
	return nil
}

func (s *Stream) addTone(ctx context.Context) error {
	track, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: toneSampleRate, Channels: toneChannels},
		"audio", streamID,
	)
	if err != nil {
		return fmt.Errorf("create tone track: %w", err)
	}

	enc, err := newToneEncoder()
	if err != nil {
		return err
	}

	s.tracks = append(s.tracks, track)
	s.feed("tone", func() error { return playTone(ctx, track, enc, toneFrequency) })
	return nil
}

func (s *Stream) addFiles(ctx context.Context, videoPath, audioPath string) error {
	infos, err := ValidateFiles(videoPath, audioPath)
	if err != nil {
		return err
	}

	for _, info := range infos {
		switch info.Kind {
		case KindVideo:
			player, err := openIVF(info.Path)
			if err != nil {
				return err
			}
			track, err := webrtc.NewTrackLocalStaticSample(
				webrtc.RTPCodecCapability{MimeType: player.mimeType}, "video", streamID,
			)
			if err != nil {
				player.close()
				return fmt.Errorf("create video track: %w", err)
			}
			s.tracks = append(s.tracks, track)
			s.feed(info.Name, func() error { return player.play(ctx, track) })

		case KindAudio:
			player, err := openOgg(info.Path)
			if err != nil {
				return err
			}
			track, err := webrtc.NewTrackLocalStaticSample(
				webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus}, "audio", streamID,
			)
			if err != nil {
				player.close()
				return fmt.Errorf("create audio track: %w", err)
			}
			s.tracks = append(s.tracks, track)
			s.feed(info.Name, func() error { return player.play(ctx, track) })
		}
	}
	return nil
}

func (s *Stream) feed(name string, run func() error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := run(); err != nil && !errors.Is(err, context.Canceled) {
			slog.Warn("local media stopped", "source", name, "error", err)
		}
	}()
}
