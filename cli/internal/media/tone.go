package media

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/pion/webrtc/v4"
	pionmedia "github.com/pion/webrtc/v4/pkg/media"
	"gopkg.in/hraban/opus.v2"
)

// 48kHz stereo, 20ms frames (960 samples per channel)
const (
	toneSampleRate = 48000
	toneChannels   = 2
	toneFrameSize  = 960
	toneFrequency  = 440.0
	toneAmplitude  = 0.2 * math.MaxInt16
	toneBitrate    = 64000
	toneFrameDur   = 20 * time.Millisecond
)

// toneGenerator produces a continuous sine wave across frames.
type toneGenerator struct {
	step  float64
	phase float64
}

func newToneGenerator(freq float64) *toneGenerator {
	return &toneGenerator{step: 2 * math.Pi * freq / toneSampleRate}
}

// fill writes one interleaved stereo frame into pcm.
func (g *toneGenerator) fill(pcm []int16) {
	for i := 0; i+toneChannels <= len(pcm); i += toneChannels {
		v := int16(toneAmplitude * math.Sin(g.phase))
		for c := 0; c < toneChannels; c++ {
			pcm[i+c] = v
		}
		g.phase += g.step
		if g.phase >= 2*math.Pi {
			g.phase -= 2 * math.Pi
		}
	}
}

func newToneEncoder() (*opus.Encoder, error) {
	enc, err := opus.NewEncoder(toneSampleRate, toneChannels, opus.AppAudio)
	if err != nil {
		return nil, fmt.Errorf("create opus encoder: %w", err)
	}
	if err := enc.SetBitrate(toneBitrate); err != nil {
		return nil, fmt.Errorf("set opus bitrate: %w", err)
	}
	return enc, nil
}

// playTone encodes the tone in real time and writes it to track until ctx
// ends.
func playTone(ctx context.Context, track *webrtc.TrackLocalStaticSample, enc *opus.Encoder, freq float64) error {
	gen := newToneGenerator(freq)
	pcm := make([]int16, toneFrameSize*toneChannels)
	buf := make([]byte, 1024)

	ticker := time.NewTicker(toneFrameDur)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		gen.fill(pcm)
		n, err := enc.Encode(pcm, buf)
		if err != nil {
			return fmt.Errorf("encode tone: %w", err)
		}

		data := make([]byte, n)
		copy(data, buf[:n])
		if err := track.WriteSample(pionmedia.Sample{Data: data, Duration: toneFrameDur}); err != nil {
			return fmt.Errorf("write tone: %w", err)
		}
	}
}
