package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pion/webrtc/v4"
	pionmedia "github.com/pion/webrtc/v4/pkg/media"
	"github.com/pion/webrtc/v4/pkg/media/ivfreader"
	"github.com/pion/webrtc/v4/pkg/media/oggreader"
)

const (
	defaultFrameDur = 33 * time.Millisecond
	oggSampleRate   = 48000
)

// ivfPlayer loops an IVF file onto a sample track.
type ivfPlayer struct {
	file     *os.File
	reader   *ivfreader.IVFReader
	frameDur time.Duration
	mimeType string
}

func openIVF(path string) (*ivfPlayer, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open video: %w", err)
	}

	reader, header, err := ivfreader.NewWith(file)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("read IVF header: %w", err)
	}

	mimeType, err := ivfMimeType(header.FourCC)
	if err != nil {
		file.Close()
		return nil, err
	}

	frameDur := defaultFrameDur
	if header.TimebaseDenominator != 0 && header.TimebaseNumerator != 0 {
		frameDur = time.Duration(float64(time.Second) *
			float64(header.TimebaseNumerator) / float64(header.TimebaseDenominator))
	}

	return &ivfPlayer{file: file, reader: reader, frameDur: frameDur, mimeType: mimeType}, nil
}

func ivfMimeType(fourCC string) (string, error) {
	switch fourCC {
	case "VP80":
		return webrtc.MimeTypeVP8, nil
	case "VP90":
		return webrtc.MimeTypeVP9, nil
	case "AV01":
		return webrtc.MimeTypeAV1, nil
	default:
		return "", fmt.Errorf("unsupported IVF codec %q", fourCC)
	}
}

func (p *ivfPlayer) play(ctx context.Context, track *webrtc.TrackLocalStaticSample) error {
	defer p.close()

	ticker := time.NewTicker(p.frameDur)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		frame, _, err := p.reader.ParseNextFrame()
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			if err := p.rewind(); err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return fmt.Errorf("read IVF frame: %w", err)
		}

		if err := track.WriteSample(pionmedia.Sample{Data: frame, Duration: p.frameDur}); err != nil {
			return fmt.Errorf("write video: %w", err)
		}
	}
}

func (p *ivfPlayer) rewind() error {
	if _, err := p.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind video: %w", err)
	}
	reader, _, err := ivfreader.NewWith(p.file)
	if err != nil {
		return fmt.Errorf("read IVF header: %w", err)
	}
	p.reader = reader
	return nil
}

func (p *ivfPlayer) close() {
	p.file.Close()
}

// oggPlayer loops an Ogg/Opus file onto a sample track, one page per sample.
type oggPlayer struct {
	file    *os.File
	reader  *oggreader.OggReader
	granule uint64
}

func openOgg(path string) (*oggPlayer, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open audio: %w", err)
	}

	reader, _, err := oggreader.NewWith(file)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("read Ogg header: %w", err)
	}

	return &oggPlayer{file: file, reader: reader}, nil
}

func (p *oggPlayer) play(ctx context.Context, track *webrtc.TrackLocalStaticSample) error {
	defer p.close()

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		page, header, err := p.reader.ParseNextPage()
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			if err := p.rewind(); err != nil {
				return err
			}
			timer.Reset(defaultFrameDur)
			continue
		}
		if err != nil {
			return fmt.Errorf("read Ogg page: %w", err)
		}

		var dur time.Duration
		if header.GranulePosition > p.granule {
			samples := header.GranulePosition - p.granule
			dur = time.Duration(float64(time.Second) * float64(samples) / oggSampleRate)
		}
		p.granule = header.GranulePosition

		if err := track.WriteSample(pionmedia.Sample{Data: page, Duration: dur}); err != nil {
			return fmt.Errorf("write audio: %w", err)
		}
		timer.Reset(dur)
	}
}

func (p *oggPlayer) rewind() error {
	if _, err := p.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind audio: %w", err)
	}
	reader, _, err := oggreader.NewWith(p.file)
	if err != nil {
		return fmt.Errorf("read Ogg header: %w", err)
	}
	p.reader = reader
	p.granule = 0
	return nil
}

func (p *oggPlayer) close() {
	p.file.Close()
}
