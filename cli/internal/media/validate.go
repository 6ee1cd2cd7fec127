package media

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Kind is the media kind of a file.
type Kind string

const (
	KindVideo Kind = "video"
	KindAudio Kind = "audio"
)

var (
	ivfMagic = []byte("DKIF")
	oggMagic = []byte("OggS")
)

// FileInfo holds information about a media file to be streamed
type FileInfo struct {
	// Path is the absolute path to the file
	Path string

	// Name is the filename (without directory)
	Name string

	// Size is the file size in bytes
	Size int64

	Kind Kind
}

// ValidateFiles checks that the video file is an IVF container and the audio
// file an Ogg container. Empty paths are skipped; at least one is required.
func ValidateFiles(videoPath, audioPath string) ([]FileInfo, error) {
	if videoPath == "" && audioPath == "" {
		return nil, fmt.Errorf("no media files specified")
	}

	var infos []FileInfo
	var errs []string

	check := func(path string, kind Kind) {
		if path == "" {
			return
		}
		info, err := validateSingleFile(path, kind)
		if err != nil {
			errs = append(errs, err.Error())
			return
		}
		infos = append(infos, info)
	}
	check(videoPath, KindVideo)
	check(audioPath, KindAudio)

	if len(errs) > 0 {
		return nil, fmt.Errorf("media validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return infos, nil
}

// validateSingleFile checks a single file and returns its info
func validateSingleFile(path string, kind Kind) (FileInfo, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return FileInfo{}, fmt.Errorf("%s: failed to get absolute path: %w", path, err)
	}

	stat, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return FileInfo{}, fmt.Errorf("%s: file does not exist", path)
		}
		return FileInfo{}, fmt.Errorf("%s: failed to stat file: %w", path, err)
	}

	if stat.IsDir() {
		return FileInfo{}, fmt.Errorf("%s: is a directory", path)
	}

	if stat.Size() == 0 {
		return FileInfo{}, fmt.Errorf("%s: file is empty", path)
	}

	file, err := os.Open(absPath)
	if err != nil {
		return FileInfo{}, fmt.Errorf("%s: cannot open file (check permissions): %w", path, err)
	}
	defer file.Close()

	magic := make([]byte, 4)
	if _, err := io.ReadFull(file, magic); err != nil {
		return FileInfo{}, fmt.Errorf("%s: too short for a media container", path)
	}

	switch kind {
	case KindVideo:
		if !bytes.Equal(magic, ivfMagic) {
			return FileInfo{}, fmt.Errorf("%s: not an IVF file", path)
		}
	case KindAudio:
		if !bytes.Equal(magic, oggMagic) {
			return FileInfo{}, fmt.Errorf("%s: not an Ogg file", path)
		}
	}

	return FileInfo{
		Path: absPath,
		Name: filepath.Base(absPath),
		Size: stat.Size(),
		Kind: kind,
	}, nil
}
