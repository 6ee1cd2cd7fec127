package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Default configuration values (production)
const (
	DefaultDomain      = "synctube.qzz.io"
	DefaultSTUN        = "stun:stun.l.google.com:19302"
	DefaultTURN        = "turn:synctube.qzz.io"
	DefaultTURNUser    = "synctube"
	DefaultTURNPass    = "synctube-secret"
	DefaultTimeout     = 30 * time.Second
	DefaultMediaSource = MediaNone
)

// Media sources accepted by --media.
const (
	MediaNone = "none"
	MediaTone = "tone"
	MediaFile = "file"
)

// Config holds application configuration
type Config struct {
	// Domain is the backend server domain
	Domain string

	// WebSocketURL is the signaling endpoint. Built from Domain unless the
	// server is given explicitly.
	WebSocketURL string

	// ICE servers for WebRTC
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string

	// ForceRelay restricts ICE to TURN relay candidates.
	ForceRelay bool

	// NegotiationTimeout bounds how long a call may stay negotiating.
	NegotiationTimeout time.Duration

	// Local media: none, tone or file.
	MediaSource string
	VideoFile   string
	AudioFile   string

	// RecordDir receives the partner's media. Empty disables recording.
	RecordDir string
}

// Options for loading config with CLI flag overrides
type Options struct {
	Server             string
	STUNServer         string
	TURNServer         string
	TURNUser           string
	TURNPass           string
	ForceRelay         bool
	NegotiationTimeout time.Duration
	MediaSource        string
	VideoFile          string
	AudioFile          string
	RecordDir          string
}

// Load reads configuration with the following priority:
// 1. CLI flags (passed via Options) - highest priority
// 2. Environment variables
// 3. Hardcoded defaults - lowest priority
func Load(opts Options) (*Config, error) {
	cfg := &Config{
		STUNServer:  pick(opts.STUNServer, "STUN_SERVER", DefaultSTUN),
		TURNServer:  pick(opts.TURNServer, "TURN_SERVER", DefaultTURN),
		TURNUser:    pick(opts.TURNUser, "TURN_USERNAME", DefaultTURNUser),
		TURNPass:    pick(opts.TURNPass, "TURN_PASSWORD", DefaultTURNPass),
		MediaSource: strings.ToLower(pick(opts.MediaSource, "MEDIA_SOURCE", DefaultMediaSource)),
		VideoFile:   pick(opts.VideoFile, "MEDIA_VIDEO", ""),
		AudioFile:   pick(opts.AudioFile, "MEDIA_AUDIO", ""),
		RecordDir:   pick(opts.RecordDir, "RECORD_DIR", ""),
	}

	// "none" turns TURN off entirely.
	if strings.EqualFold(cfg.TURNServer, "none") {
		cfg.TURNServer = ""
	}

	server := pick(opts.Server, "SYNCTUBE_SERVER", DefaultDomain)
	domain, wsURL, err := resolveServer(server)
	if err != nil {
		return nil, err
	}
	cfg.Domain = domain
	cfg.WebSocketURL = wsURL

	cfg.ForceRelay = opts.ForceRelay
	if !cfg.ForceRelay {
		if v := os.Getenv("FORCE_RELAY"); v != "" {
			force, err := strconv.ParseBool(v)
			if err != nil {
				return nil, fmt.Errorf("invalid FORCE_RELAY %q", v)
			}
			cfg.ForceRelay = force
		}
	}

	cfg.NegotiationTimeout = opts.NegotiationTimeout
	if cfg.NegotiationTimeout == 0 {
		if v := os.Getenv("NEGOTIATION_TIMEOUT"); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return nil, fmt.Errorf("invalid NEGOTIATION_TIMEOUT %q: %w", v, err)
			}
			cfg.NegotiationTimeout = d
		}
	}
	if cfg.NegotiationTimeout == 0 {
		cfg.NegotiationTimeout = DefaultTimeout
	}

	switch cfg.MediaSource {
	case MediaNone, MediaTone:
	case MediaFile:
		if cfg.VideoFile == "" && cfg.AudioFile == "" {
			return nil, fmt.Errorf("media source %q needs --video or --audio", MediaFile)
		}
	default:
		return nil, fmt.Errorf("unknown media source %q (want none, tone or file)", cfg.MediaSource)
	}

	return cfg, nil
}

// resolveServer accepts either a bare domain or a full ws(s):// or
// http(s):// URL and returns the domain and the websocket endpoint.
func resolveServer(server string) (string, string, error) {
	if !strings.Contains(server, "://") {
		return server, fmt.Sprintf("wss://%s/ws", server), nil
	}

	u, err := url.Parse(server)
	if err != nil {
		return "", "", fmt.Errorf("invalid server URL: %w", err)
	}

	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", "", fmt.Errorf("unsupported server scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", "", fmt.Errorf("invalid server URL %q: missing host", server)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/ws"
	}

	return u.Host, u.String(), nil
}

func pick(flag, env, fallback string) string {
	if flag != "" {
		return flag
	}
	if v := os.Getenv(env); v != "" {
		return v
	}
	return fallback
}

// GetRoomLink returns the webapp URL for a room ID
func (c *Config) GetRoomLink(roomID string) string {
	return fmt.Sprintf("https://%s/r/%s", c.Domain, roomID)
}

// ParseRoomInput accepts a room ID or a room link and returns the room ID.
func ParseRoomInput(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", fmt.Errorf("room ID cannot be empty")
	}

	if !strings.Contains(input, "://") && !strings.Contains(input, "/") {
		return input, nil
	}

	raw := input
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	parsedURL, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse room link: %w", err)
	}

	parts := strings.Split(strings.TrimSuffix(parsedURL.Path, "/"), "/")
	for i, part := range parts {
		if part == "r" && i+1 < len(parts) && parts[i+1] != "" {
			return parts[i+1], nil
		}
	}

	return "", fmt.Errorf("could not extract room ID from URL: %s", input)
}

// GetSTUNServers returns STUN server URLs as strings
func (c *Config) GetSTUNServers() []string {
	if c.STUNServer == "" || strings.EqualFold(c.STUNServer, "none") {
		return nil
	}
	return []string{c.STUNServer}
}

// GetTURNServers returns TURN server URLs if configured
func (c *Config) GetTURNServers() []string {
	if c.TURNServer == "" {
		return nil
	}
	host := strings.TrimPrefix(c.TURNServer, "turn:")
	return []string{
		fmt.Sprintf("turn:%s:3478?transport=udp", host),
		fmt.Sprintf("turn:%s:3478?transport=tcp", host),
		fmt.Sprintf("turns:%s:5349?transport=tcp", host),
	}
}

// GetTURNCredentials returns TURN username and password
func (c *Config) GetTURNCredentials() (string, string) {
	return c.TURNUser, c.TURNPass
}
