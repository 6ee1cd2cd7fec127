package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"SYNCTUBE_SERVER", "STUN_SERVER", "TURN_SERVER", "TURN_USERNAME", "TURN_PASSWORD",
		"FORCE_RELAY", "NEGOTIATION_TIMEOUT", "MEDIA_SOURCE", "MEDIA_VIDEO", "MEDIA_AUDIO", "RECORD_DIR",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(Options{})
	require.NoError(t, err)
	assert.Equal(t, DefaultDomain, cfg.Domain)
	assert.Equal(t, "wss://"+DefaultDomain+"/ws", cfg.WebSocketURL)
	assert.Equal(t, []string{DefaultSTUN}, cfg.GetSTUNServers())
	assert.Equal(t, DefaultTimeout, cfg.NegotiationTimeout)
	assert.Equal(t, MediaNone, cfg.MediaSource)
	assert.False(t, cfg.ForceRelay)
}

func TestLoadPriority(t *testing.T) {
	clearEnv(t)
	t.Setenv("STUN_SERVER", "stun:env.example:3478")
	t.Setenv("TURN_USERNAME", "env-user")
	t.Setenv("NEGOTIATION_TIMEOUT", "5s")
	t.Setenv("FORCE_RELAY", "true")

	cfg, err := Load(Options{STUNServer: "stun:flag.example:3478"})
	require.NoError(t, err)
	assert.Equal(t, "stun:flag.example:3478", cfg.STUNServer, "flag beats env")
	assert.Equal(t, "env-user", cfg.TURNUser, "env beats default")
	assert.Equal(t, 5*time.Second, cfg.NegotiationTimeout)
	assert.True(t, cfg.ForceRelay)
}

func TestServerURLs(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		server string
		domain string
		ws     string
	}{
		{"example.com", "example.com", "wss://example.com/ws"},
		{"http://localhost:8080", "localhost:8080", "ws://localhost:8080/ws"},
		{"https://sync.example", "sync.example", "wss://sync.example/ws"},
		{"ws://127.0.0.1:9000/signal", "127.0.0.1:9000", "ws://127.0.0.1:9000/signal"},
	}

	for _, tt := range tests {
		t.Run(tt.server, func(t *testing.T) {
			cfg, err := Load(Options{Server: tt.server})
			require.NoError(t, err)
			assert.Equal(t, tt.domain, cfg.Domain)
			assert.Equal(t, tt.ws, cfg.WebSocketURL)
		})
	}

	_, err := Load(Options{Server: "ftp://example.com"})
	assert.Error(t, err)
}

func TestMediaValidation(t *testing.T) {
	clearEnv(t)

	_, err := Load(Options{MediaSource: "webcam"})
	assert.Error(t, err)

	_, err = Load(Options{MediaSource: MediaFile})
	assert.Error(t, err, "file source needs a file")

	cfg, err := Load(Options{MediaSource: "FILE", AudioFile: "song.ogg"})
	require.NoError(t, err)
	assert.Equal(t, MediaFile, cfg.MediaSource)
}

func TestTURNServers(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(Options{TURNServer: "turn:relay.example"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"turn:relay.example:3478?transport=udp",
		"turn:relay.example:3478?transport=tcp",
		"turns:relay.example:5349?transport=tcp",
	}, cfg.GetTURNServers())

	cfg, err = Load(Options{TURNServer: "none"})
	require.NoError(t, err)
	assert.Nil(t, cfg.GetTURNServers())
}

func TestParseRoomInput(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"kitten-waffle-noir-sunset", "kitten-waffle-noir-sunset"},
		{"https://synctube.qzz.io/r/kitten-waffle", "kitten-waffle"},
		{"synctube.qzz.io/r/kitten-waffle/", "kitten-waffle"},
	}
	for _, tt := range tests {
		got, err := ParseRoomInput(tt.input)
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseRoomInput("")
	assert.Error(t, err)
	_, err = ParseRoomInput("https://synctube.qzz.io/about")
	assert.Error(t, err)
}

func TestRoomLink(t *testing.T) {
	cfg := &Config{Domain: "synctube.qzz.io"}
	assert.Equal(t, "https://synctube.qzz.io/r/abc", cfg.GetRoomLink("abc"))
}
