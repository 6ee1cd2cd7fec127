package webrtc

import (
	"net"
	"testing"

	"github.com/BioHazard786/Synctube/cli/internal/config"
	pion "github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubRelayProbe(t *testing.T, result bool) {
	t.Helper()
	prev := relayProbe
	relayProbe = func() bool { return result }
	t.Cleanup(func() { relayProbe = prev })
}

func TestICEConfiguration(t *testing.T) {
	cfg := &config.Config{
		STUNServer: "stun:stun.example:3478",
		TURNServer: "turn:relay.example",
		TURNUser:   "user",
		TURNPass:   "pass",
	}

	stubRelayProbe(t, false)
	conf := iceConfiguration(cfg)
	require.Len(t, conf.ICEServers, 2)
	assert.Equal(t, []string{"stun:stun.example:3478"}, conf.ICEServers[0].URLs)
	assert.Equal(t, "user", conf.ICEServers[1].Username)
	assert.Equal(t, "pass", conf.ICEServers[1].Credential)
	assert.Equal(t, pion.ICETransportPolicyAll, conf.ICETransportPolicy)

	cfg.ForceRelay = true
	assert.Equal(t, pion.ICETransportPolicyRelay, iceConfiguration(cfg).ICETransportPolicy)
}

func TestICEConfigurationProbe(t *testing.T) {
	stubRelayProbe(t, true)

	withTURN := &config.Config{TURNServer: "turn:relay.example"}
	assert.Equal(t, pion.ICETransportPolicyRelay, iceConfiguration(withTURN).ICETransportPolicy)

	noTURN := &config.Config{STUNServer: "none", ForceRelay: true}
	conf := iceConfiguration(noTURN)
	assert.Empty(t, conf.ICEServers)
	assert.Equal(t, pion.ICETransportPolicyAll, conf.ICETransportPolicy, "relay-only needs a TURN server")
}

func TestTunnelHeuristics(t *testing.T) {
	for name, want := range map[string]bool{
		"eth0":           false,
		"en0":            false,
		"tun0":           true,
		"wg0":            true,
		"CloudflareWARP": true,
		"ppp0":           true,
		"utap1":          true,
		"wlan0":          false,
	} {
		assert.Equal(t, want, isTunnelInterface(name), name)
	}

	cgnat := &net.IPNet{IP: net.ParseIP("100.100.1.2"), Mask: net.CIDRMask(32, 32)}
	private := &net.IPNet{IP: net.ParseIP("192.168.1.2"), Mask: net.CIDRMask(24, 32)}
	assert.True(t, inCGNAT(cgnat))
	assert.True(t, inCGNAT(&net.IPAddr{IP: net.ParseIP("100.127.255.254")}))
	assert.False(t, inCGNAT(private))
	assert.False(t, inCGNAT(&net.IPAddr{IP: net.ParseIP("100.128.0.1")}))
}
