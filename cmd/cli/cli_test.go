package cli

import (
	"bytes"
	"net"
	"net/netip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anstrom/rtspscout/internal/config"
	"github.com/anstrom/rtspscout/internal/logging"
	"github.com/anstrom/rtspscout/internal/netif"
)

func TestParseEndpoint(t *testing.T) {
	tests := []struct {
		name    string
		arg     string
		want    netip.AddrPort
		wantErr bool
	}{
		{name: "valid", arg: "192.168.1.20:554", want: netip.MustParseAddrPort("192.168.1.20:554")},
		{name: "missing port", arg: "192.168.1.20", wantErr: true},
		{name: "hostname", arg: "camera.local:554", wantErr: true},
		{name: "ipv6", arg: "[fe80::1]:554", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseEndpoint(tt.arg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestApplyOverrides(t *testing.T) {
	v := viper.New()
	v.Set("discovery.interfaces", []string{"eth1"})
	v.Set("rtsp.paths_file", "/etc/rtspscout/paths")
	v.Set("discovery.concurrency", 8)
	v.Set("discovery.port_scanner", config.PortScannerNmap)
	v.Set("verbose", true)

	cfg := config.Default()
	applyOverrides(cfg, v)

	assert.Equal(t, []string{"eth1"}, cfg.Discovery.Interfaces)
	assert.Equal(t, "/etc/rtspscout/paths", cfg.RTSP.PathsFile)
	assert.Equal(t, 8, cfg.Discovery.Concurrency)
	assert.Equal(t, config.PortScannerNmap, cfg.Discovery.PortScanner)
	assert.Equal(t, logging.LevelDebug, cfg.Logging.Level)
}

func TestApplyOverridesKeepsConfigWhenUnset(t *testing.T) {
	cfg := config.Default()
	cfg.Discovery.Concurrency = 32
	cfg.RTSP.PathsFile = "/srv/paths"

	applyOverrides(cfg, viper.New())

	assert.Equal(t, 32, cfg.Discovery.Concurrency)
	assert.Equal(t, "/srv/paths", cfg.RTSP.PathsFile)
	assert.Equal(t, config.PortScannerConnect, cfg.Discovery.PortScanner)
}

func TestWriteInterfaces(t *testing.T) {
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	ifaces := []netif.Interface{{
		Name:         "eth0",
		Index:        2,
		HardwareAddr: net.HardwareAddr{0x02, 0x42, 0xac, 0x11, 0x00, 0x02},
		Addr:         netip.MustParseAddr("192.168.1.2"),
		Prefix:       netip.MustParsePrefix("192.168.1.0/24"),
	}}
	require.NoError(t, writeInterfaces(cmd, ifaces, 1024))

	out := buf.String()
	assert.Contains(t, out, "eth0")
	assert.Contains(t, out, "02:42:ac:11:00:02")
	assert.Contains(t, out, "192.168.1.0/24")
	assert.Contains(t, out, "253")
}

func TestPathsCommand(t *testing.T) {
	dir := t.TempDir()
	pathsFile := filepath.Join(dir, "paths.txt")
	require.NoError(t, os.WriteFile(pathsFile, []byte("# test\n/live.sdp\n/onvif1\n"), 0o600))

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"paths", "--paths-file", pathsFile})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
		viper.Reset()
	})

	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, []string{"/live.sdp", "/onvif1"}, strings.Fields(buf.String()))
}

func TestVersion(t *testing.T) {
	SetVersion("1.0.0", "abc123", "2026-01-01")
	assert.Equal(t, "1.0.0 (commit: abc123, built: 2026-01-01)", rootCmd.Version)
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "rtspscout.yaml")

	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	require.NoError(t, runConfigInit(cmd, []string{path}))
	assert.Contains(t, buf.String(), path)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	defaults := config.Default()
	assert.Equal(t, defaults.Discovery.Concurrency, cfg.Discovery.Concurrency)
	assert.Equal(t, defaults.Capture.Timeout, cfg.Capture.Timeout)
	assert.Equal(t, defaults.Watch.Schedule, cfg.Watch.Schedule)

	err = runConfigInit(cmd, []string{path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	configForce = true
	t.Cleanup(func() { configForce = false })
	assert.NoError(t, runConfigInit(cmd, []string{path}))
}
