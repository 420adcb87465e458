package discovery

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"net"
	"net/netip"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/anstrom/rtspscout/internal/capture"
	"github.com/anstrom/rtspscout/internal/errors"
	"github.com/anstrom/rtspscout/internal/logging"
	"github.com/anstrom/rtspscout/internal/metrics/mocks"
	"github.com/anstrom/rtspscout/internal/netif"
	"github.com/anstrom/rtspscout/internal/report"
	"github.com/anstrom/rtspscout/internal/rtsp"
	"github.com/anstrom/rtspscout/internal/scanning"
)

var (
	cameraMAC = net.HardwareAddr{0x00, 0x12, 0x34, 0x56, 0x78, 0x9a}
	cameraIP  = netip.MustParseAddr("192.168.1.20")
	camera554 = netip.AddrPortFrom(cameraIP, 554)
)

type fakeHostScanner struct {
	sightings []scanning.Sighting
	err       error
	panicVal  any
}

func (f *fakeHostScanner) Scan(context.Context, *capture.Context, netif.Interface) ([]scanning.Sighting, error) {
	if f.panicVal != nil {
		panic(f.panicVal)
	}
	return f.sightings, f.err
}

// fakePortScanner reports the ports in open for every host it is given.
type fakePortScanner struct {
	open map[netip.Addr][]uint16
	err  error
}

func (f *fakePortScanner) Scan(_ context.Context, _ *capture.Context, _ netif.Interface,
	hosts []scanning.Sighting, ports scanning.PortSet) ([]scanning.OpenPort, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []scanning.OpenPort
	for _, h := range hosts {
		for _, p := range f.open[h.IP] {
			if ports.Contains(p) {
				out = append(out, scanning.OpenPort{MAC: h.MAC, IP: h.IP, Port: p})
			}
		}
	}
	return out, nil
}

// fakeDevice answers RTSP requests for one endpoint.
type fakeDevice struct {
	optionsErr error
	// paths maps a path to its DESCRIBE response; others get fallback.
	paths    map[string]*rtsp.Response
	fallback *rtsp.Response
	panicOn  string
}

type fakeSession struct {
	device  *fakeDevice
	timeout time.Duration
}

func (s *fakeSession) SetTimeout(timeout time.Duration) { s.timeout = timeout }

func (s *fakeSession) Options(context.Context) (*rtsp.Response, error) {
	if s.device.optionsErr != nil {
		return nil, s.device.optionsErr
	}
	return response(200, "", ""), nil
}

func (s *fakeSession) Describe(_ context.Context, path string) (*rtsp.Response, error) {
	if path == s.device.panicOn {
		panic("describe blew up")
	}
	if res, ok := s.device.paths[path]; ok {
		if res == nil {
			return nil, stderrors.New("connection reset")
		}
		return res, nil
	}
	if s.device.fallback != nil {
		return s.device.fallback, nil
	}
	return response(404, "", ""), nil
}

func (s *fakeSession) Close() error { return nil }

type fakeNetwork struct {
	mu       sync.Mutex
	devices  map[netip.AddrPort]*fakeDevice
	opened   []netip.AddrPort
	timeouts []time.Duration
	openErr  error
}

func (n *fakeNetwork) open(addr netip.AddrPort) (Session, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.openErr != nil {
		return nil, n.openErr
	}
	n.opened = append(n.opened, addr)
	device, ok := n.devices[addr]
	if !ok {
		device = &fakeDevice{optionsErr: stderrors.New("connection refused")}
	}
	return &timeoutRecorder{fakeSession: &fakeSession{device: device}, network: n}, nil
}

type timeoutRecorder struct {
	*fakeSession
	network *fakeNetwork
}

func (s *timeoutRecorder) SetTimeout(timeout time.Duration) {
	s.fakeSession.SetTimeout(timeout)
	s.network.mu.Lock()
	s.network.timeouts = append(s.network.timeouts, timeout)
	s.network.mu.Unlock()
}

type fixture struct {
	ifaces  []netif.Interface
	arp     *fakeHostScanner
	icmp    *fakeHostScanner
	ports   *fakePortScanner
	network *fakeNetwork
	paths   []string
	pathErr error
}

func newFixture() *fixture {
	return &fixture{
		ifaces: []netif.Interface{{
			Name:   "eth0",
			Index:  2,
			Addr:   netip.MustParseAddr("192.168.1.2"),
			Prefix: netip.MustParsePrefix("192.168.1.0/24"),
		}},
		arp:     &fakeHostScanner{sightings: []scanning.Sighting{{MAC: cameraMAC, IP: cameraIP}}},
		icmp:    &fakeHostScanner{},
		ports:   &fakePortScanner{open: map[netip.Addr][]uint16{cameraIP: {554}}},
		network: &fakeNetwork{devices: map[netip.AddrPort]*fakeDevice{}},
		paths:   []string{"/live.sdp", "/onvif1"},
	}
}

func (f *fixture) engine(opts ...Option) *Engine {
	base := []Option{
		WithInterfaceLister(func() ([]netif.Interface, error) { return f.ifaces, nil }),
		WithHostScanners(f.arp, f.icmp),
		WithPortScanner(f.ports),
		WithSessionOpener(f.network.open),
		WithPathLoader(func() ([]string, error) { return f.paths, f.pathErr }),
		WithLogger(logging.Discard()),
	}
	return NewEngine(Config{Concurrency: 4}, capture.NewContext(capture.DefaultConfig()), append(base, opts...)...)
}

func TestDiscoverSingleStream(t *testing.T) {
	f := newFixture()
	f.network.devices[camera554] = &fakeDevice{
		paths: map[string]*rtsp.Response{"/live.sdp": response(200, "", h264SDP)},
	}

	r, err := f.engine().Discover(context.Background())
	require.NoError(t, err)

	services := r.Services()
	require.Len(t, services, 1)
	assert.Equal(t, report.ServiceRTSP, services[0].Kind)
	assert.Equal(t, "/live.sdp", services[0].Path)
	assert.Equal(t, camera554, services[0].Addr)
	assert.Equal(t, cameraMAC, services[0].MAC)

	require.Len(t, r.Hosts(), 1)
	assert.True(t, r.Hosts()[0].Flags.Has(report.FlagARP))
	require.Len(t, r.Ports(), 1)
	assert.Equal(t, uint16(554), r.Ports()[0].Port)

	for _, timeout := range f.network.timeouts {
		assert.Equal(t, time.Second, timeout)
	}
}

func TestDiscoverLogsUnderContextRunID(t *testing.T) {
	f := newFixture()
	f.network.devices[camera554] = &fakeDevice{
		paths: map[string]*rtsp.Response{"/live.sdp": response(200, "", h264SDP)},
	}

	var buf bytes.Buffer
	logger := logging.NewWithWriter(logging.Config{Level: logging.LevelInfo, Format: logging.FormatJSON}, &buf)

	ctx := ContextWithRunID(context.Background(), "watch-run-1")
	_, err := f.engine(WithLogger(logger)).Discover(ctx)
	require.NoError(t, err)

	tagged := 0
	scanner := bufio.NewScanner(&buf)
	for scanner.Scan() {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
		if id, ok := entry["run_id"]; ok {
			assert.Equal(t, "watch-run-1", id)
			tagged++
		}
	}
	assert.Positive(t, tagged)
}

func TestRunIDFromContext(t *testing.T) {
	_, ok := RunIDFromContext(context.Background())
	assert.False(t, ok)

	_, ok = RunIDFromContext(ContextWithRunID(context.Background(), ""))
	assert.False(t, ok)

	id, ok := RunIDFromContext(ContextWithRunID(context.Background(), "abc"))
	require.True(t, ok)
	assert.Equal(t, "abc", id)
}

func TestDiscoverAmbiguousServer(t *testing.T) {
	f := newFixture()
	f.network.devices[camera554] = &fakeDevice{fallback: response(200, "", pcmuSDP)}

	r, err := f.engine().Discover(context.Background())
	require.NoError(t, err)

	services := r.Services()
	require.Len(t, services, 1)
	assert.Equal(t, report.ServiceUnknownRTSP, services[0].Kind)
	assert.Equal(t, camera554, services[0].Addr)
}

func TestDiscoverLockedAndUnknown(t *testing.T) {
	f := newFixture()
	f.paths = []string{"/a", "/b", "/c"}
	f.network.devices[camera554] = &fakeDevice{
		paths: map[string]*rtsp.Response{
			"/a": response(401, "", ""),
			"/b": nil,
		},
	}

	r, err := f.engine().Discover(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []report.ServiceKind{report.ServiceLockedRTSP}, kinds(r.Services()))
}

func TestDiscoverMergesHostFlagsAcrossScanners(t *testing.T) {
	f := newFixture()
	other := netip.MustParseAddr("192.168.1.30")
	otherMAC := net.HardwareAddr{0x00, 0x12, 0x34, 0x56, 0x78, 0x9b}
	f.icmp.sightings = []scanning.Sighting{
		{MAC: cameraMAC, IP: cameraIP},
		{MAC: otherMAC, IP: other},
	}

	r, err := f.engine().Discover(context.Background())
	require.NoError(t, err)

	hosts := r.Hosts()
	require.Len(t, hosts, 2)
	assert.Equal(t, report.FlagARP|report.FlagICMP, hosts[0].Flags)
	assert.Equal(t, report.FlagICMP, hosts[1].Flags)
	assert.Empty(t, r.Services(), "OPTIONS failure is not an RTSP service")
}

func TestDiscoverMultipleInterfaces(t *testing.T) {
	f := newFixture()
	f.ifaces = append(f.ifaces, netif.Interface{
		Name:   "eth1",
		Index:  3,
		Addr:   netip.MustParseAddr("10.0.0.2"),
		Prefix: netip.MustParsePrefix("10.0.0.0/24"),
	})
	f.network.devices[camera554] = &fakeDevice{
		paths: map[string]*rtsp.Response{"/live.sdp": response(200, "", h264SDP)},
	}

	r, err := f.engine().Discover(context.Background())
	require.NoError(t, err)

	// Both interfaces see the same camera: one host, ports and services per sighting.
	assert.Len(t, r.Hosts(), 1)
	assert.Len(t, r.Ports(), 2)
	assert.Len(t, r.Services(), 2)
}

func TestDiscoverFatalErrors(t *testing.T) {
	t.Run("host scanner failure", func(t *testing.T) {
		f := newFixture()
		f.arp.err = &capture.Error{Op: "arp scan", Interface: "eth0", Err: stderrors.New("permission denied")}

		_, err := f.engine().Discover(context.Background())
		require.Error(t, err)
		assert.True(t, errors.IsDiscoveryError(err))
		assert.Equal(t, "capture error: arp scan on eth0: permission denied", err.Error())
	})

	t.Run("port scanner failure", func(t *testing.T) {
		f := newFixture()
		f.ports.err = &capture.Error{Op: "tcp scan", Interface: "eth0", Err: stderrors.New("boom")}

		_, err := f.engine().Discover(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "capture error")
	})

	t.Run("host worker panic", func(t *testing.T) {
		f := newFixture()
		f.icmp.panicVal = "bad packet"

		_, err := f.engine().Discover(context.Background())
		require.Error(t, err)
		assert.Equal(t, "port scanner worker panicked", err.Error())
	})

	t.Run("client construction failure", func(t *testing.T) {
		f := newFixture()
		f.network.openErr = &rtsp.Error{Op: "new", Addr: camera554.String(), Err: stderrors.New("invalid address")}

		_, err := f.engine().Discover(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "RTSP client error")
	})

	t.Run("path list failure", func(t *testing.T) {
		f := newFixture()
		f.pathErr = stderrors.New("no such file")

		_, err := f.engine().Discover(context.Background())
		require.Error(t, err)
		assert.Equal(t, "IO error: no such file", err.Error())
	})

	t.Run("path worker panic", func(t *testing.T) {
		f := newFixture()
		f.network.devices[camera554] = &fakeDevice{panicOn: "/onvif1"}

		_, err := f.engine().Discover(context.Background())
		require.Error(t, err)
		assert.Equal(t, "path testing worker panicked", err.Error())
	})

	t.Run("interface listing failure", func(t *testing.T) {
		f := newFixture()
		e := f.engine(WithInterfaceLister(func() ([]netif.Interface, error) {
			return nil, stderrors.New("netlink unavailable")
		}))

		_, err := e.Discover(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "capture error")
	})
}

func TestToDiscoveryError(t *testing.T) {
	err := toDiscoveryError(StageRTSPConfirm, stderrors.New("plain"))
	assert.Equal(t, "plain", err.Error())

	err = toDiscoveryError(StageRTSPConfirm, &rtsp.Error{Op: "new", Addr: "x", Err: stderrors.New("bad")})
	assert.Contains(t, err.Error(), "RTSP client error")
}

func TestDiscoverRecordsMetrics(t *testing.T) {
	ctrl := gomock.NewController(t)
	recorder := mocks.NewMockRecorder(ctrl)

	f := newFixture()
	f.network.devices[camera554] = &fakeDevice{
		paths: map[string]*rtsp.Response{"/live.sdp": response(200, "", h264SDP)},
	}

	recorder.EXPECT().RecordRun("success", gomock.Any()).Times(1)
	recorder.EXPECT().RecordStage(gomock.Any(), gomock.Any()).Times(3)
	recorder.EXPECT().AddHostsDiscovered("arp", 1)
	recorder.EXPECT().AddHostsDiscovered("icmp", 0)
	recorder.EXPECT().AddOpenPorts(1)
	recorder.EXPECT().AddRTSPEndpoints(1)
	recorder.EXPECT().RecordDescribe("ok")
	recorder.EXPECT().RecordDescribe("not_found")
	recorder.EXPECT().RecordService("rtsp")
	recorder.EXPECT().RecordJob(gomock.Any(), "success", gomock.Any()).Times(3)

	_, err := f.engine(WithMetrics(recorder)).Discover(context.Background())
	require.NoError(t, err)
}

func TestProbe(t *testing.T) {
	f := newFixture()
	f.network.devices[camera554] = &fakeDevice{
		paths: map[string]*rtsp.Response{
			"/live.sdp": response(200, "", h264SDP),
			"/onvif1":   response(200, "", mjpegSDP),
		},
	}
	f.paths = []string{"/live.sdp", "/onvif1", "/missing"}

	services, err := f.engine().Probe(context.Background(), camera554)
	require.NoError(t, err)
	assert.Equal(t, []report.ServiceKind{report.ServiceRTSP, report.ServiceUnsupportedRTSP}, kinds(services))

	_, err = f.engine().Probe(context.Background(), netip.MustParseAddrPort("192.168.1.99:554"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is not an RTSP service")
}
