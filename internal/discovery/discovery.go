// Package discovery runs the RTSP discovery pipeline: host and port
// discovery per interface, RTSP confirmation per open port, and path
// classification per confirmed endpoint. Each stage runs on a bounded
// worker pool and finishes before the next one starts.
package discovery

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/netip"
	"time"

	"github.com/google/uuid"

	"github.com/anstrom/rtspscout/internal/capture"
	"github.com/anstrom/rtspscout/internal/errors"
	"github.com/anstrom/rtspscout/internal/logging"
	"github.com/anstrom/rtspscout/internal/metrics"
	"github.com/anstrom/rtspscout/internal/netif"
	"github.com/anstrom/rtspscout/internal/report"
	"github.com/anstrom/rtspscout/internal/rtsp"
	"github.com/anstrom/rtspscout/internal/scanning"
	"github.com/anstrom/rtspscout/internal/workers"
)

// Pipeline stages, used for logging, metrics and worker job types.
const (
	StageHostDiscovery = "host-discovery"
	StageRTSPConfirm   = "rtsp-confirm"
	StageRTSPPaths     = "rtsp-paths"
)

var stagePanicMessages = map[string]string{
	StageHostDiscovery: "port scanner worker panicked",
	StageRTSPConfirm:   "RTSP service testing worker panicked",
	StageRTSPPaths:     "path testing worker panicked",
}

// Run statuses reported to metrics.
const (
	runSuccess = "success"
	runFailure = "failure"
)

type runIDKey struct{}

// ContextWithRunID attaches a run ID for Discover to log under instead of
// generating its own.
func ContextWithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// RunIDFromContext returns the run ID attached with ContextWithRunID.
func RunIDFromContext(ctx context.Context) (string, bool) {
	runID, ok := ctx.Value(runIDKey{}).(string)
	return runID, ok && runID != ""
}

// Session is an RTSP session to one endpoint.
type Session interface {
	SetTimeout(timeout time.Duration)
	Options(ctx context.Context) (*rtsp.Response, error)
	Describe(ctx context.Context, path string) (*rtsp.Response, error)
	Close() error
}

// SessionOpener creates a session for an endpoint.
type SessionOpener func(addr netip.AddrPort) (Session, error)

// InterfaceLister returns the interfaces a run scans.
type InterfaceLister func() ([]netif.Interface, error)

// PathLoader returns the known-path list for a run.
type PathLoader func() ([]string, error)

func openRTSPSession(addr netip.AddrPort) (Session, error) {
	client, err := rtsp.NewClient(addr)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// Config holds the engine settings.
type Config struct {
	// Interfaces restricts the scan to the named interfaces.
	Interfaces []string
	// Concurrency caps the workers running in each stage.
	Concurrency int
	// PathsFile is the known-path list; empty selects the built-in list.
	PathsFile string
}

// Engine runs discovery.
type Engine struct {
	config      Config
	capture     *capture.Context
	pool        *workers.Pool
	interfaces  InterfaceLister
	arp         scanning.HostScanner
	icmp        scanning.HostScanner
	portScanner scanning.PortScanner
	openSession SessionOpener
	loadPaths   PathLoader
	logger      *logging.Logger
	metrics     metrics.Recorder
}

// Option configures an Engine.
type Option func(*Engine)

// WithInterfaceLister replaces interface enumeration.
func WithInterfaceLister(lister InterfaceLister) Option {
	return func(e *Engine) {
		e.interfaces = lister
	}
}

// WithHostScanners replaces the ARP and ICMP host scanners.
func WithHostScanners(arp, icmp scanning.HostScanner) Option {
	return func(e *Engine) {
		e.arp = arp
		e.icmp = icmp
	}
}

// WithPortScanner replaces the TCP port scanner.
func WithPortScanner(scanner scanning.PortScanner) Option {
	return func(e *Engine) {
		e.portScanner = scanner
	}
}

// WithSessionOpener replaces the RTSP client factory.
func WithSessionOpener(opener SessionOpener) Option {
	return func(e *Engine) {
		e.openSession = opener
	}
}

// WithPathLoader replaces known-path list loading.
func WithPathLoader(loader PathLoader) Option {
	return func(e *Engine) {
		e.loadPaths = loader
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger *logging.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(recorder metrics.Recorder) Option {
	return func(e *Engine) {
		e.metrics = recorder
	}
}

// NewEngine creates a discovery engine. The capture context is shared by
// every host discovery worker.
func NewEngine(cfg Config, cc *capture.Context, opts ...Option) *Engine {
	e := &Engine{
		config:      cfg,
		capture:     cc,
		openSession: openRTSPSession,
		logger:      logging.Default().WithComponent("discovery"),
		metrics:     metrics.Nop{},
	}
	e.interfaces = func() ([]netif.Interface, error) {
		ifaces, err := netif.List()
		if err != nil {
			return nil, err
		}
		return netif.Filter(ifaces, e.config.Interfaces), nil
	}
	e.loadPaths = func() ([]string, error) {
		return LoadPaths(e.config.PathsFile)
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.arp == nil {
		e.arp = scanning.NewARPScanner(e.logger)
	}
	if e.icmp == nil {
		e.icmp = scanning.NewICMPScanner(e.logger)
	}
	if e.portScanner == nil {
		e.portScanner = scanning.NewTCPScanner(e.logger)
	}
	e.pool = workers.New(workers.Config{Size: cfg.Concurrency},
		workers.WithLogger(e.logger),
		workers.WithMetrics(e.metrics))

	return e
}

// Discover runs the full pipeline and returns the report. The run logs
// under the ID attached to ctx, or a fresh one. Any scanner failure, RTSP
// client construction failure, path list failure or worker panic ends the
// run with a *errors.DiscoveryError and no report.
func (e *Engine) Discover(ctx context.Context) (*report.ScanReport, error) {
	runID, ok := RunIDFromContext(ctx)
	if !ok {
		runID = uuid.NewString()
	}
	logger := e.logger.WithRunID(runID)
	start := time.Now()

	r, err := e.discover(ctx, logger)
	if err != nil {
		e.metrics.RecordRun(runFailure, time.Since(start))
		logger.WithError(err).Error("Discovery failed", "duration", time.Since(start))
		return nil, err
	}

	e.metrics.RecordRun(runSuccess, time.Since(start))
	summary := r.Summary()
	logger.Info("Discovery completed",
		"hosts", summary.Hosts,
		"ports", summary.Ports,
		"services", summary.Services,
		"duration", time.Since(start))
	return r, nil
}

func (e *Engine) discover(ctx context.Context, logger *logging.Logger) (*report.ScanReport, error) {
	ifaces, err := e.interfaces()
	if err != nil {
		return nil, errors.WrapCapture(&capture.Error{Op: "list interfaces", Err: err})
	}
	if len(ifaces) == 0 {
		logger.Warn("No eligible network interfaces")
	}

	r := report.New()

	fragments, err := runStage(ctx, e, logger, StageHostDiscovery, ifaces, e.findServices)
	if err != nil {
		return nil, err
	}
	for _, fragment := range fragments {
		r.Merge(fragment)
	}

	confirmed, err := runStage(ctx, e, logger, StageRTSPConfirm, r.SocketAddrs(),
		func(ctx context.Context, ep report.Endpoint) (bool, error) {
			return e.isRTSPService(ctx, ep.Addr)
		})
	if err != nil {
		return nil, err
	}

	var endpoints []report.Endpoint
	for i, ep := range r.SocketAddrs() {
		if confirmed[i] {
			endpoints = append(endpoints, ep)
		}
	}
	e.metrics.AddRTSPEndpoints(len(endpoints))

	paths, err := e.loadPaths()
	if err != nil {
		return nil, errors.WrapIO(err)
	}
	logger.Debug("Loaded known paths", "count", len(paths))

	results, err := runStage(ctx, e, logger, StageRTSPPaths, endpoints,
		func(ctx context.Context, ep report.Endpoint) ([]report.Service, error) {
			return e.findRTSPPaths(ctx, ep.MAC, ep.Addr, paths)
		})
	if err != nil {
		return nil, err
	}
	for _, services := range results {
		for _, svc := range services {
			r.AddService(svc)
			e.metrics.RecordService(svc.Kind.String())
		}
	}

	return r, nil
}

// runStage runs fn over items on the engine pool and converts any failure
// into a discovery error.
func runStage[T, R any](ctx context.Context, e *Engine, logger *logging.Logger, stage string, items []T,
	fn func(ctx context.Context, item T) (R, error)) ([]R, error) {
	start := time.Now()
	logger.InfoStage("Stage started", stage, "items", len(items))

	results, err := workers.Map(ctx, e.pool, stage, items, fn)
	e.metrics.RecordStage(stage, time.Since(start))
	if err != nil {
		de := toDiscoveryError(stage, err)
		logger.ErrorStage("Stage failed", stage, de)
		return nil, de
	}

	logger.InfoStage("Stage completed", stage, "duration", time.Since(start))
	return results, nil
}

// findServices discovers the hosts on one interface and probes them for
// open candidate ports.
func (e *Engine) findServices(ctx context.Context, ifc netif.Interface) (*report.ScanReport, error) {
	logger := e.logger.WithInterface(ifc.Name)
	fragment := report.New()

	arpHosts, err := e.arp.Scan(ctx, e.capture, ifc)
	if err != nil {
		return nil, err
	}
	for _, h := range arpHosts {
		fragment.AddHost(h.MAC, h.IP, report.FlagARP)
	}
	e.metrics.AddHostsDiscovered("arp", len(arpHosts))

	icmpHosts, err := e.icmp.Scan(ctx, e.capture, ifc)
	if err != nil {
		return nil, err
	}
	for _, h := range icmpHosts {
		fragment.AddHost(h.MAC, h.IP, report.FlagICMP)
	}
	e.metrics.AddHostsDiscovered("icmp", len(icmpHosts))

	hosts := fragment.Hosts()
	sightings := make([]scanning.Sighting, 0, len(hosts))
	for _, h := range hosts {
		sightings = append(sightings, scanning.Sighting{MAC: h.MAC, IP: h.IP})
	}

	open, err := e.portScanner.Scan(ctx, e.capture, ifc, sightings, scanning.RTSPCandidatePorts)
	if err != nil {
		return nil, err
	}
	for _, p := range open {
		fragment.AddPort(p.MAC, p.IP, p.Port)
	}
	e.metrics.AddOpenPorts(len(open))

	logger.Debug("Interface scanned", "hosts", len(hosts), "open_ports", len(open))
	return fragment, nil
}

// Probe classifies every known path on a single endpoint without host
// discovery. The endpoint must answer OPTIONS.
func (e *Engine) Probe(ctx context.Context, addr netip.AddrPort) ([]report.Service, error) {
	ok, err := e.isRTSPService(ctx, addr)
	if err != nil {
		return nil, toDiscoveryError(StageRTSPConfirm, err)
	}
	if !ok {
		return nil, errors.Newf("%s is not an RTSP service", addr)
	}

	paths, err := e.loadPaths()
	if err != nil {
		return nil, errors.WrapIO(err)
	}

	services, err := e.findRTSPPaths(ctx, nil, addr, paths)
	if err != nil {
		return nil, toDiscoveryError(StageRTSPPaths, err)
	}
	return services, nil
}

func toDiscoveryError(stage string, err error) *errors.DiscoveryError {
	var panicErr *workers.PanicError
	if stderrors.As(err, &panicErr) {
		msg, ok := stagePanicMessages[stage]
		if !ok {
			msg = fmt.Sprintf("%s worker panicked", stage)
		}
		de := errors.New(msg)
		de.Cause = panicErr
		return de
	}

	var captureErr *capture.Error
	if stderrors.As(err, &captureErr) {
		return errors.WrapCapture(err)
	}

	var rtspErr *rtsp.Error
	if stderrors.As(err, &rtspErr) {
		return errors.WrapRTSP(err)
	}

	return errors.Wrap(err)
}
