package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/anstrom/rtspscout/internal/capture"
	"github.com/anstrom/rtspscout/internal/config"
	"github.com/anstrom/rtspscout/internal/discovery"
	"github.com/anstrom/rtspscout/internal/logging"
	"github.com/anstrom/rtspscout/internal/metrics"
	"github.com/anstrom/rtspscout/internal/scanning"
)

// newEngine builds a discovery engine from the configuration. Runs report
// to the process-wide Prometheus metrics.
func newEngine(cfg *config.Config) *discovery.Engine {
	logger := logging.Default()

	cc := capture.NewContext(capture.Config{
		PacketsPerSecond: cfg.Capture.PacketsPerSecond,
		Parallelism:      cfg.Capture.Parallelism,
		Timeout:          cfg.Capture.Timeout,
		MaxHosts:         cfg.Capture.MaxHosts,
		Privileged:       cfg.Capture.Privileged,
	})

	opts := []discovery.Option{
		discovery.WithLogger(logger.WithComponent("discovery")),
		discovery.WithMetrics(metrics.GetGlobalMetrics()),
	}
	if cfg.Discovery.PortScanner == config.PortScannerNmap {
		opts = append(opts, discovery.WithPortScanner(scanning.NewNmapScanner(logger.WithComponent("nmap"))))
	}

	return discovery.NewEngine(discovery.Config{
		Interfaces:  cfg.Discovery.Interfaces,
		Concurrency: cfg.Discovery.Concurrency,
		PathsFile:   cfg.RTSP.PathsFile,
	}, cc, opts...)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// openOutput returns the destination for command output. An empty path or
// "-" selects the command's stdout.
func openOutput(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, f.Close, nil
}
