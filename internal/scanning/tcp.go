package scanning

import (
	"context"
	"net"
	"net/netip"

	"golang.org/x/sync/errgroup"

	"github.com/anstrom/rtspscout/internal/capture"
	"github.com/anstrom/rtspscout/internal/logging"
	"github.com/anstrom/rtspscout/internal/netif"
)

// TCPScanner probes ports with full TCP connects.
type TCPScanner struct {
	logger *logging.Logger
}

// NewTCPScanner creates a TCP connect scanner.
func NewTCPScanner(logger *logging.Logger) *TCPScanner {
	return &TCPScanner{logger: logger.WithComponent("tcp")}
}

// Scan probes every IPv4 host against every port and returns the open
// ones, ordered by host then by port. Refused and timed out connects mean
// closed; only cancellation aborts the scan.
func (s *TCPScanner) Scan(ctx context.Context, cc *capture.Context, ifc netif.Interface, hosts []Sighting, ports PortSet) ([]OpenPort, error) {
	type probe struct {
		host Sighting
		port uint16
	}

	var probes []probe
	for _, h := range hosts {
		if !h.IP.Is4() {
			continue
		}
		for _, p := range ports {
			probes = append(probes, probe{host: h, port: p})
		}
	}

	open := make([]bool, len(probes))
	dialer := net.Dialer{Timeout: cc.Timeout()}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cc.Parallelism())
	for i, pr := range probes {
		g.Go(func() error {
			if err := cc.Wait(gctx); err != nil {
				return err
			}
			addr := netip.AddrPortFrom(pr.host.IP, pr.port)
			conn, err := dialer.DialContext(gctx, "tcp", addr.String())
			if err != nil {
				return gctx.Err()
			}
			_ = conn.Close()
			open[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, &capture.Error{Op: "tcp scan", Interface: ifc.Name, Err: err}
	}

	var result []OpenPort
	for i, pr := range probes {
		if open[i] {
			result = append(result, OpenPort{MAC: pr.host.MAC, IP: pr.host.IP, Port: pr.port})
		}
	}

	s.logger.Debug("TCP scan finished",
		"interface", ifc.Name,
		"probes", len(probes),
		"open", len(result))
	return result, nil
}
