package scanning

import (
	"context"
	"fmt"
	"net/netip"
	"sync"
	"time"

	probing "github.com/prometheus-community/pro-bing"
	"golang.org/x/sync/errgroup"

	"github.com/anstrom/rtspscout/internal/capture"
	"github.com/anstrom/rtspscout/internal/logging"
	"github.com/anstrom/rtspscout/internal/netif"
)

// pingFunc reports whether ip answered an echo request within timeout.
// Errors are reserved for failures of the prober itself.
type pingFunc func(ctx context.Context, ip netip.Addr, timeout time.Duration, privileged bool) (bool, error)

// ICMPScanner finds hosts by sending ICMP echo requests.
type ICMPScanner struct {
	ping   pingFunc
	logger *logging.Logger
}

// NewICMPScanner creates an ICMP echo scanner.
func NewICMPScanner(logger *logging.Logger) *ICMPScanner {
	return &ICMPScanner{ping: ping, logger: logger.WithComponent("icmp")}
}

func ping(ctx context.Context, ip netip.Addr, timeout time.Duration, privileged bool) (bool, error) {
	pinger, err := probing.NewPinger(ip.String())
	if err != nil {
		return false, fmt.Errorf("create pinger: %w", err)
	}
	pinger.Count = 1
	pinger.Timeout = timeout
	pinger.SetPrivileged(privileged)

	done := make(chan error, 1)
	go func() {
		done <- pinger.Run()
	}()

	select {
	case err := <-done:
		if err != nil {
			return false, err
		}
		return pinger.Statistics().PacketsRecv > 0, nil
	case <-ctx.Done():
		pinger.Stop()
		<-done
		return false, ctx.Err()
	}
}

// Scan pings every candidate address on the interface. Responders are
// matched to MAC addresses through the neighbor table, which the echo
// exchange itself populates.
func (s *ICMPScanner) Scan(ctx context.Context, cc *capture.Context, ifc netif.Interface) ([]Sighting, error) {
	targets := netif.Hosts(ifc.Prefix, ifc.Addr, cc.MaxHosts())

	var (
		mu    sync.Mutex
		alive []netip.Addr
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cc.Parallelism())
	for _, ip := range targets {
		g.Go(func() error {
			if err := cc.Wait(gctx); err != nil {
				return err
			}
			ok, err := s.ping(gctx, ip, cc.Timeout(), cc.Privileged())
			if err != nil {
				return err
			}
			if ok {
				mu.Lock()
				alive = append(alive, ip)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, &capture.Error{Op: "icmp scan", Interface: ifc.Name, Err: err}
	}

	if len(alive) > 0 {
		if err := cc.Refresh(ctx); err != nil {
			return nil, &capture.Error{Op: "icmp scan", Interface: ifc.Name, Err: err}
		}
	}

	sightings := make([]Sighting, 0, len(alive))
	for _, ip := range alive {
		mac, ok := cc.Lookup(ip)
		if !ok {
			s.logger.Debug("Dropping ICMP responder without MAC", "interface", ifc.Name, "ip", ip)
			continue
		}
		sightings = append(sightings, Sighting{MAC: mac, IP: ip})
	}
	sortSightings(sightings)

	s.logger.Debug("ICMP scan finished",
		"interface", ifc.Name,
		"targets", len(targets),
		"responders", len(alive),
		"hosts", len(sightings))
	return sightings, nil
}
