package scanning

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"sync"
	"time"

	"github.com/mdlayher/arp"

	"github.com/anstrom/rtspscout/internal/capture"
	"github.com/anstrom/rtspscout/internal/logging"
	"github.com/anstrom/rtspscout/internal/netif"
)

type arpConn interface {
	Request(ip netip.Addr) error
	ReadReply() (*arp.Packet, error)
	SetReadDeadline(t time.Time) error
	Close() error
}

type arpClient struct {
	*arp.Client
}

func (c arpClient) ReadReply() (*arp.Packet, error) {
	p, _, err := c.Read()
	return p, err
}

func dialARP(ifc netif.Interface) (arpConn, error) {
	c, err := arp.Dial(ifc.Net())
	if err != nil {
		return nil, err
	}
	return arpClient{c}, nil
}

// ARPScanner finds hosts by broadcasting ARP requests.
type ARPScanner struct {
	dial   func(netif.Interface) (arpConn, error)
	logger *logging.Logger
}

// NewARPScanner creates an ARP scanner using raw sockets on the interface.
func NewARPScanner(logger *logging.Logger) *ARPScanner {
	return &ARPScanner{dial: dialARP, logger: logger.WithComponent("arp")}
}

// Scan requests every candidate address on the interface and returns the
// hosts that answered before the probe timeout.
func (s *ARPScanner) Scan(ctx context.Context, cc *capture.Context, ifc netif.Interface) ([]Sighting, error) {
	conn, err := s.dial(ifc)
	if err != nil {
		return nil, &capture.Error{Op: "arp scan", Interface: ifc.Name, Err: err}
	}
	defer conn.Close()

	targets := netif.Hosts(ifc.Prefix, ifc.Addr, cc.MaxHosts())
	wanted := make(map[netip.Addr]struct{}, len(targets))
	for _, ip := range targets {
		wanted[ip] = struct{}{}
	}

	var (
		mu      sync.Mutex
		found   = make(map[netip.Addr]net.HardwareAddr)
		readErr error
		wg      sync.WaitGroup
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			p, err := conn.ReadReply()
			if err != nil {
				var ne net.Error
				if !errors.As(err, &ne) || !ne.Timeout() {
					mu.Lock()
					readErr = err
					mu.Unlock()
				}
				return
			}
			if p.Operation != arp.OperationReply {
				continue
			}
			if _, ok := wanted[p.SenderIP]; !ok {
				continue
			}
			mu.Lock()
			if _, seen := found[p.SenderIP]; !seen {
				found[p.SenderIP] = append(net.HardwareAddr(nil), p.SenderHardwareAddr...)
			}
			mu.Unlock()
		}
	}()

	sendErr := s.sendRequests(ctx, cc, conn, targets)
	if sendErr == nil {
		select {
		case <-time.After(cc.Timeout()):
		case <-ctx.Done():
			sendErr = ctx.Err()
		}
	}
	_ = conn.SetReadDeadline(time.Now())
	wg.Wait()

	if sendErr != nil {
		return nil, &capture.Error{Op: "arp scan", Interface: ifc.Name, Err: sendErr}
	}
	if readErr != nil {
		return nil, &capture.Error{Op: "arp scan", Interface: ifc.Name, Err: readErr}
	}

	sightings := make([]Sighting, 0, len(found))
	for ip, mac := range found {
		cc.Learn(ip, mac)
		sightings = append(sightings, Sighting{MAC: mac, IP: ip})
	}
	sortSightings(sightings)

	s.logger.Debug("ARP scan finished",
		"interface", ifc.Name,
		"targets", len(targets),
		"hosts", len(sightings))
	return sightings, nil
}

func (s *ARPScanner) sendRequests(ctx context.Context, cc *capture.Context, conn arpConn, targets []netip.Addr) error {
	for _, ip := range targets {
		if err := cc.Wait(ctx); err != nil {
			return err
		}
		if err := conn.Request(ip); err != nil {
			return err
		}
	}
	return nil
}
