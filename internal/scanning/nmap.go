package scanning

import (
	"context"
	"fmt"
	"net"
	"net/netip"

	"github.com/Ullaakut/nmap/v3"

	"github.com/anstrom/rtspscout/internal/capture"
	"github.com/anstrom/rtspscout/internal/logging"
	"github.com/anstrom/rtspscout/internal/netif"
)

type nmapRunner func(ctx context.Context, opts ...nmap.Option) (*nmap.Run, []string, error)

func runNmap(ctx context.Context, opts ...nmap.Option) (*nmap.Run, []string, error) {
	scanner, err := nmap.NewScanner(ctx, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("create scanner: %w", err)
	}
	result, warnings, err := scanner.Run()
	var ws []string
	if warnings != nil {
		ws = *warnings
	}
	if err != nil {
		return nil, ws, fmt.Errorf("run scan: %w", err)
	}
	return result, ws, nil
}

// NmapScanner probes ports by running nmap.
type NmapScanner struct {
	run    nmapRunner
	logger *logging.Logger
}

// NewNmapScanner creates a port scanner backed by the nmap binary.
func NewNmapScanner(logger *logging.Logger) *NmapScanner {
	return &NmapScanner{run: runNmap, logger: logger.WithComponent("nmap")}
}

// Scan runs one nmap invocation covering all IPv4 hosts and ports.
func (s *NmapScanner) Scan(ctx context.Context, cc *capture.Context, ifc netif.Interface, hosts []Sighting, ports PortSet) ([]OpenPort, error) {
	byIP := make(map[netip.Addr]net.HardwareAddr, len(hosts))
	var targets []string
	for _, h := range hosts {
		if !h.IP.Is4() {
			continue
		}
		if _, dup := byIP[h.IP]; !dup {
			targets = append(targets, h.IP.String())
		}
		byIP[h.IP] = h.MAC
	}
	if len(targets) == 0 || len(ports) == 0 {
		return nil, nil
	}

	result, warnings, err := s.run(ctx, buildNmapOptions(cc, ifc, targets, ports)...)
	if len(warnings) > 0 {
		s.logger.Warn("nmap reported warnings", "interface", ifc.Name, "warnings", warnings)
	}
	if err != nil {
		return nil, &capture.Error{Op: "nmap scan", Interface: ifc.Name, Err: err}
	}

	return convertNmapRun(result, byIP, ports), nil
}

func buildNmapOptions(cc *capture.Context, ifc netif.Interface, targets []string, ports PortSet) []nmap.Option {
	options := []nmap.Option{
		nmap.WithTargets(targets...),
		nmap.WithPorts(ports.String()),
		nmap.WithSkipHostDiscovery(),
		nmap.WithTimingTemplate(nmap.TimingAggressive),
	}
	if ifc.Name != "" {
		options = append(options, nmap.WithInterface(ifc.Name))
	}
	if cc.Privileged() {
		options = append(options, nmap.WithSYNScan())
	} else {
		options = append(options, nmap.WithConnectScan())
	}
	return options
}

// convertNmapRun keeps open TCP ports of known hosts, ordered as nmap
// reported the hosts and as the port set lists the ports.
func convertNmapRun(result *nmap.Run, byIP map[netip.Addr]net.HardwareAddr, ports PortSet) []OpenPort {
	if result == nil {
		return nil
	}

	var open []OpenPort
	for i := range result.Hosts {
		h := &result.Hosts[i]
		ip, ok := hostIPv4(h)
		if !ok {
			continue
		}
		mac, known := byIP[ip]
		if !known {
			continue
		}

		seen := make(map[uint16]bool)
		for j := range h.Ports {
			p := &h.Ports[j]
			if p.Protocol == "tcp" && p.State.State == "open" {
				seen[p.ID] = true
			}
		}
		for _, port := range ports {
			if seen[port] {
				open = append(open, OpenPort{MAC: mac, IP: ip, Port: port})
			}
		}
	}
	return open
}

func hostIPv4(h *nmap.Host) (netip.Addr, bool) {
	for _, a := range h.Addresses {
		if a.AddrType != "ipv4" {
			continue
		}
		ip, err := netip.ParseAddr(a.Addr)
		if err == nil && ip.Is4() {
			return ip, true
		}
	}
	return netip.Addr{}, false
}
