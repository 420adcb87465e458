// Package report holds the aggregate result of a discovery run: the hosts
// that were seen, the open candidate ports on them and the classified RTSP
// services. A ScanReport is not safe for concurrent use; workers build
// their own fragments and the orchestrator merges them after each stage.
package report

import (
	"net"
	"net/netip"
	"strings"
)

// HostFlags records which discovery methods saw a host.
type HostFlags uint8

const (
	FlagARP HostFlags = 1 << iota
	FlagICMP
)

// Has reports whether every bit of flag is set.
func (f HostFlags) Has(flag HostFlags) bool {
	return f&flag == flag
}

// String renders the flags as a comma separated list.
func (f HostFlags) String() string {
	var names []string
	if f.Has(FlagARP) {
		names = append(names, "arp")
	}
	if f.Has(FlagICMP) {
		names = append(names, "icmp")
	}
	return strings.Join(names, ",")
}

// Host is a device seen on a local network. Its identity is the MAC address.
type Host struct {
	MAC   net.HardwareAddr
	IP    netip.Addr
	Flags HostFlags
}

// Port is an open TCP port on a discovered host.
type Port struct {
	MAC  net.HardwareAddr
	IP   netip.Addr
	Port uint16
}

// AddrPort returns the socket address of the open port.
func (p Port) AddrPort() netip.AddrPort {
	return netip.AddrPortFrom(p.IP, p.Port)
}

// Endpoint is a (host, socket address) pair produced from the open ports.
type Endpoint struct {
	MAC  net.HardwareAddr
	Addr netip.AddrPort
}

// ScanReport accumulates the results of one discovery run.
type ScanReport struct {
	hosts    map[string]*Host
	order    []string
	ports    []Port
	services []Service
}

// New creates an empty report.
func New() *ScanReport {
	return &ScanReport{hosts: make(map[string]*Host)}
}

// AddHost records a sighting. A MAC that is already known keeps its first
// IP address and gains the new flags.
func (r *ScanReport) AddHost(mac net.HardwareAddr, ip netip.Addr, flags HostFlags) {
	key := mac.String()
	if host, ok := r.hosts[key]; ok {
		host.Flags |= flags
		return
	}
	r.hosts[key] = &Host{MAC: cloneMAC(mac), IP: ip, Flags: flags}
	r.order = append(r.order, key)
}

// AddPort records an open port. Duplicates are kept.
func (r *ScanReport) AddPort(mac net.HardwareAddr, ip netip.Addr, port uint16) {
	r.ports = append(r.ports, Port{MAC: cloneMAC(mac), IP: ip, Port: port})
}

// AddService records a classified service. Duplicates are kept.
func (r *ScanReport) AddService(svc Service) {
	svc.MAC = cloneMAC(svc.MAC)
	r.services = append(r.services, svc)
}

// Merge folds other into r. Hosts are merged by MAC; ports and services are
// appended in the order other holds them.
func (r *ScanReport) Merge(other *ScanReport) {
	if other == nil {
		return
	}
	for _, key := range other.order {
		h := other.hosts[key]
		r.AddHost(h.MAC, h.IP, h.Flags)
	}
	for _, p := range other.ports {
		r.AddPort(p.MAC, p.IP, p.Port)
	}
	for _, s := range other.services {
		r.AddService(s)
	}
}

// Hosts returns the hosts in the order they were first seen.
func (r *ScanReport) Hosts() []Host {
	hosts := make([]Host, 0, len(r.order))
	for _, key := range r.order {
		hosts = append(hosts, *r.hosts[key])
	}
	return hosts
}

// Host looks up a host by MAC address.
func (r *ScanReport) Host(mac net.HardwareAddr) (Host, bool) {
	h, ok := r.hosts[mac.String()]
	if !ok {
		return Host{}, false
	}
	return *h, true
}

// Ports returns the open port records.
func (r *ScanReport) Ports() []Port {
	return append([]Port(nil), r.ports...)
}

// Services returns the classified services.
func (r *ScanReport) Services() []Service {
	return append([]Service(nil), r.services...)
}

// SocketAddrs returns one endpoint per open port record.
func (r *ScanReport) SocketAddrs() []Endpoint {
	endpoints := make([]Endpoint, 0, len(r.ports))
	for _, p := range r.ports {
		endpoints = append(endpoints, Endpoint{MAC: p.MAC, Addr: p.AddrPort()})
	}
	return endpoints
}

// Summary counts the report contents.
type Summary struct {
	Hosts    int                 `json:"hosts" yaml:"hosts"`
	Ports    int                 `json:"open_ports" yaml:"open_ports"`
	Services int                 `json:"services" yaml:"services"`
	ByKind   map[ServiceKind]int `json:"by_kind" yaml:"by_kind"`
}

// Summary returns the report counters.
func (r *ScanReport) Summary() Summary {
	s := Summary{
		Hosts:    len(r.order),
		Ports:    len(r.ports),
		Services: len(r.services),
		ByKind:   make(map[ServiceKind]int),
	}
	for _, svc := range r.services {
		s.ByKind[svc.Kind]++
	}
	return s
}

func cloneMAC(mac net.HardwareAddr) net.HardwareAddr {
	if mac == nil {
		return nil
	}
	return append(net.HardwareAddr(nil), mac...)
}
