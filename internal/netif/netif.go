// Package netif enumerates the local Ethernet-like interfaces a discovery
// run can scan and the IPv4 host addresses reachable on them.
package netif

import (
	"fmt"
	"net"
	"net/netip"
	"slices"
)

// Interface is a scannable network interface with its IPv4 configuration.
type Interface struct {
	Name         string
	Index        int
	HardwareAddr net.HardwareAddr
	// Addr is our own address on the interface.
	Addr netip.Addr
	// Prefix is the directly connected network, masked.
	Prefix netip.Prefix

	iface *net.Interface
}

// Net returns the underlying interface for socket-level collaborators.
func (i Interface) Net() *net.Interface {
	if i.iface != nil {
		return i.iface
	}
	return &net.Interface{Index: i.Index, Name: i.Name, HardwareAddr: i.HardwareAddr}
}

func (i Interface) String() string {
	return fmt.Sprintf("%s (%s, %s)", i.Name, i.Addr, i.Prefix)
}

// List returns every interface that is up, is not a loopback, has a
// hardware address and carries an IPv4 address. An interface with several
// IPv4 addresses is reported once, with its first address.
func List() ([]Interface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("listing interfaces: %w", err)
	}

	var out []Interface
	for i := range ifaces {
		iface := &ifaces[i]
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		if len(iface.HardwareAddr) != 6 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		addr, prefix, ok := firstIPv4(addrs)
		if !ok {
			continue
		}

		out = append(out, Interface{
			Name:         iface.Name,
			Index:        iface.Index,
			HardwareAddr: iface.HardwareAddr,
			Addr:         addr,
			Prefix:       prefix,
			iface:        iface,
		})
	}
	return out, nil
}

func firstIPv4(addrs []net.Addr) (netip.Addr, netip.Prefix, bool) {
	for _, a := range addrs {
		ipnet, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		ip4 := ipnet.IP.To4()
		if ip4 == nil {
			continue
		}
		ones, bits := ipnet.Mask.Size()
		if bits != 32 {
			continue
		}
		addr := netip.AddrFrom4([4]byte(ip4))
		return addr, netip.PrefixFrom(addr, ones).Masked(), true
	}
	return netip.Addr{}, netip.Prefix{}, false
}

// Filter keeps the interfaces whose names are in names. An empty names
// list keeps everything.
func Filter(ifaces []Interface, names []string) []Interface {
	if len(names) == 0 {
		return ifaces
	}
	var out []Interface
	for _, iface := range ifaces {
		if slices.Contains(names, iface.Name) {
			out = append(out, iface)
		}
	}
	return out
}

// Hosts returns up to limit host addresses of an IPv4 prefix, skipping the
// network and broadcast addresses of prefixes shorter than /31 and the
// address self. A limit of zero or less means no limit.
func Hosts(prefix netip.Prefix, self netip.Addr, limit int) []netip.Addr {
	prefix = prefix.Masked()
	if !prefix.Addr().Is4() {
		return nil
	}

	bits := prefix.Bits()
	var hosts []netip.Addr
	addr := prefix.Addr()
	if bits < 31 {
		addr = addr.Next()
	}

	for ; addr.IsValid() && prefix.Contains(addr); addr = addr.Next() {
		if bits < 31 && isBroadcast(prefix, addr) {
			break
		}
		if addr == self {
			continue
		}
		hosts = append(hosts, addr)
		if limit > 0 && len(hosts) >= limit {
			break
		}
	}
	return hosts
}

func isBroadcast(prefix netip.Prefix, addr netip.Addr) bool {
	next := addr.Next()
	return !next.IsValid() || !prefix.Contains(next)
}
