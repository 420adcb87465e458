package scanning

import (
	"context"
	"net"
	"net/netip"
	"slices"
	"strconv"
	"strings"

	"github.com/anstrom/rtspscout/internal/capture"
	"github.com/anstrom/rtspscout/internal/netif"
)

// Sighting is a host seen on the wire.
type Sighting struct {
	MAC net.HardwareAddr
	IP  netip.Addr
}

// OpenPort is an open TCP port on a sighted host.
type OpenPort struct {
	MAC  net.HardwareAddr
	IP   netip.Addr
	Port uint16
}

// HostScanner finds live hosts on one interface.
type HostScanner interface {
	Scan(ctx context.Context, cc *capture.Context, ifc netif.Interface) ([]Sighting, error)
}

// PortScanner probes hosts for open TCP ports.
type PortScanner interface {
	Scan(ctx context.Context, cc *capture.Context, ifc netif.Interface, hosts []Sighting, ports PortSet) ([]OpenPort, error)
}

// PortSet is an ordered set of TCP ports.
type PortSet []uint16

// RTSPCandidatePorts are the ports RTSP servers are commonly found on.
var RTSPCandidatePorts = PortSet{554, 88, 81, 555, 7447, 8554, 7070, 10554, 80}

// Contains reports whether port is in the set.
func (s PortSet) Contains(port uint16) bool {
	return slices.Contains(s, port)
}

// String renders the set in nmap port list syntax.
func (s PortSet) String() string {
	parts := make([]string, len(s))
	for i, p := range s {
		parts[i] = strconv.Itoa(int(p))
	}
	return strings.Join(parts, ",")
}

func sortSightings(s []Sighting) {
	slices.SortFunc(s, func(a, b Sighting) int {
		return a.IP.Compare(b.IP)
	})
}
