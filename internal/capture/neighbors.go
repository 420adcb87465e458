package capture

import (
	"bytes"
	"net"
	"net/netip"
	"strings"
)

// ParseNeighborOutput parses an operating system neighbor (ARP) table.
// Linux input is the content of /proc/net/arp, windows input is `arp -a`
// and darwin/freebsd input is `arp -an`. Incomplete, all-zero and
// broadcast entries are skipped. Unknown platforms yield an empty table.
func ParseNeighborOutput(output, platform string) map[netip.Addr]net.HardwareAddr {
	table := make(map[netip.Addr]net.HardwareAddr)

	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		var ipField, macField string

		switch platform {
		case "linux":
			// IP address  HW type  Flags  HW address  Mask  Device
			if len(fields) < 4 {
				continue
			}
			ipField, macField = fields[0], fields[3]
		case "windows":
			// Internet Address  Physical Address  Type
			if len(fields) < 3 {
				continue
			}
			ipField, macField = fields[0], strings.ReplaceAll(fields[1], "-", ":")
		case "darwin", "freebsd", "netbsd", "openbsd":
			// ? (192.168.1.1) at aa:bb:cc:dd:ee:ff on en0 ...
			if len(fields) < 4 || fields[2] != "at" {
				continue
			}
			ipField = strings.Trim(fields[1], "()")
			macField = fields[3]
		default:
			return table
		}

		ip, err := netip.ParseAddr(ipField)
		if err != nil || !ip.Is4() {
			continue
		}
		mac, err := net.ParseMAC(normalizeMAC(macField))
		if err != nil || !usableMAC(mac) {
			continue
		}
		table[ip] = mac
	}

	return table
}

// normalizeMAC pads single-digit octets, which BSD arp prints as "0:1b:...".
func normalizeMAC(s string) string {
	parts := strings.Split(s, ":")
	if len(parts) != 6 {
		return s
	}
	for i, p := range parts {
		if len(p) == 1 {
			parts[i] = "0" + p
		}
	}
	return strings.Join(parts, ":")
}

var (
	zeroMAC      = net.HardwareAddr{0, 0, 0, 0, 0, 0}
	broadcastMAC = net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
)

func usableMAC(mac net.HardwareAddr) bool {
	return len(mac) == 6 && !bytes.Equal(mac, zeroMAC) && !bytes.Equal(mac, broadcastMAC)
}
