package report

import (
	"fmt"
	"net"
	"net/netip"
)

// ServiceKind tells how usable an RTSP endpoint is.
type ServiceKind int

const (
	// ServiceRTSP is a usable stream at a known path.
	ServiceRTSP ServiceKind = iota
	// ServiceUnsupportedRTSP is a stream whose codec cannot be consumed.
	ServiceUnsupportedRTSP
	// ServiceLockedRTSP marks an endpoint where at least one path needs credentials.
	ServiceLockedRTSP
	// ServiceUnknownRTSP marks a confirmed endpoint with no trustworthy path.
	ServiceUnknownRTSP
)

var serviceKindNames = map[ServiceKind]string{
	ServiceRTSP:            "rtsp",
	ServiceUnsupportedRTSP: "rtsp-unsupported",
	ServiceLockedRTSP:      "rtsp-locked",
	ServiceUnknownRTSP:     "rtsp-unknown",
}

// String returns the kind name used in output and metrics.
func (k ServiceKind) String() string {
	if name, ok := serviceKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ServiceKind(%d)", int(k))
}

// MarshalText implements encoding.TextMarshaler.
func (k ServiceKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *ServiceKind) UnmarshalText(text []byte) error {
	for kind, name := range serviceKindNames {
		if name == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown service kind %q", string(text))
}

// HasPath reports whether services of this kind carry a stream path.
func (k ServiceKind) HasPath() bool {
	return k == ServiceRTSP || k == ServiceUnsupportedRTSP
}

// Service is a classified RTSP endpoint. Path is only set for the RTSP and
// UnsupportedRTSP kinds.
type Service struct {
	Kind ServiceKind
	MAC  net.HardwareAddr
	Addr netip.AddrPort
	Path string
}

// NewRTSP creates a usable stream record.
func NewRTSP(mac net.HardwareAddr, addr netip.AddrPort, path string) Service {
	return Service{Kind: ServiceRTSP, MAC: mac, Addr: addr, Path: path}
}

// NewUnsupportedRTSP creates a record for a stream with an unusable codec.
func NewUnsupportedRTSP(mac net.HardwareAddr, addr netip.AddrPort, path string) Service {
	return Service{Kind: ServiceUnsupportedRTSP, MAC: mac, Addr: addr, Path: path}
}

// NewLockedRTSP creates a record for an endpoint that requires credentials.
func NewLockedRTSP(mac net.HardwareAddr, addr netip.AddrPort) Service {
	return Service{Kind: ServiceLockedRTSP, MAC: mac, Addr: addr}
}

// NewUnknownRTSP creates a record for an endpoint with no usable path.
func NewUnknownRTSP(mac net.HardwareAddr, addr netip.AddrPort) Service {
	return Service{Kind: ServiceUnknownRTSP, MAC: mac, Addr: addr}
}

// URL returns the stream URL for path-carrying kinds and the bare endpoint
// URL otherwise.
func (s Service) URL() string {
	if s.Kind.HasPath() {
		return "rtsp://" + s.Addr.String() + s.Path
	}
	return "rtsp://" + s.Addr.String()
}

func (s Service) String() string {
	return fmt.Sprintf("%s %s (%s)", s.Kind, s.URL(), s.MAC)
}
