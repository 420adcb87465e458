package discovery

import (
	"context"
	"net"
	"net/netip"
	"slices"
	"strings"
	"time"

	"github.com/anstrom/rtspscout/internal/report"
	"github.com/anstrom/rtspscout/internal/rtsp"
)

// rtspTimeout bounds every RTSP request made during discovery.
const rtspTimeout = 1000 * time.Millisecond

// DescribeStatus is the classification of one DESCRIBE exchange.
type DescribeStatus int

const (
	StatusOk DescribeStatus = iota
	StatusLocked
	StatusUnsupported
	StatusNotFound
	StatusError
)

var describeStatusNames = [...]string{
	StatusOk:          "ok",
	StatusLocked:      "locked",
	StatusUnsupported: "unsupported",
	StatusNotFound:    "not_found",
	StatusError:       "error",
}

func (s DescribeStatus) String() string {
	if s >= 0 && int(s) < len(describeStatusNames) {
		return describeStatusNames[s]
	}
	return "unknown"
}

// vendorQuirk describes firmware that answers 200 to DESCRIBE for any path.
// Only the listed paths are real streams; everything else is not found.
type vendorQuirk struct {
	server string
	paths  []string
}

var vendorQuirks = []vendorQuirk{
	{server: "HiIpcam/V100R003 VodServer/1.0.0", paths: []string{"/11", "/12"}},
	{server: "Hipcam RealServer/V1.0", paths: []string{"/11", "/12"}},
}

// supportedVideoCodecs are the rtpmap encoding names downstream consumers
// can decode, upper case.
var supportedVideoCodecs = map[string]struct{}{
	"H264":          {},
	"H264-RCDO":     {},
	"H264-SVC":      {},
	"MP4V-ES":       {},
	"MPEG4-GENERIC": {},
}

func findVendorQuirk(server string) (vendorQuirk, bool) {
	for _, q := range vendorQuirks {
		if q.server == server {
			return q, true
		}
	}
	return vendorQuirk{}, false
}

// classifyResponse maps a DESCRIBE response for path to a status.
func classifyResponse(path string, res *rtsp.Response) DescribeStatus {
	if quirk, ok := findVendorQuirk(res.Server()); ok && !slices.Contains(quirk.paths, path) {
		return StatusNotFound
	}

	switch res.StatusCode {
	case 404:
		return StatusNotFound
	case 401:
		return StatusLocked
	case 200:
		if isSupportedService(res.Body) {
			return StatusOk
		}
		return StatusUnsupported
	default:
		return StatusError
	}
}

// isSupportedService reports whether an SDP body offers a video stream in
// a supported codec. Unparseable bodies offer nothing.
func isSupportedService(body []byte) bool {
	desc, err := rtsp.ParseSessionDescription(body)
	if err != nil {
		return false
	}
	for _, enc := range desc.Encodings("video") {
		if _, ok := supportedVideoCodecs[strings.ToUpper(enc)]; ok {
			return true
		}
	}
	return false
}

// isRTSPService reports whether the endpoint answers OPTIONS. Only a
// failure to construct the client is returned as an error.
func (e *Engine) isRTSPService(ctx context.Context, addr netip.AddrPort) (bool, error) {
	session, err := e.openSession(addr)
	if err != nil {
		return false, err
	}
	defer session.Close()

	session.SetTimeout(rtspTimeout)
	if _, err := session.Options(ctx); err != nil {
		e.logger.Debug("OPTIONS failed", "endpoint", addr, "error", err)
		return false, nil
	}
	return true, nil
}

// describeStatus classifies one path on one endpoint. Request failures
// are a StatusError classification; only client construction fails.
func (e *Engine) describeStatus(ctx context.Context, addr netip.AddrPort, path string) (DescribeStatus, error) {
	session, err := e.openSession(addr)
	if err != nil {
		return StatusError, err
	}
	defer session.Close()

	session.SetTimeout(rtspTimeout)
	res, err := session.Describe(ctx, path)
	if err != nil {
		e.logger.Debug("DESCRIBE failed", "endpoint", addr, "path", path, "error", err)
		return StatusError, nil
	}
	return classifyResponse(path, res), nil
}

// findRTSPPaths probes every known path on a confirmed endpoint and
// reduces the outcomes to the services recorded for it.
func (e *Engine) findRTSPPaths(ctx context.Context, mac net.HardwareAddr, addr netip.AddrPort, paths []string) ([]report.Service, error) {
	var ok, unsupported []string
	locked := false

	for _, path := range paths {
		status, err := e.describeStatus(ctx, addr, path)
		if err != nil {
			return nil, err
		}
		e.metrics.RecordDescribe(status.String())

		switch status {
		case StatusOk:
			ok = append(ok, path)
		case StatusUnsupported:
			unsupported = append(unsupported, path)
		case StatusLocked:
			locked = true
		}
	}

	return reduceServices(mac, addr, len(paths), ok, unsupported, locked), nil
}

// reduceServices turns per-path outcomes into service records. Servers
// that accept every probed path are not trusted to have any of them, a
// locked path always yields one LockedRTSP record, and an endpoint with no
// other record is reported as UnknownRTSP.
func reduceServices(mac net.HardwareAddr, addr netip.AddrPort, probed int, ok, unsupported []string, locked bool) []report.Service {
	services := make([]report.Service, 0, len(ok)+len(unsupported)+1)
	for _, path := range ok {
		services = append(services, report.NewRTSP(mac, addr, path))
	}
	for _, path := range unsupported {
		services = append(services, report.NewUnsupportedRTSP(mac, addr, path))
	}

	if len(services) == probed {
		services = services[:0]
	}

	if locked {
		services = append(services, report.NewLockedRTSP(mac, addr))
	}

	if len(services) == 0 {
		services = append(services, report.NewUnknownRTSP(mac, addr))
	}

	return services
}
