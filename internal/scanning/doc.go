// Package scanning provides the host and port scanners used by the
// discovery pipeline.
//
// # Host discovery
//
// Two scanners find live hosts on a directly connected IPv4 network:
//   - ARPScanner broadcasts who-has requests for every candidate address
//     and collects the replies, which carry the MAC address directly.
//   - ICMPScanner sends echo requests and resolves the MAC address of each
//     responder through the capture context's neighbor table. Responders
//     whose MAC address cannot be resolved are dropped.
//
// # Port probing
//
// Two port scanners implement PortScanner:
//   - TCPScanner performs TCP connect probes with bounded parallelism.
//   - NmapScanner delegates to an nmap binary, using a SYN scan when the
//     capture context is privileged and a connect scan otherwise.
//
// All scanners take the shared *capture.Context, which rate limits probes
// and bounds per-scanner parallelism, and report failures as
// *capture.Error values.
package scanning
