// Package capture provides the shared capability handle the host and port
// scanners run against. A single *Context is created per discovery run and
// handed to every scanner goroutine; its state is internally synchronized.
package capture

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"os"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Error is a capture or scanner failure on an interface.
type Error struct {
	Op        string
	Interface string
	Err       error
}

func (e *Error) Error() string {
	if e.Interface == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s on %s: %v", e.Op, e.Interface, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Config holds the probing limits shared by all scanners.
type Config struct {
	PacketsPerSecond int
	Parallelism      int
	Timeout          time.Duration
	MaxHosts         int
	Privileged       bool
}

// DefaultConfig returns the default probing limits.
func DefaultConfig() Config {
	return Config{
		PacketsPerSecond: 500,
		Parallelism:      64,
		Timeout:          time.Second,
		MaxHosts:         1024,
	}
}

// TableReader returns the raw operating system neighbor table and the
// platform name understood by ParseNeighborOutput.
type TableReader func(ctx context.Context) (output, platform string, err error)

// Context is the shared capture handle.
type Context struct {
	config  Config
	limiter *rate.Limiter

	mu        sync.RWMutex
	neighbors map[netip.Addr]net.HardwareAddr
	readTable TableReader
}

// Option configures a Context.
type Option func(*Context)

// WithTableReader replaces the operating system neighbor table reader.
func WithTableReader(reader TableReader) Option {
	return func(c *Context) {
		c.readTable = reader
	}
}

// NewContext creates a capture context. Zero config values take defaults.
func NewContext(config Config, opts ...Option) *Context {
	def := DefaultConfig()
	if config.PacketsPerSecond <= 0 {
		config.PacketsPerSecond = def.PacketsPerSecond
	}
	if config.Parallelism <= 0 {
		config.Parallelism = def.Parallelism
	}
	if config.Timeout <= 0 {
		config.Timeout = def.Timeout
	}
	if config.MaxHosts <= 0 {
		config.MaxHosts = def.MaxHosts
	}

	c := &Context{
		config:    config,
		limiter:   rate.NewLimiter(rate.Limit(config.PacketsPerSecond), config.Parallelism),
		neighbors: make(map[netip.Addr]net.HardwareAddr),
		readTable: readSystemTable,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Wait blocks until the packet budget allows one more probe.
func (c *Context) Wait(ctx context.Context) error {
	return c.limiter.Wait(ctx)
}

// Parallelism is the number of probes a scanner may have in flight.
func (c *Context) Parallelism() int { return c.config.Parallelism }

// Timeout is the per-probe timeout.
func (c *Context) Timeout() time.Duration { return c.config.Timeout }

// MaxHosts caps the number of addresses probed per interface.
func (c *Context) MaxHosts() int { return c.config.MaxHosts }

// Privileged reports whether raw sockets may be used.
func (c *Context) Privileged() bool { return c.config.Privileged }

// Learn records an IP to MAC binding observed on the wire.
func (c *Context) Learn(ip netip.Addr, mac net.HardwareAddr) {
	if !ip.IsValid() || !usableMAC(mac) {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.neighbors[ip] = append(net.HardwareAddr(nil), mac...)
}

// Lookup returns the MAC address bound to ip, if known.
func (c *Context) Lookup(ip netip.Addr) (net.HardwareAddr, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	mac, ok := c.neighbors[ip]
	return mac, ok
}

// Refresh merges the operating system neighbor table into the context.
// Bindings learned on the wire take precedence.
func (c *Context) Refresh(ctx context.Context) error {
	output, platform, err := c.readTable(ctx)
	if err != nil {
		return &Error{Op: "read neighbor table", Err: err}
	}
	table := ParseNeighborOutput(output, platform)

	c.mu.Lock()
	defer c.mu.Unlock()
	for ip, mac := range table {
		if _, ok := c.neighbors[ip]; !ok {
			c.neighbors[ip] = mac
		}
	}
	return nil
}

func readSystemTable(ctx context.Context) (string, string, error) {
	switch runtime.GOOS {
	case "linux":
		data, err := os.ReadFile("/proc/net/arp")
		if err != nil {
			return "", "", err
		}
		return string(data), "linux", nil
	case "windows":
		out, err := exec.CommandContext(ctx, "arp", "-a").Output()
		return string(out), "windows", err
	default:
		out, err := exec.CommandContext(ctx, "arp", "-an").Output()
		return string(out), runtime.GOOS, err
	}
}
