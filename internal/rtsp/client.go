// Package rtsp implements the small part of an RTSP client that discovery
// needs: OPTIONS and DESCRIBE over a single TCP connection, with request
// and response framing provided by gortsplib's base package, plus SDP
// inspection helpers.
package rtsp

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/bluenviron/gortsplib/v4/pkg/base"
)

const (
	// DefaultTimeout bounds dialing and every request/response exchange.
	DefaultTimeout = 1000 * time.Millisecond

	userAgent      = "rtspscout"
	readBufferSize = 4096
)

// Error describes a failed RTSP operation.
type Error struct {
	Op   string
	Addr string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("rtsp %s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Response is a decoded RTSP response.
type Response struct {
	StatusCode    int
	StatusMessage string
	Header        base.Header
	Body          []byte
}

// HeaderValue returns the first value of a header, matching the name
// case-insensitively.
func (r *Response) HeaderValue(name string) string {
	if v, ok := r.Header[name]; ok && len(v) > 0 {
		return v[0]
	}
	for key, v := range r.Header {
		if strings.EqualFold(key, name) && len(v) > 0 {
			return v[0]
		}
	}
	return ""
}

// Server returns the Server header.
func (r *Response) Server() string {
	return r.HeaderValue("Server")
}

// Client talks to one RTSP endpoint. The connection is opened on the first
// request. A Client must not be used from multiple goroutines.
type Client struct {
	addr    netip.AddrPort
	baseURL string
	timeout time.Duration
	dialer  net.Dialer

	conn net.Conn
	br   *bufio.Reader
	cseq int
}

// NewClient creates a client for addr without touching the network.
func NewClient(addr netip.AddrPort) (*Client, error) {
	if !addr.IsValid() || addr.Port() == 0 {
		return nil, &Error{Op: "new", Addr: addr.String(), Err: fmt.Errorf("invalid address")}
	}
	baseURL := "rtsp://" + addr.String()
	if _, err := base.ParseURL(baseURL); err != nil {
		return nil, &Error{Op: "new", Addr: addr.String(), Err: err}
	}
	return &Client{
		addr:    addr,
		baseURL: baseURL,
		timeout: DefaultTimeout,
	}, nil
}

// SetTimeout changes the dial and per-request timeout.
func (c *Client) SetTimeout(timeout time.Duration) {
	c.timeout = timeout
}

// Timeout returns the current timeout.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// Addr returns the endpoint address.
func (c *Client) Addr() netip.AddrPort {
	return c.addr
}

// Options sends OPTIONS and fails unless the server answers 200.
func (c *Client) Options(ctx context.Context) (*Response, error) {
	u, err := base.ParseURL(c.baseURL)
	if err != nil {
		return nil, &Error{Op: "options", Addr: c.addr.String(), Err: err}
	}
	res, err := c.do(ctx, &base.Request{Method: base.Options, URL: u})
	if err != nil {
		return nil, err
	}
	if res.StatusCode != int(base.StatusOK) {
		return res, &Error{
			Op:   "options",
			Addr: c.addr.String(),
			Err:  fmt.Errorf("bad status code: %d (%s)", res.StatusCode, res.StatusMessage),
		}
	}
	return res, nil
}

// Describe sends DESCRIBE for path and returns the response whatever its
// status code.
func (c *Client) Describe(ctx context.Context, path string) (*Response, error) {
	u, err := base.ParseURL(c.baseURL + normalizePath(path))
	if err != nil {
		return nil, &Error{Op: "describe", Addr: c.addr.String(), Err: err}
	}
	return c.do(ctx, &base.Request{
		Method: base.Describe,
		URL:    u,
		Header: base.Header{
			"Accept": base.HeaderValue{"application/sdp"},
		},
	})
}

// Close closes the underlying connection, if any.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	c.br = nil
	return err
}

func (c *Client) connect(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	conn, err := c.dialer.DialContext(dialCtx, "tcp", c.addr.String())
	if err != nil {
		return err
	}
	c.conn = conn
	c.br = bufio.NewReaderSize(conn, readBufferSize)
	return nil
}

func (c *Client) do(ctx context.Context, req *base.Request) (*Response, error) {
	op := strings.ToLower(string(req.Method))

	if c.conn == nil {
		if err := c.connect(ctx); err != nil {
			return nil, &Error{Op: op, Addr: c.addr.String(), Err: err}
		}
	}

	if req.Header == nil {
		req.Header = make(base.Header)
	}
	c.cseq++
	req.Header["CSeq"] = base.HeaderValue{strconv.Itoa(c.cseq)}
	req.Header["User-Agent"] = base.HeaderValue{userAgent}

	res, err := c.exchange(ctx, req)
	if err != nil {
		// The stream position is unknown after a failed exchange.
		_ = c.Close()
		return nil, &Error{Op: op, Addr: c.addr.String(), Err: err}
	}
	return res, nil
}

func (c *Client) exchange(ctx context.Context, req *base.Request) (*Response, error) {
	buf, err := req.Marshal()
	if err != nil {
		return nil, err
	}

	done := make(chan struct{})
	defer close(done)
	conn := c.conn
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.SetDeadline(time.Now())
		case <-done:
		}
	}()

	deadline := time.Now().Add(c.timeout)
	if err := conn.SetWriteDeadline(deadline); err != nil {
		return nil, err
	}
	if _, err := conn.Write(buf); err != nil {
		return nil, err
	}

	if err := conn.SetReadDeadline(deadline); err != nil {
		return nil, err
	}
	var res base.Response
	if err := res.Unmarshal(c.br); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}

	return &Response{
		StatusCode:    int(res.StatusCode),
		StatusMessage: res.StatusMessage,
		Header:        res.Header,
		Body:          res.Body,
	}, nil
}

func normalizePath(path string) string {
	if path == "" || strings.HasPrefix(path, "/") {
		return path
	}
	return "/" + path
}
