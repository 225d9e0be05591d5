package oncrpc

import (
	"bytes"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	xdr2 "github.com/davecgh/go-xdr/xdr2"
)

// Client is a synchronous ONC-RPC client bound to one program/version over
// one TCP connection. It is the external collaborator the VXI-11 session
// layer uses for the CORE and ASYNC programs: it owns the socket, frames
// calls with record marking, and decodes the generic reply envelope before
// handing the remaining bytes to the caller for VXI-11-specific decoding.
type Client struct {
	conn net.Conn
	prog uint32
	vers uint32
	xid  uint32

	mu      sync.Mutex
	timeout time.Duration
}

// Dial opens a TCP connection to address and returns a Client bound to
// (prog, vers). No portmapper lookup happens here; callers that need one
// should resolve the port first (see GetPort) and dial the resolved address.
func Dial(network, address string, prog, vers uint32, timeout time.Duration) (*Client, error) {
	d := net.Dialer{Timeout: timeout}
	conn, err := d.Dial(network, address)
	if err != nil {
		return nil, fmt.Errorf("oncrpc: dial %s: %w", address, err)
	}
	return NewClient(conn, prog, vers), nil
}

// NewClient wraps an already-connected net.Conn.
func NewClient(conn net.Conn, prog, vers uint32) *Client {
	return &Client{conn: conn, prog: prog, vers: vers, timeout: 120 * time.Second}
}

// SetTimeout overrides the per-call deadline applied to the underlying
// connection. VXI-11 pins this at 120s regardless of the protocol-level
// io_timeout so that slow instruments don't trip the transport (§4.1).
func (c *Client) SetTimeout(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timeout = d
}

// LocalAddr exposes the client-side address of the connection, used to
// populate create_intr_chan's hostAddr when enabling SRQ (§4.6).
func (c *Client) LocalAddr() net.Addr { return c.conn.LocalAddr() }

// Close tears down the underlying connection.
func (c *Client) Close() error { return c.conn.Close() }

// Call marshals args (nil for no-argument procedures), issues proc against
// the bound program/version, waits for the reply and unmarshals its result
// body into reply (nil to discard it). It returns a non-nil error only for
// transport or RPC-envelope failures; VXI-11-level error codes travel inside
// the successfully-decoded reply and are the caller's responsibility.
func (c *Client) Call(proc uint32, args, reply interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	xid := atomic.AddUint32(&c.xid, 1)
	body, err := marshalCall(xid, c.prog, c.vers, proc, args)
	if err != nil {
		return err
	}

	if c.timeout > 0 {
		if err := c.conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
			return fmt.Errorf("oncrpc: set deadline: %w", err)
		}
		defer c.conn.SetDeadline(time.Time{})
	}

	if err := writeRecord(c.conn, body); err != nil {
		return err
	}

	payload, err := readRecord(c.conn)
	if err != nil {
		return fmt.Errorf("oncrpc: read reply: %w", err)
	}

	r := bytes.NewReader(payload)
	var rh replyHeader
	if _, err := xdr2.Unmarshal(r, &rh); err != nil {
		return fmt.Errorf("oncrpc: unmarshal reply header: %w", err)
	}
	if rh.Xid != xid {
		return fmt.Errorf("oncrpc: xid mismatch: got %d want %d", rh.Xid, xid)
	}
	if rh.Stat != replyAccepted {
		return fmt.Errorf("oncrpc: call denied by server")
	}
	switch rh.AcceptStat {
	case acceptSuccess:
	case acceptProgUnavail:
		return fmt.Errorf("oncrpc: program %d unavailable", c.prog)
	case acceptProgMismatch:
		return fmt.Errorf("oncrpc: program %d version mismatch", c.prog)
	case acceptProcUnavail:
		return fmt.Errorf("oncrpc: procedure %d unavailable", proc)
	case acceptGarbageArgs:
		return fmt.Errorf("oncrpc: garbage arguments for procedure %d", proc)
	default:
		return fmt.Errorf("oncrpc: accept status %d", rh.AcceptStat)
	}

	if reply != nil {
		if _, err := xdr2.Unmarshal(r, reply); err != nil {
			return fmt.Errorf("oncrpc: unmarshal reply body: %w", err)
		}
	}
	return nil
}
