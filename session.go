package vxi11

import (
	"fmt"
	"log"
	"net"
	"os"
	"sync"
	"time"

	"github.com/oss-instruments/govxi11/internal/oncrpc"
)

// coreMu serializes every CORE procedure call across every open Session in
// this process. VXI-11 servers are typically single-threaded per device and
// get confused by interleaved requests from independent links; the only
// call allowed to bypass this lock is device_abort on the ASYNC program,
// since its entire purpose is to interrupt a thread that may be blocked
// holding coreMu (§4.5).
var coreMu sync.Mutex

// Config holds the tunables for opening a Session. The zero value is not
// usable; start from DefaultConfig.
type Config struct {
	// SubAddress names the logical device behind the host, e.g. "inst0"
	// (the default) or "gpib0,5" for a GPIB-to-LAN gateway address.
	SubAddress string

	// LockDevice requests an exclusive lock as part of create_link.
	LockDevice bool

	// IOTimeout bounds device_write/device_read/device_docmd waits
	// expressed to the server (default 10s).
	IOTimeout time.Duration

	// LockTimeout bounds how long device_lock and a locking create_link
	// wait for the device to become available (default 10s).
	LockTimeout time.Duration

	// ReadTerminator selects the termination byte device_read matches
	// against, or NoTerminator to rely solely on the instrument's END
	// indicator (default NoTerminator).
	ReadTerminator ReadTerminator

	// Logger receives diagnostic output; nil disables logging.
	Logger *log.Logger
}

// DefaultConfig returns a Config with the library's defaults, including a
// stderr Logger: diagnostic logging is on by default and togglable via
// SetLogEnabled (§6).
func DefaultConfig() *Config {
	return &Config{
		SubAddress:     defaultDevice,
		IOTimeout:      defaultIOTimeout,
		LockTimeout:    defaultLockTimeout,
		ReadTerminator: NoTerminator,
		Logger:         log.New(os.Stderr, "", log.LstdFlags),
	}
}

// Session is one VXI-11 link to a device. It is safe for concurrent use by
// multiple goroutines; Abort in particular is the mechanism for
// interrupting a goroutine blocked in another method on the same Session.
type Session struct {
	config Config

	host string
	core *oncrpc.Client

	mu      sync.Mutex
	open    bool
	lid     uint32
	hostIP  net.IP
	maxRecv uint32

	abortPort uint32
	abortMu   sync.Mutex
	abortC    *oncrpc.Client // lazily dialed, see abort.go

	srq srqState // see srq.go
}

// Open resolves host's CORE port via the portmapper, establishes the link
// (create_link) and returns a ready Session. host is a bare address or
// hostname, without a port; the CORE program's port is always discovered
// dynamically (§4.1 step 1-2).
func Open(host string, config *Config) (*Session, error) {
	if host == "" {
		return nil, fmt.Errorf("vxi11: empty address")
	}
	if config == nil {
		config = DefaultConfig()
	}
	cfg := *config
	if cfg.SubAddress == "" {
		cfg.SubAddress = defaultDevice
	}
	if cfg.IOTimeout <= 0 {
		cfg.IOTimeout = defaultIOTimeout
	}
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = defaultLockTimeout
	}
	port, err := oncrpc.GetPort(host, uint32(coreProg), progVers, oncrpc.IPProtoTCP, rpcTransportTimeout)
	if err != nil {
		return nil, fmt.Errorf("vxi11: resolve CORE port: %w", err)
	}

	core, err := oncrpc.Dial("tcp", net.JoinHostPort(host, fmt.Sprint(port)), coreProg, progVers, rpcTransportTimeout)
	if err != nil {
		return nil, fmt.Errorf("vxi11: dial CORE: %w", err)
	}

	s := &Session{config: cfg, host: host, core: core}

	ips, err := net.LookupIP(host)
	if err != nil || len(ips) == 0 {
		core.Close()
		return nil, fmt.Errorf("vxi11: resolve host address: %w", err)
	}
	s.hostIP = ips[0]

	args := createLinkParms{
		ClientID:    nextClientID(),
		LockDevice:  xdrBool(cfg.LockDevice),
		LockTimeout: uint32(cfg.LockTimeout / time.Millisecond),
		Device:      cfg.SubAddress,
	}

	var resp createLinkResp
	coreMu.Lock()
	err = core.Call(procCreateLink, args, &resp)
	coreMu.Unlock()
	if err != nil {
		core.Close()
		return nil, fmt.Errorf("vxi11: create_link: %w", err)
	}
	if derr := deviceError("create_link", resp.Error); derr != nil {
		core.Close()
		return nil, derr
	}

	s.lid = resp.Lid
	s.abortPort = resp.AbortPort
	s.maxRecv = resp.MaxRecvSize
	if s.maxRecv == 0 {
		s.maxRecv = defaultFallbackMaxRecv
	}
	s.open = true
	s.srq.session = s
	s.log("opened link %d to %s (%s), maxRecvSize=%d, abortPort=%d", s.lid, host, cfg.SubAddress, s.maxRecv, s.abortPort)
	return s, nil
}

// Close destroys the link and releases the CORE connection. It also tears
// down any enabled SRQ notification and the lazily-dialed ASYNC client.
func (s *Session) Close() error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if s.srq.enabled() {
		_ = s.EnableSRQ(false)
	}

	s.mu.Lock()
	if !s.open {
		s.mu.Unlock()
		return ErrClosed
	}
	s.open = false
	lid := s.lid
	s.mu.Unlock()

	s.abortMu.Lock()
	if s.abortC != nil {
		s.abortC.Close()
		s.abortC = nil
	}
	s.abortMu.Unlock()

	var resp deviceErrorResp
	coreMu.Lock()
	err := s.core.Call(procDestroyLink, lid, &resp)
	coreMu.Unlock()
	closeErr := s.core.Close()
	if err != nil {
		return fmt.Errorf("vxi11: destroy_link: %w", err)
	}
	if derr := deviceError("destroy_link", resp.Error); derr != nil {
		return derr
	}
	return closeErr
}

// checkOpen returns ErrClosed if the session has already been closed.
func (s *Session) checkOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return ErrClosed
	}
	return nil
}

// SetTimeout sets both IOTimeout and LockTimeout to d. Negative values are
// clamped to zero (§8 boundary: a zero timeout is a valid, if aggressive,
// request; a negative one is not meaningful at the wire level).
func (s *Session) SetTimeout(d time.Duration) {
	if d < 0 {
		d = 0
	}
	s.mu.Lock()
	s.config.IOTimeout = d
	s.config.LockTimeout = d
	s.mu.Unlock()
}

// SetReadTerminator changes which termination byte Read matches against,
// or NoTerminator to rely solely on the instrument's END indicator.
func (s *Session) SetReadTerminator(t ReadTerminator) {
	s.mu.Lock()
	s.config.ReadTerminator = t
	s.mu.Unlock()
}

// DeviceAddr returns the "host,device" address this session was opened
// against.
func (s *Session) DeviceAddr() string {
	return fmt.Sprintf("%s,%s", s.host, s.config.SubAddress)
}

// SetLogEnabled toggles diagnostic logging (on by default, §6). Passing
// false clears the logger; passing true restores stderr logging if none is
// currently configured (a prior SetLogEnabled(false), or a Config built
// without DefaultConfig).
func (s *Session) SetLogEnabled(on bool) {
	s.mu.Lock()
	if !on {
		s.config.Logger = nil
	} else if s.config.Logger == nil {
		s.config.Logger = log.New(os.Stderr, "", log.LstdFlags)
	}
	s.mu.Unlock()
}

func (s *Session) log(format string, args ...interface{}) {
	if s.config.Logger != nil {
		s.config.Logger.Printf("[vxi11] "+format, args...)
	}
}

var clientIDCounter uint32
var clientIDMu sync.Mutex

// nextClientID hands out small, process-unique identifiers for create_link's
// clientId field. The field only needs to disambiguate links from this
// process; it is not interpreted by the server.
func nextClientID() uint32 {
	clientIDMu.Lock()
	defer clientIDMu.Unlock()
	clientIDCounter++
	return clientIDCounter
}
