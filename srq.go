package vxi11

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"net"
	"sync"

	xdr2 "github.com/davecgh/go-xdr/xdr2"
	"github.com/google/uuid"

	"github.com/oss-instruments/govxi11/internal/oncrpc"
)

// srqState is the per-Session half of SRQ support: whether notification is
// currently enabled and the handle this session registered with the
// process-wide registry.
type srqState struct {
	session *Session

	mu       sync.Mutex
	isOn     bool
	handle   []byte
	callback func(sess *Session)
}

func (st *srqState) enabled() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.isOn
}

// srqRegistry is the process-wide INTR server: one TCP and one UDP
// listener shared by every Session that has SRQ enabled, since VXI-11
// expects exactly one interrupt channel per client process, not per link
// (§4.6).
type srqRegistry struct {
	mu       sync.Mutex
	started  bool
	tcpPort  int
	udpPort  int
	localTCP net.IP

	sessions map[string]*Session // string(handle) -> owning Session
}

var globalSRQ = &srqRegistry{sessions: make(map[string]*Session)}

func (r *srqRegistry) ensureStarted() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return nil
	}

	ln, err := net.Listen("tcp", ":0")
	if err != nil {
		return fmt.Errorf("vxi11: listen INTR/tcp: %w", err)
	}
	udpAddr, err := net.ResolveUDPAddr("udp", ":0")
	if err != nil {
		ln.Close()
		return fmt.Errorf("vxi11: resolve INTR/udp: %w", err)
	}
	udpConn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		ln.Close()
		return fmt.Errorf("vxi11: listen INTR/udp: %w", err)
	}

	srv := oncrpc.NewServer(intrProg, progVers, r.dispatch)
	go srv.ServeTCP(ln)
	go srv.ServeUDP(udpConn)

	r.tcpPort = ln.Addr().(*net.TCPAddr).Port
	r.udpPort = udpConn.LocalAddr().(*net.UDPAddr).Port
	r.localTCP = ln.Addr().(*net.TCPAddr).IP
	r.started = true
	return nil
}

// dispatch implements oncrpc.Handler for the INTR program: it accepts only
// device_intr_srq and routes it to the Session whose handle matches.
func (r *srqRegistry) dispatch(proc uint32, argBody []byte) (interface{}, error) {
	if proc != procDeviceIntrSRQ {
		return nil, oncrpc.ErrNoSuchProcedure
	}
	var args deviceSrqParms
	if _, err := xdr2.Unmarshal(bytes.NewReader(argBody), &args); err != nil {
		return nil, fmt.Errorf("vxi11: unmarshal device_intr_srq: %w", err)
	}

	r.mu.Lock()
	sess, ok := r.sessions[string(args.Handle)]
	r.mu.Unlock()
	if ok {
		sess.srq.mu.Lock()
		cb := sess.srq.callback
		sess.srq.mu.Unlock()
		if cb != nil {
			go cb(sess)
		}
	}
	return deviceErrorResp{Error: 0}, nil
}

func (r *srqRegistry) register(handle []byte, s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[string(handle)] = s
}

func (r *srqRegistry) unregister(handle []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, string(handle))
}

// SetSRQCallback installs the function invoked, on its own goroutine, when
// the instrument raises a service request. The callback receives the
// Session so it can call ReadStatusByte (or anything else) itself; govxi11
// does not read the status byte on the caller's behalf, since a failed
// readstb inside an automatic read would otherwise have nowhere to surface
// but silent drop. It does not itself enable notification; call
// EnableSRQ(true) after setting the callback.
func (s *Session) SetSRQCallback(cb func(sess *Session)) {
	s.srq.mu.Lock()
	defer s.srq.mu.Unlock()
	s.srq.callback = cb
}

// EnableSRQ toggles service-request notification for this session (§4.6).
// Enabling it starts the process-wide INTR server on first use, registers
// a fresh handle with it, and negotiates create_intr_chan followed by
// device_enable_srq. Disabling reverses the sequence.
func (s *Session) EnableSRQ(on bool) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	s.srq.mu.Lock()
	alreadyOn := s.srq.isOn
	s.srq.mu.Unlock()
	if on == alreadyOn {
		return nil
	}

	if on {
		if err := globalSRQ.ensureStarted(); err != nil {
			return err
		}
		handle := uuid.New()
		handleBytes := handle[:]
		if len(handleBytes) > srqHandleSize {
			handleBytes = handleBytes[:srqHandleSize]
		}

		// Clear any interrupt-channel registration left over from a
		// previous, uncleanly-terminated process before registering ours.
		_ = oncrpc.Unset(s.host, intrProg, progVers, rpcTransportTimeout)

		hostAddr := ipToUint32(globalSRQ.localTCP)
		if hostAddr == 0 {
			hostAddr = ipToUint32(s.core.LocalAddr().(*net.TCPAddr).IP)
		}

		chanArgs := deviceRemoteFunc{
			HostAddr:   hostAddr,
			HostPort:   uint32(globalSRQ.tcpPort),
			ProgNum:    uint32(intrProg),
			ProgVers:   progVers,
			ProgFamily: addrFamilyTCP,
		}
		var chanResp deviceErrorResp
		coreMu.Lock()
		err := s.core.Call(procCreateIntrChan, chanArgs, &chanResp)
		coreMu.Unlock()
		if err != nil {
			return fmt.Errorf("vxi11: create_intr_chan: %w", err)
		}
		if derr := deviceError("create_intr_chan", chanResp.Error); derr != nil {
			return derr
		}

		globalSRQ.register(handleBytes, s)

		enableArgs := deviceEnableSrqParms{Lid: s.lid, Enable: 1, Handle: handleBytes}
		var enableResp deviceErrorResp
		coreMu.Lock()
		err = s.core.Call(procDeviceEnableSR, enableArgs, &enableResp)
		coreMu.Unlock()
		if err != nil {
			globalSRQ.unregister(handleBytes)
			return fmt.Errorf("vxi11: device_enable_srq: %w", err)
		}
		if derr := deviceError("device_enable_srq", enableResp.Error); derr != nil {
			globalSRQ.unregister(handleBytes)
			return derr
		}

		s.srq.mu.Lock()
		s.srq.isOn = true
		s.srq.handle = handleBytes
		s.srq.mu.Unlock()
		return nil
	}

	s.srq.mu.Lock()
	handle := s.srq.handle
	s.srq.mu.Unlock()

	disableArgs := deviceEnableSrqParms{Lid: s.lid, Enable: 0, Handle: handle}
	var disableResp deviceErrorResp
	coreMu.Lock()
	err := s.core.Call(procDeviceEnableSR, disableArgs, &disableResp)
	coreMu.Unlock()

	var destroyResp deviceErrorResp
	coreMu.Lock()
	destroyErr := s.core.Call(procDestroyIntr, nil, &destroyResp)
	coreMu.Unlock()

	globalSRQ.unregister(handle)
	s.srq.mu.Lock()
	s.srq.isOn = false
	s.srq.handle = nil
	s.srq.mu.Unlock()

	if err != nil {
		return fmt.Errorf("vxi11: device_enable_srq: %w", err)
	}
	if derr := deviceError("device_enable_srq", disableResp.Error); derr != nil {
		return derr
	}
	if destroyErr != nil {
		return fmt.Errorf("vxi11: destroy_intr_chan: %w", destroyErr)
	}
	return deviceError("destroy_intr_chan", destroyResp.Error)
}

func ipToUint32(ip net.IP) uint32 {
	v4 := ip.To4()
	if v4 == nil {
		return 0
	}
	return binary.BigEndian.Uint32(v4)
}
