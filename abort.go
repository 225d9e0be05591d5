package vxi11

import (
	"fmt"
	"net"

	"github.com/oss-instruments/govxi11/internal/oncrpc"
)

// Abort interrupts whatever CORE call is currently in flight on this
// Session by issuing device_abort on the ASYNC program (§4.5). It
// deliberately does not take coreMu: the whole point is to reach the
// instrument while another goroutine may be blocked holding it inside a
// slow device_write or device_read. The interrupted call returns with
// device error 23 ("abort").
//
// The ASYNC client is dialed lazily and cached: device_abort's destination
// port (abortPort) came back in create_link's reply, so unlike CORE there
// is no portmapper lookup involved.
func (s *Session) Abort() error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	s.abortMu.Lock()
	if s.abortC == nil {
		addr := net.JoinHostPort(s.hostIP.String(), fmt.Sprint(s.abortPort))
		c, err := oncrpc.Dial("tcp", addr, asyncProg, progVers, rpcTransportTimeout)
		if err != nil {
			s.abortMu.Unlock()
			return fmt.Errorf("vxi11: dial ASYNC: %w", err)
		}
		s.abortC = c
	}
	client := s.abortC
	s.abortMu.Unlock()

	var resp deviceErrorResp
	if err := client.Call(procDeviceAbort, s.lid, &resp); err != nil {
		return fmt.Errorf("vxi11: device_abort: %w", err)
	}
	return deviceError("device_abort", resp.Error)
}
