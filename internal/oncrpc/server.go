package oncrpc

import (
	"bytes"
	"fmt"
	"net"

	xdr2 "github.com/davecgh/go-xdr/xdr2"
)

// Handler decodes a call's argument bytes and returns the XDR-able result
// to send back, or an error. Returning ErrNoSuchProcedure causes the server
// to reply with accept_stat PROC_UNAVAIL instead of tearing down the
// connection — this is how the INTR demux rejects anything but
// device_intr_srq (§4.6).
type Handler func(proc uint32, argBody []byte) (result interface{}, err error)

// ErrNoSuchProcedure is returned by a Handler to signal PROC_UNAVAIL.
var ErrNoSuchProcedure = fmt.Errorf("oncrpc: no such procedure")

// Server answers ONC-RPC calls for one (prog, vers) over TCP and/or UDP.
// It is the embedded, process-wide counterpart used by the SRQ subsystem:
// the instrument plays RPC client against this server's INTR program.
type Server struct {
	prog, vers uint32
	handler    Handler
}

// NewServer creates a Server bound to (prog, vers), dispatching every call
// to handler.
func NewServer(prog, vers uint32, handler Handler) *Server {
	return &Server{prog: prog, vers: vers, handler: handler}
}

// ServeTCP accepts connections on ln until it is closed, handling each on
// its own goroutine. It returns once ln.Accept starts erroring (normally
// because the listener was closed during teardown).
func (s *Server) ServeTCP(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		go s.serveTCPConn(conn)
	}
}

func (s *Server) serveTCPConn(conn net.Conn) {
	defer conn.Close()
	for {
		payload, err := readRecord(conn)
		if err != nil {
			return
		}
		reply, err := s.handleCall(payload)
		if err != nil {
			return
		}
		if err := writeRecord(conn, reply); err != nil {
			return
		}
	}
}

// ServeUDP reads datagrams from conn until it is closed. Unlike TCP, each
// UDP datagram is a complete, unframed RPC message (no record marking).
func (s *Server) ServeUDP(conn *net.UDPConn) {
	buf := make([]byte, 65536)
	for {
		n, addr, err := conn.ReadFromUDP(buf)
		if err != nil {
			return
		}
		reply, err := s.handleCall(append([]byte(nil), buf[:n]...))
		if err != nil {
			continue
		}
		_, _ = conn.WriteToUDP(reply, addr)
	}
}

// handleCall decodes the call envelope, dispatches to the handler and
// marshals the accepted/rejected reply envelope.
func (s *Server) handleCall(payload []byte) ([]byte, error) {
	r := bytes.NewReader(payload)
	var ch callHeader
	n, err := xdr2.Unmarshal(r, &ch)
	if err != nil {
		return nil, fmt.Errorf("oncrpc: unmarshal call header: %w", err)
	}
	remaining := payload[n:]

	var acceptStat uint32 = acceptSuccess
	var result interface{}
	switch {
	case ch.Prog != s.prog:
		acceptStat = acceptProgUnavail
	case ch.Vers != s.vers:
		acceptStat = acceptProgMismatch
	default:
		res, herr := s.handler(ch.Proc, remaining)
		if herr == ErrNoSuchProcedure {
			acceptStat = acceptProcUnavail
		} else if herr != nil {
			acceptStat = acceptSystemErr
		} else {
			result = res
		}
	}

	var buf bytes.Buffer
	rh := replyHeader{
		Xid: ch.Xid, MsgType: msgTypeReply, Stat: replyAccepted,
		Verf: nullAuth, AcceptStat: acceptStat,
	}
	if _, err := xdr2.Marshal(&buf, rh); err != nil {
		return nil, fmt.Errorf("oncrpc: marshal reply header: %w", err)
	}
	if acceptStat == acceptSuccess && result != nil {
		if _, err := xdr2.Marshal(&buf, result); err != nil {
			return nil, fmt.Errorf("oncrpc: marshal reply body: %w", err)
		}
	}
	return buf.Bytes(), nil
}
