// Package oncrpc is a small ONC-RPC v2 (RFC 1057/5531) client and server
// sufficient to drive the VXI-11 CORE, ASYNC and INTR programs: TCP record
// marking, the call/reply message headers, and a generic procedure dispatch
// loop. It delegates the actual primitive encoding (integers, opaques,
// strings) to go-xdr so this package only has to know about record framing
// and the RPC envelope, not XDR itself.
package oncrpc

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	xdr2 "github.com/davecgh/go-xdr/xdr2"
)

// Message types (RFC 1057 §9).
const (
	msgTypeCall  uint32 = 0
	msgTypeReply uint32 = 1
)

// Reply status.
const (
	replyAccepted uint32 = 0
	replyDenied   uint32 = 1
)

// Accept status (RFC 1057 §9, accept_stat).
const (
	acceptSuccess      uint32 = 0
	acceptProgUnavail  uint32 = 1
	acceptProgMismatch uint32 = 2
	acceptProcUnavail  uint32 = 3
	acceptGarbageArgs  uint32 = 4
	acceptSystemErr    uint32 = 5
)

// AcceptProcUnavail is the PROC_UNAVAIL accept_stat value. A Handler does
// not return it directly: it returns ErrNoSuchProcedure, which the Server
// turns into this status (used by the INTR demux, see §4.6).
const AcceptProcUnavail = acceptProcUnavail

// RPC authentication flavor. govxi11 never needs credentials beyond
// AUTH_NONE; every VXI-11 server accepts anonymous callers.
const authNone uint32 = 0

// opaqueAuth is the cred/verf field of every call and reply.
type opaqueAuth struct {
	Flavor uint32
	Body   []byte
}

var nullAuth = opaqueAuth{Flavor: authNone}

type callHeader struct {
	Xid        uint32
	MsgType    uint32
	RPCVersion uint32
	Prog       uint32
	Vers       uint32
	Proc       uint32
	Cred       opaqueAuth
	Verf       opaqueAuth
}

type replyHeader struct {
	Xid        uint32
	MsgType    uint32
	Stat       uint32
	Verf       opaqueAuth
	AcceptStat uint32
}

// writeRecord frames payload as a single-fragment ONC-RPC record (the
// top bit of the 4-byte length prefix marks the last, and here only,
// fragment) and writes it to w.
func writeRecord(w io.Writer, payload []byte) error {
	var prefix [4]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(len(payload))|0x80000000)
	if _, err := w.Write(prefix[:]); err != nil {
		return fmt.Errorf("oncrpc: write record header: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("oncrpc: write record payload: %w", err)
	}
	return nil
}

// readRecord reassembles a full ONC-RPC record from one or more fragments.
func readRecord(r io.Reader) ([]byte, error) {
	var out bytes.Buffer
	for {
		var prefix [4]byte
		if _, err := io.ReadFull(r, prefix[:]); err != nil {
			return nil, err
		}
		h := binary.BigEndian.Uint32(prefix[:])
		last := h&0x80000000 != 0
		n := int64(h &^ 0x80000000)
		if _, err := io.CopyN(&out, r, n); err != nil {
			return nil, fmt.Errorf("oncrpc: read record fragment: %w", err)
		}
		if last {
			return out.Bytes(), nil
		}
	}
}

// marshalCall encodes the call header followed by the already-XDR-able
// args value (nil is allowed for procedures with no arguments).
func marshalCall(xid, prog, vers, proc uint32, args interface{}) ([]byte, error) {
	var buf bytes.Buffer
	hdr := callHeader{
		Xid: xid, MsgType: msgTypeCall, RPCVersion: 2,
		Prog: prog, Vers: vers, Proc: proc,
		Cred: nullAuth, Verf: nullAuth,
	}
	if _, err := xdr2.Marshal(&buf, hdr); err != nil {
		return nil, fmt.Errorf("oncrpc: marshal call header: %w", err)
	}
	if args != nil {
		if _, err := xdr2.Marshal(&buf, args); err != nil {
			return nil, fmt.Errorf("oncrpc: marshal call args: %w", err)
		}
	}
	return buf.Bytes(), nil
}
