package vxi11

// The structures below mirror the XDR message types defined by the VXI-11.1
// specification (VXIbus Consortium, Rev 1.0). Field order matters: it is
// the wire order, and govxi11 leans on go-xdr's reflection-based encoder to
// turn these Go structs directly into (and out of) the CORE/ASYNC/INTR
// RPC bodies rather than hand-rolling a codec for each one.

// deviceAddrFamily selects the transport create_intr_chan registers against.
type deviceAddrFamily uint32

const (
	addrFamilyTCP deviceAddrFamily = 0
	addrFamilyUDP deviceAddrFamily = 1
)

// createLinkParms is the argument to create_link (proc 10).
type createLinkParms struct {
	ClientID    uint32
	LockDevice  uint32 // XDR bool: 0/1
	LockTimeout uint32 // ms
	Device      string
}

// createLinkResp is create_link's reply. It is decoded into a value owned
// by the caller, so later RPC calls on the same client do not disturb it;
// Open copies lid, abortPort and maxRecvSize into the Session.
type createLinkResp struct {
	Error       int32
	Lid         uint32
	AbortPort   uint32
	MaxRecvSize uint32
}

// deviceWriteParms is the argument to device_write (proc 11).
type deviceWriteParms struct {
	Lid         uint32
	IOTimeout   uint32
	LockTimeout uint32
	Flags       uint32
	Data        []byte
}

type deviceWriteResp struct {
	Error int32
	Size  uint32
}

// deviceReadParms is the argument to device_read (proc 12).
type deviceReadParms struct {
	Lid         uint32
	RequestSize uint32
	IOTimeout   uint32
	LockTimeout uint32
	Flags       uint32
	TermChar    uint32
}

type deviceReadResp struct {
	Error  int32
	Reason uint32
	Data   []byte
}

// deviceGenericParms covers device_trigger/clear/remote/local and the
// common prefix of device_lock and readstb (procs 13-17).
type deviceGenericParms struct {
	Lid         uint32
	Flags       uint32
	IOTimeout   uint32
	LockTimeout uint32
}

type deviceReadStbResp struct {
	Error int32
	Stb   uint32
}

// deviceLockParms is the argument to device_lock (proc 18).
type deviceLockParms struct {
	Lid         uint32
	Flags       uint32
	LockTimeout uint32
}

// deviceErrorResp is the generic error-only reply shared by destroy_link,
// device_unlock, device_enable_srq and destroy_intr_chan.
type deviceErrorResp struct {
	Error int32
}

// deviceEnableSrqParms is the argument to device_enable_srq (proc 20).
type deviceEnableSrqParms struct {
	Lid    uint32
	Enable uint32 // XDR bool
	Handle []byte
}

// deviceDocmdParms is the argument to device_docmd (proc 22).
type deviceDocmdParms struct {
	Lid          uint32
	Flags        uint32
	IOTimeout    uint32
	LockTimeout  uint32
	Cmd          int32
	NetworkOrder uint32 // XDR bool
	Datasize     int32
	DataIn       []byte
}

type deviceDocmdResp struct {
	Error   int32
	DataOut []byte
}

// deviceRemoteFunc is the argument to create_intr_chan (proc 25): it tells
// the instrument where to find our embedded INTR service.
type deviceRemoteFunc struct {
	HostAddr   uint32
	HostPort   uint32
	ProgNum    uint32
	ProgVers   uint32
	ProgFamily deviceAddrFamily
}

// deviceSrqParms is device_intr_srq's argument, sent to us by the
// instrument over the INTR program (proc 30).
type deviceSrqParms struct {
	Handle []byte
}

func xdrBool(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
