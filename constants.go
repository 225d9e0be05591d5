// Package vxi11 implements a VXI-11.1 client for controlling LAN-attached
// test and measurement instruments over TCP/IP: opening a link, writing
// and reading SCPI/raw data, the control operations (trigger, clear,
// remote/local, lock/unlock), abort, service-request (SRQ) notification,
// and the GPIB-gateway docmd commands.
package vxi11

import "time"

// ONC-RPC program numbers and version (VXI-11.1 §B.5).
const (
	coreProg  uint32 = 0x0607AF
	asyncProg uint32 = 0x0607B0
	intrProg  uint32 = 0x0607B1
	progVers  uint32 = 1
)

// CORE procedure numbers.
const (
	procCreateLink     uint32 = 10
	procDeviceWrite    uint32 = 11
	procDeviceRead     uint32 = 12
	procDeviceReadStb  uint32 = 13
	procDeviceTrigger  uint32 = 14
	procDeviceClear    uint32 = 15
	procDeviceRemote   uint32 = 16
	procDeviceLocal    uint32 = 17
	procDeviceLock     uint32 = 18
	procDeviceUnlock   uint32 = 19
	procDeviceEnableSR uint32 = 20
	procDeviceDocmd    uint32 = 22
	procDestroyLink    uint32 = 23
	procCreateIntrChan uint32 = 25
	procDestroyIntr    uint32 = 26
)

// ASYNC procedure numbers.
const procDeviceAbort uint32 = 1

// INTR procedure numbers.
const procDeviceIntrSRQ uint32 = 30

// Device_Flags bits, shared across device_write/read/lock/docmd (Table B.2).
const (
	flagWaitLock     uint32 = 1   // bit 0: wait up to lock_timeout for the lock
	flagEndIndicator uint32 = 8   // bit 3: this is the last fragment of a write
	flagTermCharSet  uint32 = 128 // bit 7: termChar is significant for this read
)

// Device_Read reason bits (§B.5.3).
const (
	reasonRequestCountLost uint32 = 1 << iota // never set by a compliant server, kept for completeness
	reasonChr                                 // bit 1: termination character seen
	reasonEnd                                 // bit 2: END indicator seen
)

// Docmd command codes (the GPIB-gateway façade, §B.5.6).
const (
	docmdSendCommand uint32 = 0x20000
	docmdBusStatus   uint32 = 0x20001
	docmdAtnControl  uint32 = 0x20002
	docmdRenControl  uint32 = 0x20003
	docmdPassControl uint32 = 0x20004
	docmdBusAddress  uint32 = 0x2000A
	docmdIfcControl  uint32 = 0x20010
)

// Defaults.
const (
	defaultDevice         = "inst0"
	defaultIOTimeout      = 10 * time.Second
	defaultLockTimeout    = 10 * time.Second
	defaultFallbackMaxRecv uint32 = 1024
	// rpcTransportTimeout is the deadline placed on every ONC-RPC call
	// regardless of the caller's io_timeout/lock_timeout: those are
	// protocol-level fields carried inside the RPC body, not the socket
	// deadline, and a slow-but-compliant instrument must not trip the
	// transport just because it asked for a long operation timeout.
	rpcTransportTimeout = 120 * time.Second
	srqHandleSize        = 40
)

// ReadTerminator selects how device_read recognizes end-of-message: either
// NoTerminator (rely solely on the instrument's own END indicator) or a
// specific termination byte (0..127).
type ReadTerminator int

// NoTerminator disables termination-character matching.
const NoTerminator ReadTerminator = -1
