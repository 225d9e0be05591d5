package vxi11

import (
	"errors"
	"fmt"
)

// Sentinel errors for conditions that never carry a VXI-11 error code.
var (
	ErrClosed        = errors.New("vxi11: session closed")
	ErrNotOpen       = errors.New("vxi11: session not open")
	ErrBufferFull    = errors.New("vxi11: read buffer full before END")
	ErrSRQNotEnabled = errors.New("vxi11: SRQ notification not enabled")
	ErrAborted       = errors.New("vxi11: operation aborted")
)

// deviceErrorNames maps the VXI-11 device error codes (§B.5.5, Table B.3)
// to their human-readable descriptions. Codes not present here are unknown
// to this revision of the protocol and are reported as such.
var deviceErrorNames = map[int32]string{
	0:  "no error",
	1:  "syntax error",
	3:  "device not accessible",
	4:  "invalid link identifier",
	5:  "parameter error",
	6:  "channel not established",
	8:  "operation not supported",
	9:  "out of resources",
	11: "device locked by another link",
	12: "no lock held by this link",
	15: "I/O timeout",
	17: "I/O error",
	21: "invalid address",
	23: "abort",
	29: "channel already established",
}

// Error reports a non-zero VXI-11 device error code returned by a CORE
// procedure call. It wraps the numeric code so callers can retrieve it with
// errors.As and compare the Code field against specific codes.
type Error struct {
	Code int32
	Proc string // the VXI-11 operation that returned this code, e.g. "device_write"
}

func (e *Error) Error() string {
	name, ok := deviceErrorNames[e.Code]
	if !ok {
		name = fmt.Sprintf("unknown server error %d", e.Code)
	}
	if e.Proc == "" {
		return fmt.Sprintf("vxi11: %s", name)
	}
	return fmt.Sprintf("vxi11: %s: %s", e.Proc, name)
}

// deviceError turns a non-zero VXI-11 error code into an *Error, or returns
// nil for code 0 ("no error").
func deviceError(proc string, code int32) error {
	if code == 0 {
		return nil
	}
	return &Error{Code: code, Proc: proc}
}
