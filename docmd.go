package vxi11

import (
	"encoding/binary"
	"fmt"
	"time"
)

// docmd issues device_docmd with the given command code and little-endian
// (network_order=false) input data, returning the raw output bytes
// (§4.7). It underlies every typed GPIB-gateway wrapper below.
func (s *Session) docmd(cmd uint32, dataIn []byte) ([]byte, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	args := deviceDocmdParms{
		Lid:          s.lid,
		Flags:        0,
		IOTimeout:    uint32(s.config.IOTimeout / time.Millisecond),
		LockTimeout:  uint32(s.config.LockTimeout / time.Millisecond),
		Cmd:          int32(cmd),
		NetworkOrder: xdrBool(false),
		Datasize:     int32(len(dataIn)),
		DataIn:       dataIn,
	}
	var resp deviceDocmdResp
	coreMu.Lock()
	err := s.core.Call(procDeviceDocmd, args, &resp)
	coreMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("vxi11: device_docmd: %w", err)
	}
	if derr := deviceError("device_docmd", resp.Error); derr != nil {
		return nil, derr
	}
	return resp.DataOut, nil
}

// SendCommand writes raw GPIB bus command bytes (docmd 0x20000).
func (s *Session) SendCommand(cmds []byte) error {
	_, err := s.docmd(docmdSendCommand, cmds)
	return err
}

// BusStatusKind selects which piece of GPIB bus state BusStatus reports.
type BusStatusKind int32

// Bus status queries recognized by docmd 0x20001.
const (
	BusStatusREN BusStatusKind = 1 + iota
	BusStatusSRQ
	BusStatusNDAC
	BusStatusSystemController
	BusStatusController
	BusStatusTalker
	BusStatusListener
	BusStatusBusAddress
)

// BusStatus queries a single bit (or address) of GPIB bus state (docmd
// 0x20001). The result is the 16-bit value the gateway returns, widened to
// int; both directions are little-endian, matching the network_order=false
// declared in docmd's parms (§4.7).
func (s *Session) BusStatus(kind BusStatusKind) (int, error) {
	in := make([]byte, 2)
	binary.LittleEndian.PutUint16(in, uint16(kind))
	out, err := s.docmd(docmdBusStatus, in)
	if err != nil {
		return 0, err
	}
	if len(out) < 2 {
		return 0, fmt.Errorf("vxi11: bus_status: short reply")
	}
	return int(int16(binary.LittleEndian.Uint16(out))), nil
}

// AtnControl asserts or releases the GPIB ATN line (docmd 0x20002).
func (s *Session) AtnControl(assert bool) error {
	_, err := s.docmd(docmdAtnControl, []byte{boolByte(assert), 0})
	return err
}

// RenControl asserts or releases the GPIB REN line (docmd 0x20003).
func (s *Session) RenControl(assert bool) error {
	_, err := s.docmd(docmdRenControl, []byte{boolByte(assert), 0})
	return err
}

// PassControl hands GPIB controller-in-charge status to the addressed
// talker/listener (docmd 0x20004).
func (s *Session) PassControl(address int) error {
	in := make([]byte, 4)
	binary.LittleEndian.PutUint32(in, uint32(address))
	_, err := s.docmd(docmdPassControl, in)
	return err
}

// BusAddress reads this link's GPIB primary address (docmd 0x2000A).
func (s *Session) BusAddress() (int, error) {
	out, err := s.docmd(docmdBusAddress, nil)
	if err != nil {
		return 0, err
	}
	if len(out) < 4 {
		return 0, fmt.Errorf("vxi11: bus_address: short reply")
	}
	return int(int32(binary.LittleEndian.Uint32(out))), nil
}

// IfcControl pulses the GPIB IFC line, resetting the bus to a known
// controller-in-charge state (docmd 0x20010).
func (s *Session) IfcControl() error {
	_, err := s.docmd(docmdIfcControl, nil)
	return err
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
