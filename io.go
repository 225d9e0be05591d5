package vxi11

import (
	"fmt"
	"time"
)

// Write sends data to the device, fragmenting it as necessary so no single
// device_write call exceeds the server-advertised maxRecvSize (§4.2). The
// final (or only) fragment carries the END indicator; the server may also
// accept a write in fewer bytes than requested, in which case the
// remainder is resent in a further call. An empty data succeeds without
// issuing any RPC.
func (s *Session) Write(data []byte) (int, error) {
	if err := s.checkOpen(); err != nil {
		return 0, err
	}
	if len(data) == 0 {
		return 0, nil
	}

	chunkMax := s.maxRecv
	if chunkMax == 0 {
		chunkMax = defaultFallbackMaxRecv
	}

	written := 0
	remaining := data
	for len(remaining) > 0 {
		n := len(remaining)
		if uint32(n) > chunkMax {
			n = int(chunkMax)
		}
		chunk := remaining[:n]

		flags := uint32(0)
		if n == len(remaining) {
			flags |= flagEndIndicator
		}

		args := deviceWriteParms{
			Lid:         s.lid,
			IOTimeout:   uint32(s.config.IOTimeout / time.Millisecond),
			LockTimeout: uint32(s.config.LockTimeout / time.Millisecond),
			Flags:       flags,
			Data:        chunk,
		}
		var resp deviceWriteResp
		coreMu.Lock()
		err := s.core.Call(procDeviceWrite, args, &resp)
		coreMu.Unlock()
		if err != nil {
			return written, fmt.Errorf("vxi11: device_write: %w", err)
		}
		if derr := deviceError("device_write", resp.Error); derr != nil {
			return written, derr
		}

		accepted := int(resp.Size)
		if accepted <= 0 {
			accepted = n
		}
		written += accepted
		remaining = remaining[accepted:]
	}
	return written, nil
}

// Read reads up to len(buf) bytes from the device, issuing as many
// device_read calls as needed until the server signals END, the
// configured termination character is seen, or buf fills up without
// either happening (ErrBufferFull, §4.3).
func (s *Session) Read(buf []byte) (int, error) {
	if err := s.checkOpen(); err != nil {
		return 0, err
	}
	if len(buf) == 0 {
		return 0, nil
	}

	flags := uint32(0)
	var termChar uint32
	if s.config.ReadTerminator != NoTerminator {
		flags |= flagTermCharSet
		termChar = uint32(s.config.ReadTerminator)
	}

	total := 0
	for total < len(buf) {
		args := deviceReadParms{
			Lid:         s.lid,
			RequestSize: uint32(len(buf) - total),
			IOTimeout:   uint32(s.config.IOTimeout / time.Millisecond),
			LockTimeout: uint32(s.config.LockTimeout / time.Millisecond),
			Flags:       flags,
			TermChar:    termChar,
		}
		var resp deviceReadResp
		coreMu.Lock()
		err := s.core.Call(procDeviceRead, args, &resp)
		coreMu.Unlock()
		if err != nil {
			return total, fmt.Errorf("vxi11: device_read: %w", err)
		}
		if derr := deviceError("device_read", resp.Error); derr != nil {
			return total, derr
		}

		n := copy(buf[total:], resp.Data)
		total += n

		if resp.Reason&(reasonEnd|reasonChr) != 0 {
			return total, nil
		}
		if total >= len(buf) {
			return total, ErrBufferFull
		}
	}
	return total, nil
}
