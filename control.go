package vxi11

import (
	"fmt"
	"time"
)

func (s *Session) genericParms(flags uint32) deviceGenericParms {
	return deviceGenericParms{
		Lid:         s.lid,
		Flags:       flags,
		IOTimeout:   uint32(s.config.IOTimeout / time.Millisecond),
		LockTimeout: uint32(s.config.LockTimeout / time.Millisecond),
	}
}

func (s *Session) genericCall(proc uint32, name string, flags uint32) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	var resp deviceErrorResp
	coreMu.Lock()
	err := s.core.Call(proc, s.genericParms(flags), &resp)
	coreMu.Unlock()
	if err != nil {
		return fmt.Errorf("vxi11: %s: %w", name, err)
	}
	return deviceError(name, resp.Error)
}

// Trigger issues a device trigger (device_trigger, §4.4).
func (s *Session) Trigger() error {
	return s.genericCall(procDeviceTrigger, "device_trigger", 0)
}

// Clear issues a device clear (device_clear, §4.4).
func (s *Session) Clear() error {
	return s.genericCall(procDeviceClear, "device_clear", 0)
}

// Remote places the device in remote-control mode (device_remote, §4.4).
func (s *Session) Remote() error {
	return s.genericCall(procDeviceRemote, "device_remote", 0)
}

// Local returns the device to local (front-panel) control (device_local,
// §4.4).
func (s *Session) Local() error {
	return s.genericCall(procDeviceLocal, "device_local", 0)
}

// Lock acquires an exclusive lock on the device, waiting up to the
// session's LockTimeout if wait is true and the lock is currently held by
// another link (device_lock, §4.4).
func (s *Session) Lock(wait bool) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	flags := uint32(0)
	if wait {
		flags |= flagWaitLock
	}
	args := deviceLockParms{
		Lid:         s.lid,
		Flags:       flags,
		LockTimeout: uint32(s.config.LockTimeout / time.Millisecond),
	}
	var resp deviceErrorResp
	coreMu.Lock()
	err := s.core.Call(procDeviceLock, args, &resp)
	coreMu.Unlock()
	if err != nil {
		return fmt.Errorf("vxi11: device_lock: %w", err)
	}
	return deviceError("device_lock", resp.Error)
}

// Unlock releases a lock previously acquired with Lock (device_unlock,
// §4.4).
func (s *Session) Unlock() error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	var resp deviceErrorResp
	coreMu.Lock()
	err := s.core.Call(procDeviceUnlock, s.lid, &resp)
	coreMu.Unlock()
	if err != nil {
		return fmt.Errorf("vxi11: device_unlock: %w", err)
	}
	return deviceError("device_unlock", resp.Error)
}

// ReadStatusByte reads the device's IEEE-488 status byte (device_readstb,
// §4.4). It returns -1 alongside the error on failure.
func (s *Session) ReadStatusByte() (int, error) {
	if err := s.checkOpen(); err != nil {
		return -1, err
	}
	var resp deviceReadStbResp
	coreMu.Lock()
	err := s.core.Call(procDeviceReadStb, s.genericParms(0), &resp)
	coreMu.Unlock()
	if err != nil {
		return -1, fmt.Errorf("vxi11: device_readstb: %w", err)
	}
	if derr := deviceError("device_readstb", resp.Error); derr != nil {
		return -1, derr
	}
	return int(resp.Stb), nil
}
