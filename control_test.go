package vxi11

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTriggerSuccess(t *testing.T) {
	m := startMockCoreServer(t)
	defer m.ln.Close()

	var seenProc uint32
	m.genericFn = func(proc uint32, args deviceGenericParms) deviceErrorResp {
		seenProc = proc
		return deviceErrorResp{}
	}

	s := m.dialSession(t)
	require.NoError(t, s.Trigger())
	require.Equal(t, procDeviceTrigger, seenProc)
}

func TestClearAndRemoteAndLocal(t *testing.T) {
	m := startMockCoreServer(t)
	defer m.ln.Close()

	var procs []uint32
	m.genericFn = func(proc uint32, args deviceGenericParms) deviceErrorResp {
		procs = append(procs, proc)
		return deviceErrorResp{}
	}

	s := m.dialSession(t)
	require.NoError(t, s.Clear())
	require.NoError(t, s.Remote())
	require.NoError(t, s.Local())
	require.Equal(t, []uint32{procDeviceClear, procDeviceRemote, procDeviceLocal}, procs)
}

func TestReadStatusByte(t *testing.T) {
	m := startMockCoreServer(t)
	defer m.ln.Close()

	m.stbFn = func(args deviceGenericParms) deviceReadStbResp {
		return deviceReadStbResp{Stb: 0x42}
	}

	s := m.dialSession(t)
	stb, err := s.ReadStatusByte()
	require.NoError(t, err)
	require.Equal(t, 0x42, stb)
}

func TestReadStatusByteErrorReturnsSentinel(t *testing.T) {
	m := startMockCoreServer(t)
	defer m.ln.Close()

	m.stbFn = func(args deviceGenericParms) deviceReadStbResp {
		return deviceReadStbResp{Error: 17}
	}

	s := m.dialSession(t)
	stb, err := s.ReadStatusByte()
	require.Error(t, err)
	require.Equal(t, -1, stb)
}

func TestLockWithWaitSetsFlag(t *testing.T) {
	m := startMockCoreServer(t)
	defer m.ln.Close()

	var gotFlags uint32
	m.lockFn = func(args deviceLockParms) deviceErrorResp {
		gotFlags = args.Flags
		return deviceErrorResp{}
	}

	s := m.dialSession(t)
	require.NoError(t, s.Lock(true))
	require.Equal(t, flagWaitLock, gotFlags)
}

func TestUnlockSurfacesNoLockHeld(t *testing.T) {
	m := startMockCoreServer(t)
	defer m.ln.Close()

	m.unlockFn = func(lid uint32) deviceErrorResp {
		return deviceErrorResp{Error: 12}
	}

	s := m.dialSession(t)
	err := s.Unlock()
	var verr *Error
	require.ErrorAs(t, err, &verr)
	require.Equal(t, int32(12), verr.Code)
}
