package vxi11

import (
	"bytes"
	"net"
	"testing"
	"time"

	xdr2 "github.com/davecgh/go-xdr/xdr2"
	"github.com/stretchr/testify/require"

	"github.com/oss-instruments/govxi11/internal/oncrpc"
)

// mockCoreServer starts an ONC-RPC server on coreProg/progVers and hands
// every device_write/device_read call to the supplied callbacks, letting
// tests script the server side of §8's end-to-end scenarios without a
// real instrument.
type mockCoreServer struct {
	ln        net.Listener
	writeFn   func(args deviceWriteParms) deviceWriteResp
	readFn    func(args deviceReadParms) deviceReadResp
	genericFn func(proc uint32, args deviceGenericParms) deviceErrorResp
	stbFn     func(args deviceGenericParms) deviceReadStbResp
	lockFn    func(args deviceLockParms) deviceErrorResp
	unlockFn  func(lid uint32) deviceErrorResp
}

func startMockCoreServer(t *testing.T) *mockCoreServer {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	m := &mockCoreServer{ln: ln}
	srv := oncrpc.NewServer(uint32(coreProg), progVers, func(proc uint32, argBody []byte) (interface{}, error) {
		switch proc {
		case procDeviceWrite:
			var args deviceWriteParms
			if _, err := xdr2.Unmarshal(bytes.NewReader(argBody), &args); err != nil {
				return nil, err
			}
			if m.writeFn == nil {
				return deviceWriteResp{Size: uint32(len(args.Data))}, nil
			}
			return m.writeFn(args), nil
		case procDeviceRead:
			var args deviceReadParms
			if _, err := xdr2.Unmarshal(bytes.NewReader(argBody), &args); err != nil {
				return nil, err
			}
			return m.readFn(args), nil
		case procDeviceTrigger, procDeviceClear, procDeviceRemote, procDeviceLocal:
			var args deviceGenericParms
			if _, err := xdr2.Unmarshal(bytes.NewReader(argBody), &args); err != nil {
				return nil, err
			}
			if m.genericFn == nil {
				return deviceErrorResp{}, nil
			}
			return m.genericFn(proc, args), nil
		case procDeviceReadStb:
			var args deviceGenericParms
			if _, err := xdr2.Unmarshal(bytes.NewReader(argBody), &args); err != nil {
				return nil, err
			}
			if m.stbFn == nil {
				return deviceReadStbResp{}, nil
			}
			return m.stbFn(args), nil
		case procDeviceLock:
			var args deviceLockParms
			if _, err := xdr2.Unmarshal(bytes.NewReader(argBody), &args); err != nil {
				return nil, err
			}
			if m.lockFn == nil {
				return deviceErrorResp{}, nil
			}
			return m.lockFn(args), nil
		case procDeviceUnlock:
			var lid uint32
			if _, err := xdr2.Unmarshal(bytes.NewReader(argBody), &lid); err != nil {
				return nil, err
			}
			if m.unlockFn == nil {
				return deviceErrorResp{}, nil
			}
			return m.unlockFn(lid), nil
		default:
			return deviceErrorResp{}, nil
		}
	})
	go srv.ServeTCP(ln)
	return m
}

func (m *mockCoreServer) dialSession(t *testing.T) *Session {
	core, err := oncrpc.Dial("tcp", m.ln.Addr().String(), coreProg, progVers, time.Second)
	require.NoError(t, err)
	s := &Session{config: *DefaultConfig(), core: core, lid: 1, maxRecv: 16, open: true}
	s.srq.session = s
	return s
}

func TestWriteSingleChunk(t *testing.T) {
	m := startMockCoreServer(t)
	defer m.ln.Close()

	var gotFlags uint32
	m.writeFn = func(args deviceWriteParms) deviceWriteResp {
		gotFlags = args.Flags
		return deviceWriteResp{Size: uint32(len(args.Data))}
	}

	s := m.dialSession(t)
	s.maxRecv = 1024
	n, err := s.Write([]byte("*IDN?"))
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, flagEndIndicator, gotFlags)
}

func TestWriteFragmentsAgainstMaxRecv(t *testing.T) {
	m := startMockCoreServer(t)
	defer m.ln.Close()

	var sizes []int
	var flags []uint32
	m.writeFn = func(args deviceWriteParms) deviceWriteResp {
		sizes = append(sizes, len(args.Data))
		flags = append(flags, args.Flags)
		return deviceWriteResp{Size: uint32(len(args.Data))}
	}

	s := m.dialSession(t)
	s.maxRecv = 16
	payload := bytes.Repeat([]byte{'x'}, 40)
	n, err := s.Write(payload)
	require.NoError(t, err)
	require.Equal(t, 40, n)
	require.Equal(t, []int{16, 16, 8}, sizes)
	require.Equal(t, []uint32{0, 0, flagEndIndicator}, flags)
}

func TestWriteEmptyPayloadIssuesNoRPC(t *testing.T) {
	m := startMockCoreServer(t)
	defer m.ln.Close()

	calls := 0
	m.writeFn = func(args deviceWriteParms) deviceWriteResp {
		calls++
		return deviceWriteResp{Size: 0}
	}

	s := m.dialSession(t)
	n, err := s.Write(nil)
	require.NoError(t, err)
	require.Equal(t, 0, n)
	require.Equal(t, 0, calls)
}

func TestReadStopsOnEnd(t *testing.T) {
	m := startMockCoreServer(t)
	defer m.ln.Close()

	calls := 0
	m.readFn = func(args deviceReadParms) deviceReadResp {
		calls++
		return deviceReadResp{Reason: reasonEnd, Data: []byte("KEITHLEY,DMM6500")}
	}

	s := m.dialSession(t)
	buf := make([]byte, 1000)
	n, err := s.Read(buf)
	require.NoError(t, err)
	require.Equal(t, "KEITHLEY,DMM6500", string(buf[:n]))
	require.Equal(t, 1, calls)
}

func TestReadStopsOnTerminator(t *testing.T) {
	m := startMockCoreServer(t)
	defer m.ln.Close()

	var gotFlags uint32
	var gotTerm uint32
	m.readFn = func(args deviceReadParms) deviceReadResp {
		gotFlags = args.Flags
		gotTerm = args.TermChar
		return deviceReadResp{Reason: reasonChr, Data: []byte("hello\n")}
	}

	s := m.dialSession(t)
	s.config.ReadTerminator = ReadTerminator('\n')
	buf := make([]byte, 100)
	n, err := s.Read(buf)
	require.NoError(t, err)
	require.Equal(t, "hello\n", string(buf[:n]))
	require.Equal(t, flagTermCharSet, gotFlags)
	require.Equal(t, uint32('\n'), gotTerm)
}

func TestReadBufferFullBeforeEnd(t *testing.T) {
	m := startMockCoreServer(t)
	defer m.ln.Close()

	calls := 0
	m.readFn = func(args deviceReadParms) deviceReadResp {
		calls++
		return deviceReadResp{Reason: 0, Data: bytes.Repeat([]byte{'a'}, int(args.RequestSize))}
	}

	s := m.dialSession(t)
	buf := make([]byte, 8)
	_, err := s.Read(buf)
	require.ErrorIs(t, err, ErrBufferFull)
	require.Equal(t, 1, calls)
}

func TestReadSurfacesDeviceError(t *testing.T) {
	m := startMockCoreServer(t)
	defer m.ln.Close()

	m.readFn = func(args deviceReadParms) deviceReadResp {
		return deviceReadResp{Error: 15}
	}

	s := m.dialSession(t)
	buf := make([]byte, 8)
	_, err := s.Read(buf)
	var verr *Error
	require.ErrorAs(t, err, &verr)
	require.Equal(t, int32(15), verr.Code)
}
