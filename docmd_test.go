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

func startMockDocmdServer(t *testing.T, fn func(args deviceDocmdParms) deviceDocmdResp) *Session {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	srv := oncrpc.NewServer(uint32(coreProg), progVers, func(proc uint32, argBody []byte) (interface{}, error) {
		require.Equal(t, procDeviceDocmd, proc)
		var args deviceDocmdParms
		if _, err := xdr2.Unmarshal(bytes.NewReader(argBody), &args); err != nil {
			return nil, err
		}
		return fn(args), nil
	})
	go srv.ServeTCP(ln)

	core, err := oncrpc.Dial("tcp", ln.Addr().String(), coreProg, progVers, time.Second)
	require.NoError(t, err)
	s := &Session{config: *DefaultConfig(), core: core, lid: 3, maxRecv: 1024, open: true}
	s.srq.session = s
	return s
}

func TestSendCommand(t *testing.T) {
	var gotCmd int32
	var gotData []byte
	s := startMockDocmdServer(t, func(args deviceDocmdParms) deviceDocmdResp {
		gotCmd = args.Cmd
		gotData = args.DataIn
		return deviceDocmdResp{}
	})
	require.NoError(t, s.SendCommand([]byte{0x3F}))
	require.Equal(t, int32(docmdSendCommand), gotCmd)
	require.Equal(t, []byte{0x3F}, gotData)
}

func TestBusAddress(t *testing.T) {
	s := startMockDocmdServer(t, func(args deviceDocmdParms) deviceDocmdResp {
		require.Equal(t, int32(docmdBusAddress), args.Cmd)
		return deviceDocmdResp{DataOut: []byte{5, 0, 0, 0}}
	})
	addr, err := s.BusAddress()
	require.NoError(t, err)
	require.Equal(t, 5, addr)
}

func TestBusStatus(t *testing.T) {
	s := startMockDocmdServer(t, func(args deviceDocmdParms) deviceDocmdResp {
		require.Equal(t, int32(docmdBusStatus), args.Cmd)
		require.Equal(t, byte(BusStatusSRQ), args.DataIn[0])
		return deviceDocmdResp{DataOut: []byte{1, 0}}
	})
	v, err := s.BusStatus(BusStatusSRQ)
	require.NoError(t, err)
	require.Equal(t, 1, v)
}

func TestDocmdSurfacesDeviceError(t *testing.T) {
	s := startMockDocmdServer(t, func(args deviceDocmdParms) deviceDocmdResp {
		return deviceDocmdResp{Error: 8}
	})
	require.Error(t, s.IfcControl())
}
