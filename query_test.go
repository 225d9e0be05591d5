package vxi11

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQueryTrimsTerminator(t *testing.T) {
	m := startMockCoreServer(t)
	defer m.ln.Close()

	var gotWrite string
	m.writeFn = func(args deviceWriteParms) deviceWriteResp {
		gotWrite = string(args.Data)
		return deviceWriteResp{Size: uint32(len(args.Data))}
	}
	m.readFn = func(args deviceReadParms) deviceReadResp {
		return deviceReadResp{Reason: reasonEnd, Data: []byte("42.5\r\n")}
	}

	s := m.dialSession(t)
	resp, err := s.Query("MEAS:VOLT?", 64)
	require.NoError(t, err)
	require.Equal(t, "MEAS:VOLT?", gotWrite)
	require.Equal(t, "42.5", resp)
}

func TestQueryFloat(t *testing.T) {
	m := startMockCoreServer(t)
	defer m.ln.Close()

	m.readFn = func(args deviceReadParms) deviceReadResp {
		return deviceReadResp{Reason: reasonEnd, Data: []byte(" -3.75 \n")}
	}

	s := m.dialSession(t)
	v, err := s.QueryFloat("MEAS:VOLT?", 64)
	require.NoError(t, err)
	require.InDelta(t, -3.75, v, 1e-9)
}

func TestQueryFloatParseError(t *testing.T) {
	m := startMockCoreServer(t)
	defer m.ln.Close()

	m.readFn = func(args deviceReadParms) deviceReadResp {
		return deviceReadResp{Reason: reasonEnd, Data: []byte("not-a-number")}
	}

	s := m.dialSession(t)
	_, err := s.QueryFloat("MEAS:VOLT?", 64)
	require.Error(t, err)
}

func TestQueryInt(t *testing.T) {
	m := startMockCoreServer(t)
	defer m.ln.Close()

	m.readFn = func(args deviceReadParms) deviceReadResp {
		return deviceReadResp{Reason: reasonEnd, Data: []byte("17\n")}
	}

	s := m.dialSession(t)
	v, err := s.QueryInt("*OPC?", 64)
	require.NoError(t, err)
	require.Equal(t, 17, v)
}

func TestQueryStringPropagatesWriteError(t *testing.T) {
	m := startMockCoreServer(t)
	defer m.ln.Close()

	m.writeFn = func(args deviceWriteParms) deviceWriteResp {
		return deviceWriteResp{Error: 17}
	}

	s := m.dialSession(t)
	_, err := s.QueryString("*IDN?", 64)
	require.Error(t, err)
}
