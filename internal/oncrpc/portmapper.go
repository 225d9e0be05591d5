package oncrpc

import (
	"net"
	"strconv"
	"time"
)

// Portmapper program/version/well-known port (RFC 1057 Appendix A).
const (
	PmapProg = 100000
	PmapVers = 2
	PmapPort = 111

	pmapProcGetPort uint32 = 3
	pmapProcUnset   uint32 = 2
)

// IP protocol numbers as carried in portmapper arguments.
const (
	IPProtoTCP uint32 = 6
	IPProtoUDP uint32 = 17
)

type pmapArgs struct {
	Prog  uint32
	Vers  uint32
	Proto uint32
	Port  uint32
}

// GetPort asks the portmapper at host for the port bound to (prog, vers,
// proto). It is the external collaborator create_link's TCP dial depends
// on: CORE is discovered this way at Open time.
func GetPort(host string, prog, vers, proto uint32, timeout time.Duration) (int, error) {
	c, err := Dial("tcp", net.JoinHostPort(host, strconv.Itoa(PmapPort)), PmapProg, PmapVers, timeout)
	if err != nil {
		return 0, err
	}
	defer c.Close()

	args := pmapArgs{Prog: prog, Vers: vers, Proto: proto}
	var port uint32
	if err := c.Call(pmapProcGetPort, args, &port); err != nil {
		return 0, err
	}
	return int(port), nil
}

// Unset clears any portmapper registration for (prog, vers). Used to scrub
// a stale INTR entry left behind by a prior, uncleanly-terminated process
// before this one creates its interrupt channel (create_intr_chan); the
// INTR service transports themselves are not registered with a portmapper.
func Unset(host string, prog, vers uint32, timeout time.Duration) error {
	c, err := Dial("tcp", net.JoinHostPort(host, strconv.Itoa(PmapPort)), PmapProg, PmapVers, timeout)
	if err != nil {
		return err
	}
	defer c.Close()

	args := pmapArgs{Prog: prog, Vers: vers}
	var ok uint32
	return c.Call(pmapProcUnset, args, &ok)
}
