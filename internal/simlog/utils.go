package simlog

import (
	"errors"
	"fmt"
	"io"
	"net"
	"runtime"

	"github.com/crewjam/rfc5424"
	"github.com/shirou/gopsutil/host"
)

// KV builds a structured-data field. Non-string values are rendered with
// fmt's default formatting.
func KV(name string, value interface{}) (r rfc5424.SDParam) {
	r.Name = name
	switch v := value.(type) {
	case string:
		r.Value = v
	default:
		r.Value = fmt.Sprintf("%v", value)
	}
	return
}

// KVErr is shorthand for KV("error", err).
func KVErr(err error) rfc5424.SDParam {
	return KV("error", err)
}

// PrintOSInfo writes a one-line OS/kernel summary to wtr, logged once at
// supervisor startup to make field reports reproducible.
func PrintOSInfo(wtr io.Writer) {
	if platform, _, version, err := host.PlatformInformation(); err == nil {
		fmt.Fprintf(wtr, "OS:\t\t%s %s [%s] (%s %s)\n", runtime.GOOS, runtime.GOARCH, kernelVersion, platform, version)
	} else {
		fmt.Fprintf(wtr, "OS:\t\tERROR %v\n", err)
	}
}

// syslogRelay forwards every log entry to a remote syslog collector over
// UDP, for deployments that centralize logs outside the host. Configured
// via SIMU_SYSLOG_ADDR; absent that, the supervisor never constructs one.
type syslogRelay struct {
	conn net.PacketConn
	addr *net.UDPAddr
}

func (r *syslogRelay) Write(b []byte) (n int, err error) {
	if len(b) == 1 && b[0] == '\n' {
		return 1, nil
	}
	n, err = r.conn.WriteTo(b, r.addr)
	return
}

func (r *syslogRelay) Close() (err error) {
	if r == nil || r.conn == nil {
		return errors.New("not open")
	}
	return r.conn.Close()
}

// NewSyslogRelay resolves tgt and opens the UDP socket used to relay log
// lines to it.
func NewSyslogRelay(tgt string) (*syslogRelay, error) {
	addr, err := net.ResolveUDPAddr("udp", tgt)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenPacket("udp", ":0")
	if err != nil {
		return nil, err
	}
	return &syslogRelay{conn: conn, addr: addr}, nil
}

// NewSyslogLogger creates a logger whose only writer forwards to the
// remote syslog collector at tgt.
func NewSyslogLogger(tgt string) (*Logger, error) {
	relay, err := NewSyslogRelay(tgt)
	if err != nil {
		return nil, err
	}
	return New(relay), nil
}
