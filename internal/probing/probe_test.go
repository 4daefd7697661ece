package probing

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// listenTCP opens a loopback listener and returns its port.
func listenTCP(t *testing.T) (net.Listener, int) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	return ln, ln.Addr().(*net.TCPAddr).Port
}

func TestProbeTCPOpen(t *testing.T) {
	ln, port := listenTCP(t)
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	exec := &NetExecutor{Timeout: 2 * time.Second}
	res := exec.Probe(Request{Target: "127.0.0.1", Port: port, Protocol: ProtocolTCP}, "127.0.0.1")

	assert.Equal(t, StateOpen, res.State)
	assert.Equal(t, "127.0.0.1", res.ResolvedIP)
	assert.Equal(t, "127.0.0.1", res.SourceIP)
	assert.Equal(t, port, res.Port)
	assert.Empty(t, res.ErrorDetail)
	assert.GreaterOrEqual(t, res.LatencyMS, 0.0)
}

func TestProbeTCPClosed(t *testing.T) {
	// Grab a free port, then release it so the connect is actively refused.
	ln, port := listenTCP(t)
	require.NoError(t, ln.Close())

	exec := &NetExecutor{Timeout: 2 * time.Second}
	res := exec.Probe(Request{Target: "127.0.0.1", Port: port, Protocol: ProtocolTCP}, "127.0.0.1")

	assert.Equal(t, StateClosed, res.State)
	assert.Empty(t, res.ErrorDetail)
}

func TestProbeTCPFiltered(t *testing.T) {
	// TEST-NET-1 address (RFC 5737) drops SYNs with no response.
	if testing.Short() {
		t.Skip("skipping timeout probe in short mode")
	}

	exec := &NetExecutor{Timeout: 250 * time.Millisecond}
	res := exec.Probe(Request{Target: "192.0.2.1", Port: 81, Protocol: ProtocolTCP}, "192.0.2.1")

	// Depending on the route, the SYN either times out (filtered) or the
	// network stack rejects it outright (error). Both are valid terminal
	// states for an unroutable destination; never open or closed.
	assert.Contains(t, []State{StateFiltered, StateError}, res.State)
}

func TestProbeUDPOpen(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer pc.Close()
	port := pc.LocalAddr().(*net.UDPAddr).Port

	// Echo responder: one datagram in, same datagram back.
	go func() {
		buf := make([]byte, 64)
		n, addr, err := pc.ReadFrom(buf)
		if err != nil {
			return
		}
		_, _ = pc.WriteTo(buf[:n], addr)
	}()

	exec := &NetExecutor{Timeout: 2 * time.Second}
	res := exec.Probe(Request{Target: "127.0.0.1", Port: port, Protocol: ProtocolUDP}, "127.0.0.1")

	assert.Equal(t, StateOpen, res.State)
	assert.Equal(t, Protocol("udp"), res.Protocol)
	assert.Equal(t, "127.0.0.1", res.SourceIP)
}

func TestProbeUDPClosed(t *testing.T) {
	// Loopback delivers the ICMP port-unreachable for a closed UDP port as
	// ECONNREFUSED on the connected socket.
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	port := pc.LocalAddr().(*net.UDPAddr).Port
	require.NoError(t, pc.Close())

	exec := &NetExecutor{Timeout: 2 * time.Second}
	res := exec.Probe(Request{Target: "127.0.0.1", Port: port, Protocol: ProtocolUDP}, "127.0.0.1")

	assert.Equal(t, StateClosed, res.State)
}

func TestProbeUDPUnknown(t *testing.T) {
	// A bound socket that never answers gives the no-signal outcome: the
	// port is not closed, but without a response it cannot be called open.
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer pc.Close()
	port := pc.LocalAddr().(*net.UDPAddr).Port

	exec := &NetExecutor{Timeout: 300 * time.Millisecond}
	res := exec.Probe(Request{Target: "127.0.0.1", Port: port, Protocol: ProtocolUDP}, "127.0.0.1")

	assert.Equal(t, StateUnknown, res.State)
	assert.NotEmpty(t, res.ErrorDetail)
}

func TestProbeBindAddress(t *testing.T) {
	ln, port := listenTCP(t)
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		conn.Close()
	}()

	exec := &NetExecutor{Timeout: 2 * time.Second, BindAddress: "127.0.0.1"}
	res := exec.Probe(Request{Target: "127.0.0.1", Port: port, Protocol: ProtocolTCP}, "127.0.0.1")

	require.Equal(t, StateOpen, res.State)
	assert.Equal(t, "127.0.0.1", res.SourceIP)
}

func TestLocalIP(t *testing.T) {
	tests := []struct {
		name string
		addr net.Addr
		want string
	}{
		{
			name: "tcp addr",
			addr: &net.TCPAddr{IP: net.ParseIP("10.1.2.3"), Port: 44},
			want: "10.1.2.3",
		},
		{
			name: "udp addr",
			addr: &net.UDPAddr{IP: net.ParseIP("192.168.0.9"), Port: 9999},
			want: "192.168.0.9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, localIP(tt.addr))
		})
	}
}
