package probing

import (
	stderrors "errors"
	"net"
	"strconv"
	"syscall"
	"time"
)

// udpProbePayload is the minimal datagram sent to elicit either an
// application response or an ICMP port-unreachable indication.
var udpProbePayload = []byte("port-check\n")

const udpReadBufferSize = 1024

// Executor performs exactly one probe attempt for one Request. Implementations
// must open at most one socket and release it on every exit path.
type Executor interface {
	Probe(req Request, resolvedIP string) Result
}

// NetExecutor is the production Executor: TCP connect probes and best-effort
// UDP probes over the OS socket layer.
type NetExecutor struct {
	// Timeout bounds the whole attempt
	Timeout time.Duration
	// BindAddress optionally forces the local source address
	BindAddress string
}

// Probe executes one probe attempt and classifies its outcome. No retries:
// a single failed attempt directly yields a terminal state.
func (e *NetExecutor) Probe(req Request, resolvedIP string) Result {
	res := Result{
		Target:     req.Target,
		ResolvedIP: resolvedIP,
		Port:       req.Port,
		Protocol:   req.Protocol,
	}
	if e.BindAddress != "" {
		res.SourceIP = e.BindAddress
	}

	switch req.Protocol {
	case ProtocolUDP:
		e.probeUDP(&res)
	default:
		e.probeTCP(&res)
	}
	return res
}

// probeTCP attempts a connect handshake within the timeout.
//
// Handshake completed: open. Actively refused (RST): closed. Timeout with no
// response: filtered, the silently-dropped-SYN firewall signal. Anything
// else: error with the OS error text.
func (e *NetExecutor) probeTCP(res *Result) {
	dialer := net.Dialer{Timeout: e.Timeout}
	if e.BindAddress != "" {
		dialer.LocalAddr = &net.TCPAddr{IP: net.ParseIP(e.BindAddress)}
	}

	addr := net.JoinHostPort(res.ResolvedIP, strconv.Itoa(res.Port))
	start := time.Now()
	conn, err := dialer.Dial("tcp", addr)
	res.LatencyMS = msSince(start)

	if err == nil {
		res.SourceIP = localIP(conn.LocalAddr())
		_ = conn.Close()
		res.State = StateOpen
		return
	}

	switch {
	case isTimeout(err):
		res.State = StateFiltered
	case stderrors.Is(err, syscall.ECONNREFUSED):
		res.State = StateClosed
	default:
		res.State = StateError
		res.ErrorDetail = err.Error()
	}
}

// probeUDP sends one probe datagram and waits for a response or an ICMP
// port-unreachable indication within the timeout.
//
// Port unreachable: closed. Any datagram back: open. No signal at all:
// unknown, the protocol-inherent ambiguity between open and silently
// filtered. OS-level failure: error.
func (e *NetExecutor) probeUDP(res *Result) {
	dialer := net.Dialer{Timeout: e.Timeout}
	if e.BindAddress != "" {
		dialer.LocalAddr = &net.UDPAddr{IP: net.ParseIP(e.BindAddress)}
	}

	addr := net.JoinHostPort(res.ResolvedIP, strconv.Itoa(res.Port))
	start := time.Now()
	conn, err := dialer.Dial("udp", addr)
	if err != nil {
		res.LatencyMS = msSince(start)
		if stderrors.Is(err, syscall.ECONNREFUSED) {
			res.State = StateClosed
			return
		}
		res.State = StateError
		res.ErrorDetail = err.Error()
		return
	}
	defer conn.Close()
	res.SourceIP = localIP(conn.LocalAddr())

	if err := conn.SetDeadline(start.Add(e.Timeout)); err != nil {
		res.LatencyMS = msSince(start)
		res.State = StateError
		res.ErrorDetail = err.Error()
		return
	}

	if _, err := conn.Write(udpProbePayload); err != nil {
		res.LatencyMS = msSince(start)
		// A write error can already surface the ICMP unreachable from a
		// previous packet on connected UDP sockets.
		if stderrors.Is(err, syscall.ECONNREFUSED) {
			res.State = StateClosed
			return
		}
		res.State = StateError
		res.ErrorDetail = err.Error()
		return
	}

	buf := make([]byte, udpReadBufferSize)
	_, err = conn.Read(buf)
	res.LatencyMS = msSince(start)

	switch {
	case err == nil:
		res.State = StateOpen
	case stderrors.Is(err, syscall.ECONNREFUSED):
		res.State = StateClosed
	case isTimeout(err):
		res.State = StateUnknown
		res.ErrorDetail = "no datagram response or ICMP signal within timeout"
	default:
		res.State = StateError
		res.ErrorDetail = err.Error()
	}
}

// isTimeout reports whether err is a network timeout.
func isTimeout(err error) bool {
	var netErr net.Error
	return stderrors.As(err, &netErr) && netErr.Timeout()
}

// localIP extracts the IP portion of a socket's local address.
func localIP(addr net.Addr) string {
	switch a := addr.(type) {
	case *net.TCPAddr:
		return a.IP.String()
	case *net.UDPAddr:
		return a.IP.String()
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return ""
	}
	return host
}

// msSince returns wall time since start in milliseconds.
func msSince(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
