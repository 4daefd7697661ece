// Package probing provides the core port reachability engine for fwprobe.
// It expands target and port specifications into a work unit set, dispatches
// probe attempts under a bounded concurrency limit, classifies each outcome
// into a closed state set and aggregates the results into a deterministic,
// order-stable report.
package probing

import (
	"fmt"
	"time"

	"github.com/fwprobe/fwprobe/internal/errors"
)

// Protocol is the transport protocol of a probe.
type Protocol string

const (
	ProtocolTCP Protocol = "tcp"
	ProtocolUDP Protocol = "udp"
)

// State is the terminal classification of one probe attempt.
type State string

const (
	// StateOpen means the handshake completed (TCP) or a datagram response
	// was received (UDP).
	StateOpen State = "open"
	// StateClosed means the remote actively refused (TCP RST, or an ICMP
	// port-unreachable for UDP).
	StateClosed State = "closed"
	// StateFiltered means the TCP handshake timed out with no response,
	// the dominant silently-dropped-SYN firewall signal.
	StateFiltered State = "filtered"
	// StateUnknown is the UDP no-signal outcome: open and silently filtered
	// ports are indistinguishable without an application-level response.
	StateUnknown State = "unknown"
	// StateError means the attempt failed with an OS-level error before a
	// reachability verdict was possible.
	StateError State = "error"
)

// States lists all terminal states in summary order.
var States = []State{StateOpen, StateClosed, StateFiltered, StateUnknown, StateError}

// Request is one immutable unit of probing work: a (target, port, protocol)
// tuple produced by the work unit generator.
type Request struct {
	// Target is the host exactly as given (IP or hostname)
	Target string
	// Port is the destination port, 1-65535
	Port int
	// Protocol is the transport to probe
	Protocol Protocol
}

// String renders the request in target:port/proto form.
func (r Request) String() string {
	return fmt.Sprintf("%s:%d/%s", r.Target, r.Port, r.Protocol)
}

// Result is the outcome of exactly one Request. Field names form the stable
// report schema consumed by downstream automation; serializers must not drop
// or rename them.
type Result struct {
	// Target is the host as given on input
	Target string `json:"target"`
	// ResolvedIP is the address probed; empty only when resolution failed
	ResolvedIP string `json:"resolved_ip"`
	// SourceIP is the local address the probe originated from, if determinable
	SourceIP string `json:"source_ip"`
	// Port is the destination port
	Port int `json:"port"`
	// Protocol is the transport probed
	Protocol Protocol `json:"protocol"`
	// State is the terminal classification
	State State `json:"state"`
	// LatencyMS is the wall time from probe start to outcome determination
	LatencyMS float64 `json:"latency_ms"`
	// ErrorDetail carries the underlying error text for error/unknown states
	ErrorDetail string `json:"error_detail"`
}

// Summary holds per-state counts over a completed run.
type Summary struct {
	Open     int `json:"open"`
	Closed   int `json:"closed"`
	Filtered int `json:"filtered"`
	Unknown  int `json:"unknown"`
	Error    int `json:"error"`
	Total    int `json:"total"`
}

// Count returns the count for a single state.
func (s Summary) Count(state State) int {
	switch state {
	case StateOpen:
		return s.Open
	case StateClosed:
		return s.Closed
	case StateFiltered:
		return s.Filtered
	case StateUnknown:
		return s.Unknown
	case StateError:
		return s.Error
	}
	return 0
}

// add records one result state.
func (s *Summary) add(state State) {
	switch state {
	case StateOpen:
		s.Open++
	case StateClosed:
		s.Closed++
	case StateFiltered:
		s.Filtered++
	case StateUnknown:
		s.Unknown++
	case StateError:
		s.Error++
	}
	s.Total++
}

// Report is the complete outcome of one run: results in canonical order plus
// summary counts and timing.
type Report struct {
	// RunID correlates log lines and metrics of one run
	RunID string `json:"run_id"`
	// Results in canonical order: target input order, port ascending, TCP
	// before UDP, regardless of completion interleaving
	Results []Result `json:"results"`
	// Summary holds per-state counts
	Summary Summary `json:"summary"`

	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"-"`
}

// Config is the immutable per-run configuration of the engine. It is built
// once before probing begins and read-only thereafter.
type Config struct {
	// Concurrency is the maximum number of probes in flight
	Concurrency int
	// Timeout bounds every single probe attempt
	Timeout time.Duration
	// BindAddress optionally forces the local source address
	BindAddress string
	// Protocols to probe, in TCP-before-UDP order
	Protocols []Protocol
	// DNSServer optionally overrides the system resolver (host:port)
	DNSServer string
	// RateLimit caps probe starts per second (0 = unlimited)
	RateLimit int
}

// Validate checks the engine configuration.
func (c *Config) Validate() error {
	if c.Concurrency <= 0 {
		return errors.ErrConfigInvalid("concurrency", c.Concurrency)
	}
	if c.Timeout <= 0 {
		return errors.ErrConfigInvalid("timeout", c.Timeout)
	}
	if len(c.Protocols) == 0 {
		return errors.ErrConfigMissing("protocols")
	}
	for _, p := range c.Protocols {
		if p != ProtocolTCP && p != ProtocolUDP {
			return errors.ErrConfigInvalid("protocols", string(p))
		}
	}
	return nil
}
