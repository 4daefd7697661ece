package probing

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/fwprobe/fwprobe/internal/errors"
	"github.com/fwprobe/fwprobe/internal/logging"
	"github.com/fwprobe/fwprobe/internal/metrics"
	"github.com/fwprobe/fwprobe/internal/workers"
)

const (
	runStatusSuccess  = "success"
	runStatusCanceled = "canceled"
	runStatusError    = "error"
)

// Runner executes probe runs against a fixed configuration.
type Runner struct {
	config   Config
	executor Executor
	resolver *Resolver
}

// NewRunner creates a runner for the given engine configuration.
func NewRunner(cfg Config) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Runner{
		config: cfg,
		executor: &NetExecutor{
			Timeout:     cfg.Timeout,
			BindAddress: cfg.BindAddress,
		},
		resolver: NewResolver(cfg.DNSServer),
	}, nil
}

// WithExecutor replaces the probe executor; used by tests to inject
// deterministic outcomes.
func (r *Runner) WithExecutor(exec Executor) *Runner {
	r.executor = exec
	return r
}

// GenerateRequests composes the ordered work unit set: outer loop over
// targets in input order, middle loop over ports ascending, inner loop over
// the requested protocols with TCP before UDP. The result aggregator relies
// on this canonical ordering for deterministic output.
func GenerateRequests(targets []string, ports []int, protocols []Protocol) []Request {
	sorted := make([]int, len(ports))
	copy(sorted, ports)
	sort.Ints(sorted)

	ordered := make([]Protocol, 0, len(protocols))
	for _, p := range []Protocol{ProtocolTCP, ProtocolUDP} {
		for _, requested := range protocols {
			if requested == p {
				ordered = append(ordered, p)
				break
			}
		}
	}

	requests := make([]Request, 0, len(targets)*len(sorted)*len(ordered))
	for _, target := range targets {
		for _, port := range sorted {
			for _, proto := range ordered {
				requests = append(requests, Request{
					Target:   target,
					Port:     port,
					Protocol: proto,
				})
			}
		}
	}
	return requests
}

// Run expands targets and the port specification into a work unit set,
// probes every unit under the configured concurrency limit and returns the
// aggregated report.
//
// A malformed port specification aborts before any network activity. Target
// resolution failures and per-probe errors degrade the affected results to
// the error state; the run always completes with one result per work unit.
// Canceling ctx stops further submission; in-flight probes finish or hit
// their own timeout.
func (r *Runner) Run(ctx context.Context, targets []string, portSpec string) (*Report, error) {
	runStart := time.Now()
	runID := uuid.New().String()
	log := logging.Default().WithRunID(runID)

	ports, err := ParsePortSet(portSpec)
	if err != nil {
		metrics.RecordRun(runStatusError, 0, time.Since(runStart))
		return nil, err
	}

	resolved := r.resolveTargets(ctx, targets, log)
	requests := GenerateRequests(targets, ports, r.config.Protocols)

	log.Info("Starting probe run",
		"targets", len(targets),
		"ports", len(ports),
		"protocols", len(r.config.Protocols),
		"work_units", len(requests),
		"concurrency", r.config.Concurrency)

	results, canceled := r.dispatch(ctx, requests, resolved)

	report := &Report{
		RunID:     runID,
		Results:   aggregate(targets, results),
		StartTime: runStart,
		EndTime:   time.Now(),
	}
	report.Duration = report.EndTime.Sub(report.StartTime)
	for i := range report.Results {
		report.Summary.add(report.Results[i].State)
	}

	status := runStatusSuccess
	if canceled {
		status = runStatusCanceled
	}
	metrics.RecordRun(status, len(requests), report.Duration)
	log.Info("Probe run completed",
		"status", status,
		"duration", report.Duration,
		"open", report.Summary.Open,
		"closed", report.Summary.Closed,
		"filtered", report.Summary.Filtered,
		"unknown", report.Summary.Unknown,
		"errors", report.Summary.Error)

	if canceled {
		return report, errors.WrapConfigError(errors.CodeCanceled, "probe run canceled", ctx.Err())
	}
	return report, nil
}

// resolution carries the up-front resolver verdict for one target.
type resolution struct {
	ip  string
	err error
}

// resolveTargets resolves each distinct target once. Failures are recorded,
// not fatal: downstream work units for a failed target become error results
// without any dialing.
func (r *Runner) resolveTargets(ctx context.Context, targets []string, log *logging.Logger) map[string]resolution {
	resolved := make(map[string]resolution, len(targets))
	for _, target := range targets {
		if _, done := resolved[target]; done {
			continue
		}
		ip, err := r.resolver.Resolve(ctx, target)
		if err != nil {
			log.ErrorResolver("Target resolution failed", target, err)
			metrics.RecordResolutionError(target)
		} else {
			log.DebugResolver("Target resolved", target, "ip", ip)
		}
		resolved[target] = resolution{ip: ip, err: err}
	}
	return resolved
}

// dispatch feeds the work unit set through the bounded worker pool and
// collects every result from the shared sink. Probe completions arrive in
// non-deterministic order; ordering is restored by the aggregator.
func (r *Runner) dispatch(ctx context.Context, requests []Request,
	resolved map[string]resolution) ([]Result, bool) {
	workerCount := r.config.Concurrency
	if workerCount > len(requests) {
		workerCount = len(requests)
	}

	pool := workers.New(workers.Config{
		Size:      workerCount,
		QueueSize: r.config.Concurrency * 2,
		RateLimit: r.config.RateLimit,
	})
	pool.Start()

	// Every job sends exactly one result; the channel is sized so no job
	// can block on a slow consumer.
	sink := make(chan Result, len(requests))

	// Pool outcomes must be consumed while submitting, otherwise workers
	// block on a full outcome buffer and stall the bounded job queue.
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for range pool.Results() {
		}
	}()

	submitted := 0
	canceled := false
	for _, req := range requests {
		if ctx.Err() != nil {
			canceled = true
			break
		}

		req := req
		job := workers.NewFuncJob(req.String(), "probe", func(context.Context) error {
			sink <- r.probeOne(req, resolved[req.Target])
			return nil
		})
		if err := pool.Submit(job); err != nil {
			canceled = true
			break
		}
		submitted++
	}

	pool.Drain()
	<-drained
	close(sink)

	results := make([]Result, 0, submitted)
	for res := range sink {
		results = append(results, res)
	}
	return results, canceled
}

// probeOne executes one work unit, or synthesizes the error result when the
// target never resolved.
func (r *Runner) probeOne(req Request, res resolution) Result {
	if res.err != nil {
		metrics.GetGlobalMetrics().IncrementProbesTotal(string(req.Protocol), string(StateError))
		return Result{
			Target:      req.Target,
			Port:        req.Port,
			Protocol:    req.Protocol,
			State:       StateError,
			ErrorDetail: res.err.Error(),
		}
	}

	result := r.executor.Probe(req, res.ip)
	metrics.RecordProbe(string(req.Protocol), string(result.State),
		time.Duration(result.LatencyMS*float64(time.Millisecond)))
	if result.State == StateError {
		metrics.RecordProbeError(string(req.Protocol), "socket")
	}
	return result
}

// aggregate re-orders results into the canonical report order: target input
// order, then port ascending, then TCP before UDP. Aggregation is invariant
// to the completion interleaving that produced the results.
func aggregate(targets []string, results []Result) []Result {
	targetIndex := make(map[string]int, len(targets))
	for i, t := range targets {
		if _, seen := targetIndex[t]; !seen {
			targetIndex[t] = i
		}
	}

	ordered := make([]Result, len(results))
	copy(ordered, results)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if targetIndex[a.Target] != targetIndex[b.Target] {
			return targetIndex[a.Target] < targetIndex[b.Target]
		}
		if a.Port != b.Port {
			return a.Port < b.Port
		}
		return a.Protocol == ProtocolTCP && b.Protocol == ProtocolUDP
	})
	return ordered
}
