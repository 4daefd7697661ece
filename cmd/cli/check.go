package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/fwprobe/fwprobe/internal/config"
	"github.com/fwprobe/fwprobe/internal/logging"
	"github.com/fwprobe/fwprobe/internal/output"
	"github.com/fwprobe/fwprobe/internal/probing"
)

var (
	checkTargets     string
	checkTargetsFile string
	checkPorts       string
	checkProto       string
	checkConcurrency int
	checkTimeout     time.Duration
	checkBind        string
	checkDNSServer   string
	checkOutput      string
	checkFormat      string
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Probe targets for port reachability",
	Long: `Probe each target on each requested port over TCP and/or UDP and report
the per-port reachability state (open, closed, filtered, unknown, error).

TCP connects are reliable for "open"; UDP is a best-effort probe where a
silent port is inherently ambiguous. Use --bind to force the local source
interface used for outgoing probes.`,
	Example: `  fwprobe check --targets 100.124.168.52 --ports 22,443,6443
  fwprobe check --targets-file hosts.txt --ports 22,53,30000-30010 --proto both --output results.json --format json
  fwprobe check --targets vendor.example.com --ports 2181,9092 --bind 10.10.1.25`,
	Run: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVar(&checkTargets, "targets", "", "Comma-separated hosts (IPs or hostnames)")
	checkCmd.Flags().StringVar(&checkTargetsFile, "targets-file", "", "File with one host per line (# comments allowed)")
	checkCmd.Flags().StringVar(&checkPorts, "ports", "", "Ports or ranges, e.g. 22,80,30000-30010")
	checkCmd.Flags().StringVar(&checkProto, "proto", "", "Protocol to test: tcp, udp or both")
	checkCmd.Flags().IntVar(&checkConcurrency, "concurrency", 0, "Parallel probe attempts")
	checkCmd.Flags().DurationVar(&checkTimeout, "timeout", 0, "Timeout per port attempt")
	checkCmd.Flags().StringVar(&checkBind, "bind", "", "Source IP to bind for outgoing probes (forces NIC selection)")
	checkCmd.Flags().StringVar(&checkDNSServer, "dns-server", "", "Resolve targets via this DNS server (host:port)")
	checkCmd.Flags().StringVarP(&checkOutput, "output", "o", "", "Output file (stdout if empty)")
	checkCmd.Flags().StringVar(&checkFormat, "format", "", "Output format: csv, json or table")

	checkCmd.MarkFlagsMutuallyExclusive("targets", "targets-file")
}

func runCheck(cmd *cobra.Command, args []string) {
	if checkTargets == "" && checkTargetsFile == "" {
		fmt.Fprintf(os.Stderr, "Error: either --targets or --targets-file must be specified\n\n")
		_ = cmd.Help()
		os.Exit(1)
	}

	cfg := buildConfig(cmd)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid configuration: %v\n", err)
		os.Exit(1)
	}

	format, err := output.ParseFormat(cfg.Output.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	targets, err := resolveTargetList()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if len(targets) == 0 {
		fmt.Fprintf(os.Stderr, "Error: no targets to probe\n")
		os.Exit(1)
	}

	ports := checkPorts
	if ports == "" {
		ports = cfg.Probing.DefaultPorts
	}

	runner, err := probing.NewRunner(engineConfig(cfg))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// User interrupt stops further submission; in-flight probes finish or
	// hit their own timeout.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := runner.Run(ctx, targets, ports)
	if err != nil && report == nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if werr := output.WriteFile(checkOutput, report, format); werr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", werr)
		os.Exit(1)
	}

	if err != nil {
		// Canceled run: the partial report was still written.
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		os.Exit(1)
	}
}

// buildConfig merges file/env configuration with explicit flag overrides.
func buildConfig(cmd *cobra.Command) *config.Config {
	cfg, err := config.Load(viper.ConfigFileUsed())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if cmd.Flags().Changed("concurrency") {
		cfg.Probing.Concurrency = checkConcurrency
	}
	if cmd.Flags().Changed("timeout") {
		cfg.Probing.Timeout = checkTimeout
	}
	if cmd.Flags().Changed("proto") {
		cfg.Probing.Protocol = checkProto
	}
	if cmd.Flags().Changed("bind") {
		cfg.Probing.BindAddress = checkBind
	}
	if cmd.Flags().Changed("dns-server") {
		cfg.Probing.DNSServer = checkDNSServer
	}
	if cmd.Flags().Changed("format") {
		cfg.Output.Format = checkFormat
	}
	if cmd.Flags().Changed("output") {
		cfg.Output.Path = checkOutput
	}

	cmd.Flags().Visit(func(f *pflag.Flag) {
		logging.Debug("Flag override", "flag", f.Name, "value", f.Value.String())
	})
	return cfg
}

// engineConfig freezes the process configuration into the immutable engine
// configuration for this run.
func engineConfig(cfg *config.Config) probing.Config {
	protocols := make([]probing.Protocol, 0, 2)
	for _, p := range cfg.Protocols() {
		protocols = append(protocols, probing.Protocol(p))
	}
	return probing.Config{
		Concurrency: cfg.Probing.Concurrency,
		Timeout:     cfg.Probing.Timeout,
		BindAddress: cfg.Probing.BindAddress,
		Protocols:   protocols,
		DNSServer:   cfg.Probing.DNSServer,
	}
}

// resolveTargetList returns the target list from --targets or --targets-file.
func resolveTargetList() ([]string, error) {
	if checkTargetsFile != "" {
		return readTargetsFile(checkTargetsFile)
	}
	return parseTargets(checkTargets), nil
}

// parseTargets splits a comma-separated target list, dropping empty entries.
func parseTargets(targets string) []string {
	var result []string
	for _, part := range strings.Split(targets, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		result = append(result, part)
	}
	return result
}
