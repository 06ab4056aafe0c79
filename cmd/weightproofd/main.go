// Command weightproofd initialises the weight proof subsystem (consensus
// constants, Prometheus metrics, worker pool) and logs its configuration as
// JSON to stderr. It does not build or validate proofs and does not serve
// the registered metrics, since it has no connection to a running node
// (spec.md Non-goals: "HTTP/RPC wrapping" is out of scope for this module).
//
// Usage:
//
//	weightproofd [flags]
//
// Flags:
//
//	-loglevel   Log verbosity: debug, info, warn, error (default: "info")
//	-workers    Worker pool size for VDF re-verification (default: 4)
//	-version    Print version and exit
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/Hydrangea-Network/hydrangea-blockchain/pkg/log"
	"github.com/Hydrangea-Network/hydrangea-blockchain/pkg/metrics"
	"github.com/Hydrangea-Network/hydrangea-blockchain/pkg/weightproof"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	version = "v0.1.0-dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("weightproofd", flag.ContinueOnError)
	loglevel := fs.String("loglevel", "info", "Log verbosity: debug, info, warn, error")
	workers := fs.Int("workers", 4, "Worker pool size for VDF re-verification")
	showVersion := fs.Bool("version", false, "Print version and exit")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	if *showVersion {
		fmt.Printf("weightproofd %s (%s)\n", version, commit)
		return 0
	}

	level, err := parseLevel(*loglevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	logger := log.New(level)
	log.SetDefault(logger)

	constants := weightproof.DefaultTestnetConstants()
	if err := constants.Validate(); err != nil {
		logger.Error("invalid constants", "error", err)
		return 1
	}

	m := metrics.New(prometheus.DefaultRegisterer, "hydrangea")
	pool := weightproof.NewPool(weightproof.WorkerPoolConfig{Workers: *workers})

	logger.Info("weight proof subsystem initialised",
		"sub_epoch_blocks", constants.SubEpochBlocks,
		"weight_proof_recent_blocks", constants.WeightProofRecentBlocks,
		"workers", *workers,
	)
	_ = m
	_ = pool
	return 0
}

func parseLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("weightproofd: unknown loglevel %q", s)
	}
}
