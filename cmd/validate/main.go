package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"circulight/internal/extraction"
	"circulight/internal/platform/config"
	"circulight/internal/platform/logger"
	platformmetrics "circulight/internal/platform/metrics"
	"circulight/internal/validation"
	"circulight/internal/validation/matcher"
	"circulight/internal/validation/metrics"
	"circulight/internal/validation/models"
	"circulight/internal/validation/scoring"
	"circulight/internal/validation/service"
)

// main validates one batch of candidate records and prints the report to
// stdout. Everything else is wired from the environment.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "validate:", err)
		os.Exit(1)
	}
}

type options struct {
	input      string
	registry   string
	extraction bool
	timeout    time.Duration
	metricsOut string
	migrate    bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.BoolVar(&opts.extraction, "extraction", false, "input is raw OCR extraction output rather than a JSON array of records")
	fs.StringVar(&opts.registry, "registry", "", "registry file, overrides REGISTRY_FILE")
	fs.DurationVar(&opts.timeout, "timeout", 2*time.Minute, "overall batch timeout")
	fs.StringVar(&opts.metricsOut, "metrics-out", "", "write Prometheus metrics to this textfile after the run")
	fs.BoolVar(&opts.migrate, "migrate", false, "create database tables and the Kafka topic before running")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: validate [flags] <candidates.json | ->")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return options{}, errors.New("exactly one input path is required")
	}
	opts.input = fs.Arg(0)
	return opts, nil
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.registry != "" {
		cfg.Registry.Source = config.RegistrySourceFile
		cfg.Registry.File = opts.registry
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	log := logger.NewWithWriter(stderr, cfg.Log)

	candidates, err := readCandidates(opts, stdin)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	reg := platformmetrics.NewRegistry()
	svc, closeAll, err := buildService(ctx, cfg, opts.migrate, log, metrics.NewWithRegisterer(reg))
	if err != nil {
		return err
	}
	defer closeAll()

	report, err := svc.ValidateBatch(ctx, candidates)
	if err != nil {
		return fmt.Errorf("validate batch: %w", err)
	}

	if err := platformmetrics.WriteTextfile(opts.metricsOut, reg); err != nil {
		log.WarnContext(ctx, "failed to write metrics textfile", "path", opts.metricsOut, "error", err)
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func readCandidates(opts options, stdin io.Reader) ([]models.Candidate, error) {
	var (
		data []byte
		err  error
	)
	if opts.input == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(opts.input)
	}
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}

	if opts.extraction {
		ex, err := extraction.Parse(string(data))
		if err != nil {
			return nil, err
		}
		return ex.Candidates, nil
	}

	var candidates []models.Candidate
	if err := json.Unmarshal(data, &candidates); err != nil {
		return nil, fmt.Errorf("decode candidates: %w", err)
	}
	return candidates, nil
}

func newEngine(cfg config.Config) (*validation.Engine, error) {
	weigher, err := scoring.NewWeigher(scoring.DefaultWeights())
	if err != nil {
		return nil, err
	}
	m, err := matcher.New(weigher, matcher.WithParallelism(cfg.Matching.Workers, cfg.Matching.ParallelThreshold))
	if err != nil {
		return nil, err
	}
	return validation.New(m, validation.WithLedgerPolicy(cfg.Ledger.Policy))
}

func serviceOptions(cfg config.Config, log *slog.Logger, m *metrics.Metrics) []service.Option {
	return []service.Option{
		service.WithLogger(log),
		service.WithMetrics(m),
		service.WithConcurrency(cfg.Matching.Concurrency),
	}
}
