package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nexconsult/nif-lookup/internal/config"
	"github.com/nexconsult/nif-lookup/internal/logger"
	"github.com/nexconsult/nif-lookup/internal/models"
	"github.com/nexconsult/nif-lookup/internal/services"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type runOptions struct {
	input           string
	progress        string
	output          string
	maxAttempts     int
	checkpointEvery int
	noSearch        bool
	noCache         bool
	headless        bool
	minSimilarity   float64
	logLevel        string
}

func newRootCmd() *cobra.Command {
	cmd, _ := newCommand()
	return cmd
}

func newCommand() (*cobra.Command, *runOptions) {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "nif-batch",
		Short: "Look up the NIF of every company in a list",
		Long: `Reads a headerless list of company names (one per line), resolves each
company's registry page with a browser and extracts its NIF. Progress is
checkpointed to the progress file and the full table is written to the output
file as company_name,nif.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := opts.apply(cmd, cfg); err != nil {
				return err
			}
			return runBatch(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.input, "input", "i", "", "input file of company names (default from PIPELINE_INPUT)")
	flags.StringVar(&opts.progress, "progress", "", "checkpoint file (default from PIPELINE_PROGRESS)")
	flags.StringVarP(&opts.output, "output", "o", "", "final output file (default from PIPELINE_OUTPUT)")
	flags.IntVar(&opts.maxAttempts, "max-attempts", 0, "attempts per company")
	flags.IntVar(&opts.checkpointEvery, "checkpoint-every", 0, "write the progress file every N companies")
	flags.BoolVar(&opts.noSearch, "no-search", false, "skip the search-engine fallback")
	flags.BoolVar(&opts.noCache, "no-cache", false, "neither read nor write the NIF cache")
	flags.BoolVar(&opts.headless, "headless", false, "run the browser headless; challenges cannot be cleared by hand")
	flags.Float64Var(&opts.minSimilarity, "min-similarity", -1, "flag results whose page name scores below this (0 disables)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	return cmd, opts
}

// apply overlays the flags that were set on the environment configuration
func (o *runOptions) apply(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()

	if o.input != "" {
		cfg.Pipeline.InputPath = o.input
	}
	if o.progress != "" {
		cfg.Pipeline.ProgressPath = o.progress
	}
	if o.output != "" {
		cfg.Pipeline.OutputPath = o.output
	}
	if flags.Changed("max-attempts") {
		cfg.Pipeline.MaxAttempts = o.maxAttempts
	}
	if flags.Changed("checkpoint-every") {
		cfg.Pipeline.CheckpointEvery = o.checkpointEvery
	}
	if o.noSearch {
		cfg.Search.Enabled = false
	}
	if o.noCache {
		cfg.Pipeline.CacheEnabled = false
		cfg.Redis.Enabled = false
	}
	if flags.Changed("headless") {
		cfg.Browser.Headless = o.headless
	}
	if flags.Changed("min-similarity") {
		cfg.Pipeline.MinNameSimilarity = o.minSimilarity
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}

	return cfg.Validate()
}

func runBatch(ctx context.Context, cfg *config.Config) error {
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	queries, err := services.ReadCompanyQueriesFile(cfg.Pipeline.InputPath)
	if err != nil {
		return err
	}
	if len(queries) == 0 {
		return fmt.Errorf("no company names in %s", cfg.Pipeline.InputPath)
	}

	log.WithFields(logrus.Fields{
		"input":     cfg.Pipeline.InputPath,
		"companies": len(queries),
		"search":    cfg.Search.Enabled,
		"headless":  cfg.Browser.Headless,
	}).Info("Loaded company list")

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	container, err := services.NewContainer(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := container.Close(); cerr != nil {
			log.WithError(cerr).Warn("Failed to release services")
		}
	}()

	sink := services.NewCSVRecordSink(cfg.Pipeline.ProgressPath, cfg.Pipeline.OutputPath, log)

	start := time.Now()
	results, runErr := container.NIFService.RunBatch(ctx, queries, sink)

	summary := models.Summarize(results)
	summary.Duration = time.Since(start)
	renderSummary(os.Stdout, summary, len(queries))

	switch {
	case runErr == nil:
		log.WithField("output", cfg.Pipeline.OutputPath).Info("Results saved")
		return nil
	case errors.Is(runErr, context.Canceled):
		log.WithFields(logrus.Fields{
			"output":    cfg.Pipeline.OutputPath,
			"processed": len(results),
		}).Warn("Interrupted, partial results saved")
		return runErr
	default:
		return runErr
	}
}
