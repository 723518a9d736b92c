package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/solvanity/internal/config"
	"github.com/solvanity/internal/logger"
	"github.com/solvanity/internal/metrics"
	"github.com/solvanity/internal/ui"
	"github.com/solvanity/pkg/device"
	"github.com/solvanity/pkg/keypair"
	"github.com/solvanity/pkg/search"
)

const progressInterval = time.Second

func loadConfig(cmd *cobra.Command, opts *cliOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return nil, err
	}

	// Flags override the file.
	flags := cmd.Flags()
	if flags.Changed("prefix") {
		cfg.Search.Prefix = opts.prefix
	}
	if flags.Changed("suffix") {
		cfg.Search.Suffix = opts.suffix
	}
	if flags.Changed("count") {
		cfg.Search.Count = opts.count
	}
	if flags.Changed("iteration-bits") {
		cfg.Search.IterationBits = opts.iterationBits
	}
	if flags.Changed("case-insensitive") {
		cfg.Search.CaseInsensitive = opts.caseInsensitive
	}
	if flags.Changed("devices") {
		cfg.Search.Devices = opts.devices
	}
	if flags.Changed("output") {
		cfg.Output.Dir = opts.outputDir
	}
	if flags.Changed("allow-cpu") {
		cfg.Device.AllowCPU = opts.allowCPU
	}
	if flags.Changed("kernel") {
		cfg.Device.KernelPath = opts.kernelPath
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = opts.logLevel
	}
	return cfg, nil
}

func runSearch(cmd *cobra.Command, opts *cliOptions) error {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}

	log, err := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return err
	}
	defer log.Sync()

	devices, err := device.Enumerate(device.Config{
		KernelPath: cfg.Device.KernelPath,
		AllowCPU:   cfg.Device.AllowCPU,
		CPUWorkers: cfg.Device.CPUWorkers,
	})
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		return fmt.Errorf("no compatible GPU devices found (use --allow-cpu to search on the CPU): %w",
			search.ErrNoComputeDevice)
	}
	for _, dev := range devices {
		log.Info("using device", zap.String("id", dev.ID()), zap.String("name", dev.Name()))
	}

	spec := cfg.Spec()
	if err := spec.Validate(); err != nil {
		return err
	}
	ui.PrintSearchInfo(spec)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sess, err := search.Run(ctx, spec, devices, search.Options{
		Logger: logger.WithComponent(log, "search"),
	})
	if err != nil {
		return err
	}

	m := metrics.New()
	go logWarnings(sess, log)
	go trackProgress(ctx, sess, m, log)

	for match := range sess.Results() {
		keyfile, err := saveMatch(cfg.Output.Dir, match)
		if err != nil {
			log.Error("writing keyfile",
				zap.String("address", match.Address), zap.Error(err))
		}
		ui.PrintMatch(match, keyfile)
	}

	err = sess.Wait()
	snap := sess.Snapshot()
	m.Observe(snap)
	m.Log(logger.WithComponent(log, "metrics"))
	ui.PrintSummary(snap)

	if errors.Is(err, context.Canceled) {
		log.Info("search interrupted",
			zap.Uint64("found", snap.MatchesFound),
			zap.Uint64("requested", snap.MatchesRequested))
		return nil
	}
	return err
}

// saveMatch writes the keypair in Solana CLI keyfile format under dir.
func saveMatch(dir string, match search.MatchResult) (string, error) {
	kp, err := keypair.Derive(match.Seed[:])
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, match.Address+".json")
	if err := keypair.WriteKeyfile(kp, path); err != nil {
		return "", err
	}
	return path, nil
}

func logWarnings(sess *search.Session, log *zap.Logger) {
	for w := range sess.Warnings() {
		var devErr *search.DeviceError
		if errors.As(w, &devErr) {
			log.Warn("device removed from search",
				zap.String("device", devErr.DeviceID), zap.Error(devErr.Err))
			continue
		}
		log.Warn("search warning", zap.Error(w))
	}
}

func trackProgress(ctx context.Context, sess *search.Session, m *metrics.Metrics, log *zap.Logger) {
	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			snap := sess.Snapshot()
			m.Observe(snap)
			log.Debug("progress",
				zap.String("keys", ui.FormatNumber(snap.TotalGenerated)),
				zap.String("rate", ui.FormatRate(snap.Rate())),
				zap.Uint64("found", snap.MatchesFound),
				zap.Int("devices", snap.DevicesActive))
		case <-sess.Done():
			return
		case <-ctx.Done():
			return
		}
	}
}
