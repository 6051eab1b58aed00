package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/eitopstats/topstats/internal/api"
	"github.com/eitopstats/topstats/internal/cache"
	"github.com/eitopstats/topstats/internal/config"
	"github.com/eitopstats/topstats/internal/dispatcher"
	"github.com/eitopstats/topstats/internal/dps"
	"github.com/eitopstats/topstats/internal/engine"
	"github.com/eitopstats/topstats/internal/logging"
	intOtel "github.com/eitopstats/topstats/internal/otel"
	"github.com/eitopstats/topstats/internal/parser"
	"github.com/eitopstats/topstats/internal/report"
	"github.com/eitopstats/topstats/internal/storage"
	"github.com/eitopstats/topstats/internal/worker"
	"github.com/eitopstats/topstats/pkg/core"
)

type runOptions struct {
	ConfigDir string
	InputDir  string
	Backends  []string
	Workers   int
	LogLevel  string
	NoConsole bool
}

func newRunCommand() *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run [input-dir]",
		Short: "Process a log directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				opts.InputDir = args[0]
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			_, err := runTopStats(ctx, opts, cmd.OutOrStdout())
			return err
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.ConfigDir, "config-dir", "c", ".", "directory holding "+config.FileName)
	f.StringSliceVarP(&opts.Backends, "backends", "b", nil, "storage backends, overrides storage.backends")
	f.IntVarP(&opts.Workers, "workers", "w", 0, "files parsed ahead of the fold")
	f.StringVar(&opts.LogLevel, "log-level", "", "log level, overrides logLevel")
	f.BoolVar(&opts.NoConsole, "no-console", false, "skip the console report")
	return cmd
}

// applyOverrides writes command line values over the loaded config.
func applyOverrides(opts runOptions) {
	if opts.InputDir != "" {
		viper.Set("inputDir", opts.InputDir)
	}
	if len(opts.Backends) > 0 {
		viper.Set("storage.backends", opts.Backends)
	}
	if opts.Workers > 0 {
		viper.Set("workers", opts.Workers)
	}
	if opts.LogLevel != "" {
		viper.Set("logLevel", opts.LogLevel)
	}
	if opts.NoConsole {
		viper.Set("report.console", false)
	}
}

// setupLogging opens the run log and returns the slog manager, the zerolog
// logger for the database and dispatcher layers, and a cleanup func.
func setupLogging(start time.Time) (*logging.SlogManager, zerolog.Logger, func(), error) {
	level := config.GetString("logLevel")
	logsDir := config.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return nil, zerolog.Nop(), nil, fmt.Errorf("create logs dir: %w", err)
	}
	file, err := os.Create(logging.LogFilePath(logsDir, AppName, start))
	if err != nil {
		return nil, zerolog.Nop(), nil, fmt.Errorf("create log file: %w", err)
	}

	var sinks []logging.Sink
	var gelfErr error
	if gl := config.GetGraylogConfig(); gl.Enabled {
		sink, err := logging.NewGELFSink(gl.Address, level)
		if err != nil {
			gelfErr = err
		} else {
			sinks = append(sinks, sink)
		}
	}

	mgr := logging.NewSlogManager()
	mgr.Setup(file, level, sinks...)
	if gelfErr != nil {
		mgr.Logger().Warn("Graylog sink disabled", "error", gelfErr)
	}
	cleanup := func() {
		_ = mgr.Close()
		_ = file.Close()
	}
	return mgr, logging.NewZerolog(file, level), cleanup, nil
}

// loadRoster fills the guild roster. Failures only disable membership.
func loadRoster(ctx context.Context, logger *slog.Logger) *cache.Roster {
	roster := cache.NewRoster()
	guild := config.GetGuildConfig()
	if !guild.Enabled() {
		return roster
	}
	n, err := api.New(guild.APIURL, guild.APIKey).LoadRoster(ctx, guild.ID, roster)
	if err != nil {
		logger.Warn("Guild lookup failed, membership disabled", "guild", guild.Name, "error", err)
		return roster
	}
	logger.Info("Guild roster loaded", "guild", guild.Name, "members", n)
	return roster
}

func runTopStats(ctx context.Context, opts runOptions, stdout io.Writer) (*engine.Result, error) {
	start := time.Now()

	cfgErr := config.Load(opts.ConfigDir)
	if cfgErr != nil && !config.IsNotFound(cfgErr) {
		return nil, cfgErr
	}
	applyOverrides(opts)

	logManager, dbLogger, cleanup, err := setupLogging(start)
	if err != nil {
		return nil, err
	}
	defer cleanup()
	logger := logManager.Logger()
	if cfgErr != nil {
		logger.Warn("No config file found, using defaults", "dir", opts.ConfigDir)
	}

	otelCfg := config.GetOTelConfig()
	provider, err := intOtel.New(intOtel.Config{
		Enabled:      otelCfg.Enabled,
		ServiceName:  otelCfg.ServiceName,
		TextfilePath: otelCfg.TextfilePath,
	})
	if err != nil {
		return nil, err
	}
	defer provider.Shutdown(context.Background())
	metrics, err := intOtel.NewRunMetrics(provider.Meter(intOtel.MeterName))
	if err != nil {
		return nil, err
	}

	inputDir := config.GetString("inputDir")
	files, err := parser.DiscoverLogs(inputDir)
	if err != nil {
		return nil, err
	}
	logger.Info("Logs discovered", "dir", inputDir, "count", len(files))
	metrics.RecordFiles(ctx, len(files))

	p, err := parser.NewParser(logger, config.GetBool("validateLogs"))
	if err != nil {
		return nil, err
	}

	dpsCfg := config.GetDPSConfig()
	eng := engine.New(engine.Config{
		DPS: dps.Config{
			SplitByRole:   dpsCfg.SplitByRole,
			Windows:       dpsCfg.Windows,
			SiegeSkillIDs: dpsCfg.SiegeSkillIDs,
			SkipRatio:     dpsCfg.SkipRatio,
		},
		HighScoreStats: config.GetHighScoreStats(),
	}, logger, cache.NewCatalog(), loadRoster(ctx, logger))

	backend, err := createStorageBackend(config.GetStorageConfig(), logManager, dbLogger)
	if err != nil {
		return nil, err
	}
	if err := backend.Init(); err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("initialize storage: %w", err)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			logger.Error("Failed to close storage", "error", err)
		}
	}()

	run := &core.Run{
		ID:        uuid.NewString(),
		StartedAt: start,
		InputDir:  inputDir,
		GuildName: config.GetGuildConfig().Name,
		Files:     files,
	}
	if err := backend.StartRun(ctx, run); err != nil {
		return nil, fmt.Errorf("start run: %w", err)
	}

	d, err := dispatcher.New(logging.NewDispatcherLogger(dbLogger))
	if err != nil {
		return nil, err
	}
	wm, err := worker.NewManager(worker.Dependencies{
		Engine:  eng,
		Parser:  p,
		Logger:  logger,
		Workers: config.GetInt("workers"),
	}, backend)
	if err != nil {
		return nil, err
	}
	wm.RegisterHandlers(d)
	if err := wm.Run(ctx, d, files); err != nil {
		return nil, fmt.Errorf("run: %w", err)
	}

	res, err := eng.Finalize()
	if err != nil {
		return nil, err
	}
	if err := backend.EndRun(ctx, res); err != nil {
		return nil, fmt.Errorf("end run: %w", err)
	}

	logType := core.LogTypeWvW
	if len(res.Fights) > 0 {
		logType = res.Fights[0].LogType
	}
	metrics.RecordResult(ctx, logType, len(res.Players), res.Sanitized, time.Since(start))
	if err := provider.Flush(ctx); err != nil {
		logger.Warn("Failed to flush metrics", "error", err)
	}

	if err := writeReports(stdout, res, backend); err != nil {
		return nil, err
	}
	logger.Info("Run finished", "run", run.ID, "fights", res.LastFight,
		"lastWrite", wm.GetLastDBWriteDuration(), "took", time.Since(start))
	return res, nil
}

func writeReports(w io.Writer, res *engine.Result, backend *storage.Multi) error {
	rc := config.GetReportConfig()
	if rc.Console {
		if err := report.Console(w, res, report.Options{Color: rc.Color}); err != nil {
			return err
		}
	}
	if rc.ChartPath != "" {
		if err := report.WriteChart(rc.ChartPath, res, report.DefaultTopN); err != nil {
			return err
		}
		printExported(w, rc.Color, rc.ChartPath)
	}
	printExported(w, rc.Color, backend.ExportedFiles()...)
	return nil
}

func printExported(w io.Writer, useColor bool, files ...string) {
	ok := color.New(color.FgGreen)
	if !useColor {
		ok.DisableColor()
	}
	for _, f := range files {
		ok.Fprintf(w, "wrote %s\n", filepath.Clean(f))
	}
}
