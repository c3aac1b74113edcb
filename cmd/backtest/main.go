package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rxtech-lab/pump-backtest/internal/backtest/engine"
	engine_v1 "github.com/rxtech-lab/pump-backtest/internal/backtest/engine/engine_v1"
	"github.com/rxtech-lab/pump-backtest/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/pump-backtest/internal/logger"
	"github.com/rxtech-lab/pump-backtest/internal/types"
	"github.com/rxtech-lab/pump-backtest/internal/version"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

// runAction loads the config and data directory, replays the range and prints the summary.
func runAction(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")
	dataDir := cmd.String("data")
	resultsDir := cmd.String("results")
	quiet := cmd.Bool("quiet")

	level, err := logger.ParseLevel(cmd.String("log-level"))
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}

	runLogger, err := logger.NewLoggerWithLevel(level)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer runLogger.Sync() //nolint:errcheck // stderr sync fails on some terminals

	config, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	store, err := datasource.NewDuckDBFileStore(dataDir, runLogger)
	if err != nil {
		return fmt.Errorf("failed to open data directory: %w", err)
	}
	defer store.Close()

	backtester := engine_v1.NewBacktestEngineV1WithLogger(runLogger)

	if err := backtester.Initialize(string(config)); err != nil {
		return fmt.Errorf("failed to initialize backtest engine: %w", err)
	}

	if err := backtester.SetDataSource(store); err != nil {
		return fmt.Errorf("failed to set data source: %w", err)
	}

	if err := backtester.SetResultsFolder(resultsDir); err != nil {
		return fmt.Errorf("failed to set results folder: %w", err)
	}

	// Ctrl-C stops the loop; open positions are still closed and results written.
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var bar *progressbar.ProgressBar

	onStart := engine.OnBacktestStartCallback(func(runID string, symbols []string, totalSteps int) error {
		runLogger.Info("Replaying symbols",
			zap.String("run_id", runID),
			zap.Int("symbols", len(symbols)),
			zap.Int("steps", totalSteps),
		)

		if !quiet {
			bar = progressbar.NewOptions(totalSteps,
				progressbar.OptionSetDescription(fmt.Sprintf("Backtesting %d symbols", len(symbols))),
				progressbar.OptionShowCount(),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionClearOnFinish(),
			)
		}

		return nil
	})

	onStep := engine.OnStepCallback(func(current int, total int) error {
		if bar != nil {
			return bar.Set(current)
		}

		return nil
	})

	onExcluded := engine.OnSymbolExcludedCallback(func(symbol string, reason error) {
		runLogger.Warn("Skipping symbol", zap.String("symbol", symbol), zap.Error(reason))
	})

	summary, err := backtester.Run(ctx, engine.LifecycleCallbacks{
		OnBacktestStart:  &onStart,
		OnBacktestEnd:    nil,
		OnSymbolExcluded: &onExcluded,
		OnStep:           &onStep,
		OnTradeClosed:    nil,
	})

	if bar != nil {
		_ = bar.Finish()
	}

	if err != nil {
		return fmt.Errorf("backtest failed: %w", err)
	}

	fmt.Println(RenderSummary(summary))

	if summary.Completion == types.CompletionCancelled {
		runLogger.Warn("Backtest was cancelled, results cover a partial range")
	}

	return nil
}

// schemaAction prints the JSON schema of the engine config.
func schemaAction(ctx context.Context, cmd *cli.Command) error {
	schema, err := engine_v1.NewBacktestEngineV1().GetConfigSchema()
	if err != nil {
		return fmt.Errorf("failed to generate schema: %w", err)
	}

	output := cmd.String("output")
	if output == "" {
		fmt.Println(schema)

		return nil
	}

	if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	return os.WriteFile(output, []byte(schema), 0644)
}

// summaryAction renders a stats.yaml written by an earlier run.
func summaryAction(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("results")
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, engine_v1.SummaryFileName)
	}

	summary, err := types.ReadSummary(path)
	if err != nil {
		return err
	}

	fmt.Println(RenderSummary(summary))

	return nil
}

func resultsFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "results",
		Aliases: []string{"r"},
		Usage:   "Results directory",
		Value:   "results",
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "backtest",
		Usage:   "Replay historical candles through the pump strategy",
		Version: version.GetVersion(),
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Run a backtest",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "config",
						Aliases:  []string{"c"},
						Usage:    "Path to the backtest config `FILE`",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "data",
						Aliases: []string{"d"},
						Usage:   "Directory with <SYMBOL>_<interval>.csv or .parquet files",
						Value:   "data",
					},
					resultsFlag(),
					&cli.StringFlag{
						Name:  "log-level",
						Usage: "debug, info, warn or error",
						Value: "info",
					},
					&cli.BoolFlag{
						Name:    "quiet",
						Aliases: []string{"q"},
						Usage:   "Hide the progress bar",
					},
				},
				Action: runAction,
			},
			{
				Name:  "schema",
				Usage: "Print the config JSON schema",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write the schema to `FILE` instead of stdout",
					},
				},
				Action: schemaAction,
			},
			{
				Name:   "summary",
				Usage:  "Print the summary of a finished run",
				Flags:  []cli.Flag{resultsFlag()},
				Action: summaryAction,
			},
		},
	}
}

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
