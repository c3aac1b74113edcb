package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	engine "github.com/rxtech-lab/pump-backtest/internal/backtest/engine/engine_v1"
	"github.com/rxtech-lab/pump-backtest/mocks"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

const (
	schemaName       = "backtest-engine-v1-config.json"
	sampleConfigName = "backtest-engine-v1-config.yaml"
)

// validatePaths checks that the schema and sample config paths are set.
func validatePaths(schemaPath, sampleConfigPath string) error {
	if schemaPath == "" {
		return fmt.Errorf("schema path cannot be empty")
	}

	if sampleConfigPath == "" {
		return fmt.Errorf("sample config path cannot be empty")
	}

	return nil
}

// validateSchemaName checks the schema file name referenced from the sample config.
func validateSchemaName(name string) error {
	if name == "" {
		return fmt.Errorf("schema name cannot be empty")
	}

	if filepath.Ext(name) != ".json" {
		return fmt.Errorf("schema name %q must have .json extension", name)
	}

	return nil
}

// getSchemaReference returns the yaml-language-server header pointing at the schema.
func getSchemaReference(schemaName string) string {
	return "# yaml-language-server: $schema=" + schemaName + "\n"
}

// generateSchemaFile writes the JSON schema of config to schemaPath.
func generateSchemaFile(config engine.BacktestEngineV1Config, schemaPath string) error {
	schemaJSON, err := config.GenerateSchemaJSON()
	if err != nil {
		return fmt.Errorf("failed to generate schema: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(schemaPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(schemaPath, []byte(schemaJSON), 0644); err != nil {
		return fmt.Errorf("failed to write schema to file: %w", err)
	}

	return nil
}

// generateSampleConfig writes config as YAML to samplePath unless the file already exists.
func generateSampleConfig(config engine.BacktestEngineV1Config, samplePath string, schemaName string) error {
	if _, err := os.Stat(samplePath); err == nil {
		return nil
	}

	yamlBytes, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal sample config to yaml: %w", err)
	}

	yamlBytes = append([]byte(getSchemaReference(schemaName)), yamlBytes...)

	if err := os.MkdirAll(filepath.Dir(samplePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(samplePath, yamlBytes, 0644); err != nil {
		return fmt.Errorf("failed to write sample config to file: %w", err)
	}

	return nil
}

func configAction(ctx context.Context, cmd *cli.Command) error {
	dir := cmd.String("dir")
	schemaPath := filepath.Join(dir, schemaName)
	sampleConfigPath := filepath.Join(dir, sampleConfigName)

	if err := validatePaths(schemaPath, sampleConfigPath); err != nil {
		return err
	}

	if err := validateSchemaName(schemaName); err != nil {
		return err
	}

	config := engine.DefaultConfig()

	if err := generateSchemaFile(config, schemaPath); err != nil {
		return err
	}

	log.Printf("Schema successfully generated at %s", schemaPath)

	if err := generateSampleConfig(config, sampleConfigPath, schemaName); err != nil {
		return err
	}

	log.Printf("Sample config available at %s", sampleConfigPath)

	return nil
}

// dataAction writes synthetic fine, medium and coarse candles for each symbol with one pump per symbol.
func dataAction(ctx context.Context, cmd *cli.Command) error {
	dir := cmd.String("dir")
	days := int(cmd.Int("days"))
	format := cmd.String("format")

	if days <= 0 {
		return fmt.Errorf("days must be positive, got %d", days)
	}

	if format != "csv" && format != "parquet" {
		return fmt.Errorf("format must be csv or parquet, got %q", format)
	}

	symbols := splitSymbols(cmd.String("symbols"))
	if len(symbols) == 0 {
		return fmt.Errorf("at least one symbol is required")
	}

	start, err := time.Parse("2006-01-02", cmd.String("start"))
	if err != nil {
		return fmt.Errorf("invalid start date: %w", err)
	}

	writer, err := NewSeriesWriter()
	if err != nil {
		return err
	}
	defer writer.Close()

	gen := mocks.NewDataGenerator(int64(cmd.Int("seed")))
	timeframes := engine.DefaultConfig().Timeframes

	for i, symbol := range symbols {
		config := mocks.DefaultConfig()
		config.Symbol = symbol
		config.StartTime = start.UTC()
		config.Interval = timeframes.Fine
		config.Count = days * 24 * 60
		config.Pumps = []mocks.Pump{{
			At:               config.Count/2 + i*90,
			Bars:             45,
			Gain:             0.25,
			VolumeMultiplier: 6,
		}}

		for _, series := range gen.GenerateTimeframes(config, timeframes.Medium, timeframes.Coarse) {
			path, err := writer.Write(dir, series, format)
			if err != nil {
				return err
			}

			log.Printf("Wrote %d %s candles for %s to %s", series.Len(), series.Interval, symbol, path)
		}
	}

	return nil
}

func splitSymbols(value string) []string {
	var symbols []string

	for _, part := range strings.Split(value, ",") {
		if symbol := strings.ToUpper(strings.TrimSpace(part)); symbol != "" {
			symbols = append(symbols, symbol)
		}
	}

	return symbols
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "generate",
		Usage: "Generate config schema, sample config and synthetic candle data",
		Commands: []*cli.Command{
			{
				Name:  "config",
				Usage: "Write the config JSON schema and a sample config",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "dir", Usage: "Output directory", Value: "./config"},
				},
				Action: configAction,
			},
			{
				Name:  "data",
				Usage: "Write synthetic <SYMBOL>_<interval> candle files",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "dir", Usage: "Output directory", Value: "./data"},
					&cli.StringFlag{Name: "symbols", Usage: "Comma separated symbols", Value: "PEPEUSDT,WIFUSDT"},
					&cli.StringFlag{Name: "start", Usage: "First day in `YYYY-MM-DD` format", Value: "2024-05-01"},
					&cli.IntFlag{Name: "days", Usage: "Days of one-minute candles", Value: 3},
					&cli.IntFlag{Name: "seed", Usage: "Random seed", Value: 42},
					&cli.StringFlag{Name: "format", Usage: "csv or parquet", Value: "csv"},
				},
				Action: dataAction,
			},
		},
	}
}

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
