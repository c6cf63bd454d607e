// Command screen runs one screening cycle and prints the dashboard view as
// JSON. With -symbol it prints that symbol's detail panel instead.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/tidwall/pretty"
	"go.uber.org/zap"

	"DayScreener/internal/app"
	"DayScreener/internal/config"
	"DayScreener/internal/logging"
)

func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "config file (.yaml or .toml)")
	symbol := flag.String("symbol", "", "print the detail panel for this symbol")
	provider := flag.String("provider", "", "override data_source.provider (yahoo, alpaca, mock)")
	color := flag.Bool("color", false, "colorize JSON output")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall deadline")
	flag.Parse()

	if err := run(*cfgPath, *symbol, *provider, *color, *timeout); err != nil {
		fmt.Fprintf(os.Stderr, "screen: %v\n", err)
		os.Exit(1)
	}
}

func run(cfgPath, symbol, provider string, color bool, timeout time.Duration) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if provider != "" {
		cfg.DataSource.Provider = provider
	}
	// One-shot runs never push the daily alert.
	cfg.Alert.Enabled = false
	cfg.Alert.Sink = "log"
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	log, err := logging.New("warn", "console")
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	var out any
	if symbol != "" {
		out, err = a.Pipeline.Detail(ctx, symbol)
	} else {
		out, err = a.Pipeline.RunCycle(ctx)
	}
	if err != nil {
		log.Error("screen failed", zap.Error(err))
		return err
	}

	raw, err := json.Marshal(out)
	if err != nil {
		return err
	}
	formatted := pretty.Pretty(raw)
	if color {
		formatted = pretty.Color(formatted, nil)
	}
	_, err = os.Stdout.Write(formatted)
	return err
}
