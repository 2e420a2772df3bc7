package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/getong/rspc/client"
	"github.com/getong/rspc/internal/config"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "config.json", "path to config file")
	path := flag.String("path", "", "procedure path to query")
	flag.Parse()

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		// Basic logger for startup errors
		log := zerolog.New(os.Stderr).With().Timestamp().Logger()
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Setup logger
	logger := setupLogger(cfg.LogLevel)

	if *path == "" || flag.NArg() == 0 {
		logger.Fatal().Msg("usage: rspcget -path <procedure> <input>...")
	}

	logger.Info().
		Str("config", *configPath).
		Str("url", cfg.URL).
		Str("path", *path).
		Int("inputs", flag.NArg()).
		Msg("starting rspcget")

	dialCtx, cancel := context.WithTimeout(context.Background(), cfg.GetRequestTimeoutDuration())
	c, err := client.New(dialCtx, client.Config{
		URL:             cfg.URL,
		MaxBatchSize:    cfg.MaxBatchSize,
		MaxPayloadBytes: cfg.MaxPayloadBytes,
		Window:          cfg.GetBatchWindowDuration(),
		Logger:          logger,
	})
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect")
	}
	defer c.Close()

	// Issue the whole burst synchronously so it coalesces into as few
	// batches as the configured limits allow.
	calls := make([]*client.Call, 0, flag.NArg())
	for _, arg := range flag.Args() {
		call, err := c.Go(*path, rawInput(arg))
		if err != nil {
			logger.Fatal().Err(err).Str("input", arg).Msg("failed to issue query")
		}
		calls = append(calls, call)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.GetRequestTimeoutDuration())
	defer cancel()

	failed := 0
	for i, call := range calls {
		var out json.RawMessage
		if err := call.Wait(ctx, &out); err != nil {
			failed++
			logger.Error().Err(err).Str("input", flag.Arg(i)).Msg("query failed")
			continue
		}
		fmt.Printf("%s\t%s\n", flag.Arg(i), out)
	}

	if failed > 0 {
		os.Exit(1)
	}
}

// rawInput treats a valid JSON argument as-is and quotes anything else
// as a string.
func rawInput(arg string) interface{} {
	if json.Valid([]byte(arg)) {
		return json.RawMessage(arg)
	}
	return arg
}

// setupLogger configures the zerolog logger
func setupLogger(level string) zerolog.Logger {
	// Set log level
	var logLevel zerolog.Level
	switch level {
	case "debug":
		logLevel = zerolog.DebugLevel
	case "info":
		logLevel = zerolog.InfoLevel
	case "warn":
		logLevel = zerolog.WarnLevel
	case "error":
		logLevel = zerolog.ErrorLevel
	default:
		logLevel = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(logLevel)

	// Configure output
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}

	return zerolog.New(output).With().Timestamp().Logger()
}
