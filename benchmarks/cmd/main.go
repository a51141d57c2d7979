package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/fwojciec/pgbulk"
	"github.com/fwojciec/pgbulk/benchmarks"
	"github.com/rs/zerolog"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	config, err := parseConfig(os.Args[1:])
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}
	level := zerolog.InfoLevel
	if config.Verbose {
		level = zerolog.DebugLevel
	}
	logger = logger.Level(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	pool, err := pgbulk.NewPool(ctx, config.DatabaseURL, pgbulk.WithLogger(logger))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect")
	}
	defer pool.Close()

	logger.Info().
		Int("rows", config.Rows).
		Int("runs", config.Runs).
		Int("batch_size", config.Processor.BatchSize).
		Dur("flush_interval", config.Processor.FlushInterval).
		Msg("generating orders")
	orders := benchmarks.GenerateOrders(config.Rows)

	encode, err := benchmarks.RunEncode(orders)
	if err != nil {
		logger.Fatal().Err(err).Msg("encode benchmark failed")
	}
	fmt.Print(encode.Report())
	fmt.Println()

	runner := benchmarks.NewRunner(pool, config.Schema, config.Table, config.Processor, logger)
	result, err := runner.RunStatisticalBenchmark(ctx, orders, config.Runs)
	if err != nil {
		logger.Fatal().Err(err).Msg("load benchmark failed")
	}
	fmt.Print(result.ReportResult())
}
