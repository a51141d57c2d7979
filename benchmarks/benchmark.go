package benchmarks

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/fwojciec/pgbulk"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// Order is the record loaded by the benchmarks.
type Order struct {
	ID        int64
	Customer  string
	Email     string
	City      string
	Quantity  int32
	Price     string // numeric text, e.g. "129.95"
	Paid      bool
	CreatedAt time.Time
	Note      *string
}

// BenchmarkResult holds the metrics of a single run
type BenchmarkResult struct {
	Name          string
	Duration      time.Duration
	TotalRows     int64
	Bytes         int64 // encoded COPY bytes, when measured
	ThroughputRPS float64
	BatchCount    int64
	AvgBatchSize  float64
	MemoryStats   MemoryMetrics
	GCStats       GCMetrics
}

// MemoryMetrics tracks memory allocation patterns
type MemoryMetrics struct {
	TotalAllocs    uint64
	BytesAllocated uint64
	PeakAlloc      uint64
	HeapInUse      uint64
}

// GCMetrics tracks garbage collection impact
type GCMetrics struct {
	TotalGCRuns   uint32
	GCPauseNs     uint64
	GCCPUFraction float64
}

// Runner loads generated orders into PostgreSQL through a Processor.
type Runner struct {
	Pool   *pgbulk.Pool
	Schema string
	Table  string
	Config pgbulk.ProcessorConfig
	Logger zerolog.Logger
}

// NewRunner creates a new benchmark runner writing to schema.table.
func NewRunner(pool *pgbulk.Pool, schema, table string, cfg pgbulk.ProcessorConfig, logger zerolog.Logger) *Runner {
	return &Runner{
		Pool:   pool,
		Schema: schema,
		Table:  table,
		Config: cfg,
		Logger: logger,
	}
}

// OrderMapping binds every Order field to a column of the orders table.
func OrderMapping(schema, table string) (*pgbulk.Mapping[Order], error) {
	return pgbulk.NewMappingBuilder[Order](schema, table).
		MapBigInt("id", func(o Order) int64 { return o.ID }).
		MapText("customer", func(o Order) string { return o.Customer }).
		MapVarchar("email", func(o Order) string { return o.Email }).
		MapText("city", func(o Order) string { return o.City }).
		MapInteger("quantity", func(o Order) int32 { return o.Quantity }).
		Map("price", pgbulk.TypeNumeric, func(o Order) any { return o.Price }).
		MapBoolean("paid", func(o Order) bool { return o.Paid }).
		MapTimestampTz("created_at", func(o Order) time.Time { return o.CreatedAt }).
		Map("note", pgbulk.TypeText, pgbulk.Ptr(func(o Order) *string { return o.Note })).
		Build()
}

// CreateTableSQL returns the DDL recreating the orders table.
func CreateTableSQL(schema, table string) string {
	name := pgx.Identifier{schema, table}.Sanitize()
	return fmt.Sprintf(`
		DROP TABLE IF EXISTS %[1]s;
		CREATE TABLE %[1]s (
			id bigint NOT NULL,
			customer text NOT NULL,
			email varchar(255) NOT NULL,
			city text NOT NULL,
			quantity integer NOT NULL,
			price numeric(12, 2) NOT NULL,
			paid boolean NOT NULL,
			created_at timestamptz NOT NULL,
			note text
		)`, name)
}

// RunLoad recreates the table and loads orders through a Processor backed by
// a COPY handler.
func (r *Runner) RunLoad(ctx context.Context, orders []Order) (BenchmarkResult, error) {
	if _, err := r.Pool.Pgx().Exec(ctx, CreateTableSQL(r.Schema, r.Table)); err != nil {
		return BenchmarkResult{}, fmt.Errorf("failed to create table: %w", err)
	}
	m, err := OrderMapping(r.Schema, r.Table)
	if err != nil {
		return BenchmarkResult{}, err
	}

	handler := &countingHandler[Order]{next: pgbulk.NewCopyHandler(r.Pool, m)}
	p, err := pgbulk.NewProcessor[Order](handler, r.Config, pgbulk.WithProcessorLogger(r.Logger))
	if err != nil {
		return BenchmarkResult{}, err
	}

	snap := takeSnapshot()
	for _, o := range orders {
		if err := p.Add(ctx, o); err != nil {
			_ = p.Close(ctx)
			return BenchmarkResult{}, fmt.Errorf("failed to add order %d: %w", o.ID, err)
		}
	}
	if err := p.Close(ctx); err != nil {
		return BenchmarkResult{}, fmt.Errorf("failed to close processor: %w", err)
	}

	result := snap.finish("Processor COPY load", handler.records, handler.batches)
	r.Logger.Info().
		Int64("rows", result.TotalRows).
		Int64("batches", result.BatchCount).
		Dur("duration", result.Duration).
		Msg("load finished")
	return result, nil
}

// RunEncode encodes orders into a discarding sink, measuring the encoder alone.
func RunEncode(orders []Order) (BenchmarkResult, error) {
	m, err := OrderMapping("bench", "orders")
	if err != nil {
		return BenchmarkResult{}, err
	}

	sink := &countingWriter{}
	snap := takeSnapshot()
	rows, err := m.Encode(sink, orders)
	if err != nil {
		return BenchmarkResult{}, fmt.Errorf("failed to encode: %w", err)
	}
	result := snap.finish("Binary COPY encode", rows, 1)
	result.Bytes = sink.n
	return result, nil
}

type snapshot struct {
	mem   runtime.MemStats
	start time.Time
}

func takeSnapshot() snapshot {
	// Force GC to establish clean baseline
	runtime.GC()
	runtime.GC()

	var s snapshot
	runtime.ReadMemStats(&s.mem)
	s.start = time.Now()
	return s
}

func (s snapshot) finish(name string, rows, batches int64) BenchmarkResult {
	duration := time.Since(s.start)
	var after runtime.MemStats
	runtime.ReadMemStats(&after)

	result := BenchmarkResult{
		Name:       name,
		Duration:   duration,
		TotalRows:  rows,
		BatchCount: batches,
		MemoryStats: MemoryMetrics{
			TotalAllocs:    after.Mallocs - s.mem.Mallocs,
			BytesAllocated: after.TotalAlloc - s.mem.TotalAlloc,
			PeakAlloc:      after.HeapAlloc,
			HeapInUse:      after.HeapInuse,
		},
		GCStats: GCMetrics{
			TotalGCRuns:   after.NumGC - s.mem.NumGC,
			GCPauseNs:     after.PauseTotalNs - s.mem.PauseTotalNs,
			GCCPUFraction: after.GCCPUFraction,
		},
	}
	if duration > 0 {
		result.ThroughputRPS = float64(rows) / duration.Seconds()
	}
	if batches > 0 {
		result.AvgBatchSize = float64(rows) / float64(batches)
	}
	return result
}
