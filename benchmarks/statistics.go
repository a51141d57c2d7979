package benchmarks

import (
	"context"
	"fmt"
	"math"
	"slices"
	"time"
)

// StatisticalResult aggregates multiple benchmark runs
type StatisticalResult struct {
	Name          string
	Runs          int
	AvgDuration   time.Duration
	MinDuration   time.Duration
	MaxDuration   time.Duration
	AvgThroughput float64
	MinThroughput float64
	MaxThroughput float64
	StdDevRPS     float64
	AvgBatchSize  float64
	AvgBatchCount int64
	AvgMemory     MemoryMetrics
	AvgGC         GCMetrics
}

// RunStatisticalBenchmark loads orders runs times and aggregates the results.
func (r *Runner) RunStatisticalBenchmark(ctx context.Context, orders []Order, runs int) (StatisticalResult, error) {
	if runs < 1 {
		return StatisticalResult{}, fmt.Errorf("runs must be at least 1, got %d", runs)
	}

	results := make([]BenchmarkResult, runs)
	for i := range results {
		result, err := r.RunLoad(ctx, orders)
		if err != nil {
			return StatisticalResult{}, fmt.Errorf("run %d failed: %w", i+1, err)
		}
		results[i] = result
	}
	return calculateStatistics(fmt.Sprintf("%s (n=%d)", results[0].Name, runs), results), nil
}

// calculateStatistics computes min/max/average figures over runs
func calculateStatistics(name string, results []BenchmarkResult) StatisticalResult {
	if len(results) == 0 {
		return StatisticalResult{}
	}

	stats := StatisticalResult{
		Name:          name,
		Runs:          len(results),
		MinDuration:   results[0].Duration,
		MaxDuration:   results[0].Duration,
		MinThroughput: results[0].ThroughputRPS,
		MaxThroughput: results[0].ThroughputRPS,
	}

	var (
		totalDuration   time.Duration
		totalThroughput float64
		totalBatchSize  float64
		totalBatches    int64
		mem             MemoryMetrics
		gc              GCMetrics
		gcFraction      float64
		throughputs     = make([]float64, 0, len(results))
	)
	for _, r := range results {
		totalDuration += r.Duration
		totalThroughput += r.ThroughputRPS
		totalBatchSize += r.AvgBatchSize
		totalBatches += r.BatchCount
		throughputs = append(throughputs, r.ThroughputRPS)

		stats.MinDuration = min(stats.MinDuration, r.Duration)
		stats.MaxDuration = max(stats.MaxDuration, r.Duration)
		stats.MinThroughput = min(stats.MinThroughput, r.ThroughputRPS)
		stats.MaxThroughput = max(stats.MaxThroughput, r.ThroughputRPS)

		mem.TotalAllocs += r.MemoryStats.TotalAllocs
		mem.BytesAllocated += r.MemoryStats.BytesAllocated
		mem.PeakAlloc += r.MemoryStats.PeakAlloc
		mem.HeapInUse += r.MemoryStats.HeapInUse
		gc.TotalGCRuns += r.GCStats.TotalGCRuns
		gc.GCPauseNs += r.GCStats.GCPauseNs
		gcFraction += r.GCStats.GCCPUFraction
	}

	n := len(results)
	stats.AvgDuration = totalDuration / time.Duration(n)
	stats.AvgThroughput = totalThroughput / float64(n)
	stats.StdDevRPS = CalculateStandardDeviation(throughputs)
	stats.AvgBatchSize = totalBatchSize / float64(n)
	stats.AvgBatchCount = totalBatches / int64(n)
	stats.AvgMemory = MemoryMetrics{
		TotalAllocs:    mem.TotalAllocs / uint64(n),
		BytesAllocated: mem.BytesAllocated / uint64(n),
		PeakAlloc:      mem.PeakAlloc / uint64(n),
		HeapInUse:      mem.HeapInUse / uint64(n),
	}
	stats.AvgGC = GCMetrics{
		TotalGCRuns:   gc.TotalGCRuns / uint32(n),
		GCPauseNs:     gc.GCPauseNs / uint64(n),
		GCCPUFraction: gcFraction / float64(n),
	}
	return stats
}

// CalculateStandardDeviation computes the sample standard deviation
func CalculateStandardDeviation(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var varianceSum float64
	for _, v := range values {
		diff := v - mean
		varianceSum += diff * diff
	}
	return math.Sqrt(varianceSum / float64(len(values)-1))
}

// CalculateConfidenceInterval computes a 95% confidence interval. Small
// samples use percentiles, larger ones the standard error. values is not modified.
func CalculateConfidenceInterval(values []float64) (lower, upper float64) {
	n := len(values)
	if n < 2 {
		return 0, 0
	}

	if n < 30 {
		sorted := slices.Clone(values)
		slices.Sort(sorted)
		lowerIdx := int(0.025 * float64(n))
		upperIdx := min(int(0.975*float64(n)), n-1)
		return sorted[lowerIdx], sorted[upperIdx]
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(n)
	margin := 1.96 * CalculateStandardDeviation(values) / math.Sqrt(float64(n))
	return mean - margin, mean + margin
}
