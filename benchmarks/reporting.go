package benchmarks

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Report renders a single run.
func (r BenchmarkResult) Report() string {
	var report strings.Builder

	report.WriteString(fmt.Sprintf("=== %s ===\n\n", r.Name))
	report.WriteString(fmt.Sprintf("Rows: %s\n", humanize.Comma(r.TotalRows)))
	report.WriteString(fmt.Sprintf("Duration: %v\n", r.Duration))
	report.WriteString(fmt.Sprintf("Throughput: %s rows/sec\n", formatRate(r.ThroughputRPS)))
	if r.Bytes > 0 && r.Duration > 0 {
		report.WriteString(fmt.Sprintf("Encoded: %s (%s/sec)\n",
			humanize.IBytes(uint64(r.Bytes)),
			humanize.IBytes(uint64(float64(r.Bytes)/r.Duration.Seconds()))))
	}
	if r.BatchCount > 0 {
		report.WriteString(fmt.Sprintf("Batches: %d (avg %.0f rows)\n", r.BatchCount, r.AvgBatchSize))
	}
	writeMemory(&report, r.MemoryStats, r.GCStats)
	return report.String()
}

// ReportResult renders the aggregate of several runs.
func (r StatisticalResult) ReportResult() string {
	var report strings.Builder

	report.WriteString("=== Performance Measurement Results ===\n\n")
	report.WriteString(fmt.Sprintf("Benchmark: %s\n", r.Name))
	report.WriteString(fmt.Sprintf("Sample Size: %d runs\n\n", r.Runs))

	report.WriteString("--- Throughput (rows/sec) ---\n")
	report.WriteString(fmt.Sprintf("Average: %s rows/sec (stddev %s)\n", formatRate(r.AvgThroughput), formatRate(r.StdDevRPS)))
	report.WriteString(fmt.Sprintf("Range: %s - %s rows/sec\n", formatRate(r.MinThroughput), formatRate(r.MaxThroughput)))

	report.WriteString("\n--- Duration ---\n")
	report.WriteString(fmt.Sprintf("Average: %v\n", r.AvgDuration))
	report.WriteString(fmt.Sprintf("Range: %v - %v\n", r.MinDuration, r.MaxDuration))

	report.WriteString("\n--- Batches ---\n")
	report.WriteString(fmt.Sprintf("Average Batch Size: %.0f rows\n", r.AvgBatchSize))
	report.WriteString(fmt.Sprintf("Average Batch Count: %d batches\n", r.AvgBatchCount))

	writeMemory(&report, r.AvgMemory, r.AvgGC)
	return report.String()
}

func writeMemory(report *strings.Builder, mem MemoryMetrics, gc GCMetrics) {
	report.WriteString("\n--- Memory Usage ---\n")
	report.WriteString(fmt.Sprintf("Allocations: %s\n", humanize.Comma(int64(mem.TotalAllocs))))
	report.WriteString(fmt.Sprintf("Bytes Allocated: %s\n", humanize.IBytes(mem.BytesAllocated)))
	report.WriteString(fmt.Sprintf("Peak Allocation: %s\n", humanize.IBytes(mem.PeakAlloc)))
	report.WriteString(fmt.Sprintf("Heap In Use: %s\n", humanize.IBytes(mem.HeapInUse)))

	report.WriteString("\n--- Garbage Collection ---\n")
	report.WriteString(fmt.Sprintf("GC Runs: %d\n", gc.TotalGCRuns))
	report.WriteString(fmt.Sprintf("GC Pause Time: %v\n", time.Duration(gc.GCPauseNs)))
	report.WriteString(fmt.Sprintf("GC CPU Fraction: %.4f%%\n", gc.GCCPUFraction*100))
}

// formatRate formats a rate with an SI suffix, e.g. "177.0k"
func formatRate(n float64) string {
	return humanize.SIWithDigits(n, 1, "")
}
