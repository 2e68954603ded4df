package config

import (
	"os"
	"time"

	"github.com/dustin/go-humanize"
)

// Size units.
const (
	KiB = 1 << 10
	MiB = 1 << 20
)

// Bench defaults.
const (
	// DefaultBenchSize is the number of elements pushed onto each list.
	DefaultBenchSize = 100_000
	// MaxBenchSize caps the number of elements per list.
	MaxBenchSize = 50_000_000
	// DefaultBenchLists is the number of lists exercised in parallel.
	DefaultBenchLists = 4
	// MaxBenchLists caps the number of lists per run.
	MaxBenchLists = 256
	// DefaultBenchTimeout bounds a single bench run.
	DefaultBenchTimeout = 2 * time.Minute
)

// Server settings.
const (
	DefaultServerPort       = "2242"
	ServerReadTimeout       = 30 * time.Second
	ServerReadHeaderTimeout = 3 * time.Second
	MaxRequestSize          = MiB
)

// BenchSize returns the default bench size, overridden by the PLS_BENCH_SIZE
// environment variable. The value may use SI suffixes ("250k", "1M").
func BenchSize() int {
	raw := os.Getenv("PLS_BENCH_SIZE")
	if raw == "" {
		return DefaultBenchSize
	}

	size, _, err := humanize.ParseSI(raw)
	if err != nil || size <= 0 || size > MaxBenchSize {
		return DefaultBenchSize
	}

	return int(size)
}
