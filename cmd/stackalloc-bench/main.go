// Command stackalloc-bench drives an Allocator through a synthetic mix of
// allocations, deallocations and reallocations, and reports how many of
// each it managed to perform before exhausting memory (if ever).
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"
	"unsafe"

	"github.com/rs/zerolog"

	stackalloc "github.com/mb64/stack-alloc"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML file overriding the default size-category table")
	blocks := flag.Int("blocks", 0, "limit the backing memory source to this many 256 KiB blocks (0 = unlimited)")
	operations := flag.Int("operations", 100000, "number of allocate/deallocate/reallocate operations to perform")
	seed := flag.Int64("seed", 1, "random seed for the synthetic workload")
	verbose := flag.Bool("verbose", false, "log every operation at debug level instead of just the summary")
	flag.Parse()

	cfg := stackalloc.DefaultConfig()
	if *configPath != "" {
		loaded, err := stackalloc.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "stackalloc-bench: loading config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	level := zerolog.InfoLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	zl := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}).
		Level(level).
		With().Timestamp().Logger()
	logger := stackalloc.NewLogger(zl)

	source := newSource(cfg, *blocks)
	alloc := stackalloc.NewAllocator(source, cfg, logger)

	summary := runWorkload(alloc, *operations, *seed, &zl)
	zl.Info().
		Int("allocations", summary.allocations).
		Int("deallocations", summary.deallocations).
		Int("reallocations", summary.reallocations).
		Int("failures", summary.failures).
		Msg("workload complete")
}

func newSource(cfg stackalloc.Config, blocks int) stackalloc.BlockSource {
	if blocks <= 0 {
		return stackalloc.NewSimMemorySource(cfg)
	}
	return stackalloc.NewExhaustedMemorySource(cfg, blocks)
}

type liveAlloc struct {
	ptr  unsafe.Pointer
	size uintptr
}

type workloadSummary struct {
	allocations, deallocations, reallocations, failures int
}

// runWorkload performs a scenario of random-sized allocations, occasional
// reallocations, and deallocations of randomly chosen live allocations,
// then frees everything still live.
func runWorkload(alloc *stackalloc.Allocator, operations int, seed int64, zl *zerolog.Logger) workloadSummary {
	rng := rand.New(rand.NewSource(seed))
	var live []liveAlloc
	var summary workloadSummary

	sizes := []uintptr{4, 16, 48, 96, 300, 1000, 8000, 100000}

	for i := 0; i < operations; i++ {
		switch {
		case len(live) == 0 || rng.Intn(3) != 0:
			size := sizes[rng.Intn(len(sizes))]
			ptr, err := alloc.Allocate(size, 8)
			if err != nil {
				summary.failures++
				zl.Debug().Err(err).Uint64("size", uint64(size)).Msg("allocate failed")
				continue
			}
			summary.allocations++
			live = append(live, liveAlloc{ptr: ptr, size: size})

		case rng.Intn(2) == 0:
			idx := rng.Intn(len(live))
			a := live[idx]
			newSize := sizes[rng.Intn(len(sizes))]
			newPtr, err := alloc.Reallocate(a.ptr, a.size, newSize, 8)
			if err != nil {
				summary.failures++
				continue
			}
			summary.reallocations++
			live[idx] = liveAlloc{ptr: newPtr, size: newSize}

		default:
			idx := rng.Intn(len(live))
			a := live[idx]
			alloc.Deallocate(a.ptr, a.size, 8)
			summary.deallocations++
			live[idx] = live[len(live)-1]
			live = live[:len(live)-1]
		}
	}

	for _, a := range live {
		alloc.Deallocate(a.ptr, a.size, 8)
		summary.deallocations++
	}
	return summary
}
