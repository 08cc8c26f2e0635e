// Package debug logs runtime and cache statistics while config.Debug is set.
// It exists to tell image buffer growth apart from goroutine leaks.
package debug

import (
	"context"
	"log/slog"
	"runtime"
	"runtime/metrics"
	"sort"
	"time"
)

// Gauge reports one application value, e.g. the processed-image cache size.
type Gauge func() int

// StartStatsLogger logs goroutine, heap and RSS figures plus every gauge at
// interval until ctx is done.
func StartStatsLogger(ctx context.Context, interval time.Duration, logger *slog.Logger, gauges map[string]Gauge) {
	if logger == nil {
		return
	}
	if interval <= 0 {
		interval = 2 * time.Second
	}
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		var rssErrLogged bool
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
			}
			attrs, err := collect(gauges)
			if err != nil && !rssErrLogged {
				logger.Warn("debug.rss unavailable", "error", err)
				rssErrLogged = true
			}
			logger.LogAttrs(ctx, slog.LevelInfo, "debug.stats", attrs...)
		}
	}()
}

func collect(gauges map[string]Gauge) ([]slog.Attr, error) {
	samples := []metrics.Sample{{Name: "/sched/goroutines:goroutines"}}
	metrics.Read(samples)
	var goroutines uint64
	if samples[0].Value.Kind() == metrics.KindUint64 {
		goroutines = samples[0].Value.Uint64()
	}
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	rss, err := residentSetSize()
	attrs := []slog.Attr{
		slog.Uint64("goroutines", goroutines),
		slog.Uint64("heap_alloc", ms.HeapAlloc),
		slog.Uint64("heap_inuse", ms.HeapInuse),
		slog.Uint64("stack_inuse", ms.StackInuse),
		slog.Uint64("num_gc", uint64(ms.NumGC)),
		slog.Uint64("rss", rss),
	}
	names := make([]string, 0, len(gauges))
	for name := range gauges {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if g := gauges[name]; g != nil {
			attrs = append(attrs, slog.Int(name, g()))
		}
	}
	return attrs, err
}
