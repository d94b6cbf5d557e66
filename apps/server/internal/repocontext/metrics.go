package repocontext

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrName = "github.com/mwestphal/quill"

// filterMetrics holds the OTel business metrics emitted by the filter.
type filterMetrics struct {
	cacheHits       metric.Int64Counter
	cacheMisses     metric.Int64Counter
	refreshes       metric.Int64Counter
	refreshDuration metric.Float64Histogram
	filesCached     metric.Int64Counter
}

func newFilterMetrics() *filterMetrics {
	m := otel.Meter(instrName)

	cacheHits, _ := m.Int64Counter("quill.repocontext.cache.hits",
		metric.WithDescription("Turns served from a fresh cached snapshot"))
	cacheMisses, _ := m.Int64Counter("quill.repocontext.cache.misses",
		metric.WithDescription("Turns that required a repository refresh"))
	refreshes, _ := m.Int64Counter("quill.repocontext.refreshes",
		metric.WithDescription("Repository refresh attempts by outcome"))
	refreshDuration, _ := m.Float64Histogram("quill.repocontext.refresh.duration",
		metric.WithDescription("Repository refresh duration in milliseconds"),
		metric.WithUnit("ms"))
	filesCached, _ := m.Int64Counter("quill.repocontext.files.cached",
		metric.WithDescription("Files included in completed snapshots"))

	return &filterMetrics{
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		refreshes:       refreshes,
		refreshDuration: refreshDuration,
		filesCached:     filesCached,
	}
}

func (m *filterMetrics) recordRefresh(ctx context.Context, outcome string, elapsed time.Duration, files int) {
	m.refreshes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	m.refreshDuration.Record(ctx, float64(elapsed.Milliseconds()))
	if files > 0 {
		m.filesCached.Add(ctx, int64(files))
	}
}
