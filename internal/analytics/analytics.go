// Package analytics aggregates query traffic statistics in process. A
// buffered collector decouples the serving path from aggregation; tracking
// never blocks a request, and under pressure events are dropped rather than
// queued without bound.
package analytics

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/docsense/docsense/pkg/logger"
)

// maxLatencySamples bounds the retained latency window; percentiles cover
// recent traffic, not process lifetime.
const maxLatencySamples = 10000

// SearchEvent is one answered query.
type SearchEvent struct {
	Query     string    `json:"query"`
	Method    string    `json:"method"`
	TotalHits int       `json:"total_hits"`
	Returned  int       `json:"returned"`
	LatencyMs int64     `json:"latency_ms"`
	CacheHit  bool      `json:"cache_hit"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

// AggregatedStats is the payload served at /api/analytics.
type AggregatedStats struct {
	TotalSearches     int64            `json:"total_searches"`
	SearchesByMethod  map[string]int64 `json:"searches_by_method"`
	CacheHits         int64            `json:"cache_hits"`
	CacheMisses       int64            `json:"cache_misses"`
	ZeroResultCount   int64            `json:"zero_result_count"`
	AvgLatencyMs      float64          `json:"avg_latency_ms"`
	P50LatencyMs      int64            `json:"p50_latency_ms"`
	P95LatencyMs      int64            `json:"p95_latency_ms"`
	P99LatencyMs      int64            `json:"p99_latency_ms"`
	TopQueries        []QueryCount     `json:"top_queries"`
	ZeroResultQueries []QueryCount     `json:"zero_result_queries"`
	QueriesPerMinute  float64          `json:"queries_per_minute"`
}

// QueryCount pairs a query string with how often it was seen.
type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// Aggregator accumulates search events and summarizes them on demand.
type Aggregator struct {
	mu                sync.RWMutex
	totalSearches     atomic.Int64
	cacheHits         atomic.Int64
	cacheMisses       atomic.Int64
	zeroResults       atomic.Int64
	byMethod          map[string]int64
	latencies         []int64
	queryCounts       map[string]int64
	zeroResultQueries map[string]int64
	startTime         time.Time
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		byMethod:          make(map[string]int64),
		latencies:         make([]int64, 0, maxLatencySamples),
		queryCounts:       make(map[string]int64),
		zeroResultQueries: make(map[string]int64),
		startTime:         time.Now(),
	}
}

func (a *Aggregator) recordSearchEvent(event SearchEvent) {
	a.totalSearches.Add(1)

	if event.CacheHit {
		a.cacheHits.Add(1)
	} else {
		a.cacheMisses.Add(1)
	}
	if event.TotalHits == 0 {
		a.zeroResults.Add(1)
	}

	a.mu.Lock()
	if len(a.latencies) >= maxLatencySamples {
		a.latencies = append(a.latencies[:0], a.latencies[len(a.latencies)/2:]...)
	}
	a.latencies = append(a.latencies, event.LatencyMs)
	a.byMethod[event.Method]++
	a.queryCounts[event.Query]++
	if event.TotalHits == 0 {
		a.zeroResultQueries[event.Query]++
	}
	a.mu.Unlock()
}

// Stats summarizes everything recorded so far.
func (a *Aggregator) Stats() AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := AggregatedStats{
		TotalSearches:    a.totalSearches.Load(),
		SearchesByMethod: make(map[string]int64, len(a.byMethod)),
		CacheHits:        a.cacheHits.Load(),
		CacheMisses:      a.cacheMisses.Load(),
		ZeroResultCount:  a.zeroResults.Load(),
	}
	for method, count := range a.byMethod {
		stats.SearchesByMethod[method] = count
	}

	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}

	stats.TopQueries = topN(a.queryCounts, 10)
	stats.ZeroResultQueries = topN(a.zeroResultQueries, 10)

	elapsed := time.Since(a.startTime).Minutes()
	if elapsed > 0 {
		stats.QueriesPerMinute = float64(stats.TotalSearches) / elapsed
	}
	return stats
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func topN(counts map[string]int64, n int) []QueryCount {
	result := make([]QueryCount, 0, len(counts))
	for query, count := range counts {
		result = append(result, QueryCount{Query: query, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Query < result[j].Query
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}

// Collector feeds events to an Aggregator through a buffered channel.
type Collector struct {
	agg     *Aggregator
	eventCh chan SearchEvent
	log     *slog.Logger
	done    chan struct{}

	mu     sync.RWMutex
	closed bool
}

func NewCollector(agg *Aggregator, bufferSize int) *Collector {
	if bufferSize <= 0 {
		bufferSize = 1024
	}
	return &Collector{
		agg:     agg,
		eventCh: make(chan SearchEvent, bufferSize),
		log:     logger.WithComponent("analytics-collector"),
		done:    make(chan struct{}),
	}
}

// Start launches the consuming goroutine. It runs until Close is called or
// ctx is canceled; on cancellation the events already queued are drained.
func (c *Collector) Start(ctx context.Context) {
	go func() {
		defer close(c.done)
		for {
			select {
			case event, ok := <-c.eventCh:
				if !ok {
					return
				}
				c.agg.recordSearchEvent(event)
			case <-ctx.Done():
				c.drainRemaining()
				return
			}
		}
	}()
	c.log.Info("analytics collector started", "buffer_size", cap(c.eventCh))
}

// Track records an event without blocking. When the buffer is full, or the
// collector is already closed, the event is dropped. Requests that race a
// shutdown lose their event, never the process.
func (c *Collector) Track(event SearchEvent) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}
	select {
	case c.eventCh <- event:
	default:
		c.log.Warn("analytics event dropped (buffer full)")
	}
}

// Close stops the collector after the queued events are consumed. Safe to
// call more than once.
func (c *Collector) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()
	close(c.eventCh)
	<-c.done
}

func (c *Collector) drainRemaining() {
	for {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				return
			}
			c.agg.recordSearchEvent(event)
		default:
			return
		}
	}
}
