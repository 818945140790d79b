package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/docsense/docsense/internal/analytics"
	"github.com/docsense/docsense/internal/cache"
	"github.com/docsense/docsense/internal/model"
	"github.com/docsense/docsense/internal/rank"
	apperrors "github.com/docsense/docsense/pkg/errors"
	"github.com/docsense/docsense/pkg/logger"
	"github.com/docsense/docsense/pkg/metrics"
	"github.com/docsense/docsense/pkg/middleware"
)

// maxQueryBytes bounds the search request body. Queries are typed by a
// person; anything past this is not a query.
const maxQueryBytes = 1 << 20

// SearchEngine is the slice of the engine the handlers need.
type SearchEngine interface {
	Search(query string, method rank.Method) ([]model.SearchResult, error)
	Stats() model.Stats
	Version() uint64
	DefaultMethod() rank.Method
}

// Handler serves the query API.
type Handler struct {
	engine     SearchEngine
	cache      *cache.QueryCache
	collector  *analytics.Collector
	aggregator *analytics.Aggregator
	maxResults int
	metrics    *metrics.Metrics
	log        *slog.Logger
}

func NewHandler(
	engine SearchEngine,
	queryCache *cache.QueryCache,
	collector *analytics.Collector,
	aggregator *analytics.Aggregator,
	maxResults int,
	m *metrics.Metrics,
) *Handler {
	return &Handler{
		engine:     engine,
		cache:      queryCache,
		collector:  collector,
		aggregator: aggregator,
		maxResults: maxResults,
		metrics:    m,
		log:        logger.WithComponent("http"),
	}
}

// Search answers POST /api/search. The request body is the raw UTF-8 query
// string; the optional ?method= parameter overrides the configured rank
// method for this one query. The response is the ranked list, zero scores
// dropped, truncated to the configured cap.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxQueryBytes))
	if err != nil {
		h.writeError(w, apperrors.New(apperrors.ErrInvalidBody, http.StatusBadRequest, "cannot read request body"))
		return
	}
	if len(body) == 0 {
		h.writeError(w, apperrors.New(apperrors.ErrEmptyQuery, http.StatusBadRequest, "request body must contain the query"))
		return
	}
	if !utf8.Valid(body) {
		h.writeError(w, apperrors.New(apperrors.ErrInvalidBody, http.StatusBadRequest, "request body is not valid utf-8"))
		return
	}
	query := string(body)

	method := h.engine.DefaultMethod()
	if v := r.URL.Query().Get("method"); v != "" {
		method, err = rank.ParseMethod(v)
		if err != nil {
			h.writeError(w, apperrors.Newf(apperrors.ErrInvalidBody, http.StatusBadRequest, "unknown rank method %q", v))
			return
		}
	}

	results, cacheHit, err := h.cache.GetOrCompute(ctx, query, method, h.maxResults, h.engine.Version(),
		func() ([]model.SearchResult, error) {
			ranked, err := h.engine.Search(query, method)
			if err != nil {
				return nil, err
			}
			return clip(ranked, h.maxResults), nil
		})
	if err != nil {
		log.Error("search failed", "query", query, "error", err)
		h.writeError(w, err)
		return
	}

	elapsed := time.Since(start)
	h.metrics.SearchesTotal.WithLabelValues(method.String()).Inc()
	h.metrics.SearchDuration.WithLabelValues(cacheStatus(h.cache, cacheHit)).Observe(elapsed.Seconds())
	h.metrics.SearchResultsCount.Observe(float64(len(results)))

	log.Info("search completed",
		"query", query,
		"method", method,
		"returned", len(results),
		"cache_hit", cacheHit,
		"duration", elapsed,
	)
	if h.collector != nil {
		h.collector.Track(analytics.SearchEvent{
			Query:     query,
			Method:    method.String(),
			TotalHits: len(results),
			Returned:  len(results),
			LatencyMs: elapsed.Milliseconds(),
			CacheHit:  cacheHit,
			Timestamp: time.Now().UTC(),
			RequestID: middleware.GetRequestID(ctx),
		})
	}

	h.writeJSON(w, http.StatusOK, results)
}

// Stats answers GET /api/stats with the current index size.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.engine.Stats())
}

// Analytics answers GET /api/analytics with aggregated query traffic.
func (h *Handler) Analytics(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.aggregator.Stats())
}

// clip drops zero scores and truncates. The ranked list is sorted best
// first, so zero scores occupy a suffix.
func clip(results []model.SearchResult, limit int) []model.SearchResult {
	clipped := make([]model.SearchResult, 0, limit)
	for _, result := range results {
		if result.Score <= 0 {
			break
		}
		clipped = append(clipped, result)
		if len(clipped) == limit {
			break
		}
	}
	return clipped
}

func cacheStatus(c *cache.QueryCache, hit bool) string {
	switch {
	case !c.Enabled():
		return "bypass"
	case hit:
		return "hit"
	default:
		return "miss"
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.log.Error("writing response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
