// Command api serves the graph, location and corpus-statistics queries the
// dashboard reads.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/yberrad/newsgraph/internal/aggregate"
	"github.com/yberrad/newsgraph/internal/config"
	"github.com/yberrad/newsgraph/internal/elasticsearch"
	"github.com/yberrad/newsgraph/internal/graph"
	"github.com/yberrad/newsgraph/internal/logger"
)

func main() {
	log := logger.New("api")
	cfg, err := config.LoadAPI()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	esClient, err := elasticsearch.New(cfg.ElasticsearchAddr, cfg.ElasticsearchIndex, log)
	if err != nil {
		log.Error("init elasticsearch", slog.Any("err", err))
		os.Exit(1)
	}

	srv := &server{log: log, cfg: cfg, es: esClient}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", srv.handleHealth)
	r.Get("/graph", srv.handleGraph)
	r.Get("/locations", srv.handleLocations)
	r.Get("/stats/count", srv.handleCount)
	r.Get("/stats/sources", srv.handleSources)
	r.Get("/stats/histogram", srv.handleHistogram)
	r.Get("/stats/bounds", srv.handleBounds)

	httpServer := &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	go func() {
		log.Info("api server starting", slog.String("addr", cfg.BindAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", slog.Any("err", err))
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", slog.Any("err", err))
	}
}

type server struct {
	log *slog.Logger
	cfg *config.API
	es  *elasticsearch.Client
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.es.Health(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleGraph builds the co-occurrence graph for one day from the merged
// export tables. kinds is a comma-separated subset of 0 (organization to
// person), 1 (location to organization), 2 (person to location).
func (s *server) handleGraph(w http.ResponseWriter, r *http.Request) {
	day, err := time.Parse("2006-01-02", strings.TrimSpace(r.URL.Query().Get("date")))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "date must be YYYY-MM-DD"})
		return
	}

	rawKinds := strings.TrimSpace(r.URL.Query().Get("kinds"))
	if rawKinds == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "kinds is required"})
		return
	}

	kinds, err := graph.ParseKinds(rawKinds)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	elements, err := graph.BuildFromFiles(s.cfg.CSVDir, day, kinds)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, elements)
}

// handleLocations aggregates every resolved title location into
// frequency-ranked rows for the map layer.
func (s *server) handleLocations(w http.ResponseWriter, r *http.Request) {
	mentions, err := aggregate.CollectTitleMentions(r.Context(), s.es, s.cfg.ScrollPageSize)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, aggregate.TopLocations(mentions))
}

func (s *server) handleCount(w http.ResponseWriter, r *http.Request) {
	start, end, ok := parseRange(w, r)
	if !ok {
		return
	}

	count, err := s.es.CountDocuments(r.Context(), start, end)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"count": count})
}

func (s *server) handleSources(w http.ResponseWriter, r *http.Request) {
	start, end, ok := parseRange(w, r)
	if !ok {
		return
	}

	sources, err := s.es.SourceBreakdown(r.Context(), start, end)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, sources)
}

func (s *server) handleHistogram(w http.ResponseWriter, r *http.Request) {
	start, end, ok := parseRange(w, r)
	if !ok {
		return
	}

	interval := strings.TrimSpace(r.URL.Query().Get("interval"))
	switch interval {
	case "day", "week", "month", "year":
	case "":
		interval = "day"
	default:
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "interval must be day, week, month or year"})
		return
	}

	buckets, err := s.es.PublishedHistogram(r.Context(), start, end, interval)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, buckets)
}

func (s *server) handleBounds(w http.ResponseWriter, r *http.Request) {
	min, max, err := s.es.PublishedBounds(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"min": min.UTC().Format("2006-01-02"),
		"max": max.UTC().Format("2006-01-02"),
	})
}

// parseRange reads start and end query parameters (RFC3339 or YYYY-MM-DD).
func parseRange(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, bool) {
	start, ok := parseDate(r.URL.Query().Get("start"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "start must be RFC3339 or YYYY-MM-DD"})
		return time.Time{}, time.Time{}, false
	}

	end, ok := parseDate(r.URL.Query().Get("end"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "end must be RFC3339 or YYYY-MM-DD"})
		return time.Time{}, time.Time{}, false
	}

	return start, end, true
}

func parseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts, true
	}
	if ts, err := time.Parse("2006-01-02", raw); err == nil {
		return ts, true
	}
	return time.Time{}, false
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		// nothing better to do
	}
}
