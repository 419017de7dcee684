package simd

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/GoSim-25-26J-441/queue-sim/internal/metrics"
	"github.com/GoSim-25-26J-441/queue-sim/pkg/config"
	"github.com/GoSim-25-26J-441/queue-sim/pkg/logger"
	"github.com/GoSim-25-26J-441/queue-sim/pkg/models"
)

// maxBodyBytes caps request bodies
const maxBodyBytes = 1 << 20

type HTTPServer struct {
	mux     *http.ServeMux
	service *Service
}

func NewHTTPServer(service *Service) *HTTPServer {
	s := &HTTPServer{
		mux:     http.NewServeMux(),
		service: service,
	}

	s.mux.HandleFunc("/healthz", s.handleHealthz)
	s.mux.HandleFunc("/v1/simulate", s.handleSimulate)
	s.mux.HandleFunc("/v1/runs", s.handleRuns)
	s.mux.HandleFunc("/v1/runs/", s.handleRunByID)

	return s
}

func (s *HTTPServer) Handler() http.Handler {
	return s.mux
}

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"runs":      s.service.Store.Len(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleSimulate handles POST /v1/simulate: a synchronous run that is not stored
func (s *HTTPServer) handleSimulate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	req, err := decodeCreateRequest(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	scenario, err := req.ParseScenario()
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	out, err := s.service.Executor.Simulate(r.Context(), scenario)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"result": out.Result})
}

// handleRuns handles /v1/runs endpoint
func (s *HTTPServer) handleRuns(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateRun(w, r)
	case http.MethodGet:
		s.handleListRuns(w, r)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleRunByID handles /v1/runs/{id} and related endpoints
func (s *HTTPServer) handleRunByID(w http.ResponseWriter, r *http.Request) {
	// /v1/runs/{id}, /v1/runs/{id}:start, /v1/runs/{id}:stop, /v1/runs/{id}/result, ...
	path := strings.TrimPrefix(r.URL.Path, "/v1/runs/")
	if path == "" {
		s.writeError(w, http.StatusBadRequest, "run ID is required")
		return
	}

	type route struct {
		suffix  string
		method  string
		handler func(http.ResponseWriter, *http.Request, string)
	}
	routes := []route{
		{":start", http.MethodPost, s.handleStartRun},
		{":stop", http.MethodPost, s.handleStopRun},
		{"/result", http.MethodGet, s.handleGetResult},
		{"/metrics", http.MethodGet, s.handleGetRunMetrics},
		{"/timeseries", http.MethodGet, s.handleTimeSeries},
	}
	for _, rt := range routes {
		if !strings.HasSuffix(path, rt.suffix) {
			continue
		}
		if r.Method != rt.method {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		rt.handler(w, r, strings.TrimSuffix(path, rt.suffix))
		return
	}

	if strings.ContainsAny(path, "/:") {
		s.writeError(w, http.StatusNotFound, "unknown endpoint")
		return
	}
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.handleGetRun(w, r, path)
}

// decodeCreateRequest reads a JSON create body, or a raw YAML scenario when
// the content type says so.
func decodeCreateRequest(r *http.Request) (*CreateRunRequest, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	ct := r.Header.Get("Content-Type")
	if strings.Contains(ct, "yaml") {
		q := r.URL.Query()
		return &CreateRunRequest{
			RunID:        q.Get("run_id"),
			ScenarioYAML: string(body),
			CallbackURL:  q.Get("callback_url"),
			Start:        q.Get("start") == "true",
		}, nil
	}
	var req CreateRunRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, errors.New("invalid request body: " + err.Error())
	}
	return &req, nil
}

// handleCreateRun handles POST /v1/runs
func (s *HTTPServer) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCreateRequest(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rec, err := s.service.CreateRun(req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	logger.Info("run created (HTTP)", "run_id", rec.Run.ID, "model", rec.Run.Model)
	s.writeJSON(w, http.StatusCreated, map[string]any{"run": rec.Run})
}

// handleListRuns handles GET /v1/runs with pagination and filtering
func (s *HTTPServer) handleListRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 50
	if parsed, err := strconv.Atoi(q.Get("limit")); err == nil && parsed > 0 {
		limit = min(parsed, 1000)
	}
	offset := 0
	if parsed, err := strconv.Atoi(q.Get("offset")); err == nil && parsed >= 0 {
		offset = parsed
	}
	status, err := ParseRunStatus(q.Get("status"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	recs := s.service.Store.List(limit, offset, status)
	runs := make([]*models.Run, 0, len(recs))
	for _, rec := range recs {
		runs = append(runs, rec.Run)
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"runs": runs,
		"pagination": map[string]any{
			"limit":  limit,
			"offset": offset,
			"count":  len(runs),
		},
	})
}

// handleGetRun handles GET /v1/runs/{id}
func (s *HTTPServer) handleGetRun(w http.ResponseWriter, _ *http.Request, runID string) {
	rec, ok := s.service.Store.Get(runID)
	if !ok {
		s.writeError(w, http.StatusNotFound, "run not found")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"run":      rec.Run,
		"scenario": rec.Scenario,
	})
}

// handleStartRun handles POST /v1/runs/{id}:start
func (s *HTTPServer) handleStartRun(w http.ResponseWriter, _ *http.Request, runID string) {
	updated, err := s.service.Executor.Start(runID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	logger.Info("run started (HTTP)", "run_id", runID)
	s.writeJSON(w, http.StatusOK, map[string]any{"run": updated.Run})
}

// handleStopRun handles POST /v1/runs/{id}:stop
func (s *HTTPServer) handleStopRun(w http.ResponseWriter, _ *http.Request, runID string) {
	updated, err := s.service.Executor.Stop(runID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	logger.Info("run cancelled (HTTP)", "run_id", runID)
	s.writeJSON(w, http.StatusOK, map[string]any{"run": updated.Run})
}

// handleGetResult handles GET /v1/runs/{id}/result
func (s *HTTPServer) handleGetResult(w http.ResponseWriter, _ *http.Request, runID string) {
	result, err := s.service.GetResult(runID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"result": result})
}

// handleGetRunMetrics handles GET /v1/runs/{id}/metrics
func (s *HTTPServer) handleGetRunMetrics(w http.ResponseWriter, _ *http.Request, runID string) {
	collector, ok := s.collector(w, runID)
	if !ok {
		return
	}
	summary := collector.GetSummary()
	s.writeJSON(w, http.StatusOK, map[string]any{
		"run_id":       runID,
		"start_time":   summary.StartTime,
		"end_time":     summary.EndTime,
		"aggregations": summary.Aggregations,
	})
}

// handleTimeSeries handles GET /v1/runs/{id}/timeseries?metric=&start_time=&end_time=
func (s *HTTPServer) handleTimeSeries(w http.ResponseWriter, r *http.Request, runID string) {
	collector, ok := s.collector(w, runID)
	if !ok {
		return
	}

	q := r.URL.Query()
	start, err := parseSimTime(q.Get("start_time"), math.Inf(-1))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid start_time: "+err.Error())
		return
	}
	end, err := parseSimTime(q.Get("end_time"), math.Inf(1))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid end_time: "+err.Error())
		return
	}

	names := collector.GetMetricNames()
	if name := q.Get("metric"); name != "" {
		names = []string{name}
	}
	labels := map[string]string{"run_id": runID}
	series := make(map[string][]*models.MetricPoint, len(names))
	for _, name := range names {
		points := collector.GetTimeSeries(name, labels)
		filtered := make([]*models.MetricPoint, 0, len(points))
		for _, p := range points {
			if p.SimTime >= start && p.SimTime <= end {
				filtered = append(filtered, p)
			}
		}
		series[name] = filtered
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"run_id": runID,
		"series": series,
	})
}

// collector looks up the run's collector and writes the error response itself
func (s *HTTPServer) collector(w http.ResponseWriter, runID string) (*metrics.Collector, bool) {
	rec, ok := s.service.Store.Get(runID)
	if !ok {
		s.writeError(w, http.StatusNotFound, "run not found")
		return nil, false
	}
	if rec.Collector == nil {
		s.writeError(w, http.StatusPreconditionFailed, "metrics not available")
		return nil, false
	}
	return rec.Collector, true
}

func parseSimTime(raw string, fallback float64) (float64, error) {
	if raw == "" {
		return fallback, nil
	}
	return strconv.ParseFloat(raw, 64)
}

// writeServiceError maps domain errors onto HTTP status codes
func (s *HTTPServer) writeServiceError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrBadRequest), errors.Is(err, config.ErrInvalidScenario), errors.Is(err, ErrRunIDMissing):
		status = http.StatusBadRequest
	case errors.Is(err, ErrRunNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrRunExists), errors.Is(err, ErrRunTerminal):
		status = http.StatusConflict
	case errors.Is(err, ErrResultUnavailable):
		status = http.StatusPreconditionFailed
	case errors.Is(err, ErrStoreFull), errors.Is(err, ErrShuttingDown):
		status = http.StatusServiceUnavailable
	}
	s.writeError(w, status, err.Error())
}

func (s *HTTPServer) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", "error", err)
	}
}

func (s *HTTPServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]any{
		"error": message,
	})
}
