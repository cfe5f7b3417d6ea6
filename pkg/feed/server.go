package feed

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/ringmast4r/traffic-globe/pkg/traffic"
)

// maxPostBytes caps the body of POST /api.
const maxPostBytes = 8 << 20

// Server exposes a History over HTTP the way the dashboard polls it.
type Server struct {
	history   *History
	metrics   *Metrics
	logger    *slog.Logger
	accessLog io.Writer
}

// NewServer builds a server. accessLog receives one combined-format line
// per request; nil disables access logging.
func NewServer(history *History, metrics *Metrics, logger *slog.Logger, accessLog io.Writer) *Server {
	if metrics == nil {
		metrics = NewMetrics()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{history: history, metrics: metrics, logger: logger, accessLog: accessLog}
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	r.Handle("/data", s.metrics.WrapHandler("data", http.HandlerFunc(s.handleData))).Methods("GET")
	r.Handle("/api", s.metrics.WrapHandler("api", http.HandlerFunc(s.handlePost))).Methods("POST")
	r.HandleFunc("/health", s.handleHealth).Methods("GET")
	r.Handle("/metrics", s.metrics.Handler()).Methods("GET")

	return r
}

// Handler is the router with CORS open to any origin and, when configured,
// access logging.
func (s *Server) Handler() http.Handler {
	var h http.Handler = handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)(s.Router())
	if s.accessLog != nil {
		h = handlers.LoggingHandler(s.accessLog, h)
	}
	return h
}

func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("time")
	if raw == "" {
		http.Error(w, "missing time parameter", http.StatusBadRequest)
		return
	}
	since, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid time parameter %q", raw), http.StatusBadRequest)
		return
	}

	events := s.history.Since(since)
	s.metrics.Served(len(events))
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	var batch []traffic.Event
	if err := json.NewDecoder(io.LimitReader(r.Body, maxPostBytes)).Decode(&batch); err != nil {
		http.Error(w, "body must be a JSON array of events", http.StatusBadRequest)
		return
	}

	valid := batch[:0]
	for _, e := range batch {
		if err := e.Validate(); err != nil {
			s.logger.Warn("rejecting posted event", "ip", e.IP, "time", e.Time, "error", err)
			continue
		}
		valid = append(valid, e)
	}
	rejected := len(batch) - len(valid)

	s.Ingest(valid)
	s.metrics.Invalid(rejected)

	writeJSON(w, http.StatusOK, map[string]int{"accepted": len(valid), "rejected": rejected})
}

// Ingest appends a validated batch to the history and updates the metrics.
func (s *Server) Ingest(batch []traffic.Event) {
	if len(batch) == 0 {
		return
	}
	s.history.Append(batch)
	s.metrics.Ingested(traffic.Partition(batch))
	s.metrics.SetHistorySize(s.history.Len())
	s.logger.Debug("events ingested", "count", len(batch), "latest", s.history.Latest())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "events": s.history.Len()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
