package apihttp

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"clipstream/internal/domain"
	"clipstream/internal/urlinfo"
)

// DownloadManager is the admission-controlled task queue the API fronts.
type DownloadManager interface {
	QueueSize() int
	TentativeEnqueue() int
	Enqueue(task domain.Task)
}

// HistoryStore records and lists finished tasks. Optional.
type HistoryStore interface {
	Insert(ctx context.Context, entry domain.HistoryEntry) error
	ListRecent(ctx context.Context, limit int) ([]domain.HistoryEntry, error)
}

// DiskStatus reports whether the workspace filesystem is too full to accept
// new tasks. Optional.
type DiskStatus interface {
	Low() bool
}

type Server struct {
	manager   DownloadManager
	allowlist urlinfo.Allowlist
	history   HistoryStore
	disk      DiskStatus
	logger    *slog.Logger
	rateRPS   float64
	rateBurst int
	wsHub     *wsHub
	handler   http.Handler
}

type ServerOption func(*Server)

func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

func WithAllowlist(list urlinfo.Allowlist) ServerOption {
	return func(s *Server) {
		s.allowlist = list
	}
}

func WithHistory(store HistoryStore) ServerOption {
	return func(s *Server) {
		s.history = store
	}
}

func WithDiskStatus(status DiskStatus) ServerOption {
	return func(s *Server) {
		s.disk = status
	}
}

func WithRateLimit(rps float64, burst int) ServerOption {
	return func(s *Server) {
		s.rateRPS = rps
		s.rateBurst = burst
	}
}

func NewServer(manager DownloadManager, opts ...ServerOption) *Server {
	s := &Server{
		manager:   manager,
		allowlist: urlinfo.Allowlist{},
		logger:    slog.Default(),
		rateRPS:   10,
		rateBurst: 20,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.wsHub = newWSHub(s.logger)
	go s.wsHub.run()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /downloads", s.handleCreateDownload)
	mux.HandleFunc("GET /queue", s.handleQueue)
	mux.HandleFunc("GET /history", s.handleHistory)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /ws", s.handleWS)
	mux.Handle("GET /metrics", promhttp.Handler())

	var handler http.Handler = mux
	handler = rateLimitMiddleware(s.rateRPS, s.rateBurst, handler)
	handler = metricsMiddleware(handler)
	handler = loggingMiddleware(s.logger, handler)
	handler = recoveryMiddleware(s.logger, handler)
	s.handler = otelhttp.NewHandler(handler, "clipstream-api")

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Close disconnects WebSocket clients. Safe to call once during shutdown.
func (s *Server) Close() {
	s.wsHub.Close()
}
