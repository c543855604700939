package web

import (
	"context"
	"fmt"
	"net/http"

	"github.com/vitos/index_ratio_monitor/internal/domain"
	"github.com/vitos/index_ratio_monitor/internal/usecase"
	"go.uber.org/zap"
)

type Server struct {
	router     *http.ServeMux
	server     *http.Server
	store      *usecase.RatioStore
	dispatcher *usecase.Dispatcher
	crossings  domain.CrossingRepository
	logger     *zap.Logger
}

func NewServer(
	port int,
	store *usecase.RatioStore,
	dispatcher *usecase.Dispatcher,
	crossings domain.CrossingRepository,
	logger *zap.Logger,
) *Server {
	s := &Server{
		router:     http.NewServeMux(),
		store:      store,
		dispatcher: dispatcher,
		crossings:  crossings,
		logger:     logger,
	}
	s.routes()
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.router,
	}
	return s
}

func (s *Server) routes() {
	// Dashboard
	s.router.HandleFunc("GET /", s.handleDashboard)

	// State (JSON for Apps Script / Power Query, CSV for =IMPORTDATA)
	s.router.HandleFunc("GET /api/state", s.handleStateJSON)
	s.router.HandleFunc("GET /api/state.csv", s.handleStateCSV)

	// Live stream for the dashboard
	s.router.HandleFunc("GET /api/stream", s.handleStream)

	// Crossing history
	s.router.HandleFunc("GET /api/crossings", s.handleCrossings)

	// Status
	s.router.HandleFunc("GET /status", s.handleStatus)
}

func (s *Server) Start() error {
	s.logger.Info("Starting web server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
