package v1

import (
	"context"
	"net"
	"net/http"

	"github.com/galenhq/partner_ingest/internal/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Server struct {
	httpServer *http.Server
}

func NewServer(cfg config.HTTP, recordsRepo RecordsRepository, ingestionsRepo IngestionsRepository) *Server {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	h := NewIngestHandler(recordsRepo, ingestionsRepo)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/ingestions", h.GetIngestions)
		r.Get("/records/{source_file}", h.GetRecordsByFile)
	})

	return &Server{
		httpServer: &http.Server{
			Addr:         net.JoinHostPort(cfg.Host, cfg.Port),
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
			Handler:      r,
		},
	}
}

func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
