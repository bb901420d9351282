// Package server exposes the data-entry engine over HTTP for the reporting portal.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/robfig/cron/v3"

	"github.com/julianstephens/banquet/internal/logger"
	"github.com/julianstephens/banquet/internal/service"
)

type Options struct {
	Listen string
	// RatePerSecond and Burst limit requests per client address. Zero disables limiting.
	RatePerSecond float64
	Burst         int
	// StatusCron, when set, logs the entry status board on that schedule.
	StatusCron string
	StatusDays int
	Location   *time.Location
}

type Server struct {
	engine  *service.Engine
	opts    Options
	router  chi.Router
	limiter *limiter
}

func New(engine *service.Engine, opts Options) *Server {
	s := &Server{engine: engine, opts: opts}
	if opts.RatePerSecond > 0 {
		s.limiter = newLimiter(opts.RatePerSecond, opts.Burst)
	}
	s.router = s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger)
	if s.limiter != nil {
		r.Use(s.limiter.middleware)
	}
	r.Use(withActor)

	r.Get("/health", s.health)
	r.Get("/status", s.status)

	r.Route("/hotels", func(r chi.Router) {
		r.Get("/", s.listHotels)
		r.With(requireAdmin).Post("/", s.addHotel)

		r.Route("/{hotelID}", func(r chi.Router) {
			r.Get("/", s.getHotel)
			r.Get("/next", s.nextSlot)
			r.Get("/records", s.listRecords)
			r.Get("/slots/{date}/{timing}", s.slotRecords)
			r.Post("/events", s.createEvent)
			r.Post("/no-event", s.markNoEvent)
			r.Post("/import", s.importCSV)

			r.Group(func(r chi.Router) {
				r.Use(requireAdmin)
				r.Put("/contract", s.seedContract)
				r.Post("/ballrooms", s.addBallroom)
				r.Patch("/ballrooms/{name}", s.renameBallroom)
				r.Delete("/ballrooms/{name}", s.removeBallroom)
				r.Post("/rollback", s.forceRollback)
				r.Post("/reconcile", s.reconcile)
			})
		})
	})

	r.Route("/records/{recordID}", func(r chi.Router) {
		r.Put("/", s.updateEvent)
		r.Delete("/", s.deleteRecord)
	})
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.opts.Listen,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	if s.limiter != nil {
		go s.limiter.sweep(ctx, time.Minute)
	}
	if s.opts.StatusCron != "" {
		c, err := s.startDigest()
		if err != nil {
			return err
		}
		defer c.Stop()
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server listening", "addr", s.opts.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

// startDigest schedules the status digest. Runs never overlap.
func (s *Server) startDigest() (*cron.Cron, error) {
	loc := s.opts.Location
	if loc == nil {
		loc = time.UTC
	}
	c := cron.New(cron.WithLocation(loc), cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	if _, err := c.AddFunc(s.opts.StatusCron, s.logDigest); err != nil {
		return nil, err
	}
	c.Start()
	logger.Info("Scheduled status digest", "cron", s.opts.StatusCron)
	return c, nil
}

func (s *Server) logDigest() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	board, err := s.engine.Status(ctx, "", s.opts.StatusDays)
	if err != nil {
		logger.Error("Status digest failed", "error", err)
		return
	}
	for _, row := range board.Rows {
		logger.Info("Entry status", "hotel", row.Hotel, "city", row.City, "status", row.Headline, "cursor", row.Cursor)
	}
}
