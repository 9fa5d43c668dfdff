// Package server exposes cycle preparation over HTTP for workflow schedulers.
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"marineprep/internal/config"
	"marineprep/internal/runlog"
)

// ErrRunInProgress is returned when a prep is requested while another runs.
var ErrRunInProgress = errors.New("a cycle preparation is already running")

// RunFunc prepares the cycle cdate.
type RunFunc func(ctx context.Context, cdate string) error

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 500
)

// Server runs at most one preparation at a time.
type Server struct {
	Echo *echo.Echo

	cfg      config.ServerConfig
	log      *zap.SugaredLogger
	run      RunFunc
	recorder runlog.Recorder

	mu      sync.Mutex
	running string
	wg      sync.WaitGroup
}

// New builds the server and registers its routes. recorder may be nil.
func New(cfg config.ServerConfig, log *zap.SugaredLogger, run RunFunc, recorder runlog.Recorder) *Server {
	if recorder == nil {
		recorder = runlog.Nop{}
	}
	s := &Server{
		Echo:     echo.New(),
		cfg:      cfg,
		log:      log,
		run:      run,
		recorder: recorder,
	}
	e := s.Echo
	e.HideBanner = true
	e.HidePort = true

	e.Use(CustomRequestLogger(log))
	e.Use(middleware.Recover())
	if cfg.RateLimit > 0 {
		e.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(
			rate.Limit(cfg.RateLimit),
		)))
	}

	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})
	e.POST("/api/prep-cycle", s.handlePrepCycle)
	e.GET("/api/runs", s.handleGetRuns)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	return s
}

// Start listens on the configured bind address until Shutdown.
func (s *Server) Start() error {
	s.log.Infow("Server starting", "bind", "\x1b[36m"+s.cfg.Bind+"\x1b[0m")
	if err := s.Echo.Start(s.cfg.Bind); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for a running prep to finish.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.Echo.Shutdown(ctx)
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return errors.Join(err, ctx.Err())
	}
	return err
}

// Running returns the cycle being prepared, or "".
func (s *Server) Running() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Server) begin(cdate string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running != "" {
		return ErrRunInProgress
	}
	s.running = cdate
	s.wg.Add(1)
	return nil
}

func (s *Server) end() {
	s.mu.Lock()
	s.running = ""
	s.mu.Unlock()
	s.wg.Done()
}

// handlePrepCycle starts a preparation in the background and returns 202.
func (s *Server) handlePrepCycle(c echo.Context) error {
	type PrepRequest struct {
		CDate string `json:"cdate"` // YYYYMMDDHH
	}

	var req PrepRequest
	if err := c.Bind(&req); err != nil {
		s.log.Warnw("Error parsing request body", "error", err)
		return s.respondWithError(c, http.StatusBadRequest, "Invalid request format")
	}
	req.CDate = strings.TrimSpace(req.CDate)
	if _, err := time.Parse(config.CycleDateLayout, req.CDate); err != nil {
		return s.respondWithError(c, http.StatusBadRequest, "cdate must be YYYYMMDDHH")
	}

	if err := s.begin(req.CDate); err != nil {
		return s.respondWithError(c, http.StatusConflict, err.Error()+" ("+s.Running()+")")
	}
	s.log.Infow("Received prep request", "cdate", req.CDate)

	go func() {
		defer s.end()
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.RunTimeout())
		defer cancel()

		if err := s.run(ctx, req.CDate); err != nil {
			s.log.Errorw("Cycle preparation failed", "cdate", req.CDate, "error", err)
			return
		}
		s.log.Infow("Cycle preparation finished", "cdate", req.CDate)
	}()

	return respondWithJSON(c, http.StatusAccepted, map[string]string{
		"message": "cycle preparation started",
		"status":  "accepted",
		"cdate":   req.CDate,
	})
}

func (s *Server) handleGetRuns(c echo.Context) error {
	limit := defaultRunsLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return s.respondWithError(c, http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = min(n, maxRunsLimit)
	}

	runs, err := s.recorder.Recent(c.Request().Context(), limit)
	if err != nil {
		s.log.Errorw("Failed to list runs", "error", err)
		return s.respondWithError(c, http.StatusInternalServerError, "failed to list runs")
	}
	if runs == nil {
		runs = []runlog.Run{}
	}
	return respondWithJSON(c, http.StatusOK, runs)
}
