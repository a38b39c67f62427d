// Package server exposes a problem's data sets and computed operations
// over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/facebookgo/httpdown"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/traherom/marla-sub003/dataframe"
	"github.com/traherom/marla-sub003/opscript"
	"github.com/traherom/marla-sub003/problem"
)

const DefaultStopTimeout = 10 * time.Second

// Server serves one problem.
type Server struct {
	p           *problem.Problem
	restart     func(context.Context) error
	log         *slog.Logger
	stopTimeout time.Duration

	s    httpdown.Server
	port int
}

type Option func(*Server)

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithRestart enables POST /engine/restart. fn restarts the engine;
// every operation is marked dirty afterwards.
func WithRestart(fn func(context.Context) error) Option {
	return func(s *Server) { s.restart = fn }
}

func WithStopTimeout(d time.Duration) Option {
	return func(s *Server) { s.stopTimeout = d }
}

func New(p *problem.Problem, opts ...Option) *Server {
	s := &Server{p: p, log: slog.Default(), stopTimeout: DefaultStopTimeout}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("component", "server")
	return s
}

// Handler returns the routes without starting a listener.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), otelgin.Middleware("marla"))

	r.GET("/operations", s.listOperations)
	r.GET("/datasets", s.listDataSets)
	r.GET("/nodes/:id", s.getNode)
	r.DELETE("/nodes/:id", s.detachNode)
	r.GET("/nodes/:id/columns", s.getColumns)
	r.GET("/nodes/:id/csv", s.getCSV)
	r.GET("/nodes/:id/commands", s.getCommands)
	r.GET("/nodes/:id/plot", s.getPlot)
	r.PUT("/nodes/:id/answers/:name", s.putAnswer)
	r.POST("/nodes/:id/operations", s.addOperation)
	r.POST("/engine/restart", s.restartEngine)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}

// Start listens on addr and serves in the background.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	hs := &http.Server{Handler: s.Handler()}
	h := httpdown.HTTP{StopTimeout: s.stopTimeout, KillTimeout: s.stopTimeout}
	s.s = h.Serve(hs, ln)
	s.port = ln.Addr().(*net.TCPAddr).Port
	s.log.Info("serving", "addr", ln.Addr().String())
	return nil
}

// Port is the port Start bound to.
func (s *Server) Port() int { return s.port }

// Stop finishes in-flight requests and stops listening.
func (s *Server) Stop() error {
	if s.s == nil {
		return nil
	}
	return s.s.Stop()
}

// Wait blocks until the server stops.
func (s *Server) Wait() error {
	if s.s == nil {
		return nil
	}
	return s.s.Wait()
}

func status(err error) int {
	var mpe *opscript.MissingParametersError
	switch {
	case errors.Is(err, dataframe.ErrColumnNotFound):
		return http.StatusNotFound
	case errors.As(err, &mpe),
		errors.Is(err, problem.ErrCycle),
		errors.Is(err, problem.ErrAlreadyAttached),
		errors.Is(err, problem.ErrDetached):
		return http.StatusConflict
	case errors.Is(err, opscript.ErrInvalidAnswer),
		errors.Is(err, opscript.ErrUnknownOperation),
		errors.Is(err, problem.ErrUnknownPrompt):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(c *gin.Context, err error) {
	code := status(err)
	if code == http.StatusInternalServerError {
		s.log.Error("request failed", "path", c.Request.URL.Path, "err", err)
	}
	c.JSON(code, gin.H{"error": err.Error()})
}
