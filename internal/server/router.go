// Package server implements the Status Server (C14): an optional read-only
// HTTP surface for Prometheus scraping and JSON status polling. It exposes no
// mutating verb — the interactive shell (C8) remains the only administration
// path.
package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/taskmastergo/taskmaster/internal/metrics"
)

// StatusProvider is the read-only subset of *supervisor.Supervisor the router needs.
type StatusProvider interface {
	StatusLines() []string
}

// Router serves GET /status and GET /metrics.
type Router struct {
	sup StatusProvider
}

func NewRouter(sup StatusProvider) *Router {
	return &Router{sup: sup}
}

// Handler returns an http.Handler powered by gin, mirroring the teacher's
// Router.Handler construction.
func (r *Router) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery())
	g.GET("/status", r.handleStatus)
	g.GET("/metrics", gin.WrapH(metrics.Handler()))
	return g
}

func (r *Router) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, r.sup.StatusLines())
}

// NewServer starts a standalone HTTP server on addr using this router. It
// mirrors the teacher's NewServer: launch in a goroutine, give it a moment to
// fail fast on a bad listen address.
func NewServer(addr string, sup StatusProvider) (*http.Server, error) {
	r := NewRouter(sup)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return nil, err
		}
	case <-time.After(100 * time.Millisecond):
	}

	return srv, nil
}
