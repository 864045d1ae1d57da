package service

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

// HealthPath is the route served by HealthServer.
const HealthPath = "/healthz"

// HealthResponse is the /healthz payload.
type HealthResponse struct {
	Status   string    `json:"status"`
	Services []Status  `json:"services"`
	Time     time.Time `json:"time"`
}

// HealthServer exposes the manager's status over HTTP.
type HealthServer struct {
	addr    string
	manager *Manager
	echo    *echo.Echo

	mu       sync.Mutex
	listener net.Listener
	done     chan error
	serving  atomic.Bool
}

// NewHealthServer returns a server for addr reporting on manager.
func NewHealthServer(addr string, manager *Manager) *HealthServer {
	h := &HealthServer{addr: addr, manager: manager}
	h.echo = h.newEcho()
	return h
}

func (h *HealthServer) newEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.GET(HealthPath, h.handleHealth)
	return e
}

// Name implements Service.
func (h *HealthServer) Name() string { return "health" }

// Handler returns the HTTP handler, for embedding or tests.
func (h *HealthServer) Handler() http.Handler { return h.echo }

// Addr returns the bound address once booted.
func (h *HealthServer) Addr() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.listener == nil {
		return h.addr
	}
	return h.listener.Addr().String()
}

// Boot binds the listener and serves in the background.
func (h *HealthServer) Boot(context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	ln, err := net.Listen("tcp", h.addr)
	if err != nil {
		return err
	}
	h.echo = h.newEcho()
	h.echo.Listener = ln
	h.listener = ln
	h.done = make(chan error, 1)
	go func(e *echo.Echo, done chan<- error) {
		err := e.Start("")
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		done <- err
	}(h.echo, h.done)
	h.serving.Store(true)
	log.WithField("addr", ln.Addr().String()).Info("health endpoint listening")
	return nil
}

// Shutdown stops the server gracefully.
func (h *HealthServer) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.listener == nil {
		return nil
	}
	h.serving.Store(false)
	err := h.echo.Shutdown(ctx)
	if serveErr := <-h.done; err == nil {
		err = serveErr
	}
	h.listener = nil
	return err
}

// HealthCheck implements Service.
func (h *HealthServer) HealthCheck(context.Context) error {
	if !h.serving.Load() {
		return errors.New("service: health endpoint not listening")
	}
	return nil
}

func (h *HealthServer) handleHealth(c echo.Context) error {
	statuses := h.manager.Status(c.Request().Context())
	resp := HealthResponse{Status: "ok", Services: statuses, Time: time.Now().UTC()}
	code := http.StatusOK
	if !Healthy(statuses) {
		resp.Status = "degraded"
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, resp)
}
