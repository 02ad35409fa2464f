// Package httpserver runs an http.Server in the background.
package httpserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"
)

const (
	defaultReadTimeout     = 5 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultAddr            = ":80"
	defaultShutdownTimeout = 3 * time.Second
)

type Server struct {
	server          *http.Server
	listener        net.Listener
	errCh           chan error
	shutdownTimeout time.Duration
}

type Options struct {
	Addr            string
	ShutdownTimeout time.Duration
}

// New binds opt.Addr and starts serving handler. Errors from binding are returned directly,
// later serve errors are delivered through Notify.
func New(handler http.Handler, opt Options) (*Server, error) {
	if opt.Addr == "" {
		opt.Addr = defaultAddr
	}

	if opt.ShutdownTimeout <= 0 {
		opt.ShutdownTimeout = defaultShutdownTimeout
	}

	httpServer := &http.Server{
		Handler:      handler,
		Addr:         opt.Addr,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
	}

	ln, err := net.Listen("tcp", opt.Addr)
	if err != nil {
		return nil, err
	}

	srv := &Server{
		server:          httpServer,
		listener:        ln,
		errCh:           make(chan error, 1),
		shutdownTimeout: opt.ShutdownTimeout,
	}

	go srv.start()

	return srv, nil
}

func (s *Server) start() {
	if err := s.server.Serve(s.listener); !errors.Is(err, http.ErrServerClosed) {
		s.errCh <- err
	}

	close(s.errCh)
}

// Addr returns the bound address, useful when listening on port 0.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Notify reports a serve failure. The channel is closed after shutdown.
func (s *Server) Notify() <-chan error {
	return s.errCh
}

func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	return s.server.Shutdown(ctx)
}
