// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/poiesic/nameres/core"
	"github.com/poiesic/nameres/resolve"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultAddr            = ":8080"
	DefaultRequestTimeout  = 10 * time.Second
	DefaultShutdownTimeout = 15 * time.Second
)

// Resolver is the lookup engine behind the HTTP surface.
// *resolve.Resolver satisfies it.
type Resolver interface {
	Lookup(ctx context.Context, q resolve.Query) ([]core.LookupResult, error)
	Stats(ctx context.Context) (resolve.Stats, error)
}

// Server serves lookups over HTTP.
type Server struct {
	resolver        Resolver
	addr            string
	requestTimeout  time.Duration
	shutdownTimeout time.Duration
	logger          *slog.Logger
	handler         http.Handler
}

// Option configures a Server.
type Option func(*Server) error

// WithAddr sets the listen address. Default is ":8080".
func WithAddr(addr string) Option {
	return func(s *Server) error {
		if addr == "" {
			return fmt.Errorf("%w: empty listen address", ErrInvalidParameter)
		}
		s.addr = addr
		return nil
	}
}

// WithRequestTimeout bounds the embed and search work of one request.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(s *Server) error {
		if timeout <= 0 {
			return fmt.Errorf("%w: request timeout must be positive, got %s", ErrInvalidParameter, timeout)
		}
		s.requestTimeout = timeout
		return nil
	}
}

// WithShutdownTimeout bounds how long Run waits for in-flight requests.
func WithShutdownTimeout(timeout time.Duration) Option {
	return func(s *Server) error {
		if timeout <= 0 {
			return fmt.Errorf("%w: shutdown timeout must be positive, got %s", ErrInvalidParameter, timeout)
		}
		s.shutdownTimeout = timeout
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// New creates a server for resolver.
func New(resolver Resolver, opts ...Option) (*Server, error) {
	if resolver == nil {
		return nil, ErrResolverRequired
	}

	s := &Server{
		resolver:        resolver,
		addr:            DefaultAddr,
		requestTimeout:  DefaultRequestTimeout,
		shutdownTimeout: DefaultShutdownTimeout,
		logger:          slog.Default().With("component", "server"),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /lookup", s.handleLookup)
	mux.HandleFunc("POST /lookup", s.handleLookup)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /docs", s.handleDocs)
	mux.HandleFunc("GET /{$}", s.handleRoot)

	s.handler = withRequestID(withAccessLog(s.logger, withCORS(mux)))
	return s, nil
}

// Handler returns the root handler with all middleware applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.addr
}

// Run listens on the configured address and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully. It returns nil after a clean shutdown.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		s.logger.Info("shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}
