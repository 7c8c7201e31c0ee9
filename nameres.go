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

package nameres

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/nameres/ai"
	"github.com/poiesic/nameres/ai/openai"
	"github.com/poiesic/nameres/config"
	"github.com/poiesic/nameres/ingestion"
	"github.com/poiesic/nameres/resolve"
	"github.com/poiesic/nameres/server"
	"github.com/poiesic/nameres/storage"
	"github.com/poiesic/nameres/storage/badger"
	"github.com/poiesic/nameres/storage/qdrant"
)

// Service owns the vector index and the embedding provider and hands them
// to pipelines, resolvers and servers.
type Service struct {
	cfg          *config.Config
	index        storage.VectorIndex
	provider     ai.AIProvider
	ownsIndex    bool
	ownsProvider bool
	logger       *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	index    storage.VectorIndex
	provider ai.AIProvider
	logger   *slog.Logger
}

// WithIndex uses index instead of opening the configured backend.
// The caller keeps ownership of index.
func WithIndex(index storage.VectorIndex) ServiceOption {
	return func(o *serviceOptions) {
		o.index = index
	}
}

// WithProvider uses provider instead of the configured embedding service.
// The caller keeps ownership of provider.
func WithProvider(provider ai.AIProvider) ServiceOption {
	return func(o *serviceOptions) {
		o.provider = provider
	}
}

// WithLogger sets the logger passed to every component.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(o *serviceOptions) {
		o.logger = logger
	}
}

// Open validates cfg and connects the configured index and embedding
// provider. A nil cfg means config.Default().
func Open(cfg *config.Config, opts ...ServiceOption) (*Service, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	options := &serviceOptions{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Service{
		cfg:    cfg,
		logger: options.logger,
	}

	s.index = options.index
	if s.index == nil {
		index, err := openIndex(cfg)
		if err != nil {
			return nil, err
		}
		s.index = index
		s.ownsIndex = true
	}

	s.provider = options.provider
	if s.provider == nil {
		provider, err := openai.NewProvider(cfg.AIConfig())
		if err != nil {
			s.closeIndex()
			return nil, fmt.Errorf("create embedding provider: %w", err)
		}
		s.provider = provider
		s.ownsProvider = true
	}

	return s, nil
}

func openIndex(cfg *config.Config) (storage.VectorIndex, error) {
	switch cfg.Index.Backend {
	case config.BackendQdrant:
		index, err := qdrant.NewIndex(cfg.QdrantIndexConfig())
		if err != nil {
			return nil, fmt.Errorf("open qdrant index: %w", err)
		}
		return index, nil
	default:
		index, err := badger.NewIndex(cfg.Index.Badger.Path, cfg.Index.Collection)
		if err != nil {
			return nil, fmt.Errorf("open badger index %s: %w", cfg.Index.Badger.Path, err)
		}
		return index, nil
	}
}

func (s *Service) closeIndex() error {
	if !s.ownsIndex {
		return nil
	}
	return s.index.Close()
}

// Close releases the index and provider opened by Open.
func (s *Service) Close() error {
	var errs []error
	if s.ownsProvider {
		if err := s.provider.Close(); err != nil {
			s.logger.Error("error closing AI provider", "err", err)
			errs = append(errs, err)
		}
	}
	if err := s.closeIndex(); err != nil {
		s.logger.Error("error closing vector index", "err", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (s *Service) Config() *config.Config {
	return s.cfg
}

func (s *Service) Index() storage.VectorIndex {
	return s.index
}

func (s *Service) Provider() ai.AIProvider {
	return s.provider
}

// NewPipeline creates an ingestion pipeline with the configured batch,
// retry and pipelining settings. opts are applied after them.
func (s *Service) NewPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	ingest := s.cfg.Ingest
	base := []ingestion.Option{
		ingestion.WithBatchSize(ingest.BatchSize),
		ingestion.WithRetry(ingest.MaxAttempts, ingest.RetryDelay),
		ingestion.WithPipelining(ingest.Pipelined),
		ingestion.WithLogger(s.logger.With("component", "ingestion")),
	}
	return ingestion.NewPipeline(s.index, s.provider, append(base, opts...)...)
}

// NewResolver creates a resolver over the service's index.
func (s *Service) NewResolver(opts ...resolve.Option) (*resolve.Resolver, error) {
	base := []resolve.Option{
		resolve.WithLogger(s.logger.With("component", "resolver")),
	}
	return resolve.NewResolver(s.index, s.provider, append(base, opts...)...)
}

// NewServer creates an HTTP server with the configured address and timeouts.
func (s *Service) NewServer(opts ...server.Option) (*server.Server, error) {
	resolver, err := s.NewResolver()
	if err != nil {
		return nil, err
	}
	srv := s.cfg.Server
	base := []server.Option{
		server.WithAddr(srv.Addr),
		server.WithRequestTimeout(srv.RequestTimeout),
		server.WithLogger(s.logger.With("component", "server")),
	}
	if srv.ShutdownTimeout > 0 {
		base = append(base, server.WithShutdownTimeout(srv.ShutdownTimeout))
	}
	return server.New(resolver, append(base, opts...)...)
}
