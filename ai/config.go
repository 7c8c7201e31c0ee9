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


package ai

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// knownDimensions lists output sizes of common embedding models, keyed by
// the lowercased model name without organization prefix or tag.
var knownDimensions = map[string]int{
	"bge-small-en-v1.5":      384,
	"bge-small-en":           384,
	"bge-base-en":            768,
	"bge-base-en-v1.5":       768,
	"bge-large-en-v1.5":      1024,
	"all-minilm":             384,
	"all-minilm-l6-v2":       384,
	"nomic-embed-text":       768,
	"mxbai-embed-large":      1024,
	"embeddinggemma":         768,
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// KnownDimensions returns the output dimensionality of a well-known model.
// "BAAI/bge-small-en-v1.5" and "bge-small-en-v1.5:latest" both resolve.
func KnownDimensions(model string) (int, bool) {
	name := strings.ToLower(strings.TrimSpace(model))
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.IndexByte(name, ':'); i >= 0 {
		name = name[:i]
	}
	dims, ok := knownDimensions[name]
	return dims, ok
}

// Config holds configuration for the embedding service.
type Config struct {
	// EmbeddingHost is the base URL for the embedding service API.
	// Example: "http://localhost:11434/v1" for local OpenAI-compatible server
	EmbeddingHost string

	// EmbeddingModel is the model identifier to use for text embeddings.
	// Example: "BAAI/bge-small-en-v1.5", "nomic-embed-text"
	EmbeddingModel string

	// Dimensions is the model's output vector length. Zero means look it up
	// with KnownDimensions during Normalize.
	Dimensions int

	// APIToken is sent as the bearer token. Local servers accept any value.
	APIToken string

	// RequestBatchSize caps how many texts go into one HTTP request.
	// Larger EmbedTexts calls are split transparently. Zero keeps the client default.
	RequestBatchSize int

	// RequestsPerSecond limits HTTP embedding requests. Zero disables limiting.
	RequestsPerSecond float64

	// Timeout bounds a single HTTP request. Zero disables the client timeout.
	Timeout time.Duration
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithEmbeddingHost sets the embedding service host URL.
func WithEmbeddingHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
	}
}

// WithEmbeddingModel sets the embedding model identifier.
func WithEmbeddingModel(model string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingModel = model
	}
}

// WithDimensions sets the model output dimensionality.
func WithDimensions(dims int) ConfigOption {
	return func(c *Config) {
		c.Dimensions = dims
	}
}

// WithAPIToken sets the bearer token.
func WithAPIToken(token string) ConfigOption {
	return func(c *Config) {
		c.APIToken = token
	}
}

// WithRequestBatchSize sets the number of texts per HTTP request.
func WithRequestBatchSize(size int) ConfigOption {
	return func(c *Config) {
		c.RequestBatchSize = size
	}
}

// WithRequestsPerSecond limits outgoing HTTP embedding requests. Every
// sub-batch of RequestBatchSize texts counts as one request.
func WithRequestsPerSecond(rps float64) ConfigOption {
	return func(c *Config) {
		c.RequestsPerSecond = rps
	}
}

// WithTimeout sets the per-request HTTP timeout.
func WithTimeout(timeout time.Duration) ConfigOption {
	return func(c *Config) {
		c.Timeout = timeout
	}
}

// DefaultConfig returns a Config for a local OpenAI-compatible server
// serving the small BGE model.
func DefaultConfig() *Config {
	return &Config{
		EmbeddingHost:    "http://localhost:11434/v1",
		EmbeddingModel:   "BAAI/bge-small-en-v1.5",
		Dimensions:       384,
		APIToken:         "none",
		RequestBatchSize: 512,
		Timeout:          60 * time.Second,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithEmbeddingHost("http://tei:8080"),
//	    WithEmbeddingModel("BAAI/bge-base-en"),
//	    WithDimensions(768),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form.
// It adds the /v1 suffix to the host if missing, which is required by most
// OpenAI-compatible APIs, and fills Dimensions for well-known models.
func (c *Config) Normalize() {
	if c.EmbeddingHost != "" && !strings.HasSuffix(c.EmbeddingHost, "/v1") {
		c.EmbeddingHost = strings.TrimSuffix(c.EmbeddingHost, "/")
		c.EmbeddingHost = c.EmbeddingHost + "/v1"
	}
	if c.Dimensions == 0 {
		if dims, ok := KnownDimensions(c.EmbeddingModel); ok {
			c.Dimensions = dims
		}
	}
	if c.APIToken == "" {
		c.APIToken = "none"
	}
}

// Validate checks that the configuration is valid and complete.
// It normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	if c.EmbeddingHost == "" {
		return errors.New("ai config: EmbeddingHost is required")
	}
	if c.EmbeddingModel == "" {
		return errors.New("ai config: EmbeddingModel is required")
	}
	if c.Dimensions <= 0 {
		return fmt.Errorf("ai config: Dimensions is required for model %q", c.EmbeddingModel)
	}
	if c.RequestBatchSize < 0 {
		return errors.New("ai config: RequestBatchSize cannot be negative")
	}
	if c.RequestsPerSecond < 0 {
		return errors.New("ai config: RequestsPerSecond cannot be negative")
	}
	if c.Timeout < 0 {
		return errors.New("ai config: Timeout cannot be negative")
	}
	return nil
}
