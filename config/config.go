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

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/poiesic/nameres/ai"
	"github.com/poiesic/nameres/storage/qdrant"
	"gopkg.in/yaml.v3"
)

// Index backends.
const (
	BackendBadger = "badger"
	BackendQdrant = "qdrant"
)

const (
	DefaultPath       = "nameres.yaml"
	DefaultCollection = "concept-resolver"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// EmbeddingConfig selects the OpenAI-compatible embedding service.
type EmbeddingConfig struct {
	Host              string        `yaml:"host"`
	Model             string        `yaml:"model"`
	APIToken          string        `yaml:"api_token,omitempty"`
	// Zero derives Dimensions from a well-known Model.
	Dimensions        int           `yaml:"dimensions"`
	RequestBatchSize  int           `yaml:"request_batch_size"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Timeout           time.Duration `yaml:"timeout"`
}

// BadgerConfig locates the embedded index.
type BadgerConfig struct {
	Path string `yaml:"path"`
}

// QdrantConfig contains connection details for a Qdrant server.
type QdrantConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	APIKey       string `yaml:"api_key,omitempty"`
	UseTLS       bool   `yaml:"use_tls"`
	PoolSize     uint   `yaml:"pool_size"`
	CheckVersion bool   `yaml:"check_version"`
}

// IndexConfig selects and configures the vector index.
type IndexConfig struct {
	Backend    string       `yaml:"backend"`
	Collection string       `yaml:"collection"`
	Badger     BadgerConfig `yaml:"badger"`
	Qdrant     QdrantConfig `yaml:"qdrant"`
}

// IngestConfig holds pipeline settings.
type IngestConfig struct {
	Format         string        `yaml:"format"`
	BatchSize      int           `yaml:"batch_size"`
	MaxAttempts    int           `yaml:"max_attempts"`
	RetryDelay     time.Duration `yaml:"retry_delay"`
	Pipelined      bool          `yaml:"pipelined"`
	ReportInterval int           `yaml:"report_interval"`
}

// ServerConfig holds HTTP settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Config is the root configuration.
type Config struct {
	Embedding EmbeddingConfig `yaml:"embedding"`
	Index     IndexConfig     `yaml:"index"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Server    ServerConfig    `yaml:"server"`
}

// Default returns the built-in configuration: a local embedding server
// with the small BGE model and an embedded badger index.
func Default() *Config {
	return &Config{
		Embedding: EmbeddingConfig{
			Host:    "http://localhost:11434/v1",
			Model:   "BAAI/bge-small-en-v1.5",
			Timeout: 60 * time.Second,
		},
		Index: IndexConfig{
			Backend:    BackendBadger,
			Collection: DefaultCollection,
			Badger:     BadgerConfig{Path: "nameres.db"},
			Qdrant:     QdrantConfig{Host: "localhost", Port: 6334},
		},
		Ingest: IngestConfig{
			Format:         "auto",
			BatchSize:      100000,
			MaxAttempts:    3,
			RetryDelay:     time.Second,
			ReportInterval: 10000,
		},
		Server: ServerConfig{
			Addr:            ":8080",
			RequestTimeout:  10 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
	}
}

// Load reads a config from path. Missing keys keep their defaults.
// If the file does not exist, returns defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path, creating directories as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks the settings that no downstream constructor checks.
func (c *Config) Validate() error {
	switch c.Index.Backend {
	case BackendBadger:
		if c.Index.Badger.Path == "" {
			return fmt.Errorf("%w: index.badger.path is required", ErrInvalidConfig)
		}
	case BackendQdrant:
		if c.Index.Qdrant.Host == "" {
			return fmt.Errorf("%w: index.qdrant.host is required", ErrInvalidConfig)
		}
		if c.Index.Qdrant.Port <= 0 || c.Index.Qdrant.Port > 65535 {
			return fmt.Errorf("%w: index.qdrant.port %d out of range", ErrInvalidConfig, c.Index.Qdrant.Port)
		}
	default:
		return fmt.Errorf("%w: unknown index.backend %q (want %s or %s)", ErrInvalidConfig, c.Index.Backend, BackendBadger, BackendQdrant)
	}
	if c.Index.Collection == "" {
		return fmt.Errorf("%w: index.collection is required", ErrInvalidConfig)
	}
	if c.Ingest.BatchSize <= 0 {
		return fmt.Errorf("%w: ingest.batch_size must be positive", ErrInvalidConfig)
	}
	if c.Ingest.MaxAttempts <= 0 {
		return fmt.Errorf("%w: ingest.max_attempts must be positive", ErrInvalidConfig)
	}
	if c.Server.RequestTimeout <= 0 {
		return fmt.Errorf("%w: server.request_timeout must be positive", ErrInvalidConfig)
	}
	if err := c.AIConfig().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// AIConfig builds the embedding client configuration.
func (c *Config) AIConfig() *ai.Config {
	return ai.NewConfig(
		ai.WithEmbeddingHost(c.Embedding.Host),
		ai.WithEmbeddingModel(c.Embedding.Model),
		ai.WithDimensions(c.Embedding.Dimensions),
		ai.WithAPIToken(c.Embedding.APIToken),
		ai.WithRequestBatchSize(c.Embedding.RequestBatchSize),
		ai.WithRequestsPerSecond(c.Embedding.RequestsPerSecond),
		ai.WithTimeout(c.Embedding.Timeout),
	)
}

// QdrantIndexConfig builds the Qdrant index configuration.
func (c *Config) QdrantIndexConfig() qdrant.Config {
	return qdrant.Config{
		Host:         c.Index.Qdrant.Host,
		Port:         c.Index.Qdrant.Port,
		APIKey:       c.Index.Qdrant.APIKey,
		UseTLS:       c.Index.Qdrant.UseTLS,
		Collection:   c.Index.Collection,
		PoolSize:     c.Index.Qdrant.PoolSize,
		CheckVersion: c.Index.Qdrant.CheckVersion,
	}
}
