package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment variable the config reads.
const EnvPrefix = "NAMERES_"

type envBinding struct {
	name string
	set  func(c *Config, value string) error
}

func setString(field func(*Config) *string) func(*Config, string) error {
	return func(c *Config, v string) error {
		*field(c) = v
		return nil
	}
}

func setInt(field func(*Config) *int) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*field(c) = n
		return nil
	}
}

func setBool(field func(*Config) *bool) func(*Config, string) error {
	return func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*field(c) = b
		return nil
	}
}

func setDuration(field func(*Config) *time.Duration) func(*Config, string) error {
	return func(c *Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*field(c) = d
		return nil
	}
}

var envBindings = []envBinding{
	{"EMBEDDING_HOST", setString(func(c *Config) *string { return &c.Embedding.Host })},
	{"EMBEDDING_MODEL", setString(func(c *Config) *string { return &c.Embedding.Model })},
	{"EMBEDDING_API_TOKEN", setString(func(c *Config) *string { return &c.Embedding.APIToken })},
	{"DIMENSIONS", setInt(func(c *Config) *int { return &c.Embedding.Dimensions })},
	{"EMBEDDING_TIMEOUT", setDuration(func(c *Config) *time.Duration { return &c.Embedding.Timeout })},
	{"REQUESTS_PER_SECOND", func(c *Config, v string) error {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		c.Embedding.RequestsPerSecond = rps
		return nil
	}},
	{"BACKEND", setString(func(c *Config) *string { return &c.Index.Backend })},
	{"COLLECTION", setString(func(c *Config) *string { return &c.Index.Collection })},
	{"DB_PATH", setString(func(c *Config) *string { return &c.Index.Badger.Path })},
	{"QDRANT_HOST", setString(func(c *Config) *string { return &c.Index.Qdrant.Host })},
	{"QDRANT_PORT", setInt(func(c *Config) *int { return &c.Index.Qdrant.Port })},
	{"QDRANT_API_KEY", setString(func(c *Config) *string { return &c.Index.Qdrant.APIKey })},
	{"QDRANT_TLS", setBool(func(c *Config) *bool { return &c.Index.Qdrant.UseTLS })},
	{"BATCH_SIZE", setInt(func(c *Config) *int { return &c.Ingest.BatchSize })},
	{"ADDR", setString(func(c *Config) *string { return &c.Server.Addr })},
	{"REQUEST_TIMEOUT", setDuration(func(c *Config) *time.Duration { return &c.Server.RequestTimeout })},
}

// ApplyEnv overrides cfg with any NAMERES_* variables set in the environment.
func ApplyEnv(cfg *Config) error {
	return applyEnv(cfg, os.LookupEnv)
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	for _, b := range envBindings {
		name := EnvPrefix + b.name
		value, ok := lookup(name)
		if !ok || value == "" {
			continue
		}
		if err := b.set(cfg, value); err != nil {
			return fmt.Errorf("%w: %s=%q: %v", ErrInvalidConfig, name, value, err)
		}
	}
	return nil
}

// LoadEnvFile loads variables from a .env file into the process
// environment without overriding variables that are already set.
// An empty path loads ".env" and ignores its absence.
func LoadEnvFile(path string) error {
	if path == "" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load .env: %w", err)
		}
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}
