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

package main

import (
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/poiesic/nameres"
	"github.com/poiesic/nameres/config"
	"github.com/urfave/cli/v2"
)

// openService is replaced in tests to inject a mock embedding provider.
var openService = func(cfg *config.Config) (*nameres.Service, error) {
	return nameres.Open(cfg)
}

func main() {
	if err := newApp(os.Stdout, os.Stderr).Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:      "nameres",
		Usage:     "Resolve lexical strings to concept identifiers by embedding similarity",
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML config file",
				Value:   config.DefaultPath,
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Load environment variables from this file (default .env if present)",
			},
			&cli.StringFlag{
				Name:  "backend",
				Usage: "Vector index backend (badger, qdrant)",
			},
			&cli.StringFlag{
				Name:  "collection",
				Usage: "Collection name",
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to BadgerDB index directory",
			},
			&cli.StringFlag{
				Name:  "qdrant-host",
				Usage: "Qdrant gRPC host",
			},
			&cli.IntFlag{
				Name:  "qdrant-port",
				Usage: "Qdrant gRPC port",
			},
			&cli.StringFlag{
				Name:  "embedding-host",
				Usage: "Embedding service host URL",
			},
			&cli.StringFlag{
				Name:  "embedding-model",
				Usage: "Embedding model name",
			},
			&cli.IntFlag{
				Name:  "dimensions",
				Usage: "Embedding dimensions (derived from well-known models when unset)",
			},
		},
		Before: func(c *cli.Context) error {
			if err := setupLogger(c); err != nil {
				return err
			}
			return config.LoadEnvFile(c.String("env-file"))
		},
		Commands: []*cli.Command{
			ingestCommand(),
			serveCommand(),
			lookupCommand(),
			countCommand(),
			initConfigCommand(),
		},
	}
}

// loadConfig layers the config file, the environment and explicit flags.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if err := config.ApplyEnv(cfg); err != nil {
		return nil, err
	}

	if c.IsSet("backend") {
		cfg.Index.Backend = c.String("backend")
	}
	if c.IsSet("collection") {
		cfg.Index.Collection = c.String("collection")
	}
	if c.IsSet("db") {
		cfg.Index.Badger.Path = c.String("db")
	}
	if c.IsSet("qdrant-host") {
		cfg.Index.Qdrant.Host = c.String("qdrant-host")
	}
	if c.IsSet("qdrant-port") {
		cfg.Index.Qdrant.Port = c.Int("qdrant-port")
	}
	if c.IsSet("embedding-host") {
		cfg.Embedding.Host = c.String("embedding-host")
	}
	if c.IsSet("embedding-model") {
		cfg.Embedding.Model = c.String("embedding-model")
		if !c.IsSet("dimensions") {
			// the configured size belongs to the previous model
			cfg.Embedding.Dimensions = 0
		}
	}
	if c.IsSet("dimensions") {
		cfg.Embedding.Dimensions = c.Int("dimensions")
	}
	return cfg, nil
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(c.App.ErrWriter, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}

func describe(w io.Writer, cfg *config.Config) {
	switch cfg.Index.Backend {
	case config.BackendQdrant:
		fmt.Fprintf(w, "Index: qdrant %s:%d/%s\n", cfg.Index.Qdrant.Host, cfg.Index.Qdrant.Port, cfg.Index.Collection)
	default:
		fmt.Fprintf(w, "Index: badger %s/%s\n", cfg.Index.Badger.Path, cfg.Index.Collection)
	}
	fmt.Fprintf(w, "Embedding host: %s\n", cfg.Embedding.Host)
	fmt.Fprintf(w, "Embedding model: %s\n", cfg.Embedding.Model)
}

func elapsed(start time.Time) string {
	return time.Since(start).Round(time.Millisecond).String()
}
