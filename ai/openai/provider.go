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

package openai

import (
	"github.com/poiesic/nameres/ai"
)

// provider bundles the embedding client for an OpenAI-compatible endpoint
// such as TEI, Ollama or vLLM.
type provider struct {
	embedder *Embedder
}

// NewProvider validates config and builds a provider around a single
// embedding client.
func NewProvider(config *ai.Config) (ai.AIProvider, error) {
	embedder, err := newEmbedder(config)
	if err != nil {
		return nil, err
	}
	embedder.logger.Debug("embedding provider ready",
		"host", config.EmbeddingHost, "model", config.EmbeddingModel, "dimensions", config.Dimensions)
	return &provider{embedder: embedder}, nil
}

func (p *provider) Embedder() ai.Embedder { return p.embedder }

// Close is a no-op; the HTTP client holds no resources that need releasing.
func (p *provider) Close() error { return nil }
