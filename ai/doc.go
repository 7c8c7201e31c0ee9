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


// Package ai provides the embedding abstraction used by ingestion and resolution.
//
// The Embedder interface maps text to vectors of a fixed, declared
// dimensionality. An index built with one model must be queried with vectors
// from the same model, so both the ingestion pipeline and the resolver read
// Dimensions() from the injected embedder instead of assuming a size.
//
// # Implementation Packages
//
//   - ai/openai: OpenAI-compatible HTTP embeddings (Ollama, TEI, vLLM, OpenAI)
//   - ai/mock: deterministic test doubles
//
// Public constructors (openai.NewProvider, openai.NewEmbedder) return
// interface types. Test constructors (mock.NewMockEmbedder) return concrete
// types so tests can inject behavior and inspect call counts.
//
// # Usage Example
//
//	cfg := ai.NewConfig(ai.WithEmbeddingModel("BAAI/bge-base-en"))
//	provider, err := openai.NewProvider(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vectors, err := provider.Embedder().EmbedTexts(ctx, []string{"flu", "influenza"})
package ai
