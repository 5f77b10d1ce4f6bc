// Package embedding wires a concrete embedding provider behind the
// EmbeddingService port based on configuration.
package embedding

import (
	"context"
	"fmt"
	"time"

	ollamaembed "github.com/loci-labs/loci/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/loci-labs/loci/internal/adapters/driven/embedding/openai"
	staticembed "github.com/loci-labs/loci/internal/adapters/driven/embedding/static"
	"github.com/loci-labs/loci/internal/core/domain"
	"github.com/loci-labs/loci/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// Known providers.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
	ProviderStatic = "static"
)

// Settings selects and configures an embedding provider.
type Settings struct {
	// Provider is one of ollama, openai or static. Empty means ollama.
	Provider string

	// Model is the provider's embedding model name.
	Model string

	// BaseURL overrides the provider's API endpoint.
	BaseURL string

	// APIKey authenticates hosted providers.
	APIKey string

	// Dimensions is the embedding vector size, 0 for the provider default.
	Dimensions int

	// RequestsPerSecond throttles API calls. Zero means unlimited.
	RequestsPerSecond float64
}

// NewService creates the configured embedding service without
// validating connectivity.
func NewService(settings Settings) (driven.EmbeddingService, error) {
	switch settings.Provider {
	case ProviderOllama, "":
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:           settings.BaseURL,
			Model:             settings.Model,
			Dimensions:        settings.Dimensions,
			RequestsPerSecond: settings.RequestsPerSecond,
		}), nil

	case ProviderOpenAI:
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:            settings.APIKey,
			BaseURL:           settings.BaseURL,
			Model:             settings.Model,
			Dimensions:        settings.Dimensions,
			RequestsPerSecond: settings.RequestsPerSecond,
		})

	case ProviderStatic:
		return staticembed.NewEmbeddingService(staticembed.Config{
			Dimensions: settings.Dimensions,
		}), nil

	default:
		return nil, fmt.Errorf("%w: unsupported embedding provider %q",
			domain.ErrInvalidInput, settings.Provider)
	}
}

// NewValidatedService creates the configured embedding service and
// validates connectivity with a short ping. Callers treat the returned
// error's ErrEmbeddingUnavailable as a degrade signal, not a crash.
func NewValidatedService(settings Settings) (driven.EmbeddingService, error) {
	svc, err := NewService(settings)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close() //nolint:errcheck
		return nil, err
	}

	return svc, nil
}
