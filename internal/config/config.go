package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"

	"github.com/loci-labs/loci/internal/adapters/driven/embedding"
	"github.com/loci-labs/loci/internal/adapters/driven/storage/sqlite"
	"github.com/loci-labs/loci/internal/chunker"
	"github.com/loci-labs/loci/internal/core/domain"
	"github.com/loci-labs/loci/internal/core/services"
	"github.com/loci-labs/loci/internal/ingest"
	"github.com/loci-labs/loci/internal/keyword"
)

// FileName is the config file inside the loci directory.
const FileName = "config.toml"

// envPrefix namespaces the environment overrides: LOCI_DATA_DIR,
// LOCI_SEARCH_VECTOR_WEIGHT, LOCI_EMBEDDING_PROVIDER and so on.
const envPrefix = "loci"

// Config is the full runtime configuration.
type Config struct {
	// DataDir hosts the index database and lock file. Empty means
	// ~/.loci. The config file itself is always looked up under
	// ~/.loci, even when data_dir points elsewhere.
	DataDir string `toml:"data_dir" envconfig:"DATA_DIR"`

	Search    Search    `toml:"search"`
	Chunking  Chunking  `toml:"chunking"`
	Ingest    Ingest    `toml:"ingest"`
	Embedding Embedding `toml:"embedding"`
	Storage   Storage   `toml:"storage"`
}

// Search tunes ranking: leg weights, BM25 parameters and boosts.
type Search struct {
	TopK int `toml:"top_k" envconfig:"TOP_K"`

	VectorWeight  float64 `toml:"vector_weight" envconfig:"VECTOR_WEIGHT"`
	KeywordWeight float64 `toml:"keyword_weight" envconfig:"KEYWORD_WEIGHT"`

	BM25K1 float64 `toml:"bm25_k1" envconfig:"BM25_K1"`
	BM25B  float64 `toml:"bm25_b" envconfig:"BM25_B"`

	RecencyWeight       float64 `toml:"recency_weight" envconfig:"RECENCY_WEIGHT"`
	RecencyHalfLifeDays float64 `toml:"recency_half_life_days" envconfig:"RECENCY_HALF_LIFE_DAYS"`
	ProjectWeight       float64 `toml:"project_weight" envconfig:"PROJECT_WEIGHT"`
}

// Chunking tunes how parsed documents are split.
type Chunking struct {
	TargetTokens  int `toml:"target_tokens" envconfig:"TARGET_TOKENS"`
	OverlapTokens int `toml:"overlap_tokens" envconfig:"OVERLAP_TOKENS"`
	MinChars      int `toml:"min_chars" envconfig:"MIN_CHARS"`
}

// Ingest tunes the walker, the watcher and the embed stage of a run.
type Ingest struct {
	// Ignores lists names and glob patterns skipped during walks,
	// on top of the always-skipped hidden entries.
	Ignores []string `toml:"ignores" envconfig:"IGNORES"`

	// MaxFileSize is the per-file size cap in bytes.
	MaxFileSize int64 `toml:"max_file_size" envconfig:"MAX_FILE_SIZE"`

	EmbedBatchSize int `toml:"embed_batch_size" envconfig:"EMBED_BATCH_SIZE"`
	EmbedWorkers   int `toml:"embed_workers" envconfig:"EMBED_WORKERS"`

	// DebounceMS is the watch-mode quiet period in milliseconds.
	DebounceMS int `toml:"debounce_ms" envconfig:"DEBOUNCE_MS"`
}

// Debounce returns the watch-mode quiet period as a duration.
func (i Ingest) Debounce() time.Duration {
	return time.Duration(i.DebounceMS) * time.Millisecond
}

// Embedding selects and tunes the embedding provider.
type Embedding struct {
	// Provider is ollama, openai or static. Empty means ollama.
	Provider string `toml:"provider" envconfig:"PROVIDER"`

	// Model and Dimensions fall back to per-provider defaults when
	// zero.
	Model      string `toml:"model" envconfig:"MODEL"`
	Dimensions int    `toml:"dimensions" envconfig:"DIMENSIONS"`

	BaseURL string `toml:"base_url" envconfig:"BASE_URL"`
	APIKey  string `toml:"api_key" envconfig:"API_KEY"`

	// RequestsPerSecond rate-limits remote providers. Zero means
	// unlimited.
	RequestsPerSecond float64 `toml:"requests_per_second" envconfig:"REQUESTS_PER_SECOND"`
}

// Storage tunes the SQLite store.
type Storage struct {
	// VectorMode is auto, native or fallback.
	VectorMode string `toml:"vector_mode" envconfig:"VECTOR_MODE"`
}

// Defaults returns the built-in configuration. DataDir stays empty
// here; Load resolves it against the home directory.
func Defaults() Config {
	return Config{
		Search: Search{
			TopK:                domain.DefaultTopK,
			VectorWeight:        services.DefaultVectorWeight,
			KeywordWeight:       services.DefaultKeywordWeight,
			BM25K1:              keyword.DefaultK1,
			BM25B:               keyword.DefaultB,
			RecencyWeight:       services.DefaultRecencyWeight,
			RecencyHalfLifeDays: services.DefaultRecencyHalfLifeDays,
			ProjectWeight:       services.DefaultProjectWeight,
		},
		Chunking: Chunking{
			TargetTokens:  chunker.DefaultTargetTokens,
			OverlapTokens: chunker.DefaultOverlapTokens,
			MinChars:      chunker.DefaultMinChars,
		},
		Ingest: Ingest{
			Ignores:        ingest.DefaultIgnores(),
			MaxFileSize:    ingest.DefaultMaxFileSize,
			EmbedBatchSize: services.DefaultEmbedBatchSize,
			EmbedWorkers:   services.DefaultEmbedWorkers,
			DebounceMS:     int(ingest.DefaultDebounce / time.Millisecond),
		},
		Embedding: Embedding{
			Provider: embedding.ProviderOllama,
		},
		Storage: Storage{
			VectorMode: sqlite.VectorModeAuto,
		},
	}
}

// Load builds the effective configuration: defaults, then the TOML
// file, then .env, then LOCI_* environment variables. An empty path
// means ~/.loci/config.toml; only an explicitly given file must
// exist.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	explicit := path != ""
	if !explicit {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, ".loci", FileName)
		}
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := toml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parsing %s: %w", path, err)
			}
		case errors.Is(err, fs.ErrNotExist) && !explicit:
			// No file at the default location, nothing to layer.
		default:
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// .env is optional and never overrides the real environment.
	_ = godotenv.Load(".env")

	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	if err := cfg.resolveDataDir(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) resolveDataDir() error {
	if c.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolving data dir: %w", err)
		}
		c.DataDir = filepath.Join(home, ".loci")
		return nil
	}
	if c.DataDir == "~" || strings.HasPrefix(c.DataDir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolving data dir: %w", err)
		}
		c.DataDir = filepath.Join(home, strings.TrimPrefix(c.DataDir[1:], "/"))
	}
	return nil
}

// Validate rejects values the engine cannot run with. The first
// violation is returned, wrapped around domain.ErrInvalidInput.
func (c *Config) Validate() error {
	s := c.Search
	for _, w := range []struct {
		key string
		val float64
	}{
		{"search.vector_weight", s.VectorWeight},
		{"search.keyword_weight", s.KeywordWeight},
		{"search.bm25_b", s.BM25B},
	} {
		if w.val < 0 || w.val > 1 {
			return fmt.Errorf("%w: %s must be within [0, 1], got %g", domain.ErrInvalidInput, w.key, w.val)
		}
	}
	if s.VectorWeight+s.KeywordWeight <= 0 {
		return fmt.Errorf("%w: search weights must not both be zero", domain.ErrInvalidInput)
	}
	if s.RecencyWeight < 0 || s.ProjectWeight < 0 {
		return fmt.Errorf("%w: boost weights must not be negative", domain.ErrInvalidInput)
	}
	if s.RecencyHalfLifeDays <= 0 {
		return fmt.Errorf("%w: search.recency_half_life_days must be positive, got %g", domain.ErrInvalidInput, s.RecencyHalfLifeDays)
	}
	if s.BM25K1 <= 0 {
		return fmt.Errorf("%w: search.bm25_k1 must be positive, got %g", domain.ErrInvalidInput, s.BM25K1)
	}
	if s.TopK < 1 {
		return fmt.Errorf("%w: search.top_k must be at least 1, got %d", domain.ErrInvalidInput, s.TopK)
	}

	ch := c.Chunking
	if ch.TargetTokens < 1 {
		return fmt.Errorf("%w: chunking.target_tokens must be at least 1, got %d", domain.ErrInvalidInput, ch.TargetTokens)
	}
	if ch.OverlapTokens < 0 || ch.OverlapTokens >= ch.TargetTokens {
		return fmt.Errorf("%w: chunking.overlap_tokens must be within [0, target_tokens), got %d", domain.ErrInvalidInput, ch.OverlapTokens)
	}
	if ch.MinChars < 0 {
		return fmt.Errorf("%w: chunking.min_chars must not be negative, got %d", domain.ErrInvalidInput, ch.MinChars)
	}

	in := c.Ingest
	if in.MaxFileSize < 1 {
		return fmt.Errorf("%w: ingest.max_file_size must be positive, got %d", domain.ErrInvalidInput, in.MaxFileSize)
	}
	if in.EmbedBatchSize < 1 || in.EmbedWorkers < 1 {
		return fmt.Errorf("%w: ingest embed batch size and workers must be at least 1", domain.ErrInvalidInput)
	}
	if in.DebounceMS < 0 {
		return fmt.Errorf("%w: ingest.debounce_ms must not be negative, got %d", domain.ErrInvalidInput, in.DebounceMS)
	}

	switch c.Embedding.Provider {
	case "", embedding.ProviderOllama, embedding.ProviderOpenAI, embedding.ProviderStatic:
	default:
		return fmt.Errorf("%w: unknown embedding provider %q", domain.ErrInvalidInput, c.Embedding.Provider)
	}
	if c.Embedding.Dimensions < 0 {
		return fmt.Errorf("%w: embedding.dimensions must not be negative, got %d", domain.ErrInvalidInput, c.Embedding.Dimensions)
	}
	if c.Embedding.RequestsPerSecond < 0 {
		return fmt.Errorf("%w: embedding.requests_per_second must not be negative, got %g", domain.ErrInvalidInput, c.Embedding.RequestsPerSecond)
	}

	switch c.Storage.VectorMode {
	case sqlite.VectorModeAuto, sqlite.VectorModeNative, sqlite.VectorModeFallback:
	default:
		return fmt.Errorf("%w: unknown vector mode %q", domain.ErrInvalidInput, c.Storage.VectorMode)
	}
	return nil
}

// Ranking maps the search section onto a service config.
func (c *Config) Ranking() services.RankingConfig {
	return services.RankingConfig{
		VectorWeight:        c.Search.VectorWeight,
		KeywordWeight:       c.Search.KeywordWeight,
		BM25K1:              c.Search.BM25K1,
		BM25B:               c.Search.BM25B,
		RecencyWeight:       c.Search.RecencyWeight,
		RecencyHalfLifeDays: c.Search.RecencyHalfLifeDays,
		ProjectWeight:       c.Search.ProjectWeight,
	}
}

// Indexer maps the ingest section onto a service config.
func (c *Config) Indexer() services.IndexerConfig {
	return services.IndexerConfig{
		DataDir:        c.DataDir,
		EmbedBatchSize: c.Ingest.EmbedBatchSize,
		EmbedWorkers:   c.Ingest.EmbedWorkers,
	}
}

// EmbeddingSettings maps the embedding section onto factory settings.
func (c *Config) EmbeddingSettings() embedding.Settings {
	return embedding.Settings{
		Provider:          c.Embedding.Provider,
		Model:             c.Embedding.Model,
		BaseURL:           c.Embedding.BaseURL,
		APIKey:            c.Embedding.APIKey,
		Dimensions:        c.Embedding.Dimensions,
		RequestsPerSecond: c.Embedding.RequestsPerSecond,
	}
}
