package main

import (
	"fmt"
	"os"

	"github.com/loci-labs/loci/internal/adapters/driven/embedding"
	"github.com/loci-labs/loci/internal/adapters/driven/storage/sqlite"
	"github.com/loci-labs/loci/internal/adapters/driving/cli"
	"github.com/loci-labs/loci/internal/chunker"
	"github.com/loci-labs/loci/internal/config"
	"github.com/loci-labs/loci/internal/core/services"
	"github.com/loci-labs/loci/internal/parsers"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cli.SetBootstrapper(bootstrap)
	if err := cli.Execute(version); err != nil {
		os.Exit(1)
	}
}

// bootstrap builds the service set the first time a command needs one.
// version and help exit without ever touching the data directory.
func bootstrap(configPath string) (cli.Services, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cli.Services{}, nil, fmt.Errorf("loading config: %w", err)
	}

	store, err := sqlite.NewStore(cfg.DataDir, sqlite.WithVectorMode(cfg.Storage.VectorMode))
	if err != nil {
		return cli.Services{}, nil, fmt.Errorf("opening index: %w", err)
	}

	embedder, err := embedding.NewService(cfg.EmbeddingSettings())
	if err != nil {
		_ = store.Close()
		return cli.Services{}, nil, err
	}

	splitter := chunker.New(
		chunker.WithTargetTokens(cfg.Chunking.TargetTokens),
		chunker.WithOverlapTokens(cfg.Chunking.OverlapTokens),
		chunker.WithMinChars(cfg.Chunking.MinChars),
	)

	svcs := cli.Services{
		Search: services.NewRetrievalService(
			store.DocumentStore(), store.VectorSearcher(), embedder, cfg.Ranking()),
		Indexer: services.NewIndexOrchestrator(
			parsers.DefaultRegistry(), splitter, embedder,
			store.DocumentStore(), store.VectorSearcher(), store.RunStore(),
			cfg.Indexer()),
		Documents: services.NewDocumentService(store.DocumentStore()),
		Runs:      services.NewRunService(store.RunStore()),
		Config:    cfg,
	}
	closer := func() { _ = store.Close() }
	return svcs, closer, nil
}
