package main

import (
	"context"

	"github.com/archlens/archlens/internal/config"
	"github.com/archlens/archlens/internal/graph"
	"github.com/archlens/archlens/internal/ingestion"
	"github.com/archlens/archlens/internal/llm"
)

// validate checks configuration for a command, logging warnings
func validate(vctx config.ValidationContext) error {
	result := cfg.Validate(vctx)
	for _, w := range result.Warnings {
		logger.Warn(w)
	}
	return result.Err()
}

func openStore(ctx context.Context) (*graph.Neo4jBackend, error) {
	backend, err := graph.NewNeo4jBackend(ctx, graph.Neo4jOptions{
		URI:      cfg.Neo4j.URI,
		User:     cfg.Neo4j.User,
		Password: cfg.Neo4j.Password,
		Database: cfg.Neo4j.Database,
	})
	if err != nil {
		return nil, err
	}
	logger.WithField("uri", cfg.Neo4j.URI).Debug("connected to neo4j")
	return backend, nil
}

func newEngine() (*ingestion.Engine, error) {
	scope, err := ingestion.ParseIdentityScope(cfg.Ingestion.IdentityScope)
	if err != nil {
		return nil, err
	}
	return ingestion.NewEngine(scope), nil
}

func loadMode(flag string) (ingestion.LoadMode, error) {
	if flag == "" {
		flag = cfg.Ingestion.LoadMode
	}
	return ingestion.ParseLoadMode(flag)
}

// newLLM returns the configured client; it may be disabled
func newLLM(ctx context.Context) (*llm.Client, error) {
	return llm.NewClient(ctx, cfg.LLM)
}
