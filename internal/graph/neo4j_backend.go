package graph

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/archlens/archlens/internal/errors"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Neo4jBackend implements Backend, Reader and SchemaReader over a Neo4j
// driver. It is constructed and closed by the caller; nothing in this
// package holds a process-wide handle.
type Neo4jBackend struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *slog.Logger
	monitor  *QueryMonitor
}

// Neo4jOptions holds connection settings
type Neo4jOptions struct {
	URI      string
	User     string
	Password string
	Database string

	// MaxConnectionPoolSize defaults to 50
	MaxConnectionPoolSize int
}

// NewNeo4jBackend opens a driver and verifies connectivity (fail fast)
func NewNeo4jBackend(ctx context.Context, opts Neo4jOptions) (*Neo4jBackend, error) {
	if opts.URI == "" || opts.User == "" || opts.Password == "" {
		return nil, errors.ConfigErrorf("neo4j credentials missing: uri=%s, user=%s", opts.URI, opts.User)
	}
	if opts.Database == "" {
		opts.Database = "neo4j"
	}
	if opts.MaxConnectionPoolSize <= 0 {
		opts.MaxConnectionPoolSize = 50
	}

	driver, err := neo4j.NewDriverWithContext(opts.URI,
		neo4j.BasicAuth(opts.User, opts.Password, ""),
		func(config *neo4j.Config) {
			config.MaxConnectionPoolSize = opts.MaxConnectionPoolSize
			config.ConnectionAcquisitionTimeout = 60 * time.Second
			config.MaxConnectionLifetime = 3600 * time.Second
			config.ConnectionLivenessCheckTimeout = 5 * time.Second
			config.SocketConnectTimeout = 5 * time.Second
			config.SocketKeepalive = true
		})
	if err != nil {
		return nil, errors.ConfigErrorf("failed to create neo4j driver for %s: %v", opts.URI, err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, errors.NetworkErrorf(err, "failed to connect to neo4j at %s", opts.URI)
	}

	logger := slog.Default().With("component", "neo4j")
	logger.Info("neo4j backend connected",
		"uri", opts.URI,
		"user", opts.User,
		"database", opts.Database,
		"max_pool_size", opts.MaxConnectionPoolSize)

	return &Neo4jBackend{
		driver:   driver,
		database: opts.Database,
		logger:   logger,
		monitor:  NewQueryMonitor(),
	}, nil
}

// ExecuteWrite implements Backend with an explicit transaction. The driver's
// managed-transaction retry is deliberately not used: a failed statement
// fails the unit of work.
func (n *Neo4jBackend) ExecuteWrite(ctx context.Context, operation string, work func(tx Tx) error) error {
	txConfig := GetConfigForOperation(operation)
	return n.monitor.Observe(operation, txConfig.Timeout, func() error {
		return n.executeWrite(ctx, operation, txConfig, work)
	})
}

func (n *Neo4jBackend) executeWrite(ctx context.Context, operation string, txConfig TransactionConfig, work func(tx Tx) error) error {
	session := n.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: n.database,
		AccessMode:   neo4j.AccessModeWrite,
	})
	defer session.Close(ctx)

	tx, err := session.BeginTransaction(ctx, txConfig.AsNeo4jConfig()...)
	if err != nil {
		return classifyError(err, "begin %s transaction", operation)
	}

	if err := work(&neo4jTx{tx: tx}); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			n.logger.Warn("rollback failed", "operation", operation, "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return classifyError(err, "commit %s transaction", operation)
	}
	return nil
}

// HealthCheck verifies Neo4j connectivity
func (n *Neo4jBackend) HealthCheck(ctx context.Context) error {
	cfg := GetConfigForOperation(OpHealthCheck)
	checkCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	if err := n.driver.VerifyConnectivity(checkCtx); err != nil {
		return errors.NetworkErrorf(err, "neo4j health check failed")
	}
	return nil
}

// Close closes the Neo4j driver connection
func (n *Neo4jBackend) Close(ctx context.Context) error {
	n.monitor.LogSummary()
	if err := n.driver.Close(ctx); err != nil {
		return fmt.Errorf("failed to close neo4j driver: %w", err)
	}
	n.logger.Info("neo4j backend closed")
	return nil
}

// neo4jTx adapts an explicit driver transaction to Tx
type neo4jTx struct {
	tx neo4j.ExplicitTransaction
}

func (t *neo4jTx) MergeNode(ctx context.Context, node NodeRef, props map[string]any) error {
	builder := NewCypherBuilder()
	cypher, err := builder.BuildMergeNode(node, props)
	if err != nil {
		return errors.DatabaseErrorf(err, "failed to build merge for %s", node.ID())
	}

	result, err := t.tx.Run(ctx, cypher, builder.Params())
	if err != nil {
		return classifyError(err, "merge %s", node.ID())
	}
	if _, err := result.Consume(ctx); err != nil {
		return classifyError(err, "merge %s", node.ID())
	}
	return nil
}

func (t *neo4jTx) MergeEdge(ctx context.Context, from NodeRef, rel string, to NodeRef) error {
	builder := NewCypherBuilder()
	cypher, err := builder.BuildMergeEdge(from, rel, to)
	if err != nil {
		return errors.DatabaseErrorf(err, "failed to build merge for %s", rel)
	}

	result, err := t.tx.Run(ctx, cypher, builder.Params())
	if err != nil {
		return classifyError(err, "merge %s-[%s]->%s", from.ID(), rel, to.ID())
	}
	record, err := result.Single(ctx)
	if err != nil {
		return classifyError(err, "merge %s-[%s]->%s", from.ID(), rel, to.ID())
	}

	merged, _ := record.Get("merged")
	if count, ok := merged.(int64); !ok || count == 0 {
		return errors.DatabaseErrorf(fmt.Errorf("endpoints not found"),
			"merge %s-[%s]->%s matched nothing", from.ID(), rel, to.ID())
	}
	return nil
}

func (t *neo4jTx) DeleteAll(ctx context.Context) error {
	result, err := t.tx.Run(ctx, NewCypherBuilder().BuildDeleteAll(), nil)
	if err != nil {
		return classifyError(err, "delete all nodes")
	}
	summary, err := result.Consume(ctx)
	if err != nil {
		return classifyError(err, "delete all nodes")
	}

	counters := summary.Counters()
	slog.Default().With("component", "neo4j").Info("graph cleared",
		"nodes_deleted", counters.NodesDeleted(),
		"relationships_deleted", counters.RelationshipsDeleted())
	return nil
}

// classifyError maps driver errors onto error kinds: connectivity problems
// become Network errors, everything else Database errors.
func classifyError(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	if neo4j.IsConnectivityError(err) {
		return errors.NetworkErrorf(err, format, args...)
	}
	return errors.DatabaseErrorf(err, format, args...)
}
