package graph

import (
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Operation names accepted by GetConfigForOperation
const (
	OpGraphWipe      = "graph_wipe"
	OpRecordUpsert   = "record_upsert"
	OpCollectionLoad = "collection_load"
	OpReadQuery      = "read_query"
	OpSchemaQuery    = "schema_query"
	OpToolQuery      = "tool_query"
	OpHealthCheck    = "health_check"
)

// TransactionConfig defines timeout and metadata for transactions.
// Metadata is logged by Neo4j and visible in query.log.
type TransactionConfig struct {
	Timeout  time.Duration
	Metadata map[string]any
}

// DefaultTransactionConfigs returns the config per operation type
func DefaultTransactionConfigs() map[string]TransactionConfig {
	return map[string]TransactionConfig{
		// Full wipe before a reload; DETACH DELETE on a large graph is slow
		OpGraphWipe: {
			Timeout: 5 * time.Minute,
			Metadata: map[string]any{
				"operation": OpGraphWipe,
				"type":      "write",
			},
		},

		// One metadata record: a few dozen MERGE statements
		OpRecordUpsert: {
			Timeout: 1 * time.Minute,
			Metadata: map[string]any{
				"operation": OpRecordUpsert,
				"type":      "write",
			},
		},

		// Wipe plus every record in one transaction
		OpCollectionLoad: {
			Timeout: 15 * time.Minute,
			Metadata: map[string]any{
				"operation": OpCollectionLoad,
				"type":      "write",
			},
		},

		// Aggregate queries behind the read API
		OpReadQuery: {
			Timeout: 30 * time.Second,
			Metadata: map[string]any{
				"operation": OpReadQuery,
				"type":      "read",
			},
		},

		OpSchemaQuery: {
			Timeout: 30 * time.Second,
			Metadata: map[string]any{
				"operation": OpSchemaQuery,
				"type":      "read",
			},
		},

		// Free-form Cypher from the tool server
		OpToolQuery: {
			Timeout: 60 * time.Second,
			Metadata: map[string]any{
				"operation": OpToolQuery,
				"type":      "read",
			},
		},

		OpHealthCheck: {
			Timeout: 5 * time.Second,
			Metadata: map[string]any{
				"operation": OpHealthCheck,
				"type":      "read",
			},
		},
	}
}

// AsNeo4jConfig converts to Neo4j transaction config functions
func (tc TransactionConfig) AsNeo4jConfig() []func(*neo4j.TransactionConfig) {
	configs := []func(*neo4j.TransactionConfig){}

	if tc.Timeout > 0 {
		configs = append(configs, neo4j.WithTxTimeout(tc.Timeout))
	}

	if len(tc.Metadata) > 0 {
		configs = append(configs, neo4j.WithTxMetadata(tc.Metadata))
	}

	return configs
}

// GetConfigForOperation retrieves the transaction config for an operation.
// Unknown operations get a 60s timeout.
func GetConfigForOperation(operation string) TransactionConfig {
	configs := DefaultTransactionConfigs()
	if config, ok := configs[operation]; ok {
		return config
	}

	return TransactionConfig{
		Timeout: 60 * time.Second,
		Metadata: map[string]any{
			"operation": operation,
			"type":      "unknown",
		},
	}
}

// WithTimeout creates a config with a custom timeout
func (tc TransactionConfig) WithTimeout(timeout time.Duration) TransactionConfig {
	return TransactionConfig{
		Timeout:  timeout,
		Metadata: tc.Metadata,
	}
}
