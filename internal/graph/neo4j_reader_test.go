package graph

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/archlens/archlens/internal/errors"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
)

func TestClassifyQueryError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want errors.ErrorType
	}{
		{"syntax", &neo4j.Neo4jError{Code: "Neo.ClientError.Statement.SyntaxError"}, errors.ErrorTypeValidation},
		{"write in read mode", &neo4j.Neo4jError{Code: "Neo.ClientError.Statement.AccessMode"}, errors.ErrorTypeValidation},
		{"wrapped client error", fmt.Errorf("run: %w", &neo4j.Neo4jError{Code: "Neo.ClientError.Statement.ParameterMissing"}), errors.ErrorTypeValidation},
		{"transient", &neo4j.Neo4jError{Code: "Neo.TransientError.Transaction.DeadlockDetected"}, errors.ErrorTypeDatabase},
		{"database error", &neo4j.Neo4jError{Code: "Neo.DatabaseError.General.UnknownError"}, errors.ErrorTypeDatabase},
		{"connectivity", &neo4j.ConnectivityError{Inner: stderrors.New("refused")}, errors.ErrorTypeNetwork},
		{"context deadline", fmt.Errorf("query: %w", stderrors.New("deadline exceeded")), errors.ErrorTypeDatabase},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errors.GetType(classifyQueryError(tt.err)))
		})
	}
}
