package api

import "github.com/archlens/archlens/internal/graph"

// HealthResponse is returned by GET /
type HealthResponse struct {
	Message        string `json:"message"`
	DatabaseStatus string `json:"database_status"`
}

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// DescriptionResponse is returned by GET /classes/by-name/:name/description
type DescriptionResponse struct {
	ClassName   string `json:"class_name"`
	Language    string `json:"language"`
	Description string `json:"description"`
}

// DiagramResponse carries Mermaid source for the diagram routes
type DiagramResponse struct {
	Subject string `json:"subject"`
	Format  string `json:"format"`
	Diagram string `json:"diagram"`
}

// DependenciesQuery binds the query string of GET /classes/dependencies
type DependenciesQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=1000"`
}

// DescriptionQuery binds the query string of GET /classes/by-name/:name/description
type DescriptionQuery struct {
	Language string `form:"language" binding:"omitempty,max=32"`
}

// TraversalQuery binds the query string of GET /classes/by-name/:name/dependencies
type TraversalQuery struct {
	Depth int `form:"depth" binding:"omitempty,min=1,max=10"`
}

// TraversalResponse lists the internal dependency edges reachable from a class
type TraversalResponse struct {
	Class        string                `json:"class"`
	Depth        int                   `json:"depth"`
	Dependencies []graph.DependencyHop `json:"dependencies"`
}

// DiagramQuery binds the query string of GET /diagrams/packages/:name
type DiagramQuery struct {
	Direction string `form:"direction" binding:"omitempty,oneof=LR TD"`
}

const (
	statusConnected   = "Connected"
	statusUnavailable = "Unavailable"
	formatMermaid     = "mermaid"
)
