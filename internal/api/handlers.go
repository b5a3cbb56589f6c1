package api

import (
	"net/http"

	"github.com/archlens/archlens/internal/errors"
	"github.com/archlens/archlens/internal/graph"
	"github.com/gin-gonic/gin"
)

// HandleHealth reports service and database status. It always answers 200.
func (s *Server) HandleHealth(c *gin.Context) {
	status := statusConnected
	if s.health == nil {
		status = statusUnavailable
	} else if err := s.health.HealthCheck(c.Request.Context()); err != nil {
		s.logger.Warn("database health check failed", "error", err)
		status = statusUnavailable
	}
	c.JSON(http.StatusOK, HealthResponse{Message: ServiceMessage, DatabaseStatus: status})
}

// HandleClassDependencies returns the classes with most internal dependencies
func (s *Server) HandleClassDependencies(c *gin.Context) {
	var q DependenciesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		s.respondError(c, errors.ValidationError(err, "invalid query parameters"))
		return
	}
	if q.Limit == 0 {
		q.Limit = graph.DefaultDependencyLimit
	}

	rows, err := s.reader.ClassDependencies(c.Request.Context(), q.Limit)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(rows))
}

// HandlePackageClassCounts returns the number of classes per package
func (s *Server) HandlePackageClassCounts(c *gin.Context) {
	rows, err := s.reader.PackageClassCounts(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(rows))
}

// HandleLabelCounts returns node counts per label
func (s *Server) HandleLabelCounts(c *gin.Context) {
	rows, err := s.reader.LabelCounts(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(rows))
}

// HandleTotalClasses returns the number of classes as a bare integer
func (s *Server) HandleTotalClasses(c *gin.Context) {
	n, err := s.reader.TotalClasses(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, n)
}

// HandleClassDetail returns one class with its members and dependencies
func (s *Server) HandleClassDetail(c *gin.Context) {
	detail, err := s.reader.ClassDetail(c.Request.Context(), c.Param("name"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// HandleClassDescription asks the LLM for a business description of a class
func (s *Server) HandleClassDescription(c *gin.Context) {
	if s.describer == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error: "class descriptions need an LLM provider; configure an API key",
			Kind:  errors.ErrorTypeConfig.String(),
		})
		return
	}

	var q DescriptionQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		s.respondError(c, errors.ValidationError(err, "invalid query parameters"))
		return
	}

	detail, err := s.reader.ClassDetail(c.Request.Context(), c.Param("name"))
	if err != nil {
		s.respondError(c, err)
		return
	}

	text, err := s.describer.Describe(c.Request.Context(), detail, q.Language)
	if err != nil {
		s.respondError(c, err)
		return
	}

	language := q.Language
	if language == "" {
		language = "english"
	}
	c.JSON(http.StatusOK, DescriptionResponse{
		ClassName:   detail.Name,
		Language:    language,
		Description: text,
	})
}

// HandleClassDiagram renders a Mermaid class diagram
func (s *Server) HandleClassDiagram(c *gin.Context) {
	detail, err := s.reader.ClassDetail(c.Request.Context(), c.Param("name"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	text, err := s.renderer.ClassDiagram(detail)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, DiagramResponse{Subject: detail.Name, Format: formatMermaid, Diagram: text})
}

// HandleInternalDependencies walks the internal dependency edges out of a class
func (s *Server) HandleInternalDependencies(c *gin.Context) {
	var q TraversalQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		s.respondError(c, errors.ValidationError(err, "invalid query parameters"))
		return
	}
	depth := graph.ClampDependencyDepth(q.Depth)

	hops, err := s.reader.InternalDependencies(c.Request.Context(), c.Param("name"), depth)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, TraversalResponse{Class: c.Param("name"), Depth: depth, Dependencies: nonNil(hops)})
}

// HandlePackageDiagram renders a Mermaid dependency flowchart for a package.
// ?direction=TD draws it top-down.
func (s *Server) HandlePackageDiagram(c *gin.Context) {
	var q DiagramQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		s.respondError(c, errors.ValidationError(err, "invalid query parameters"))
		return
	}
	renderer, err := s.renderer.WithDirection(q.Direction)
	if err != nil {
		s.respondError(c, err)
		return
	}

	view, err := s.reader.PackageView(c.Request.Context(), c.Param("name"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	text, err := renderer.PackageDiagram(view)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, DiagramResponse{Subject: view.Name, Format: formatMermaid, Diagram: text})
}

// respondError maps the error kind to an HTTP status
func (s *Server) respondError(c *gin.Context, err error) {
	kind := errors.GetType(err)
	status := StatusForError(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.FullPath(), "kind", kind.String(), "error", err)
	}
	c.JSON(status, ErrorResponse{Error: err.Error(), Kind: kind.String()})
}

// StatusForError maps an error to its HTTP status by kind
func StatusForError(err error) int {
	switch errors.GetType(err) {
	case errors.ErrorTypeValidation:
		return http.StatusBadRequest
	case errors.ErrorTypeNotFound:
		return http.StatusNotFound
	case errors.ErrorTypeNetwork, errors.ErrorTypeDatabase:
		return http.StatusServiceUnavailable
	case errors.ErrorTypeExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// nonNil makes empty results encode as [] rather than null
func nonNil[T any](rows []T) []T {
	if rows == nil {
		return []T{}
	}
	return rows
}
