// Package api serves the read-only HTTP API over the code graph.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/archlens/archlens/internal/diagram"
	"github.com/archlens/archlens/internal/graph"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

// ServiceMessage is reported by the health route
const ServiceMessage = "archlens graph API is running."

const shutdownTimeout = 10 * time.Second

// HealthChecker reports store reachability
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Describer produces business-facing class descriptions
type Describer interface {
	Describe(ctx context.Context, detail *graph.ClassDetail, language string) (string, error)
}

// Server wires the query façade into gin routes
type Server struct {
	reader    graph.Reader
	health    HealthChecker
	describer Describer
	renderer  *diagram.Renderer
	logger    *slog.Logger
}

// NewServer creates a server. describer may be nil, in which case the
// description route answers 503.
func NewServer(reader graph.Reader, health HealthChecker, describer Describer) *Server {
	return &Server{
		reader:    reader,
		health:    health,
		describer: describer,
		renderer:  diagram.NewRenderer(0),
		logger:    slog.Default().With("component", "api"),
	}
}

// Router builds the gin engine with all routes registered
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())
	s.RegisterRoutes(router)
	return router
}

// RegisterRoutes registers every route on r.
//
//	GET /                                        health
//	GET /classes/dependencies                    top classes by internal dependency count
//	GET /packages/class-counts                   classes per package
//	GET /nodes/count-of-nodes                    nodes per label
//	GET /nodes/count-of-classes                  number of classes
//	GET /classes/by-name/:name                   class detail
//	GET /classes/by-name/:name/description       LLM description of a class
//	GET /classes/by-name/:name/dependencies      transitive internal dependencies
//	GET /diagrams/classes/:name                  Mermaid class diagram
//	GET /diagrams/packages/:name                 Mermaid package flowchart
//
// Per-class routes sit under /classes/by-name so a class named
// "dependencies" stays reachable.
func (s *Server) RegisterRoutes(r gin.IRouter) {
	r.GET("/", s.HandleHealth)

	classes := r.Group("/classes")
	classes.GET("/dependencies", s.HandleClassDependencies)

	byName := classes.Group("/by-name")
	byName.GET("/:name", s.HandleClassDetail)
	byName.GET("/:name/description", s.HandleClassDescription)
	byName.GET("/:name/dependencies", s.HandleInternalDependencies)

	r.GET("/packages/class-counts", s.HandlePackageClassCounts)

	nodes := r.Group("/nodes")
	nodes.GET("/count-of-nodes", s.HandleLabelCounts)
	nodes.GET("/count-of-classes", s.HandleTotalClasses)

	diagrams := r.Group("/diagrams")
	diagrams.GET("/classes/:name", s.HandleClassDiagram)
	diagrams.GET("/packages/:name", s.HandlePackageDiagram)
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("http server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.logger.Info("http server shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}
