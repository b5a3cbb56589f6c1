package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/archlens/archlens/internal/errors"
	"github.com/archlens/archlens/internal/graph"
	"github.com/archlens/archlens/internal/ingestion"
	"github.com/archlens/archlens/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubHealth struct{ err error }

func (h stubHealth) HealthCheck(ctx context.Context) error { return h.err }

type stubDescriber struct {
	err      error
	language string
}

func (d *stubDescriber) Describe(ctx context.Context, detail *graph.ClassDetail, language string) (string, error) {
	d.language = language
	if d.err != nil {
		return "", d.err
	}
	return detail.Name + " handles orders.", nil
}

// failingReader fails every query with err
type failingReader struct {
	graph.Reader
	err error
}

func (f failingReader) PackageClassCounts(ctx context.Context) ([]graph.PackageClassCount, error) {
	return nil, f.err
}

func seededBackend(t *testing.T) *graph.MemoryBackend {
	t.Helper()
	backend := graph.NewMemoryBackend()

	records := []*models.CodeMetadata{
		{
			FileName:             "Foo.java",
			Package:              "com.acme",
			ClassName:            "Foo",
			InternalDependencies: []string{"com.acme.Bar"},
			ExternalDependencies: []string{"org.lib.Util"},
			Methods: []models.MethodMetadata{
				{Name: "run", ReturnType: "void", InternalDependencies: []string{"Bar"}},
			},
			ArchitectureLayer: models.LayerService,
		},
		{
			FileName:          "Bar.java",
			Package:           "com.acme",
			ClassName:         "Bar",
			ArchitectureLayer: models.LayerRepository,
		},
	}

	report, err := ingestion.NewLoader(backend, nil).Load(context.Background(), records, ingestion.LoadModeBestEffort)
	require.NoError(t, err)
	require.False(t, report.HasFailures())
	return backend
}

func get(t *testing.T, router http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHandleHealth(t *testing.T) {
	backend := seededBackend(t)

	tests := []struct {
		name   string
		health HealthChecker
		want   string
	}{
		{"connected", stubHealth{}, statusConnected},
		{"unreachable", stubHealth{err: fmt.Errorf("dial tcp: refused")}, statusUnavailable},
		{"no store", nil, statusUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := NewServer(backend, tt.health, nil).Router()
			w := get(t, router, "/")

			require.Equal(t, http.StatusOK, w.Code)
			resp := decode[HealthResponse](t, w)
			assert.Equal(t, ServiceMessage, resp.Message)
			assert.Equal(t, tt.want, resp.DatabaseStatus)
		})
	}
}

func TestReportRoutes(t *testing.T) {
	backend := seededBackend(t)
	router := NewServer(backend, backend, nil).Router()

	t.Run("class dependencies", func(t *testing.T) {
		w := get(t, router, "/classes/dependencies")
		require.Equal(t, http.StatusOK, w.Code)

		rows := decode[[]graph.ClassDependency](t, w)
		require.NotEmpty(t, rows)
		assert.Equal(t, "Foo", rows[0].ClassName)
		assert.Equal(t, "com.acme", rows[0].PackageName)
		assert.Equal(t, 1, rows[0].DependencyCount)
	})

	t.Run("class dependencies limit", func(t *testing.T) {
		w := get(t, router, "/classes/dependencies?limit=1")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, decode[[]graph.ClassDependency](t, w), 1)
	})

	t.Run("class dependencies bad limit", func(t *testing.T) {
		w := get(t, router, "/classes/dependencies?limit=0x")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("package class counts", func(t *testing.T) {
		w := get(t, router, "/packages/class-counts")
		require.Equal(t, http.StatusOK, w.Code)

		rows := decode[[]graph.PackageClassCount](t, w)
		assert.Contains(t, rows, graph.PackageClassCount{PackageName: "com.acme", ClassCount: 2})
	})

	t.Run("count of nodes", func(t *testing.T) {
		w := get(t, router, "/nodes/count-of-nodes")
		require.Equal(t, http.StatusOK, w.Code)

		counts := map[string]int{}
		for _, row := range decode[[]graph.LabelCount](t, w) {
			counts[row.Label] = row.Count
		}
		assert.Equal(t, 3, counts[graph.LabelClass], "Foo, Bar and Util")
	})

	t.Run("count of classes", func(t *testing.T) {
		w := get(t, router, "/nodes/count-of-classes")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "3", w.Body.String())
	})
}

func TestHandleClassDetail(t *testing.T) {
	backend := seededBackend(t)
	router := NewServer(backend, backend, nil).Router()

	w := get(t, router, "/classes/by-name/Foo")
	require.Equal(t, http.StatusOK, w.Code)
	detail := decode[graph.ClassDetail](t, w)
	assert.Equal(t, "Foo", detail.Name)
	assert.Equal(t, "Service", detail.Layer)
	assert.Equal(t, []string{"Bar"}, detail.InternalDependencies)
	assert.Equal(t, []string{"Util"}, detail.ExternalDependencies)

	w = get(t, router, "/classes/by-name/Nope")
	assert.Equal(t, http.StatusNotFound, w.Code)
	resp := decode[ErrorResponse](t, w)
	assert.Equal(t, "NOT_FOUND", resp.Kind)
}

func TestHandleClassDescription(t *testing.T) {
	backend := seededBackend(t)

	t.Run("no llm configured", func(t *testing.T) {
		router := NewServer(backend, backend, nil).Router()
		w := get(t, router, "/classes/by-name/Foo/description")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("described", func(t *testing.T) {
		d := &stubDescriber{}
		router := NewServer(backend, backend, d).Router()

		w := get(t, router, "/classes/by-name/Foo/description?language=german")
		require.Equal(t, http.StatusOK, w.Code)
		resp := decode[DescriptionResponse](t, w)
		assert.Equal(t, "Foo", resp.ClassName)
		assert.Equal(t, "german", resp.Language)
		assert.Equal(t, "Foo handles orders.", resp.Description)
		assert.Equal(t, "german", d.language)
	})

	t.Run("llm failure", func(t *testing.T) {
		d := &stubDescriber{err: errors.ExternalErrorf(fmt.Errorf("quota"), "description failed")}
		router := NewServer(backend, backend, d).Router()

		w := get(t, router, "/classes/by-name/Foo/description")
		assert.Equal(t, http.StatusBadGateway, w.Code)
	})

	t.Run("unknown class", func(t *testing.T) {
		router := NewServer(backend, backend, &stubDescriber{}).Router()
		w := get(t, router, "/classes/by-name/Nope/description")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestDiagramRoutes(t *testing.T) {
	backend := seededBackend(t)
	router := NewServer(backend, backend, nil).Router()

	w := get(t, router, "/diagrams/classes/Foo")
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[DiagramResponse](t, w)
	assert.Equal(t, formatMermaid, resp.Format)
	assert.Contains(t, resp.Diagram, "classDiagram")
	assert.Contains(t, resp.Diagram, "Foo ..> Bar : internal")

	w = get(t, router, "/diagrams/packages/com.acme")
	require.Equal(t, http.StatusOK, w.Code)
	resp = decode[DiagramResponse](t, w)
	assert.Equal(t, "com.acme", resp.Subject)
	assert.Contains(t, resp.Diagram, "Foo --> Bar")

	w = get(t, router, "/diagrams/packages/com.acme?direction=TD")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, decode[DiagramResponse](t, w).Diagram, "flowchart TD")

	w = get(t, router, "/diagrams/packages/com.acme?direction=up")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = get(t, router, "/diagrams/packages/org.none")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleInternalDependencies(t *testing.T) {
	backend := seededBackend(t)
	router := NewServer(backend, backend, nil).Router()

	w := get(t, router, "/classes/by-name/Foo/dependencies")
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[TraversalResponse](t, w)
	assert.Equal(t, "Foo", resp.Class)
	assert.Equal(t, graph.DefaultDependencyDepth, resp.Depth)
	assert.Equal(t, []graph.DependencyHop{{From: "Foo", To: "Bar", Depth: 1}}, resp.Dependencies)

	w = get(t, router, "/classes/by-name/Bar/dependencies?depth=2")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"class":"Bar","depth":2,"dependencies":[]}`, w.Body.String())

	w = get(t, router, "/classes/by-name/Foo/dependencies?depth=11")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = get(t, router, "/classes/by-name/Nope/dependencies")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// A class may be called "dependencies"; its detail route must not collide
// with the ranking route.
func TestClassNamedDependencies(t *testing.T) {
	backend := graph.NewMemoryBackend()
	records := []*models.CodeMetadata{{
		FileName: "dependencies.java", Package: "com.acme", ClassName: "dependencies", ArchitectureLayer: models.LayerService,
	}}
	_, err := ingestion.NewLoader(backend, nil).Load(context.Background(), records, ingestion.LoadModeBestEffort)
	require.NoError(t, err)
	router := NewServer(backend, backend, nil).Router()

	w := get(t, router, "/classes/by-name/dependencies")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "dependencies", decode[graph.ClassDetail](t, w).Name)

	w = get(t, router, "/classes/dependencies")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", w.Body.String())
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{errors.ValidationErrorf("bad"), http.StatusBadRequest},
		{errors.NotFoundf("missing"), http.StatusNotFound},
		{errors.NetworkErrorf(fmt.Errorf("refused"), "neo4j unreachable"), http.StatusServiceUnavailable},
		{errors.DatabaseErrorf(fmt.Errorf("syntax"), "query failed"), http.StatusServiceUnavailable},
		{errors.ExternalErrorf(fmt.Errorf("quota"), "llm"), http.StatusBadGateway},
		{fmt.Errorf("wrapped: %w", errors.NotFoundf("missing")), http.StatusNotFound},
		{fmt.Errorf("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusForError(tt.err), tt.err.Error())
	}
}

func TestReaderFailureMapsToUnavailable(t *testing.T) {
	reader := failingReader{err: errors.NetworkErrorf(fmt.Errorf("refused"), "neo4j unreachable")}
	router := NewServer(reader, stubHealth{}, nil).Router()

	w := get(t, router, "/packages/class-counts")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "NETWORK", decode[ErrorResponse](t, w).Kind)
}
