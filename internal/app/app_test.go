package app

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"github.com/utafrali/storefront-search/internal/config"
	"github.com/utafrali/storefront-search/internal/domain"
	"github.com/utafrali/storefront-search/internal/engine/memory"
)

func writeFixture(t *testing.T, products []domain.Product) string {
	t.Helper()
	data, err := json.Marshal(products)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "products.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func memoryConfig(t *testing.T, fixture string) *config.Config {
	t.Helper()
	t.Setenv("SEARCH_ENGINE", "memory")
	t.Setenv("VISIT_STORE", "memory")
	t.Setenv("SEARCH_MEMORY_FIXTURE", fixture)

	cfg, err := config.Load()
	require.NoError(t, err)
	return cfg
}

func TestNewApp_MemoryStack(t *testing.T) {
	fixture := writeFixture(t, []domain.Product{
		{ID: "p-1", Name: "Running Shoes", CategoryID: "c-1", CategoryName: "Shoes", Published: true},
		{ID: "p-2", Name: "Rain Jacket", CategoryID: "c-2", CategoryName: "Jackets", Published: true},
	})
	cfg := memoryConfig(t, fixture)

	a, err := NewApp(cfg, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.tracerShutdown(context.Background()) })
	assert.Nil(t, a.rdb)

	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/search?q=running", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Data domain.Outcome `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Data.TotalCount)
	require.Len(t, resp.Data.Hits, 1)
	assert.Equal(t, "p-1", resp.Data.Hits[0].EntityID())

	rec = httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNewApp_MissingFixture(t *testing.T) {
	cfg := memoryConfig(t, filepath.Join(t.TempDir(), "missing.json"))

	a, err := NewApp(cfg, slog.New(slog.DiscardHandler))

	assert.Nil(t, a)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read fixture")
}

func TestLoadFixture_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"id":`), 0o600))

	n, err := loadFixture(context.Background(), memory.New(), path)

	assert.Zero(t, n)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode fixture")
}

func TestShutdown_WithoutServing(t *testing.T) {
	cfg := memoryConfig(t, "")

	a, err := NewApp(cfg, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	assert.NoError(t, a.Shutdown())
}

func TestNewApp_FailureShutsDownTracer(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"missing fixture", map[string]string{"SEARCH_MEMORY_FIXTURE": filepath.Join(t.TempDir(), "missing.json")}, "read fixture"},
		{"bad default language", map[string]string{"DEFAULT_LANGUAGE": "!!"}, "init translator"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prev := otel.GetTracerProvider()
			t.Cleanup(func() { otel.SetTracerProvider(prev) })

			t.Setenv("SEARCH_ENGINE", "memory")
			t.Setenv("VISIT_STORE", "memory")
			t.Setenv("OTEL_ENABLED", "true")
			t.Setenv("OTEL_ENDPOINT", "127.0.0.1:0")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cfg, err := config.Load()
			require.NoError(t, err)

			a, err := NewApp(cfg, slog.New(slog.DiscardHandler))

			assert.Nil(t, a)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)

			_, span := otel.Tracer("storefront-search/test").Start(context.Background(), "after-failure")
			defer span.End()
			assert.False(t, span.IsRecording(), "tracer provider must be shut down")
		})
	}
}
