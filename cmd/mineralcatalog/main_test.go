package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mineralcatalog/internal/config"
	"mineralcatalog/internal/logging"
)

func execute(t *testing.T, ctx context.Context, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	return stdout.String(), stderr.String(), err
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestVersionCommand(t *testing.T) {
	out, _, err := execute(t, context.Background(), "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "mineralcatalog dev"))
	assert.Contains(t, out, "api 1.0.0")
}

func TestConfigCommandAppliesFileAndFlags(t *testing.T) {
	path := writeConfig(t, "server:\n  addr: \":9000\"\nlog:\n  level: warn\nblob:\n  s3:\n    secret_access_key: hunter2\n")

	out, _, err := execute(t, context.Background(), "config", "--config", path, "--addr", ":9100", "--log-format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, ":9100")
	assert.Contains(t, out, "level: warn")
	assert.Contains(t, out, "format: json")
	assert.NotContains(t, out, "hunter2")
}

func TestConfigCommandRejectsInvalidConfig(t *testing.T) {
	_, _, err := execute(t, context.Background(), "config", "--storage", "mongo")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
	assert.Contains(t, err.Error(), "mongo")
}

func TestConfigCommandReportsMissingFile(t *testing.T) {
	_, _, err := execute(t, context.Background(), "config", "--config", filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestServeStopsWhenContextEnds(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	_, stderr, err := execute(t, ctx, "--addr", "127.0.0.1:0", "--log-format", "json")
	require.NoError(t, err)
	assert.Contains(t, stderr, `"msg":"mineral catalog ready"`)
	assert.Contains(t, stderr, `"msg":"http server stopped"`)
}

func TestNewAppWiresCatalogExportsAndMetrics(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Driver = config.StorageSQLite
	cfg.Storage.SQLitePath = filepath.Join(t.TempDir(), "catalog.db")
	cfg.Blob.Driver = config.BlobFS
	cfg.Blob.FSRoot = t.TempDir()

	a, err := newApp(context.Background(), cfg, logging.Nop())
	require.NoError(t, err)
	defer a.close()
	require.NotNil(t, a.worker)
	require.NotNil(t, a.metrics)

	h := a.server.Handler()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/minerals", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Quartz")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/exports", strings.NewReader(`{"formats":["json"]}`)))
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "mineralcatalog_records 2")
}

func TestNewAppWithoutExportsOrMetrics(t *testing.T) {
	cfg := config.Default()
	cfg.Exports.Enabled = false
	cfg.Metrics.Enabled = false

	a, err := newApp(context.Background(), cfg, logging.Nop())
	require.NoError(t, err)
	defer a.close()
	assert.Nil(t, a.worker)
	assert.Nil(t, a.metrics)

	rec := httptest.NewRecorder()
	a.server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/exports", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestNewAppReportsBlobFailure(t *testing.T) {
	cfg := config.Default()
	cfg.Blob.Driver = "tape"

	_, err := newApp(context.Background(), cfg, logging.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown blob driver")
}
