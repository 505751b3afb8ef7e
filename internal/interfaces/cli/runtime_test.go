package cli

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jasmincar/milo-lab/internal/config"
	"github.com/jasmincar/milo-lab/internal/testutil"
	"github.com/jasmincar/milo-lab/pkg/errors"
)

func memoryConfig() *config.Config {
	cfg := config.Default()
	cfg.Database.Driver = config.DriverNone
	return cfg
}

func TestNewRuntime_NoDatabase(t *testing.T) {
	t.Parallel()
	data := writeFile(t, t.TempDir(), "eq.csv", equilibriumCSV)

	rt, err := NewRuntime(context.Background(), memoryConfig(), nil, data)
	require.NoError(t, err)
	defer rt.Close()

	assert.False(t, rt.HasStore())
	assert.Empty(t, rt.Checks)
	assert.Nil(t, rt.Events)
	assert.NotNil(t, rt.Collector)
	assert.Equal(t, 2, rt.Registry.Len())
}

func TestNewRuntime_SQLite(t *testing.T) {
	t.Parallel()
	cfg := memoryConfig()
	cfg.Database.Driver = config.DriverSQLite
	cfg.Database.SQLite.Path = filepath.Join(t.TempDir(), "gibbs.db")
	cfg.Monitoring.Metrics.Enabled = false
	log := testutil.NewMockLogger()

	rt, err := NewRuntime(context.Background(), cfg, log, "")
	require.NoError(t, err)

	assert.True(t, rt.HasStore())
	require.Len(t, rt.Checks, 1)
	assert.Equal(t, config.DriverSQLite, rt.Checks[0].Name())
	assert.NoError(t, rt.Checks[0].Check(context.Background()))
	assert.Nil(t, rt.Collector)
	assert.Zero(t, rt.Registry.Len())

	require.NoError(t, rt.Close())
	assert.NoError(t, rt.Close())
}

func TestNewRuntime_BadDataFile(t *testing.T) {
	t.Parallel()
	_, err := NewRuntime(context.Background(), memoryConfig(), nil, filepath.Join(t.TempDir(), "absent.csv"))
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidParam, errors.GetCode(err))
}

func TestNewHTTPHandler(t *testing.T) {
	t.Parallel()
	cfg := memoryConfig()
	cfg.Server.CORSOrigins = []string{"https://lab.example.com"}
	data := writeFile(t, t.TempDir(), "eq.csv", equilibriumCSV)

	rt, err := NewRuntime(context.Background(), cfg, nil, data)
	require.NoError(t, err)
	defer rt.Close()
	h := NewHTTPHandler(rt, false)

	get := func(target string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
		return w
	}

	w := get("/api/v1/compounds")
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, 2, list.Total)

	assert.Equal(t, http.StatusOK, get("/readyz").Code)
	assert.Equal(t, http.StatusOK, get("/metrics").Code)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/compounds", nil)
	req.Header.Set("Origin", "https://lab.example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

//Personal.AI order the ending
