package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/planner-sync-api/internal/dto"
	"github.com/noah-isme/planner-sync-api/internal/handler"
	"github.com/noah-isme/planner-sync-api/internal/service"
	"github.com/noah-isme/planner-sync-api/pkg/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()
	return &config.Config{
		Env:       config.EnvDevelopment,
		APIPrefix: "/api",
		Storage: config.StorageConfig{
			Driver:          config.StorageDriverFile,
			DataDir:         filepath.Join(dir, "calendars"),
			LegacyStateFile: filepath.Join(dir, "schedule.json"),
			TempSweepCron:   "@every 1h",
		},
		Metrics: config.MetricsConfig{Enabled: true},
		Export:  config.ExportConfig{Timezone: "UTC"},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) (http.Handler, *service.CalendarService) {
	t.Helper()
	logr := zap.NewNop()
	st, err := openStore(context.Background(), cfg, logr)
	require.NoError(t, err)
	t.Cleanup(st.Close)

	metrics := service.NewMetricsService()
	calendars := newCalendarService(st, metrics, logr)
	require.NoError(t, calendars.Load(context.Background()))
	_, err = importLegacy(context.Background(), calendars, cfg.Storage.LegacyStateFile, logr)
	require.NoError(t, err)

	exports := service.NewExportService(calendars, service.ExportConfig{Timezone: cfg.Export.Timezone}, logr)
	return newRouter(cfg, logr, metrics, st, handler.NewCalendarHandler(calendars, exports)), calendars
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]json.RawMessage) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var env map[string]json.RawMessage
	if w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func TestServerConcurrentEditsMerge(t *testing.T) {
	cfg := testConfig(t)
	h, _ := newTestServer(t, cfg)

	w, env := doJSON(t, h, http.MethodPost, "/api/calendars", map[string]string{"name": "Shared"})
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env["data"], &created))

	base := map[string]interface{}{
		"startDate": "2026-03-02",
		"events": map[string]interface{}{
			"0": []map[string]interface{}{{"id": "a", "dayIndex": 0, "startMinutes": 0, "endMinutes": 60}},
		},
	}
	w, _ = doJSON(t, h, http.MethodPut, "/api/calendars/"+created.ID, map[string]interface{}{"state": base})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Header().Get(handler.RevisionHeader))

	clientB := map[string]interface{}{
		"startDate": "2026-03-02",
		"events": map[string]interface{}{
			"0": []map[string]interface{}{
				{"id": "a", "dayIndex": 0, "startMinutes": 0, "endMinutes": 60},
				{"id": "b", "dayIndex": 0, "startMinutes": 120, "endMinutes": 180},
			},
		},
	}
	w, _ = doJSON(t, h, http.MethodPut, "/api/calendars/"+created.ID, map[string]interface{}{"state": clientB, "baseState": base, "baseRevision": 1})
	require.Equal(t, http.StatusOK, w.Code)

	clientA := map[string]interface{}{
		"startDate": "2026-03-02",
		"events": map[string]interface{}{
			"0": []map[string]interface{}{{"id": "a", "dayIndex": 0, "startMinutes": 0, "endMinutes": 90}},
		},
	}
	w, env = doJSON(t, h, http.MethodPut, "/api/calendars/"+created.ID, map[string]interface{}{"state": clientA, "baseState": base, "baseRevision": 1})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "3", w.Header().Get(handler.RevisionHeader))

	var saved struct {
		State struct {
			Events map[string][]struct {
				ID         string `json:"id"`
				EndMinutes int    `json:"endMinutes"`
			} `json:"events"`
		} `json:"state"`
	}
	require.NoError(t, json.Unmarshal(env["data"], &saved))
	require.Len(t, saved.State.Events["0"], 2)
	assert.Equal(t, "a", saved.State.Events["0"][0].ID)
	assert.Equal(t, 90, saved.State.Events["0"][0].EndMinutes)
	assert.Equal(t, "b", saved.State.Events["0"][1].ID)

	// A restart reloads the same state with the revision reset.
	h2, _ := newTestServer(t, cfg)
	w, env = doJSON(t, h2, http.MethodGet, "/api/calendars/"+created.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0", w.Header().Get(handler.RevisionHeader))
	assert.Contains(t, string(env["data"]), `"endMinutes":90`)
}

func TestServerImportsLegacyStateOnce(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(cfg.Storage.LegacyStateFile, []byte(`{"numDays":3,"events":{"0":[{"id":"x","title":"old"}]}}`), 0o644))

	h, calendars := newTestServer(t, cfg)
	items := calendars.List(context.Background())
	require.Len(t, items, 1)
	assert.Equal(t, service.LegacyCalendarName, items[0].Name)

	w, _ := doJSON(t, h, http.MethodGet, "/api/calendars", nil)
	require.Equal(t, http.StatusOK, w.Code)

	_, again := newTestServer(t, cfg)
	assert.Len(t, again.List(context.Background()), 1)
}

func TestServerProbesAndExport(t *testing.T) {
	cfg := testConfig(t)
	h, calendars := newTestServer(t, cfg)

	w, _ := doJSON(t, h, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = doJSON(t, h, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	created, err := calendars.Create(context.Background(), dto.CreateCalendarRequest{Name: "Export me"})
	require.NoError(t, err)
	w, _ = doJSON(t, h, http.MethodGet, "/api/calendars/"+created.ID+"/export?format=ics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "BEGIN:VCALENDAR")
}

func TestOpenStoreUnknownDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Driver = "mongo"
	_, err := openStore(context.Background(), cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestStartTempSweeper(t *testing.T) {
	cfg := testConfig(t)
	st, err := openStore(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer st.Close()

	c, err := startTempSweeper(st, cfg.Storage, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, c)
	<-c.Stop().Done()

	cfg.Storage.TempSweepCron = "not a schedule"
	_, err = startTempSweeper(st, cfg.Storage, zap.NewNop())
	assert.Error(t, err)
}
