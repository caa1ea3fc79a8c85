package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"StratTick/internal/domain/models"
	"StratTick/internal/domain/service"
	"StratTick/internal/services/registry"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cycleAt = time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC)

type fakeRunner struct {
	batch *models.RecommendationBatch
	err   error
	got   time.Time
}

func (f *fakeRunner) Run(_ context.Context, instant time.Time) (*models.RecommendationBatch, error) {
	f.got = instant
	return f.batch, f.err
}

type fakeBatches struct {
	byCycle map[int64]*models.RecommendationBatch
	latest  *models.RecommendationBatch
}

func (f *fakeBatches) Latest(context.Context) (*models.RecommendationBatch, error) {
	if f.latest == nil {
		return nil, models.ErrBatchNotFound
	}
	return f.latest, nil
}

func (f *fakeBatches) ByCycle(_ context.Context, at time.Time) (*models.RecommendationBatch, error) {
	if b, ok := f.byCycle[at.Unix()]; ok {
		return b, nil
	}
	return nil, models.ErrBatchNotFound
}

func newRegistry(t *testing.T) *registry.Holder {
	t.Helper()
	hold := service.StrategyFunc(func(_ context.Context, _ []models.Candle, instant time.Time) (models.StrategyRecommendation, error) {
		return models.StrategyRecommendation{Timestamp: instant, Signal: models.SignalHold}, nil
	})
	specs := []models.StrategySpec{
		{ID: "s1h", Kind: "test", Timeframe: models.TF1h, LookbackHours: 10, Enabled: true},
		{ID: "s4h", Kind: "test", Timeframe: models.TF4h, LookbackHours: 40, Enabled: true},
		{ID: "off", Kind: "test", Timeframe: models.TF1h, LookbackHours: 10},
	}
	reg, err := registry.New(time.Hour, specs, map[string]service.Strategy{"s1h": hold, "s4h": hold})
	require.NoError(t, err)
	return registry.NewHolder(reg)
}

func serve(h *TickEchoHandler, method, target, body string) *httptest.ResponseRecorder {
	e := echo.New()
	h.RegisterRoutes(e)

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) int {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	if dest != nil {
		require.NoError(t, json.Unmarshal(env.Data, dest))
	}
	return env.Status
}

func TestDue_ReturnsAlignedEnabledStrategies(t *testing.T) {
	h := NewTickEchoHandler(nil, newRegistry(t), &fakeRunner{}, nil, nil)

	rec := serve(h, http.MethodGet, "/api/due?at=2024-01-05T12:00:00Z", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.DueResponse
	decode(t, rec, &resp)
	require.Len(t, resp.Strategies, 2)
	assert.Equal(t, "s1h", resp.Strategies[0].ID)
	assert.Equal(t, "s4h", resp.Strategies[1].ID)

	rec = serve(h, http.MethodGet, fmt.Sprintf("/api/due?at=%d", cycleAt.Add(time.Hour).Unix()), "")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &resp)
	require.Len(t, resp.Strategies, 1)
	assert.Equal(t, "s1h", resp.Strategies[0].ID)
}

func TestDue_RequiresInstant(t *testing.T) {
	h := NewTickEchoHandler(nil, newRegistry(t), &fakeRunner{}, nil, nil)

	rec := serve(h, http.MethodGet, "/api/due", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(h, http.MethodGet, "/api/due?at=noon", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegistry_ListsSpecs(t *testing.T) {
	h := NewTickEchoHandler(nil, newRegistry(t), &fakeRunner{}, nil, nil)

	rec := serve(h, http.MethodGet, "/api/registry", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.RegistryResponse
	decode(t, rec, &resp)
	assert.Len(t, resp.Strategies, 3)
	assert.Equal(t, 2, resp.Enabled)
}

func TestReloadRegistry_NotFileBacked(t *testing.T) {
	h := NewTickEchoHandler(nil, newRegistry(t), &fakeRunner{}, nil, nil)

	rec := serve(h, http.MethodPost, "/api/registry/reload", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestRunCycle(t *testing.T) {
	batch := &models.RecommendationBatch{ID: uuid.New(), Symbol: "BTCUSDT", CycleTime: cycleAt}
	runner := &fakeRunner{batch: batch}
	h := NewTickEchoHandler(nil, newRegistry(t), runner, nil, nil)

	rec := serve(h, http.MethodPost, "/api/cycles", `{"at":"2024-01-05T12:00:00Z"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, runner.got.Equal(cycleAt))
	assert.Equal(t, time.UTC, runner.got.Location())

	var got models.RecommendationBatch
	decode(t, rec, &got)
	assert.Equal(t, batch.ID, got.ID)
}

func TestRunCycle_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"invalid instant", &models.InvalidInstantError{Reason: "missing"}, http.StatusBadRequest},
		{"integrity", fmt.Errorf("prepare data: %w", &models.DataIntegrityError{Reason: "gap"}), http.StatusUnprocessableEntity},
		{"claimed", models.ErrCycleClaimed, http.StatusConflict},
		{"other", errors.New("store down"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewTickEchoHandler(nil, newRegistry(t), &fakeRunner{err: tt.err}, nil, nil)
			rec := serve(h, http.MethodPost, "/api/cycles", `{"at":"2024-01-05T12:00:00Z"}`)
			assert.Equal(t, tt.code, rec.Code)
		})
	}
}

func TestRunCycle_PublishFailureKeepsBatch(t *testing.T) {
	batch := &models.RecommendationBatch{ID: uuid.New(), Symbol: "BTCUSDT", CycleTime: cycleAt}
	runner := &fakeRunner{batch: batch, err: fmt.Errorf("publish batch: %w", errors.New("broker unavailable"))}
	h := NewTickEchoHandler(nil, newRegistry(t), runner, nil, nil)

	rec := serve(h, http.MethodPost, "/api/cycles", `{"at":"2024-01-05T12:00:00Z"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var errs []struct {
		Code   string `json:"code"`
		Params struct {
			Batch models.RecommendationBatch `json:"batch"`
		} `json:"params"`
	}
	decode(t, rec, &errs)
	require.Len(t, errs, 1)
	assert.Equal(t, "ERR_INTERNAL", errs[0].Code)
	assert.Equal(t, batch.ID, errs[0].Params.Batch.ID)
}

func TestRunCycle_MissingBody(t *testing.T) {
	h := NewTickEchoHandler(nil, newRegistry(t), &fakeRunner{}, nil, nil)
	rec := serve(h, http.MethodPost, "/api/cycles", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBatches(t *testing.T) {
	batch := &models.RecommendationBatch{ID: uuid.New(), Symbol: "BTCUSDT", CycleTime: cycleAt}
	store := &fakeBatches{byCycle: map[int64]*models.RecommendationBatch{cycleAt.Unix(): batch}, latest: batch}
	h := NewTickEchoHandler(nil, newRegistry(t), &fakeRunner{}, store, nil)

	rec := serve(h, http.MethodGet, "/api/batches/latest", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(h, http.MethodGet, fmt.Sprintf("/api/batches/%d", cycleAt.Unix()), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got models.RecommendationBatch
	decode(t, rec, &got)
	assert.Equal(t, batch.ID, got.ID)

	rec = serve(h, http.MethodGet, fmt.Sprintf("/api/batches/%d", cycleAt.Add(time.Hour).Unix()), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBatches_Disabled(t *testing.T) {
	h := NewTickEchoHandler(nil, newRegistry(t), &fakeRunner{}, nil, nil)
	rec := serve(h, http.MethodGet, "/api/batches/latest", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealth(t *testing.T) {
	checks := map[string]HealthCheck{
		"store": func(context.Context) error { return nil },
	}
	h := NewTickEchoHandler(nil, newRegistry(t), &fakeRunner{}, nil, checks)
	rec := serve(h, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)

	checks["kafka"] = func(context.Context) error { return errors.New("unreachable") }
	rec = serve(h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var status map[string]string
	decode(t, rec, &status)
	assert.Equal(t, "ok", status["store"])
	assert.Equal(t, "unreachable", status["kafka"])
}
