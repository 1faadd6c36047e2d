package syncstatus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"clouddisk-sync/core/reconcile"
	"clouddisk-sync/feature/clouddisk/download"
	"clouddisk-sync/feature/clouddisk/handler"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockEngine struct {
	mock.Mock
}

func (m *mockEngine) Status(ctx context.Context) (handler.Status, error) {
	args := m.Called(ctx)
	st, _ := args.Get(0).(handler.Status)
	return st, args.Error(1)
}

func (m *mockEngine) GetRetryRecords(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	ids, _ := args.Get(0).([]string)
	return ids, args.Error(1)
}

func (m *mockEngine) CleanCache(ctx context.Context, cloudID string) error {
	return m.Called(ctx, cloudID).Error(0)
}

type mockDownloader struct {
	mock.Mock
}

func (m *mockDownloader) Download(ctx context.Context, cloudID string) (download.Result, error) {
	args := m.Called(ctx, cloudID)
	res, _ := args.Get(0).(download.Result)
	return res, args.Error(1)
}

func setupTestApp(t *testing.T, ttl time.Duration) (*fiber.App, *mockEngine, *mockDownloader) {
	t.Helper()
	engine := new(mockEngine)
	dl := new(mockDownloader)
	feature := NewFeature(engine, dl, ttl, zap.NewNop())
	app := fiber.New()
	require.NoError(t, feature.Load(app))
	return app, engine, dl
}

func decode(t *testing.T, app *fiber.App, method, path string) (int, map[string]any) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(method, path, nil))
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestFeature(t *testing.T) {
	f := NewFeature(new(mockEngine), new(mockDownloader), 0, zap.NewNop())
	assert.Equal(t, "syncstatus", f.Name())
	assert.True(t, f.IsEnabled())
}

func TestHandleStatus_Cached(t *testing.T) {
	app, engine, _ := setupTestApp(t, time.Minute)
	engine.On("Status", mock.Anything).Return(handler.Status{
		UserID:  100,
		ByDirty: map[string]int64{"NEW": 2},
	}, nil).Once()

	for i := 0; i < 3; i++ {
		code, body := decode(t, app, "GET", "/sync/status")
		assert.Equal(t, 200, code)
		assert.EqualValues(t, 100, body["user_id"])
		assert.EqualValues(t, 2, body["by_dirty"].(map[string]any)["NEW"])
	}
	engine.AssertNumberOfCalls(t, "Status", 1)
}

func TestHandleStatus_Error(t *testing.T) {
	app, engine, _ := setupTestApp(t, time.Minute)
	engine.On("Status", mock.Anything).Return(nil, errors.New("db gone")).Twice()

	code, body := decode(t, app, "GET", "/sync/status")
	assert.Equal(t, 500, code)
	assert.Equal(t, "db gone", body["error"])

	// failures are not cached
	code, _ = decode(t, app, "GET", "/sync/status")
	assert.Equal(t, 500, code)
	engine.AssertNumberOfCalls(t, "Status", 2)
}

func TestHandleRetry(t *testing.T) {
	app, engine, _ := setupTestApp(t, 0)
	engine.On("GetRetryRecords", mock.Anything).Return([]string{"A", "B"}, nil).Once()
	engine.On("GetRetryRecords", mock.Anything).Return(nil, nil).Once()

	code, body := decode(t, app, "GET", "/sync/retry")
	assert.Equal(t, 200, code)
	assert.EqualValues(t, 2, body["count"])
	assert.Equal(t, []any{"A", "B"}, body["ids"])

	_, body = decode(t, app, "GET", "/sync/retry")
	assert.Equal(t, []any{}, body["ids"])
}

func TestHandleDownload(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"ok", nil, 200},
		{"directory", reconcile.InvalidArgument("is_directory", "F", "directories have no content"), 400},
		{"not in store", fmt.Errorf("clouddisk/content/F: %w", download.ErrNotInStore), 404},
		{"store fault", reconcile.StoreFault("query", errors.New("locked")), 500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, _, dl := setupTestApp(t, 0)
			dl.On("Download", mock.Anything, "F").Return(download.Result{CloudID: "F", Bytes: 3}, tt.err)

			code, body := decode(t, app, "POST", "/sync/download/F")
			assert.Equal(t, tt.want, code)
			if tt.err == nil {
				assert.EqualValues(t, 3, body["bytes"])
			} else {
				assert.NotEmpty(t, body["error"])
			}
		})
	}
}

func TestHandleEvict(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"ok", nil, 200},
		{"open for writing", reconcile.RetryLater("F"), 409},
		{"not uploaded", reconcile.InvalidArgument("position", "F", "content not uploaded yet"), 400},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, engine, _ := setupTestApp(t, 0)
			engine.On("CleanCache", mock.Anything, "F").Return(tt.err)

			code, _ := decode(t, app, "DELETE", "/sync/cache/F")
			assert.Equal(t, tt.want, code)
			engine.AssertExpectations(t)
		})
	}
}

func TestEvictInvalidatesStatus(t *testing.T) {
	app, engine, _ := setupTestApp(t, time.Hour)
	engine.On("Status", mock.Anything).Return(handler.Status{}, nil)
	engine.On("CleanCache", mock.Anything, "F").Return(nil)

	decode(t, app, "GET", "/sync/status")
	decode(t, app, "DELETE", "/sync/cache/F")
	decode(t, app, "GET", "/sync/status")

	engine.AssertNumberOfCalls(t, "Status", 2)
}
