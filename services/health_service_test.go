package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"

	"github.com/stridefit/admin-gateway/logger"
	"github.com/stridefit/admin-gateway/types"
)

func init() {
	logger.IsTest = true
}

func TestCheckHealth_AllUp(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer backend.Close()

	client, mock := redismock.NewClientMock()
	mock.ExpectPing().SetVal("PONG")

	svc := NewHealthService(client, backend.URL, "1.0.0")
	health := svc.CheckHealth(context.Background())

	assert.Equal(t, types.HealthStatusUp, health.Status)
	assert.Equal(t, types.HealthStatusUp, health.Components["redis"].Status)
	assert.Equal(t, types.HealthStatusUp, health.Components["backend"].Status)
	assert.Equal(t, "1.0.0", health.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckHealth_BackendDownIsFatal(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	backend.Close()

	client, mock := redismock.NewClientMock()
	mock.ExpectPing().SetVal("PONG")

	svc := NewHealthService(client, backend.URL, "1.0.0")
	health := svc.CheckHealth(context.Background())

	assert.Equal(t, types.HealthStatusDown, health.Status)
	assert.Equal(t, types.HealthStatusDown, health.Components["backend"].Status)
}

func TestCheckHealth_RedisDownOnlyDegrades(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer backend.Close()

	client, mock := redismock.NewClientMock()
	mock.ExpectPing().SetErr(assert.AnError)

	svc := NewHealthService(client, backend.URL, "1.0.0")
	health := svc.CheckHealth(context.Background())

	assert.Equal(t, types.HealthStatusDegraded, health.Status)
	assert.Equal(t, types.HealthStatusDown, health.Components["redis"].Status)
}

func TestCheckHealth_MemoryStoreIsDegradedNotDown(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer backend.Close()

	svc := NewHealthService(nil, backend.URL, "1.0.0")
	health := svc.CheckHealth(context.Background())

	assert.Equal(t, types.HealthStatusDegraded, health.Status)
	assert.Equal(t, types.HealthStatusDegraded, health.Components["redis"].Status)
}
