package services

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/stridefit/admin-gateway/logger"
	"github.com/stridefit/admin-gateway/types"
)

// HealthService probes the gateway's two upstream dependencies: the Redis
// session-record store and the platform backend the verifier talks to.
type HealthService struct {
	redisClient redis.UniversalClient
	backendURL  string
	httpClient  *http.Client
	version     string
	log         *zap.SugaredLogger
}

func NewHealthService(redisClient redis.UniversalClient, backendURL string, version string) *HealthService {
	return &HealthService{
		redisClient: redisClient,
		backendURL:  strings.TrimSuffix(backendURL, "/"),
		httpClient:  &http.Client{Timeout: 3 * time.Second},
		version:     version,
		log:         logger.GetLogger(),
	}
}

func (h *HealthService) CheckHealth(ctx context.Context) types.HealthCheck {
	components := make(map[string]types.HealthComponent)
	overallStatus := types.HealthStatusUp

	redisStatus := h.checkRedis(ctx)
	components["redis"] = redisStatus
	if redisStatus.Status == types.HealthStatusDown {
		// Sessions still resolve through backend verification when the
		// record store is away, so Redis down only degrades the gateway.
		overallStatus = types.HealthStatusDegraded
	}

	backendStatus := h.checkBackend(ctx)
	components["backend"] = backendStatus
	if backendStatus.Status == types.HealthStatusDown {
		overallStatus = types.HealthStatusDown
	}

	return types.HealthCheck{
		Status:     overallStatus,
		Components: components,
		Version:    h.version,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
}

func (h *HealthService) checkRedis(ctx context.Context) types.HealthComponent {
	if h.redisClient == nil {
		return types.HealthComponent{
			Status:  types.HealthStatusDegraded,
			Details: "Record store running in-memory",
		}
	}
	if err := h.redisClient.Ping(ctx).Err(); err != nil {
		h.log.Errorw("Redis health check failed", "error", err)
		return types.HealthComponent{
			Status:  types.HealthStatusDown,
			Details: "Redis connection failed",
		}
	}
	return types.HealthComponent{
		Status: types.HealthStatusUp,
	}
}

func (h *HealthService) checkBackend(ctx context.Context) types.HealthComponent {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.backendURL+"/health", nil)
	if err != nil {
		return types.HealthComponent{
			Status:  types.HealthStatusDown,
			Details: "Invalid backend URL",
		}
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		h.log.Errorw("Backend health check failed", "error", err)
		return types.HealthComponent{
			Status:  types.HealthStatusDown,
			Details: "Backend unreachable",
		}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	// Any response at all means the backend is reachable; its own health
	// endpoint may legitimately report degraded without taking us down.
	if resp.StatusCode >= 500 {
		return types.HealthComponent{
			Status:  types.HealthStatusDegraded,
			Details: "Backend reported unhealthy",
		}
	}
	return types.HealthComponent{
		Status: types.HealthStatusUp,
	}
}
