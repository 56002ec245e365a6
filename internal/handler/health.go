package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Pinger Redis 연결 확인 (cache.RedisClient가 구현)
type Pinger interface {
	Health(ctx context.Context) error
}

// HealthHandler 헬스체크 핸들러
type HealthHandler struct {
	db    *gorm.DB
	redis Pinger
	hub   interface{ Done() <-chan struct{} }
}

// NewHealthHandler HealthHandler 생성. db, redis는 설정되지 않았으면 nil
func NewHealthHandler(db *gorm.DB, redis Pinger, h interface{ Done() <-chan struct{} }) *HealthHandler {
	return &HealthHandler{db: db, redis: redis, hub: h}
}

// ComponentCheck 컴포넌트 상태
type ComponentCheck struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Error   string `json:"error,omitempty"`
}

// HealthResponse 헬스체크 응답
type HealthResponse struct {
	Status    string                    `json:"status"`
	Timestamp string                    `json:"timestamp"`
	Checks    map[string]ComponentCheck `json:"checks"`
}

// Check 전체 상태 확인 (Hub + DB + Redis)
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().Format(time.RFC3339),
		Checks:    make(map[string]ComponentCheck),
	}

	// 1. Hub 이벤트 루프
	if h.hubRunning() {
		response.Checks["hub"] = ComponentCheck{Status: "healthy"}
	} else {
		response.Status = "unhealthy"
		response.Checks["hub"] = ComponentCheck{Status: "unhealthy", Error: "event loop stopped"}
	}

	// 2. Database 체크 (clear 보관용, 실패해도 degraded)
	if h.db != nil {
		dbStart := time.Now()
		sqlDB, err := h.db.DB()
		if err != nil {
			response.Checks["database"] = ComponentCheck{
				Status: "degraded",
				Error:  "failed to get database connection",
			}
		} else if err := sqlDB.Ping(); err != nil {
			response.Checks["database"] = ComponentCheck{
				Status: "degraded",
				Error:  "database ping failed",
			}
		} else {
			response.Checks["database"] = ComponentCheck{
				Status:  "healthy",
				Latency: time.Since(dbStart).String(),
			}
		}
	} else {
		response.Checks["database"] = ComponentCheck{Status: "not_configured"}
	}

	// 3. Redis 체크
	if h.redis != nil {
		redisStart := time.Now()
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		err := h.redis.Health(ctx)
		cancel()
		if err != nil {
			response.Checks["redis"] = ComponentCheck{
				Status: "degraded",
				Error:  "redis ping failed",
			}
		} else {
			response.Checks["redis"] = ComponentCheck{
				Status:  "healthy",
				Latency: time.Since(redisStart).String(),
			}
		}
	} else {
		response.Checks["redis"] = ComponentCheck{Status: "not_configured"}
	}

	statusCode := fiber.StatusOK
	if response.Status == "unhealthy" {
		statusCode = fiber.StatusServiceUnavailable
	}

	return c.Status(statusCode).JSON(response)
}

// Liveness K8s liveness probe용 (단순 체크)
func (h *HealthHandler) Liveness(c *fiber.Ctx) error {
	return c.SendString("OK")
}

// Readiness K8s readiness probe용 (Hub 이벤트 루프 체크)
func (h *HealthHandler) Readiness(c *fiber.Ctx) error {
	if !h.hubRunning() {
		return c.Status(fiber.StatusServiceUnavailable).SendString("NOT READY")
	}
	return c.SendString("READY")
}

func (h *HealthHandler) hubRunning() bool {
	if h.hub == nil {
		return false
	}
	select {
	case <-h.hub.Done():
		return false
	default:
		return true
	}
}
