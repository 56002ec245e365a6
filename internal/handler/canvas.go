package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"realtime-canvas/internal/hub"
)

// SnapshotSource 현재 캔버스 상태 조회
type SnapshotSource interface {
	Snapshot(ctx context.Context) (hub.State, error)
}

// CanvasHandler 캔버스 조회 HTTP 핸들러
type CanvasHandler struct {
	hub     SnapshotSource
	palette []string
}

// NewCanvasHandler CanvasHandler 생성자
func NewCanvasHandler(h SnapshotSource, palette []string) *CanvasHandler {
	return &CanvasHandler{hub: h, palette: palette}
}

// CanvasResponse GET /api/canvas 응답
type CanvasResponse struct {
	hub.State
	Palette []string `json:"palette"`
}

// GetCanvas 현재 히스토리와 접속자 수 반환
func (h *CanvasHandler) GetCanvas(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	state, err := h.hub.Snapshot(ctx)
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "canvas unavailable",
		})
	}

	return c.JSON(CanvasResponse{State: state, Palette: h.palette})
}
