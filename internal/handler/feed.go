package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"realtime-canvas/internal/model"
)

// FeedReader Redis 연산 피드 조회 (cache.RedisClient가 구현)
type FeedReader interface {
	GetRecentOperations(ctx context.Context, instanceID string, count int64) ([]model.DrawOperation, error)
	GetOperationCount(ctx context.Context, instanceID string) (int64, error)
}

// FeedHandler 미러링된 연산 피드 조회 핸들러
type FeedHandler struct {
	reader     FeedReader
	instanceID string
}

// NewFeedHandler FeedHandler 생성자
func NewFeedHandler(reader FeedReader, instanceID string) *FeedHandler {
	return &FeedHandler{reader: reader, instanceID: instanceID}
}

// FeedResponse GET /api/canvas/feed 응답
type FeedResponse struct {
	InstanceID string                `json:"instanceId"`
	Total      int64                 `json:"total"`
	Operations []model.DrawOperation `json:"operations"`
}

// GetFeed 피드의 마지막 limit개 연산 반환 (limit 생략 시 전체)
func (h *FeedHandler) GetFeed(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 0)
	if limit < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "limit must not be negative",
		})
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	total, err := h.reader.GetOperationCount(ctx, h.instanceID)
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "feed unavailable",
		})
	}

	ops, err := h.reader.GetRecentOperations(ctx, h.instanceID, int64(limit))
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "feed unavailable",
		})
	}

	return c.JSON(FeedResponse{InstanceID: h.instanceID, Total: total, Operations: ops})
}
