package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// 60초 TTL (Heartbeat는 30초마다)
	presenceTTL       = 60 * time.Second
	heartbeatInterval = 30 * time.Second

	// UpdatesChannel presence 변경 이벤트 pub/sub 채널
	UpdatesChannel = "presence_updates"
)

// PresenceData Redis에 저장될 인스턴스 presence 데이터
type PresenceData struct {
	InstanceID    string `json:"instance_id"`
	Count         int    `json:"count"`
	LastHeartbeat int64  `json:"last_heartbeat"`
}

// Publisher 이 서버 인스턴스의 접속 수를 Redis에 게시
//
// 이벤트 루프를 막지 않도록 값은 버퍼 1짜리 채널에 최신 값만 남기고,
// 단일 worker가 순서대로 기록한다.
type Publisher struct {
	client     *redis.Client
	instanceID string
	timeout    time.Duration
	updates    chan int
}

// NewPublisher 생성자
func NewPublisher(client *redis.Client, instanceID string) *Publisher {
	return &Publisher{
		client:     client,
		instanceID: instanceID,
		timeout:    2 * time.Second,
		updates:    make(chan int, 1),
	}
}

// Key 생성 유틸
func (p *Publisher) key() string {
	return fmt.Sprintf("presence:canvas:%s", p.instanceID)
}

// SetCount 접속 수 저장 + 변경 이벤트 발행
func (p *Publisher) SetCount(ctx context.Context, count int) error {
	data := PresenceData{
		InstanceID:    p.instanceID,
		Count:         count,
		LastHeartbeat: time.Now().Unix(),
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	if err := p.client.Set(ctx, p.key(), jsonData, presenceTTL).Err(); err != nil {
		return err
	}
	return p.client.Publish(ctx, UpdatesChannel, jsonData).Err()
}

// Remove 인스턴스 presence 삭제 (종료 시)
func (p *Publisher) Remove(ctx context.Context) error {
	return p.client.Del(ctx, p.key()).Err()
}

// PresenceChanged 최신 접속 수를 worker에 전달 (non-blocking)
func (p *Publisher) PresenceChanged(count int) {
	for {
		select {
		case p.updates <- count:
			return
		default:
		}

		// 아직 기록되지 않은 이전 값은 버린다
		select {
		case <-p.updates:
		default:
		}
	}
}

// Run 기록 worker. ctx 종료 시 presence 키를 지우고 반환
func (p *Publisher) Run(ctx context.Context) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	last := 0
	for {
		select {
		case <-ctx.Done():
			cleanupCtx, cancel := context.WithTimeout(context.Background(), p.timeout)
			if err := p.Remove(cleanupCtx); err != nil {
				log.Printf("[Presence] Failed to remove instance key: %v", err)
			}
			cancel()
			return

		case count := <-p.updates:
			last = count
			p.write(ctx, count)

		case <-ticker.C:
			// Heartbeat: TTL 연장
			p.write(ctx, last)
		}
	}
}

func (p *Publisher) write(ctx context.Context, count int) {
	writeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.SetCount(writeCtx, count); err != nil {
		log.Printf("[Presence] Failed to publish count %d: %v", count, err)
	}
}
