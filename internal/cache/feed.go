package cache

import (
	"context"
	"log"
	"sync"
	"time"

	"realtime-canvas/internal/model"
)

// FeedStore 피드 저장소 (RedisClient가 구현)
type FeedStore interface {
	AppendOperation(ctx context.Context, instanceID string, op model.DrawOperation, maxLen int) error
	ClearOperations(ctx context.Context, instanceID string) error
}

type feedEvent struct {
	op  model.DrawOperation
	gen uint64 // 큐에 들어갈 때의 clear 세대
}

// Feed 수락된 연산을 Redis 리스트로 미러링하는 worker
//
// 이벤트 루프에서 호출되는 OnApplied/OnCleared는 non-blocking이다.
// 버퍼가 가득 차면 append는 버리지만 clear는 버리지 않는다: clear는
// pending 플래그로 남고, worker는 다음 append보다 먼저 처리한다.
// clear 이전 세대의 append가 큐에 남아 있으면 건너뛴다.
type Feed struct {
	store      FeedStore
	instanceID string
	maxLen     int
	timeout    time.Duration
	events     chan feedEvent
	wake       chan struct{}

	mu           sync.Mutex
	gen          uint64
	clearPending bool
}

// NewFeed 생성자
func NewFeed(store FeedStore, instanceID string, maxLen, buffer int) *Feed {
	if buffer <= 0 {
		buffer = 100
	}
	return &Feed{
		store:      store,
		instanceID: instanceID,
		maxLen:     maxLen,
		timeout:    2 * time.Second,
		events:     make(chan feedEvent, buffer),
		wake:       make(chan struct{}, 1),
	}
}

// OnApplied 연산 미러링 요청
func (f *Feed) OnApplied(op model.DrawOperation) {
	f.mu.Lock()
	gen := f.gen
	f.mu.Unlock()

	select {
	case f.events <- feedEvent{op: op, gen: gen}:
	default:
		log.Printf("[Feed] Buffer full, dropping operation %d", op.Sequence)
	}
}

// OnCleared 피드 삭제 요청 (버려지지 않음)
func (f *Feed) OnCleared(model.ClearEvent) {
	f.mu.Lock()
	f.gen++
	f.clearPending = true
	f.mu.Unlock()

	select {
	case f.wake <- struct{}{}:
	default:
	}
}

// Run 기록 worker
func (f *Feed) Run(ctx context.Context) {
	log.Printf("[Feed] Operation feed started (instance: %s)", f.instanceID)
	defer log.Printf("[Feed] Operation feed stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case <-f.wake:
			f.flushClear(ctx)
		case ev := <-f.events:
			if !f.flushClear(ctx) {
				continue
			}
			if ev.gen < f.generation() {
				continue
			}
			f.append(ctx, ev.op)
		}
	}
}

func (f *Feed) generation() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gen
}

// flushClear 대기 중인 clear 수행. 실패하면 다시 pending으로 두고 false
func (f *Feed) flushClear(ctx context.Context) bool {
	f.mu.Lock()
	pending := f.clearPending
	f.clearPending = false
	f.mu.Unlock()

	if !pending {
		return true
	}

	writeCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	if err := f.store.ClearOperations(writeCtx, f.instanceID); err != nil {
		log.Printf("[Feed] Clear failed, will retry: %v", err)
		f.mu.Lock()
		f.clearPending = true
		f.mu.Unlock()
		return false
	}
	return true
}

func (f *Feed) append(ctx context.Context, op model.DrawOperation) {
	writeCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	if err := f.store.AppendOperation(writeCtx, f.instanceID, op, f.maxLen); err != nil {
		log.Printf("[Feed] Write failed: %v", err)
	}
}
