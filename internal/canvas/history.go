package canvas

import (
	"sync"
	"time"

	"realtime-canvas/internal/model"
)

// History 캔버스의 정본(canonical) 연산 기록
//
// 길이는 항상 cap 이하로 유지되며, 초과 시 가장 오래된 연산부터 제거된다(FIFO).
// 순서는 서버 수락 순서와 정확히 같다. sequence는 Clear 이후에도 이어진다.
type History struct {
	ops           []model.DrawOperation
	cap           int
	maxPathPoints int
	nextSeq       uint64
	now           func() time.Time
	mu            sync.RWMutex
}

// Option History 설정
type Option func(*History)

// WithMaxPathPoints line 연산의 최대 점 개수 제한
func WithMaxPathPoints(n int) Option {
	return func(h *History) {
		h.maxPathPoints = n
	}
}

// WithClock 수락 시각 소스 교체 (테스트용)
func WithClock(now func() time.Time) Option {
	return func(h *History) {
		h.now = now
	}
}

// NewHistory 새 History 생성. capacity <= 0 이면 기본값 사용
func NewHistory(capacity int, opts ...Option) *History {
	if capacity <= 0 {
		capacity = model.DefaultHistoryCap
	}

	h := &History{
		ops:     make([]model.DrawOperation, 0, capacity),
		cap:     capacity,
		nextSeq: 1,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Append 검증 후 sequence를 부여하여 꼬리에 추가한다.
// 검증 실패 시 model.ErrInvalidOperation을 반환하며 상태는 변하지 않는다.
func (h *History) Append(op model.DrawOperation) (model.DrawOperation, error) {
	if err := op.Validate(h.maxPathPoints); err != nil {
		return model.DrawOperation{}, err
	}

	stored := op.Clone()

	h.mu.Lock()
	defer h.mu.Unlock()

	stored.Sequence = h.nextSeq
	stored.AppliedAt = h.now().UnixMilli()
	h.nextSeq++

	h.ops = append(h.ops, stored)
	if overflow := len(h.ops) - h.cap; overflow > 0 {
		// 앞쪽을 잘라내되 backing array가 무한히 자라지 않도록 새로 복사
		kept := make([]model.DrawOperation, h.cap)
		copy(kept, h.ops[overflow:])
		h.ops = kept
	}

	return stored.Clone(), nil
}

// Snapshot 현재 히스토리의 시점 복사본 (수락 순서)
func (h *History) Snapshot() []model.DrawOperation {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]model.DrawOperation, len(h.ops))
	for i, op := range h.ops {
		out[i] = op.Clone()
	}
	return out
}

// Clear 히스토리를 비운다. sequence 카운터는 유지
func (h *History) Clear() []model.DrawOperation {
	h.mu.Lock()
	defer h.mu.Unlock()

	cleared := h.ops
	h.ops = make([]model.DrawOperation, 0, h.cap)
	return cleared
}

// Len 현재 길이
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.ops)
}

// Cap 최대 길이
func (h *History) Cap() int {
	return h.cap
}

// LastSequence 마지막으로 부여된 sequence (아직 없으면 0)
func (h *History) LastSequence() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.nextSeq - 1
}
