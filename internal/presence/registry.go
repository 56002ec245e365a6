package presence

import (
	"sync"
	"time"

	"realtime-canvas/internal/model"
)

// Connection 등록된 접속 정보
type Connection struct {
	ID            string    `json:"id"`
	AssignedColor string    `json:"color"`
	JoinedAt      time.Time `json:"joinedAt"`
}

// Registry 활성 접속 목록과 기본 색상 배정
//
// 색상은 palette[등록 직전 인원 수 % len(palette)] 규칙으로 결정된다.
type Registry struct {
	entries map[string]*Connection
	order   []string // 접속 순서
	palette []string
	mu      sync.RWMutex
}

// NewRegistry 새 Registry 생성. palette가 비어 있으면 model.DefaultPalette 사용
func NewRegistry(palette []string) *Registry {
	if len(palette) == 0 {
		palette = model.DefaultPalette
	}
	p := make([]string, len(palette))
	copy(p, palette)

	return &Registry{
		entries: make(map[string]*Connection),
		palette: p,
	}
}

// Register 접속 등록. 이미 등록된 ID면 기존 항목 반환
func (r *Registry) Register(id string) Connection {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.entries[id]; ok {
		return *existing
	}

	conn := &Connection{
		ID:            id,
		AssignedColor: r.palette[len(r.entries)%len(r.palette)],
		JoinedAt:      time.Now(),
	}
	r.entries[id] = conn
	r.order = append(r.order, id)

	return *conn
}

// Unregister 접속 해제. 없는 ID는 무시하고 false 반환
func (r *Registry) Unregister(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[id]; !ok {
		return false
	}
	delete(r.entries, id)

	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// Lookup 접속 정보 조회
func (r *Registry) Lookup(id string) (Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.entries[id]
	if !ok {
		return Connection{}, false
	}
	return *conn, true
}

// Count 현재 접속 수
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// IDs 접속 순서대로 멤버십 스냅샷 반환
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, len(r.order))
	copy(ids, r.order)
	return ids
}

// Palette 배정 팔레트 복사본
func (r *Registry) Palette() []string {
	p := make([]string, len(r.palette))
	copy(p, r.palette)
	return p
}
