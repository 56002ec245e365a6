package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"realtime-canvas/internal/model"
)

// Store 보관본 저장소
type Store interface {
	Save(ctx context.Context, snap *model.CanvasSnapshot) error
}

// GormStore gorm 기반 Store
type GormStore struct {
	db *gorm.DB
}

// NewGormStore 생성자
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Save canvas_snapshots 테이블에 한 건 저장
func (s *GormStore) Save(ctx context.Context, snap *model.CanvasSnapshot) error {
	return s.db.WithContext(ctx).Create(snap).Error
}

// Archiver clear 직전 히스토리를 보관하는 worker
//
// 보관본은 다시 읽어 복원하지 않는다. 재시작 후에도 캔버스는 비어서 시작한다.
type Archiver struct {
	store      Store
	instanceID string
	timeout    time.Duration
	events     chan model.ClearEvent
}

// NewArchiver 생성자
func NewArchiver(store Store, instanceID string, buffer int) *Archiver {
	if buffer <= 0 {
		buffer = 16
	}
	return &Archiver{
		store:      store,
		instanceID: instanceID,
		timeout:    5 * time.Second,
		events:     make(chan model.ClearEvent, buffer),
	}
}

// OnCleared 보관 요청 (non-blocking)
func (a *Archiver) OnCleared(ev model.ClearEvent) {
	if len(ev.Operations) == 0 {
		return
	}

	select {
	case a.events <- ev:
	default:
		log.Printf("[Archive] Buffer full, dropping snapshot of %d operations", len(ev.Operations))
	}
}

// Run 저장 worker
func (a *Archiver) Run(ctx context.Context) {
	log.Printf("[Archive] Clear archive started (instance: %s)", a.instanceID)
	defer log.Printf("[Archive] Clear archive stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-a.events:
			if err := a.save(ctx, ev); err != nil {
				log.Printf("[Archive] Failed to save snapshot: %v", err)
			}
		}
	}
}

func (a *Archiver) save(ctx context.Context, ev model.ClearEvent) error {
	snap, err := NewSnapshot(a.instanceID, ev)
	if err != nil {
		return err
	}

	saveCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	if err := a.store.Save(saveCtx, snap); err != nil {
		return err
	}
	log.Printf("[Archive] Saved snapshot %d (seq %d-%d, %d operations)", snap.ID, snap.StartSeq, snap.EndSeq, snap.OpCount)
	return nil
}

// NewSnapshot ClearEvent를 보관 레코드로 변환
func NewSnapshot(instanceID string, ev model.ClearEvent) (*model.CanvasSnapshot, error) {
	if len(ev.Operations) == 0 {
		return nil, fmt.Errorf("empty clear event")
	}

	data, err := json.Marshal(ev.Operations)
	if err != nil {
		return nil, fmt.Errorf("marshal operations: %w", err)
	}

	return &model.CanvasSnapshot{
		InstanceID: instanceID,
		ClearedBy:  ev.ClearedBy,
		Data:       string(data),
		OpCount:    len(ev.Operations),
		StartSeq:   ev.Operations[0].Sequence,
		EndSeq:     ev.Operations[len(ev.Operations)-1].Sequence,
		PresenceAt: ev.PresenceCount,
		CreatedAt:  ev.At,
	}, nil
}
