package model

import (
	"time"
)

// CanvasSnapshot clear 직전 캔버스 히스토리 보관본
type CanvasSnapshot struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	InstanceID string    `gorm:"type:varchar(64);not null;index:idx_canvas_snapshots_instance_created" json:"instance_id"`
	ClearedBy  string    `gorm:"type:varchar(64)" json:"cleared_by"`
	Data       string    `gorm:"type:jsonb;not null" json:"data"` // JSON array of DrawOperation
	OpCount    int       `gorm:"not null" json:"op_count"`
	StartSeq   uint64    `json:"start_seq"`
	EndSeq     uint64    `json:"end_seq"`
	PresenceAt int       `json:"presence_at"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index:idx_canvas_snapshots_instance_created" json:"created_at"`
}

func (CanvasSnapshot) TableName() string {
	return "canvas_snapshots"
}
