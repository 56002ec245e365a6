package model

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidOperation 형식이 잘못된 그리기 연산
var ErrInvalidOperation = errors.New("invalid operation")

// MinLinePoints 선(line)이 화면에 보이기 위한 최소 점 개수
const MinLinePoints = 2

// Point 캔버스 좌표
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DrawOperation 캔버스에 대한 하나의 원자적 그리기 연산
//
// Sequence와 AppliedAt은 서버가 수락 시점에 부여한다.
type DrawOperation struct {
	Kind      OpKind   `json:"kind"`
	Color     string   `json:"color"`
	X         *float64 `json:"x,omitempty"`
	Y         *float64 `json:"y,omitempty"`
	Path      []Point  `json:"path,omitempty"`
	Sequence  uint64   `json:"sequence"`
	AppliedAt int64    `json:"ts"`
}

// NewDot 점 연산 생성
func NewDot(x, y float64, color string) DrawOperation {
	return DrawOperation{Kind: OpKindDot, Color: color, X: &x, Y: &y}
}

// NewLine 선 연산 생성
func NewLine(color string, path ...Point) DrawOperation {
	return DrawOperation{Kind: OpKindLine, Color: color, Path: path}
}

// Validate 연산 형태 검증. maxPathPoints가 0이면 길이 제한 없음
func (op *DrawOperation) Validate(maxPathPoints int) error {
	if op.Color == "" {
		return fmt.Errorf("%w: color is required", ErrInvalidOperation)
	}

	switch op.Kind {
	case OpKindDot:
		if op.X == nil || op.Y == nil {
			return fmt.Errorf("%w: dot requires x and y", ErrInvalidOperation)
		}
		if !finite(*op.X) || !finite(*op.Y) {
			return fmt.Errorf("%w: dot coordinates must be finite", ErrInvalidOperation)
		}
		if len(op.Path) > 0 {
			return fmt.Errorf("%w: dot must not carry a path", ErrInvalidOperation)
		}
	case OpKindLine:
		if op.X != nil || op.Y != nil {
			return fmt.Errorf("%w: line must not carry x/y", ErrInvalidOperation)
		}
		if len(op.Path) < MinLinePoints {
			return fmt.Errorf("%w: line requires at least %d points, got %d", ErrInvalidOperation, MinLinePoints, len(op.Path))
		}
		if maxPathPoints > 0 && len(op.Path) > maxPathPoints {
			return fmt.Errorf("%w: line has %d points, limit is %d", ErrInvalidOperation, len(op.Path), maxPathPoints)
		}
		for i, p := range op.Path {
			if !finite(p.X) || !finite(p.Y) {
				return fmt.Errorf("%w: path point %d is not finite", ErrInvalidOperation, i)
			}
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidOperation, op.Kind)
	}

	return nil
}

// Clone 깊은 복사 (저장된 연산은 외부에서 변경 불가)
func (op DrawOperation) Clone() DrawOperation {
	out := op
	if op.X != nil {
		x := *op.X
		out.X = &x
	}
	if op.Y != nil {
		y := *op.Y
		out.Y = &y
	}
	if op.Path != nil {
		out.Path = make([]Point, len(op.Path))
		copy(out.Path, op.Path)
	}
	return out
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// ClearEvent clear 요청 한 건의 기록
type ClearEvent struct {
	ClearedBy     string
	Operations    []DrawOperation // clear 직전 히스토리 (수락 순서)
	PresenceCount int
	At            time.Time
}
