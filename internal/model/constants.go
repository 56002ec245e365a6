package model

// OpKind 그리기 연산 종류
type OpKind string

const (
	OpKindDot  OpKind = "dot"
	OpKindLine OpKind = "line"
)

func (k OpKind) String() string {
	return string(k)
}

// DefaultPalette 접속 순서대로 배정되는 기본 색상 (round-robin)
var DefaultPalette = []string{
	"#FF6B6B", "#4ECDC4", "#45B7D1",
	"#96CEB4", "#FFEAA7", "#DDA0DD",
}

// DefaultHistoryCap 캔버스 히스토리 최대 길이
const DefaultHistoryCap = 100
