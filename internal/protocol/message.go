package protocol

import (
	"encoding/json"
	"fmt"

	"realtime-canvas/internal/model"
)

// MessageType WebSocket 메시지 타입
type MessageType string

const (
	// client -> server
	TypeSubmit MessageType = "submit"
	TypeClear  MessageType = "clear"
	TypePing   MessageType = "ping"

	// server -> client
	TypeSnapshot MessageType = "snapshot"
	TypePresence MessageType = "presence"
	TypeApplied  MessageType = "applied"
	TypeCleared  MessageType = "cleared"
	TypePong     MessageType = "pong"
)

// Envelope WebSocket 메시지
type Envelope struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Identity 접속자 자신의 정보
type Identity struct {
	ID    string `json:"id"`
	Color string `json:"color"`
}

// SnapshotPayload 새 접속자에게 보내는 전체 상태
type SnapshotPayload struct {
	History       []model.DrawOperation `json:"history"`
	PresenceCount int                   `json:"presenceCount"`
	You           Identity              `json:"you"`
	Palette       []string              `json:"palette"`
	Cap           int                   `json:"cap"`
}

// PresencePayload 접속자 수 갱신
type PresencePayload struct {
	Count int `json:"count"`
}

// SubmitPayload 클라이언트가 보내는 그리기 연산
type SubmitPayload struct {
	Kind  model.OpKind  `json:"kind"`
	Color string        `json:"color,omitempty"`
	X     *float64      `json:"x,omitempty"`
	Y     *float64      `json:"y,omitempty"`
	Path  []model.Point `json:"path,omitempty"`
}

// Operation 색상이 비어 있으면 fallback 색상을 적용한 연산으로 변환
func (p SubmitPayload) Operation(fallbackColor string) model.DrawOperation {
	color := p.Color
	if color == "" {
		color = fallbackColor
	}
	return model.DrawOperation{
		Kind:  p.Kind,
		Color: color,
		X:     p.X,
		Y:     p.Y,
		Path:  p.Path,
	}
}

// Decode 수신 프레임 파싱
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("decode envelope: missing type")
	}
	return env, nil
}

// DecodeSubmit submit 페이로드 파싱
func DecodeSubmit(raw json.RawMessage) (SubmitPayload, error) {
	var p SubmitPayload
	if len(raw) == 0 {
		return p, fmt.Errorf("%w: empty submit payload", model.ErrInvalidOperation)
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, fmt.Errorf("%w: %v", model.ErrInvalidOperation, err)
	}
	return p, nil
}

// Encode 송신 메시지 직렬화
func Encode(t MessageType, payload any) ([]byte, error) {
	env := struct {
		Type    MessageType `json:"type"`
		Payload any         `json:"payload,omitempty"`
	}{Type: t, Payload: payload}

	return json.Marshal(env)
}

// MustEncode 직렬화 실패가 불가능한 내부 타입 전용
func MustEncode(t MessageType, payload any) []byte {
	b, err := Encode(t, payload)
	if err != nil {
		panic(fmt.Sprintf("protocol: encode %s: %v", t, err))
	}
	return b
}
