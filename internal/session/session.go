package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// State WebSocket 연결 상태
type State int

const (
	StateConnecting   State = iota // 등록 대기
	StateActive                    // 연산 송수신 중
	StateDisconnected              // 연결 종료 (terminal)
)

// String 상태를 문자열로 반환
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Session 클라이언트 세션 (Thread-Safe)
//
// 송신은 bounded 큐(outbound)를 거치며 단일 writer가 순서대로 내보낸다.
type Session struct {
	ID          string
	ConnectedAt time.Time

	state State
	color string

	// 동시성 제어
	mu sync.RWMutex

	// 비동기 송신
	outbound chan []byte
	ctx      context.Context
	cancel   context.CancelFunc
}

// New 새 세션 생성
func New(bufferSize int) *Session {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Session{
		ID:          uuid.New().String(),
		ConnectedAt: time.Now(),
		state:       StateConnecting,
		outbound:    make(chan []byte, bufferSize),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Context 세션 컨텍스트 반환 (Close 시 취소)
func (s *Session) Context() context.Context {
	return s.ctx
}

// Activate Connecting -> Active 전환 및 배정 색상 기록.
// Connecting 상태가 아니면 false
func (s *Session) Activate(color string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateConnecting {
		return false
	}
	s.state = StateActive
	s.color = color
	return true
}

// Color 배정된 기본 색상
func (s *Session) Color() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.color
}

// State 현재 상태 조회
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Enqueue 송신 큐에 메시지 추가 (non-blocking).
// 큐가 가득 찼거나 세션이 종료되었으면 false
func (s *Session) Enqueue(msg []byte) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.state == StateDisconnected {
		return false
	}

	select {
	case s.outbound <- msg:
		return true
	default:
		return false
	}
}

// Outbound writer가 소비하는 송신 큐
func (s *Session) Outbound() <-chan []byte {
	return s.outbound
}

// Duration 연결 유지 시간
func (s *Session) Duration() time.Duration {
	return time.Since(s.ConnectedAt)
}

// Close 세션 정리 (여러 번 호출해도 안전)
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateDisconnected {
		return
	}

	s.state = StateDisconnected
	s.cancel()
	close(s.outbound)
}

// IsClosed 세션 종료 여부 확인
func (s *Session) IsClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.state == StateDisconnected
}
