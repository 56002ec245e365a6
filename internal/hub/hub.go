package hub

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"realtime-canvas/internal/canvas"
	"realtime-canvas/internal/model"
	"realtime-canvas/internal/presence"
	"realtime-canvas/internal/protocol"
	"realtime-canvas/internal/session"
)

// =============================================================================
// Hub - 캔버스 상태의 단일 writer
// =============================================================================

var (
	// ErrHubClosed 이벤트 루프가 종료됨
	ErrHubClosed = errors.New("hub closed")

	// ErrSessionClosed 등록 전에 세션이 닫힘
	ErrSessionClosed = errors.New("session closed before registration")

	// ErrUnknownConnection 등록되지 않은 접속에서 온 이벤트 (no-op 처리)
	ErrUnknownConnection = errors.New("unknown connection")
)

// Config Hub 설정
type Config struct {
	HistoryCap    int
	Palette       []string
	MaxPathPoints int
	EventBuffer   int
}

// Hooks 이벤트 루프에서 호출되는 관찰자. 절대 블로킹하면 안 된다
type Hooks struct {
	OnApplied  func(op model.DrawOperation)
	OnCleared  func(ev model.ClearEvent)
	OnPresence func(count int)
}

// Recorder 메트릭 기록 인터페이스 (metrics.Metrics가 구현)
type Recorder interface {
	OperationApplied(op model.DrawOperation, historyLen int)
	OperationRejected(kind model.OpKind)
	CanvasCleared()
	PresenceChanged(count int)
	Connected()
	Disconnected()
	DeliveryDropped()
	MessageUndecoded()
}

// State Hub 상태의 시점 복사본
type State struct {
	History       []model.DrawOperation `json:"history"`
	PresenceCount int                   `json:"presenceCount"`
	Cap           int                   `json:"cap"`
	LastSequence  uint64                `json:"lastSequence"`
}

type handlerFunc func(h *Hub, sess *session.Session, payload json.RawMessage)

// Hub 캔버스 히스토리, 접속 레지스트리, 세션 테이블을 소유하는 이벤트 루프
//
// 모든 변경은 events 채널을 통해 Run 고루틴 하나에서만 적용된다.
type Hub struct {
	history  *canvas.History
	registry *presence.Registry
	sessions map[string]*session.Session // Run 고루틴 전용
	handlers map[protocol.MessageType]handlerFunc
	events   chan event
	hooks    []Hooks
	recorder Recorder
	done     chan struct{}
}

// Option Hub 옵션
type Option func(*Hub)

// WithRecorder 메트릭 기록기 설정
func WithRecorder(r Recorder) Option {
	return func(h *Hub) {
		if r != nil {
			h.recorder = r
		}
	}
}

// WithHooks 관찰자 추가
func WithHooks(hooks Hooks) Option {
	return func(h *Hub) {
		h.hooks = append(h.hooks, hooks)
	}
}

// New Hub 생성. Run을 호출해야 이벤트가 처리된다
func New(cfg Config, opts ...Option) *Hub {
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = 256
	}

	h := &Hub{
		history:  canvas.NewHistory(cfg.HistoryCap, canvas.WithMaxPathPoints(cfg.MaxPathPoints)),
		registry: presence.NewRegistry(cfg.Palette),
		sessions: make(map[string]*session.Session),
		events:   make(chan event, cfg.EventBuffer),
		recorder: nopRecorder{},
		done:     make(chan struct{}),
	}
	h.handlers = map[protocol.MessageType]handlerFunc{
		protocol.TypeSubmit: (*Hub).handleSubmit,
		protocol.TypeClear:  (*Hub).handleClear,
		protocol.TypePing:   (*Hub).handlePing,
	}

	for _, opt := range opts {
		opt(h)
	}
	return h
}

// =============================================================================
// Public API (어느 고루틴에서나 호출 가능)
// =============================================================================

// Run 이벤트 루프. ctx가 끝나면 모든 세션을 닫고 반환
func (h *Hub) Run(ctx context.Context) {
	log.Printf("[Hub] Event loop started (cap=%d)", h.history.Cap())
	defer log.Printf("[Hub] Event loop stopped")

	defer func() {
		for id, sess := range h.sessions {
			sess.Close()
			delete(h.sessions, id)
		}
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-h.events:
			ev.apply(h)
		}
	}
}

// Connect 세션 등록. 스냅샷이 세션 큐에 들어간 뒤 반환
func (h *Hub) Connect(ctx context.Context, sess *session.Session) error {
	reply := make(chan error, 1)
	if err := h.send(ctx, connectEvent{sess: sess, reply: reply}); err != nil {
		return err
	}

	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-h.done:
		return ErrHubClosed
	}
}

// Dispatch 수신 메시지 처리 요청
func (h *Hub) Dispatch(ctx context.Context, id string, env protocol.Envelope) error {
	return h.send(ctx, messageEvent{id: id, env: env})
}

// Disconnect 접속 해제. 이미 해제된 ID도 안전
func (h *Hub) Disconnect(id string) {
	// 해제 신호는 버리면 안 되므로 Hub 종료 전까지 기다린다
	_ = h.send(context.Background(), disconnectEvent{id: id})
}

// Snapshot 현재 상태 조회 (이벤트 루프를 거쳐 일관성 보장)
func (h *Hub) Snapshot(ctx context.Context) (State, error) {
	reply := make(chan State, 1)
	if err := h.send(ctx, snapshotEvent{reply: reply}); err != nil {
		return State{}, err
	}

	select {
	case st := <-reply:
		return st, nil
	case <-ctx.Done():
		return State{}, ctx.Err()
	case <-h.done:
		return State{}, ErrHubClosed
	}
}

// Done 이벤트 루프 종료 신호
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

func (h *Hub) send(ctx context.Context, ev event) error {
	select {
	case <-h.done:
		return ErrHubClosed
	default:
	}

	select {
	case h.events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-h.done:
		return ErrHubClosed
	}
}

// =============================================================================
// Events (Run 고루틴에서만 실행)
// =============================================================================

type event interface {
	apply(h *Hub)
}

type connectEvent struct {
	sess  *session.Session
	reply chan error
}

func (e connectEvent) apply(h *Hub) {
	e.reply <- h.onConnect(e.sess)
}

type messageEvent struct {
	id  string
	env protocol.Envelope
}

func (e messageEvent) apply(h *Hub) {
	if err := h.onMessage(e.id, e.env); err != nil {
		log.Printf("[Hub] Dropped %q from %s: %v", e.env.Type, e.id, err)
	}
}

type disconnectEvent struct {
	id string
}

func (e disconnectEvent) apply(h *Hub) {
	if err := h.onDisconnect(e.id); err != nil && !errors.Is(err, ErrUnknownConnection) {
		log.Printf("[Hub] Disconnect %s: %v", e.id, err)
	}
}

type snapshotEvent struct {
	reply chan State
}

func (e snapshotEvent) apply(h *Hub) {
	e.reply <- State{
		History:       h.history.Snapshot(),
		PresenceCount: h.registry.Count(),
		Cap:           h.history.Cap(),
		LastSequence:  h.history.LastSequence(),
	}
}

// =============================================================================
// Connection lifecycle
// =============================================================================

func (h *Hub) onConnect(sess *session.Session) error {
	if sess.State() != session.StateConnecting {
		return ErrSessionClosed
	}

	conn := h.registry.Register(sess.ID)
	if !sess.Activate(conn.AssignedColor) {
		// 등록 도중 연결이 끊김
		h.registry.Unregister(sess.ID)
		return ErrSessionClosed
	}
	h.sessions[sess.ID] = sess
	h.recorder.Connected()

	count := h.registry.Count()
	log.Printf("[Hub] Connected: %s (color: %s), total: %d", sess.ID, conn.AssignedColor, count)

	// 스냅샷을 먼저 큐에 넣어야 이후 delta와 겹치거나 빠지지 않는다
	h.deliver(sess, protocol.MustEncode(protocol.TypeSnapshot, protocol.SnapshotPayload{
		History:       h.history.Snapshot(),
		PresenceCount: count,
		You:           protocol.Identity{ID: sess.ID, Color: conn.AssignedColor},
		Palette:       h.registry.Palette(),
		Cap:           h.history.Cap(),
	}))

	h.broadcastPresence()
	return nil
}

func (h *Hub) onDisconnect(id string) error {
	if sess, ok := h.sessions[id]; ok {
		sess.Close()
		delete(h.sessions, id)
	}

	if !h.registry.Unregister(id) {
		return ErrUnknownConnection
	}
	h.recorder.Disconnected()

	log.Printf("[Hub] Disconnected: %s, remaining: %d", id, h.registry.Count())
	h.broadcastPresence()
	return nil
}

func (h *Hub) onMessage(id string, env protocol.Envelope) error {
	sess, ok := h.sessions[id]
	if !ok {
		return ErrUnknownConnection
	}

	handler, ok := h.handlers[env.Type]
	if !ok {
		h.recorder.MessageUndecoded()
		return errors.New("unsupported message type")
	}

	handler(h, sess, env.Payload)
	return nil
}

// =============================================================================
// Message handlers
// =============================================================================

func (h *Hub) handleSubmit(sess *session.Session, payload json.RawMessage) {
	submit, err := protocol.DecodeSubmit(payload)
	if err != nil {
		h.recorder.OperationRejected(submit.Kind)
		log.Printf("[Hub] Rejected operation from %s: %v", sess.ID, err)
		return
	}

	// 클라이언트 색상이 우선, 없으면 배정 색상
	applied, err := h.history.Append(submit.Operation(sess.Color()))
	if err != nil {
		h.recorder.OperationRejected(submit.Kind)
		log.Printf("[Hub] Rejected operation from %s: %v", sess.ID, err)
		return
	}
	h.recorder.OperationApplied(applied, h.history.Len())

	h.broadcast(protocol.MustEncode(protocol.TypeApplied, applied))

	for _, hk := range h.hooks {
		if hk.OnApplied != nil {
			hk.OnApplied(applied)
		}
	}
}

func (h *Hub) handleClear(sess *session.Session, _ json.RawMessage) {
	cleared := h.history.Clear()
	h.recorder.CanvasCleared()
	log.Printf("[Hub] Canvas cleared by %s (%d operations)", sess.ID, len(cleared))

	h.broadcast(protocol.MustEncode(protocol.TypeCleared, nil))

	ev := model.ClearEvent{
		ClearedBy:     sess.ID,
		Operations:    cleared,
		PresenceCount: h.registry.Count(),
		At:            time.Now(),
	}
	for _, hk := range h.hooks {
		if hk.OnCleared != nil {
			hk.OnCleared(ev)
		}
	}
}

func (h *Hub) handlePing(sess *session.Session, _ json.RawMessage) {
	h.deliver(sess, protocol.MustEncode(protocol.TypePong, nil))
}

// nopRecorder 메트릭 미설정 시 기본값
type nopRecorder struct{}

func (nopRecorder) OperationApplied(model.DrawOperation, int) {}
func (nopRecorder) OperationRejected(model.OpKind) {}
func (nopRecorder) CanvasCleared() {}
func (nopRecorder) PresenceChanged(int) {}
func (nopRecorder) Connected() {}
func (nopRecorder) Disconnected() {}
func (nopRecorder) DeliveryDropped() {}
func (nopRecorder) MessageUndecoded() {}
