package handler

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/gofiber/contrib/websocket"

	"realtime-canvas/internal/config"
	"realtime-canvas/internal/hub"
	"realtime-canvas/internal/protocol"
	"realtime-canvas/internal/session"
)

// CanvasHub WebSocket 핸들러가 사용하는 Hub 기능
type CanvasHub interface {
	Connect(ctx context.Context, sess *session.Session) error
	Dispatch(ctx context.Context, id string, env protocol.Envelope) error
	Disconnect(id string)
}

// UndecodedRecorder 해석 불가 프레임 카운터 (metrics.Metrics가 구현)
type UndecodedRecorder interface {
	MessageUndecoded()
}

// CanvasWSHandler 캔버스 동기화 WebSocket 핸들러
type CanvasWSHandler struct {
	hub      CanvasHub
	cfg      *config.Config
	recorder UndecodedRecorder
}

// NewCanvasWSHandler CanvasWSHandler 생성자. recorder는 nil 가능
func NewCanvasWSHandler(h CanvasHub, cfg *config.Config, recorder UndecodedRecorder) *CanvasWSHandler {
	return &CanvasWSHandler{hub: h, cfg: cfg, recorder: recorder}
}

// HandleWebSocket 캔버스 WebSocket 연결 처리
//
// 연결 하나당 writer 고루틴 하나가 세션 송신 큐를 순서대로 비우고,
// 이 고루틴은 수신 루프를 돈다. 어느 쪽이든 실패하면 연결 해제로 간주한다.
func (h *CanvasWSHandler) HandleWebSocket(c *websocket.Conn) {
	sess := session.New(h.cfg.Canvas.SendBuffer)

	log.Printf("🔗 [%s] Canvas connection established", sess.ID)

	writerDone := make(chan struct{})

	// 패닉 복구 및 리소스 정리
	defer func() {
		if r := recover(); r != nil {
			log.Printf("🚨 [%s] Panic in canvas handler: %v", sess.ID, r)
		}

		h.hub.Disconnect(sess.ID)
		sess.Close()
		<-writerDone

		log.Printf("🔌 [%s] Canvas connection closed. Duration: %v", sess.ID, sess.Duration().Round(time.Second))
	}()

	go func() {
		defer close(writerDone)
		h.writePump(c, sess)
	}()

	if h.cfg.WebSocket.MaxMessageSize > 0 {
		c.SetReadLimit(h.cfg.WebSocket.MaxMessageSize)
	}

	if err := h.hub.Connect(sess.Context(), sess); err != nil {
		if !errors.Is(err, hub.ErrHubClosed) {
			log.Printf("❌ [%s] Registration failed: %v", sess.ID, err)
		}
		return
	}

	h.readLoop(c, sess)
}

// readLoop 수신 메시지를 Hub로 전달
func (h *CanvasWSHandler) readLoop(c *websocket.Conn, sess *session.Session) {
	for {
		messageType, data, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("⚠️ [%s] Unexpected close: %v", sess.ID, err)
			}
			return
		}

		if messageType != websocket.TextMessage {
			h.undecoded(sess, "non-text frame")
			continue
		}

		env, err := protocol.Decode(data)
		if err != nil {
			h.undecoded(sess, err.Error())
			continue
		}

		if err := h.hub.Dispatch(sess.Context(), sess.ID, env); err != nil {
			// 세션 종료 또는 Hub 종료
			return
		}
	}
}

// writePump 송신 큐를 순서대로 소켓에 기록. 큐가 닫히면 연결을 닫는다
func (h *CanvasWSHandler) writePump(c *websocket.Conn, sess *session.Session) {
	for msg := range sess.Outbound() {
		if h.cfg.WebSocket.WriteTimeout > 0 {
			_ = c.SetWriteDeadline(time.Now().Add(h.cfg.WebSocket.WriteTimeout))
		}
		if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
			log.Printf("⚠️ [%s] Write failed: %v", sess.ID, err)
			sess.Close()
			break
		}
	}

	// 큐가 닫힘: 수신 루프를 깨우기 위해 연결 종료
	_ = c.SetWriteDeadline(time.Now().Add(time.Second))
	_ = c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err := c.Close(); err != nil {
		log.Printf("⚠️ [%s] Error closing WebSocket: %v", sess.ID, err)
	}
}

func (h *CanvasWSHandler) undecoded(sess *session.Session, reason string) {
	log.Printf("[Canvas] [%s] Dropping undecodable frame: %s", sess.ID, reason)
	if h.recorder != nil {
		h.recorder.MessageUndecoded()
	}
}
