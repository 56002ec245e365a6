package hub

import (
	"log"

	"realtime-canvas/internal/protocol"
	"realtime-canvas/internal/session"
)

// broadcast 현재 멤버 전체에게 전송
func (h *Hub) broadcast(msg []byte) {
	h.broadcastExcept(msg, "")
}

// broadcastExcept exceptID를 제외한 멤버에게 전송.
// 멤버십은 레지스트리에서 스냅샷을 떠서 순회한다.
func (h *Hub) broadcastExcept(msg []byte, exceptID string) {
	for _, id := range h.registry.IDs() {
		if id == exceptID {
			continue
		}
		sess, ok := h.sessions[id]
		if !ok {
			continue
		}
		h.deliver(sess, msg)
	}
}

// broadcastPresence 접속 수 갱신 전송 + 관찰자 알림
func (h *Hub) broadcastPresence() {
	count := h.registry.Count()
	h.recorder.PresenceChanged(count)

	h.broadcast(protocol.MustEncode(protocol.TypePresence, protocol.PresencePayload{Count: count}))

	for _, hk := range h.hooks {
		if hk.OnPresence != nil {
			hk.OnPresence(count)
		}
	}
}

// deliver 한 세션에 non-blocking 전송.
// 큐가 가득 찬 수신자는 끊긴 것으로 간주하고 닫는다. 정리는 해당 연결의 disconnect 신호에서 이뤄진다.
func (h *Hub) deliver(sess *session.Session, msg []byte) {
	if sess.Enqueue(msg) {
		return
	}
	if sess.IsClosed() {
		return
	}

	h.recorder.DeliveryDropped()
	log.Printf("[Hub] Send buffer full, closing slow connection %s", sess.ID)
	sess.Close()
}
