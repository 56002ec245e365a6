package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"realtime-canvas/internal/model"
)

// 연산 처리 결과 라벨
const (
	StatusApplied  = "applied"
	StatusRejected = "rejected"
)

// Config Prometheus 메트릭 설정
type Config struct {
	Namespace string
	Registry  prometheus.Registerer
}

// Metrics 캔버스 서버 메트릭
type Metrics struct {
	operationsTotal   *prometheus.CounterVec
	clearsTotal       prometheus.Counter
	activeConnections prometheus.Gauge
	historyLength     prometheus.Gauge
	deliveriesDropped prometheus.Counter
	connectionsTotal  prometheus.Counter
	disconnectsTotal  prometheus.Counter
	messagesUndecoded prometheus.Counter
}

// New 메트릭 생성 및 등록. Registry가 nil이면 DefaultRegisterer 사용
func New(cfg Config) *Metrics {
	if cfg.Namespace == "" {
		cfg.Namespace = "canvas"
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(cfg.Registry)

	return &Metrics{
		operationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "operations_total",
			Help:      "Total number of submitted draw operations by kind and status",
		}, []string{"kind", "status"}),

		clearsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "clears_total",
			Help:      "Total number of canvas clears",
		}),

		activeConnections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Name:      "active_connections",
			Help:      "Number of currently registered connections",
		}),

		historyLength: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Name:      "history_length",
			Help:      "Number of operations currently held in the canvas history",
		}),

		deliveriesDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "deliveries_dropped_total",
			Help:      "Broadcast deliveries dropped because a recipient queue was full",
		}),

		connectionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "connections_total",
			Help:      "Total number of accepted connections",
		}),

		disconnectsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "disconnects_total",
			Help:      "Total number of connections removed from the registry",
		}),

		messagesUndecoded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "messages_undecoded_total",
			Help:      "Inbound frames dropped because they could not be decoded",
		}),
	}
}

// OperationApplied 수락된 연산 기록
func (m *Metrics) OperationApplied(op model.DrawOperation, historyLen int) {
	m.operationsTotal.WithLabelValues(op.Kind.String(), StatusApplied).Inc()
	m.historyLength.Set(float64(historyLen))
}

// OperationRejected 검증 실패 연산 기록
func (m *Metrics) OperationRejected(kind model.OpKind) {
	label := kind.String()
	if kind != model.OpKindDot && kind != model.OpKindLine {
		// 라벨 cardinality 제한
		label = "unknown"
	}
	m.operationsTotal.WithLabelValues(label, StatusRejected).Inc()
}

// CanvasCleared clear 기록
func (m *Metrics) CanvasCleared() {
	m.clearsTotal.Inc()
	m.historyLength.Set(0)
}

// PresenceChanged 접속 수 갱신
func (m *Metrics) PresenceChanged(count int) {
	m.activeConnections.Set(float64(count))
}

// Connected 접속 수락 기록
func (m *Metrics) Connected() {
	m.connectionsTotal.Inc()
}

// Disconnected 접속 해제 기록
func (m *Metrics) Disconnected() {
	m.disconnectsTotal.Inc()
}

// DeliveryDropped 송신 큐 초과로 버려진 메시지 기록
func (m *Metrics) DeliveryDropped() {
	m.deliveriesDropped.Inc()
}

// MessageUndecoded 파싱 불가 프레임 기록
func (m *Metrics) MessageUndecoded() {
	m.messagesUndecoded.Inc()
}
