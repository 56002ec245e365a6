package server

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"realtime-canvas/internal/config"
	"realtime-canvas/internal/handler"
	"realtime-canvas/internal/hub"
	"realtime-canvas/internal/metrics"
)

// Deps 서버가 사용하는 협력 객체
type Deps struct {
	Hub      *hub.Hub
	Metrics  *metrics.Metrics    // nil이면 /metrics 미노출
	Gatherer prometheus.Gatherer // nil이면 DefaultGatherer
	DB       *gorm.DB            // nil 가능
	Redis    handler.Pinger      // nil 가능
	Feed     handler.FeedReader  // nil이면 /api/canvas/feed 미노출
	Stop     func()              // 종료 시 Hub 및 worker 정지
}

// Server Fiber 서버 래퍼
type Server struct {
	app           *fiber.App
	cfg           *config.Config
	deps          Deps
	canvasHandler *handler.CanvasHandler
	wsHandler     *handler.CanvasWSHandler
	healthHandler *handler.HealthHandler
	feedHandler   *handler.FeedHandler
}

// New 새 서버 인스턴스 생성
func New(cfg *config.Config, deps Deps) *Server {
	app := fiber.New(fiber.Config{
		AppName:               "Realtime Canvas",
		ServerHeader:          "Fiber",
		StrictRouting:         true,
		CaseSensitive:         true,
		ReadTimeout:           cfg.Server.ReadTimeout,
		WriteTimeout:          cfg.Server.WriteTimeout,
		IdleTimeout:           cfg.Server.IdleTimeout,
		Prefork:               false, // WebSocket과 호환성 문제로 비활성화
		BodyLimit:             1 * 1024 * 1024,
		DisableStartupMessage: true,
	})

	// metrics가 없으면 nil recorder (interface nil 유지)
	var recorder handler.UndecodedRecorder
	if deps.Metrics != nil {
		recorder = deps.Metrics
	}

	var feedHandler *handler.FeedHandler
	if deps.Feed != nil {
		feedHandler = handler.NewFeedHandler(deps.Feed, cfg.Canvas.InstanceID)
	}

	return &Server{
		app:           app,
		cfg:           cfg,
		deps:          deps,
		canvasHandler: handler.NewCanvasHandler(deps.Hub, cfg.Canvas.Palette),
		wsHandler:     handler.NewCanvasWSHandler(deps.Hub, cfg, recorder),
		healthHandler: handler.NewHealthHandler(deps.DB, deps.Redis, deps.Hub),
		feedHandler:   feedHandler,
	}
}

// App 내부 Fiber 앱 (테스트용)
func (s *Server) App() *fiber.App {
	return s.app
}

// SetupMiddleware 미들웨어 설정
func (s *Server) SetupMiddleware() {
	// 패닉 복구
	s.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	// 로깅
	s.app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${ip} | ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   "Asia/Seoul",
	}))

	// CORS
	s.app.Use(cors.New(cors.Config{
		AllowOrigins: s.cfg.CORS.AllowOrigins,
		AllowHeaders: s.cfg.CORS.AllowHeaders,
		AllowMethods: "GET, OPTIONS",
	}))
}

// SetupRoutes 라우트 설정
func (s *Server) SetupRoutes() {
	// 헬스체크 엔드포인트
	s.app.Get("/health", s.healthHandler.Check)
	s.app.Get("/health/live", s.healthHandler.Liveness)
	s.app.Get("/health/ready", s.healthHandler.Readiness)

	// Prometheus
	if s.deps.Metrics != nil && s.cfg.Metrics.Enabled {
		gatherer := s.deps.Gatherer
		if gatherer == nil {
			gatherer = prometheus.DefaultGatherer
		}
		s.app.Get(s.cfg.Metrics.Path, adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	// Rate Limiter 설정 (조회 API용)
	apiLimiter := limiter.New(limiter.Config{
		Max:        s.cfg.Server.RateLimit,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP() // IP 기반 제한
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "too many requests, please try again later",
			})
		},
	})

	apiGroup := s.app.Group("/api", apiLimiter)
	apiGroup.Get("/canvas", s.canvasHandler.GetCanvas)
	if s.feedHandler != nil {
		apiGroup.Get("/canvas/feed", s.feedHandler.GetFeed)
	}

	// WebSocket 업그레이드 체크 미들웨어
	s.app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	// WebSocket 캔버스 동기화 엔드포인트
	s.app.Get("/ws/canvas", websocket.New(s.wsHandler.HandleWebSocket, websocket.Config{
		ReadBufferSize:  s.cfg.WebSocket.ReadBufferSize,
		WriteBufferSize: s.cfg.WebSocket.WriteBufferSize,
	}))
}

// Start 서버 시작 (Graceful Shutdown 지원)
func (s *Server) Start() error {
	// Graceful Shutdown 설정
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("🛑 Shutting down server...")
		if err := s.Shutdown(); err != nil {
			log.Fatalf("Server shutdown error: %v", err)
		}
	}()

	log.Printf("🚀 Realtime Canvas starting on %s", s.cfg.Server.Port)
	log.Printf("📡 WebSocket endpoint: ws://localhost%s/ws/canvas", s.cfg.Server.Port)

	return s.app.Listen(s.cfg.Server.Port)
}

// Shutdown 서버 종료
//
// Hub를 먼저 멈춰 모든 세션을 닫은 뒤 HTTP 서버를 내린다.
func (s *Server) Shutdown() error {
	if s.deps.Stop != nil {
		s.deps.Stop()
	}
	if s.deps.Hub != nil {
		select {
		case <-s.deps.Hub.Done():
		case <-time.After(5 * time.Second):
			log.Println("⚠️ Hub did not stop in time")
		}
	}
	return s.app.ShutdownWithTimeout(30 * time.Second)
}
