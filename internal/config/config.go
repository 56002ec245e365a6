package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"realtime-canvas/internal/model"
)

// Config 애플리케이션 전체 설정
type Config struct {
	Server    ServerConfig
	WebSocket WebSocketConfig
	CORS      CORSConfig
	Canvas    CanvasConfig
	Redis     RedisConfig
	Database  DatabaseConfig
	Metrics   MetricsConfig
}

// ServerConfig HTTP 서버 설정
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	RateLimit    int // /api 분당 요청 수
}

// WebSocketConfig WebSocket 관련 설정
type WebSocketConfig struct {
	ReadBufferSize  int
	WriteBufferSize int
	WriteTimeout    time.Duration
	MaxMessageSize  int64
}

// CORSConfig CORS 설정
type CORSConfig struct {
	AllowOrigins string
	AllowHeaders string
}

// CanvasConfig 캔버스 동기화 설정
type CanvasConfig struct {
	InstanceID    string
	HistoryCap    int
	Palette       []string
	MaxPathPoints int
	SendBuffer    int // 접속별 송신 큐 크기
	EventBuffer   int // Hub 이벤트 채널 크기
}

// RedisConfig Redis 설정 (Addr가 비어 있으면 사용 안 함)
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Enabled Redis 사용 여부
func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

// DatabaseConfig PostgreSQL 설정 (clear 보관용, 선택)
type DatabaseConfig struct {
	Enabled      bool
	Host         string
	Port         string
	User         string
	Password     string
	DBName       string
	SSLMode      string
	TimeZone     string
	MaxOpenConns int
}

// MetricsConfig Prometheus 설정
type MetricsConfig struct {
	Enabled   bool
	Path      string
	Namespace string
}

// Load 환경 변수에서 설정 로드
func Load() *Config {
	// .env 파일 로드 (없어도 에러 무시)
	if err := godotenv.Load(); err != nil {
		log.Println("ℹ️ No .env file found, using environment variables")
	}

	hostname, _ := os.Hostname()

	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", ":8080"),
			ReadTimeout:  getDuration("READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDuration("WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:  getDuration("IDLE_TIMEOUT", 120*time.Second),
			RateLimit:    getInt("API_RATE_LIMIT", 60),
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  getInt("WS_READ_BUFFER_SIZE", 4*1024),
			WriteBufferSize: getInt("WS_WRITE_BUFFER_SIZE", 4*1024),
			WriteTimeout:    getDuration("WS_WRITE_TIMEOUT", 5*time.Second),
			MaxMessageSize:  int64(getInt("WS_MAX_MESSAGE_SIZE", 64*1024)),
		},
		CORS: CORSConfig{
			AllowOrigins: getEnv("CORS_ALLOW_ORIGINS", "*"),
			AllowHeaders: getEnv("CORS_ALLOW_HEADERS", "Origin, Content-Type, Accept"),
		},
		Canvas: CanvasConfig{
			InstanceID:    getEnv("INSTANCE_ID", hostname),
			HistoryCap:    getInt("CANVAS_HISTORY_CAP", model.DefaultHistoryCap),
			Palette:       getList("CANVAS_PALETTE", model.DefaultPalette),
			MaxPathPoints: getInt("CANVAS_MAX_PATH_POINTS", 1000),
			SendBuffer:    getInt("CANVAS_SEND_BUFFER", 256),
			EventBuffer:   getInt("CANVAS_EVENT_BUFFER", 256),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getInt("REDIS_DB", 0),
		},
		Database: DatabaseConfig{
			Enabled:      getBool("DB_ENABLED", false),
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", ""),
			DBName:       getEnv("DB_NAME", "canvas"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			TimeZone:     getEnv("DB_TIMEZONE", "Asia/Seoul"),
			MaxOpenConns: getInt("DB_MAX_OPEN_CONNS", 5),
		},
		Metrics: MetricsConfig{
			Enabled:   getBool("METRICS_ENABLED", true),
			Path:      getEnv("METRICS_PATH", "/metrics"),
			Namespace: getEnv("METRICS_NAMESPACE", "canvas"),
		},
	}
}

// getEnv 환경 변수 조회 (기본값 지원)
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getInt 정수형 환경 변수 조회
func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getBool 불리언 환경 변수 조회
func getBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

// getDuration 시간 환경 변수 조회
func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		// 숫자만 있으면 초로 간주
		if !strings.ContainsAny(value, "smh") {
			if secs, err := strconv.Atoi(value); err == nil {
				return time.Duration(secs) * time.Second
			}
		}
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getList 쉼표 구분 목록 조회 (빈 항목 제거)
func getList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return append([]string(nil), defaultValue...)
	}

	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return append([]string(nil), defaultValue...)
	}
	return items
}
