package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"realtime-canvas/internal/archive"
	"realtime-canvas/internal/cache"
	"realtime-canvas/internal/config"
	"realtime-canvas/internal/database"
	"realtime-canvas/internal/hub"
	"realtime-canvas/internal/metrics"
	"realtime-canvas/internal/presence"
	"realtime-canvas/internal/server"
)

// 빌드 시 주입
var (
	version = "dev"
	commit  = "none"
)

func main() {
	rootCmd := serveCmd()
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	var (
		port       string
		historyCap int
	)

	cmd := &cobra.Command{
		Use:   "canvas-server",
		Short: "Real-time shared canvas server",
		Long: `Serve a shared drawing canvas over WebSocket.

Every connected client receives the current history on join and every
accepted operation afterwards, in the same order. Settings come from the
environment (and .env); flags override them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if port != "" {
				if !strings.Contains(port, ":") {
					port = ":" + port
				}
				cfg.Server.Port = port
			}
			if historyCap > 0 {
				cfg.Canvas.HistoryCap = historyCap
			}
			return run(cfg)
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "Listen address or port (default: $PORT or :8080)")
	cmd.Flags().IntVar(&historyCap, "cap", 0, "Maximum number of operations kept in history (default: $CANVAS_HISTORY_CAP or 100)")

	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("canvas-server %s (%s) %s %s/%s\n", version, commit, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}

func run(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deps := server.Deps{Stop: cancel}
	var hooks []hub.Hooks

	// 메트릭
	var opts []hub.Option
	if cfg.Metrics.Enabled {
		m := metrics.New(metrics.Config{Namespace: cfg.Metrics.Namespace})
		deps.Metrics = m
		opts = append(opts, hub.WithRecorder(m))
	}

	// Redis (선택): 연산 피드 + presence 게시
	if cfg.Redis.Enabled() {
		redisClient, err := cache.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Printf("⚠️ Redis unavailable: %v (operation feed and presence publishing disabled)", err)
		} else {
			defer redisClient.Close()
			deps.Redis = redisClient
			deps.Feed = redisClient

			feed := cache.NewFeed(redisClient, cfg.Canvas.InstanceID, cfg.Canvas.HistoryCap, cfg.Canvas.EventBuffer)
			publisher := presence.NewPublisher(redisClient.Client(), cfg.Canvas.InstanceID)
			go feed.Run(ctx)
			go publisher.Run(ctx)

			hooks = append(hooks,
				hub.Hooks{OnApplied: feed.OnApplied, OnCleared: feed.OnCleared},
				hub.Hooks{OnPresence: publisher.PresenceChanged},
			)
			log.Printf("✅ Redis connected (%s)", cfg.Redis.Addr)
		}
	} else {
		log.Println("ℹ️ Redis not configured (operation feed disabled)")
	}

	// PostgreSQL (선택): clear 보관
	if cfg.Database.Enabled {
		db, err := database.ConnectDB(&cfg.Database)
		if err != nil {
			log.Printf("⚠️ Database unavailable: %v (clear archive disabled)", err)
		} else if err := database.Ping(); err != nil {
			log.Printf("⚠️ Database ping failed: %v (clear archive disabled)", err)
		} else {
			defer database.Close()
			deps.DB = db

			archiver := archive.NewArchiver(archive.NewGormStore(db), cfg.Canvas.InstanceID, 0)
			go archiver.Run(ctx)

			hooks = append(hooks, hub.Hooks{OnCleared: archiver.OnCleared})
			log.Printf("✅ Database connected successfully")
		}
	} else {
		log.Println("ℹ️ Database not configured (clear archive disabled)")
	}

	for _, h := range hooks {
		opts = append(opts, hub.WithHooks(h))
	}

	canvasHub := hub.New(hub.Config{
		HistoryCap:    cfg.Canvas.HistoryCap,
		Palette:       cfg.Canvas.Palette,
		MaxPathPoints: cfg.Canvas.MaxPathPoints,
		EventBuffer:   cfg.Canvas.EventBuffer,
	}, opts...)
	go canvasHub.Run(ctx)
	deps.Hub = canvasHub

	// 서버 생성 및 설정
	srv := server.New(cfg, deps)
	srv.SetupMiddleware()
	srv.SetupRoutes()

	// 서버 시작
	if err := srv.Start(); err != nil {
		return fmt.Errorf("server failed to start: %w", err)
	}
	return nil
}
