package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/koopa0/system-design/14-battleship/internal"
	"github.com/koopa0/system-design/14-battleship/web"
)

func main() {
	// 解析命令行參數
	var (
		configPath = flag.String("config", "", "配置檔案路徑（YAML）")
		port       = flag.Int("port", 8080, "服務器端口")
		rooms      = flag.Int("rooms", 5, "房間數量")
		storeKind  = flag.String("store", internal.StoreMemory, "房間儲存 (memory, redis)")
		logLevel   = flag.String("log-level", "info", "日誌級別 (debug, info, warn, error)")
		logFormat  = flag.String("log-format", "text", "日誌格式 (text, json)")
	)
	flag.Parse()

	config, err := internal.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 命令行只覆蓋明確給定的參數
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			config.Server.Port = *port
		case "rooms":
			config.Game.Rooms = *rooms
		case "store":
			config.Store.Driver = *storeKind
		case "log-level":
			config.Log.Level = *logLevel
		case "log-format":
			config.Log.Format = *logFormat
		}
	})

	if err := config.ApplyEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid environment: %v\n", err)
		os.Exit(1)
	}
	if err := config.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := setupLogger(config.Log.Level, config.Log.Format)
	slog.SetDefault(logger)

	// 房間儲存
	store, err := setupStore(config, logger)
	if err != nil {
		logger.Error("failed to set up room store", "driver", config.Store.Driver, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	// 跨行程廣播（可選）
	var bus internal.Bus
	if config.NATS.URL != "" {
		natsBus, err := internal.NewNATSBus(config.NATSBusConfig(), logger)
		if err != nil {
			logger.Error("failed to connect to nats", "error", err)
			os.Exit(1)
		}
		bus = natsBus
		defer natsBus.Close()
	}

	dir := internal.NewDirectory()
	router := internal.NewRouter(dir, store, bus, logger)
	if err := router.Start(); err != nil {
		logger.Error("failed to start router", "error", err)
		os.Exit(1)
	}

	manager := internal.NewManager(store, dir, router, config.ManagerConfig(), logger)
	hub := internal.NewWebSocketHub(manager, config.HubConfig(), logger)
	handler := internal.NewHandler(manager, hub, web.IndexHTML, logger)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", config.Server.Port),
		Handler:      handler.Routes(),
		ReadTimeout:  config.Server.ReadTimeout,
		WriteTimeout: config.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("battleship server starting",
			"port", config.Server.Port,
			"rooms", config.Game.Rooms,
			"store", config.Store.Driver,
			"nats", config.NATS.URL != "")
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}

	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig)

		ctx, cancel := context.WithTimeout(context.Background(), config.Server.ShutdownTimeout)
		defer cancel()

		// 停止接受新連接；已升級的 WebSocket 不受 Shutdown 管理
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("failed to shutdown server", "error", err)
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", "error", closeErr)
			}
		}

		// 關閉所有連線，每條連線各自走離座流程
		hub.Stop()
	}

	logger.Info("server stopped")
}

// setupStore 依設定建立房間儲存
func setupStore(config *internal.Config, logger *slog.Logger) (internal.Store, error) {
	switch config.Store.Driver {
	case internal.StoreRedis:
		opts, err := config.RedisOptions()
		if err != nil {
			return nil, err
		}
		client := redis.NewClient(opts)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		return internal.NewRedisStore(client, config.RedisStoreConfig(), logger), nil

	default:
		return internal.NewMemoryStore(config.Game.Rooms), nil
	}
}

// setupLogger 設置日誌
func setupLogger(level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     parseLogLevel(level),
		AddSource: level == "debug", // debug 模式顯示源碼位置
	}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

// parseLogLevel 解析日誌級別
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
