package app

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/syncstream/server/internal/controller"
	chatinmemory "github.com/syncstream/server/internal/repository/chat/inmemory"
	chatredis "github.com/syncstream/server/internal/repository/chat/redis"
	roominmemory "github.com/syncstream/server/internal/repository/room/inmemory"
	roomredis "github.com/syncstream/server/internal/repository/room/redis"
	"github.com/syncstream/server/internal/repository/wssender"
	"github.com/syncstream/server/internal/service/room"
	"github.com/syncstream/server/pkg/ctxlogger"
	"github.com/syncstream/server/pkg/redisclient"
)

const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
)

type AppConfig struct {
	Host             string        `json:"host"`
	Port             int           `json:"port"`
	LogLevel         string        `json:"log_level"`
	Storage          string        `json:"storage"`
	MembersLimit     int           `json:"members_limit"`
	RoomCodeLength   int           `json:"room_code_length"`
	ChatHistoryLimit int           `json:"chat_history_limit"`
	RoomExpiry       time.Duration `json:"room_expiry"`
	RedisHost        string        `json:"redis_host"`
	RedisPort        int           `json:"redis_port"`
	RedisPassword    string        `json:"-"`
}

func (cfg *AppConfig) Validate() error {
	if cfg.Storage != StorageMemory && cfg.Storage != StorageRedis {
		return fmt.Errorf("unknown storage %q", cfg.Storage)
	}
	if cfg.RoomCodeLength < 4 {
		return fmt.Errorf("room code length must be at least 4")
	}
	if cfg.ChatHistoryLimit < 1 {
		return fmt.Errorf("chat history limit must be greater than 0")
	}
	return nil
}

func Run(ctx context.Context, cfg *AppConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logLevel := slog.LevelInfo
	if err := logLevel.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}

	h := ctxlogger.ContextHandler{
		Handler: slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: logLevel,
		}),
	}
	logger := slog.New(&h)

	sender := wssender.NewRepo(logger)
	serviceConfig := &room.Config{
		MembersLimit:     cfg.MembersLimit,
		RoomCodeLength:   cfg.RoomCodeLength,
		ChatHistoryLimit: cfg.ChatHistoryLimit,
		ChatTimeout:      5 * time.Second,
	}

	var mux http.Handler
	switch cfg.Storage {
	case StorageRedis:
		rc, err := redisclient.NewRedisClient(&redisclient.Config{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			return fmt.Errorf("failed to create redis client: %w", err)
		}
		defer rc.Close()

		roomService := room.NewService(
			roomredis.NewRepo(rc, cfg.RoomExpiry),
			chatredis.NewRepo(rc, cfg.ChatHistoryLimit, cfg.RoomExpiry),
			sender,
			serviceConfig,
			logger,
		)
		mux = controller.NewController(roomService, sender, logger).GetMux()
	default:
		roomService := room.NewService(
			roominmemory.NewRepo(),
			chatinmemory.NewRepo(cfg.ChatHistoryLimit),
			sender,
			serviceConfig,
			logger,
		)
		mux = controller.NewController(roomService, sender, logger).GetMux()
	}

	server := &http.Server{Addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port), Handler: mux}

	// graceful shutdown
	serverCtx, serverStopCtx := context.WithCancel(ctx)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-sig

		shutdownCtx, c := context.WithTimeout(serverCtx, 30*time.Second)
		defer c()

		go func() {
			<-shutdownCtx.Done()
			if shutdownCtx.Err() == context.DeadlineExceeded {
				log.Fatal("graceful shutdown timed out.. forcing exit.")
			}
		}()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Fatal(err)
		}
		serverStopCtx()
	}()

	logger.InfoContext(serverCtx, "starting server", "address", server.Addr, "storage", cfg.Storage)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	<-serverCtx.Done()

	return nil
}
