package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"healthportal/backend/internal/api/handler"
	"healthportal/backend/internal/audit"
	"healthportal/backend/internal/config"
	"healthportal/backend/internal/livefeed"
	"healthportal/backend/internal/logging"
	"healthportal/backend/internal/notify"
	"healthportal/backend/internal/storage"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func main() {
	cfg := config.Load()

	log, err := logging.New(cfg.LogLevel, cfg.GinMode == gin.DebugMode)
	if err != nil {
		panic(err)
	}

	os.Exit(exitCode(log, run(cfg, log)))
}

// exitCode logs a fatal error and flushes the logger before the process exits,
// since os.Exit skips deferred calls.
func exitCode(log *zap.Logger, err error) int {
	code := 0
	if err != nil {
		log.Error("portal stopped", zap.Error(err))
		code = 1
	}
	_ = log.Sync()
	return code
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("starting health portal", zap.String("addr", cfg.Addr))

	// 1. Database and optional Redis
	store, err := storage.Connect(ctx, cfg, &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		return err
	}
	defer store.Close()
	if err := storage.AutoMigrate(store.DB); err != nil {
		return err
	}
	log.Info("database ready", zap.Bool("redis", store.Redis != nil))

	// 2. Live audit feed
	hub := livefeed.NewHub(log.Named("livefeed"))
	if err := hub.UseRedis(ctx, store); err != nil {
		return err
	}
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go hub.Run(hubCtx)

	// 3. Complaint notifications
	var notifier notify.Notifier = notify.Nop{}
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != 0 {
		tg, err := notify.NewTelegramFromToken(cfg.TelegramBotToken, cfg.TelegramChatID)
		if err != nil {
			log.Warn("telegram notifications disabled", zap.Error(err))
		} else {
			notifier = tg
		}
	}

	h, err := handler.NewHandler(handler.Deps{
		Config:   cfg,
		Storage:  store,
		Audit:    audit.NewLogger(store, log.Named("audit")),
		Hub:      hub,
		Notifier: notifier,
		Log:      log,
	})
	if err != nil {
		return err
	}

	if cfg.AdminPassword != "" {
		created, err := h.Accounts.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminEmail, cfg.AdminPassword)
		if err != nil {
			return err
		}
		if created {
			log.Info("bootstrap admin created", zap.String("username", cfg.AdminUsername))
		}
	}

	// 4. HTTP server
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler.NewRouter(h),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := server.Shutdown(shutdownCtx)
		stopHub()
		<-hub.Done()
		return err
	})
	return g.Wait()
}
