package main

import (
	"complaintdesk/backend/internal/api/handler"
	"complaintdesk/backend/internal/complaint"
	"complaintdesk/backend/internal/config"
	"complaintdesk/backend/internal/livefeed"
	"complaintdesk/backend/internal/localization"
	"complaintdesk/backend/internal/notify"
	"complaintdesk/backend/internal/reconciler"
	"complaintdesk/backend/internal/storage"
	"complaintdesk/backend/internal/telegram"
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupDependencies(cfg *config.Config) (*gorm.DB, *redis.Client) {
	// 1. PostgreSQL
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect PostgreSQL: %v", err)
	}

	// 2. Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	// Перевірка з'єднання Redis
	ctx := context.Background()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to connect Redis: %v", err)
	}

	// 3. Міграції (таблиці та тригер змін)
	if err := storage.Migrate(db, cfg.ChangeFeed); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Database and Redis connections established, migrations complete.")
	return db, rdb
}

// setupNotifications обирає Telegram, якщо налаштовано токен, інакше лише лог.
func setupNotifications(ctx context.Context, cfg *config.Config, rdb *redis.Client) (notify.Dispatcher, *telegram.Dispatcher) {
	if cfg.TelegramBotToken == "" {
		log.Println("INFO: TELEGRAM_BOT_TOKEN not set, notifications go to the log")
		return notify.LogDispatcher{}, nil
	}

	tg, err := telegram.NewDispatcher(ctx, cfg.TelegramBotToken, &telegram.RedisChats{Client: rdb}, cfg.TelegramChatIDs)
	if err != nil {
		log.Printf("WARNING: Telegram notifications disabled: %v", err)
		return notify.LogDispatcher{}, nil
	}
	return notify.Multi{notify.LogDispatcher{}, tg}, tg
}

func main() {
	log.Println("Starting complaint desk backend...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Ініціалізація залежностей
	db, rdb := setupDependencies(cfg)
	s := storage.NewStorageService(db, rdb, cfg.ChangeFeed)
	s.ListenerDSN = cfg.DSN()

	loc, err := localization.Default()
	if err != nil {
		log.Fatalf("Failed to load locales: %v", err)
	}

	// 2. Сповіщення
	dispatcher, tg := setupNotifications(ctx, cfg, rdb)
	notifications := notify.NewService(dispatcher, 32)
	notifications.Start(ctx)
	if tg != nil {
		go tg.Listen(ctx)
	}

	// 3. Кеш скарг та live feed
	view := reconciler.New(s, notifications, loc, cfg.Language, "")

	hub := livefeed.NewHub(view, loc, cfg.Language)
	view.OnChange(hub.Changed)
	view.OnNewComplaint(hub.NewComplaint)
	go hub.Run(ctx)

	if err := view.Activate(ctx); err != nil {
		log.Printf("WARNING: Initial complaint load failed, serving an empty view until reload: %v", err)
	}

	// 4. Налаштування Gin та роутингу
	r := gin.Default()
	h := &handler.Handler{
		Lifecycle:        complaint.NewStateMachine(s),
		Escalator:        complaint.NewReminderTracker(s),
		Intake:           complaint.NewSubmitter(s),
		View:             view,
		Types:            s,
		Hub:              hub,
		Localizer:        loc,
		JWTSecret:        []byte(cfg.JWTSecret),
		DefaultLang:      cfg.Language,
		ReloadAfterWrite: cfg.ReloadAfterWrite,
	}
	h.Register(r)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "degraded": view.Degraded()})
	})

	// Запуск HTTP-сервера
	server := &http.Server{
		Addr:           cfg.HTTPAddr,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()
	log.Printf("INFO: Listening on %s", cfg.HTTPAddr)

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: HTTP shutdown: %v", err)
	}
	if err := view.Deactivate(); err != nil {
		log.Printf("ERROR: Failed to close change subscription: %v", err)
	}
	if err := notifications.Close(); err != nil {
		log.Printf("ERROR: Failed to close notifications: %v", err)
	}
	if err := rdb.Close(); err != nil {
		log.Printf("ERROR: Failed to close Redis: %v", err)
	}
}
