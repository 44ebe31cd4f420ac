package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/aslamabdika18/Sewa-In/internal/api"
	"github.com/aslamabdika18/Sewa-In/internal/api/handler"
	custommw "github.com/aslamabdika18/Sewa-In/internal/api/middleware"
	"github.com/aslamabdika18/Sewa-In/internal/application"
	"github.com/aslamabdika18/Sewa-In/internal/config"
	"github.com/aslamabdika18/Sewa-In/internal/infrastructure/postgres"
	"github.com/aslamabdika18/Sewa-In/internal/infrastructure/rabbitmq"
	redisinfra "github.com/aslamabdika18/Sewa-In/internal/infrastructure/redis"
	"github.com/aslamabdika18/Sewa-In/internal/pkg/logger"
	"github.com/aslamabdika18/Sewa-In/internal/pkg/metrics"
	"github.com/aslamabdika18/Sewa-In/internal/worker"
)

func main() {
	// .env があれば読み込む（なければ環境変数のみ）
	_ = godotenv.Load()

	cfg := config.Load()
	logger.Set(logger.NewLogger(os.Getenv("APP_ENV")))
	defer logger.Sync()

	// データベース接続
	db, err := postgres.NewConnection(&cfg.Database)
	if err != nil {
		logger.Fatal("データベース接続に失敗", zap.Error(err))
	}
	defer db.Close()

	// マイグレーション実行
	migrationsPath := os.Getenv("MIGRATIONS_PATH")
	if migrationsPath == "" {
		migrationsPath = "migrations"
	}
	if err := postgres.RunMigrations(db.DB, migrationsPath); err != nil {
		logger.Fatal("マイグレーションに失敗", zap.Error(err))
	}

	// Redis はキャッシュ専用。接続できなくても起動は継続する
	var availabilityCache *redisinfra.AvailabilityCache
	redisClient, err := redisinfra.NewClient(&redisinfra.Config{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		logger.Warn("Redis接続に失敗。空き状況キャッシュなしで起動", zap.Error(err))
	} else {
		availabilityCache = redisinfra.NewAvailabilityCache(redisClient)
		defer redisClient.Close()
	}

	// RabbitMQ は通知配信用。未設定ならログ出力にフォールバック
	var notifier application.Notifier
	if cfg.RabbitMQ.Enabled() {
		publisher, err := rabbitmq.NewPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
		if err != nil {
			logger.Warn("RabbitMQ接続に失敗。通知はログ出力のみ", zap.Error(err))
		} else {
			notifier = application.NewAMQPNotifier(publisher)
			defer publisher.Close()
		}
	}
	if notifier == nil {
		notifier = application.NewLogNotifier()
	}

	// メトリクス
	m := metrics.Init()

	// リポジトリ
	itemRepo := postgres.NewItemRepository(db)
	bookingRepo := postgres.NewBookingRepository(db)
	paymentRepo := postgres.NewPaymentRepository(db)
	txManager := postgres.NewTxManager(db)

	// サービス
	availabilityService := application.NewAvailabilityService(itemRepo, bookingRepo, availabilityCache)
	itemService := application.NewItemService(itemRepo)
	bookingService := application.NewBookingService(
		txManager, bookingRepo, itemRepo, availabilityService, notifier, m, cfg.Booking)
	paymentService := application.NewPaymentService(
		txManager, paymentRepo, bookingRepo, notifier, m)

	// Echo セットアップ
	e := echo.New()
	e.HideBanner = true
	e.Validator = api.NewValidator()
	e.HTTPErrorHandler = api.CustomHTTPErrorHandler

	custommw.SetupMiddleware(e)
	e.Use(custommw.PrometheusMiddleware(m))

	// ハンドラー
	healthHandler := handler.NewHealthHandler()
	itemHandler := handler.NewItemHandler(itemService, availabilityService)
	bookingHandler := handler.NewBookingHandler(bookingService)
	paymentHandler := handler.NewPaymentHandler(paymentService)

	// ルーティング
	v1 := e.Group("/api/v1")
	v1.GET("/health", healthHandler.Check)

	v1.GET("/items", itemHandler.List)
	v1.GET("/items/:id", itemHandler.GetByID)
	v1.GET("/items/:id/availability", itemHandler.GetAvailability)

	v1.POST("/bookings", bookingHandler.Create)
	v1.GET("/bookings", bookingHandler.GetUserBookings)
	v1.GET("/bookings/:id", bookingHandler.GetByID)
	v1.POST("/bookings/:id/cancel", bookingHandler.Cancel)
	v1.POST("/bookings/:id/start", bookingHandler.Start)
	v1.POST("/bookings/:id/finish", bookingHandler.Finish)
	v1.GET("/bookings/:booking_id/payment", paymentHandler.GetByBookingID)

	v1.POST("/payments", paymentHandler.Create)
	v1.POST("/payments/webhook", paymentHandler.Webhook)

	// Prometheus メトリクス（Basic認証は環境変数設定時のみ）
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()), custommw.MetricsBasicAuth())

	// バックグラウンドワーカー
	janitorCtx, janitorCancel := context.WithCancel(context.Background())
	janitor := worker.NewBookingJanitor(
		bookingService,
		cfg.Booking.CleanerInterval,
		cfg.Booking.PaymentExpiry,
		cfg.Booking.RetentionAge,
	)
	go janitor.Start(janitorCtx)

	// サーバー起動
	go func() {
		addr := ":" + cfg.Server.Port
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("サーバー起動エラー", zap.Error(err))
		}
	}()

	// シグナル待機
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("サーバーをシャットダウンしています...")

	janitorCancel()
	janitor.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal("サーバーシャットダウンエラー", zap.Error(err))
	}

	logger.Info("サーバーが正常にシャットダウンしました")
}
