package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/venuex-ticketing/internal/clock"
	"github.com/iliyamo/venuex-ticketing/internal/config"
	"github.com/iliyamo/venuex-ticketing/internal/database"
	"github.com/iliyamo/venuex-ticketing/internal/handler"
	"github.com/iliyamo/venuex-ticketing/internal/logging"
	"github.com/iliyamo/venuex-ticketing/internal/metrics"
	"github.com/iliyamo/venuex-ticketing/internal/middleware"
	"github.com/iliyamo/venuex-ticketing/internal/queue"
	"github.com/iliyamo/venuex-ticketing/internal/realtime"
	"github.com/iliyamo/venuex-ticketing/internal/repository"
	"github.com/iliyamo/venuex-ticketing/internal/router"
	"github.com/iliyamo/venuex-ticketing/internal/service"
)

func main() {
	config.LoadDotEnv()
	cfg := config.Load()
	life := config.LoadLifecycleConfig()
	msg := config.LoadMessagingConfig()
	log := logging.New(cfg.Env, cfg.LogLevel)

	db, err := database.Open(database.Options{
		User: cfg.DBUser, Pass: cfg.DBPass, Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName,
	})
	if err != nil {
		log.WithError(err).Fatal("database unavailable")
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			log.WithError(err).Fatal("migrations failed")
		}
	}

	store := repository.NewStore(db)
	users := repository.NewUserRepo(store)
	tokens := repository.NewTokenRepo(store)
	events := repository.NewEventRepo(store)
	bookings := repository.NewBookingRepo(store)
	settlements := repository.NewSettlementRepo(store)
	comments := repository.NewCommentRepo(store)
	analytics := repository.NewAnalyticsRepo(store)

	notifiers := service.Notifiers{}
	if msg.AMQPURL != "" {
		pub := queue.NewPublisher(msg.AMQPURL, log, queue.WithDialTimeout(msg.AMQPDialTimeout))
		defer pub.Close()
		notifiers = append(notifiers, queue.NewNotifier(pub, log))
		if msg.AuditConsumer {
			audit, err := queue.NewAuditConsumer(msg.AMQPURL, msg.AuditLogPath, log)
			if err != nil {
				log.WithError(err).Warn("audit consumer disabled")
			} else {
				go audit.Run(ctx)
			}
		}
	}
	if msg.PubNubPublishKey != "" {
		sender := realtime.NewPubNubSender(realtime.Options{
			PublishKey:   msg.PubNubPublishKey,
			SubscribeKey: msg.PubNubSubscribeKey,
			SecretKey:    msg.PubNubSecretKey,
			UserID:       msg.PubNubUserID,
		})
		notifiers = append(notifiers, realtime.NewNotifier(sender, log))
	}

	cacheCfg := config.LoadCacheConfig()
	var (
		cmd      redis.Cmdable
		scripter redis.Scripter
	)
	if rdb := config.NewRedisClient(); rdb != nil {
		defer rdb.Close()
		cmd, scripter = rdb, rdb
	}
	catalogue := middleware.NewCacheInvalidator(cacheCfg, cmd)

	clk := clock.NewSystem()
	eventSvc := service.NewEventService(store, events, clk)
	bookingOpts := []service.BookingServiceOption{
		service.WithHoldTTL(life.BookingHoldTTL),
		service.WithCurrency(life.Currency),
		service.WithBookingLogger(log),
	}
	if catalogue != nil {
		bookingOpts = append(bookingOpts, service.WithInventoryWatcher(catalogue))
	}
	bookingSvc := service.NewBookingService(store, events, bookings,
		service.NewHMACGateway(life.PaymentSecret), notifiers, clk, bookingOpts...)
	settlementSvc := service.NewSettlementService(store, events, bookings, settlements, comments, notifiers, clk,
		service.WithFeePercent(life.DefaultFeePercent),
	)

	go service.NewSweeper(bookingSvc, life.SweepInterval, life.SweepBatch, log).Run(ctx)

	e := newEcho(cfg, log, scripter)
	router.Register(e, router.Handlers{
		Auth:        handler.NewAuthHandler(cfg, users, tokens),
		Events:      handler.NewEventHandler(eventSvc, catalogue),
		Bookings:    handler.NewBookingHandler(bookingSvc),
		Settlements: handler.NewSettlementHandler(settlementSvc),
		Analytics:   handler.NewAnalyticsHandler(analytics),
		DB:          db,
	}, router.Options{
		JWTSecret: cfg.JWTSecret,
		Cache:     middleware.NewRedisCache(cacheCfg, cmd),
	})

	go func() {
		addr := ":" + cfg.Port
		log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
}

// newEcho builds the server with the process-wide middleware chain.
func newEcho(cfg config.Config, log *logrus.Logger, rdb redis.Scripter) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{AllowOrigins: cfg.CORSOrigins}))
	e.Use(echomw.BodyLimit("1M"))
	e.Use(logging.RequestLogger(log))
	e.Use(metrics.Middleware())
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	return e
}
