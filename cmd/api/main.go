package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bustedpokemon39/uniclub-sub001/internal/config"
	"github.com/bustedpokemon39/uniclub-sub001/internal/pkg"
	"github.com/bustedpokemon39/uniclub-sub001/internal/repository/mysql"
	"github.com/bustedpokemon39/uniclub-sub001/internal/repository/redis"
	"github.com/bustedpokemon39/uniclub-sub001/internal/router"
	"github.com/bustedpokemon39/uniclub-sub001/internal/service"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()
	log, err := pkg.NewLogger(cfg.Log.Mode)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	gin.SetMode(cfg.Server.GinMode)

	db, err := mysql.InitDB(cfg.MySQL.DSN)
	if err != nil {
		return err
	}
	// 自动建表（开发阶段 OK）
	if err := mysql.Migrate(db); err != nil {
		return err
	}

	// 连接redis
	rdb, err := redis.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return err
	}
	defer rdb.Close()

	sender := service.LogSender(log)
	if cfg.Kafka.Enabled {
		producer, err := pkg.NewKafkaProducer(pkg.KafkaConfig{Brokers: cfg.Kafka.Brokers, Topic: cfg.Kafka.Topic})
		if err != nil {
			return err
		}
		defer producer.Close()
		sender = service.KafkaSender(producer)
	}

	tokens := pkg.NewTokenManager(cfg.JWT.AccessSecret, cfg.JWT.RefreshSecret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)
	sessions := redis.NewSessionRepository(rdb, tokens.AccessTTL())
	stats := redis.NewStatsCacheRepository(rdb, cfg.Engagement.StatsCacheTTL)

	access := service.NewAccessService(db)
	engagements := service.NewEngagementService(db, access, stats, &redis.DistLock{RDB: rdb}, log)

	r := router.InitRouter(router.Deps{
		Log:         log,
		Tokens:      tokens,
		Sessions:    sessions,
		Limiter:     &redis.RateLimiter{RDB: rdb},
		RateLimits:  cfg.RateLimits,
		Users:       service.NewUserService(db, access, sessions, tokens),
		Follows:     service.NewFollowService(db),
		Groups:      service.NewGroupService(db),
		Contents:    service.NewContentService(db, access, engagements, cfg.Engagement, log),
		Engagements: engagements,
		Comments:    service.NewCommentService(db, access, cfg.Engagement),
	})
	srv := &http.Server{Addr: cfg.Server.Addr, Handler: r}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("http server listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return service.NewOutboxRelayer(db, cfg.Outbox, sender, log).Run(ctx)
	})
	g.Go(func() error {
		return service.NewCounterReconciler(db, cfg.Reconcile, stats, log).Run(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
