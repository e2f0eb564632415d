package main

import (
	"context"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/auction-marketplace/internal/auction"
	"github.com/iliyamo/auction-marketplace/internal/config"
	"github.com/iliyamo/auction-marketplace/internal/database"
	"github.com/iliyamo/auction-marketplace/internal/handler"
	"github.com/iliyamo/auction-marketplace/internal/middleware"
	"github.com/iliyamo/auction-marketplace/internal/queue"
	"github.com/iliyamo/auction-marketplace/internal/repository"
	"github.com/iliyamo/auction-marketplace/internal/router"
	queue_publisher "github.com/iliyamo/auction-marketplace/internal/service"
	"github.com/iliyamo/auction-marketplace/internal/utils"
	"github.com/iliyamo/auction-marketplace/internal/worker"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments use the environment

	cfg := config.Load()
	log := utils.NewLogger(cfg.Env)

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.WithError(err).Fatal("database connect failed")
	}
	defer db.Close()

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	auctions := repository.NewAuctionRepo(db)
	bids := repository.NewBidRepo(db)

	events := queue_publisher.New(log)
	svc := auction.NewService(auctions, bids, events, log)

	// Redis is optional: with no client the rate limiter and the
	// response cache both degrade to pass-through.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn("redis unavailable, rate limiting and caching disabled")
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())

	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens), cfg.JWTSecret)
	router.RegisterAuctions(e,
		handler.NewAuctionHandler(svc, auctions, bids),
		handler.NewBidHandler(svc, bids),
		cfg.JWTSecret,
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
		middleware.NewRedisCache(config.LoadCacheConfig(), rdb),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go worker.NewReconciler(svc, cfg.ReconcileEvery, log).Run(ctx)
	go queue.StartClosedAuctionConsumer(log)

	addr := ":" + cfg.Port
	log.WithField("addr", addr).WithField("env", cfg.Env).Info("listening")
	if err := e.Start(addr); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}
