package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"papertrade/internal/handlers"
	"papertrade/internal/ledger"
	"papertrade/internal/quotes"
	"papertrade/internal/refresh"
	"papertrade/internal/store"
)

const (
	defaultStartingBalance = "100000"
	defaultBaseCurrency    = "USD"
	defaultRefreshSeconds  = 30
)

func main() {
	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)

	// Load .env file if it exists, but don't fail if it's missing (e.g. in production)
	_ = godotenv.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	startingBalance, err := decimal.NewFromString(envOr("STARTING_BALANCE", defaultStartingBalance))
	if err != nil || !startingBalance.IsPositive() {
		logger.Fatalf("STARTING_BALANCE must be a positive number")
	}
	baseCurrency := envOr("BASE_CURRENCY", defaultBaseCurrency)

	// Both stores are optional: the ledger runs fully in-memory when
	// neither is reachable.
	var pg *store.Postgres
	if dsn := os.Getenv("POSTGRES_URL"); dsn != "" {
		db, err := initDB(dsn)
		if err != nil {
			logger.Warnf("postgres unavailable, continuing in-memory: %v", err)
		} else {
			defer db.Close()
			pg = store.NewPostgres(db, logger)
		}
	}

	var cache *store.Redis
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		c, err := store.NewRedis(addr, os.Getenv("REDIS_PASSWORD"), 0)
		if err != nil {
			logger.Warnf("redis unavailable, continuing without snapshot cache: %v", err)
		} else {
			defer c.Close()
			cache = c
		}
	}

	// Two-phase hydration: construct from the local snapshot first, then
	// attempt one canonical load and overwrite only if it succeeds.
	portfolio := ledger.NewPortfolio(startingBalance, baseCurrency, time.Now().UTC())
	if cache != nil {
		if p, err := cache.Load(ctx); err == nil {
			portfolio = p
			logger.Info("portfolio hydrated from snapshot cache")
		} else if err != store.ErrNotFound {
			logger.Warnf("snapshot cache load failed: %v", err)
		}
	}

	var sinks []store.Snapshotter
	if pg != nil {
		sinks = append(sinks, pg)
	}
	if cache != nil {
		sinks = append(sinks, cache)
	}
	outbox := store.NewOutbox(logger, sinks...)
	outbox.Start(ctx)

	mgr := ledger.NewManager(portfolio, logger, outbox)

	if pg != nil {
		if p, err := pg.Load(ctx); err == nil {
			mgr.Hydrate(p)
			logger.Info("portfolio hydrated from database")
		} else if err == store.ErrNotFound {
			logger.Info("no stored portfolio, starting fresh")
		} else {
			logger.Warnf("database load failed, keeping local state: %v", err)
		}
	}

	refreshInterval := defaultRefreshSeconds
	if v := os.Getenv("PRICE_REFRESH_INTERVAL"); v != "" {
		if iv, err := strconv.Atoi(v); err == nil && iv > 0 {
			refreshInterval = iv
		}
	}
	src := quotes.NewSimSource(time.Now().UnixNano())
	driver := refresh.NewDriver(mgr, src, logger)
	driver.Start(ctx, time.Duration(refreshInterval)*time.Second)

	var watchlist handlers.Watchlist
	if pg != nil {
		watchlist = pg
	}
	h := handlers.NewHandler(mgr, watchlist, outbox, logger)

	r := gin.Default()
	h.Register(r)

	port := envOr("PORT", "8080")
	logger.Infof("server starting on :%s", port)
	r.Run(fmt.Sprintf(":%s", port))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func initDB(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	return db, nil
}
