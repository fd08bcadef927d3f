package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	_ "github.com/lib/pq"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/georgemunganga/printa-retail/internal/config"
	"github.com/georgemunganga/printa-retail/internal/events"
	"github.com/georgemunganga/printa-retail/internal/logger"
	"github.com/georgemunganga/printa-retail/internal/modules/auth"
	"github.com/georgemunganga/printa-retail/internal/modules/cart"
	"github.com/georgemunganga/printa-retail/internal/modules/catalog"
	"github.com/georgemunganga/printa-retail/internal/modules/inventory"
	"github.com/georgemunganga/printa-retail/internal/modules/pos"
	"github.com/georgemunganga/printa-retail/internal/modules/settlement"
	"github.com/georgemunganga/printa-retail/internal/modules/user"
	"github.com/georgemunganga/printa-retail/internal/modules/wishlist"
	"github.com/georgemunganga/printa-retail/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	zlog, err := logger.New(cfg.LogMode, cfg.LogFile)
	if err != nil {
		log.Fatal(err)
	}
	defer zlog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Store ───────────────────────────────────────────────
	st, closeStore, err := openStore(ctx, cfg, zlog)
	if err != nil {
		zlog.Fatal("failed to open store", zap.String("driver", cfg.Driver), zap.Error(err))
	}
	defer closeStore()
	zlog.Info("store ready", zap.String("driver", cfg.Driver))

	// ── Events ──────────────────────────────────────────────
	pub := events.Nop()
	if cfg.AMQPURL != "" {
		conn, ch, err := events.SetupConn(cfg.AMQPURL, 5, zlog)
		if err != nil {
			zlog.Fatal("failed to connect to broker", zap.Error(err))
		}
		defer closeBroker(conn, ch)
		pub = events.NewRabbit(ch)
	}

	// ── Inventory snapshot ──────────────────────────────────
	snap := inventory.NewSnapshot(zlog.Named("snapshot"))
	go func() {
		if err := snap.Run(ctx, st); err != nil {
			// the last catalog keeps serving, marked stale
			zlog.Error("inventory subscription ended", zap.Error(err))
		}
	}()

	scheduler := cron.New()
	lowStock := inventory.NewLowStockJob(snap, pub, cfg.LowStockThreshold, zlog.Named("low_stock"))
	if _, err := lowStock.Schedule(scheduler, cfg.LowStockSchedule); err != nil {
		zlog.Fatal("invalid low stock schedule", zap.String("schedule", cfg.LowStockSchedule), zap.Error(err))
	}
	scheduler.Start()
	defer scheduler.Stop()

	// ── Router ──────────────────────────────────────────────
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.RequestID)

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if !snap.Loaded() {
			http.Error(w, "inventory not loaded", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	authService := auth.NewService(cfg.JWTSecret, st)
	committer := settlement.StoreCommitter{Store: st}

	// ── Users ───────────────────────────────────────────────
	userService := user.NewService(user.NewStoreRepository(st), zlog.Named("user"))
	user.NewHandler(userService, authService).RegisterRoutes(router)

	// ── Inventory & Catalog ─────────────────────────────────
	inventoryService := inventory.NewService(snap, cfg.LowStockThreshold)
	inventory.NewHandler(inventoryService, authService).RegisterRoutes(router)

	catalogService := catalog.NewService(catalog.NewStoreRepository(st), snap, zlog.Named("catalog"))
	catalog.NewHandler(catalogService, authService).RegisterRoutes(router)

	// ── Point of sale ───────────────────────────────────────
	posService := pos.NewService(snap, committer, pos.NewStoreRepository(st), pub, zlog.Named("pos"))
	pos.NewHandler(posService, authService).RegisterRoutes(router)

	// ── Storefront ──────────────────────────────────────────
	cartService := cart.NewService(snap, committer, cart.NewStoreRepository(st), pub, zlog.Named("cart"))
	cart.NewHandler(cartService, authService).RegisterRoutes(router)

	wishlistService := wishlist.NewService(wishlist.NewStoreRepository(st), snap, cfg.LowStockThreshold, zlog.Named("wishlist"))
	wishlist.NewHandler(wishlistService, authService).RegisterRoutes(router)

	// ── Start Server ────────────────────────────────────────
	srv := &http.Server{Addr: ":" + cfg.Port, Handler: router}
	go func() {
		<-ctx.Done()
		zlog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			zlog.Error("graceful shutdown failed", zap.Error(err))
		}
	}()

	zlog.Info("Printa retail API starting", zap.String("addr", srv.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		zlog.Fatal("server error", zap.Error(err))
	}
}

func openStore(ctx context.Context, cfg *config.Config, zlog *zap.Logger) (store.Store, func(), error) {
	switch cfg.Driver {
	case config.DriverRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		rs := store.NewRedis(client, cfg.RedisPrefix, zlog.Named("redis"))
		if err := rs.Ping(ctx); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		return rs, func() { client.Close() }, nil

	case config.DriverPostgres:
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("postgres ping: %w", err)
		}
		ps := store.NewPostgres(db, cfg.DatabaseURL, zlog.Named("postgres"))
		if err := ps.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return ps, func() { db.Close() }, nil

	default:
		zlog.Warn("using the in-memory store; data is lost on exit")
		return store.NewMemory(), func() {}, nil
	}
}

func closeBroker(conn *amqp.Connection, ch *amqp.Channel) {
	if err := ch.Close(); err != nil {
		fmt.Fprintln(os.Stderr, "close channel:", err)
	}
	if err := conn.Close(); err != nil {
		fmt.Fprintln(os.Stderr, "close connection:", err)
	}
}
