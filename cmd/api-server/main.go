package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/bookable/booking-engine/internal/api"
	"github.com/bookable/booking-engine/internal/booking"
	"github.com/bookable/booking-engine/internal/config"
	"github.com/bookable/booking-engine/internal/db"
	"github.com/bookable/booking-engine/internal/notify"
	"github.com/bookable/booking-engine/internal/redisclient"
	"github.com/bookable/booking-engine/internal/sweep"
)

const version = "1.0.0"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("api-server starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	log.Printf("running in env=%s http_port=%s tz=%s", cfg.Env, cfg.HTTPPort, cfg.Timezone)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatalf("postgres connection error: %v", err)
	}
	defer pgPool.Close()
	log.Println("connected to Postgres")

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("redis connection error: %v", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Printf("error closing redis: %v", err)
		}
	}()
	log.Println("connected to Redis")

	repo := booking.NewPgRepository(pgPool)
	locker := redisclient.NewRedisBookingLocker(rdb, cfg.LockTTL)
	notifier := notify.NewStreamNotifier(rdb)
	slots := booking.NewSlotGenerator(repo, cfg.Timezone, cfg.SlotStep, cfg.BookingBuffer)
	svc := booking.NewService(repo, locker, slots, notifier)
	sweeper := sweep.NewSweeper(repo, notifier, sweep.Config{
		Timezone:        cfg.Timezone,
		GracePeriod:     cfg.GracePeriod,
		ReminderLeadMin: cfg.ReminderLeadMin,
		ReminderLeadMax: cfg.ReminderLeadMax,
	})

	router := api.NewRouter(api.RouterConfig{
		Service: svc,
		Sweeper: sweeper,
		PgPool:  pgPool,
		Redis:   rdb,
		Env:     cfg.Env,
		Version: version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	case <-rootCtx.Done():
	}

	log.Println("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown error: %v", err)
	}
}
