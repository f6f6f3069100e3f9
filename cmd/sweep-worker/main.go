package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/bookable/booking-engine/internal/booking"
	"github.com/bookable/booking-engine/internal/config"
	"github.com/bookable/booking-engine/internal/db"
	"github.com/bookable/booking-engine/internal/notify"
	"github.com/bookable/booking-engine/internal/redisclient"
	"github.com/bookable/booking-engine/internal/sweep"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("sweep-worker starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	log.Printf("running sweep worker in env=%s tz=%s expiry=%s missed=%s reminder=%s",
		cfg.Env, cfg.Timezone, cfg.ExpirySweepInterval, cfg.MissedSweepInterval, cfg.ReminderSweepInterval)

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
	notifier := notify.NewStreamNotifier(rdb)
	sweeper := sweep.NewSweeper(repo, notifier, sweep.Config{
		Timezone:        cfg.Timezone,
		GracePeriod:     cfg.GracePeriod,
		ReminderLeadMin: cfg.ReminderLeadMin,
		ReminderLeadMax: cfg.ReminderLeadMax,
	})

	sched := sweep.NewScheduler(20 * time.Second)
	sweeper.Register(sched, cfg.ExpirySweepInterval, cfg.MissedSweepInterval, cfg.ReminderSweepInterval)

	sched.Run(rootCtx)

	log.Println("shutdown signal received, sweep worker stopped")
}
