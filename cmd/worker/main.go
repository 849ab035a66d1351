package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"manabitrack/internal/attendance"
	"manabitrack/internal/config"
	"manabitrack/internal/model"
	"manabitrack/internal/queue"
	"manabitrack/internal/store"
)

// Worker consumes committed attendance events to keep the Redis presence
// counter warm, and closes forgotten sessions at the configured cutoff.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file, using environment")
	}
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	st, err := store.Open(cfg.StoreBackend, cfg.DatabaseURL, cfg.SQLitePath)
	if err != nil {
		log.Fatalf("store open failed: %v", err)
	}
	defer st.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "manabitrack:events")
	}

	att := attendance.NewService(st, q)

	go runSweepSchedule(ctx, att, cfg.SweepCutoff)

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for messages...")
	for msg := range messages {
		switch msg.Type {
		case queue.TypeCheckIn:
			today := time.Now().Format(model.DateLayout)
			if err := redisClient.BumpPresence(ctx, today); err != nil {
				log.Printf("presence bump failed for %s: %v", string(msg.Body), err)
				continue
			}
			count, _ := redisClient.PresenceCount(ctx, today)
			log.Printf("check-in %s counted for %s (present: %d)", string(msg.Body), today, count)

		case queue.TypeCheckOut:
			log.Printf("check-out committed: %s", string(msg.Body))

		case queue.TypeSweep:
			log.Printf("sweep closed %s open sessions", string(msg.Body))
		}
	}

	log.Println("worker stopped")
}

// runSweepSchedule fires the end-of-day sweep once per day at the cutoff
// clock time, for all schools.
func runSweepSchedule(ctx context.Context, att *attendance.Service, cutoff string) {
	cut, err := time.Parse(model.ClockLayout, cutoff)
	if err != nil {
		log.Printf("invalid sweep cutoff %q, scheduler disabled", cutoff)
		return
	}

	for {
		now := time.Now()
		next := time.Date(now.Year(), now.Month(), now.Day(), cut.Hour(), cut.Minute(), cut.Second(), 0, now.Location())
		if !next.After(now) {
			next = next.Add(24 * time.Hour)
		}

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		res, err := att.RunSweep(ctx, cutoff, "")
		if err != nil {
			log.Printf("scheduled sweep failed: %v", err)
			continue
		}
		log.Printf("scheduled sweep closed %d session(s)", res.ClosedCount)
	}
}
