package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/study-room-reservation/internal/booking"
	"github.com/iliyamo/study-room-reservation/internal/config"
	"github.com/iliyamo/study-room-reservation/internal/database"
	"github.com/iliyamo/study-room-reservation/internal/handler"
	"github.com/iliyamo/study-room-reservation/internal/middleware"
	"github.com/iliyamo/study-room-reservation/internal/queue"
	"github.com/iliyamo/study-room-reservation/internal/repository"
	"github.com/iliyamo/study-room-reservation/internal/router"
	queuepublisher "github.com/iliyamo/study-room-reservation/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis backs rate limiting and idempotent create replays.  A nil
	// client just turns both features off.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable; rate limiting and idempotency disabled")
	}

	rooms := repository.NewRoomRepo(db)
	seats := repository.NewSeatRepo(db)
	reservations := repository.NewReservationRepo(db)
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	idem := repository.NewIdempotencyStore(rdb, cfg.IdempotencyTTL)

	svc := booking.NewService(db, rooms, seats, reservations,
		queuepublisher.PublishReservationEvent, cfg.UnpaidGrace)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Background sweeper expires unpaid reservations and flags no-shows.
	sweeper := booking.NewSweeper(svc, cfg.SweepInterval, cfg.SweepBatchSize)
	go sweeper.Run(ctx)

	// Event consumer writes the reservation audit log from the queue.
	go func() {
		if err := queue.StartReservationConsumer(ctx); err != nil {
			log.Printf("reservation consumer stopped: %v", err)
		}
	}()

	// Expired refresh tokens accumulate; purge them periodically.
	go func() {
		t := time.NewTicker(time.Hour)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if n, err := tokens.PurgeExpired(context.Background()); err != nil {
					log.Printf("token purge: %v", err)
				} else if n > 0 {
					log.Printf("token purge: removed %d expired refresh tokens", n)
				}
			}
		}
	}()

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())

	rateLimit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)

	router.Register(e, router.Handlers{
		Auth:        handler.NewAuthHandler(cfg, users, tokens),
		Rooms:       handler.NewRoomHandler(rooms, seats),
		Reservation: handler.NewReservationHandler(svc, reservations, idem),
		Admin:       handler.NewAdminHandler(svc, users, seats, reservations),
	}, cfg.JWTSecret, rateLimit)

	// Shut the server down cleanly on SIGINT/SIGTERM.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Printf("server stopped: %v", err)
	}
}
