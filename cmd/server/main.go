package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/siddharthav19/ToursProj/internal/config"
	"github.com/siddharthav19/ToursProj/internal/database"
	"github.com/siddharthav19/ToursProj/internal/handler"
	"github.com/siddharthav19/ToursProj/internal/mailer"
	"github.com/siddharthav19/ToursProj/internal/repository"
	"github.com/siddharthav19/ToursProj/internal/router"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}

	// Redis is optional: without it the rate limiter and response cache
	// become pass-throughs.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable, rate limiting and caching disabled")
	}

	users := repository.NewUserRepo(db)
	tours := repository.NewTourRepo(db)
	reviews := repository.NewReviewRepo(db)

	mail := mailer.NewQueueMailer(cfg.AMQPURL, cfg.EmailFrom)
	go mailer.StartConsumer(cfg.AMQPURL)

	authHandler := handler.NewAuthHandler(cfg, users, mail)
	userHandler := handler.NewUserHandler(cfg, users)
	tourHandler := handler.NewTourHandler(tours, reviews)
	reviewHandler := handler.NewReviewHandler(reviews, tours)

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterUsers(e, cfg, authHandler, userHandler, users, rdb)
	router.RegisterTours(e, cfg, tourHandler, reviewHandler, users, rdb)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
