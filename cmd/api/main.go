package main

import (
	"context"
	"fmt"
	"time"

	matchsvc "dorm-exchange-backend/internal/application/matches"
	"dorm-exchange-backend/internal/config"
	"dorm-exchange-backend/internal/infrastructure/database"
	"dorm-exchange-backend/internal/interfaces/router"

	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("config load: " + err.Error())
	}

	app, db, rdb, err := router.CreateApp(cfg)
	if err != nil {
		panic("app create: " + err.Error())
	}

	if db != nil {
		sqlDB, err := db.DB()
		if err != nil {
			panic("Postgres: get DB: " + err.Error())
		}
		if err := sqlDB.Ping(); err != nil {
			panic("Postgres connection failed: " + err.Error())
		}
		if err := database.AutoMigrate(db); err != nil {
			panic("Postgres migration failed: " + err.Error())
		}
		fmt.Println("Postgres connected")
	}
	if rdb != nil {
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			panic("Redis connection failed: " + err.Error())
		}
		fmt.Println("Redis connected")
	}

	// In-process expiry sweep for stale matches and listings.
	if db != nil && cfg.SweepInterval > 0 {
		sweeper := &matchsvc.Service{DB: db, MatchExpiry: cfg.MatchExpiry}
		go func() {
			ticker := time.NewTicker(cfg.SweepInterval)
			defer ticker.Stop()
			for range ticker.C {
				if _, _, err := sweeper.SweepExpired(context.Background(), time.Now().UTC()); err != nil {
					log.Error().Err(err).Msg("Expiry sweep failed")
				}
			}
		}()
	}

	fmt.Printf("Server running at http://localhost:%s\n", cfg.Port)
	fmt.Printf("Health check: http://localhost:%s/health/json\n", cfg.Port)
	fmt.Println("---")

	if err := app.Listen(":" + cfg.Port); err != nil {
		panic(err)
	}
}
