// Command seed provisions users and stands from a JSON file:
//
//	seed -file seed.json
//
// Existing rows are left untouched, so the command can be rerun.
package main

import (
	"context"
	"encoding/json"
	"flag"
	stdlog "log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/achrefelouafi/evently-booking/internal/config"
	"github.com/achrefelouafi/evently-booking/internal/database"
	"github.com/achrefelouafi/evently-booking/internal/logger"
	"github.com/achrefelouafi/evently-booking/internal/repository"
)

func main() {
	file := flag.String("file", "seed.example.json", "path to the seed file")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()
	log, err := logger.New(cfg.Env)
	if err != nil {
		stdlog.Fatalf("logger: %v", err)
	}
	defer func() { _ = log.Sync() }()

	raw, err := os.ReadFile(*file)
	if err != nil {
		log.Fatal("read seed file", zap.String("file", *file), zap.Error(err))
	}
	var data repository.SeedData
	if err := json.Unmarshal(raw, &data); err != nil {
		log.Fatal("parse seed file", zap.String("file", *file), zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	db, err := database.Open(ctx, cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatal("connect", zap.Error(err))
	}
	defer db.Close()

	res, err := repository.Seed(ctx, db, data)
	if err != nil {
		log.Fatal("seed", zap.Error(err))
	}
	log.Info("seeded", zap.Int64("users", res.Users), zap.Int64("stands", res.Stands))
}
