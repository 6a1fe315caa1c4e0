package main

import (
	"context"
	"fmt"
	"os"

	redisclient "github.com/vellumcms/vellum-backend/internal/clients/redis"
	"github.com/vellumcms/vellum-backend/internal/db"
	"github.com/vellumcms/vellum-backend/internal/platform/envutil"
	"github.com/vellumcms/vellum-backend/internal/platform/logger"
	"github.com/vellumcms/vellum-backend/internal/repos"
	"github.com/vellumcms/vellum-backend/internal/schema"
	"github.com/vellumcms/vellum-backend/internal/services"
)

func main() {
	// Logger
	logMode := envutil.String("LOG_MODE", "development")
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	jwtSecretKey := envutil.String("JWT_SECRET_KEY", "defaultsecret")
	schemaPath := envutil.String("VELLUM_SCHEMA", "vellum.yaml")

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Error("Postgres auto migration failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	// Record type schema
	log.Info("Loading record type schema...", "path", schemaPath)
	schemaRegistry, err := schema.Load(schemaPath)
	if err != nil {
		log.Error("Could not load record type schema", "error", err)
		os.Exit(1)
	}

	// Live cache (optional)
	var liveCache *redisclient.LiveCache
	if envutil.String("REDIS_ADDR", "") != "" {
		liveCache, err = redisclient.NewLiveCache(log)
		if err != nil {
			log.Warn("Could not init live cache, continuing without it", "error", err)
			liveCache = nil
		}
	}

	// Services
	userRepo := repos.NewUserRepo(thePG, log)
	tokenValidator := services.NewTokenValidator(log, userRepo, jwtSecretKey)

	registry, err := services.NewRegistry(context.Background(), thePG, log, schemaRegistry, tokenValidator, liveCache)
	if err != nil {
		log.Error("Could not build record service registry", "error", err)
		os.Exit(1)
	}

	for name := range registry.Lists {
		log.Info("list type ready", "record_type", name)
	}
	for name := range registry.Items {
		log.Info("item type ready", "record_type", name)
	}
	log.Info("storage prepared",
		"lists", len(registry.Lists),
		"items", len(registry.Items),
		"live_cache", liveCache != nil,
	)
}
