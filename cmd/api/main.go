package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/picstash/picstash-api/internal/config"
	"github.com/picstash/picstash-api/internal/domain/image"
	"github.com/picstash/picstash-api/internal/middleware"
	"github.com/picstash/picstash-api/internal/pkg/database"
	"github.com/picstash/picstash-api/internal/pkg/imaging"
	"github.com/picstash/picstash-api/internal/pkg/logger"
	"github.com/picstash/picstash-api/internal/pkg/response"
	"github.com/picstash/picstash-api/internal/pkg/storage"
	"github.com/picstash/picstash-api/internal/pkg/urlcache"
)

func main() {
	cfg := config.Load()
	logger.Init(logger.Config{
		Level:       cfg.LogLevel,
		Environment: cfg.Env,
	})

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Str("storage", cfg.StorageDriver).
		Str("metadata", cfg.MetadataDriver).
		Msg("Starting PicStash API")

	store, closeStore := newStore(cfg)
	defer closeStore()
	backend := newStorage(cfg)
	urls, closeURLs := newURLCache(cfg)
	defer closeURLs()

	service := image.NewService(store, backend, imaging.NewOptimizer(imaging.DefaultConfig()), urls, image.Config{
		MaxFileSize:  cfg.MaxFileSize,
		AllowedTypes: cfg.AllowedTypes,
		SignedURLTTL: cfg.SignedURLTTL,
	})
	handler := image.NewHandler(service, cfg.MaxFileSize, cfg.MaxFilesPerBatch)

	// ---------- Router ----------
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))
	r.Use(chimw.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		response.OK(w, "OK", map[string]string{
			"status":  "ok",
			"version": "1.0.0",
		})
	})

	r.Mount("/api", image.Routes(handler))

	// Local driver serves uploaded files directly
	if local, ok := backend.(*storage.LocalStorage); ok {
		fileServer := http.StripPrefix("/uploads/", http.FileServer(http.Dir(local.BasePath())))
		r.Get("/uploads/*", fileServer.ServeHTTP)
	}

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}

func newStore(cfg *config.Config) (image.Store, func()) {
	switch cfg.MetadataDriver {
	case "postgres":
		db, err := database.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
		}
		store := image.NewSQLStore(db)
		if err := store.EnsureSchema(context.Background()); err != nil {
			log.Fatal().Err(err).Msg("Failed to ensure images schema")
		}
		return store, func() { database.ClosePostgres(db) }
	case "memory":
		return image.NewMemStore(), func() {}
	default:
		store, err := image.NewFileStore(cfg.MetadataFile)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open metadata file")
		}
		return store, func() {}
	}
}

func newStorage(cfg *config.Config) storage.Storage {
	if cfg.StorageDriver == "s3" {
		s3Storage, err := storage.NewS3Storage(storage.S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			PublicURL: cfg.S3PublicURL,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create S3 storage")
		}
		return s3Storage
	}

	local, err := storage.NewLocalStorage(cfg.UploadDir, cfg.BaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create local storage")
	}
	return local
}

func newURLCache(cfg *config.Config) (urlcache.Cache, func()) {
	if cfg.RedisURL == "" {
		return urlcache.NewMemoryCache(), func() {}
	}
	redis, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	return urlcache.NewRedisCache(redis), func() { database.CloseRedis(redis) }
}
