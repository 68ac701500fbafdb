package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/isdelr/taskboard-be/internal/api"
	"github.com/isdelr/taskboard-be/internal/auth"
	"github.com/isdelr/taskboard-be/internal/config"
	"github.com/isdelr/taskboard-be/internal/database"
	"github.com/isdelr/taskboard-be/internal/logger"
	"github.com/isdelr/taskboard-be/internal/monitoring"
	"github.com/isdelr/taskboard-be/internal/services"
	"github.com/isdelr/taskboard-be/internal/websocket"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if err := logger.Init(cfg.LogLevel, cfg.LogPretty); err != nil {
		log.Fatal().Err(err).Msg("Failed to configure logger")
	}

	// Set up database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DatabasePath).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := database.Migrate(context.Background(), db); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database migrations")
	}

	hasher, err := auth.NewPasswordHasher(cfg.BcryptCost)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to configure password hasher")
	}
	tokens, err := auth.NewTokenManager([]byte(cfg.JWTSecret), cfg.JWTExpiresIn, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to configure token manager")
	}

	// Set up WebSocket Hub
	hub := websocket.NewHub()
	go hub.Run()

	// Set up services
	eventService := services.NewEventService(db)
	userService := services.NewUserService(db, hasher, tokens)
	projectService := services.NewProjectService(db, eventService)
	taskService := services.NewTaskService(db, eventService, hub)

	// Set up and run the background scheduler
	scheduler, err := monitoring.NewScheduler(eventService, cfg.EventRetention, cfg.EventRetentionSchedule)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to configure scheduler")
	}
	scheduler.Run()

	// Set up router
	router := api.NewRouter(db, hub, tokens, api.Services{
		Users:    userService,
		Projects: projectService,
		Tasks:    taskService,
		Events:   eventService,
	}, cfg.AllowedOrigins)

	// Set up server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ServerPort).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("ListenAndServe failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	hub.Stop()

	log.Info().Msg("Server exiting")
}
