package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/tendant/chi-demo/app"
	"github.com/tendant/chi-demo/middleware"
	"github.com/tendant/media-content/pkg/mediacontent/api"
	"github.com/tendant/media-content/pkg/mediacontent/config"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	serverConfig, err := config.LoadServerConfig()
	if err != nil {
		slog.Error("Failed to read configuration", "err", err)
		os.Exit(1)
	}

	components, err := serverConfig.Build(context.Background(), logger)
	if err != nil {
		slog.Error("Failed to build media content service", "err", err)
		os.Exit(1)
	}
	defer components.Close()

	server := app.DefaultApp()

	app.RoutesHealthz(server.R)
	app.RoutesHealthzReady(server.R)

	router := api.NewRouter(api.RouterConfig{
		Service:   components.Service,
		Sync:      components.Synchronizer,
		JWTSecret: serverConfig.JWTSecret,
		Logger:    logger,
	})

	server.R.Route("/api/v1", func(r chi.Router) {
		if serverConfig.APIKeySHA256 != "" {
			apiKeyMiddleware, err := middleware.ApiKeyMiddleware(middleware.ApiKeyConfig{
				APIKeys: map[string]string{
					"key1": serverConfig.APIKeySHA256,
				},
			})
			if err != nil {
				slog.Error("Failed initialize API Key middleware", "err", err)
				os.Exit(1)
			}
			r.Use(apiKeyMiddleware)
		}
		r.Mount("/", router)
	})

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%s", serverConfig.Port),
		Handler:      server.R,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Media content server starting on port %s (env: %s)", serverConfig.Port, serverConfig.Environment)
		log.Printf("Database: %s, media: %s", serverConfig.DatabaseType, serverConfig.MediaType)

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting")
}
