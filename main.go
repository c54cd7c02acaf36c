package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"portrait-studio-server/modules/common/config"
	"portrait-studio-server/modules/common/logger"
	"portrait-studio-server/modules/portrait"
	"portrait-studio-server/modules/session"
)

const cleanupInterval = 5 * time.Minute

// enableCORS - CORS headers for the JSON API
func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":        "healthy",
		"service":       "portrait-studio",
		"apiConfigured": config.APIKey() != "",
	})
}

// newRouter - every route of the server
func newRouter(cfg *config.Config, manager *session.Manager) *mux.Router {
	r := mux.NewRouter()
	r.Use(logger.Middleware)
	r.Use(enableCORS)

	r.HandleFunc("/health", healthCheck).Methods("GET")
	portrait.NewHandler(manager, cfg.MaxUploadBytes).RegisterRoutes(r)
	session.NewHandler(manager).RegisterRoutes(r)
	return r
}

func main() {
	logger.Setup(os.Getenv("APP_ENV"))

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("❌ Failed to load config")
	}
	if cfg.AppEnv != os.Getenv("APP_ENV") {
		// APP_ENV came from .env
		logger.Setup(cfg.AppEnv)
	}

	service := portrait.NewService(cfg.GeminiModel, cfg.GeminiBaseURL)
	manager := session.NewManager(func() *portrait.Controller {
		return portrait.NewController(service, cfg.MaxUploadBytes, cfg.DefaultClothingStyle, cfg.DefaultScenery)
	}, cfg.SessionIdleTimeout)
	manager.StartCleanupRoutine(context.Background(), cleanupInterval)

	r := newRouter(cfg, manager)

	log.Info().Msgf("🚀 Portrait Studio server starting on port %s", cfg.Port)
	log.Info().Msgf("🖼️  Page: http://localhost:%s/", cfg.Port)
	log.Info().Msgf("📡 WebSocket endpoint: ws://localhost:%s/ws", cfg.Port)
	log.Info().Msgf("❤️  Health check: http://localhost:%s/health", cfg.Port)

	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatal().Err(err).Msg("Server failed to start")
	}
}
