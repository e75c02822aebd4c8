package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/tendant/media-content/pkg/mediacontent"
)

const maxRequestBodyBytes = 8 << 20

// RouterConfig holds the dependencies of the HTTP API
type RouterConfig struct {
	Service mediacontent.Service
	// Sync is optional; without it POST /admin/sync is not registered.
	Sync SyncRunner
	// JWTSecret guards the admin routes when set.
	JWTSecret string
	Logger    *slog.Logger
}

// NewRouter mounts /contents, /assets and /admin
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(RequestSizeLimitMiddleware(maxRequestBodyBytes))

	r.Mount("/contents", NewContentHandler(cfg.Service).Routes())
	r.Mount("/assets", NewAssetHandler(cfg.Service).Routes())

	r.Group(func(r chi.Router) {
		if cfg.JWTSecret != "" {
			for _, m := range AdminAuth(cfg.JWTSecret) {
				r.Use(m)
			}
		}
		r.Mount("/admin", NewAdminHandler(cfg.Service, cfg.Sync).Routes())
	})
	return r
}
