package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/delordemm1/refshare-api/internal/config"
	"github.com/delordemm1/refshare-api/internal/httpx"
	authmw "github.com/delordemm1/refshare-api/internal/middleware"
)

// Module is a feature module exposing HTTP operations.
type Module interface {
	RegisterRoutes(api huma.API)
}

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthResponse struct {
	Body struct {
		Status string `json:"status"`
	}
}

// New creates the router with the shared middleware stack and every module's routes.
func New(cfg *config.Config, log *slog.Logger, tokens authmw.AccessParser, db Pinger, modules ...Module) chi.Router {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.App.FrontendURL},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	httpx.UseProblems()
	apiConfig := huma.DefaultConfig(cfg.App.Name+" API", "1.0.0")
	apiConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "JWT",
		},
	}
	api := humachi.New(router, apiConfig)
	api.UseMiddleware(authmw.Authenticate(api, tokens, log))

	for _, m := range modules {
		m.RegisterRoutes(api)
	}

	huma.Register(api, huma.Operation{
		OperationID: "get-health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health Check",
		Description: "Responds with the server's health status.",
	}, func(ctx context.Context, _ *struct{}) (*HealthResponse, error) {
		if db != nil {
			if err := db.Ping(ctx); err != nil {
				log.ErrorContext(ctx, "health check failed", "error", err)
				return nil, huma.Error503ServiceUnavailable("database unavailable")
			}
		}
		resp := &HealthResponse{}
		resp.Body.Status = "ok"
		return resp, nil
	})

	return router
}
