package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/graphql-go/graphql"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/carlyzach/houserank/internal/auth"
	"github.com/carlyzach/houserank/internal/metrics"
	"github.com/carlyzach/houserank/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Schema        graphql.Schema
	HealthChecker HealthChecker

	// ミドルウェア依存
	Verifier             auth.TokenVerifier
	UserResolver         middleware.UserResolver
	AuthProvider         string
	CORSProductionOrigin string
	RateLimiter          *middleware.RateLimiter
	Logger               *slog.Logger

	// メトリクス
	Gatherer prometheus.Gatherer
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RealIP → SecurityHeaders → CORS → RequestID → Recovery → Logging
//
// /graphql はさらに Auth → RateLimit を通る。
// /health と /metrics は認証の外に置く。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSProductionOrigin))
	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))

	// --- 認証不要のルート ---

	healthHandler := NewHealthHandler(deps.HealthChecker)
	r.Get("/health", healthHandler.Handle)

	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))
	}

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Auth → RateLimit
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(deps.Verifier, deps.UserResolver, deps.AuthProvider, deps.Logger))
		r.Use(deps.RateLimiter.Middleware())

		gqlHandler := NewGraphQLHandler(deps.Schema, deps.Logger)
		r.Post("/graphql", gqlHandler.Handle)
		// プリフライトはCORSミドルウェアが204で応答する
		r.Options("/graphql", gqlHandler.Handle)
	})

	return r
}
