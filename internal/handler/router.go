package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/newsdeck/internal/metrics"
	"github.com/hitoshi/newsdeck/internal/middleware"
	"github.com/hitoshi/newsdeck/internal/repository"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger

	// サービス
	NewsService      NewsServiceInterface
	RSSService       RSSServiceInterface
	TrackingService  TrackingServiceInterface
	RecommendService RecommendServiceInterface

	// ヘルスチェック
	Store            repository.Storage
	APIKeyConfigured bool

	// メトリクス（nil可）
	Metrics  *metrics.Collector
	Gatherer prometheus.Gatherer
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → UserID → Logging → RateLimit(General)
//
// トラッキング書き込みルート（/api/interactions*）には専用のレート制限を追加する。
// /health と /metrics はレート制限の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewUserIDMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger, statusObserver(deps.Metrics)))

	var interactionObserver InteractionObserver
	var recommendationObserver RecommendationObserver
	if deps.Metrics != nil {
		interactionObserver = deps.Metrics
		recommendationObserver = deps.Metrics
	}

	newsHandler := NewNewsHandler(deps.NewsService, deps.RSSService, deps.TrackingService)
	trackingHandler := NewTrackingHandler(deps.TrackingService, interactionObserver)
	recommendHandler := NewRecommendHandler(deps.RecommendService, recommendationObserver)
	healthHandler := NewHealthHandler(deps.Store, deps.APIKeyConfigured)

	// --- レート制限の外のルート ---

	r.Get("/health", healthHandler.Health)
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))
	}

	// --- API全般レート制限のルート ---

	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// ニュースプロキシ
		r.Get("/all-news", newsHandler.AllNews)
		r.Get("/top-headlines", newsHandler.TopHeadlines)
		r.Get("/country/{iso}", newsHandler.CountryNews)
		r.Get("/rss-news", newsHandler.RSSNews)

		// 推薦・嗜好
		r.Get("/api/recommendations", recommendHandler.GetRecommendations)
		r.Get("/api/profile", trackingHandler.GetProfile)
		r.Route("/api/preferences/categories", func(r chi.Router) {
			r.Get("/", trackingHandler.GetPreferredCategories)
			r.Put("/", trackingHandler.SetPreferredCategories)
		})
		r.Delete("/api/tracking", trackingHandler.ClearTracking)
	})

	// --- トラッキング書き込み: 専用レート制限 ---

	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.TrackingMiddleware())

		r.Post("/api/interactions", trackingHandler.RecordInteraction)
		r.Post("/api/interactions/batch", trackingHandler.RecordBatch)
	})

	return r
}

// statusObserver はメトリクスコレクターをStatusObserverとして返す。nil安全。
func statusObserver(m *metrics.Collector) middleware.StatusObserver {
	if m == nil {
		return nil
	}
	return m
}
