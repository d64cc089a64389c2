package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/hitoshi/newsdeck/internal/middleware"
	"github.com/hitoshi/newsdeck/internal/model"
)

// defaultRecommendationLimit は推薦件数のデフォルト。
const defaultRecommendationLimit = 10

// RecommendServiceInterface は推薦ハンドラーが必要とするスコアラーのインターフェース。
type RecommendServiceInterface interface {
	Recommendations(ctx context.Context, userID string, limit int) []model.Recommendation
}

// RecommendationObserver は推薦リクエストをメトリクスに計上するインターフェース。
type RecommendationObserver interface {
	RecordRecommendationRequest(duration time.Duration)
}

// RecommendHandler は推薦リストのHTTPハンドラー。
type RecommendHandler struct {
	service  RecommendServiceInterface
	observer RecommendationObserver // nil可
}

// NewRecommendHandler はRecommendHandlerを生成する。
func NewRecommendHandler(service RecommendServiceInterface, observer RecommendationObserver) *RecommendHandler {
	return &RecommendHandler{
		service:  service,
		observer: observer,
	}
}

// recommendationsResponse は推薦リストのAPIレスポンス。
type recommendationsResponse struct {
	Recommendations []model.Recommendation `json:"recommendations"`
}

// GetRecommendations は推薦記事のリストを返す。
// GET /api/recommendations?limit=
// 履歴がない場合は空のリストを返す（エラーにしない）。
func (h *RecommendHandler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", defaultRecommendationLimit)
	userID := middleware.UserIDFromContext(r.Context())

	started := time.Now()
	recommendations := h.service.Recommendations(r.Context(), userID, limit)
	if h.observer != nil {
		h.observer.RecordRecommendationRequest(time.Since(started))
	}

	if recommendations == nil {
		recommendations = []model.Recommendation{}
	}
	writeJSON(w, http.StatusOK, recommendationsResponse{Recommendations: recommendations})
}
