package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/newsdeck/internal/middleware"
	"github.com/hitoshi/newsdeck/internal/model"
	"github.com/hitoshi/newsdeck/internal/tracking"
)

// TrackingServiceInterface はトラッキングハンドラーが必要とするサービスインターフェース。
type TrackingServiceInterface interface {
	RecordInteraction(ctx context.Context, userID string, article *model.Article, interactionType model.InteractionType) bool
	RecordBatch(ctx context.Context, userID string, articles []model.Article) int
	CachedProfile(ctx context.Context, userID string) model.PreferenceProfile
	SetPreferredCategories(ctx context.Context, userID string, categories []string) bool
	PreferredCategories(ctx context.Context, userID string) []string
	ClearAll(ctx context.Context, userID string) bool
}

// InteractionObserver はインタラクション記録をメトリクスに計上するインターフェース。
type InteractionObserver interface {
	RecordInteraction(interactionType string)
}

// TrackingHandler はインタラクション記録・嗜好管理のHTTPハンドラー。
type TrackingHandler struct {
	service  TrackingServiceInterface
	observer InteractionObserver // nil可
}

// NewTrackingHandler はTrackingHandlerを生成する。
func NewTrackingHandler(service TrackingServiceInterface, observer InteractionObserver) *TrackingHandler {
	return &TrackingHandler{
		service:  service,
		observer: observer,
	}
}

// recordInteractionRequest はインタラクション記録リクエストのボディ。
type recordInteractionRequest struct {
	Article         *model.Article `json:"article"`
	InteractionType string         `json:"interaction_type"`
}

// recordBatchRequest は一括impression記録リクエストのボディ。
type recordBatchRequest struct {
	Articles []model.Article `json:"articles"`
}

// categoriesRequest はカテゴリ設定リクエストのボディ。
type categoriesRequest struct {
	Categories []string `json:"categories"`
}

// RecordInteraction はインタラクションを1件記録する。
// POST /api/interactions
// レコーダーのnever-throw契約に合わせ、拒否された場合も200で
// success=falseを返す（リクエスト自体が不正な場合のみ400）。
func (h *TrackingHandler) RecordInteraction(w http.ResponseWriter, r *http.Request) {
	var req recordInteractionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return
	}

	userID := middleware.UserIDFromContext(r.Context())
	interactionType := model.InteractionType(req.InteractionType)
	ok := h.service.RecordInteraction(r.Context(), userID, req.Article, interactionType)

	if ok && h.observer != nil {
		h.observer.RecordInteraction(string(interactionType))
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": ok})
}

// RecordBatch は複数記事をimpressionとして一括記録する。
// POST /api/interactions/batch
func (h *TrackingHandler) RecordBatch(w http.ResponseWriter, r *http.Request) {
	var req recordBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return
	}

	userID := middleware.UserIDFromContext(r.Context())
	recorded := h.service.RecordBatch(r.Context(), userID, req.Articles)

	if h.observer != nil {
		for i := 0; i < recorded; i++ {
			h.observer.RecordInteraction(string(model.InteractionImpression))
		}
	}

	writeJSON(w, http.StatusOK, map[string]int{"recorded": recorded})
}

// GetProfile は現在の嗜好プロファイルを返す。
// GET /api/profile
func (h *TrackingHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	profile := h.service.CachedProfile(r.Context(), userID)
	writeJSON(w, http.StatusOK, profile)
}

// GetPreferredCategories は明示的なカテゴリ設定を返す。
// GET /api/preferences/categories
func (h *TrackingHandler) GetPreferredCategories(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	categories := h.service.PreferredCategories(r.Context(), userID)
	if categories == nil {
		categories = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"categories": categories})
}

// SetPreferredCategories は明示的なカテゴリ設定を保存する。
// PUT /api/preferences/categories
func (h *TrackingHandler) SetPreferredCategories(w http.ResponseWriter, r *http.Request) {
	var req categoriesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return
	}

	for _, c := range req.Categories {
		if !tracking.IsSelectableCategory(c) {
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidCategoryError(c))
			return
		}
	}

	userID := middleware.UserIDFromContext(r.Context())
	ok := h.service.SetPreferredCategories(r.Context(), userID, req.Categories)
	writeJSON(w, http.StatusOK, map[string]bool{"success": ok})
}

// ClearTracking はトラッキングデータを全て削除する。
// DELETE /api/tracking
func (h *TrackingHandler) ClearTracking(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	ok := h.service.ClearAll(r.Context(), userID)
	writeJSON(w, http.StatusOK, map[string]bool{"success": ok})
}
