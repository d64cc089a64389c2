package handler

import (
	"net/http"

	"github.com/hitoshi/newsdeck/internal/repository"
)

// HealthHandler はヘルスチェックのHTTPハンドラー。
type HealthHandler struct {
	store            repository.Storage
	apiKeyConfigured bool
}

// NewHealthHandler はHealthHandlerを生成する。
func NewHealthHandler(store repository.Storage, apiKeyConfigured bool) *HealthHandler {
	return &HealthHandler{
		store:            store,
		apiKeyConfigured: apiKeyConfigured,
	}
}

// healthResponse はヘルスチェックのレスポンス。
type healthResponse struct {
	Status           string `json:"status"`
	APIKeyConfigured bool   `json:"api_key_configured"`
	Storage          string `json:"storage"`
}

// Health はサービスの稼働状態を返す。
// GET /health
// ストレージの読み取りプローブに失敗した場合もサービス自体は稼働中として
// 200を返し、storageフィールドで劣化を示す。
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	storage := "ok"
	if _, err := h.store.Get(r.Context(), "health:probe"); err != nil {
		storage = "unavailable"
	}

	writeJSON(w, http.StatusOK, healthResponse{
		Status:           "ok",
		APIKeyConfigured: h.apiKeyConfigured,
		Storage:          storage,
	})
}
