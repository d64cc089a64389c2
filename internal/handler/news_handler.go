// Package handler はHTTP APIのハンドラーを提供する。
package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/newsdeck/internal/middleware"
	"github.com/hitoshi/newsdeck/internal/model"
)

// NewsServiceInterface はニュースハンドラーが必要とするNewsAPIクライアントのインターフェース。
type NewsServiceInterface interface {
	Everything(ctx context.Context, q string, page, pageSize int) (*model.NewsResult, error)
	TopHeadlines(ctx context.Context, category, language string, page, pageSize int) (*model.NewsResult, error)
	Country(ctx context.Context, iso string, page, pageSize int) (*model.NewsResult, error)
}

// RSSServiceInterface はRSSセカンダリソースのインターフェース。
type RSSServiceInterface interface {
	Fetch(ctx context.Context, rawURL string) (*model.NewsResult, error)
}

// ImpressionRecorder は取得済み記事をimpressionとして記録するインターフェース。
// tracking.Serviceが実装する。
type ImpressionRecorder interface {
	RecordBatch(ctx context.Context, userID string, articles []model.Article) int
}

// NewsHandler はニュースプロキシのHTTPハンドラー。
// 取得に成功した記事は、リクエストユーザーの候補プールへ
// impressionとして自動記録される。
type NewsHandler struct {
	news     NewsServiceInterface
	rss      RSSServiceInterface
	recorder ImpressionRecorder
}

// NewNewsHandler はNewsHandlerを生成する。
func NewNewsHandler(news NewsServiceInterface, rss RSSServiceInterface, recorder ImpressionRecorder) *NewsHandler {
	return &NewsHandler{
		news:     news,
		rss:      rss,
		recorder: recorder,
	}
}

// newsEnvelope はニュースプロキシの成功レスポンス形式。
type newsEnvelope struct {
	Status  int               `json:"status"`
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    *model.NewsResult `json:"data,omitempty"`
}

// newsErrorEnvelope はニュースプロキシの失敗レスポンス形式。
type newsErrorEnvelope struct {
	Status  int    `json:"status"`
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// AllNews はキーワード検索のニュース一覧を返す。
// GET /all-news?q=&page=&pageSize=
func (h *NewsHandler) AllNews(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		q = "news"
	}
	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "pageSize", 40)

	result, err := h.news.Everything(r.Context(), q, page, pageSize)
	h.respond(w, r, result, err)
}

// TopHeadlines はカテゴリ別トップヘッドラインを返す。
// GET /top-headlines?category=&language=&page=&pageSize=
func (h *NewsHandler) TopHeadlines(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	if category == "" {
		category = "general"
	}
	language := r.URL.Query().Get("language")
	if language == "" {
		language = "en"
	}
	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "pageSize", 80)

	result, err := h.news.TopHeadlines(r.Context(), category, language, page, pageSize)
	h.respond(w, r, result, err)
}

// CountryNews は国別トップヘッドラインを返す。
// GET /country/{iso}?page=&pageSize=
func (h *NewsHandler) CountryNews(w http.ResponseWriter, r *http.Request) {
	iso := chi.URLParam(r, "iso")
	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "pageSize", 80)

	result, err := h.news.Country(r.Context(), iso, page, pageSize)
	h.respond(w, r, result, err)
}

// RSSNews は指定されたRSS/AtomフィードのURLから記事一覧を返す。
// GET /rss-news?url=
func (h *NewsHandler) RSSNews(w http.ResponseWriter, r *http.Request) {
	rawURL := r.URL.Query().Get("url")

	result, err := h.rss.Fetch(r.Context(), rawURL)
	if err != nil {
		// SSRFブロックと不正URLは統一エラーフォーマットで返す
		var apiErr *model.APIError
		if errors.As(err, &apiErr) &&
			(apiErr.Code == model.ErrCodeSSRFBlocked || apiErr.Code == model.ErrCodeInvalidURL) {
			writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
			return
		}
	}
	h.respond(w, r, result, err)
}

// respond はプロキシ形式のエンベロープでレスポンスを書き込む。
// 取得に成功した記事はリクエストユーザーのimpressionとして記録する。
func (h *NewsHandler) respond(w http.ResponseWriter, r *http.Request, result *model.NewsResult, err error) {
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, newsErrorEnvelope{
			Status:  http.StatusInternalServerError,
			Success: false,
			Message: "Failed to fetch data from API",
			Error:   err.Error(),
		})
		return
	}

	if result.TotalResults == 0 {
		writeJSON(w, http.StatusOK, newsEnvelope{
			Status:  http.StatusOK,
			Success: true,
			Message: "No more results to show",
		})
		return
	}

	// 観測された記事を候補プールへ投入する
	userID := middleware.UserIDFromContext(r.Context())
	h.recorder.RecordBatch(r.Context(), userID, result.Articles)

	writeJSON(w, http.StatusOK, newsEnvelope{
		Status:  http.StatusOK,
		Success: true,
		Message: "Successfully fetched the data.",
		Data:    result,
	})
}

// queryInt はクエリパラメータを整数として取得する。不正値はデフォルトを返す。
func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return def
	}
	return v
}
