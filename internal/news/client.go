// Package news は外部ニュースソースからの記事取得を提供する。
// NewsAPIプロキシクライアントとRSS/Atomフィードのセカンダリソースを含む。
package news

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hitoshi/newsdeck/internal/model"
	"github.com/hitoshi/newsdeck/internal/security"
)

const (
	// defaultBaseURL はNewsAPIのベースURL。
	defaultBaseURL = "https://newsapi.org/v2"
	// defaultMaxBodySize はレスポンスボディの最大サイズ（5MiB）。
	defaultMaxBodySize = 5 * 1024 * 1024
)

// FetchObserver はアップストリーム取得の結果を計測するインターフェース。
// metricsパッケージが実装する。nilの場合は計測しない。
type FetchObserver interface {
	ObserveUpstreamFetch(source string, success bool, duration time.Duration)
}

// Client はNewsAPIのクライアント。
// SSRFガード付きHTTPクライアントを使用し、レスポンスの記事テキストを
// サニタイズしてから返す。
type Client struct {
	httpClient  *http.Client
	apiKey      string
	sanitizer   security.ArticleSanitizerService
	logger      *slog.Logger
	observer    FetchObserver
	baseURL     string // テスト用にエンドポイントを差し替え可能
	maxBodySize int64
}

// NewClient はClientの新しいインスタンスを生成する。observerはnil可。
func NewClient(
	httpClient *http.Client,
	apiKey string,
	sanitizer security.ArticleSanitizerService,
	logger *slog.Logger,
	observer FetchObserver,
) *Client {
	return &Client{
		httpClient:  httpClient,
		apiKey:      apiKey,
		sanitizer:   sanitizer,
		logger:      logger,
		observer:    observer,
		baseURL:     defaultBaseURL,
		maxBodySize: defaultMaxBodySize,
	}
}

// SetBaseURL はアップストリームのベースURLを差し替える。
func (c *Client) SetBaseURL(baseURL string) {
	c.baseURL = baseURL
}

// newsAPIResponse はNewsAPIのレスポンス形式。
type newsAPIResponse struct {
	Status       string           `json:"status"`
	Code         string           `json:"code"`
	Message      string           `json:"message"`
	TotalResults int              `json:"totalResults"`
	Articles     []newsAPIArticle `json:"articles"`
}

// newsAPIArticle はNewsAPIの記事形式。ソース名はネストされている。
type newsAPIArticle struct {
	Source struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"source"`
	Author      string `json:"author"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	URLToImage  string `json:"urlToImage"`
	PublishedAt string `json:"publishedAt"`
}

// Everything はキーワード検索で記事を取得する。
func (c *Client) Everything(ctx context.Context, q string, page, pageSize int) (*model.NewsResult, error) {
	params := url.Values{}
	params.Set("q", q)
	params.Set("page", strconv.Itoa(page))
	params.Set("pageSize", strconv.Itoa(pageSize))
	return c.fetch(ctx, "/everything", params, "")
}

// TopHeadlines はカテゴリと言語を指定してトップヘッドラインを取得する。
// 取得した記事には指定カテゴリを引き継がせる（アップストリームは
// カテゴリをレスポンスに含めないため）。
func (c *Client) TopHeadlines(ctx context.Context, category, language string, page, pageSize int) (*model.NewsResult, error) {
	params := url.Values{}
	params.Set("category", category)
	params.Set("language", language)
	params.Set("page", strconv.Itoa(page))
	params.Set("pageSize", strconv.Itoa(pageSize))
	return c.fetch(ctx, "/top-headlines", params, category)
}

// Country は国コードを指定してトップヘッドラインを取得する。
func (c *Client) Country(ctx context.Context, iso string, page, pageSize int) (*model.NewsResult, error) {
	params := url.Values{}
	params.Set("country", iso)
	params.Set("page", strconv.Itoa(page))
	params.Set("pageSize", strconv.Itoa(pageSize))
	return c.fetch(ctx, "/top-headlines", params, "")
}

// fetch はNewsAPIへのリクエストを実行し、レスポンスをモデルへ変換する。
// categoryが非空の場合、全記事にそのカテゴリを設定する。
// APIキーはログに出力しない。
func (c *Client) fetch(ctx context.Context, path string, params url.Values, category string) (*model.NewsResult, error) {
	params.Set("apiKey", c.apiKey)

	reqURL := c.baseURL + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("User-Agent", "Newsdeck/1.0 News Aggregator")

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe("newsapi", false, started)
		c.logger.Error("NewsAPIの呼び出しに失敗しました",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return nil, model.NewNewsFetchFailedError(err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize))
	if err != nil {
		c.observe("newsapi", false, started)
		return nil, fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	var parsed newsAPIResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		c.observe("newsapi", false, started)
		c.logger.Error("NewsAPIのレスポンスのパースに失敗しました",
			slog.Int("http_status", resp.StatusCode),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}

	if resp.StatusCode != http.StatusOK || parsed.Status == "error" {
		c.observe("newsapi", false, started)
		c.logger.Error("NewsAPIがエラーを返しました",
			slog.Int("http_status", resp.StatusCode),
			slog.String("code", parsed.Code),
			slog.String("message", parsed.Message),
		)
		return nil, model.NewNewsFetchFailedError(
			fmt.Sprintf("NewsAPIがステータス %d を返しました: %s", resp.StatusCode, parsed.Message),
		)
	}

	c.observe("newsapi", true, started)

	result := &model.NewsResult{
		TotalResults: parsed.TotalResults,
		Articles:     make([]model.Article, 0, len(parsed.Articles)),
	}
	for _, a := range parsed.Articles {
		result.Articles = append(result.Articles, model.Article{
			Title:       c.sanitizer.SanitizeText(a.Title),
			URL:         a.URL,
			SourceName:  a.Source.Name,
			Author:      a.Author,
			PublishedAt: a.PublishedAt,
			ImageURL:    a.URLToImage,
			Description: c.sanitizer.SanitizeText(a.Description),
			Category:    category,
		})
	}

	return result, nil
}

func (c *Client) observe(source string, success bool, started time.Time) {
	if c.observer != nil {
		c.observer.ObserveUpstreamFetch(source, success, time.Since(started))
	}
}
