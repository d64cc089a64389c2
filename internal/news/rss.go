package news

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/hitoshi/newsdeck/internal/model"
	"github.com/hitoshi/newsdeck/internal/security"
)

// RSSSource はRSS/Atomフィードからのセカンダリ記事ソース。
//
// ユーザー指定URLを受け取るため、取得は必ずSSRFガード付きクライアントで行う。
// 指定URLがHTMLページの場合はheadタグのrel="alternate"リンクから
// フィードURLを自動検出する。パース後のテキストはサニタイズされる。
type RSSSource struct {
	ssrfGuard   security.SSRFGuardService
	sanitizer   security.ArticleSanitizerService
	logger      *slog.Logger
	observer    FetchObserver
	timeout     time.Duration
	maxBodySize int64
}

// NewRSSSource はRSSSourceの新しいインスタンスを生成する。observerはnil可。
func NewRSSSource(
	ssrfGuard security.SSRFGuardService,
	sanitizer security.ArticleSanitizerService,
	logger *slog.Logger,
	observer FetchObserver,
	timeout time.Duration,
	maxBodySize int64,
) *RSSSource {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if maxBodySize <= 0 {
		maxBodySize = defaultMaxBodySize
	}
	return &RSSSource{
		ssrfGuard:   ssrfGuard,
		sanitizer:   sanitizer,
		logger:      logger,
		observer:    observer,
		timeout:     timeout,
		maxBodySize: maxBodySize,
	}
}

// Fetch は指定URLから記事リストを取得する。
// 1. SSRF検証
// 2. HTTP GET（SSRFガード付きクライアント）
// 3. フィード直接判定。HTMLの場合はフィードリンクの自動検出 → 再取得
// 4. gofeedパース → model.Articleへ変換
func (s *RSSSource) Fetch(ctx context.Context, rawURL string) (*model.NewsResult, error) {
	if rawURL == "" {
		return nil, model.NewInvalidURLError("URLが入力されていません")
	}
	if err := s.ssrfGuard.ValidateURL(rawURL); err != nil {
		return nil, model.NewSSRFBlockedError()
	}

	started := time.Now()
	contentType, body, err := s.get(ctx, rawURL)
	if err != nil {
		s.observe(false, started)
		return nil, err
	}

	// HTMLページの場合はフィードURLを自動検出して再取得する
	if !isDirectFeed(contentType, body) {
		mediaType, _, _ := mime.ParseMediaType(contentType)
		if !strings.Contains(strings.ToLower(mediaType), "html") {
			s.observe(false, started)
			return nil, model.NewFeedNotDetectedError(rawURL)
		}

		best := selectBestFeed(discoverFeedLinks(body, rawURL), rawURL)
		if best == nil {
			s.observe(false, started)
			return nil, model.NewFeedNotDetectedError(rawURL)
		}

		s.logger.Info("HTMLページからフィードURLを検出しました",
			slog.String("page_url", rawURL),
			slog.String("feed_url", best.url),
			slog.String("feed_type", best.feedType),
		)

		if err := s.ssrfGuard.ValidateURL(best.url); err != nil {
			s.observe(false, started)
			return nil, model.NewSSRFBlockedError()
		}
		if _, body, err = s.get(ctx, best.url); err != nil {
			s.observe(false, started)
			return nil, err
		}
	}

	parsed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		s.observe(false, started)
		s.logger.Error("フィードのパースに失敗しました",
			slog.String("url", rawURL),
			slog.String("error", err.Error()),
		)
		return nil, model.NewParseFailedError()
	}

	s.observe(true, started)

	sourceName := s.sanitizer.SanitizeText(parsed.Title)
	result := &model.NewsResult{
		Articles: make([]model.Article, 0, len(parsed.Items)),
	}
	for _, item := range parsed.Items {
		if item == nil || item.Title == "" {
			continue
		}
		result.Articles = append(result.Articles, s.convertItem(item, sourceName))
	}
	result.TotalResults = len(result.Articles)

	return result, nil
}

// get はSSRFガード付きクライアントでURLを取得し、Content-Typeとボディを返す。
func (s *RSSSource) get(ctx context.Context, rawURL string) (string, []byte, error) {
	client := s.ssrfGuard.NewSafeClient(s.timeout)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", nil, model.NewInvalidURLError(err.Error())
	}
	req.Header.Set("User-Agent", "Newsdeck/1.0 News Aggregator")
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml, text/html, */*")

	resp, err := client.Do(req)
	if err != nil {
		s.logger.Error("フィードの取得に失敗しました",
			slog.String("url", rawURL),
			slog.String("error", err.Error()),
		)
		return "", nil, model.NewNewsFetchFailedError(err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", nil, model.NewNewsFetchFailedError(
			fmt.Sprintf("フィードの取得でステータス %d が返されました", resp.StatusCode),
		)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBodySize))
	if err != nil {
		return "", nil, model.NewNewsFetchFailedError(err.Error())
	}

	return resp.Header.Get("Content-Type"), body, nil
}

// convertItem はgofeedの記事をmodel.Articleへ変換する。
func (s *RSSSource) convertItem(item *gofeed.Item, sourceName string) model.Article {
	article := model.Article{
		Title:       s.sanitizer.SanitizeText(item.Title),
		URL:         item.Link,
		SourceName:  sourceName,
		Description: s.sanitizer.SanitizeText(item.Description),
	}

	if item.Author != nil {
		article.Author = item.Author.Name
	}
	if article.Author == "" && len(item.Authors) > 0 && item.Authors[0] != nil {
		article.Author = item.Authors[0].Name
	}

	if item.PublishedParsed != nil {
		article.PublishedAt = item.PublishedParsed.UTC().Format(time.RFC3339)
	} else if item.UpdatedParsed != nil {
		article.PublishedAt = item.UpdatedParsed.UTC().Format(time.RFC3339)
	}

	if item.Image != nil {
		article.ImageURL = item.Image.URL
	}

	// LinkがなくGUIDがURL形式の場合はGUIDをリンクとして使用する
	if article.URL == "" && item.GUID != "" &&
		(strings.HasPrefix(item.GUID, "http://") || strings.HasPrefix(item.GUID, "https://")) {
		article.URL = item.GUID
	}

	return article
}

func (s *RSSSource) observe(success bool, started time.Time) {
	if s.observer != nil {
		s.observer.ObserveUpstreamFetch("rss", success, time.Since(started))
	}
}
