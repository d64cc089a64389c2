// Package prefetch はカテゴリ別トップヘッドラインの定期プリフェッチ処理を提供する。
// 取得した記事はimpressionとして記録され、推薦候補プールを温める。
package prefetch

import (
	"context"
	"log/slog"
	"time"

	"github.com/hitoshi/newsdeck/internal/model"
)

// HeadlineFetcher はカテゴリ別トップヘッドラインの取得インターフェース。
type HeadlineFetcher interface {
	TopHeadlines(ctx context.Context, category, language string, page, pageSize int) (*model.NewsResult, error)
}

// ImpressionRecorder は取得済み記事のimpression一括記録インターフェース。
type ImpressionRecorder interface {
	RecordBatch(ctx context.Context, userID string, articles []model.Article) int
}

// Worker はカテゴリ別のトップヘッドラインを定期的にプリフェッチするワーカー。
// 取得した記事は匿名ユーザーのimpressionとして記録し、
// コールドスタート時でも推薦候補プールが空にならないようにする。
type Worker struct {
	fetcher    HeadlineFetcher
	recorder   ImpressionRecorder
	logger     *slog.Logger
	categories []string
	language   string
	pageSize   int
}

// NewWorker はWorkerの新しいインスタンスを生成する。
// categoriesが空の場合はgeneralのみをプリフェッチする。
func NewWorker(
	fetcher HeadlineFetcher,
	recorder ImpressionRecorder,
	logger *slog.Logger,
	categories []string,
) *Worker {
	if len(categories) == 0 {
		categories = []string{"general"}
	}
	return &Worker{
		fetcher:    fetcher,
		recorder:   recorder,
		logger:     logger,
		categories: categories,
		language:   "en",
		pageSize:   80,
	}
}

// Start は指定間隔のティッカーでワーカーを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (w *Worker) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.logger.Info("プリフェッチワーカーを開始しました",
		slog.Duration("interval", interval),
		slog.Int("category_count", len(w.categories)),
	)

	// 起動直後に1回実行
	w.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("プリフェッチワーカーを停止しました")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce は設定された全カテゴリを1巡プリフェッチする。
// カテゴリ単位の失敗はログに記録して次のカテゴリへ進む。
// 記録できた記事の総数を返す。
func (w *Worker) RunOnce(ctx context.Context) int {
	start := time.Now()
	total := 0

	for _, category := range w.categories {
		if ctx.Err() != nil {
			return total
		}

		result, err := w.fetcher.TopHeadlines(ctx, category, w.language, 1, w.pageSize)
		if err != nil {
			w.logger.Error("ヘッドラインのプリフェッチに失敗しました",
				slog.String("category", category),
				slog.String("error", err.Error()),
			)
			continue
		}

		recorded := w.recorder.RecordBatch(ctx, model.AnonymousUserID, result.Articles)
		total += recorded

		w.logger.Info("カテゴリのプリフェッチが完了しました",
			slog.String("category", category),
			slog.Int("fetched", len(result.Articles)),
			slog.Int("recorded", recorded),
		)
	}

	w.logger.Info("プリフェッチサイクルが完了しました",
		slog.Int("recorded_total", total),
		slog.Duration("elapsed", time.Since(start)),
	)
	return total
}
