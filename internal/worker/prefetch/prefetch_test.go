package prefetch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/hitoshi/newsdeck/internal/model"
)

// mockFetcher はHeadlineFetcherのモック実装。
type mockFetcher struct {
	topHeadlinesFunc func(ctx context.Context, category, language string, page, pageSize int) (*model.NewsResult, error)
}

func (m *mockFetcher) TopHeadlines(ctx context.Context, category, language string, page, pageSize int) (*model.NewsResult, error) {
	return m.topHeadlinesFunc(ctx, category, language, page, pageSize)
}

// mockRecorder はImpressionRecorderのモック実装。
type mockRecorder struct {
	userIDs []string
	batches [][]model.Article
}

func (m *mockRecorder) RecordBatch(ctx context.Context, userID string, articles []model.Article) int {
	m.userIDs = append(m.userIDs, userID)
	m.batches = append(m.batches, articles)
	return len(articles)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestRunOnce_FetchesAllCategories(t *testing.T) {
	var gotCategories []string
	fetcher := &mockFetcher{
		topHeadlinesFunc: func(ctx context.Context, category, language string, page, pageSize int) (*model.NewsResult, error) {
			gotCategories = append(gotCategories, category)
			if language != "en" || page != 1 || pageSize != 80 {
				t.Errorf("params = %s/%d/%d, want en/1/80", language, page, pageSize)
			}
			return &model.NewsResult{
				TotalResults: 1,
				Articles:     []model.Article{{Title: "t-" + category, URL: "https://" + category}},
			}, nil
		},
	}
	recorder := &mockRecorder{}
	w := NewWorker(fetcher, recorder, discardLogger(), []string{"technology", "business"})

	total := w.RunOnce(context.Background())

	if total != 2 {
		t.Errorf("total = %d, want 2", total)
	}
	if len(gotCategories) != 2 || gotCategories[0] != "technology" || gotCategories[1] != "business" {
		t.Errorf("categories = %v", gotCategories)
	}
}

func TestRunOnce_RecordsAsAnonymousUser(t *testing.T) {
	fetcher := &mockFetcher{
		topHeadlinesFunc: func(ctx context.Context, category, language string, page, pageSize int) (*model.NewsResult, error) {
			return &model.NewsResult{
				TotalResults: 1,
				Articles:     []model.Article{{Title: "t", URL: "https://a"}},
			}, nil
		},
	}
	recorder := &mockRecorder{}
	w := NewWorker(fetcher, recorder, discardLogger(), nil)

	w.RunOnce(context.Background())

	if len(recorder.userIDs) != 1 || recorder.userIDs[0] != model.AnonymousUserID {
		t.Errorf("userIDs = %v, want [%s]", recorder.userIDs, model.AnonymousUserID)
	}
}

func TestRunOnce_ContinuesAfterCategoryFailure(t *testing.T) {
	fetcher := &mockFetcher{
		topHeadlinesFunc: func(ctx context.Context, category, language string, page, pageSize int) (*model.NewsResult, error) {
			if category == "technology" {
				return nil, errors.New("upstream down")
			}
			return &model.NewsResult{
				TotalResults: 1,
				Articles:     []model.Article{{Title: "t", URL: "https://b"}},
			}, nil
		},
	}
	recorder := &mockRecorder{}
	w := NewWorker(fetcher, recorder, discardLogger(), []string{"technology", "business"})

	total := w.RunOnce(context.Background())

	if total != 1 {
		t.Errorf("total = %d, want 1 (business only)", total)
	}
	if len(recorder.batches) != 1 {
		t.Errorf("batches = %d, want 1", len(recorder.batches))
	}
}

func TestRunOnce_StopsOnCancelledContext(t *testing.T) {
	calls := 0
	fetcher := &mockFetcher{
		topHeadlinesFunc: func(ctx context.Context, category, language string, page, pageSize int) (*model.NewsResult, error) {
			calls++
			return &model.NewsResult{}, nil
		},
	}
	w := NewWorker(fetcher, &mockRecorder{}, discardLogger(), []string{"a", "b", "c"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w.RunOnce(ctx)

	if calls != 0 {
		t.Errorf("calls = %d, want 0 for cancelled context", calls)
	}
}

func TestNewWorker_DefaultsToGeneral(t *testing.T) {
	var gotCategory string
	fetcher := &mockFetcher{
		topHeadlinesFunc: func(ctx context.Context, category, language string, page, pageSize int) (*model.NewsResult, error) {
			gotCategory = category
			return &model.NewsResult{}, nil
		},
	}
	w := NewWorker(fetcher, &mockRecorder{}, discardLogger(), nil)

	w.RunOnce(context.Background())

	if gotCategory != "general" {
		t.Errorf("category = %q, want general", gotCategory)
	}
}
