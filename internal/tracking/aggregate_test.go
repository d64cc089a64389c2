package tracking

import (
	"context"
	"io"
	"log/slog"
	"reflect"
	"testing"
	"time"

	"github.com/hitoshi/newsdeck/internal/model"
	"github.com/hitoshi/newsdeck/internal/repository"
	"github.com/hitoshi/newsdeck/internal/security"
)

func engagedRecord(url, source, author, category string) model.InteractionRecord {
	return model.InteractionRecord{
		ID:     url,
		UserID: "anonymous",
		Article: model.Article{
			Title:      "t",
			URL:        url,
			SourceName: source,
			Author:     author,
			Category:   category,
		},
		InteractionType: model.InteractionClick,
		FirstSeen:       time.Now().UTC(),
		LastSeen:        time.Now().UTC(),
		ViewCount:       1,
	}
}

func TestComputeProfile_CountsOnlyEngagedRecords(t *testing.T) {
	records := []model.InteractionRecord{
		engagedRecord("https://a", "TechCrunch", "Alice", "technology"),
		{
			Article: model.Article{
				Title: "t", URL: "https://b",
				SourceName: "BBC News", Category: "politics",
			},
			InteractionType: model.InteractionImpression,
		},
	}

	profile := ComputeProfile(records)

	if profile.Sources["TechCrunch"] != 1 {
		t.Errorf("Sources[TechCrunch] = %d, want 1", profile.Sources["TechCrunch"])
	}
	if profile.Authors["Alice"] != 1 {
		t.Errorf("Authors[Alice] = %d, want 1", profile.Authors["Alice"])
	}
	if profile.Categories["technology"] != 1 {
		t.Errorf("Categories[technology] = %d, want 1", profile.Categories["technology"])
	}
	if _, ok := profile.Sources["BBC News"]; ok {
		t.Error("impression-only record must not contribute to profile")
	}
}

func TestComputeProfile_SkipsEmptyFields(t *testing.T) {
	records := []model.InteractionRecord{
		engagedRecord("https://a", "TechCrunch", "", ""),
	}

	profile := ComputeProfile(records)

	if len(profile.Authors) != 0 {
		t.Errorf("Authors = %v, want empty (absent author contributes nothing)", profile.Authors)
	}
	if len(profile.Categories) != 0 {
		t.Errorf("Categories = %v, want empty", profile.Categories)
	}
	if _, ok := profile.Sources[""]; ok {
		t.Error("empty-string key must not appear in profile")
	}
}

func TestComputeProfile_EmptyInputYieldsEmptyProfile(t *testing.T) {
	profile := ComputeProfile(nil)

	if !profile.IsEmpty() {
		t.Errorf("profile = %+v, want empty", profile)
	}
	// マップ自体はアクセス可能であること
	if profile.Sources == nil || profile.Authors == nil || profile.Categories == nil {
		t.Error("profile maps must be initialized")
	}
}

func TestComputeProfile_IsDeterministic(t *testing.T) {
	records := []model.InteractionRecord{
		engagedRecord("https://a", "TechCrunch", "Alice", "technology"),
		engagedRecord("https://b", "TechCrunch", "Bob", "technology"),
		engagedRecord("https://c", "BBC News", "Alice", "politics"),
	}

	first := ComputeProfile(records)
	second := ComputeProfile(records)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("ComputeProfile not deterministic: %+v vs %+v", first, second)
	}
	if first.Sources["TechCrunch"] != 2 || first.Categories["technology"] != 2 {
		t.Errorf("unexpected tallies: %+v", first)
	}
}

// キャッシュの増分更新がログからの全再計算と常に一致することを検証する。
// impressionの繰り返し・エンゲージの繰り返し・種別の昇格を混ぜても
// 両経路のプロファイルが等価であることがアグリゲーターの中心的な性質。
func TestCachedProfile_MatchesRecompute(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	steps := []struct {
		article model.Article
		kind    model.InteractionType
	}{
		{model.Article{Title: "a", URL: "https://a", SourceName: "TechCrunch", Author: "Alice", Category: "technology"}, model.InteractionImpression},
		{model.Article{Title: "a", URL: "https://a", SourceName: "TechCrunch", Author: "Alice", Category: "technology"}, model.InteractionClick},
		{model.Article{Title: "a", URL: "https://a", SourceName: "TechCrunch", Author: "Alice", Category: "technology"}, model.InteractionDetailView},
		{model.Article{Title: "b", URL: "https://b", SourceName: "BBC News", Category: "politics"}, model.InteractionImpression},
		{model.Article{Title: "b", URL: "https://b", SourceName: "BBC News", Category: "politics"}, model.InteractionImpression},
		{model.Article{Title: "c", URL: "https://c", SourceName: "BBC News", Category: "politics"}, model.InteractionExternalClick},
		{model.Article{Title: "a", URL: "https://a", SourceName: "TechCrunch", Author: "Alice", Category: "technology"}, model.InteractionImpression},
	}

	for i, step := range steps {
		article := step.article
		if !svc.RecordInteraction(ctx, "anonymous", &article, step.kind) {
			t.Fatalf("step %d: RecordInteraction failed", i)
		}

		cached := svc.CachedProfile(ctx, "anonymous")
		recomputed := svc.Profile(ctx, "anonymous")
		if !reflect.DeepEqual(cached, recomputed) {
			t.Fatalf("step %d: cached profile diverged\ncached:     %+v\nrecomputed: %+v",
				i, cached, recomputed)
		}
	}

	final := svc.CachedProfile(ctx, "anonymous")
	if final.Sources["TechCrunch"] != 1 {
		t.Errorf("Sources[TechCrunch] = %d, want 1 (record counted once)", final.Sources["TechCrunch"])
	}
	if final.Sources["BBC News"] != 1 {
		t.Errorf("Sources[BBC News] = %d, want 1 (impressions excluded)", final.Sources["BBC News"])
	}
	if final.Categories["technology"] != 1 || final.Categories["politics"] != 1 {
		t.Errorf("unexpected categories: %+v", final.Categories)
	}
}

// ログが保持上限を超えて切り捨てられても、エンゲージレコードは残るため
// キャッシュと再計算の等価性が保たれることを検証する。
func TestCachedProfile_MatchesRecomputeAfterTrim(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := NewService(store, security.NewArticleSanitizer(),
		slog.New(slog.NewJSONHandler(io.Discard, nil)), 2)
	ctx := context.Background()

	articles := []model.Article{
		{Title: "a", URL: "https://a", SourceName: "SourceA", Category: "technology"},
		{Title: "b", URL: "https://b", SourceName: "SourceB", Category: "business"},
		{Title: "c", URL: "https://c", SourceName: "SourceC", Category: "science"},
	}

	for i := range articles {
		if !svc.RecordInteraction(ctx, "anonymous", &articles[i], model.InteractionClick) {
			t.Fatalf("article %d: RecordInteraction failed", i)
		}

		cached := svc.CachedProfile(ctx, "anonymous")
		recomputed := svc.Profile(ctx, "anonymous")
		if !reflect.DeepEqual(cached, recomputed) {
			t.Fatalf("article %d: cached profile diverged\ncached:     %+v\nrecomputed: %+v",
				i, cached, recomputed)
		}
	}

	// 上限2でもエンゲージ3件は全て保持される
	records := svc.Interactions(ctx, "anonymous")
	if len(records) != 3 {
		t.Errorf("records length = %d, want 3 (engaged records are never evicted)", len(records))
	}
	final := svc.CachedProfile(ctx, "anonymous")
	for _, source := range []string{"SourceA", "SourceB", "SourceC"} {
		if final.Sources[source] != 1 {
			t.Errorf("Sources[%s] = %d, want 1", source, final.Sources[source])
		}
	}
}

func TestCachedProfile_RebuildsFromCorruptedCache(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	article := model.Article{Title: "a", URL: "https://a", SourceName: "TechCrunch", Category: "technology"}
	svc.RecordInteraction(ctx, "anonymous", &article, model.InteractionClick)

	// キャッシュを破損させる
	if err := store.Set(ctx, "profile:anonymous", []byte("oops")); err != nil {
		t.Fatal(err)
	}

	profile := svc.CachedProfile(ctx, "anonymous")
	if profile.Sources["TechCrunch"] != 1 {
		t.Errorf("Sources[TechCrunch] = %d, want 1 (recomputed from log)", profile.Sources["TechCrunch"])
	}
}

func TestProfile_StorageFailure_YieldsEmptyProfile(t *testing.T) {
	svc, _ := newTestService(t)
	svc.store = &failingStore{}

	profile := svc.Profile(context.Background(), "anonymous")
	if !profile.IsEmpty() {
		t.Errorf("profile = %+v, want empty on storage failure", profile)
	}
}
