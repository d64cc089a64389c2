// Package recommend は嗜好プロファイルに基づく記事推薦スコアラーを提供する。
//
// スコアリングは機械学習ではなく、インタラクション回数の重み付き和による
// 決定的で説明可能なヒューリスティック。候補は「観測済みだが未エンゲージ」の
// 記事に限られ、エンゲージ済み記事は推薦から除外される。
package recommend

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/hitoshi/newsdeck/internal/model"
)

// スコアの重み。カテゴリが最大の重みを持つ:
// トピックへの関心が最も強い推薦シグナルであるため。
const (
	sourceWeight   = 2.0
	authorWeight   = 1.5
	categoryWeight = 3.0
)

// InteractionSource はスコアラーが読み取るトラッキングデータのインターフェース。
// tracking.Serviceが実装する。スコアラーは読み取り専用であり、ストアへ書き込まない。
type InteractionSource interface {
	Interactions(ctx context.Context, userID string) []model.InteractionRecord
	CachedProfile(ctx context.Context, userID string) model.PreferenceProfile
	PreferredCategories(ctx context.Context, userID string) []string
}

// Service は推薦スコアラーのサービス。
type Service struct {
	source InteractionSource
	logger *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(source InteractionSource, logger *slog.Logger) *Service {
	return &Service{
		source: source,
		logger: logger,
	}
}

// Recommendations は指定ユーザーへの推薦記事をスコア降順で最大limit件返す。
//
// 候補プール = 観測済み記事（impression含む）からエンゲージ済み記事を除いたもの。
// エンゲージ履歴が1件もない場合（コールドスタート）は空を返す。
// limitが0以下の場合も空を返す。エラーは返さない。
//
// 同一のストア状態に対して常に同一の順序を返す（決定的）。
// 同点のタイブレークは最終観測が新しい順、さらに同時刻の場合はURL昇順。
func (s *Service) Recommendations(ctx context.Context, userID string, limit int) []model.Recommendation {
	if limit <= 0 {
		return []model.Recommendation{}
	}

	records := s.source.Interactions(ctx, userID)
	if len(records) == 0 {
		return []model.Recommendation{}
	}

	// エンゲージ履歴がなければプロファイルは空であり、全候補が0点になる。
	// このケースは推薦なしとして扱う（コールドスタート）。
	hasEngaged := false
	for i := range records {
		if records[i].IsEngaged() {
			hasEngaged = true
			break
		}
	}
	if !hasEngaged {
		return []model.Recommendation{}
	}

	profile := s.source.CachedProfile(ctx, userID)
	preferred := make(map[string]bool)
	for _, c := range s.source.PreferredCategories(ctx, userID) {
		preferred[c] = true
	}

	type candidate struct {
		rec      model.Recommendation
		lastSeen int64
	}
	candidates := make([]candidate, 0, len(records))
	for i := range records {
		rec := &records[i]
		if rec.IsEngaged() {
			continue
		}
		candidates = append(candidates, candidate{
			rec: model.Recommendation{
				Article: rec.Article,
				Score:   scoreArticle(profile, rec.Article),
				Reason:  buildReason(profile, preferred, rec.Article),
			},
			lastSeen: rec.LastSeen.UnixNano(),
		})
	}

	// スコア降順 → 最終観測の新しい順 → URL昇順の全順序でソートする
	sort.Slice(candidates, func(i, j int) bool {
		a, b := &candidates[i], &candidates[j]
		if a.rec.Score != b.rec.Score {
			return a.rec.Score > b.rec.Score
		}
		if a.lastSeen != b.lastSeen {
			return a.lastSeen > b.lastSeen
		}
		return a.rec.Article.URL < b.rec.Article.URL
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	recommendations := make([]model.Recommendation, len(candidates))
	for i := range candidates {
		recommendations[i] = candidates[i].rec
	}

	s.logger.Debug("推薦リストを生成しました",
		slog.String("user_id", userID),
		slog.Int("candidates", len(recommendations)),
	)

	return recommendations
}

// scoreArticle は候補記事のスコアを計算する。
// プロファイルに存在しないキーの寄与は0。
func scoreArticle(profile model.PreferenceProfile, article model.Article) float64 {
	score := 0.0
	if article.SourceName != "" {
		score += float64(profile.Sources[article.SourceName]) * sourceWeight
	}
	if article.Author != "" {
		score += float64(profile.Authors[article.Author]) * authorWeight
	}
	if article.Category != "" {
		score += float64(profile.Categories[article.Category]) * categoryWeight
	}
	return score
}

// buildReason は推薦理由の説明文を組み立てる。
// 明示的なカテゴリ設定へのマッチを最優先で提示し、次いでプロファイル上の
// カテゴリ頻度・ソース頻度・著者頻度の順で判定する。
// この優先順位は数値スコアの順位付けとは独立している。
func buildReason(profile model.PreferenceProfile, preferred map[string]bool, article model.Article) string {
	if article.Category != "" && preferred[article.Category] {
		return fmt.Sprintf("選択したカテゴリ「%s」に基づくおすすめです", article.Category)
	}
	if article.Category != "" && profile.Categories[article.Category] > 0 {
		return fmt.Sprintf("よく読むカテゴリ「%s」に基づくおすすめです", article.Category)
	}
	if article.SourceName != "" && profile.Sources[article.SourceName] > 0 {
		return fmt.Sprintf("よく読むソース「%s」に基づくおすすめです", article.SourceName)
	}
	if article.Author != "" && profile.Authors[article.Author] > 0 {
		return fmt.Sprintf("よく読む著者「%s」の記事です", article.Author)
	}
	return "閲覧履歴に基づくおすすめです"
}
