package tracking

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hitoshi/newsdeck/internal/model"
)

// ComputeProfile はインタラクションレコード群から嗜好プロファイルを集計する純粋関数。
// エンゲージ済み（click/detail_view/external_click）のレコードのみを数え、
// impressionだけのレコードは無視する。受動的なページビューのノイズが
// 興味シグナルを支配することを防ぐためのポリシーであり、テストで固定する。
// 同一入力に対して常に同一出力を返す。
func ComputeProfile(records []model.InteractionRecord) model.PreferenceProfile {
	profile := model.NewPreferenceProfile()

	for i := range records {
		rec := &records[i]
		if !rec.IsEngaged() {
			continue
		}
		countArticle(profile, rec.Article)
	}

	return profile
}

// countArticle は1記事分の出現をプロファイルに加算する。
// 空のフィールドは数えない（存在しないキーの寄与は0）。
func countArticle(profile model.PreferenceProfile, article model.Article) {
	if article.SourceName != "" {
		profile.Sources[article.SourceName]++
	}
	if article.Author != "" {
		profile.Authors[article.Author]++
	}
	if article.Category != "" {
		profile.Categories[article.Category]++
	}
}

// Profile は指定ユーザーの嗜好プロファイルをインタラクションログから再計算して返す。
// 冪等かつ副作用なし。ログが空・読み取り不能の場合は空プロファイルを返す。
func (s *Service) Profile(ctx context.Context, userID string) model.PreferenceProfile {
	return ComputeProfile(s.Interactions(ctx, userID))
}

// CachedProfile は増分更新されたプロファイルキャッシュを返す。
// キャッシュ未存在・破損時はログからの再計算にフォールバックする。
// キャッシュとログ再計算の等価性はテストで保証される。
func (s *Service) CachedProfile(ctx context.Context, userID string) model.PreferenceProfile {
	if userID == "" {
		userID = model.AnonymousUserID
	}

	data, err := s.store.Get(ctx, profileKeyPrefix+userID)
	if err != nil {
		s.logger.Error("プロファイルキャッシュの読み取りに失敗しました（再計算します）",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return s.Profile(ctx, userID)
	}
	if data == nil {
		return s.Profile(ctx, userID)
	}

	var profile model.PreferenceProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		s.logger.Error("プロファイルキャッシュが破損しています（再計算します）",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return s.Profile(ctx, userID)
	}

	// JSONのnullマップをアクセス可能な空マップに正規化する
	if profile.Sources == nil {
		profile.Sources = make(map[string]int)
	}
	if profile.Authors == nil {
		profile.Authors = make(map[string]int)
	}
	if profile.Categories == nil {
		profile.Categories = make(map[string]int)
	}

	return profile
}

// applyToProfileCache は初回エンゲージ1件分をプロファイルキャッシュへ増分反映する。
// キャッシュが未存在・破損の場合は、書き込み済みログからの全再計算で置き換える
// （ログには当該レコードが既に含まれるため、この経路では加算しない）。
// キャッシュは最適化であり、失敗してもレコーダーの成否には影響させない。
func (s *Service) applyToProfileCache(ctx context.Context, userID string, article model.Article) {
	data, err := s.store.Get(ctx, profileKeyPrefix+userID)
	if err == nil && data != nil {
		var profile model.PreferenceProfile
		if jsonErr := json.Unmarshal(data, &profile); jsonErr == nil {
			if profile.Sources == nil {
				profile.Sources = make(map[string]int)
			}
			if profile.Authors == nil {
				profile.Authors = make(map[string]int)
			}
			if profile.Categories == nil {
				profile.Categories = make(map[string]int)
			}
			countArticle(profile, article)
			s.writeProfileCache(ctx, userID, profile)
			return
		}
		s.logger.Error("プロファイルキャッシュが破損しています（再構築します）",
			slog.String("user_id", userID),
		)
	}

	// キャッシュ未存在または読み取り不能: ログから再構築する
	s.writeProfileCache(ctx, userID, s.Profile(ctx, userID))
}

// writeProfileCache はプロファイルキャッシュを書き込む。失敗はログのみ。
func (s *Service) writeProfileCache(ctx context.Context, userID string, profile model.PreferenceProfile) {
	data, err := json.Marshal(profile)
	if err != nil {
		s.logger.Error("プロファイルキャッシュのエンコードに失敗しました",
			slog.String("error", err.Error()),
		)
		return
	}

	if err := s.store.Set(ctx, profileKeyPrefix+userID, data); err != nil {
		s.logger.Error("プロファイルキャッシュの書き込みに失敗しました",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}
}
