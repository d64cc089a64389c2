// Package tracking は記事インタラクションの記録と嗜好プロファイルの管理を提供する。
//
// インタラクションレコーダー（書き込み）と嗜好アグリゲーター（導出）を含む。
// データは注入されたキーバリューストレージにユーザーIDごとのキーで永続化され、
// 全操作は同期的に完了する。公開APIはエラーを送出せず、失敗時は
// フォールバック値（false / 空）を返してログに記録する（デグレード継続）。
package tracking

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/newsdeck/internal/model"
	"github.com/hitoshi/newsdeck/internal/repository"
	"github.com/hitoshi/newsdeck/internal/security"
)

// ストレージキーのプレフィックス。ユーザーIDでパーティションする。
const (
	interactionsKeyPrefix        = "interactions:"
	profileKeyPrefix             = "profile:"
	preferredCategoriesKeyPrefix = "preferred_categories:"
)

// defaultMaxTrackedArticles はインタラクションログの保持上限（デフォルト）。
// 上限を超えた場合は非エンゲージの観測を古い順に切り捨てる。
// エンゲージ済みレコードは切り捨て対象外（trimRecords参照）。
const defaultMaxTrackedArticles = 100

// Service はインタラクション記録・嗜好集計のサービス。
// ストアの唯一の書き込み主体であり、読み取り専用の利用者（スコアラー）には
// Interactions/Profile/PreferredCategoriesを公開する。
type Service struct {
	store      repository.Storage
	sanitizer  security.ArticleSanitizerService
	logger     *slog.Logger
	maxEntries int
	nowFn      func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
// maxEntriesが0以下の場合はデフォルト値100を使用する。
func NewService(
	store repository.Storage,
	sanitizer security.ArticleSanitizerService,
	logger *slog.Logger,
	maxEntries int,
) *Service {
	if maxEntries <= 0 {
		maxEntries = defaultMaxTrackedArticles
	}
	return &Service{
		store:      store,
		sanitizer:  sanitizer,
		logger:     logger,
		maxEntries: maxEntries,
		nowFn:      time.Now,
	}
}

// RecordInteraction は記事インタラクションを1件記録する。
//
// 記事がnilまたはタイトル欠落の場合、およびインタラクション種別が無効な場合は
// 副作用なしでfalseを返す。同一(userID, 記事キー)の既存レコードがある場合は
// インプレース更新する:
//   - LastSeenを現在時刻に更新
//   - エンゲージ種別（click/detail_view/external_click）はViewCountを加算し
//     InteractionTypeを上書きする
//   - impressionはViewCountを加算せず、エンゲージ済みレコードの
//     InteractionTypeを降格させない（エンゲージ状態は不可逆）
//
// 書き込みはリターン前に同期的にストレージへ反映される。
// ストレージ障害時はfalseを返すのみで、呼び出し元にエラーを伝播しない。
func (s *Service) RecordInteraction(
	ctx context.Context,
	userID string,
	article *model.Article,
	interactionType model.InteractionType,
) bool {
	if article == nil || strings.TrimSpace(article.Title) == "" {
		return false
	}
	if !interactionType.Valid() {
		s.logger.Warn("無効なインタラクション種別のため記録をスキップします",
			slog.String("interaction_type", string(interactionType)),
		)
		return false
	}
	if userID == "" {
		userID = model.AnonymousUserID
	}

	now := s.nowFn().UTC()

	records, err := s.loadRecords(ctx, userID)
	if err != nil {
		// デグレード: 読み取り不能でも空ログとして記録を続行する
		s.logger.Error("インタラクションログの読み取りに失敗しました（空として継続）",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		records = nil
	}

	key := recordKey(article)
	idx := findRecord(records, key)

	var recorded model.Article
	becameEngaged := false

	if idx < 0 {
		normalized := s.normalizeArticle(*article)
		records = append(records, model.InteractionRecord{
			ID:              uuid.New().String(),
			UserID:          userID,
			Article:         normalized,
			InteractionType: interactionType,
			FirstSeen:       now,
			LastSeen:        now,
			ViewCount:       1,
		})
		recorded = normalized
		becameEngaged = interactionType.IsEngaged()
	} else {
		rec := &records[idx]
		rec.LastSeen = now
		wasEngaged := rec.IsEngaged()

		if interactionType == model.InteractionImpression {
			// エンゲージ済みレコードはimpressionで降格しない
			if !wasEngaged {
				rec.InteractionType = model.InteractionImpression
			}
		} else {
			rec.InteractionType = interactionType
			rec.ViewCount++
		}
		recorded = rec.Article
		becameEngaged = !wasEngaged && interactionType.IsEngaged()
	}

	// ログ肥大防止: 非エンゲージの観測を古い順に切り捨てる
	records = trimRecords(records, s.maxEntries)

	if err := s.saveRecords(ctx, userID, records); err != nil {
		s.logger.Error("インタラクションログの書き込みに失敗しました",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return false
	}

	// レコードが初めてエンゲージ状態へ遷移した場合のみ、
	// 嗜好プロファイルのキャッシュを増分更新する。impressionおよび
	// エンゲージ済みレコードへの再エンゲージは重みに寄与させない
	// （ログからの再計算はレコードを1回だけ数えるため、等価性を保つ）。
	if becameEngaged {
		s.applyToProfileCache(ctx, userID, recorded)
	}

	return true
}

// RecordBatch は複数記事をimpressionとして一括記録する。
// 記録に成功した件数を返す。タイトル欠落の記事はスキップされる。
// 一覧レスポンスで観測された記事群を候補プールへ投入する用途で使用する。
func (s *Service) RecordBatch(ctx context.Context, userID string, articles []model.Article) int {
	recorded := 0
	for i := range articles {
		if s.RecordInteraction(ctx, userID, &articles[i], model.InteractionImpression) {
			recorded++
		}
	}
	return recorded
}

// Interactions は指定ユーザーの全インタラクションレコードを観測順で返す。
// ストレージ障害・破損時は空スライスを返す（エラーは返さない）。
func (s *Service) Interactions(ctx context.Context, userID string) []model.InteractionRecord {
	if userID == "" {
		userID = model.AnonymousUserID
	}

	records, err := s.loadRecords(ctx, userID)
	if err != nil {
		s.logger.Error("インタラクションログの読み取りに失敗しました",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil
	}
	return records
}

// SetPreferredCategories は明示的なカテゴリ設定を保存する。
// カテゴリ名は小文字に正規化し、重複を除去する。保存成功でtrueを返す。
func (s *Service) SetPreferredCategories(ctx context.Context, userID string, categories []string) bool {
	if userID == "" {
		userID = model.AnonymousUserID
	}

	seen := make(map[string]bool, len(categories))
	normalized := make([]string, 0, len(categories))
	for _, c := range categories {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		normalized = append(normalized, c)
	}

	data, err := json.Marshal(normalized)
	if err != nil {
		s.logger.Error("カテゴリ設定のエンコードに失敗しました",
			slog.String("error", err.Error()),
		)
		return false
	}

	if err := s.store.Set(ctx, preferredCategoriesKeyPrefix+userID, data); err != nil {
		s.logger.Error("カテゴリ設定の書き込みに失敗しました",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return false
	}

	return true
}

// PreferredCategories は明示的なカテゴリ設定を返す。
// 未設定・障害・破損時は空スライスを返す。
func (s *Service) PreferredCategories(ctx context.Context, userID string) []string {
	if userID == "" {
		userID = model.AnonymousUserID
	}

	data, err := s.store.Get(ctx, preferredCategoriesKeyPrefix+userID)
	if err != nil {
		s.logger.Error("カテゴリ設定の読み取りに失敗しました",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil
	}
	if data == nil {
		return nil
	}

	var categories []string
	if err := json.Unmarshal(data, &categories); err != nil {
		s.logger.Error("カテゴリ設定が破損しています（空として扱います）",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil
	}

	return categories
}

// ClearAll は指定ユーザーのトラッキングデータを全て削除する。
// インタラクションログ・プロファイルキャッシュ・カテゴリ設定をまとめて消去し、
// 部分的な削除は提供しない。全キーの削除に成功した場合のみtrueを返す。
func (s *Service) ClearAll(ctx context.Context, userID string) bool {
	if userID == "" {
		userID = model.AnonymousUserID
	}

	keys := []string{
		interactionsKeyPrefix + userID,
		profileKeyPrefix + userID,
		preferredCategoriesKeyPrefix + userID,
	}

	ok := true
	for _, key := range keys {
		if err := s.store.Remove(ctx, key); err != nil {
			s.logger.Error("トラッキングデータの削除に失敗しました",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
			ok = false
		}
	}

	if ok {
		s.logger.Info("トラッキングデータを全て削除しました",
			slog.String("user_id", userID),
		)
	}
	return ok
}

// --- 内部ヘルパー ---

// recordKey は記事のdedupキーを返す。URLが自然キーだが、
// URL欠落記事はタイトルをフォールバックキーとして使用する。
func recordKey(article *model.Article) string {
	if article.URL != "" {
		return article.URL
	}
	return "title:" + article.Title
}

// trimRecords は非エンゲージレコードを観測の古い順に切り捨てて上限に収める。
// エンゲージ済みレコードは嗜好プロファイルの根拠かつ推薦の既読除外対象のため
// 破棄しない（エンゲージのみで上限を超える場合はそのまま保持する）。
// エンゲージを残すことで、増分更新されるプロファイルキャッシュと
// ログからの再計算の等価性が切り捨て後も保たれる。
func trimRecords(records []model.InteractionRecord, maxEntries int) []model.InteractionRecord {
	over := len(records) - maxEntries
	if over <= 0 {
		return records
	}

	trimmed := records[:0]
	for _, rec := range records {
		if over > 0 && !rec.IsEngaged() {
			over--
			continue
		}
		trimmed = append(trimmed, rec)
	}
	return trimmed
}

// findRecord はレコードスライスから指定キーのインデックスを返す。見つからない場合は-1。
func findRecord(records []model.InteractionRecord, key string) int {
	for i := range records {
		if recordKey(&records[i].Article) == key {
			return i
		}
	}
	return -1
}

// normalizeArticle は保存前の記事を正規化する。
// テキストフィールドをサニタイズし、カテゴリ未設定の場合は推定する。
func (s *Service) normalizeArticle(article model.Article) model.Article {
	article.Title = s.sanitizer.SanitizeText(article.Title)
	article.Description = s.sanitizer.SanitizeText(article.Description)

	if article.Category == "" {
		article.Category = InferCategory(article)
	} else {
		article.Category = strings.ToLower(article.Category)
	}

	return article
}

// loadRecords はインタラクションログをストレージから読み出す。
// キー未存在は空ログ、JSONの破損はエラーとして返す（呼び出し側でデグレード判断）。
func (s *Service) loadRecords(ctx context.Context, userID string) ([]model.InteractionRecord, error) {
	data, err := s.store.Get(ctx, interactionsKeyPrefix+userID)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}

	var records []model.InteractionRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// saveRecords はインタラクションログをストレージへ書き込む。
func (s *Service) saveRecords(ctx context.Context, userID string, records []model.InteractionRecord) error {
	data, err := json.Marshal(records)
	if err != nil {
		return err
	}
	return s.store.Set(ctx, interactionsKeyPrefix+userID, data)
}
