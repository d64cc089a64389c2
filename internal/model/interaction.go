// Package model はドメインモデルを定義する。
package model

import "time"

// InteractionType はユーザーの記事インタラクションの種別を表す。
type InteractionType string

const (
	// InteractionImpression は記事が一覧に表示されただけの受動的な観測。
	InteractionImpression InteractionType = "impression"
	// InteractionClick は記事のクリック。
	InteractionClick InteractionType = "click"
	// InteractionDetailView は記事詳細の閲覧。
	InteractionDetailView InteractionType = "detail_view"
	// InteractionExternalClick は外部サイトへの遷移。
	InteractionExternalClick InteractionType = "external_click"
)

// AnonymousUserID は未ログインユーザーを表すセンチネル値。
// マルチユーザー化はストレージキーのuserIDパーティションのみで実現する設計のため、
// 全公開APIでuserIDを明示的に受け取る。
const AnonymousUserID = "anonymous"

// validInteractionTypes は有効なインタラクション種別のセット。
var validInteractionTypes = map[InteractionType]bool{
	InteractionImpression:    true,
	InteractionClick:         true,
	InteractionDetailView:    true,
	InteractionExternalClick: true,
}

// Valid は有効なインタラクション種別かを返す。
func (t InteractionType) Valid() bool {
	return validInteractionTypes[t]
}

// IsEngaged は能動的なエンゲージメント（クリック/詳細閲覧/外部遷移）かを返す。
// impressionは含まない。impressionは候補プールの観測のみに使い、
// 嗜好プロファイルの重み付けには一切寄与させない。
func (t InteractionType) IsEngaged() bool {
	return t == InteractionClick || t == InteractionDetailView || t == InteractionExternalClick
}

// InteractionRecord はユーザーごと・記事URLごとに1件のインタラクション記録を表す。
// 同一(userID, url)への再インタラクションは新規レコードを作らず、
// LastSeen/ViewCount/InteractionTypeをインプレース更新する。
type InteractionRecord struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	Article         Article         `json:"article"`
	InteractionType InteractionType `json:"interaction_type"`
	FirstSeen       time.Time       `json:"first_seen"`
	LastSeen        time.Time       `json:"last_seen"`
	ViewCount       int             `json:"view_count"` // 1以上
}

// IsEngaged はこのレコードがエンゲージ済み（クリック等の能動操作あり）かを返す。
// エンゲージ状態は不可逆で、後続のimpressionで降格しない。
func (r *InteractionRecord) IsEngaged() bool {
	return r.InteractionType.IsEngaged()
}

// PreferenceProfile はエンゲージ済みインタラクションから導出した嗜好の集計を表す。
// インタラクションログからいつでも再計算可能な派生データであり、
// キャッシュされた場合も再計算結果と等価でなければならない。
type PreferenceProfile struct {
	Sources    map[string]int `json:"sources"`
	Authors    map[string]int `json:"authors"`
	Categories map[string]int `json:"categories"`
}

// NewPreferenceProfile は空のPreferenceProfileを生成する。
func NewPreferenceProfile() PreferenceProfile {
	return PreferenceProfile{
		Sources:    make(map[string]int),
		Authors:    make(map[string]int),
		Categories: make(map[string]int),
	}
}

// IsEmpty は全てのマッピングが空かを返す。
func (p PreferenceProfile) IsEmpty() bool {
	return len(p.Sources) == 0 && len(p.Authors) == 0 && len(p.Categories) == 0
}

// Recommendation はスコア付きのおすすめ記事を表す。
// Reasonはユーザー向けの推薦理由（明示的なカテゴリ設定が最優先で表示される）。
type Recommendation struct {
	Article Article `json:"article"`
	Score   float64 `json:"score"`
	Reason  string  `json:"reason"`
}
