// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, news, tracking, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeArticleTitleRequired   = "ARTICLE_TITLE_REQUIRED"
	ErrCodeInvalidInteractionType = "INVALID_INTERACTION_TYPE"
	ErrCodeInvalidURL             = "INVALID_URL"
	ErrCodeSSRFBlocked            = "SSRF_BLOCKED"
	ErrCodeNewsFetchFailed        = "NEWS_FETCH_FAILED"
	ErrCodeFeedNotDetected        = "FEED_NOT_DETECTED"
	ErrCodeParseFailed            = "PARSE_FAILED"
	ErrCodeInvalidCategory        = "INVALID_CATEGORY"
)

// NewArticleTitleRequiredError はタイトル欠落記事の拒否エラーを生成する。
func NewArticleTitleRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeArticleTitleRequired,
		Message:  "記事にタイトルがありません。",
		Category: "validation",
		Action:   "titleフィールドを含む記事データを送信してください。",
	}
}

// NewInvalidInteractionTypeError は無効なインタラクション種別エラーを生成する。
func NewInvalidInteractionTypeError(t string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidInteractionType,
		Message:  fmt.Sprintf("無効なインタラクション種別です: %s", t),
		Category: "validation",
		Action:   "interaction_typeには impression、click、detail_view、external_click のいずれかを指定してください。",
	}
}

// NewInvalidURLError は無効なURLエラーを生成する。
func NewInvalidURLError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidURL,
		Message:  fmt.Sprintf("無効なURLです: %s", reason),
		Category: "validation",
		Action:   "正しいURL形式（http:// または https:// で始まるURL）を入力してください。",
	}
}

// NewSSRFBlockedError はSSRFブロックエラーを生成する。
func NewSSRFBlockedError() *APIError {
	return &APIError{
		Code:     ErrCodeSSRFBlocked,
		Message:  "セキュリティポリシーにより、指定されたURLへのアクセスがブロックされました。",
		Category: "validation",
		Action:   "公開されているWebサイトのURLを入力してください。ローカルネットワークやプライベートIPへのアクセスは許可されていません。",
	}
}

// NewNewsFetchFailedError はニュースAPI取得失敗エラーを生成する。
func NewNewsFetchFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeNewsFetchFailed,
		Message:  fmt.Sprintf("ニュースの取得に失敗しました: %s", reason),
		Category: "news",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewFeedNotDetectedError はRSS/Atomフィード未検出エラーを生成する。
func NewFeedNotDetectedError(url string) *APIError {
	return &APIError{
		Code:     ErrCodeFeedNotDetected,
		Message:  fmt.Sprintf("指定されたURLからRSS/Atomフィードを検出できませんでした: %s", url),
		Category: "news",
		Action:   "RSS/AtomフィードのURLを直接入力するか、フィードが公開されているページのURLを確認してください。",
	}
}

// NewParseFailedError はフィードパース失敗エラーを生成する。
func NewParseFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeParseFailed,
		Message:  "フィードの解析に失敗しました。",
		Category: "news",
		Action:   "有効なRSS/Atomフィードかどうか確認してください。",
	}
}

// NewInvalidCategoryError は無効なカテゴリ名エラーを生成する。
func NewInvalidCategoryError(category string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCategory,
		Message:  fmt.Sprintf("無効なカテゴリです: %s", category),
		Category: "validation",
		Action:   "選択可能なカテゴリ名を指定してください。",
	}
}
