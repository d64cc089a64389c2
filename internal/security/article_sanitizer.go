// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ArticleSanitizerService は外部ニュースソース由来の記事テキストをサニタイズし、
// 保存データおよびAPI応答に生のHTMLが混入することを防ぐ。
// bluemondayライブラリの許可リストベースのポリシーを使用する。
package security

import "github.com/microcosm-cc/bluemonday"

// ArticleSanitizerService は記事テキストのサニタイズ機能のインターフェースを定義する。
// インタラクション記録の保存前およびRSSソースのパース後に使用される。
type ArticleSanitizerService interface {
	// SanitizeText はタイトル・説明文など平文フィールドから全てのHTMLタグを除去する。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	SanitizeText(raw string) string

	// SanitizeHTML はRSSコンテンツなどのHTMLフィールドをサニタイズする。
	// 基本的な整形タグ（p, br, ul, ol, li, blockquote, strong, em, a）のみを
	// 通過させ、script等の危険な要素とon*イベント属性を除去する。
	SanitizeHTML(rawHTML string) string
}

// articleSanitizer はArticleSanitizerServiceの実装。
// bluemondayのポリシーはスレッドセーフなため、インスタンスを共有できる。
type articleSanitizer struct {
	textPolicy *bluemonday.Policy
	htmlPolicy *bluemonday.Policy
}

// NewArticleSanitizer はArticleSanitizerServiceの新しいインスタンスを生成する。
//
// テキストポリシー: StrictPolicy（全タグ除去）。ニュースAPIのtitle/descriptionは
// 平文想定だが、アップストリームを信頼せずタグを落とす。
// HTMLポリシー: 整形タグのみ許可。リンクにはrel="noopener noreferrer"と
// target="_blank"を強制付与する。
func NewArticleSanitizer() *articleSanitizer {
	htmlPolicy := bluemonday.NewPolicy()
	htmlPolicy.AllowElements(
		"p", "br", "ul", "ol", "li",
		"blockquote", "strong", "em",
	)
	htmlPolicy.AllowAttrs("href").OnElements("a")
	htmlPolicy.AllowStandardURLs()
	htmlPolicy.AllowRelativeURLs(false)
	htmlPolicy.AddTargetBlankToFullyQualifiedLinks(true)
	htmlPolicy.RequireNoReferrerOnLinks(true)

	return &articleSanitizer{
		textPolicy: bluemonday.StrictPolicy(),
		htmlPolicy: htmlPolicy,
	}
}

// SanitizeText はタイトル・説明文から全てのHTMLタグを除去する。
func (s *articleSanitizer) SanitizeText(raw string) string {
	return s.textPolicy.Sanitize(raw)
}

// SanitizeHTML はHTMLコンテンツをサニタイズして安全なHTMLを返す。
func (s *articleSanitizer) SanitizeHTML(rawHTML string) string {
	return s.htmlPolicy.Sanitize(rawHTML)
}
