// Package model はドメインモデルを定義する。
package model

// Article はニュースソースから取得した記事を表す。
// URLが記事の自然キーとなり、同一URLの記事は同一記事として扱う。
type Article struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	SourceName  string `json:"source_name,omitempty"`
	Author      string `json:"author,omitempty"`
	PublishedAt string `json:"published_at,omitempty"` // ISO-8601文字列
	ImageURL    string `json:"image_url,omitempty"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"` // 提供値または推定値
}

// NewsResult はニュースAPIからの取得結果を表す。
type NewsResult struct {
	TotalResults int       `json:"total_results"`
	Articles     []Article `json:"articles"`
}
