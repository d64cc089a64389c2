package tracking

import (
	"strings"

	"github.com/hitoshi/newsdeck/internal/model"
)

// categoryRule はカテゴリ推定のルールを表す。
// 1つのカテゴリ名と、それを示唆するキーワードのリストを持つ。
type categoryRule struct {
	name     string
	keywords []string
}

// categoryRules はカテゴリ推定の順序付きルールテーブル。
// 上から順に評価し、最初にマッチしたカテゴリを採用する（first match wins）。
// 順序は推定の決定性に影響するため変更時は注意すること。
var categoryRules = []categoryRule{
	{"technology", []string{"technology", "tech"}},
	{"business", []string{"business", "economy", "finance", "market"}},
	{"health", []string{"health", "medical", "medicine"}},
	{"sports", []string{"sports", "sport", "football", "baseball"}},
	{"entertainment", []string{"entertainment", "celebrity", "movie", "music"}},
	{"science", []string{"science", "research", "space"}},
	{"politics", []string{"politics", "election", "government"}},
	{"world", []string{"world", "international"}},
}

// selectableCategories はユーザーが明示的に選択できるカテゴリのセット。
// 推定ルールのカテゴリ名に"general"を加えたもの。
var selectableCategories = map[string]bool{
	"technology":    true,
	"business":      true,
	"health":        true,
	"sports":        true,
	"entertainment": true,
	"science":       true,
	"politics":      true,
	"world":         true,
	"general":       true,
}

// InferCategory は記事のカテゴリを推定する。
// article.Categoryが既に設定されている場合は推定せずそのまま返す。
// 推定はソース名 → URL → タイトル+説明文の優先順で行い、
// どれにもマッチしない場合は空文字列を返す（カテゴリ未定のまま）。
func InferCategory(article model.Article) string {
	if article.Category != "" {
		return article.Category
	}

	// 1. ソース名の照合（例: "TechCrunch" → technology）
	source := strings.ToLower(article.SourceName)
	if source != "" {
		for _, rule := range categoryRules {
			for _, kw := range rule.keywords {
				if strings.Contains(source, kw) {
					return rule.name
				}
			}
		}
	}

	// 2. URLの照合。パスセグメント（/technology/）または
	// クエリパラメータ（category=technology）の形式のみ認識する。
	u := strings.ToLower(article.URL)
	if u != "" {
		for _, rule := range categoryRules {
			for _, kw := range rule.keywords {
				if strings.Contains(u, "/"+kw+"/") || strings.Contains(u, "category="+kw) {
					return rule.name
				}
			}
		}
	}

	// 3. タイトルと説明文の結合テキストの照合
	text := strings.ToLower(article.Title + " " + article.Description)
	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(text, kw) {
				return rule.name
			}
		}
	}

	return ""
}

// IsSelectableCategory は明示的カテゴリ設定として有効なカテゴリ名かを返す。
func IsSelectableCategory(category string) bool {
	return selectableCategories[strings.ToLower(category)]
}

// SelectableCategories は選択可能なカテゴリ名の一覧を返す。
// 推定ルールテーブルの順序 + "general" の固定順で返す。
func SelectableCategories() []string {
	out := make([]string, 0, len(categoryRules)+1)
	for _, rule := range categoryRules {
		out = append(out, rule.name)
	}
	out = append(out, "general")
	return out
}
