// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/hitoshi/newsdeck/internal/model"
)

// userIDHeaderName はクライアントがユーザーIDを申告するヘッダー。
const userIDHeaderName = "X-User-ID"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// userIDContextKey はリクエストコンテキストにユーザーIDを格納するためのキー。
var userIDContextKey = contextKey("user_id")

// NewUserIDMiddleware はX-User-IDヘッダーからユーザーIDを読み取り、
// リクエストコンテキストに注入するミドルウェアを返す。
// ヘッダーが未設定・空の場合は匿名ユーザーとして扱う。
// 認証は行わない: ユーザーIDはトラッキングデータのパーティションキーであり、
// 本人性の保証ではない。
func NewUserIDMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := strings.TrimSpace(r.Header.Get(userIDHeaderName))
			if userID == "" {
				userID = model.AnonymousUserID
			}

			ctx := context.WithValue(r.Context(), userIDContextKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
// ユーザーIDミドルウェアを通過していないコンテキストでは匿名ユーザーIDを返す。
func UserIDFromContext(ctx context.Context) string {
	userID, ok := ctx.Value(userIDContextKey).(string)
	if !ok || userID == "" {
		return model.AnonymousUserID
	}
	return userID
}

// ContextWithUserID はコンテキストにユーザーIDを注入する。
// テストやワーカーなどミドルウェア外のコンテキスト生成で使用する。
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}
