// Package repository はトラッキングデータ永続化のインターフェースを定義する。
//
// ストアはキーバリュー形式で、値はJSONエンコード済みのバイト列として扱う。
// ブラウザのオリジンスコープストレージと同じ意味論（get/set/remove）を
// 明示的に注入可能なインターフェースとしてモデル化することで、
// コアロジックをインメモリ実装でテスト可能にする。
package repository

import "context"

// Storage はキーバリューストレージの永続化インターフェース。
//
// 並行書き込みの調整は行わない。複数プロセスが同一キーに書き込んだ場合は
// last-write-winsとなり、read-modify-writeの競合は許容された制限事項である
// （呼び出し側は単一のフォアグラウンド実行系列からの呼び出しを前提とする）。
type Storage interface {
	// Get は指定キーの値を取得する。キーが存在しない場合は(nil, nil)を返す。
	Get(ctx context.Context, key string) ([]byte, error)

	// Set は指定キーに値を書き込む。既存キーは上書きされる。
	Set(ctx context.Context, key string, value []byte) error

	// Remove は指定キーを削除する。キーが存在しない場合もエラーを返さない。
	Remove(ctx context.Context, key string) error
}
