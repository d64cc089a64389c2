package repository

import (
	"context"
	"sync"
)

// MemoryStore はインメモリのキーバリューストレージ。
// DATABASE_URL未設定時の本番フォールバックおよびテストで使用する。
// プロセス終了でデータは失われる。
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

// NewMemoryStore はMemoryStoreを生成する。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string][]byte),
	}
}

// Get は指定キーの値を取得する。キーが存在しない場合は(nil, nil)を返す。
func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.entries[key]
	if !ok {
		return nil, nil
	}

	// 呼び出し側の変更が内部状態に波及しないようコピーを返す
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

// Set は指定キーに値を書き込む。既存キーは上書きされる。
func (s *MemoryStore) Set(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]byte, len(value))
	copy(stored, value)
	s.entries[key] = stored
	return nil
}

// Remove は指定キーを削除する。キーが存在しない場合もエラーを返さない。
func (s *MemoryStore) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}

// Len は現在のエントリ数を返す。テスト用。
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// compile-time interface check
var _ Storage = (*MemoryStore)(nil)
