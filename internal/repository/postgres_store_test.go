package repository

import "testing"

// TestPostgresStore_ImplementsInterface はPostgresStoreがStorageを実装することを検証する。
func TestPostgresStore_ImplementsInterface(t *testing.T) {
	// コンパイル時チェック：PostgresStoreがStorageを満たすことを検証
	var _ Storage = (*PostgresStore)(nil)
}

// TestMemoryStore_ImplementsInterface はMemoryStoreがStorageを実装することを検証する。
func TestMemoryStore_ImplementsInterface(t *testing.T) {
	// コンパイル時チェック：MemoryStoreがStorageを満たすことを検証
	var _ Storage = (*MemoryStore)(nil)
}
