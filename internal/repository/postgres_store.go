package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PostgresStore はPostgreSQLを使用したキーバリューストレージ。
// kv_entriesテーブルにキーごとに1行を保持し、UPSERTで上書きする。
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore はPostgresStoreを生成する。
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Get は指定キーの値を取得する。キーが存在しない場合は(nil, nil)を返す。
func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte

	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM kv_entries WHERE key = $1`,
		key,
	).Scan(&value)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("キー %q の取得に失敗しました: %w", key, err)
	}

	return value, nil
}

// Set は指定キーに値を書き込む。既存キーは上書きされる。
// PRIMARY KEY(key)制約を利用したINSERT ON CONFLICTで実装する。
func (s *PostgresStore) Set(ctx context.Context, key string, value []byte) error {
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv_entries (key, value, updated_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (key) DO UPDATE SET
		     value = EXCLUDED.value,
		     updated_at = EXCLUDED.updated_at`,
		key, value, now,
	)
	if err != nil {
		return fmt.Errorf("キー %q の書き込みに失敗しました: %w", key, err)
	}

	return nil
}

// Remove は指定キーを削除する。キーが存在しない場合もエラーを返さない。
func (s *PostgresStore) Remove(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM kv_entries WHERE key = $1`,
		key,
	)
	if err != nil {
		return fmt.Errorf("キー %q の削除に失敗しました: %w", key, err)
	}

	return nil
}

// compile-time interface check
var _ Storage = (*PostgresStore)(nil)
