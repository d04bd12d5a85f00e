package storage

// sqlite.go: slot de snapshots en SQLite (pure Go, sin CGo).
//
// Estrategia:
//   - `snapshots`: UNA fila por key (UPSERT). El blob es el estado completo
//     de la simulación, se sobreescribe entero en cada save.
//   - `updated_at` permite ver desde fuera cuándo se guardó por última vez.

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
    key        TEXT PRIMARY KEY,
    blob       BLOB     NOT NULL,
    updated_at INTEGER  NOT NULL -- unix ms
);
`

// SQLiteStore implementa ports.SnapshotStore usando SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore abre (o crea) la base de datos en la ruta dada y aplica el schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStore: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStore: apply schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Put sobreescribe el blob guardado bajo key.
func (s *SQLiteStore) Put(ctx context.Context, key string, blob []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshots (key, blob, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			blob       = excluded.blob,
			updated_at = excluded.updated_at`,
		key, blob, time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("storage.SQLiteStore.Put %q: %w", key, err)
	}
	return nil
}

// Get devuelve el blob bajo key; found=false si no hay fila.
func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx, `SELECT blob FROM snapshots WHERE key = ?`, key).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("storage.SQLiteStore.Get %q: %w", key, err)
	}
	return blob, true, nil
}

// UpdatedAt devuelve la hora del último Put sobre key.
func (s *SQLiteStore) UpdatedAt(ctx context.Context, key string) (time.Time, bool, error) {
	var ms int64
	err := s.db.QueryRowContext(ctx, `SELECT updated_at FROM snapshots WHERE key = ?`, key).Scan(&ms)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("storage.SQLiteStore.UpdatedAt %q: %w", key, err)
	}
	return time.UnixMilli(ms).UTC(), true, nil
}

// Delete borra la fila de key. Borrar una key inexistente no es error.
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE key = ?`, key); err != nil {
		return fmt.Errorf("storage.SQLiteStore.Delete %q: %w", key, err)
	}
	return nil
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
