package overrides

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// defaultDocumentID is the row the service keeps its overrides in.
const defaultDocumentID = "default"

// SQLiteBackend stores the override document in the naming_overrides table.
type SQLiteBackend struct {
	db *sql.DB
	id string
}

// NewSQLiteBackend creates a backend using the given database.
// The naming_overrides table is created by the service migrations.
func NewSQLiteBackend(db *sql.DB) *SQLiteBackend {
	return &SQLiteBackend{db: db, id: defaultDocumentID}
}

// Load reads the stored document. An absent row yields ErrNoDocument.
func (b *SQLiteBackend) Load(ctx context.Context) ([]byte, error) {
	var document string
	err := b.db.QueryRowContext(ctx,
		`SELECT document FROM naming_overrides WHERE id = ?`, b.id,
	).Scan(&document)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoDocument
	}
	if err != nil {
		return nil, fmt.Errorf("querying naming overrides: %w", err)
	}
	return []byte(document), nil
}

// Save upserts the document row.
func (b *SQLiteBackend) Save(ctx context.Context, data []byte) error {
	_, err := b.db.ExecContext(ctx, `
		INSERT INTO naming_overrides (id, document, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			document = excluded.document,
			updated_at = excluded.updated_at`,
		b.id, string(data), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("saving naming overrides: %w", err)
	}
	return nil
}
