package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/scottpeterman/velocitycollector/internal/model"
	"github.com/scottpeterman/velocitycollector/internal/store"
)

// TemplateStore is the read-only structured-text template catalog. It holds
// no handle of its own. The job runner passes every device worker the same
// templates *sql.DB, which OpenConnection caps at one open connection, so
// concurrent lookups queue on that single connection.
type TemplateStore struct{}

// NewTemplateStore constructs the sqlite-backed TemplateStore.
func NewTemplateStore() *TemplateStore { return &TemplateStore{} }

var _ store.TemplateStore = (*TemplateStore)(nil)

// FindByRequiredTerms returns every template whose identifier contains all
// of terms, matching §4.4's "splits filter on underscores, selects
// candidates whose identifier contains every required term" selection rule.
func (s *TemplateStore) FindByRequiredTerms(ctx context.Context, tx store.DBTransaction, terms []string) ([]model.Template, error) {
	if len(terms) == 0 {
		return nil, nil
	}

	query := "SELECT id, identifier, body, dedup_hash FROM templates WHERE 1=1"
	var args []interface{}
	for range terms {
		query += " AND LOWER(identifier) LIKE ?"
	}
	for _, t := range terms {
		args = append(args, "%"+strings.ToLower(t)+"%")
	}

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find templates by terms: %w", err)
	}
	defer rows.Close()

	var out []model.Template
	for rows.Next() {
		var t model.Template
		if err := rows.Scan(&t.ID, &t.Identifier, &t.Body, &t.DedupHash); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *TemplateStore) Get(ctx context.Context, tx store.DBTransaction, identifier string) (model.Template, error) {
	row := tx.QueryRowContext(ctx, "SELECT id, identifier, body, dedup_hash FROM templates WHERE identifier = ?", identifier)
	var t model.Template
	err := row.Scan(&t.ID, &t.Identifier, &t.Body, &t.DedupHash)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Template{}, store.ErrNotFound
	}
	return t, err
}
