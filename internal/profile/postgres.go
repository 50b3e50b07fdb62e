package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

// PostgresSource reads profiles from the customers table.
type PostgresSource struct {
	db *sql.DB
}

func NewPostgresSource(db *sql.DB) *PostgresSource {
	return &PostgresSource{db: db}
}

func customerQuery(customerID string) (string, []any, error) {
	cols := make([]string, len(columns))
	for i, c := range columns {
		cols[i] = c.sql
	}
	return sq.Select(cols...).
		From("customers").
		Where(sq.Eq{"customer_id": customerID}).
		Limit(1).
		PlaceholderFormat(sq.Dollar).
		ToSql()
}

func (s *PostgresSource) Lookup(ctx context.Context, customerID string) (Profile, error) {
	query, args, err := customerQuery(customerID)
	if err != nil {
		return Profile{}, fmt.Errorf("build customer query: %w", err)
	}

	vals := make([]sql.NullString, len(columns))
	dest := make([]any, len(columns))
	for i := range vals {
		dest[i] = &vals[i]
	}

	if err := s.db.QueryRowContext(ctx, query, args...).Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Profile{}, ErrNotFound
		}
		return Profile{}, fmt.Errorf("query customer: %w", err)
	}

	var p Profile
	for i, c := range columns {
		if vals[i].Valid {
			p.Set(c.name, vals[i].String)
		}
	}
	return p, nil
}
