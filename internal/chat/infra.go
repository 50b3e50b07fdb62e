package chat

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

// PostgresJournal stores events in the chat_events table:
//
//	CREATE TABLE chat_events (
//	    id          BIGSERIAL PRIMARY KEY,
//	    session_id  TEXT NOT NULL,
//	    customer_id TEXT NOT NULL,
//	    type        TEXT NOT NULL,
//	    payload     JSONB NOT NULL,
//	    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
//	);
type PostgresJournal struct {
	db *sql.DB
}

func NewPostgresJournal(db *sql.DB) *PostgresJournal {
	return &PostgresJournal{db: db}
}

func (j *PostgresJournal) Open(_ context.Context, customerID, sessionID string) (EventLog, error) {
	return &pgLog{db: j.db, customerID: customerID, sessionID: sessionID}, nil
}

type pgLog struct {
	db         *sql.DB
	customerID string
	sessionID  string
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

func insertEvent(customerID, sessionID string, ev Event) (string, []any, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return "", nil, fmt.Errorf("encode event: %w", err)
	}
	return psql.Insert("chat_events").
		Columns("session_id", "customer_id", "type", "payload").
		Values(sessionID, customerID, string(ev.Type), string(payload)).
		ToSql()
}

func selectEvents(customerID, sessionID string) (string, []any, error) {
	return psql.Select("payload").
		From("chat_events").
		Where(sq.Eq{"session_id": sessionID, "customer_id": customerID}).
		OrderBy("id ASC").
		ToSql()
}

func (l *pgLog) Append(ctx context.Context, ev Event) error {
	query, args, err := insertEvent(l.customerID, l.sessionID, ev)
	if err != nil {
		return err
	}
	if _, err := l.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (l *pgLog) Replay(ctx context.Context) ([]Event, error) {
	query, args, err := selectEvents(l.customerID, l.sessionID)
	if err != nil {
		return nil, err
	}
	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var ev Event
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// Close is a no-op; the pool belongs to the caller.
func (l *pgLog) Close() error { return nil }
