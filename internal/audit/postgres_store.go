package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresStore keeps the history in an insert-only table.
type PostgresStore struct {
	db *sql.DB

	schemaMu    sync.Mutex
	schemaReady bool
	// createSchema is swapped in tests.
	createSchema func(ctx context.Context) error
}

const schemaTimeout = 10 * time.Second

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	s := &PostgresStore{db: db}
	s.createSchema = s.execSchema
	return s, nil
}

// Open picks the Postgres store when dsn is set and reachable, and the JSON
// file at path otherwise.
func Open(path, dsn string) Store {
	if strings.TrimSpace(dsn) == "" {
		return NewFileStore(path)
	}
	s, err := NewPostgresStore(dsn)
	if err != nil {
		log.Printf("audit: postgres unavailable, falling back to %s: %v", path, err)
		return NewFileStore(path)
	}
	return s
}

func (s *PostgresStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// ensureSchema creates the table once. It runs detached from the caller's
// context so a cancelled request cannot leave the store without a schema, and a
// failure is retried by the next call instead of being remembered.
func (s *PostgresStore) ensureSchema() error {
	s.schemaMu.Lock()
	defer s.schemaMu.Unlock()
	if s.schemaReady {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), schemaTimeout)
	defer cancel()
	if err := s.createSchema(ctx); err != nil {
		return err
	}
	s.schemaReady = true
	return nil
}

func (s *PostgresStore) execSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS audit_events (
	seq         BIGSERIAL PRIMARY KEY,
	actor       TEXT NOT NULL,
	action      TEXT NOT NULL,
	product_id  INTEGER NOT NULL,
	field       TEXT NOT NULL,
	old_value   JSONB,
	new_value   JSONB,
	recorded_at TEXT NOT NULL
)`)
	return err
}

func (s *PostgresStore) Append(ctx context.Context, events ...Event) error {
	if len(events) == 0 {
		return nil
	}
	if err := s.ensureSchema(); err != nil {
		return fmt.Errorf("audit schema: %w", err)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	for _, ev := range events {
		oldRaw, err := json.Marshal(ev.OldValue)
		if err != nil {
			return err
		}
		newRaw, err := json.Marshal(ev.NewValue)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO audit_events (actor, action, product_id, field, old_value, new_value, recorded_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			ev.Actor, string(ev.Action), ev.ProductID, ev.Field, string(oldRaw), string(newRaw), ev.Timestamp,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *PostgresStore) Load(ctx context.Context) ([]Event, error) {
	if err := s.ensureSchema(); err != nil {
		return nil, fmt.Errorf("audit schema: %w", err)
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT actor, action, product_id, field, old_value, new_value, recorded_at
		 FROM audit_events ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Event
	for rows.Next() {
		var (
			ev             Event
			action         string
			oldRaw, newRaw []byte
		)
		if err := rows.Scan(&ev.Actor, &action, &ev.ProductID, &ev.Field, &oldRaw, &newRaw, &ev.Timestamp); err != nil {
			return nil, err
		}
		ev.Action = Action(action)
		ev.OldValue = decodeValue(oldRaw)
		ev.NewValue = decodeValue(newRaw)
		out = append(out, ev)
	}
	return out, rows.Err()
}

func decodeValue(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	return v
}
