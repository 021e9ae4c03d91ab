package supchat

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

type fileRepo struct {
	path string
}

// NewFileRepo writes snapshots as indented JSON to path.
func NewFileRepo(path string) SnapshotRepo {
	return &fileRepo{path: path}
}

func (r *fileRepo) Save(_ context.Context, snap Snapshot) error {
	b, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.WriteFile(r.path, b, 0o644); err != nil {
		return fmt.Errorf("write snapshot %s: %w", r.path, err)
	}
	return nil
}

// SQLRepo stores snapshots in Postgres (lib/pq) or SQLite (modernc.org/sqlite).
type SQLRepo struct {
	db     *sql.DB
	driver string
}

func NewSQLRepo(db *sql.DB, driver string) *SQLRepo {
	return &SQLRepo{db: db, driver: driver}
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS people (
		id TEXT PRIMARY KEY,
		role TEXT NOT NULL,
		full_name TEXT NOT NULL,
		city TEXT NOT NULL,
		date_of_birth TEXT NOT NULL,
		experience_months INTEGER NOT NULL,
		current_chat_id TEXT,
		post TEXT,
		is_available BOOLEAN
	)`,
	`CREATE TABLE IF NOT EXISTS chats (
		id TEXT PRIMARY KEY,
		client_id TEXT NOT NULL,
		support_ids TEXT NOT NULL,
		opened_at TEXT NOT NULL,
		closed_at TEXT,
		is_open BOOLEAN NOT NULL,
		csat INTEGER
	)`,
	`CREATE TABLE IF NOT EXISTS messages (
		chat_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		sender_id TEXT NOT NULL,
		text TEXT NOT NULL,
		sent_at TEXT NOT NULL,
		PRIMARY KEY (chat_id, seq)
	)`,
}

func (r *SQLRepo) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

const upsertPerson = `
	INSERT INTO people (id, role, full_name, city, date_of_birth, experience_months, current_chat_id, post, is_available)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (id) DO UPDATE SET
		current_chat_id = excluded.current_chat_id,
		is_available = excluded.is_available`

const upsertChat = `
	INSERT INTO chats (id, client_id, support_ids, opened_at, closed_at, is_open, csat)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (id) DO UPDATE SET
		support_ids = excluded.support_ids,
		closed_at = excluded.closed_at,
		is_open = excluded.is_open,
		csat = excluded.csat`

// Save upserts every record of the snapshot in one transaction.
func (r *SQLRepo) Save(ctx context.Context, snap Snapshot) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, a := range snap.Agents {
		if _, err := tx.ExecContext(ctx, r.rebind(upsertPerson),
			a.ID, string(RoleAgent), a.FullName, a.City, a.DateOfBirth, a.ExperienceMonths,
			nullString(a.CurrentChatID), string(a.Post), a.IsAvailable,
		); err != nil {
			return fmt.Errorf("save agent %s: %w", a.ID, err)
		}
	}
	for _, c := range snap.Clients {
		if _, err := tx.ExecContext(ctx, r.rebind(upsertPerson),
			c.ID, string(RoleClient), c.FullName, c.City, c.DateOfBirth, c.ExperienceMonths,
			nullString(c.CurrentChatID), nil, nil,
		); err != nil {
			return fmt.Errorf("save client %s: %w", c.ID, err)
		}
	}

	for _, c := range snap.Chats {
		supportIDs, err := json.Marshal(c.SupportIDs)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, r.rebind(upsertChat),
			c.ID, c.ClientID, string(supportIDs), c.OpenedAt, nullString(c.ClosedAt), c.IsOpen, nullInt(c.Csat),
		); err != nil {
			return fmt.Errorf("save chat %s: %w", c.ID, err)
		}

		if _, err := tx.ExecContext(ctx, r.rebind(`DELETE FROM messages WHERE chat_id = ?`), c.ID); err != nil {
			return fmt.Errorf("reset messages %s: %w", c.ID, err)
		}
		for i, m := range c.Messages {
			if _, err := tx.ExecContext(ctx,
				r.rebind(`INSERT INTO messages (chat_id, seq, sender_id, text, sent_at) VALUES (?, ?, ?, ?, ?)`),
				c.ID, i, m.SenderID, m.Text, m.SentAt,
			); err != nil {
				return fmt.Errorf("save message %s/%d: %w", c.ID, i, err)
			}
		}
	}

	return tx.Commit()
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

// rebind turns ? placeholders into $n for postgres.
func (r *SQLRepo) rebind(q string) string {
	if r.driver != "postgres" {
		return q
	}
	var b strings.Builder
	n := 0
	for _, ch := range q {
		if ch == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}
