package dao

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"faq-agent/model"
)

// SQLiteTicketStore implements the ticket store on an embedded SQLite database.
type SQLiteTicketStore struct {
	db *sql.DB
}

// NewSQLiteTicketStore opens (or creates) the database and runs migrations.
func NewSQLiteTicketStore(path string) (*SQLiteTicketStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("ticket store: open: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("ticket store: wal: %w", err)
	}

	s := &SQLiteTicketStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteTicketStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS tickets (
			ticket_id                 TEXT PRIMARY KEY,
			kind                      TEXT NOT NULL DEFAULT 'expert',
			status                    TEXT NOT NULL DEFAULT 'open',
			created_at                TEXT NOT NULL,
			title                     TEXT NOT NULL,
			description               TEXT NOT NULL DEFAULT '',
			user_question             TEXT NOT NULL DEFAULT '',
			knowledge_base_answer     TEXT NOT NULL DEFAULT '',
			requester_name            TEXT NOT NULL DEFAULT '',
			requester_principal_id    TEXT NOT NULL DEFAULT '',
			requester_conversation_id TEXT NOT NULL DEFAULT '',
			last_modified_by_name     TEXT NOT NULL DEFAULT '',
			last_modified_by_object_id TEXT NOT NULL DEFAULT ''
		);

		CREATE INDEX IF NOT EXISTS idx_tickets_status ON tickets(status);
	`)
	if err != nil {
		return fmt.Errorf("ticket store: migrate: %w", err)
	}
	return nil
}

// Upsert writes the ticket. created_at is kept from the first write.
func (s *SQLiteTicketStore) Upsert(ctx context.Context, t *model.Ticket) error {
	if err := validateTicket(t); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tickets (ticket_id, kind, status, created_at, title, description, user_question,
			knowledge_base_answer, requester_name, requester_principal_id, requester_conversation_id,
			last_modified_by_name, last_modified_by_object_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(ticket_id) DO UPDATE SET
			kind=excluded.kind, status=excluded.status, title=excluded.title, description=excluded.description,
			user_question=excluded.user_question, knowledge_base_answer=excluded.knowledge_base_answer,
			requester_name=excluded.requester_name, requester_principal_id=excluded.requester_principal_id,
			requester_conversation_id=excluded.requester_conversation_id,
			last_modified_by_name=excluded.last_modified_by_name,
			last_modified_by_object_id=excluded.last_modified_by_object_id
	`, t.TicketID, string(t.Kind), string(t.Status), t.CreatedAt.UTC().Format(time.RFC3339Nano), t.Title,
		t.Description, t.UserQuestion, t.KnowledgeBaseAnswer, t.RequesterName, t.RequesterPrincipalID,
		t.RequesterConversationID, t.LastModifiedByName, t.LastModifiedByObjectID)
	if err != nil {
		return fmt.Errorf("ticket store: upsert: %w", err)
	}
	return nil
}

func (s *SQLiteTicketStore) Get(ctx context.Context, ticketID string) (*model.Ticket, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT ticket_id, kind, status, created_at, title, description, user_question, knowledge_base_answer,
			requester_name, requester_principal_id, requester_conversation_id,
			last_modified_by_name, last_modified_by_object_id
		FROM tickets WHERE ticket_id = ?`, ticketID)

	var (
		t         model.Ticket
		kind      string
		status    string
		createdAt string
	)
	err := row.Scan(&t.TicketID, &kind, &status, &createdAt, &t.Title, &t.Description, &t.UserQuestion,
		&t.KnowledgeBaseAnswer, &t.RequesterName, &t.RequesterPrincipalID, &t.RequesterConversationID,
		&t.LastModifiedByName, &t.LastModifiedByObjectID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("ticket %q: %w", ticketID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("ticket store: get: %w", err)
	}

	t.Kind = model.TicketKind(kind)
	t.Status = model.TicketStatus(status)
	t.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("ticket store: parse created_at: %w", err)
	}
	return &t, nil
}

func (s *SQLiteTicketStore) Close() error {
	return s.db.Close()
}
