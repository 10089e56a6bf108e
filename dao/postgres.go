package dao

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"faq-agent/model"
)

// PostgresTicketStore implements the ticket store on PostgreSQL.
type PostgresTicketStore struct {
	pool *pgxpool.Pool
}

func NewPostgresTicketStore(ctx context.Context, connString string) (*PostgresTicketStore, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("ticket store: connect: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ticket store: ping: %w", err)
	}

	s := &PostgresTicketStore{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresTicketStore) migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS tickets (
			ticket_id                  TEXT PRIMARY KEY,
			kind                       TEXT NOT NULL DEFAULT 'expert',
			status                     TEXT NOT NULL DEFAULT 'open',
			created_at                 TIMESTAMPTZ NOT NULL,
			title                      TEXT NOT NULL,
			description                TEXT NOT NULL DEFAULT '',
			user_question              TEXT NOT NULL DEFAULT '',
			knowledge_base_answer      TEXT NOT NULL DEFAULT '',
			requester_name             TEXT NOT NULL DEFAULT '',
			requester_principal_id     TEXT NOT NULL DEFAULT '',
			requester_conversation_id  TEXT NOT NULL DEFAULT '',
			last_modified_by_name      TEXT NOT NULL DEFAULT '',
			last_modified_by_object_id TEXT NOT NULL DEFAULT ''
		)`)
	if err != nil {
		return fmt.Errorf("ticket store: migrate: %w", err)
	}
	return nil
}

// Upsert writes the ticket. created_at is kept from the first write.
func (s *PostgresTicketStore) Upsert(ctx context.Context, t *model.Ticket) error {
	if err := validateTicket(t); err != nil {
		return err
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO tickets (ticket_id, kind, status, created_at, title, description, user_question,
			knowledge_base_answer, requester_name, requester_principal_id, requester_conversation_id,
			last_modified_by_name, last_modified_by_object_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (ticket_id) DO UPDATE SET
			kind = EXCLUDED.kind, status = EXCLUDED.status, title = EXCLUDED.title,
			description = EXCLUDED.description, user_question = EXCLUDED.user_question,
			knowledge_base_answer = EXCLUDED.knowledge_base_answer, requester_name = EXCLUDED.requester_name,
			requester_principal_id = EXCLUDED.requester_principal_id,
			requester_conversation_id = EXCLUDED.requester_conversation_id,
			last_modified_by_name = EXCLUDED.last_modified_by_name,
			last_modified_by_object_id = EXCLUDED.last_modified_by_object_id`,
		t.TicketID, string(t.Kind), string(t.Status), t.CreatedAt.UTC(), t.Title, t.Description,
		t.UserQuestion, t.KnowledgeBaseAnswer, t.RequesterName, t.RequesterPrincipalID,
		t.RequesterConversationID, t.LastModifiedByName, t.LastModifiedByObjectID)
	if err != nil {
		return fmt.Errorf("ticket store: upsert: %w", err)
	}
	return nil
}

func (s *PostgresTicketStore) Get(ctx context.Context, ticketID string) (*model.Ticket, error) {
	var (
		t      model.Ticket
		kind   string
		status string
	)
	err := s.pool.QueryRow(ctx, `
		SELECT ticket_id, kind, status, created_at, title, description, user_question, knowledge_base_answer,
			requester_name, requester_principal_id, requester_conversation_id,
			last_modified_by_name, last_modified_by_object_id
		FROM tickets WHERE ticket_id = $1`, ticketID).Scan(
		&t.TicketID, &kind, &status, &t.CreatedAt, &t.Title, &t.Description, &t.UserQuestion,
		&t.KnowledgeBaseAnswer, &t.RequesterName, &t.RequesterPrincipalID, &t.RequesterConversationID,
		&t.LastModifiedByName, &t.LastModifiedByObjectID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("ticket %q: %w", ticketID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("ticket store: get: %w", err)
	}

	t.Kind = model.TicketKind(kind)
	t.Status = model.TicketStatus(status)
	t.CreatedAt = t.CreatedAt.UTC()
	return &t, nil
}

func (s *PostgresTicketStore) Close() error {
	s.pool.Close()
	return nil
}
