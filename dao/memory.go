package dao

import (
	"context"
	"fmt"
	"sync"

	"faq-agent/model"
)

// MemorySessionStore is a process-local SessionStore for development and tests.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]model.SupportSession
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]model.SupportSession)}
}

func (s *MemorySessionStore) Get(ctx context.Context, conversationID string) (*model.SupportSession, error) {
	if conversationID == "" {
		return nil, fmt.Errorf("%w: conversationID is empty", ErrInvalidParam)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[conversationID]
	if !ok {
		return nil, nil
	}
	session.Prompts = append([]model.Prompt(nil), session.Prompts...)
	return &session, nil
}

func (s *MemorySessionStore) Save(ctx context.Context, session *model.SupportSession) error {
	if err := validateSession(session); err != nil {
		return err
	}

	stored := *session
	stored.Prompts = append([]model.Prompt(nil), session.Prompts...)

	s.mu.Lock()
	s.sessions[session.ConversationID] = stored
	s.mu.Unlock()
	return nil
}

func (s *MemorySessionStore) Delete(ctx context.Context, conversationID string) error {
	if conversationID == "" {
		return fmt.Errorf("%w: conversationID is empty", ErrInvalidParam)
	}

	s.mu.Lock()
	delete(s.sessions, conversationID)
	s.mu.Unlock()
	return nil
}

func (s *MemorySessionStore) Ping(ctx context.Context) error { return nil }

// MemoryTicketStore is a process-local TicketStore for development and tests.
type MemoryTicketStore struct {
	mu      sync.RWMutex
	tickets map[string]model.Ticket
}

func NewMemoryTicketStore() *MemoryTicketStore {
	return &MemoryTicketStore{tickets: make(map[string]model.Ticket)}
}

func (s *MemoryTicketStore) Upsert(ctx context.Context, ticket *model.Ticket) error {
	if err := validateTicket(ticket); err != nil {
		return err
	}

	s.mu.Lock()
	s.tickets[ticket.TicketID] = *ticket
	s.mu.Unlock()
	return nil
}

func (s *MemoryTicketStore) Get(ctx context.Context, ticketID string) (*model.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ticket, ok := s.tickets[ticketID]
	if !ok {
		return nil, fmt.Errorf("ticket %q: %w", ticketID, ErrNotFound)
	}
	return &ticket, nil
}

// Len reports how many tickets are stored.
func (s *MemoryTicketStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tickets)
}
