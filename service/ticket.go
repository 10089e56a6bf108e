package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"faq-agent/dao"
	"faq-agent/internal/notify"
	"faq-agent/model"
	"faq-agent/service/flows"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrMissingTicketID   = errors.New("ticket id is required")
	ErrTicketNotFound    = errors.New("ticket not found")
	ErrInvalidTransition = errors.New("invalid ticket status transition")
)

// TicketStore is durable key/value persistence keyed by ticket id. Get
// returns an error matching dao.ErrNotFound for unknown ids.
type TicketStore interface {
	Upsert(ctx context.Context, ticket *model.Ticket) error
	Get(ctx context.Context, ticketID string) (*model.Ticket, error)
}

// TicketManager owns the ticket lifecycle: open on creation, closed once.
type TicketManager struct {
	store  TicketStore
	events notify.Publisher
	now    func() time.Time
}

func NewTicketManager(store TicketStore, events notify.Publisher) *TicketManager {
	if events == nil {
		events = notify.Nop{}
	}
	return &TicketManager{
		store:  store,
		events: events,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Create opens a ticket under the caller-supplied id. Calling it again with
// an id that already exists returns the stored ticket unchanged, so a retried
// submission never produces a second ticket or reopens a closed one.
func (m *TicketManager) Create(ctx context.Context, req model.TicketRequest) (*model.Ticket, error) {
	if !flows.HasContent(req.Title) {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if req.TicketID == "" {
		return nil, ErrMissingTicketID
	}

	existing, err := m.store.Get(ctx, req.TicketID)
	switch {
	case err == nil:
		log.Printf("[TicketManager] ticket %s already exists, returning stored copy", req.TicketID)
		return existing, nil
	case !errors.Is(err, dao.ErrNotFound):
		return nil, fmt.Errorf("load ticket %s: %w", req.TicketID, err)
	}

	ticket := &model.Ticket{
		TicketID:                req.TicketID,
		Kind:                    req.Kind,
		Status:                  model.TicketOpen,
		CreatedAt:               m.now(),
		Title:                   req.Title,
		Description:             req.Description,
		UserQuestion:            req.UserQuestion,
		KnowledgeBaseAnswer:     req.KnowledgeBaseAnswer,
		RequesterName:           req.Requester.Name,
		RequesterPrincipalID:    req.Requester.PrincipalID,
		RequesterConversationID: req.ConversationID,
		LastModifiedByName:      req.ModifiedBy.Name,
		LastModifiedByObjectID:  req.ModifiedBy.ObjectID,
	}
	if ticket.Kind == "" {
		ticket.Kind = model.TicketExpert
	}

	if err := m.store.Upsert(ctx, ticket); err != nil {
		return nil, fmt.Errorf("save ticket %s: %w", ticket.TicketID, err)
	}
	log.Printf("[TicketManager] created %s ticket %s for conversation %s", ticket.Kind, ticket.TicketID, ticket.RequesterConversationID)

	m.publish(ctx, notify.TicketCreated, ticket)
	return ticket, nil
}

func (m *TicketManager) Get(ctx context.Context, ticketID string) (*model.Ticket, error) {
	ticket, err := m.store.Get(ctx, ticketID)
	if errors.Is(err, dao.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrTicketNotFound, ticketID)
	}
	if err != nil {
		return nil, fmt.Errorf("load ticket %s: %w", ticketID, err)
	}
	return ticket, nil
}

// Close moves an open ticket to closed. Status never goes back to open.
func (m *TicketManager) Close(ctx context.Context, ticketID string, by model.Participant) (*model.Ticket, error) {
	ticket, err := m.Get(ctx, ticketID)
	if err != nil {
		log.Printf("[TicketManager] close %s: %v", ticketID, err)
		return nil, err
	}
	if ticket.Status == model.TicketClosed {
		log.Printf("[TicketManager] close %s: already closed", ticketID)
		return nil, fmt.Errorf("%w: ticket %s is already closed", ErrInvalidTransition, ticketID)
	}

	ticket.Status = model.TicketClosed
	if by.Name != "" || by.ObjectID != "" {
		ticket.LastModifiedByName = by.Name
		ticket.LastModifiedByObjectID = by.ObjectID
	}

	if err := m.store.Upsert(ctx, ticket); err != nil {
		return nil, fmt.Errorf("save ticket %s: %w", ticketID, err)
	}
	log.Printf("[TicketManager] closed ticket %s", ticketID)

	m.publish(ctx, notify.TicketClosed, ticket)
	return ticket, nil
}

// publish failures are logged only: the ticket is already persisted.
func (m *TicketManager) publish(ctx context.Context, typ notify.EventType, ticket *model.Ticket) {
	event := notify.TicketEvent{Type: typ, Ticket: *ticket, OccurredAt: m.now()}
	if err := m.events.Publish(ctx, event); err != nil {
		log.Printf("[TicketManager] publish %s for ticket %s failed: %v", typ, ticket.TicketID, err)
	}
}
