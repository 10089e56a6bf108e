package dao

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"faq-agent/model"

	"github.com/go-redis/redis/v8"
)

func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// RedisSessionStore keeps one support session per conversation id. Saves
// from the same conversation are last-writer-wins.
type RedisSessionStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{
		client:    client,
		keyPrefix: sessionKeyPrefix,
		ttl:       ttl,
	}
}

// Get returns nil, nil when the conversation has no session.
func (s *RedisSessionStore) Get(ctx context.Context, conversationID string) (*model.SupportSession, error) {
	if conversationID == "" {
		return nil, fmt.Errorf("%w: conversationID is empty", ErrInvalidParam)
	}

	data, err := s.client.Get(ctx, s.keyPrefix+conversationID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var session model.SupportSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, err
	}

	return &session, nil
}

func (s *RedisSessionStore) Save(ctx context.Context, session *model.SupportSession) error {
	if err := validateSession(session); err != nil {
		return err
	}

	data, err := json.Marshal(session)
	if err != nil {
		return err
	}

	return s.client.Set(ctx, s.keyPrefix+session.ConversationID, data, s.ttl).Err()
}

func (s *RedisSessionStore) Delete(ctx context.Context, conversationID string) error {
	if conversationID == "" {
		return fmt.Errorf("%w: conversationID is empty", ErrInvalidParam)
	}

	return s.client.Del(ctx, s.keyPrefix+conversationID).Err()
}

func (s *RedisSessionStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// RedisTicketStore persists tickets as JSON documents keyed by ticket id.
// Tickets never expire.
type RedisTicketStore struct {
	client    *redis.Client
	keyPrefix string
}

func NewRedisTicketStore(client *redis.Client) *RedisTicketStore {
	return &RedisTicketStore{
		client:    client,
		keyPrefix: ticketKeyPrefix,
	}
}

func (s *RedisTicketStore) Upsert(ctx context.Context, ticket *model.Ticket) error {
	if err := validateTicket(ticket); err != nil {
		return err
	}

	data, err := json.Marshal(ticket)
	if err != nil {
		return err
	}

	return s.client.Set(ctx, s.keyPrefix+ticket.TicketID, data, 0).Err()
}

func (s *RedisTicketStore) Get(ctx context.Context, ticketID string) (*model.Ticket, error) {
	if ticketID == "" {
		return nil, fmt.Errorf("%w: ticketID is empty", ErrInvalidParam)
	}

	data, err := s.client.Get(ctx, s.keyPrefix+ticketID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("ticket %q: %w", ticketID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	var ticket model.Ticket
	if err := json.Unmarshal(data, &ticket); err != nil {
		return nil, err
	}

	return &ticket, nil
}

// validateSession rejects sessions that cannot be keyed.
func validateSession(session *model.SupportSession) error {
	if session == nil {
		return fmt.Errorf("%w: session is nil", ErrInvalidSession)
	}
	if session.ConversationID == "" {
		return fmt.Errorf("%w: session.ConversationID is empty", ErrInvalidSession)
	}
	return nil
}

func validateTicket(ticket *model.Ticket) error {
	if ticket == nil {
		return fmt.Errorf("%w: ticket is nil", ErrInvalidTicket)
	}
	if ticket.TicketID == "" {
		return fmt.Errorf("%w: ticket.TicketID is empty", ErrInvalidTicket)
	}
	return nil
}
