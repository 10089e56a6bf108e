package service

import (
	"context"
	"sync"

	"faq-agent/dao"
	"faq-agent/internal/notify"
	"faq-agent/model"
)

type fakeKB struct {
	answers      []model.KnowledgeAnswer
	err          error
	published    bool
	publishedErr error

	queries       []string
	publishChecks int
}

func (f *fakeKB) Query(ctx context.Context, question string, useTestIndex bool) ([]model.KnowledgeAnswer, error) {
	f.queries = append(f.queries, question)
	if f.err != nil {
		return nil, f.err
	}
	return f.answers, nil
}

func (f *fakeKB) IsPublished(ctx context.Context) (bool, error) {
	f.publishChecks++
	return f.published, f.publishedErr
}

// countingStore wraps the in-memory store and counts writes.
type countingStore struct {
	*dao.MemoryTicketStore
	upserts int
	failErr error
}

func newCountingStore() *countingStore {
	return &countingStore{MemoryTicketStore: dao.NewMemoryTicketStore()}
}

func (s *countingStore) Upsert(ctx context.Context, ticket *model.Ticket) error {
	s.upserts++
	if s.failErr != nil {
		return s.failErr
	}
	return s.MemoryTicketStore.Upsert(ctx, ticket)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []notify.TicketEvent
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, event notify.TicketEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []notify.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]notify.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}
