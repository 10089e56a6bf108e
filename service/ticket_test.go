package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"faq-agent/internal/notify"
	"faq-agent/model"
)

func newTestManager(store TicketStore, events notify.Publisher) *TicketManager {
	m := NewTicketManager(store, events)
	m.now = func() time.Time { return time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC) }
	return m
}

func expertRequest(id string) model.TicketRequest {
	return model.TicketRequest{
		TicketID:            id,
		Kind:                model.TicketExpert,
		Title:               "Reset link never arrives",
		Description:         "Tried twice",
		UserQuestion:        "How do I reset my password?",
		KnowledgeBaseAnswer: "Go to settings",
		ConversationID:      "conv-1",
		Requester:           model.Participant{Name: "Alex", PrincipalID: "alex@contoso.com", ObjectID: "obj-1"},
		ModifiedBy:          model.Participant{Name: "Alex", ObjectID: "obj-1"},
	}
}

func TestTicketManager_Create(t *testing.T) {
	ctx := context.Background()
	store := newCountingStore()
	events := &recordingPublisher{}
	m := newTestManager(store, events)

	ticket, err := m.Create(ctx, expertRequest("t-1"))
	require.NoError(t, err)

	assert.Equal(t, "t-1", ticket.TicketID)
	assert.Equal(t, model.TicketOpen, ticket.Status)
	assert.Equal(t, time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC), ticket.CreatedAt)
	assert.Equal(t, "How do I reset my password?", ticket.UserQuestion)
	assert.Equal(t, "alex@contoso.com", ticket.RequesterPrincipalID)
	assert.Equal(t, "conv-1", ticket.RequesterConversationID)
	assert.Equal(t, "obj-1", ticket.LastModifiedByObjectID)

	stored, err := store.Get(ctx, "t-1")
	require.NoError(t, err)
	assert.Equal(t, ticket, stored)
	assert.Equal(t, []notify.EventType{notify.TicketCreated}, events.types())
}

func TestTicketManager_CreateValidation(t *testing.T) {
	ctx := context.Background()

	for _, title := range []string{"", "   ", "\t\n"} {
		store := newCountingStore()
		events := &recordingPublisher{}
		m := newTestManager(store, events)

		req := expertRequest("t-1")
		req.Title = title
		_, err := m.Create(ctx, req)

		assert.ErrorIs(t, err, ErrValidation)
		assert.Zero(t, store.upserts, "no write for title %q", title)
		assert.Zero(t, store.Len())
		assert.Empty(t, events.types())
	}
}

func TestTicketManager_CreateRequiresID(t *testing.T) {
	store := newCountingStore()
	_, err := newTestManager(store, nil).Create(context.Background(), expertRequest(""))
	assert.ErrorIs(t, err, ErrMissingTicketID)
	assert.Zero(t, store.upserts)
}

func TestTicketManager_CreateIsIdempotentByID(t *testing.T) {
	ctx := context.Background()
	store := newCountingStore()
	events := &recordingPublisher{}
	m := newTestManager(store, events)

	first, err := m.Create(ctx, expertRequest("t-1"))
	require.NoError(t, err)
	second, err := m.Create(ctx, expertRequest("t-1"))
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, store.Len())
	assert.Equal(t, 1, store.upserts)
	assert.Equal(t, []notify.EventType{notify.TicketCreated}, events.types())
}

func TestTicketManager_CreateNeverReopens(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(newCountingStore(), nil)

	_, err := m.Create(ctx, expertRequest("t-1"))
	require.NoError(t, err)
	_, err = m.Close(ctx, "t-1", model.Participant{Name: "Agent"})
	require.NoError(t, err)

	again, err := m.Create(ctx, expertRequest("t-1"))
	require.NoError(t, err)
	assert.Equal(t, model.TicketClosed, again.Status)
}

func TestTicketManager_DefaultsKindToExpert(t *testing.T) {
	req := expertRequest("t-1")
	req.Kind = ""
	ticket, err := newTestManager(newCountingStore(), nil).Create(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, model.TicketExpert, ticket.Kind)
}

func TestTicketManager_CreateStoreFailure(t *testing.T) {
	store := newCountingStore()
	store.failErr = errors.New("disk full")
	events := &recordingPublisher{}

	_, err := newTestManager(store, events).Create(context.Background(), expertRequest("t-1"))
	assert.ErrorIs(t, err, store.failErr)
	assert.Empty(t, events.types())
}

func TestTicketManager_PublishFailureDoesNotFailCreate(t *testing.T) {
	events := &recordingPublisher{err: errors.New("broker down")}
	ticket, err := newTestManager(newCountingStore(), events).Create(context.Background(), expertRequest("t-1"))
	require.NoError(t, err)
	assert.Equal(t, model.TicketOpen, ticket.Status)
}

func TestTicketManager_Get(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(newCountingStore(), nil)

	_, err := m.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrTicketNotFound)

	_, err = m.Create(ctx, expertRequest("t-1"))
	require.NoError(t, err)
	got, err := m.Get(ctx, "t-1")
	require.NoError(t, err)
	assert.Equal(t, "Reset link never arrives", got.Title)
}

func TestTicketManager_Close(t *testing.T) {
	ctx := context.Background()
	store := newCountingStore()
	events := &recordingPublisher{}
	m := newTestManager(store, events)

	created, err := m.Create(ctx, expertRequest("t-1"))
	require.NoError(t, err)

	closed, err := m.Close(ctx, "t-1", model.Participant{Name: "Agent Smith", ObjectID: "obj-9"})
	require.NoError(t, err)
	assert.Equal(t, model.TicketClosed, closed.Status)
	assert.Equal(t, "Agent Smith", closed.LastModifiedByName)
	assert.Equal(t, "obj-9", closed.LastModifiedByObjectID)
	assert.Equal(t, created.CreatedAt, closed.CreatedAt)
	assert.Equal(t, []notify.EventType{notify.TicketCreated, notify.TicketClosed}, events.types())

	t.Run("second close is an invalid transition", func(t *testing.T) {
		writes := store.upserts
		_, err := m.Close(ctx, "t-1", model.Participant{Name: "Someone Else"})
		assert.ErrorIs(t, err, ErrInvalidTransition)
		assert.Equal(t, writes, store.upserts)

		stored, err := m.Get(ctx, "t-1")
		require.NoError(t, err)
		assert.Equal(t, closed, stored)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := m.Close(ctx, "nope", model.Participant{})
		assert.ErrorIs(t, err, ErrTicketNotFound)
	})
}

func TestTicketManager_CloseWithoutModifierKeepsLastModifier(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(newCountingStore(), nil)
	_, err := m.Create(ctx, expertRequest("t-1"))
	require.NoError(t, err)

	closed, err := m.Close(ctx, "t-1", model.Participant{})
	require.NoError(t, err)
	assert.Equal(t, "Alex", closed.LastModifiedByName)
}
