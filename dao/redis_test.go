package dao

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"faq-agent/model"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := NewRedisClient(mr.Addr(), "", 0)
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return client, mr
}

func TestRedisTicketStore(t *testing.T) {
	runTicketStoreTests(t, func(t *testing.T) ticketStore {
		client, _ := setupTestRedis(t)
		return NewRedisTicketStore(client)
	})
}

func TestRedisTicketStore_NoExpiry(t *testing.T) {
	client, mr := setupTestRedis(t)
	s := NewRedisTicketStore(client)

	require.NoError(t, s.Upsert(context.Background(), sampleTicket("t-100")))
	assert.Equal(t, time.Duration(0), mr.TTL(ticketKeyPrefix+"t-100"))
}

func TestRedisSessionStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	client, mr := setupTestRedis(t)
	s := NewRedisSessionStore(client, time.Hour)

	got, err := s.Get(ctx, "conv-1")
	require.NoError(t, err)
	assert.Nil(t, got, "absent session is nil without error")

	session := &model.SupportSession{
		ConversationID: "conv-1",
		State:          model.StateAwaitingHelpful,
		LastQuestion:   "How do I reset my password?",
		LastAnswerText: "Go to settings",
		IsAnswered:     true,
	}
	require.NoError(t, s.Save(ctx, session))
	assert.Equal(t, time.Hour, mr.TTL(sessionKeyPrefix+"conv-1"))

	got, err = s.Get(ctx, "conv-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, *session, *got)

	require.NoError(t, s.Delete(ctx, "conv-1"))
	got, err = s.Get(ctx, "conv-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisSessionStore_Expires(t *testing.T) {
	ctx := context.Background()
	client, mr := setupTestRedis(t)
	s := NewRedisSessionStore(client, 24*time.Hour)

	require.NoError(t, s.Save(ctx, &model.SupportSession{ConversationID: "conv-2", State: model.StateAwaitingMoreHelp}))
	mr.FastForward(25 * time.Hour)

	got, err := s.Get(ctx, "conv-2")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisSessionStore_ConversationsIsolated(t *testing.T) {
	ctx := context.Background()
	client, _ := setupTestRedis(t)
	s := NewRedisSessionStore(client, time.Hour)

	require.NoError(t, s.Save(ctx, &model.SupportSession{ConversationID: "a", LastQuestion: "first"}))
	require.NoError(t, s.Save(ctx, &model.SupportSession{ConversationID: "b", LastQuestion: "second"}))
	require.NoError(t, s.Save(ctx, &model.SupportSession{ConversationID: "a", LastQuestion: "third"}))

	a, err := s.Get(ctx, "a")
	require.NoError(t, err)
	b, err := s.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, "third", a.LastQuestion)
	assert.Equal(t, "second", b.LastQuestion)
}

func TestRedisSessionStore_InvalidInput(t *testing.T) {
	ctx := context.Background()
	client, _ := setupTestRedis(t)
	s := NewRedisSessionStore(client, time.Hour)

	assert.ErrorIs(t, s.Save(ctx, nil), ErrInvalidSession)
	assert.ErrorIs(t, s.Save(ctx, &model.SupportSession{}), ErrInvalidSession)
	_, err := s.Get(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidParam)
	assert.ErrorIs(t, s.Delete(ctx, ""), ErrInvalidParam)
	assert.NoError(t, s.Ping(ctx))
}
