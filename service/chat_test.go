package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"faq-agent/dao"
	"faq-agent/internal/transport"
	"faq-agent/model"
	"faq-agent/utils"
)

type chatFixture struct {
	svc      *ChatService
	kb       *fakeKB
	sessions *dao.MemorySessionStore
	tickets  *countingStore
}

func newChatFixture() *chatFixture {
	f := &chatFixture{
		kb:       &fakeKB{},
		sessions: dao.NewMemorySessionStore(),
		tickets:  newCountingStore(),
	}
	f.svc = NewChatService(f.kb, f.sessions, newTestManager(f.tickets, nil))

	n := 0
	f.svc.newTicketID = func() string {
		n++
		return fmt.Sprintf("tid-%d", n)
	}
	return f
}

func (f *chatFixture) turn(t *testing.T, act model.Activity) (model.SupportState, []model.OutboundMessage) {
	t.Helper()
	if act.ConversationID == "" {
		act.ConversationID = "conv-1"
	}
	if act.FromName == "" {
		act.FromName = "Alex"
		act.FromPrincipalName = "alex@contoso.com"
		act.FromObjectID = "obj-1"
	}
	rec := transport.NewRecorder(act)
	state, err := f.svc.HandleTurn(context.Background(), act, rec)
	require.NoError(t, err)
	return state, rec.Messages()
}

func (f *chatFixture) session(t *testing.T) *model.SupportSession {
	t.Helper()
	s, err := f.sessions.Get(context.Background(), "conv-1")
	require.NoError(t, err)
	return s
}

const resetQuestion = "How do I reset my password?"

func (f *chatFixture) scenarioA(t *testing.T) []model.OutboundMessage {
	f.kb.answers = []model.KnowledgeAnswer{{ID: 7, Text: "Go to settings", Score: 92}}
	state, msgs := f.turn(t, model.Activity{Text: resetQuestion})
	assert.Equal(t, model.StateAwaitingHelpful, state)
	return msgs
}

func TestChat_ScenarioA_PlainAnswerAsksIfHelpful(t *testing.T) {
	f := newChatFixture()
	msgs := f.scenarioA(t)

	require.Len(t, msgs, 2)
	assert.Equal(t, model.OutboundText, msgs[0].Kind)
	assert.Equal(t, "Go to settings", msgs[0].Text)
	assert.Equal(t, model.OutboundCard, msgs[1].Kind)
	assert.Equal(t, model.CardHelpful, msgs[1].Card.Kind)

	s := f.session(t)
	require.NotNil(t, s)
	assert.True(t, s.IsAnswered)
	assert.Equal(t, resetQuestion, s.LastQuestion)
	assert.NotEmpty(t, s.UpdatedAt)
	assert.Equal(t, []string{resetQuestion}, f.kb.queries)
}

func TestChat_ScenarioB_EscalationCreatesOneTicket(t *testing.T) {
	f := newChatFixture()
	f.scenarioA(t)

	state, msgs := f.turn(t, model.Activity{Text: "no"})
	assert.Equal(t, model.StateAwaitingMoreHelp, state)
	require.Len(t, msgs, 1)
	assert.Equal(t, model.CardMoreHelp, msgs[0].Card.Kind)
	assert.False(t, f.session(t).IsUseful)

	expert := msgs[0].Card.Actions[0]
	require.Equal(t, utils.CommandAskAnExpert, expert.Command)
	state, msgs = f.turn(t, model.Activity{Text: expert.Command, Value: expert.Payload})
	assert.Equal(t, model.StateCollectingTicket, state)
	require.Len(t, msgs, 1)
	form := msgs[0].Card.Form
	require.NotNil(t, form)
	assert.Equal(t, resetQuestion, form.UserQuestion)

	filled := *form
	filled.Title = "Reset link never arrives"
	state, msgs = f.turn(t, model.Activity{ReplyToID: "form-msg", Value: &filled})
	assert.Equal(t, model.StateIdle, state)

	require.Equal(t, 1, f.tickets.Len())
	ticket, err := f.tickets.Get(context.Background(), form.TicketID)
	require.NoError(t, err)
	assert.Equal(t, model.TicketOpen, ticket.Status)
	assert.Equal(t, resetQuestion, ticket.UserQuestion)
	assert.Equal(t, "Go to settings", ticket.KnowledgeBaseAnswer)
	assert.Equal(t, "alex@contoso.com", ticket.RequesterPrincipalID)
	assert.Equal(t, "conv-1", ticket.RequesterConversationID)

	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[0].Text, ticket.TicketID)
	assert.Equal(t, model.CardTicketCreated, msgs[1].Card.Kind)

	assert.Nil(t, f.session(t), "session closes after the ticket is reported")
}

func TestChat_RetriedSubmissionDoesNotDuplicate(t *testing.T) {
	f := newChatFixture()
	_, msgs := f.turn(t, model.Activity{Text: "ask_an_expert"})
	filled := *msgs[0].Card.Form
	filled.Title = "Need a hand"

	_, first := f.turn(t, model.Activity{Value: &filled})
	_, second := f.turn(t, model.Activity{Value: &filled})

	assert.Equal(t, 1, f.tickets.Len())
	assert.Equal(t, 1, f.tickets.upserts)
	assert.Equal(t, first, second)
}

func TestChat_ScenarioC_NoMatch(t *testing.T) {
	f := newChatFixture()
	f.kb.answers = []model.KnowledgeAnswer{{ID: model.NoMatchID, Text: "No good match found in KB."}}

	state, msgs := f.turn(t, model.Activity{Text: "what is foo"})

	assert.Equal(t, model.StateIdle, state)
	require.Len(t, msgs, 1)
	assert.Equal(t, model.CardUnrecognized, msgs[0].Card.Kind)
	assert.Nil(t, f.session(t))
	assert.Zero(t, f.tickets.upserts)
}

func TestChat_ScenarioD_EmptyTitleRedisplaysInPlace(t *testing.T) {
	f := newChatFixture()
	f.scenarioA(t)
	f.turn(t, model.Activity{Text: "no"})
	_, msgs := f.turn(t, model.Activity{Text: "ask_an_expert"})

	filled := *msgs[0].Card.Form
	filled.Title = "  "
	filled.Description = "keep this"
	state, msgs := f.turn(t, model.Activity{ReplyToID: "form-msg", Value: &filled})

	assert.Equal(t, model.StateCollectingTicket, state)
	require.Len(t, msgs, 1)
	assert.Equal(t, model.OutboundUpdate, msgs[0].Kind)
	assert.Equal(t, "form-msg", msgs[0].ReplaceID)
	assert.Equal(t, "keep this", msgs[0].Card.Form.Description)
	assert.Zero(t, f.tickets.upserts)
}

func TestChat_RichAnswerClosesSession(t *testing.T) {
	f := newChatFixture()
	f.kb.answers = []model.KnowledgeAnswer{{ID: 3, Text: "body", Metadata: map[string]string{"title": "VPN"}}}

	state, msgs := f.turn(t, model.Activity{Text: "vpn"})
	assert.Equal(t, model.StateIdle, state)
	require.Len(t, msgs, 1)
	assert.Equal(t, model.CardRich, msgs[0].Card.Kind)
	assert.Nil(t, f.session(t))
}

func TestChat_DisambiguationThenPrompt(t *testing.T) {
	f := newChatFixture()
	f.kb.answers = []model.KnowledgeAnswer{{ID: 9, Text: "Which OS?", Prompts: []model.Prompt{{DisplayText: "Windows"}, {DisplayText: "Mac"}}}}

	state, msgs := f.turn(t, model.Activity{Text: "install vpn"})
	assert.Equal(t, model.StateAwaitingPromptSelection, state)
	require.Len(t, msgs, 1)

	f.kb.answers = []model.KnowledgeAnswer{{ID: 10, Text: "Download the Windows client"}}
	state, msgs = f.turn(t, model.Activity{Text: msgs[0].Card.Actions[0].Command})
	assert.Equal(t, model.StateAwaitingHelpful, state)
	assert.Equal(t, "Download the Windows client", msgs[0].Text)
	assert.Equal(t, []string{"install vpn", "Windows"}, f.kb.queries)
}

func TestChat_PromptNamedLikeACommand(t *testing.T) {
	f := newChatFixture()
	f.kb.answers = []model.KnowledgeAnswer{{ID: 11, Text: "Which survey?", Prompts: []model.Prompt{{DisplayText: "Feedback"}, {DisplayText: "Cancel"}}}}

	state, msgs := f.turn(t, model.Activity{Text: "survey"})
	assert.Equal(t, model.StateAwaitingPromptSelection, state)
	require.Len(t, msgs, 1)

	f.kb.answers = []model.KnowledgeAnswer{{ID: 12, Text: "Fill in the quarterly feedback survey"}}
	state, msgs = f.turn(t, model.Activity{Text: msgs[0].Card.Actions[0].Command})

	assert.Equal(t, model.StateAwaitingHelpful, state)
	assert.Equal(t, []string{"survey", "Feedback"}, f.kb.queries)
	require.NotEmpty(t, msgs)
	assert.Equal(t, "Fill in the quarterly feedback survey", msgs[0].Text)
	assert.Zero(t, f.tickets.upserts)
}

func TestChat_CancelDuringCollection(t *testing.T) {
	f := newChatFixture()
	f.turn(t, model.Activity{Text: "share feedback"})
	require.NotNil(t, f.session(t))

	state, msgs := f.turn(t, model.Activity{Text: "cancel"})
	assert.Equal(t, model.StateIdle, state)
	require.Len(t, msgs, 1)
	assert.Equal(t, model.OutboundText, msgs[0].Kind)
	assert.Nil(t, f.session(t))
	assert.Zero(t, f.tickets.upserts)
}

func TestChat_KnowledgeErrorFailsTurnWithoutSaving(t *testing.T) {
	f := newChatFixture()
	f.scenarioA(t)
	before := f.session(t)

	f.kb.err = errors.New("connection reset")
	rec := transport.NewRecorder(model.Activity{ConversationID: "conv-1"})
	_, err := f.svc.HandleTurn(context.Background(), model.Activity{ConversationID: "conv-1", Text: "another question"}, rec)

	assert.ErrorIs(t, err, f.kb.err)
	assert.Empty(t, rec.Messages())
	assert.Equal(t, before, f.session(t))
}

func TestChat_RequiresConversationID(t *testing.T) {
	f := newChatFixture()
	_, err := f.svc.HandleTurn(context.Background(), model.Activity{Text: "hi"}, transport.NewRecorder(model.Activity{}))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestChat_ConversationsAreIsolated(t *testing.T) {
	f := newChatFixture()
	f.scenarioA(t)
	f.kb.answers = []model.KnowledgeAnswer{{ID: model.NoMatchID}}

	state, _ := f.turn(t, model.Activity{ConversationID: "conv-2", Text: "no"})
	assert.Equal(t, model.StateIdle, state, "no on a fresh conversation is just a question")
	assert.Equal(t, model.StateAwaitingHelpful, f.session(t).State)
}

func TestChat_PreviewDoesNotTouchSessions(t *testing.T) {
	f := newChatFixture()
	f.kb.answers = []model.KnowledgeAnswer{{ID: 7, Text: "Go to settings"}}

	out, err := f.svc.Preview(context.Background(), "reset", true)
	require.NoError(t, err)
	assert.Equal(t, PlainAnswer{Text: "Go to settings"}, out)
	assert.Nil(t, f.session(t))
}

func TestChat_Ping(t *testing.T) {
	assert.NoError(t, newChatFixture().svc.Ping(context.Background()))
}
