package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"faq-agent/model"
	"faq-agent/service/flows"
)

// SessionStore keeps one SupportSession per conversation. Get returns
// nil, nil when the conversation has no session.
type SessionStore interface {
	Get(ctx context.Context, conversationID string) (*model.SupportSession, error)
	Save(ctx context.Context, session *model.SupportSession) error
	Delete(ctx context.Context, conversationID string) error
}

// maxEffectChain bounds the I/O effects run inside one turn.
const maxEffectChain = 4

type ChatService struct {
	interpreter *AnswerInterpreter
	tickets     *TicketManager
	sessions    SessionStore
	dispatcher  *ResponseDispatcher
	newTicketID func() string
}

func NewChatService(kb KnowledgeService, sessions SessionStore, tickets *TicketManager) *ChatService {
	return &ChatService{
		interpreter: NewAnswerInterpreter(kb),
		tickets:     tickets,
		sessions:    sessions,
		dispatcher:  NewResponseDispatcher(),
		newTicketID: func() string { return uuid.New().String() },
	}
}

// HandleTurn runs one user turn to completion and returns the state the
// conversation is left in. Session state is only written after the reply has
// been sent; a failed turn leaves the stored session untouched.
func (s *ChatService) HandleTurn(ctx context.Context, act model.Activity, t Transport) (model.SupportState, error) {
	if act.ConversationID == "" {
		return "", fmt.Errorf("%w: conversation id is empty", ErrValidation)
	}

	session, err := s.sessions.Get(ctx, act.ConversationID)
	if err != nil {
		return "", fmt.Errorf("load session: %w", err)
	}
	if session == nil {
		session = &model.SupportSession{ConversationID: act.ConversationID, State: model.StateIdle}
	}
	before := session.State

	next, effect := Transition(*session, Utterance{
		Text:        act.Text,
		Payload:     act.Value,
		NewTicketID: s.newTicketID(),
	})

	next, effect, err = s.runEffects(ctx, act, t, next, effect)
	if err != nil {
		log.Printf("[ChatService] conversation=%s turn failed: %v", act.ConversationID, err)
		return "", err
	}

	if err := s.dispatcher.Dispatch(ctx, t, effect); err != nil {
		return "", err
	}

	if err := s.persist(ctx, &next); err != nil {
		return "", fmt.Errorf("save session: %w", err)
	}

	log.Printf("[ChatService] conversation=%s state %s -> %s reply=%s",
		act.ConversationID, before, next.State, effect.effectName())
	return next.State, nil
}

// runEffects executes Search and CreateTicket, feeding their results back
// into the state machine until it asks for a reply.
func (s *ChatService) runEffects(ctx context.Context, act model.Activity, t Transport, session model.SupportSession, effect Effect) (model.SupportSession, Effect, error) {
	for i := 0; i < maxEffectChain; i++ {
		switch e := effect.(type) {
		case nil:
			return session, nil, errors.New("state machine produced no effect")
		case Search:
			outcome, err := s.interpreter.Interpret(ctx, e.Question, false)
			if err != nil {
				return session, nil, err
			}
			log.Printf("[ChatService] conversation=%s outcome=%s", act.ConversationID, outcome.Kind())
			session, effect = Transition(session, Classified{Outcome: outcome})
		case CreateTicket:
			ticket, err := s.createTicket(ctx, act, t, e)
			if errors.Is(err, ErrValidation) {
				return session, RedisplayForm{Kind: e.Kind, Payload: e.Payload, Reason: err.Error()}, nil
			}
			if err != nil {
				return session, nil, err
			}
			session, effect = Transition(session, TicketCreated{Ticket: ticket})
		default:
			return session, effect, nil
		}
	}
	return session, nil, fmt.Errorf("effect chain exceeded %d steps", maxEffectChain)
}

func (s *ChatService) createTicket(ctx context.Context, act model.Activity, t Transport, e CreateTicket) (*model.Ticket, error) {
	form, err := flows.Lookup(e.Kind)
	if err != nil {
		return nil, err
	}

	requester, err := t.ResolveParticipant(ctx, act.ConversationID)
	if err != nil {
		return nil, fmt.Errorf("resolve participant: %w", err)
	}
	modifiedBy := model.Participant{Name: act.FromName, ObjectID: act.FromObjectID}

	return s.tickets.Create(ctx, form.TicketRequest(e.Payload, act.ConversationID, requester, modifiedBy))
}

func (s *ChatService) persist(ctx context.Context, session *model.SupportSession) error {
	if session.State == model.StateIdle {
		return s.sessions.Delete(ctx, session.ConversationID)
	}
	session.UpdatedAt = time.Now().Format(time.RFC3339Nano)
	return s.sessions.Save(ctx, session)
}

// Preview classifies a question without touching any conversation.
func (s *ChatService) Preview(ctx context.Context, question string, useTestIndex bool) (Outcome, error) {
	return s.interpreter.Interpret(ctx, question, useTestIndex)
}

// Ping checks the session store when it supports it.
func (s *ChatService) Ping(ctx context.Context) error {
	if p, ok := s.sessions.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}
