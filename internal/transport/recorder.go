// Package transport holds the Conversation Transport used by the HTTP
// adapter: outbound messages are buffered for the turn and returned in the
// response body.
package transport

import (
	"context"
	"sync"

	"faq-agent/model"
)

// Recorder is scoped to a single incoming activity.
type Recorder struct {
	act model.Activity

	mu       sync.Mutex
	messages []model.OutboundMessage
}

func NewRecorder(act model.Activity) *Recorder {
	return &Recorder{act: act}
}

func (r *Recorder) SendText(_ context.Context, text string) error {
	r.record(model.OutboundMessage{Kind: model.OutboundText, Text: text})
	return nil
}

func (r *Recorder) SendCard(_ context.Context, card model.Card) error {
	r.record(model.OutboundMessage{Kind: model.OutboundCard, Card: &card})
	return nil
}

// UpdateLastCard targets the message the activity replied to, which is the
// card holding the submitted form.
func (r *Recorder) UpdateLastCard(_ context.Context, card model.Card) error {
	r.record(model.OutboundMessage{Kind: model.OutboundUpdate, Card: &card, ReplaceID: r.act.ReplyToID})
	return nil
}

func (r *Recorder) ResolveParticipant(_ context.Context, _ string) (model.Participant, error) {
	principal := r.act.FromPrincipalName
	if principal == "" {
		principal = r.act.FromID
	}
	return model.Participant{
		Name:        r.act.FromName,
		PrincipalID: principal,
		ObjectID:    r.act.FromObjectID,
	}, nil
}

// Messages returns a copy of everything sent so far, in order.
func (r *Recorder) Messages() []model.OutboundMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.OutboundMessage, len(r.messages))
	copy(out, r.messages)
	return out
}

func (r *Recorder) record(m model.OutboundMessage) {
	r.mu.Lock()
	r.messages = append(r.messages, m)
	r.mu.Unlock()
}
