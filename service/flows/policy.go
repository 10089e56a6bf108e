package flows

import (
	"errors"
	"fmt"
	"strings"

	"faq-agent/model"
)

var (
	ErrRequiredField = errors.New("required field is empty")
	ErrInvalidField  = errors.New("invalid field value")
	ErrUnknownForm   = errors.New("unknown form")
)

// HasContent reports whether a form field holds anything besides whitespace.
// Every escalation form validates its primary field with it.
func HasContent(s string) bool {
	return strings.TrimSpace(s) != ""
}

// Form describes one escalation form: which card shows it, which field is
// mandatory and how a valid submission becomes a ticket.
type Form struct {
	Kind         model.TicketKind
	CardKind     model.CardKind
	PrimaryField string

	primary func(p model.FormPayload) string
	check   func(p model.FormPayload) error
	build   func(p model.FormPayload) (title, description string)
}

// Forms maps each ticket kind to the form that collects it.
var Forms = map[model.TicketKind]Form{
	model.TicketExpert:   AskExpert,
	model.TicketFeedback: ShareFeedback,
}

func Lookup(kind model.TicketKind) (Form, error) {
	f, ok := Forms[kind]
	if !ok {
		return Form{}, fmt.Errorf("%w: %q", ErrUnknownForm, kind)
	}
	return f, nil
}

func (f Form) Validate(p model.FormPayload) error {
	if !HasContent(f.primary(p)) {
		return fmt.Errorf("%w: %s", ErrRequiredField, f.PrimaryField)
	}
	if f.check != nil {
		return f.check(p)
	}
	return nil
}

// TicketRequest maps a validated submission onto a ticket request.
func (f Form) TicketRequest(p model.FormPayload, conversationID string, requester, modifiedBy model.Participant) model.TicketRequest {
	title, description := f.build(p)
	return model.TicketRequest{
		TicketID:            p.TicketID,
		Kind:                f.Kind,
		Title:               strings.TrimSpace(title),
		Description:         strings.TrimSpace(description),
		UserQuestion:        p.UserQuestion,
		KnowledgeBaseAnswer: p.KnowledgeBaseAnswer,
		ConversationID:      conversationID,
		Requester:           requester,
		ModifiedBy:          modifiedBy,
	}
}
