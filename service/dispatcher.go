package service

import (
	"context"
	"errors"
	"fmt"

	"faq-agent/model"
	"faq-agent/service/flows"
	"faq-agent/utils"
)

var ErrNothingToSend = errors.New("effect has no reply")

// Transport is the conversation channel for the current turn.
type Transport interface {
	SendText(ctx context.Context, text string) error
	SendCard(ctx context.Context, card model.Card) error
	// UpdateLastCard replaces the card the user just submitted.
	UpdateLastCard(ctx context.Context, card model.Card) error
	ResolveParticipant(ctx context.Context, conversationID string) (model.Participant, error)
}

const (
	textUnrecognized  = "Sorry, I didn't understand your question. Try rephrasing it, or ask an expert."
	textWasItHelpful  = "Was this answer helpful?"
	textNeedMoreHelp  = "Do you need more help?"
	textGladToHelp    = "Great, glad I could help!"
	textGoodbye       = "Thanks for reaching out. Ask me anything else whenever you need."
	textCancelled     = "OK, your request was cancelled."
	textFormReminder  = "Please complete the form below, or type cancel to stop."
	textTicketCreated = "Your request has been sent to the support team. Ticket number: %s"

	labelYes           = "Yes"
	labelNo            = "No"
	labelAskAnExpert   = "Ask an expert"
	labelShareFeedback = "Share feedback"
	labelSubmit        = "Submit"
	labelCancel        = "Cancel"
)

var formTitles = map[model.TicketKind]string{
	model.TicketExpert:   "Ask an expert",
	model.TicketFeedback: "Share feedback",
}

// Reply is what one turn sends back: optional text followed by at most one
// card. ReplaceCard sends the card as an in-place update.
type Reply struct {
	Text        string
	Card        *model.Card
	ReplaceCard bool
}

// ResponseDispatcher maps effects to outbound messages. It holds no
// conversation state.
type ResponseDispatcher struct{}

func NewResponseDispatcher() *ResponseDispatcher {
	return &ResponseDispatcher{}
}

// Dispatch renders the effect and sends it: one text and/or one card.
func (d *ResponseDispatcher) Dispatch(ctx context.Context, t Transport, effect Effect) error {
	reply, err := d.Render(effect)
	if err != nil {
		return err
	}

	if reply.Text != "" {
		if err := t.SendText(ctx, reply.Text); err != nil {
			return fmt.Errorf("send text: %w", err)
		}
	}
	if reply.Card == nil {
		return nil
	}
	if reply.ReplaceCard {
		if err := t.UpdateLastCard(ctx, *reply.Card); err != nil {
			return fmt.Errorf("update card: %w", err)
		}
		return nil
	}
	if err := t.SendCard(ctx, *reply.Card); err != nil {
		return fmt.Errorf("send card: %w", err)
	}
	return nil
}

// Render is the pure half of Dispatch.
func (d *ResponseDispatcher) Render(effect Effect) (Reply, error) {
	switch e := effect.(type) {
	case Respond:
		return renderOutcome(e.Question, e.Outcome), nil
	case AcknowledgeHelpful:
		return Reply{Text: textGladToHelp}, nil
	case AskMoreHelp:
		return Reply{Card: moreHelpCard(e.Question, e.Answer)}, nil
	case ShowForm:
		reply := Reply{Card: formCard(e.Kind, e.Payload, "")}
		if e.Reminder {
			reply.Text = textFormReminder
		}
		return reply, nil
	case RedisplayForm:
		return Reply{Card: formCard(e.Kind, e.Payload, e.Reason), ReplaceCard: true}, nil
	case ReportTicket:
		return Reply{
			Text: fmt.Sprintf(textTicketCreated, e.Ticket.TicketID),
			Card: &model.Card{
				Kind:     model.CardTicketCreated,
				Title:    e.Ticket.Title,
				Subtitle: string(e.Ticket.Status),
				Text:     e.Ticket.Description,
			},
		}, nil
	case Cancelled:
		return Reply{Text: textCancelled}, nil
	case Goodbye:
		return Reply{Text: textGoodbye}, nil
	}
	return Reply{}, fmt.Errorf("%w: %T", ErrNothingToSend, effect)
}

func renderOutcome(question string, outcome Outcome) Reply {
	switch o := outcome.(type) {
	case RichAnswer:
		return Reply{Card: &model.Card{
			Kind:        model.CardRich,
			Title:       o.Card.Title,
			Subtitle:    o.Card.Subtitle,
			ImageURL:    o.Card.ImageURL,
			RedirectURL: o.Card.RedirectURL,
			Text:        o.Card.Text,
		}}
	case DisambiguationAnswer:
		actions := make([]model.Action, 0, len(o.Prompts))
		for _, p := range o.Prompts {
			actions = append(actions, model.Action{Label: p.DisplayText, Command: p.DisplayText})
		}
		return Reply{Card: &model.Card{Kind: model.CardPrompts, Text: o.Text, Actions: actions}}
	case PlainAnswer:
		return Reply{
			Text: o.Text,
			Card: &model.Card{
				Kind: model.CardHelpful,
				Text: textWasItHelpful,
				Actions: []model.Action{
					{Label: labelYes, Command: utils.CommandYes},
					{Label: labelNo, Command: utils.CommandNo},
				},
			},
		}
	}

	return Reply{Card: &model.Card{
		Kind: model.CardUnrecognized,
		Text: textUnrecognized,
		Actions: []model.Action{{
			Label:   labelAskAnExpert,
			Command: utils.CommandAskAnExpert,
			Payload: &model.FormPayload{Command: utils.CommandAskAnExpert, UserQuestion: question},
		}},
	}}
}

func moreHelpCard(question, answer string) *model.Card {
	return &model.Card{
		Kind: model.CardMoreHelp,
		Text: textNeedMoreHelp,
		Actions: []model.Action{
			{
				Label:   labelAskAnExpert,
				Command: utils.CommandAskAnExpert,
				Payload: &model.FormPayload{Command: utils.CommandAskAnExpert, UserQuestion: question, KnowledgeBaseAnswer: answer},
			},
			{
				Label:   labelShareFeedback,
				Command: utils.CommandShareFeedback,
				Payload: &model.FormPayload{Command: utils.CommandShareFeedback, UserQuestion: question, KnowledgeBaseAnswer: answer},
			},
			{Label: labelNo, Command: utils.CommandNo},
		},
	}
}

func formCard(kind model.TicketKind, payload model.FormPayload, reason string) *model.Card {
	cardKind := model.CardAskExpert
	if f, err := flows.Lookup(kind); err == nil {
		cardKind = f.CardKind
	}

	form := payload
	submit := payload
	return &model.Card{
		Kind:  cardKind,
		Title: formTitles[kind],
		Text:  reason,
		Form:  &form,
		Actions: []model.Action{
			{Label: labelSubmit, Command: utils.CommandSubmitTicket, Payload: &submit},
			{Label: labelCancel, Command: utils.CommandCancel},
		},
	}
}
