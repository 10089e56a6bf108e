package service

import (
	"log"
	"strings"

	"faq-agent/model"
	"faq-agent/service/flows"
	"faq-agent/utils"
)

// Event is an input to the support state machine.
type Event interface {
	eventName() string
}

// Utterance is a user turn. NewTicketID is a fresh id supplied by the caller;
// it is only used if this turn opens an escalation form with no ticket id
// pending yet.
type Utterance struct {
	Text        string
	Payload     *model.FormPayload
	NewTicketID string
}

// Classified carries the interpretation of the knowledge answer for the
// question searched in this turn.
type Classified struct {
	Outcome Outcome
}

type TicketCreated struct {
	Ticket *model.Ticket
}

func (Utterance) eventName() string     { return "utterance" }
func (Classified) eventName() string    { return "classified" }
func (TicketCreated) eventName() string { return "ticket_created" }

// Effect is what the state machine asks the caller to do next. Search and
// CreateTicket need I/O and feed a new event back; the rest are replies.
type Effect interface {
	effectName() string
}

type Search struct {
	Question string
}

type Respond struct {
	Question string
	Outcome  Outcome
}

type AcknowledgeHelpful struct{}

type AskMoreHelp struct {
	Question string
	Answer   string
}

type ShowForm struct {
	Kind     model.TicketKind
	Payload  model.FormPayload
	Reminder bool
}

// RedisplayForm replaces the submitted form in place, keeping what the user
// already entered.
type RedisplayForm struct {
	Kind    model.TicketKind
	Payload model.FormPayload
	Reason  string
}

type CreateTicket struct {
	Kind    model.TicketKind
	Payload model.FormPayload
}

type ReportTicket struct {
	Ticket *model.Ticket
}

type Cancelled struct{}

type Goodbye struct{}

func (Search) effectName() string             { return "search" }
func (Respond) effectName() string            { return "respond" }
func (AcknowledgeHelpful) effectName() string { return "acknowledge_helpful" }
func (AskMoreHelp) effectName() string        { return "ask_more_help" }
func (ShowForm) effectName() string           { return "show_form" }
func (RedisplayForm) effectName() string      { return "redisplay_form" }
func (CreateTicket) effectName() string       { return "create_ticket" }
func (ReportTicket) effectName() string       { return "report_ticket" }
func (Cancelled) effectName() string          { return "cancelled" }
func (Goodbye) effectName() string            { return "goodbye" }

// Transition is the support waterfall as a pure function. A session whose
// resulting State is StateIdle has closed and can be discarded.
func Transition(s model.SupportSession, ev Event) (model.SupportSession, Effect) {
	switch e := ev.(type) {
	case Utterance:
		return onUtterance(s, e)
	case Classified:
		return onClassified(s, e)
	case TicketCreated:
		s.IsTicketRequired = true
		s.PendingTicketID = ""
		s.State = model.StateIdle
		return s, ReportTicket{Ticket: e.Ticket}
	}
	return s, nil
}

func onUtterance(s model.SupportSession, u Utterance) (model.SupportSession, Effect) {
	cmd := utils.NormalizeCommand(u.Text)
	if selectsPrompt(s, u) {
		// A chosen prompt is searched verbatim, even when it reads like a command.
		cmd = ""
	}
	if cmd == utils.CommandCancel {
		s.State = model.StateIdle
		return s, Cancelled{}
	}

	step, ok := Steps[s.State]
	if !ok {
		log.Printf("[SupportFlow] conversation=%s unknown state %q, starting over", s.ConversationID, s.State)
		s = model.SupportSession{ConversationID: s.ConversationID, State: model.StateIdle}
		step = Steps[model.StateIdle]
	}
	return step(s, u, cmd)
}

// selectsPrompt reports whether u picks one of the prompts offered last turn.
func selectsPrompt(s model.SupportSession, u Utterance) bool {
	if s.State != model.StateAwaitingPromptSelection || u.Payload != nil {
		return false
	}
	text := strings.TrimSpace(u.Text)
	for _, p := range s.Prompts {
		if strings.EqualFold(strings.TrimSpace(p.DisplayText), text) {
			return true
		}
	}
	return false
}

func onClassified(s model.SupportSession, c Classified) (model.SupportSession, Effect) {
	switch o := c.Outcome.(type) {
	case DisambiguationAnswer:
		s.State = model.StateAwaitingPromptSelection
		s.LastAnswerText = o.Text
		s.Prompts = o.Prompts
	case PlainAnswer:
		s.State = model.StateAwaitingHelpful
		s.LastAnswerText = o.Text
		s.IsAnswered = true
	default:
		s.State = model.StateIdle
	}
	return s, Respond{Question: s.LastQuestion, Outcome: c.Outcome}
}

// ==================== Step handlers ====================

func stepIdle(s model.SupportSession, u Utterance, cmd string) (model.SupportSession, Effect) {
	switch cmd {
	case utils.CommandAskAnExpert:
		s.IsExpertRequired = true
		return openForm(s, u, model.TicketExpert)
	case utils.CommandShareFeedback:
		return openForm(s, u, model.TicketFeedback)
	}

	// A form submitted after its session expired resumes collection.
	if u.Payload != nil && u.Payload.Command == utils.CommandSubmitTicket {
		s.State = model.StateCollectingTicket
		s.FormKind = u.Payload.Form
		s.PendingTicketID = u.Payload.TicketID
		if s.PendingTicketID == "" {
			s.PendingTicketID = u.NewTicketID
		}
		return stepCollectingTicket(s, u, cmd)
	}

	question := strings.TrimSpace(u.Text)
	next := model.SupportSession{
		ConversationID: s.ConversationID,
		State:          model.StateIdle,
		LastQuestion:   question,
	}
	if question == "" {
		return next, Respond{Outcome: Unrecognized{}}
	}
	return next, Search{Question: question}
}

func stepAwaitingHelpful(s model.SupportSession, u Utterance, cmd string) (model.SupportSession, Effect) {
	switch cmd {
	case utils.CommandYes:
		s.IsUseful = true
		s.State = model.StateIdle
		return s, AcknowledgeHelpful{}
	case utils.CommandNo:
		s.IsUseful = false
		s.State = model.StateAwaitingMoreHelp
		return s, AskMoreHelp{Question: s.LastQuestion, Answer: s.LastAnswerText}
	}
	return stepIdle(s, u, cmd)
}

func stepAwaitingMoreHelp(s model.SupportSession, u Utterance, cmd string) (model.SupportSession, Effect) {
	switch cmd {
	case utils.CommandAskAnExpert:
		s.IsMoreHelpRequired = true
		s.IsExpertRequired = true
		return openForm(s, u, model.TicketExpert)
	case utils.CommandShareFeedback:
		s.IsMoreHelpRequired = true
		return openForm(s, u, model.TicketFeedback)
	case utils.CommandNo:
		s.State = model.StateIdle
		return s, Goodbye{}
	}
	return stepIdle(s, u, cmd)
}

func stepCollectingTicket(s model.SupportSession, u Utterance, cmd string) (model.SupportSession, Effect) {
	if u.Payload == nil || u.Payload.Command != utils.CommandSubmitTicket {
		switch cmd {
		case utils.CommandAskAnExpert:
			s.IsExpertRequired = true
			return openForm(s, u, model.TicketExpert)
		case utils.CommandShareFeedback:
			return openForm(s, u, model.TicketFeedback)
		}
		return s, ShowForm{Kind: s.FormKind, Payload: formDefaults(s), Reminder: true}
	}

	form, err := flows.Lookup(s.FormKind)
	if err != nil {
		log.Printf("[SupportFlow] conversation=%s: %v", s.ConversationID, err)
		s.State = model.StateIdle
		return s, Cancelled{}
	}

	payload := *u.Payload
	payload.Form = form.Kind
	payload.TicketID = s.PendingTicketID
	if err := form.Validate(payload); err != nil {
		return s, RedisplayForm{Kind: form.Kind, Payload: payload, Reason: err.Error()}
	}
	return s, CreateTicket{Kind: form.Kind, Payload: payload}
}

func openForm(s model.SupportSession, u Utterance, kind model.TicketKind) (model.SupportSession, Effect) {
	if u.Payload != nil {
		if u.Payload.UserQuestion != "" {
			s.LastQuestion = u.Payload.UserQuestion
		}
		if u.Payload.KnowledgeBaseAnswer != "" {
			s.LastAnswerText = u.Payload.KnowledgeBaseAnswer
		}
	}
	s.State = model.StateCollectingTicket
	s.FormKind = kind
	s.Prompts = nil
	if s.PendingTicketID == "" {
		s.PendingTicketID = u.NewTicketID
	}
	return s, ShowForm{Kind: kind, Payload: formDefaults(s)}
}

func formDefaults(s model.SupportSession) model.FormPayload {
	return model.FormPayload{
		Command:             utils.CommandSubmitTicket,
		Form:                s.FormKind,
		TicketID:            s.PendingTicketID,
		UserQuestion:        s.LastQuestion,
		KnowledgeBaseAnswer: s.LastAnswerText,
	}
}
