package model

import "time"

// SupportState is the step of the support waterfall a conversation is parked on.
type SupportState string

const (
	StateIdle                    SupportState = "idle"
	StateAwaitingPromptSelection SupportState = "awaiting_prompt_selection"
	StateAwaitingHelpful         SupportState = "awaiting_helpful"
	StateAwaitingMoreHelp        SupportState = "awaiting_more_help"
	StateCollectingTicket        SupportState = "collecting_ticket"
)

type TicketStatus string

const (
	TicketOpen   TicketStatus = "open"
	TicketClosed TicketStatus = "closed"
)

// TicketKind identifies which escalation form produced a ticket.
type TicketKind string

const (
	TicketExpert   TicketKind = "expert"
	TicketFeedback TicketKind = "feedback"
)

// NoMatchID is the answer id the knowledge base returns when nothing matched.
const NoMatchID = -1

// Metadata keys that turn an answer into a rich card.
const (
	MetadataTitle       = "title"
	MetadataSubtitle    = "subtitle"
	MetadataImageURL    = "imageurl"
	MetadataRedirectURL = "redirecturl"
)

type Prompt struct {
	DisplayText  string `json:"displayText"`
	DisplayOrder int    `json:"displayOrder,omitempty"`
}

// KnowledgeAnswer is one candidate answer returned by the knowledge base.
type KnowledgeAnswer struct {
	ID        int               `json:"id"`
	Text      string            `json:"text"`
	Score     float64           `json:"score"`
	Questions []string          `json:"questions,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Prompts   []Prompt          `json:"prompts,omitempty"`
}

// SupportSession is the per-conversation state of the support waterfall.
type SupportSession struct {
	ConversationID     string       `json:"conversation_id"`
	State              SupportState `json:"state"`
	LastQuestion       string       `json:"last_question,omitempty"`
	LastAnswerText     string       `json:"last_answer_text,omitempty"`
	IsAnswered         bool         `json:"is_answered"`
	IsUseful           bool         `json:"is_useful"`
	IsMoreHelpRequired bool         `json:"is_more_help_required"`
	IsTicketRequired   bool         `json:"is_ticket_required"`
	IsExpertRequired   bool         `json:"is_expert_required"`
	Prompts            []Prompt     `json:"prompts,omitempty"`
	FormKind           TicketKind   `json:"form_kind,omitempty"`
	PendingTicketID    string       `json:"pending_ticket_id,omitempty"`
	UpdatedAt          string       `json:"updated_at,omitempty"`
}

type Ticket struct {
	TicketID                string       `json:"ticket_id"`
	Kind                    TicketKind   `json:"kind"`
	Status                  TicketStatus `json:"status"`
	CreatedAt               time.Time    `json:"created_at"`
	Title                   string       `json:"title"`
	Description             string       `json:"description,omitempty"`
	UserQuestion            string       `json:"user_question,omitempty"`
	KnowledgeBaseAnswer     string       `json:"knowledge_base_answer,omitempty"`
	RequesterName           string       `json:"requester_name,omitempty"`
	RequesterPrincipalID    string       `json:"requester_principal_id,omitempty"`
	RequesterConversationID string       `json:"requester_conversation_id,omitempty"`
	LastModifiedByName      string       `json:"last_modified_by_name,omitempty"`
	LastModifiedByObjectID  string       `json:"last_modified_by_object_id,omitempty"`
}

// TicketRequest carries everything needed to create a ticket. TicketID is
// generated by the caller once per logical ticket.
type TicketRequest struct {
	TicketID            string
	Kind                TicketKind
	Title               string
	Description         string
	UserQuestion        string
	KnowledgeBaseAnswer string
	ConversationID      string
	Requester           Participant
	ModifiedBy          Participant
}

// Participant is the channel identity of the human in a conversation.
type Participant struct {
	Name        string `json:"name"`
	PrincipalID string `json:"principal_id,omitempty"`
	ObjectID    string `json:"object_id,omitempty"`
}

// FormPayload is the data carried by card actions and escalation form submissions.
type FormPayload struct {
	Command             string     `json:"command,omitempty"`
	Form                TicketKind `json:"form,omitempty"`
	TicketID            string     `json:"ticket_id,omitempty"`
	Title               string     `json:"title,omitempty"`
	Description         string     `json:"description,omitempty"`
	Rating              string     `json:"rating,omitempty"`
	UserQuestion        string     `json:"user_question,omitempty"`
	KnowledgeBaseAnswer string     `json:"knowledge_base_answer,omitempty"`
}

// Activity is one incoming turn delivered by the conversation transport.
type Activity struct {
	ConversationID    string       `json:"conversation_id" binding:"required"`
	ReplyToID         string       `json:"reply_to_id,omitempty"`
	FromID            string       `json:"from_id"`
	FromName          string       `json:"from_name"`
	FromPrincipalName string       `json:"from_principal_name,omitempty"`
	FromObjectID      string       `json:"from_object_id,omitempty"`
	Text              string       `json:"text"`
	Value             *FormPayload `json:"value,omitempty"`
}

type Action struct {
	Label   string       `json:"label"`
	Command string       `json:"command"`
	Payload *FormPayload `json:"payload,omitempty"`
}

type CardKind string

const (
	CardRich          CardKind = "rich"
	CardPrompts       CardKind = "prompts"
	CardHelpful       CardKind = "was_it_helpful"
	CardMoreHelp      CardKind = "need_more_help"
	CardUnrecognized  CardKind = "unrecognized"
	CardAskExpert     CardKind = "ask_an_expert"
	CardShareFeedback CardKind = "share_feedback"
	CardTicketCreated CardKind = "ticket_created"
)

// Card is a structured outbound payload. Rendering is left to the channel.
type Card struct {
	Kind        CardKind     `json:"kind"`
	Title       string       `json:"title,omitempty"`
	Subtitle    string       `json:"subtitle,omitempty"`
	ImageURL    string       `json:"image_url,omitempty"`
	RedirectURL string       `json:"redirect_url,omitempty"`
	Text        string       `json:"text,omitempty"`
	Actions     []Action     `json:"actions,omitempty"`
	Form        *FormPayload `json:"form,omitempty"`
}

type OutboundKind string

const (
	OutboundText   OutboundKind = "text"
	OutboundCard   OutboundKind = "card"
	OutboundUpdate OutboundKind = "update"
)

type OutboundMessage struct {
	Kind      OutboundKind `json:"kind"`
	Text      string       `json:"text,omitempty"`
	Card      *Card        `json:"card,omitempty"`
	ReplaceID string       `json:"replace_id,omitempty"`
}

type ChatResponse struct {
	ConversationID string            `json:"conversation_id"`
	State          SupportState      `json:"state"`
	Messages       []OutboundMessage `json:"messages"`
}
