package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"faq-agent/internal/kbclient"
	"faq-agent/model"
)

// KnowledgeService is the knowledge query collaborator.
type KnowledgeService interface {
	Query(ctx context.Context, question string, useTestIndex bool) ([]model.KnowledgeAnswer, error)
	IsPublished(ctx context.Context) (bool, error)
}

type OutcomeKind string

const (
	OutcomeUnrecognized   OutcomeKind = "unrecognized"
	OutcomeRich           OutcomeKind = "rich"
	OutcomeDisambiguation OutcomeKind = "disambiguation"
	OutcomePlain          OutcomeKind = "plain"
)

// Outcome is the classification of a knowledge answer. It is one of
// Unrecognized, RichAnswer, DisambiguationAnswer or PlainAnswer.
type Outcome interface {
	Kind() OutcomeKind
}

type Unrecognized struct{}

type RichAnswer struct {
	Card   RichCard
	Answer model.KnowledgeAnswer
}

type RichCard struct {
	Title       string `json:"title"`
	Subtitle    string `json:"subtitle"`
	ImageURL    string `json:"imageUrl"`
	RedirectURL string `json:"redirectionUrl"`
	Text        string `json:"description"`
}

type DisambiguationAnswer struct {
	Text    string
	Prompts []model.Prompt
}

type PlainAnswer struct {
	Text string
}

func (Unrecognized) Kind() OutcomeKind         { return OutcomeUnrecognized }
func (RichAnswer) Kind() OutcomeKind           { return OutcomeRich }
func (DisambiguationAnswer) Kind() OutcomeKind { return OutcomeDisambiguation }
func (PlainAnswer) Kind() OutcomeKind          { return OutcomePlain }

// AnswerInterpreter turns the knowledge base's top answer into an Outcome.
type AnswerInterpreter struct {
	kb KnowledgeService
}

func NewAnswerInterpreter(kb KnowledgeService) *AnswerInterpreter {
	return &AnswerInterpreter{kb: kb}
}

// Interpret queries the knowledge base and classifies its top answer. A
// rejected query against a never-published knowledge base is reported as
// Unrecognized; every other failure is returned.
func (i *AnswerInterpreter) Interpret(ctx context.Context, question string, useTestIndex bool) (Outcome, error) {
	answers, err := i.kb.Query(ctx, question, useTestIndex)
	if err != nil {
		return i.recoverQueryError(ctx, err)
	}
	if len(answers) == 0 {
		log.Printf("[AnswerInterpreter] no answers for question=%q", question)
		return Unrecognized{}, nil
	}

	top := answers[0]
	log.Printf("[AnswerInterpreter] answer id=%d score=%.2f question=%q", top.ID, top.Score, question)
	return Classify(top), nil
}

func (i *AnswerInterpreter) recoverQueryError(ctx context.Context, queryErr error) (Outcome, error) {
	if !errors.Is(queryErr, kbclient.ErrBadRequest) {
		return nil, fmt.Errorf("query knowledge base: %w", queryErr)
	}

	published, err := i.kb.IsPublished(ctx)
	if err != nil {
		return nil, fmt.Errorf("check knowledge base published: %w", err)
	}
	if published {
		return nil, fmt.Errorf("query knowledge base: %w", queryErr)
	}

	log.Printf("[AnswerInterpreter] knowledge base may be empty or not published yet: %v", queryErr)
	return Unrecognized{}, nil
}

// Classify applies the answer rules in order: no match, rich card,
// disambiguation prompts, plain text. The first rule that matches wins.
func Classify(answer model.KnowledgeAnswer) Outcome {
	if answer.ID == model.NoMatchID {
		return Unrecognized{}
	}
	if card, ok := richCard(answer); ok {
		return RichAnswer{Card: card, Answer: answer}
	}
	if len(answer.Prompts) > 0 {
		return DisambiguationAnswer{
			Text:    answer.Text,
			Prompts: append([]model.Prompt(nil), answer.Prompts...),
		}
	}
	return PlainAnswer{Text: answer.Text}
}

// richCard reads the card fields from metadata, falling back to an answer
// body stored as a JSON object.
func richCard(answer model.KnowledgeAnswer) (RichCard, bool) {
	card := RichCard{
		Title:       metadataValue(answer.Metadata, model.MetadataTitle),
		Subtitle:    metadataValue(answer.Metadata, model.MetadataSubtitle),
		ImageURL:    metadataValue(answer.Metadata, model.MetadataImageURL),
		RedirectURL: metadataValue(answer.Metadata, model.MetadataRedirectURL),
		Text:        answer.Text,
	}
	if card.hasDisplayField() {
		return card, true
	}

	body := strings.TrimSpace(answer.Text)
	if !strings.HasPrefix(body, "{") {
		return RichCard{}, false
	}
	var embedded RichCard
	if err := json.Unmarshal([]byte(body), &embedded); err != nil || !embedded.hasDisplayField() {
		return RichCard{}, false
	}
	return embedded, true
}

func (c RichCard) hasDisplayField() bool {
	return c.Title != "" || c.Subtitle != "" || c.ImageURL != "" || c.RedirectURL != ""
}

func metadataValue(metadata map[string]string, key string) string {
	if v, ok := metadata[key]; ok {
		return v
	}
	for k, v := range metadata {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}
