// Package kbclient talks to the knowledge base's runtime (generateAnswer) and
// authoring (knowledge base details) APIs.
package kbclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"faq-agent/model"
)

// ErrBadRequest is matched by a StatusError carrying HTTP 400, which the
// knowledge base returns when it has no published content.
var ErrBadRequest = errors.New("knowledge base rejected the query")

type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("knowledge base returned status %d: %s", e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error {
	if e.StatusCode == http.StatusBadRequest {
		return ErrBadRequest
	}
	return nil
}

// Config locates the knowledge base. Answers come from the runtime host,
// which accepts an endpoint key. Publish status lives on the authoring API,
// which accepts a subscription key.
type Config struct {
	RuntimeURL      string
	AuthoringURL    string
	KnowledgeBaseID string
	EndpointKey     string
	SubscriptionKey string
	Timeout         time.Duration
}

type Client struct {
	runtimeURL      string
	authoringURL    string
	knowledgeBaseID string
	endpointKey     string
	subscriptionKey string
	httpCli         *http.Client
}

func NewClient(cfg Config) *Client {
	return &Client{
		runtimeURL:      strings.TrimRight(cfg.RuntimeURL, "/"),
		authoringURL:    strings.TrimRight(cfg.AuthoringURL, "/"),
		knowledgeBaseID: cfg.KnowledgeBaseID,
		endpointKey:     cfg.EndpointKey,
		subscriptionKey: cfg.SubscriptionKey,
		httpCli: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

type generateAnswerRequest struct {
	Question string `json:"question"`
	Top      int    `json:"top"`
	IsTest   bool   `json:"isTest"`
}

type generateAnswerResponse struct {
	Answers []wireAnswer `json:"answers"`
}

type wireAnswer struct {
	ID        int            `json:"id"`
	Answer    string         `json:"answer"`
	Score     float64        `json:"score"`
	Questions []string       `json:"questions"`
	Metadata  []wireMetadata `json:"metadata"`
	Context   *struct {
		Prompts []model.Prompt `json:"prompts"`
	} `json:"context"`
}

type wireMetadata struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type knowledgeBaseDetails struct {
	LastPublishedTimestamp string `json:"lastPublishedTimestamp"`
}

// Query asks the knowledge base for its best answer to question.
func (c *Client) Query(ctx context.Context, question string, useTestIndex bool) ([]model.KnowledgeAnswer, error) {
	bs, err := json.Marshal(generateAnswerRequest{Question: question, Top: 1, IsTest: useTestIndex})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/knowledgebases/%s/generateAnswer", c.runtimeURL, c.knowledgeBaseID)
	var out generateAnswerResponse
	if err := c.do(ctx, http.MethodPost, url, bs, c.runtimeAuth, &out); err != nil {
		return nil, err
	}

	answers := make([]model.KnowledgeAnswer, 0, len(out.Answers))
	for _, a := range out.Answers {
		answers = append(answers, a.toModel())
	}
	return answers, nil
}

// IsPublished reports whether the knowledge base has ever been published.
// It asks the authoring API, not the runtime host.
func (c *Client) IsPublished(ctx context.Context) (bool, error) {
	url := fmt.Sprintf("%s/knowledgebases/%s", c.authoringURL, c.knowledgeBaseID)
	var out knowledgeBaseDetails
	if err := c.do(ctx, http.MethodGet, url, nil, c.authoringAuth, &out); err != nil {
		return false, err
	}
	return out.LastPublishedTimestamp != "", nil
}

func (c *Client) runtimeAuth(h http.Header) {
	if c.endpointKey != "" {
		h.Set("Authorization", "EndpointKey "+c.endpointKey)
	}
}

func (c *Client) authoringAuth(h http.Header) {
	if c.subscriptionKey != "" {
		h.Set("Ocp-Apim-Subscription-Key", c.subscriptionKey)
	}
}

func (c *Client) do(ctx context.Context, method, url string, body []byte, auth func(http.Header), out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	auth(httpReq.Header)

	resp, err := c.httpCli.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func (a wireAnswer) toModel() model.KnowledgeAnswer {
	answer := model.KnowledgeAnswer{
		ID:        a.ID,
		Text:      a.Answer,
		Score:     a.Score,
		Questions: a.Questions,
	}
	if len(a.Metadata) > 0 {
		answer.Metadata = make(map[string]string, len(a.Metadata))
		for _, m := range a.Metadata {
			answer.Metadata[strings.ToLower(m.Name)] = m.Value
		}
	}
	if a.Context != nil {
		answer.Prompts = a.Context.Prompts
	}
	return answer
}
