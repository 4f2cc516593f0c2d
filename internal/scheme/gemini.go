package scheme

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/hermitpopcorn/negi-ms/internal/domain"
	"github.com/hermitpopcorn/negi-ms/internal/network"
	"github.com/shopspring/decimal"
	"google.golang.org/genai"
)

const (
	// DefaultGeminiModel is the model used when none is configured.
	DefaultGeminiModel = "gemini-2.0-flash"

	geminiEndpoint = "https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent"
)

// Gemini hands the document body to a Gemini model and reads back a JSON
// array of transactions. It opts out of every document when no target
// accounts are configured.
type Gemini struct {
	Model    string
	APIKey   string
	Accounts []string
	Skips    []string

	client    network.Client
	validator *AccountValidator
}

// NewGemini creates the scheme. The client is wrapped so that at most one
// request is in flight per scheme.
func NewGemini(client network.Client, apiKey, model string, accounts, skips []string) *Gemini {
	if model == "" {
		model = DefaultGeminiModel
	}
	return &Gemini{
		Model:     model,
		APIKey:    apiKey,
		Accounts:  accounts,
		Skips:     skips,
		client:    network.NewLocked(client),
		validator: NewAccountValidator(accounts),
	}
}

func (g *Gemini) Name() string { return "gemini" }

func (g *Gemini) CanParse(doc domain.Document) bool {
	return len(g.Accounts) > 0
}

// generateContentRequest is the REST body of models.generateContent.
type generateContentRequest struct {
	GenerationConfig *genai.GenerationConfig `json:"generationConfig"`
	Contents         []*genai.Content        `json:"contents"`
}

// geminiTransaction is one element of the model's JSON answer.
type geminiTransaction struct {
	Subject  string           `json:"subject"`
	Datetime string           `json:"datetime"`
	Amount   *decimal.Decimal `json:"amount"`
	Account  string           `json:"account"`
}

func (g *Gemini) Parse(ctx context.Context, doc domain.Document) ([]domain.Transaction, error) {
	req := network.Request{
		URL:     fmt.Sprintf(geminiEndpoint, url.PathEscape(g.Model)),
		Headers: map[string]string{"x-goog-api-key": g.APIKey},
		Body: generateContentRequest{
			GenerationConfig: geminiGenerationConfig(),
			Contents: []*genai.Content{
				{Parts: []*genai.Part{{Text: buildGeminiPrompt(doc.Body, g.Accounts, g.Skips)}}},
			},
		},
	}

	resp, err := g.client.Post(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Gemini.Parse: request: %w", err)
	}
	if err := resp.Err(); err != nil {
		return nil, fmt.Errorf("Gemini.Parse: %w", err)
	}

	text, err := envelopeText(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("Gemini.Parse: %w", err)
	}

	var raw []geminiTransaction
	if err := json.Unmarshal([]byte(cleanModelJSON(text)), &raw); err != nil {
		return nil, fmt.Errorf("Gemini.Parse: unmarshal transactions: %w\nraw response: %s", err, text)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("Gemini.Parse: %w", ErrNoTransactions)
	}

	txs := make([]domain.Transaction, 0, len(raw))
	for i, r := range raw {
		tx, err := g.transform(r)
		if err != nil {
			return nil, fmt.Errorf("Gemini.Parse: transaction %d: %w", i, err)
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

func (g *Gemini) transform(r geminiTransaction) (domain.Transaction, error) {
	if r.Amount == nil {
		return domain.Transaction{}, errors.New("amount missing")
	}
	when, err := time.Parse(time.RFC3339, strings.TrimSpace(r.Datetime))
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("parse datetime %q: %w", r.Datetime, err)
	}
	account, err := g.validator.Canonical(r.Account)
	if err != nil {
		return domain.Transaction{}, err
	}
	return domain.Transaction{
		Account: account,
		Subject: strings.TrimSpace(r.Subject),
		Time:    when.UTC(),
		Amount:  *r.Amount,
	}, nil
}

// envelopeText digs the first candidate's first text part out of a
// generateContent response.
func envelopeText(body string) (string, error) {
	var resp genai.GenerateContentResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		return "", fmt.Errorf("unmarshal envelope: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response from model: %s", body)
	}
	part := resp.Candidates[0].Content.Parts[0]
	if part == nil {
		return "", fmt.Errorf("empty response from model: %s", body)
	}
	return part.Text, nil
}

func geminiGenerationConfig() *genai.GenerationConfig {
	return &genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"subject":  {Type: genai.TypeString},
					"datetime": {Type: genai.TypeString},
					"amount":   {Type: genai.TypeNumber},
					"account":  {Type: genai.TypeString},
				},
			},
		},
	}
}

// cleanModelJSON strips Markdown fences or stray text around the JSON array
// in case the model ignored the response MIME type.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		idx := strings.Index(s, "\n")
		if idx == -1 {
			return s
		}
		s = strings.TrimSpace(s[idx+1:])
		if end := strings.LastIndex(s, "```"); end != -1 {
			s = strings.TrimSpace(s[:end])
		}
	}

	if start := strings.Index(s, "["); start != -1 {
		if end := strings.LastIndex(s, "]"); end > start {
			s = s[start : end+1]
		}
	}
	return s
}
