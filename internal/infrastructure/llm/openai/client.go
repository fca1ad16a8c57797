// Package openai wraps the two AI capabilities the pipeline depends on:
// document classification and semantic amounts extraction. The wrappers
// return plain errors; the fail-closed fallbacks live at the call site so the
// posture is chosen consciously, per capability.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/lucabarone/invoiceflow/internal/core/domain"
	"github.com/lucabarone/invoiceflow/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, apiKey, model string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		executor:   executor,
	}
}

type Classifier struct {
	client *Client
}

func NewClassifier(client *Client) *Classifier {
	return &Classifier{client: client}
}

func (c *Classifier) Classify(ctx context.Context, text string) (domain.Classification, error) {
	raw, err := c.client.completeJSON(ctx, "classify", buildClassificationPrompt(text))
	if err != nil {
		return domain.Classification{}, err
	}

	var result domain.Classification
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &result); err != nil {
		return domain.Classification{}, fmt.Errorf("parse classification json: %w", err)
	}

	switch result.DocumentType {
	case domain.TypeInvoice, domain.TypeReceipt, domain.TypeOther:
	default:
		return domain.Classification{}, fmt.Errorf("unknown document type %q", result.DocumentType)
	}
	// A subtype only means something on invoices.
	if result.DocumentType != domain.TypeInvoice {
		result.DocumentSubtype = domain.SubtypeNone
	}
	return result, nil
}

type SemanticExtractor struct {
	client *Client
}

func NewSemanticExtractor(client *Client) *SemanticExtractor {
	return &SemanticExtractor{client: client}
}

func (e *SemanticExtractor) ExtractAmounts(ctx context.Context, text string, subtype domain.DocumentSubtype) (*domain.Amounts, error) {
	raw, err := e.client.completeJSON(ctx, "extract", buildSemanticPrompt(text, subtype))
	if err != nil {
		return nil, err
	}

	var result struct {
		Amounts *domain.Amounts `json:"amounts"`
	}
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &result); err != nil {
		return nil, fmt.Errorf("parse amounts json: %w", err)
	}
	if result.Amounts == nil {
		return nil, fmt.Errorf("model returned no amounts object")
	}
	return result.Amounts, nil
}

func (c *Client) completeJSON(ctx context.Context, operation, prompt string) (string, error) {
	request := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
		Temperature:    0,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}

	var raw string
	call := func(callCtx context.Context) error {
		content, err := c.post(callCtx, operation, request)
		if err != nil {
			return err
		}
		raw = content
		return nil
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "openai."+operation, call, classifyOpenAIError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return "", wrapTemporaryIfNeeded(operation, err)
	}
	return strings.TrimSpace(raw), nil
}

// extractJSONObject tolerates markdown fences and prose around the payload.
func extractJSONObject(raw string) string {
	cleaned := strings.ReplaceAll(raw, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start >= 0 && end > start {
		return cleaned[start : end+1]
	}
	return cleaned
}
