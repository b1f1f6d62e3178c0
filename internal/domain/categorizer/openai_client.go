package categorizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// OpenAI API types
type chatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// OpenAIHintProvider implements HintProvider against the OpenAI chat
// completions API. It is best-effort: the resolver treats any error as
// a miss and falls through to the default category.
type OpenAIHintProvider struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// Compile-time check that OpenAIHintProvider implements HintProvider
var _ HintProvider = (*OpenAIHintProvider)(nil)

// NewOpenAIHintProvider creates a new hint provider. model defaults to
// gpt-4o when empty.
func NewOpenAIHintProvider(apiKey, model string) *OpenAIHintProvider {
	if model == "" {
		model = "gpt-4o"
	}
	return &OpenAIHintProvider{
		apiKey:  apiKey,
		model:   model,
		baseURL: "https://api.openai.com/v1",
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SuggestCategory asks for a single category guess with confidence and
// short reasoning.
func (p *OpenAIHintProvider) SuggestCategory(ctx context.Context, description string, amount decimal.Decimal, industry string) (*Hint, error) {
	request := chatCompletionRequest{
		Model:       p.model,
		Temperature: 0.1, // Low temperature for consistent categorization
		ResponseFormat: &responseFormat{
			Type: "json_object",
		},
		Messages: []chatMessage{
			{
				Role:    "system",
				Content: "You are a bookkeeping assistant that assigns spending categories to bank transactions. Always respond with valid JSON.",
			},
			{
				Role:    "user",
				Content: p.buildPrompt(description, amount, industry),
			},
		},
	}

	requestBody, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewBuffer(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errorResp struct {
			Error struct {
				Message string `json:"message"`
				Type    string `json:"type"`
			} `json:"error"`
		}
		if err := json.Unmarshal(body, &errorResp); err == nil && errorResp.Error.Message != "" {
			return nil, fmt.Errorf("OpenAI API error: %s (type: %s)", errorResp.Error.Message, errorResp.Error.Type)
		}
		return nil, fmt.Errorf("OpenAI API returned status %d: %s", resp.StatusCode, string(body))
	}

	var response chatCompletionResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(response.Choices) == 0 {
		return nil, fmt.Errorf("no response from OpenAI")
	}

	var hint Hint
	if err := json.Unmarshal([]byte(response.Choices[0].Message.Content), &hint); err != nil {
		return nil, fmt.Errorf("failed to parse hint: %w", err)
	}

	return &hint, nil
}

func (p *OpenAIHintProvider) buildPrompt(description string, amount decimal.Decimal, industry string) string {
	industryLine := ""
	if industry != "" {
		industryLine = fmt.Sprintf("The business operates in the %s industry.\n", industry)
	}

	return fmt.Sprintf(`Assign a spending category to this bank transaction.

Description: %s
Amount: %s
%s
Pick a short, conventional small-business category name (e.g. "Fuel",
"Rent", "Office Supplies", "Bank Charges").

Return a JSON object with this structure:
{
  "category": "category name",
  "confidence": 0.8,
  "reasoning": "one short sentence"
}`, description, amount.StringFixed(2), industryLine)
}
