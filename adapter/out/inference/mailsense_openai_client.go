package inference

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	openai "github.com/sashabaranov/go-openai"

	"mailsense_server/core/domain"
	"mailsense_server/core/port/out"
	"mailsense_server/pkg/apperr"
	"mailsense_server/pkg/metrics"
)

const defaultOpenAIModel = "gpt-4o-mini"

const rankSystemPrompt = `You are a zero-shot text classifier. Score how well each candidate label fits the text when substituted into the hypothesis template.

Respond with JSON only:
{"labels": ["best", "second", ...], "scores": [0.72, 0.11, ...]}

Rules:
- Include every candidate label exactly once, ranked by score descending.
- Scores are probabilities and must sum to 1.
- Use only the given candidate labels, verbatim.`

// OpenAIClient ranks candidate labels through a chat completion with a
// JSON-only response contract.
type OpenAIClient struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

var _ out.ZeroShotClassifier = (*OpenAIClient)(nil)

// NewOpenAIClient builds an OpenAI-backed classifier. timeout bounds
// each Rank call on top of the caller's context.
func NewOpenAIClient(apiKey, model string, timeout time.Duration) *OpenAIClient {
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAIClient{
		client:  openai.NewClient(apiKey),
		model:   model,
		timeout: timeout,
	}
}

// Rank classifies text against the candidate labels and returns the
// ranking, best first.
func (c *OpenAIClient) Rank(ctx context.Context, text string, candidates []string, hypothesisTemplate string) ([]domain.Prediction, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	userPrompt := fmt.Sprintf("Hypothesis template: %s\nCandidate labels: %s\n\nText:\n%s",
		hypothesisTemplate, strings.Join(candidates, ", "), text)

	start := time.Now()
	defer func() { metrics.RecordLatency("classifier.rank", time.Since(start)) }()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: rankSystemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: userPrompt,
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, apperr.ClassifierUnavailable(err)
	}
	if len(resp.Choices) == 0 {
		return nil, apperr.ClassifierUnavailable(errors.New("empty completion"))
	}

	var decoded rankResponse
	cleaned := cleanJSONResponse(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(cleaned), &decoded); err != nil {
		return nil, apperr.ClassifierUnavailable(fmt.Errorf("failed to parse ranking: %w", err))
	}

	return toPredictions(decoded.Labels, decoded.Scores)
}

func cleanJSONResponse(resp string) string {
	resp = strings.TrimPrefix(resp, "```json")
	resp = strings.TrimPrefix(resp, "```")
	resp = strings.TrimSuffix(resp, "```")
	return strings.TrimSpace(resp)
}
