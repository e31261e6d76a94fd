package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/spacesedan/instalens/internal/models"
)

const (
	openAIRequestTimeout = 60 * time.Second

	openAISentimentPrompt = `Classify the sentiment of the social media comment you are given.
Answer with exactly one of these labels: positive, negative, neutral.
Also give your confidence as a number between 0 and 1.

### STRICT OUTPUT FORMAT
Return only valid JSON, no Markdown, no explanations:
{"label": "positive", "score": 0.92}`
)

// OpenAIClassifier classifies text with a chat completion model.
type OpenAIClassifier struct {
	Client *openai.Client
	model  string
}

func NewOpenAIClassifier(apiKey, model string, opts ...option.RequestOption) (*OpenAIClassifier, error) {
	if apiKey == "" {
		slog.Error("[OpenAIClient] Missing OPENAI_API_KEY in environment variables")
		return nil, errors.New("[OpenAIClient] missing OPENAI_API_KEY")
	}

	opts = append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(&http.Client{Timeout: openAIRequestTimeout}),
	}, opts...)

	slog.Info("[OpenAIClient] OpenAI client initialized",
		slog.String("model", model),
		slog.Duration("timeout", openAIRequestTimeout))

	return &OpenAIClassifier{
		Client: openai.NewClient(opts...),
		model:  model,
	}, nil
}

type openAIClassification struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

func (o *OpenAIClassifier) Classify(ctx context.Context, text string) (classification models.Classification, err error) {
	chatCompletion, err := o.Client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: openai.F([]openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(openAISentimentPrompt),
			openai.UserMessage(text),
		}),
		Model:       openai.F(openai.ChatModel(o.model)),
		Temperature: openai.Float(0),
	})
	if err != nil {
		return classification, fmt.Errorf("[OpenAIClient] chat completion failed: %w", err)
	}

	if len(chatCompletion.Choices) == 0 || strings.TrimSpace(chatCompletion.Choices[0].Message.Content) == "" {
		return classification, errors.New("[OpenAIClient] empty response")
	}

	var parsed openAIClassification
	raw := cleanOpenAIResponse(chatCompletion.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return classification, fmt.Errorf("[OpenAIClient] failed to parse response: %w", err)
	}

	return models.Classification{Label: parsed.Label, Score: parsed.Score}, nil
}

func cleanOpenAIResponse(response string) string {
	response = strings.TrimSpace(response)

	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")

	response = strings.ReplaceAll(response, "“", `"`) // left curly quote
	response = strings.ReplaceAll(response, "”", `"`) // right curly quote

	return strings.TrimSpace(response)
}
