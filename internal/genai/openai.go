package genai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/garyellow/campus-interview-bot/internal/nlu"
)

// OpenAIRecognizer recognizes turns with tool calling on an OpenAI-compatible API.
type OpenAIRecognizer struct {
	client   openai.Client
	model    string
	provider Provider
	tools    []openai.ChatCompletionToolUnionParam
}

// NewOpenAIRecognizer creates a recognizer for provider (openai or groq).
// Returns nil when cfg.APIKey is empty. cfg.BaseURL overrides the provider endpoint.
func NewOpenAIRecognizer(provider Provider, cfg ProviderConfig) (*OpenAIRecognizer, error) {
	if cfg.APIKey == "" {
		return nil, nil //nolint:nilnil // provider disabled without a key
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey), option.WithMaxRetries(0)}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = ProviderEndpoint[provider]
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	model := cfg.Model
	if model == "" {
		switch provider {
		case ProviderGroq:
			model = DefaultGroqModel
		case ProviderOpenAI:
			model = DefaultOpenAIModel
		default:
			return nil, fmt.Errorf("no default model for provider: %s", provider)
		}
	}

	fd := BuildRecognizeFunction()
	return &OpenAIRecognizer{
		client:   openai.NewClient(opts...),
		model:    model,
		provider: provider,
		tools: []openai.ChatCompletionToolUnionParam{
			openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
				Name:        fd.Name,
				Description: openai.String(fd.Description),
				Parameters:  openai.FunctionParameters(schemaToJSON(fd.Parameters)),
			}),
		},
	}, nil
}

// Name implements nlu.Named.
func (o *OpenAIRecognizer) Name() string { return string(o.provider) }

// IsConfigured implements nlu.Recognizer.
func (o *OpenAIRecognizer) IsConfigured() bool { return o != nil }

// Recognize implements nlu.Recognizer.
func (o *OpenAIRecognizer) Recognize(ctx context.Context, text string) (*nlu.Result, error) {
	if o == nil {
		return nil, errors.New("openai recognizer not configured")
	}

	params := openai.ChatCompletionNewParams{
		Model: o.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(SystemPrompt),
			openai.UserMessage(text),
		},
		Tools: o.tools,
		ToolChoice: openai.ChatCompletionToolChoiceOptionUnionParam{
			OfAuto: openai.String(string(openai.ChatCompletionToolChoiceOptionAutoRequired)),
		},
		Temperature: openai.Float(0),
		MaxTokens:   openai.Int(256),
	}

	start := time.Now()
	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		slog.WarnContext(ctx, "Recognize call failed",
			"provider", o.provider,
			"model", o.model,
			"input_length", len(text),
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err)
		return nil, wrapAPIError(o.provider, err)
	}

	res, err := parseChatCompletion(text, resp)
	if err != nil {
		return nil, err
	}
	res.Provider = o.Name()
	slog.DebugContext(ctx, "Recognize completed",
		"provider", o.provider,
		"model", o.model,
		"intent", res.TopIntent,
		"total_tokens", resp.Usage.TotalTokens,
		"duration_ms", time.Since(start).Milliseconds())
	return res, nil
}

func parseChatCompletion(text string, resp *openai.ChatCompletion) (*nlu.Result, error) {
	if resp == nil || len(resp.Choices) == 0 {
		return nil, errors.New("empty response from model")
	}
	calls := resp.Choices[0].Message.ToolCalls
	if len(calls) == 0 {
		return nil, errors.New("no tool call in response")
	}
	tc := calls[0]
	if tc.Type != "function" {
		return nil, fmt.Errorf("unexpected tool type: %s", tc.Type)
	}
	if tc.Function.Name != RecognizeFunctionName {
		return nil, fmt.Errorf("unexpected function: %s", tc.Function.Name)
	}

	var args map[string]any
	if tc.Function.Arguments != "" {
		if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
			return nil, fmt.Errorf("failed to parse function arguments: %w", err)
		}
	}
	res := resultFromArgs(text, args)
	res.Score = 1
	return res, nil
}
