package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/genai"

	"github.com/garyellow/campus-interview-bot/internal/nlu"
)

// GeminiRecognizer recognizes turns with Gemini function calling.
type GeminiRecognizer struct {
	client *genai.Client
	model  string
	config *genai.GenerateContentConfig
}

// NewGeminiRecognizer creates a Gemini recognizer.
// Returns nil when cfg.APIKey is empty.
func NewGeminiRecognizer(ctx context.Context, cfg ProviderConfig) (*GeminiRecognizer, error) {
	if cfg.APIKey == "" {
		return nil, nil //nolint:nilnil // provider disabled without a key
	}
	model := cfg.Model
	if model == "" {
		model = DefaultGeminiModel
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &GeminiRecognizer{
		client: client,
		model:  model,
		config: &genai.GenerateContentConfig{
			Tools: []*genai.Tool{{
				FunctionDeclarations: []*genai.FunctionDeclaration{BuildRecognizeFunction()},
			}},
			SystemInstruction: genai.NewContentFromText(SystemPrompt, genai.RoleUser),
			ToolConfig: &genai.ToolConfig{
				FunctionCallingConfig: &genai.FunctionCallingConfig{
					Mode:                 genai.FunctionCallingConfigModeAny,
					AllowedFunctionNames: []string{RecognizeFunctionName},
				},
			},
			Temperature:     genai.Ptr[float32](0),
			MaxOutputTokens: 256,
		},
	}, nil
}

// Name implements nlu.Named.
func (g *GeminiRecognizer) Name() string { return string(ProviderGemini) }

// IsConfigured implements nlu.Recognizer.
func (g *GeminiRecognizer) IsConfigured() bool { return g != nil && g.client != nil }

// Recognize implements nlu.Recognizer.
func (g *GeminiRecognizer) Recognize(ctx context.Context, text string) (*nlu.Result, error) {
	if !g.IsConfigured() {
		return nil, errors.New("gemini recognizer not configured")
	}

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(text), g.config)
	if err != nil {
		slog.WarnContext(ctx, "Gemini recognize call failed",
			"model", g.model,
			"input_length", len(text),
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err)
		return nil, wrapAPIError(ProviderGemini, err)
	}

	res, err := parseGeminiResponse(text, resp)
	if err != nil {
		return nil, err
	}
	res.Provider = g.Name()
	if resp.UsageMetadata != nil {
		slog.DebugContext(ctx, "Gemini recognize completed",
			"model", g.model,
			"intent", res.TopIntent,
			"total_tokens", resp.UsageMetadata.TotalTokenCount,
			"duration_ms", time.Since(start).Milliseconds())
	}
	return res, nil
}

func parseGeminiResponse(text string, resp *genai.GenerateContentResponse) (*nlu.Result, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, errors.New("empty response from model")
	}
	c := resp.Candidates[0]
	if c.Content == nil {
		return nil, errors.New("no content in response")
	}
	for _, part := range c.Content.Parts {
		if part.FunctionCall == nil {
			continue
		}
		if part.FunctionCall.Name != RecognizeFunctionName {
			return nil, fmt.Errorf("unexpected function: %s", part.FunctionCall.Name)
		}
		res := resultFromArgs(text, part.FunctionCall.Args)
		res.Score = 1
		return res, nil
	}
	return nil, errors.New("no function call in response")
}
