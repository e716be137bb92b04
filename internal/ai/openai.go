package ai

import (
	"context"
	"encoding/json"
	"fmt"

	"go-hopeforjob-automation/internal/models"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

type openAIResolver struct {
	client *openai.Client
	model  string
	log    *logrus.Entry
}

// NewOpenAIResolver talks to any OpenAI-compatible chat endpoint (Groq by default).
func NewOpenAIResolver(apiKey, baseURL, model string, log *logrus.Entry) FieldResolver {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = "llama-3.3-70b-versatile"
	}
	return &openAIResolver{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		log:    log,
	}
}

type answerEnvelope struct {
	Answers []struct {
		Name       string  `json:"name"`
		Value      string  `json:"value"`
		Confidence float64 `json:"confidence"`
	} `json:"answers"`
}

func (r *openAIResolver) Suggest(ctx context.Context, job *models.JobListing, profile *models.UserProfile, fields []FieldDescriptor) (map[string]Suggestion, error) {
	out := make(map[string]Suggestion)
	if len(fields) == 0 {
		return out, nil
	}

	fieldsJSON, err := json.Marshal(fields)
	if err != nil {
		return out, fmt.Errorf("failed to marshal fields: %w", err)
	}

	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: r.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: buildSystemPrompt()},
			{Role: openai.ChatMessageRoleUser, Content: buildUserPrompt(job, profile, string(fieldsJSON))},
		},
		Temperature: 0.2,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return out, fmt.Errorf("field resolution request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return out, nil
	}

	var env answerEnvelope
	raw := cleanMarkdownJSON(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		r.log.WithField("length", len(raw)).Debug("🤖 Unparseable field suggestions, ignoring")
		return out, nil
	}

	known := make(map[string]FieldDescriptor, len(fields))
	for _, f := range fields {
		known[f.Name] = f
	}
	for _, a := range env.Answers {
		f, ok := known[a.Name]
		if !ok || a.Value == "" {
			continue
		}
		if len(f.Options) > 0 && !containsString(f.Options, a.Value) {
			continue
		}
		out[a.Name] = Suggestion{Value: a.Value, Confidence: clamp01(a.Confidence)}
	}
	return out, nil
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
