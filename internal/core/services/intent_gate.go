package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/logger"
)

// DefaultGateTimeout bounds a single classification call.
const DefaultGateTimeout = 30 * time.Second

// gateSchema constrains the classifier reply to a yes/no enum.
var gateSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"answer": map[string]any{
			"type": "string",
			"enum": []any{"yes", "no"},
		},
	},
	"required":             []any{"answer"},
	"additionalProperties": false,
}

// IntentGate decides whether a user message needs document retrieval.
type IntentGate struct {
	llm     driven.LLMService
	prompts driven.PromptStore
	model   string
	timeout time.Duration
	schema  *gojsonschema.Schema
}

// NewIntentGate creates a gate. model may be empty to use the LLM's default.
func NewIntentGate(llm driven.LLMService, prompts driven.PromptStore, model string) *IntentGate {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(gateSchema))
	if err != nil {
		// gateSchema is static; a failure here is a programming error.
		panic(fmt.Sprintf("compile gate schema: %v", err))
	}
	return &IntentGate{
		llm:     llm,
		prompts: prompts,
		model:   model,
		timeout: DefaultGateTimeout,
		schema:  schema,
	}
}

// ShouldRetrieve reports whether message should trigger retrieval.
// Only an unambiguous "yes" is positive. Errors and ambiguous replies are
// logged and treated as negative.
func (g *IntentGate) ShouldRetrieve(ctx context.Context, message string) bool {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	raw, err := g.llm.Complete(ctx, []driven.ChatMessage{
		{Role: string(domain.RoleSystem), Content: loadPrompt(g.prompts, driven.PromptQuestionCheck)},
		{Role: string(domain.RoleUser), Content: message},
	}, driven.ChatOptions{
		Model:          g.model,
		Temperature:    0,
		MaxTokens:      16,
		ResponseFormat: &driven.ResponseFormat{Name: "question_check", Schema: gateSchema},
	})
	if err != nil {
		logger.Warn("Intent gate: %v", &domain.GateAmbiguousResponse{Err: err})
		return false
	}

	answer, err := g.parseAnswer(raw)
	if err != nil {
		logger.Warn("Intent gate: %v", &domain.GateAmbiguousResponse{Raw: raw, Err: err})
		return false
	}

	positive := strings.EqualFold(answer, "yes")
	if !positive && !strings.EqualFold(answer, "no") {
		logger.Debug("Intent gate: %v", &domain.GateAmbiguousResponse{Raw: raw})
	}
	logger.Debug("Intent gate answered %q, retrieve=%t", answer, positive)
	return positive
}

// parseAnswer extracts the classifier answer. Structured replies are
// validated against gateSchema after the answer is lowercased, so the enum
// accepts any casing. Plain text replies are used as-is.
func (g *IntentGate) parseAnswer(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "{") {
		return trimmed, nil
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(trimmed), &doc); err != nil {
		return "", fmt.Errorf("decode reply: %w", err)
	}
	if answer, ok := doc["answer"].(string); ok {
		doc["answer"] = strings.ToLower(strings.TrimSpace(answer))
	}

	result, err := g.schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return "", fmt.Errorf("validate reply: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return "", fmt.Errorf("reply does not match schema: %s", strings.Join(msgs, "; "))
	}

	answer, _ := doc["answer"].(string)
	return answer, nil
}
