package memento

import (
	"context"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// anthropicLLM implements LLMProvider against the real Anthropic SDK.
// Generalizes the teacher's classify.go/reflect_gemini.go raw-HTTP call
// shape into a single structured-completion method shared by every
// LLM-backed component.
type anthropicLLM struct {
	client anthropic.Client
	model  anthropic.Model
}

func NewAnthropicLLM(apiKey string, model anthropic.Model) *anthropicLLM {
	if model == "" {
		model = anthropic.ModelClaude3_5HaikuLatest
	}
	return &anthropicLLM{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

// CompleteStructured asks the model to call a single "extract" tool whose
// input schema is the caller-supplied schema, then returns the tool call's
// input verbatim.
func (a *anthropicLLM) CompleteStructured(ctx context.Context, prompt string, schema map[string]any) (map[string]any, error) {
	tool := anthropic.ToolParam{
		Name:        "extract",
		Description: anthropic.String("Record the structured extraction result."),
		InputSchema: anthropic.ToolInputSchemaParam{
			Properties: schema["properties"],
		},
	}

	msg, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     a.model,
		MaxTokens: 1024,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
		Tools:      []anthropic.ToolUnionParam{{OfTool: &tool}},
		ToolChoice: anthropic.ToolChoiceUnionParam{OfTool: &anthropic.ToolChoiceToolParam{Name: "extract"}},
	})
	if err != nil {
		return nil, errProvider("anthropicLLM.CompleteStructured", err)
	}

	for _, block := range msg.Content {
		if block.Type == "tool_use" && block.Name == "extract" {
			var out map[string]any
			if err := block.Input.UnmarshalJSON2(&out); err == nil {
				return out, nil
			}
		}
	}
	return nil, errProvider("anthropicLLM.CompleteStructured", errNoToolUse)
}

var errNoToolUse = &Error{Kind: KindProviderUnavailable, Op: "anthropicLLM.CompleteStructured", Msg: "model returned no tool_use block"}

// llmExtractor uses an LLMProvider for richer extraction than the heuristic
// path, falling back to it on error or timeout (same heuristic-first,
// LLM-fallback shape as HeuristicClassifier.Classify in classify.go, just
// inverted: here the LLM is the primary and the heuristic is the safety net
// because LLM extraction quality is materially better, not a disambiguator).
type llmExtractor struct {
	provider LLMProvider
	fallback EntityExtractor
	timeout  time.Duration
}

func newLLMExtractor(provider LLMProvider, timeout time.Duration) *llmExtractor {
	return &llmExtractor{provider: provider, fallback: newHeuristicExtractor(), timeout: timeout}
}

var extractionSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"people":        map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"topics":        map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"commitments": map[string]any{"type": "array", "items": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"text":        map[string]any{"type": "string"},
				"owner":       map[string]any{"type": "string", "enum": []string{string(OwnerSelf), string(OwnerThem)}},
				"other_party": map[string]any{"type": "string", "description": "the named person this commitment is owed to or by"},
				"due_date":    map[string]any{"type": "string", "description": "ISO-8601 date, or a relative phrase like 'next Friday'"},
			},
		}},
		"events":        map[string]any{"type": "array", "items": map[string]any{"type": "object"}},
		"sensitivities": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
	},
}

func (l *llmExtractor) Extract(content string) ExtractedFeatures {
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()

	prompt := "Extract people, topics, commitments, time-bound events, and sensitive " +
		"subjects mentioned in this note. For each commitment, also name the other " +
		"party it is owed to or by (other_party) and any deadline mentioned (due_date). " +
		"Call the extract tool with your findings.\n\nNote: " + content

	raw, err := l.provider.CompleteStructured(ctx, prompt, extractionSchema)
	if err != nil {
		logf("extract", "llm extraction failed, using heuristic: %v", err)
		return l.fallback.Extract(content)
	}
	return decodeExtractedFeatures(raw)
}

func decodeExtractedFeatures(raw map[string]any) ExtractedFeatures {
	var f ExtractedFeatures
	f.People = stringSlice(raw["people"])
	f.Topics = stringSlice(raw["topics"])
	f.Sensitivities = stringSlice(raw["sensitivities"])
	// commitments/events arrive as loosely-typed maps from tool-call JSON.
	for _, c := range anySlice(raw["commitments"]) {
		m, ok := c.(map[string]any)
		if !ok {
			continue
		}
		f.Commitments = append(f.Commitments, Commitment{
			Text:       stringField(m, "text"),
			Owner:      LoopOwner(orDefault(stringField(m, "owner"), string(OwnerSelf))),
			LoopType:   "commitment",
			OtherParty: stringField(m, "other_party"),
			DueDate:    parseDueDate(stringField(m, "due_date")),
		})
	}
	for _, e := range anySlice(raw["events"]) {
		m, ok := e.(map[string]any)
		if !ok {
			continue
		}
		f.Events = append(f.Events, TimelineFact{
			Description: stringField(m, "description"),
			EventDate:   time.Now(),
			Category:    "mentioned",
		})
	}
	return f
}

func stringSlice(v any) []string {
	items := anySlice(v)
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func anySlice(v any) []any {
	s, _ := v.([]any)
	return s
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// parseDueDate accepts either an ISO-8601 date from the model or a relative
// phrase ("next Friday", "tomorrow") and resolves it to a concrete time,
// reusing the same relative-cue resolution the heuristic extractor uses.
func parseDueDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return &t
	}
	return resolveDueDate(s, time.Now())
}
