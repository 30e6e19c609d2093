package graphrag

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/yungbote/graphrag-cypher/internal/platform/llm"
	"github.com/yungbote/graphrag-cypher/internal/platform/logger"
)

// Model is the language-model boundary, one method per pipeline task.
type Model interface {
	PruneSchema(ctx context.Context, question string, full GraphSchema) (GraphSchema, error)
	GenerateQuery(ctx context.Context, question string, pruned GraphSchema) (QueryDraft, error)
	SynthesizeAnswer(ctx context.Context, question string, cypher string, contextJSON string) (Answer, error)
}

// QueryDraft is the query generation output. Reasoning is for logs only.
type QueryDraft struct {
	Reasoning string `json:"reasoning" jsonschema:"Step by step reasoning that leads to the query"`
	Query     Query  `json:"query"`
}

type outputSchema struct {
	name     string
	wire     map[string]any
	resolved *jsonschema.Resolved
}

// newOutputSchema infers the schema of T. Array fields named in nullable also
// accept null, matching how nil slices encode.
func newOutputSchema[T any](name string, nullable ...string) (*outputSchema, error) {
	s, err := jsonschema.For[T](nil)
	if err != nil {
		return nil, fmt.Errorf("infer %s schema: %w", name, err)
	}
	for _, field := range nullable {
		allowNullArrays(s, field, map[*jsonschema.Schema]bool{})
	}
	resolved, err := s.Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("resolve %s schema: %w", name, err)
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal %s schema: %w", name, err)
	}
	var wire map[string]any
	if err := json.Unmarshal(b, &wire); err != nil {
		return nil, fmt.Errorf("unmarshal %s schema: %w", name, err)
	}
	closeObjects(wire)
	return &outputSchema{name: name, wire: wire, resolved: resolved}, nil
}

func allowNullArrays(s *jsonschema.Schema, field string, seen map[*jsonschema.Schema]bool) {
	if s == nil || seen[s] {
		return
	}
	seen[s] = true
	for name, child := range s.Properties {
		if name == field && child != nil && child.Type == "array" {
			child.Type = ""
			child.Types = []string{"null", "array"}
		}
		allowNullArrays(child, field, seen)
	}
	allowNullArrays(s.Items, field, seen)
	for _, def := range s.Defs {
		allowNullArrays(def, field, seen)
	}
}

// closeObjects rewrites inferred "additionalProperties": {"not": {}} into the
// literal false that strict structured-output backends accept.
func closeObjects(v any) {
	switch node := v.(type) {
	case map[string]any:
		for k, child := range node {
			if k == "additionalProperties" {
				if m, ok := child.(map[string]any); ok && len(m) == 1 {
					if not, ok := m["not"].(map[string]any); ok && len(not) == 0 {
						node[k] = false
						continue
					}
				}
			}
			closeObjects(child)
		}
	case []any:
		for _, child := range node {
			closeObjects(child)
		}
	}
}

// StructuredModel implements Model on an OpenAI-compatible chat client.
// Every reply is validated against the schema inferred from its Go type.
type StructuredModel struct {
	log    *logger.Logger
	client llm.Client

	pruned *outputSchema
	draft  *outputSchema
	answer *outputSchema
}

func NewStructuredModel(log *logger.Logger, client llm.Client) (*StructuredModel, error) {
	if log == nil {
		return nil, errors.New("graphrag: logger required")
	}
	if client == nil {
		return nil, errors.New("graphrag: llm client required")
	}
	pruned, err := newOutputSchema[GraphSchema](prunePrompt.schemaName, "properties")
	if err != nil {
		return nil, err
	}
	draft, err := newOutputSchema[QueryDraft](text2CypherPrompt.schemaName)
	if err != nil {
		return nil, err
	}
	answer, err := newOutputSchema[Answer](answerPrompt.schemaName)
	if err != nil {
		return nil, err
	}
	return &StructuredModel{
		log:    log.With("component", "StructuredModel", "model", client.Model()),
		client: client,
		pruned: pruned,
		draft:  draft,
		answer: answer,
	}, nil
}

func (m *StructuredModel) PruneSchema(ctx context.Context, question string, full GraphSchema) (GraphSchema, error) {
	in, err := full.JSON()
	if err != nil {
		return GraphSchema{}, fmt.Errorf("render schema: %w", err)
	}
	return generate[GraphSchema](ctx, m.client, prunePrompt, m.pruned, promptInput{Question: question, InputSchema: in})
}

func (m *StructuredModel) GenerateQuery(ctx context.Context, question string, pruned GraphSchema) (QueryDraft, error) {
	in, err := pruned.JSON()
	if err != nil {
		return QueryDraft{}, fmt.Errorf("render schema: %w", err)
	}
	return generate[QueryDraft](ctx, m.client, text2CypherPrompt, m.draft, promptInput{Question: question, InputSchema: in})
}

func (m *StructuredModel) SynthesizeAnswer(ctx context.Context, question string, cypher string, contextJSON string) (Answer, error) {
	return generate[Answer](ctx, m.client, answerPrompt, m.answer, promptInput{
		Question:    question,
		CypherQuery: cypher,
		Context:     contextJSON,
	})
}

func generate[T any](ctx context.Context, client llm.Client, p prompt, schema *outputSchema, in promptInput) (T, error) {
	var out T
	system, user, err := p.render(in)
	if err != nil {
		return out, err
	}
	raw, err := client.GenerateJSON(ctx, system, user, llm.JSONSchema{
		Name:   schema.name,
		Schema: schema.wire,
		Strict: true,
	})
	if err != nil {
		if errors.Is(err, llm.ErrInvalidJSON) || errors.Is(err, llm.ErrEmptyCompletion) {
			return out, fmt.Errorf("%w: %s: %v", ErrStructuredOutput, p.name, err)
		}
		return out, fmt.Errorf("%s: %w", p.name, err)
	}
	var instance any
	if err := json.Unmarshal(raw, &instance); err != nil {
		return out, fmt.Errorf("%w: %s: %v", ErrStructuredOutput, p.name, err)
	}
	if err := schema.resolved.Validate(instance); err != nil {
		return out, fmt.Errorf("%w: %s: %v", ErrStructuredOutput, p.name, err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("%w: %s: %v", ErrStructuredOutput, p.name, err)
	}
	return out, nil
}
