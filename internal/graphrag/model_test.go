package graphrag

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/yungbote/graphrag-cypher/internal/platform/llm"
)

func newTestModel(t *testing.T, f *fakeLLM) *StructuredModel {
	t.Helper()
	m, err := NewStructuredModel(testLogger(t), f)
	if err != nil {
		t.Fatalf("NewStructuredModel: %v", err)
	}
	return m
}

func TestGenerateQueryDecodesDraft(t *testing.T) {
	f := &fakeLLM{reply: []byte(`{"reasoning":"count forums","query":{"query":"MATCH (f:Forum) RETURN count(f)"}}`)}
	m := newTestModel(t, f)

	d, err := m.GenerateQuery(context.Background(), "How many forums?", GraphSchema{Nodes: []Node{{Label: "Forum"}}})
	if err != nil {
		t.Fatalf("GenerateQuery: %v", err)
	}
	if d.Query.Query != "MATCH (f:Forum) RETURN count(f)" || d.Reasoning != "count forums" {
		t.Fatalf("draft: got=%+v", d)
	}
	if len(f.schemas) != 1 || f.schemas[0].Name != "cypher_query" || !f.schemas[0].Strict {
		t.Fatalf("schema sent: got=%+v", f.schemas)
	}
	if !strings.Contains(f.users[0], `"label":"Forum"`) {
		t.Fatalf("user prompt lacks schema JSON: %s", f.users[0])
	}
}

func TestGenerateQueryRejectsSchemaMismatch(t *testing.T) {
	f := &fakeLLM{reply: []byte(`{"reasoning":"x","query":"MATCH (n) RETURN n"}`)}
	m := newTestModel(t, f)
	if _, err := m.GenerateQuery(context.Background(), "Q", GraphSchema{}); !errors.Is(err, ErrStructuredOutput) {
		t.Fatalf("want ErrStructuredOutput got=%v", err)
	}
}

func TestSynthesizeAnswerRejectsMissingField(t *testing.T) {
	f := &fakeLLM{reply: []byte(`{}`)}
	m := newTestModel(t, f)
	if _, err := m.SynthesizeAnswer(context.Background(), "Q", "RETURN 1", "[1]"); !errors.Is(err, ErrStructuredOutput) {
		t.Fatalf("want ErrStructuredOutput got=%v", err)
	}
}

func TestInvalidJSONIsStructuredOutputFailure(t *testing.T) {
	f := &fakeLLM{err: llm.ErrInvalidJSON}
	m := newTestModel(t, f)
	if _, err := m.PruneSchema(context.Background(), "Q", GraphSchema{}); !errors.Is(err, ErrStructuredOutput) {
		t.Fatalf("want ErrStructuredOutput got=%v", err)
	}
}

func TestTransportErrorIsNotStructuredOutputFailure(t *testing.T) {
	f := &fakeLLM{err: &llm.HTTPError{StatusCode: 401, Body: "missing key"}}
	m := newTestModel(t, f)
	_, err := m.PruneSchema(context.Background(), "Q", GraphSchema{})
	if errors.Is(err, ErrStructuredOutput) {
		t.Fatalf("transport error classified as structured output: %v", err)
	}
	var httpErr *llm.HTTPError
	if !errors.As(err, &httpErr) || httpErr.HTTPStatusCode() != 401 {
		t.Fatalf("want wrapped *llm.HTTPError got=%v", err)
	}
}

func TestPruneSchemaAcceptsNullProperties(t *testing.T) {
	f := &fakeLLM{reply: []byte(`{"nodes":[{"label":"Person","properties":null}],"edges":[{"label":"knows","from":{"label":"Person","properties":null},"to":{"label":"Person","properties":null},"properties":[]}]}`)}
	m := newTestModel(t, f)
	s, err := m.PruneSchema(context.Background(), "Who knows whom?", GraphSchema{})
	if err != nil {
		t.Fatalf("PruneSchema: %v", err)
	}
	if got := s.EdgeTriples(); len(got) != 1 || got[0] != "knows:Person->Person" {
		t.Fatalf("edges: got=%v", got)
	}
}

func TestWireSchemaClosesObjects(t *testing.T) {
	s, err := newOutputSchema[Answer]("answer")
	if err != nil {
		t.Fatalf("newOutputSchema: %v", err)
	}
	if v, ok := s.wire["additionalProperties"]; !ok || v != false {
		t.Fatalf("additionalProperties: got=%v", s.wire["additionalProperties"])
	}
	req, _ := s.wire["required"].([]any)
	if len(req) != 1 || req[0] != "response" {
		t.Fatalf("required: got=%v", s.wire["required"])
	}
}

func TestPrunedSchemaAcceptsIntrospectedJSON(t *testing.T) {
	s, err := newOutputSchema[GraphSchema]("pruned_schema", "properties")
	if err != nil {
		t.Fatalf("newOutputSchema: %v", err)
	}
	full := GraphSchema{
		Nodes: []Node{{Label: "Person", Properties: []Property{{Name: "lastName", Type: "STRING"}}}},
		Edges: []Edge{{Label: "knows", From: Node{Label: "Person"}, To: Node{Label: "Person"}}},
	}
	raw, err := full.JSON()
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}
	var instance any
	if err := json.Unmarshal([]byte(raw), &instance); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if err := s.resolved.Validate(instance); err != nil {
		t.Fatalf("introspected schema rejected: %v", err)
	}
	edges, _ := s.wire["properties"].(map[string]any)["edges"].(map[string]any)
	items, _ := edges["items"].(map[string]any)
	props, _ := items["properties"].(map[string]any)["properties"].(map[string]any)
	types, _ := props["type"].([]any)
	if len(types) != 2 || types[0] != "null" || types[1] != "array" {
		t.Fatalf("wire edge properties type: got=%v", props["type"])
	}
}
