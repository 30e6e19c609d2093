package graphrag

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
)

type Property struct {
	Name string `json:"name"`
	Type string `json:"type" jsonschema:"Data type of the property"`
}

// Node is a node label and its properties. Properties is nil when the schema
// carries no property information for the label (edge endpoints, for example).
type Node struct {
	Label      string     `json:"label"`
	Properties []Property `json:"properties"`
}

// Edge is one (relationship label, source label, target label) connection.
// From and To are exactly the database's start and end labels.
type Edge struct {
	Label      string     `json:"label" jsonschema:"Relationship label"`
	From       Node       `json:"from" jsonschema:"Source node label"`
	To         Node       `json:"to" jsonschema:"Target node label"`
	Properties []Property `json:"properties"`
}

// GraphSchema is treated as immutable once built. Use Clone before modifying.
type GraphSchema struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

func (s GraphSchema) Clone() GraphSchema {
	out := GraphSchema{
		Nodes: make([]Node, len(s.Nodes)),
		Edges: make([]Edge, len(s.Edges)),
	}
	for i, n := range s.Nodes {
		out.Nodes[i] = n.clone()
	}
	for i, e := range s.Edges {
		out.Edges[i] = Edge{
			Label:      e.Label,
			From:       e.From.clone(),
			To:         e.To.clone(),
			Properties: cloneProps(e.Properties),
		}
	}
	return out
}

func (n Node) clone() Node {
	return Node{Label: n.Label, Properties: cloneProps(n.Properties)}
}

func cloneProps(in []Property) []Property {
	if in == nil {
		return nil
	}
	out := make([]Property, len(in))
	copy(out, in)
	return out
}

// normalized replaces nil node/edge lists with empty ones.
func (s GraphSchema) normalized() GraphSchema {
	if s.Nodes == nil {
		s.Nodes = []Node{}
	}
	if s.Edges == nil {
		s.Edges = []Edge{}
	}
	return s
}

// JSON renders the schema as prompt input.
func (s GraphSchema) JSON() (string, error) {
	b, err := json.Marshal(s.normalized())
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// NodeLabels returns the sorted node labels.
func (s GraphSchema) NodeLabels() []string {
	out := make([]string, 0, len(s.Nodes))
	for _, n := range s.Nodes {
		out = append(out, n.Label)
	}
	sort.Strings(out)
	return out
}

// EdgeTriples returns "label:from->to" for every edge, in schema order.
func (s GraphSchema) EdgeTriples() []string {
	out := make([]string, 0, len(s.Edges))
	for _, e := range s.Edges {
		out = append(out, e.Label+":"+e.From.Label+"->"+e.To.Label)
	}
	return out
}

type Query struct {
	Query string `json:"query" jsonschema:"Valid Cypher query with no newlines"`
}

// QueryResult holds every value of every returned row, flattened row by row.
// Column names and row boundaries are not kept. A nil QueryResult means the
// query failed; an empty non-nil one means it ran and matched nothing.
type QueryResult []any

// Encodable returns a copy of r that encoding/json can marshal: NaN and ±Inf
// become the strings "NaN", "+Inf" and "-Inf", nested lists and maps included.
func (r QueryResult) Encodable() QueryResult {
	if r == nil {
		return nil
	}
	out := make(QueryResult, len(r))
	for i, v := range r {
		out[i] = encodableValue(v)
	}
	return out
}

func encodableValue(v any) any {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return strconv.FormatFloat(t, 'g', -1, 64)
		}
		return t
	case float32:
		return encodableValue(float64(t))
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = encodableValue(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = encodableValue(item)
		}
		return out
	default:
		return v
	}
}

type Answer struct {
	Response string `json:"response"`
}

const (
	StatusAnswered  = "answered"
	StatusNoContext = "no_context"
	StatusFailed    = "failed"
)

// Outcome is the result of one question in a batch.
type Outcome struct {
	Question string
	Query    string
	Context  QueryResult
	Answer   *Answer
	Err      error
}

func (o Outcome) Status() string {
	switch {
	case o.Err != nil:
		return StatusFailed
	case o.Answer == nil:
		return StatusNoContext
	default:
		return StatusAnswered
	}
}

type outcomeJSON struct {
	Question string      `json:"question"`
	Status   string      `json:"status"`
	Query    string      `json:"query,omitempty"`
	Context  QueryResult `json:"context"`
	Answer   *Answer     `json:"answer"`
	Error    string      `json:"error,omitempty"`
}

func (o Outcome) MarshalJSON() ([]byte, error) {
	v := outcomeJSON{
		Question: o.Question,
		Status:   o.Status(),
		Query:    o.Query,
		Context:  o.Context.Encodable(),
		Answer:   o.Answer,
	}
	if o.Err != nil {
		v.Error = o.Err.Error()
	}
	return json.Marshal(v)
}
