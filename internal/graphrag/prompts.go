package graphrag

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

type promptInput struct {
	Question    string
	InputSchema string
	CypherQuery string
	Context     string
}

type promptSpec struct {
	Name       string
	SchemaName string
	System     string
	User       string
}

type prompt struct {
	name       string
	schemaName string
	system     *template.Template
	user       *template.Template
}

func mustPrompt(s promptSpec) prompt {
	if strings.TrimSpace(s.SchemaName) == "" {
		panic(fmt.Sprintf("prompt %s: missing schema name", s.Name))
	}
	return prompt{
		name:       s.Name,
		schemaName: s.SchemaName,
		system:     template.Must(template.New(s.Name + ".system").Option("missingkey=zero").Parse(s.System)),
		user:       template.Must(template.New(s.Name + ".user").Option("missingkey=zero").Parse(s.User)),
	}
}

func (p prompt) render(in promptInput) (system string, user string, err error) {
	var sb, ub bytes.Buffer
	if err := p.system.Execute(&sb, in); err != nil {
		return "", "", fmt.Errorf("%s system template: %w", p.name, err)
	}
	if err := p.user.Execute(&ub, in); err != nil {
		return "", "", fmt.Errorf("%s user template: %w", p.name, err)
	}
	return strings.TrimSpace(sb.String()), strings.TrimSpace(ub.String()), nil
}

var prunePrompt = mustPrompt(promptSpec{
	Name:       "prune_schema",
	SchemaName: "pruned_schema",
	System: `
Understand the given labelled property graph schema and the given user question. Your task
is to return ONLY the subset of the schema (node labels, edge labels and properties) that is
relevant to the question.
  - The schema is a list of nodes and edges in a property graph.
  - The nodes are the entities in the graph.
  - The edges are the relationships between the nodes.
  - Properties of nodes and edges are their attributes, which helps answer the question.
Keep every edge's from and to labels exactly as given.
Return JSON only.`,
	User: `
QUESTION:
{{.Question}}

INPUT_SCHEMA_JSON:
{{.InputSchema}}`,
})

var text2CypherPrompt = mustPrompt(promptSpec{
	Name:       "text2cypher",
	SchemaName: "cypher_query",
	System: `
Translate the question into a valid Cypher query that respects the graph schema.
Think step by step in the reasoning field first, then give the final query.

<SYNTAX>
- Relationship directions are VERY important to the success of a query. Here's an example: If
the relationship ` + "`hasCreator`" + ` is marked as ` + "`from`" + ` A ` + "`to`" + ` B, it means that B created A.
- Use short, concise alphanumeric strings as names of variable bindings (e.g., ` + "`a1`, `r1`" + `, etc.)
- When comparing string properties, ALWAYS do the following:
  - Lowercase the property values before comparison
  - Use the WHERE clause
  - Use the CONTAINS operator to check for presence of one substring in the other
- DO NOT use APOC as the database does not support it.
- For datetime queries, use the TIMESTAMP type, which combines the date and time.
</SYNTAX>

<RETURN_RESULTS>
- If the result is an integer, return it as an integer (not a string).
- When returning results, return property values rather than the entire node or relationship.
- Do not attempt to coerce data types to number formats (e.g., integer, float) in your results.
- NO Cypher keywords should be returned by your query.
</RETURN_RESULTS>

The query must be a single line with no newlines.
Return JSON only.`,
	User: `
QUESTION:
{{.Question}}

INPUT_SCHEMA_JSON:
{{.InputSchema}}`,
})

var answerPrompt = mustPrompt(promptSpec{
	Name:       "answer_question",
	SchemaName: "answer",
	System: `
- Use the provided question, the generated Cypher query and the context to answer the question.
- If the context is empty, state that you don't have enough information to answer the question.
Return JSON only.`,
	User: `
QUESTION:
{{.Question}}

CYPHER_QUERY:
{{.CypherQuery}}

CONTEXT:
{{.Context}}`,
})
