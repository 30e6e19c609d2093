package graphrag

import "errors"

var (
	// ErrStructuredOutput means a model reply was not valid JSON for the
	// stage's output schema.
	ErrStructuredOutput = errors.New("structured output invalid")
	// ErrEmptyQuery means the generated Cypher was blank after normalisation.
	ErrEmptyQuery = errors.New("generated query is empty")
	// ErrTaskPanic wraps a panic recovered from a single question's task.
	ErrTaskPanic = errors.New("question task panicked")

	ErrEmptyQuestion     = errors.New("question is empty")
	ErrSchemaUnavailable = errors.New("graph schema unavailable")
)
