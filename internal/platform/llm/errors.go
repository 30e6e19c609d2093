package llm

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyCompletion is returned when the upstream answered 2xx without any text.
	ErrEmptyCompletion = errors.New("llm: empty upstream completion")
	// ErrInvalidJSON is returned when a structured request produced text that is not JSON.
	ErrInvalidJSON = errors.New("llm: invalid json")
)

type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "upstream http error"
	}
	if e.Body == "" {
		return fmt.Sprintf("upstream http error: status=%d", e.StatusCode)
	}
	return fmt.Sprintf("upstream http error: status=%d body=%s", e.StatusCode, e.Body)
}

func (e *HTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}
