package ctxutil

import "context"

type traceDataKey struct{}

type TraceData struct {
	TraceID   string
	RequestID string
}

func WithTraceData(ctx context.Context, td *TraceData) context.Context {
	return context.WithValue(ctx, traceDataKey{}, td)
}

func GetTraceData(ctx context.Context) *TraceData {
	val := ctx.Value(traceDataKey{})
	if td, ok := val.(*TraceData); ok {
		return td
	}
	return nil
}

type questionDataKey struct{}

// QuestionData identifies one question inside a batch.
type QuestionData struct {
	BatchID  string
	Position int
}

func WithQuestionData(ctx context.Context, qd *QuestionData) context.Context {
	return context.WithValue(ctx, questionDataKey{}, qd)
}

func GetQuestionData(ctx context.Context) *QuestionData {
	val := ctx.Value(questionDataKey{})
	if qd, ok := val.(*QuestionData); ok {
		return qd
	}
	return nil
}

// LogFields returns the identifying key/value pairs carried by ctx.
func LogFields(ctx context.Context) []interface{} {
	var out []interface{}
	if td := GetTraceData(ctx); td != nil {
		if td.TraceID != "" {
			out = append(out, "trace_id", td.TraceID)
		}
		if td.RequestID != "" {
			out = append(out, "request_id", td.RequestID)
		}
	}
	if qd := GetQuestionData(ctx); qd != nil {
		if qd.BatchID != "" {
			out = append(out, "batch_id", qd.BatchID)
		}
		out = append(out, "position", qd.Position)
	}
	return out
}
