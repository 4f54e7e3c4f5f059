package extract

import "context"

// Request is one text-completion call: system-style instructions plus a
// single user input, with sampling and length controls.
type Request struct {
	Instructions    string
	Input           string
	MaxOutputTokens int
	Temperature     *float64
	// JSON asks the service for a JSON object response.
	JSON            bool
	Verbosity       string
	ReasoningEffort string
}

// Completer returns the output text for a request.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// CompleterFunc adapts a function to the Completer interface.
type CompleterFunc func(ctx context.Context, req Request) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// Deterministic is the zero temperature used by the extraction stages.
func Deterministic() *float64 {
	t := 0.0
	return &t
}
