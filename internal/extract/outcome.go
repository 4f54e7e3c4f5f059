package extract

// Outcome is the result of one LLM-backed stage call. A failed call carries
// the reason in Failure and a zero Value; callers treat it as an empty
// contribution rather than an error.
type Outcome[T any] struct {
	Value   T
	Failure error
}

func Succeeded[T any](v T) Outcome[T] { return Outcome[T]{Value: v} }

func Failed[T any](err error) Outcome[T] { return Outcome[T]{Failure: err} }

func (o Outcome[T]) OK() bool { return o.Failure == nil }

// Reason describes the failure, or is empty on success.
func (o Outcome[T]) Reason() string {
	if o.Failure == nil {
		return ""
	}
	return o.Failure.Error()
}
