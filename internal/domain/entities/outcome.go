package entities

// OutcomeKind names the three possible results of an atomic operation
type OutcomeKind string

const (
	OutcomeCompleted       OutcomeKind = "COMPLETED"
	OutcomeCompletedCached OutcomeKind = "COMPLETED_CACHED"
	OutcomeInProgress      OutcomeKind = "IN_PROGRESS"
)

// Outcome is the closed result set of an atomic operation. Only the three
// types below implement it; switch on the concrete type at the call site.
type Outcome[T any] interface {
	Kind() OutcomeKind
	sealed(*T)
}

// Completed means this call performed the business effect
type Completed[T any] struct {
	Result *T
}

// CompletedCached means an earlier call with the same idempotency key already
// performed the effect; Result is the stored result
type CompletedCached[T any] struct {
	Result *T
}

// InProgress means a concurrent leader holds the lock; retry with the same key
type InProgress[T any] struct{}

func (Completed[T]) Kind() OutcomeKind       { return OutcomeCompleted }
func (CompletedCached[T]) Kind() OutcomeKind { return OutcomeCompletedCached }
func (InProgress[T]) Kind() OutcomeKind      { return OutcomeInProgress }

func (Completed[T]) sealed(*T)       {}
func (CompletedCached[T]) sealed(*T) {}
func (InProgress[T]) sealed(*T)      {}

// ResultOf returns the payload of a completed or cached outcome, and false for InProgress
func ResultOf[T any](o Outcome[T]) (*T, bool) {
	switch v := o.(type) {
	case Completed[T]:
		return v.Result, true
	case CompletedCached[T]:
		return v.Result, true
	default:
		return nil, false
	}
}
