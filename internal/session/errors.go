package session

import "fmt"

// FailureKind categorizes recoverable session failures.
type FailureKind int

const (
	// FailureTransport: the broadcast channel failed to connect or
	// dropped. Sending stays disabled; the session survives.
	FailureTransport FailureKind = iota

	// FailureHistoryFetch: the durable read failed. The session runs
	// with empty or partial history; live messaging is unaffected.
	FailureHistoryFetch

	// FailurePersistence: the durable write failed after a successful
	// broadcast. The message stays visible for this session but will
	// not survive a history reload.
	FailurePersistence
)

func (k FailureKind) String() string {
	switch k {
	case FailureTransport:
		return "transport"
	case FailureHistoryFetch:
		return "history_fetch"
	case FailurePersistence:
		return "persistence"
	default:
		return "unknown"
	}
}

// Failure wraps an underlying error with its category. All failures are
// local to the session; none are fatal to the hosting application.
type Failure struct {
	Kind FailureKind
	Err  error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s failure: %v", f.Kind, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}
