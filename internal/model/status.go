package model

// State describes the processing lifecycle. In Go a type declared via
// "type X string" creates a new named type with string as the underlying
// representation, enabling better type safety than using plain strings.
type State string

const (
	StateProcessing State = "processing"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

// Status is the tagged value kept per job id. OutputPath is only set for
// completed jobs and Error only for failed ones.
type Status struct {
	State      State  `json:"status"`
	OutputPath string `json:"-"`
	Error      string `json:"error,omitempty"`
}

// Processing returns the initial status written when a job is accepted.
func Processing() Status {
	return Status{State: StateProcessing}
}

// Completed returns the terminal success status.
func Completed(outputPath string) Status {
	return Status{State: StateCompleted, OutputPath: outputPath}
}

// Failed returns the terminal failure status carrying a client-safe message.
func Failed(msg string) Status {
	return Status{State: StateFailed, Error: msg}
}

// IsDone reports whether the status reached a terminal state.
func (s Status) IsDone() bool {
	return s.State == StateCompleted || s.State == StateFailed
}

// CanTransition enforces Processing -> {Completed|Failed} exactly once. The
// zero State stands for "no status yet" and may only move to Processing.
func CanTransition(from, to State) bool {
	switch from {
	case "":
		return to == StateProcessing
	case StateProcessing:
		return to == StateCompleted || to == StateFailed
	default:
		return false
	}
}
