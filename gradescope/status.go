package gradescope

// Autograder status values with known meaning. Anything else is treated as
// unknown and, by policy, still worth a regrade: workers only run after the
// expected grading window has elapsed.
const (
	StatusProcessed = "processed"
	StatusFailed    = "failed"
)

// StatusClass tags an autograder status as terminal, recoverable or unknown.
type StatusClass int

const (
	StatusTerminal StatusClass = iota
	StatusRecoverable
	StatusUnknown
)

func (c StatusClass) String() string {
	switch c {
	case StatusTerminal:
		return "terminal"
	case StatusRecoverable:
		return "recoverable"
	default:
		return "unknown"
	}
}

// Classify maps a raw autograder status onto its class.
func Classify(status string) StatusClass {
	switch status {
	case StatusProcessed:
		return StatusTerminal
	case StatusFailed:
		return StatusRecoverable
	default:
		return StatusUnknown
	}
}
