package outbox

import "fmt"

// FailurePolicy decides what happens to an optimistic entry whose frame could
// not be transmitted.
type FailurePolicy string

const (
	// KeepFailed leaves the entry in the timeline with status failed.
	KeepFailed FailurePolicy = "keep"
	// Retract removes the entry from the timeline.
	Retract FailurePolicy = "retract"
)

// ParseFailurePolicy maps the on_send_failure config value.
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch FailurePolicy(s) {
	case KeepFailed, "":
		return KeepFailed, nil
	case Retract:
		return Retract, nil
	default:
		return "", fmt.Errorf("unknown failure policy %q", s)
	}
}
