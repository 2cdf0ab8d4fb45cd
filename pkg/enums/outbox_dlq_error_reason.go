package enums

import "fmt"

// OutboxDLQErrorReason records why the relay parked an order event.
type OutboxDLQErrorReason string

const (
	// OutboxDLQReasonMaxAttempts means every retry failed.
	OutboxDLQReasonMaxAttempts OutboxDLQErrorReason = "max_attempts"
	// OutboxDLQReasonNonRetryable covers malformed payloads and unconfigured sinks.
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

func (r OutboxDLQErrorReason) String() string { return string(r) }

func (r OutboxDLQErrorReason) IsValid() bool {
	return r == OutboxDLQReasonMaxAttempts || r == OutboxDLQReasonNonRetryable
}

func ParseOutboxDLQErrorReason(value string) (OutboxDLQErrorReason, error) {
	r := OutboxDLQErrorReason(value)
	if !r.IsValid() {
		return "", fmt.Errorf("invalid outbox dlq reason %q", value)
	}
	return r, nil
}
