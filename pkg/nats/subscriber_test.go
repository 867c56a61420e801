package nats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventTypeFromSubject(t *testing.T) {
	assert.Equal(t, "SESSION_STARTED", eventTypeFromSubject("evidence.SESSION_STARTED"))
	assert.Equal(t, "APPROVALS_FINALIZED", eventTypeFromSubject("evidence.APPROVALS_FINALIZED"))
	// Anything outside the stream prefix passes through untouched.
	assert.Equal(t, "other.subject", eventTypeFromSubject("other.subject"))
}
