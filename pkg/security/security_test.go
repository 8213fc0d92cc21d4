package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cristianfalcone/cronq/pkg/core"
)

// ──────────────────────────────────────────────────────────────────────────────
// Name validation
// ──────────────────────────────────────────────────────────────────────────────

func TestValidateJobName(t *testing.T) {
	valid := []string{"a", "report", "email.send", "nightly-report", "job_42", "A.B-C_d"}
	for _, name := range valid {
		assert.NoError(t, ValidateJobName(name), "name %q", name)
	}

	assert.ErrorIs(t, ValidateJobName(""), core.ErrInvalidJobName)
	assert.ErrorIs(t, ValidateJobName("9lives"), core.ErrInvalidJobName)
	assert.ErrorIs(t, ValidateJobName("has space"), core.ErrInvalidJobName)
	assert.ErrorIs(t, ValidateJobName("semi;colon"), core.ErrInvalidJobName)
	assert.ErrorIs(t, ValidateJobName(".dotfirst"), core.ErrInvalidJobName)
	assert.ErrorIs(t, ValidateJobName(strings.Repeat("a", MaxJobNameLength+1)), core.ErrJobNameTooLong)
	assert.NoError(t, ValidateJobName(strings.Repeat("a", MaxJobNameLength)))
}

func TestValidateQueueName(t *testing.T) {
	assert.NoError(t, ValidateQueueName("default"))
	assert.NoError(t, ValidateQueueName("mail-high"))

	assert.ErrorIs(t, ValidateQueueName(""), core.ErrInvalidQueueName)
	assert.ErrorIs(t, ValidateQueueName("drop table"), core.ErrInvalidQueueName)
	assert.ErrorIs(t, ValidateQueueName(strings.Repeat("q", MaxQueueNameLength+1)), core.ErrQueueNameTooLong)
}

func TestValidateUniqueKey(t *testing.T) {
	assert.NoError(t, ValidateUniqueKey(""))
	assert.NoError(t, ValidateUniqueKey("tick@1750000000"))
	assert.ErrorIs(t, ValidateUniqueKey(strings.Repeat("k", MaxUniqueKeyLength+1)), core.ErrUniqueKeyTooLong)
}

// ──────────────────────────────────────────────────────────────────────────────
// Error message sanitization
// ──────────────────────────────────────────────────────────────────────────────

func TestSanitizeErrorMessage(t *testing.T) {
	assert.Empty(t, SanitizeErrorMessage(""))
	assert.Equal(t, "plain message", SanitizeErrorMessage("plain message"))
	assert.Equal(t, "line1\nline2\ttabbed", SanitizeErrorMessage("line1\nline2\ttabbed"))
	assert.Equal(t, "nulls", SanitizeErrorMessage("nu\x00ll\x01s"))

	long := strings.Repeat("x", MaxErrorMessageLength+100)
	sanitized := SanitizeErrorMessage(long)
	assert.Len(t, sanitized, MaxErrorMessageLength)
	assert.True(t, strings.HasSuffix(sanitized, "..."))
}

// ──────────────────────────────────────────────────────────────────────────────
// Clamping
// ──────────────────────────────────────────────────────────────────────────────

func TestClampAttempts(t *testing.T) {
	assert.Equal(t, 0, ClampAttempts(-5))
	assert.Equal(t, 0, ClampAttempts(0))
	assert.Equal(t, 7, ClampAttempts(7))
	assert.Equal(t, MaxAttempts, ClampAttempts(MaxAttempts+1))
}

func TestClampConcurrency(t *testing.T) {
	assert.Equal(t, 1, ClampConcurrency(-1))
	assert.Equal(t, 1, ClampConcurrency(0))
	assert.Equal(t, 8, ClampConcurrency(8))
	assert.Equal(t, MaxConcurrency, ClampConcurrency(MaxConcurrency+1))
}
