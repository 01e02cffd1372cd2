package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeKVsRedactsSensitiveKeys(t *testing.T) {
	out := sanitizeKVs([]interface{}{"user_id", 7, "password", "hunter2", "Authorization", "Bearer x", "dangling"})

	assert.Equal(t, []interface{}{"user_id", 7, "password", "[REDACTED]", "Authorization", "[REDACTED]", "dangling"}, out)
}

func TestNewDevelopmentLogger(t *testing.T) {
	l, err := New("development")
	assert.NoError(t, err)
	l.With("component", "test").Info("hello", "k", "v")
}
