package getsafe

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	payload := map[string]any{"sub": "u-1", "n": 3}

	assert.Equal(t, "u-1", String(payload, "sub"))
	assert.Empty(t, String(payload, "n"))
	assert.Empty(t, String(payload, "missing"))
	assert.Empty(t, String(nil, "sub"))
}

func TestFirstString(t *testing.T) {
	payload := map[string]any{"email": "", "preferred_email": "a@example.com"}

	assert.Equal(t, "a@example.com", FirstString(payload, "email", "preferred_email"))
	assert.Empty(t, FirstString(payload, "other"))
}
