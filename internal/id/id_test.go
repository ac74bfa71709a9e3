package id

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWineID(t *testing.T) {
	seen := make(map[string]bool)
	for range 100 {
		id := NewWineID()
		assert.True(t, strings.HasPrefix(id, "wine-"))
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestNewSessionID(t *testing.T) {
	id, err := NewSessionID()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "ses-"))
	assert.Len(t, id, len("ses-")+21)
}
