package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestStatus_IsValid tests recognised statuses
func TestStatus_IsValid(t *testing.T) {
	tests := []struct {
		status   Status
		expected bool
	}{
		{StatusPending, true},
		{StatusProcessing, true},
		{StatusCompleted, true},
		{StatusFailed, true},
		{Status(""), false},
		{Status("archived"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.status.IsValid())
		})
	}
}

// TestStatus_IsTerminal tests terminal detection
func TestStatus_IsTerminal(t *testing.T) {
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusProcessing.IsTerminal())
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusFailed.IsTerminal())
}

// TestStatus_CanTransition tests the document state machine
func TestStatus_CanTransition(t *testing.T) {
	tests := []struct {
		name     string
		from     Status
		to       Status
		expected bool
	}{
		{"pending to processing", StatusPending, StatusProcessing, true},
		{"pending to completed", StatusPending, StatusCompleted, false},
		{"pending to failed", StatusPending, StatusFailed, false},
		{"processing to completed", StatusProcessing, StatusCompleted, true},
		{"processing to failed", StatusProcessing, StatusFailed, true},
		{"processing to pending (stale reset)", StatusProcessing, StatusPending, true},
		{"completed to processing", StatusCompleted, StatusProcessing, false},
		{"failed to processing", StatusFailed, StatusProcessing, false},
		{"failed to pending (resubmit)", StatusFailed, StatusPending, true},
		{"completed to pending (resubmit)", StatusCompleted, StatusPending, true},
		{"completed to failed", StatusCompleted, StatusFailed, false},
		{"unknown status", Status("bogus"), StatusPending, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.from.CanTransition(tt.to))
		})
	}
}

// TestChunkVectorID tests vector identifiers are stable per (document, index)
func TestChunkVectorID(t *testing.T) {
	assert.Equal(t, "doc-1:0", ChunkVectorID("doc-1", 0))
	assert.Equal(t, "doc-1:12", ChunkVectorID("doc-1", 12))
	assert.NotEqual(t, ChunkVectorID("doc-1", 1), ChunkVectorID("doc-11", 0))
}
