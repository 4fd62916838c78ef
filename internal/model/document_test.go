package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDocumentStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to DocumentStatus
		allowed  bool
	}{
		{StatusPending, StatusProcessing, true},
		{StatusProcessing, StatusIndexed, true},
		{StatusProcessing, StatusFailed, true},

		{StatusPending, StatusIndexed, false},
		{StatusPending, StatusFailed, false},
		{StatusProcessing, StatusPending, false},
		{StatusIndexed, StatusProcessing, false},
		{StatusIndexed, StatusFailed, false},
		{StatusFailed, StatusProcessing, false},
		{StatusFailed, StatusIndexed, false},
		{StatusIndexed, StatusPending, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to),
			"%s -> %s", tt.from, tt.to)
	}
}

func TestDocumentStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusProcessing.Terminal())
	assert.True(t, StatusIndexed.Terminal())
	assert.True(t, StatusFailed.Terminal())
}
