package deploy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransition(t *testing.T) {
	tests := []struct {
		from  State
		event Event
		want  State
	}{
		{StateLookingUp, EventFound, StateTransferring},
		{StateLookingUp, EventNotFound, StateProvisioning},
		{StateLookingUp, EventFailed, StateFailed},
		{StateProvisioning, EventSucceeded, StatePurgingKnownHost},
		{StatePurgingKnownHost, EventSucceeded, StateReconcilingDomain},
		{StateReconcilingDomain, EventSucceeded, StateTransferring},
		{StateTransferring, EventSucceeded, StateRunningLifecycle},
		{StateTransferring, EventFailed, StateFailed},
		{StateRunningLifecycle, EventSucceeded, StateDone},
		{StateRunningLifecycle, EventFailed, StateFailed},
	}

	for _, tt := range tests {
		t.Run(tt.from.String()+"/"+tt.event.String(), func(t *testing.T) {
			got, err := transition(tt.from, tt.event)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTransition_Invalid(t *testing.T) {
	invalid := []struct {
		from  State
		event Event
	}{
		{StateLookingUp, EventSucceeded},
		{StateProvisioning, EventFound},
		{StateTransferring, EventNotFound},
		{StateDone, EventSucceeded},
		{StateFailed, EventFailed},
		{State(42), EventSucceeded},
	}

	for _, tt := range invalid {
		_, err := transition(tt.from, tt.event)
		assert.ErrorIs(t, err, ErrInvalidTransition, "%s on %s", tt.from, tt.event)
	}
}

func TestState_Terminal(t *testing.T) {
	assert.True(t, StateDone.Terminal())
	assert.True(t, StateFailed.Terminal())
	assert.False(t, StateLookingUp.Terminal())
	assert.Equal(t, "state(42)", State(42).String())
}
