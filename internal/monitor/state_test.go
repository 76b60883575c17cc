package monitor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidTransitions(t *testing.T) {
	tests := []struct {
		from  State
		to    State
		valid bool
	}{
		{StateIdle, StateRunning, true},
		{StateIdle, StateStopped, true},
		{StateIdle, StateStopping, false},
		{StateRunning, StateStopping, true},
		{StateRunning, StateStopped, false},
		{StateRunning, StateIdle, false},
		{StateStopping, StateStopped, true},
		{StateStopping, StateRunning, false},
		{StateStopped, StateRunning, false},
		{StateStopped, StateIdle, false},
		{State("bogus"), StateRunning, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.valid, CanTransition(tt.from, tt.to))
			err := Transition(tt.from, tt.to)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, IsTerminal(StateStopped))
	assert.False(t, IsTerminal(StateIdle))
	assert.False(t, IsTerminal(StateRunning))
	assert.False(t, IsTerminal(StateStopping))
}
