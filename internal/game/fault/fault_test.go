package fault_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cory-johannsen/melee/internal/game/fault"
)

func TestConfigError_IsAndUnwrap(t *testing.T) {
	cause := errors.New("missing verb")
	err := fmt.Errorf("loading: %w", fault.NewConfigError("attack", "slash", cause))
	assert.ErrorIs(t, err, fault.ErrConfig)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), `attack "slash": missing verb`)

	var ce *fault.ConfigError
	assert.True(t, errors.As(err, &ce))
	assert.Equal(t, "attack", ce.Kind)
}

func TestConfigError_NoID(t *testing.T) {
	err := fault.NewConfigError("layer", "", errors.New("id must not be empty"))
	assert.Equal(t, "layer: id must not be empty", err.Error())
}

func TestIllegalTransition(t *testing.T) {
	err := fault.IllegalTransition("grapple", "free", "breakout")
	assert.ErrorIs(t, err, fault.ErrIllegalTransition)
	assert.NotErrorIs(t, err, fault.ErrNoLegalMove)
	assert.Equal(t, `grapple: event "breakout" is not valid from state "free"`, err.Error())
}
