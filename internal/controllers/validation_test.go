package controllers

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterValidators(t *testing.T) {
	require.NoError(t, RegisterValidators())
	// Repeated calls keep the first outcome.
	assert.NoError(t, RegisterValidators())
}

func TestRegisterValidators_UnknownEngine(t *testing.T) {
	err := registerValidators(struct{}{})
	assert.ErrorContains(t, err, "binding engine")

	err = registerValidators(nil)
	assert.Error(t, err)
}

func TestTelegramHandleRule(t *testing.T) {
	v := validator.New()
	require.NoError(t, registerValidators(v))

	testCases := []struct {
		handle string
		valid  bool
	}{
		{handle: "alice_1", valid: true},
		{handle: "@alice_1", valid: true},
		{handle: "Dave_Player", valid: true},
		{handle: "abcd", valid: false},
		{handle: "bad-name!", valid: false},
		{handle: "@@alice_1", valid: false},
		{handle: "a234567890123456789012345678901234", valid: false},
	}
	for _, tt := range testCases {
		t.Run(tt.handle, func(t *testing.T) {
			err := v.Var(tt.handle, "tghandle")
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
