package validator

import (
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidRole(t *testing.T) {
	for _, role := range []string{"admin", "exam_cell", "IQAC-2", "General Admin Department", "Lekha Vibhag", strings.Repeat("r", MaxRoleLength)} {
		assert.True(t, ValidRole(role), role)
	}
	for _, role := range []string{"", "   ", "\t", strings.Repeat("r", MaxRoleLength+1)} {
		assert.False(t, ValidRole(role), role)
	}
}

func TestRegisterRoleTag(t *testing.T) {
	v := validator.New()
	require.NoError(t, Register(v))

	type req struct {
		Role string `json:"role" validate:"required,role"`
	}
	assert.NoError(t, v.Struct(req{Role: "finance"}))
	assert.NoError(t, v.Struct(req{Role: "General Admin Department"}))

	err := v.Struct(req{Role: "  "})
	require.Error(t, err)
	errs := err.(validator.ValidationErrors)
	assert.Equal(t, "role", errs[0].Field())
	assert.Equal(t, RoleTag, errs[0].Tag())

	assert.NoError(t, RegisterBindings())
	assert.NoError(t, RegisterBindings())
}
