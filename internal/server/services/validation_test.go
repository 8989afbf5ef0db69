package services

import (
	"testing"

	"github.com/coursesms/courses/internal/common"
	"github.com/stretchr/testify/assert"
)

func TestPasswordPolicy(t *testing.T) {
	v := newValidator()

	tests := []struct {
		password string
		ok       bool
	}{
		{goodPassword, true},
		{"Abcdefghij1_", true},
		{"Abcdefghij1 ", true},
		{"abcdefghij1!", false},        // no upper-case
		{"Abcdefghijk!", false},        // no digit
		{"Abcdefghijk1", false},        // no symbol
		{"Ab1!", false},                // too short
		{"Abcdefghij1!xxxxxxx", false}, // too long
	}
	for _, tt := range tests {
		in := RegisterInput{FirstName: "Al", LastName: "Sm", Email: "a@b.com", Password: tt.password}
		err := v.Struct(in)
		assert.Equal(t, tt.ok, err == nil, "password %q: %v", tt.password, err)
	}
}

func TestValidationError_Message(t *testing.T) {
	v := newValidator()
	err := validationError(v.Struct(RegisterInput{FirstName: "A", LastName: "Smith", Email: "a@b.com", Password: goodPassword}))

	assert.ErrorIs(t, err, common.ErrorValidation)
	assert.Contains(t, err.Error(), "field 'FirstName' must be at least 2 characters")
}

func TestLoginInput_Validation(t *testing.T) {
	v := newValidator()
	assert.NoError(t, v.Struct(LoginInput{Email: "a@b.com", Password: "anything-12c"}))
	assert.Error(t, v.Struct(LoginInput{Email: "a@b", Password: "anything-12c"}))
	assert.Error(t, v.Struct(LoginInput{Email: "a@b.com", Password: ""}))
}
