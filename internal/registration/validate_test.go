package registration

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-signup/internal/registration/entity"
)

func validRequest() *entity.RegistrationRequest {
	return &entity.RegistrationRequest{
		FirstName:       "Ada",
		LastName:        "Lovelace",
		Email:           "ada@x.com",
		Password:        "Abcdef1!",
		Role:            "learner",
		InstitutionName: "Analytic Engines",
	}
}

func TestValidateAcceptsValidRequest(t *testing.T) {
	assert.NoError(t, NewValidator().Validate(validRequest()))
}

func TestValidateReportsEveryField(t *testing.T) {
	err := NewValidator().Validate(&entity.RegistrationRequest{})

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, map[string]string{
		"first_name":       "First name is required",
		"last_name":        "Last name is required",
		"email":            "Email is required",
		"password":         "Password is required",
		"role":             "Please select a user type",
		"institution_name": "Institution name is required",
	}, verr.Fields)
}

func TestValidateFieldRules(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(r *entity.RegistrationRequest)
		field  string
		msg    string
	}{
		{"short first name", func(r *entity.RegistrationRequest) { r.FirstName = "A" }, "first_name", "First name must be at least 2 characters"},
		{"short last name", func(r *entity.RegistrationRequest) { r.LastName = "L" }, "last_name", "Last name must be at least 2 characters"},
		{"bad email", func(r *entity.RegistrationRequest) { r.Email = "ada-at-x" }, "email", "Invalid email"},
		{"short password", func(r *entity.RegistrationRequest) { r.Password = "Ab1!" }, "password", "Password must be at least 8 characters"},
		{"plain password", func(r *entity.RegistrationRequest) { r.Password = "abcdefgh" }, "password", "Must contain one uppercase, one number, and one symbol"},
		{"unknown role", func(r *entity.RegistrationRequest) { r.Role = "student" }, "role", "Please select a user type"},
		{"short institution", func(r *entity.RegistrationRequest) { r.InstitutionName = "X" }, "institution_name", "Institution name must be at least 2 characters"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validRequest()
			tc.mutate(req)

			var verr *ValidationError
			require.ErrorAs(t, NewValidator().Validate(req), &verr)
			assert.Equal(t, map[string]string{tc.field: tc.msg}, verr.Fields)
		})
	}
}

func TestStrongPassword(t *testing.T) {
	assert.True(t, StrongPassword("Abcdef1!"))
	assert.False(t, StrongPassword("abcdefgh"))
	assert.False(t, StrongPassword("Abcdefgh1"))
	assert.False(t, StrongPassword("abcdef1!"))
	assert.False(t, StrongPassword("Abcdefg!"))
	for _, sym := range passwordSymbols {
		assert.True(t, StrongPassword("Abcdef1"+string(sym)), string(sym))
	}
}
