package entity

// RegistrationRequest is the signup payload. Password is plaintext and is
// only ever handed to the identity provider.
type RegistrationRequest struct {
	FirstName       string `json:"first_name" validate:"required,min=2"`
	LastName        string `json:"last_name" validate:"required,min=2"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8,password"`
	Role            string `json:"role" validate:"required,role"`
	InstitutionName string `json:"institution_name" validate:"required,min=2"`
}
