package auth

import "github.com/go-playground/validator/v10"

var validate = validator.New()

// SignupRequest is the signup payload.
type SignupRequest struct {
	Email    string `json:"email" validate:"required,email"`
	FullName string `json:"fullName" validate:"required,min=1,max=100"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// LoginRequest is the login payload.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ValidateSignup checks a signup payload.
func ValidateSignup(req SignupRequest) error {
	return validate.Struct(req)
}

// ValidateLogin checks a login payload.
func ValidateLogin(req LoginRequest) error {
	return validate.Struct(req)
}
