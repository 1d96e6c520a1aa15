package handler

import (
	"github.com/go-playground/validator/v10"
)

// Validator plugs go-playground/validator into echo's c.Validate.
type Validator struct {
	v *validator.Validate
}

// NewValidator returns a validator with struct-tag rules enabled.
func NewValidator() *Validator {
	return &Validator{v: validator.New(validator.WithRequiredStructEnabled())}
}

func (cv *Validator) Validate(i any) error { return cv.v.Struct(i) }
