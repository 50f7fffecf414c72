package in

import (
	"gopkg.in/go-playground/validator.v9"
)

var structValidator = validator.New()

// validateStruct runs struct-tag validation ahead of the domain-level
// Validator (V); it only catches gross shape problems (missing fields) so V
// can apply its semantic rules against well-formed input.
func validateStruct(s any) error {
	return structValidator.Struct(s)
}
