package validator

import (
	"fmt"

	v10 "github.com/go-playground/validator/v10"
)

// Validator validates structs using `validate` tags.
type Validator struct {
	v *v10.Validate
}

func New() *Validator {
	return &Validator{v: v10.New(v10.WithRequiredStructEnabled())}
}

func (v *Validator) Validate(obj interface{}) error {
	if err := v.v.Struct(obj); err != nil {
		if errs, ok := err.(v10.ValidationErrors); ok && len(errs) > 0 {
			first := errs[0]
			return fmt.Errorf("field %s failed validation on '%s'", first.Field(), first.Tag())
		}
		return err
	}
	return nil
}

// Var validates a single value against the given rules.
func (v *Validator) Var(value interface{}, rules string) error {
	return v.v.Var(value, rules)
}
