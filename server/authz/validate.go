package authz

import (
	"github.com/go-playground/validator/v10"

	"taskflow/server/schema"
)

// The "permission" tag accepts only codes from the closed permission set.
func init() {
	schema.RegisterValidation("permission", func(fl validator.FieldLevel) bool {
		_, ok := ParsePermission(fl.Field().String())
		return ok
	})
}
