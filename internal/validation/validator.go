package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

// FieldError describes the first field of a struct that failed its rules
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Reason
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON names so errors match request bodies
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	return v
}

// Struct checks the validate tags of s and returns a *FieldError for the
// first failing field
func Struct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}

	fe := fieldErrs[0]
	return &FieldError{Field: fieldPath(fe.Namespace()), Reason: reason(fe)}
}

// fieldPath drops the struct name from a namespace such as Input.subsections[0].name
func fieldPath(namespace string) string {
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		return rest
	}
	return namespace
}

func reason(fe validator.FieldError) string {
	name := strings.ReplaceAll(fe.Field(), "_", " ")

	switch fe.Tag() {
	case "required":
		return name + " is required"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", name, fe.Param())
	case "email":
		return name + " is not valid"
	case "hexcolor", "len":
		return name + " must be a #RRGGBB hex value"
	case "oneof":
		return fmt.Sprintf("unknown %s %q", name, fmt.Sprint(fe.Value()))
	case "uuid":
		return name + " must be a UUID"
	}
	return fmt.Sprintf("%s failed the %s rule", name, fe.Tag())
}
