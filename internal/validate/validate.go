// internal/validate/validate.go
//
// Request-body validation.
//
// Context
//   Handlers decode JSON into typed structs carrying `validate:"…"` tags and
//   call Struct.  Tag failures come back as an *apperr.ValidationError whose
//   Fields name the JSON key, so API clients can highlight the exact input.
//   Length rules count runes, never bytes, so multi-byte titles are judged
//   by what the user typed.
//
//------------------------------------------------------------------------------

package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/yanizio/gtmskills/internal/apperr"
)

var v = newValidator()

func newValidator() *validator.Validate {
	vv := validator.New(validator.WithRequiredStructEnabled())
	vv.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return vv
}

// Struct validates s.  A nil return means every rule passed.
func Struct(s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	fields := make([]apperr.Field, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, apperr.Field{Name: fe.Field(), Message: message(fe)})
	}
	return &apperr.ValidationError{Summary: fields[0].Message, Fields: fields}
}

// message renders a user-facing sentence for one failed rule.
func message(fe validator.FieldError) string {
	name := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", name)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", name, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", name, fe.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", name)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", name, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "gte":
		return fmt.Sprintf("%s must be %s or greater", name, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", name)
	}
}
