// FILE: internal/pkg/serverutils/validate.go
package serverutils

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateRequest runs struct tag validation on a bound request body
// and flattens the failures into one error message.
func ValidateRequest(req interface{}) error {
	if err := validate.Struct(req); err != nil {
		var fieldErrors validator.ValidationErrors
		if errors.As(err, &fieldErrors) {
			parts := make([]string, 0, len(fieldErrors))
			for _, fe := range fieldErrors {
				parts = append(parts, fmt.Sprintf("%s failed on %q", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("validation failed: %s", strings.Join(parts, "; "))
		}
		return err
	}
	return nil
}
