package validator

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate checks struct fields against their `validate` tags and returns
// field → failed tag, or nil when the struct is valid.
func Validate(v interface{}) map[string]string {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"_": err.Error()}
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = fe.Tag()
	}
	return out
}

// Format renders Validate output as a stable, human-readable string.
func Format(errs map[string]string) string {
	parts := make([]string, 0, len(errs))
	for field, tag := range errs {
		parts = append(parts, fmt.Sprintf("%s:%s", field, tag))
	}
	sort.Strings(parts)
	return strings.Join(parts, ", ")
}
