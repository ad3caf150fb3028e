package form

import (
	"errors"
	"fmt"
)

// RequiredAlias is the alias carried by a FieldValidateError raised by the
// required check.
const RequiredAlias = "_required"

var (
	// ErrUnknownForm is returned when no form definition matches an alias.
	ErrUnknownForm = errors.New("form: unknown form")
	// ErrUnknownAddon is returned when a form declares an unregistered addon.
	ErrUnknownAddon = errors.New("form: unknown addon")
	// ErrDuplicateAlias is returned when a definition alias is registered twice.
	ErrDuplicateAlias = errors.New("form: duplicate alias")
	// ErrMissingFieldType is returned for field declarations without a type.
	ErrMissingFieldType = errors.New("form: missing field type")
	// ErrDuplicateField is returned when two fields share a slug.
	ErrDuplicateField = errors.New("form: duplicate field slug")
	// ErrNoForm is returned when a factory or driver is used before it is
	// attached to a form.
	ErrNoForm = errors.New("form: no related form")
)

// FieldValidateError reports the first failing rule of a field.
type FieldValidateError struct {
	Field   FieldDriver
	Alias   string
	Message string
}

func (e *FieldValidateError) Error() string {
	if e.Field == nil {
		return e.Message
	}
	return fmt.Sprintf("form: field %q: %s", e.Field.Slug(), e.Message)
}

// IsRequired reports whether the required check failed.
func (e *FieldValidateError) IsRequired() bool {
	return e.Alias == RequiredAlias
}

// IsAlias reports whether the failing rule carries alias.
func (e *FieldValidateError) IsAlias(alias string) bool {
	return e.Alias == alias
}

func missingForm(component string) error {
	return fmt.Errorf("%w: %s requires a form", ErrNoForm, component)
}

var errInvalidJSON = errors.New("form: request body is not a JSON object")
