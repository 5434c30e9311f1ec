package model

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// InvalidArgumentError is returned for caller mistakes: unknown report tiers,
// malformed organization identifiers, out-of-range windows. Handlers map it
// to 400 and never retry.
type InvalidArgumentError struct {
	Field  string
	Value  string
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("invalid %s: %q", e.Field, e.Value)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// InvalidArgument builds an *InvalidArgumentError.
func InvalidArgument(field, value, reason string) error {
	return &InvalidArgumentError{Field: field, Value: value, Reason: reason}
}

// IsInvalidArgument reports whether err wraps an *InvalidArgumentError.
func IsInvalidArgument(err error) bool {
	var ia *InvalidArgumentError
	return errors.As(err, &ia)
}

var validate = validator.New()

// ValidateOrganizationID rejects empty, oversized, or non-printable tenant ids.
func ValidateOrganizationID(orgID string) error {
	if err := validate.Var(orgID, "required,max=128,printascii,excludesall= /"); err != nil {
		return InvalidArgument("organization_id", orgID, "must be 1-128 printable characters without spaces or slashes")
	}
	return nil
}

// ValidateDays rejects non-positive or unreasonably large windows.
func ValidateDays(days int) error {
	if days <= 0 || days > 3650 {
		return InvalidArgument("days", fmt.Sprint(days), "must be between 1 and 3650")
	}
	return nil
}

// ValidateSeverity accepts the empty string (no filter) or a known level.
func ValidateSeverity(s Severity) error {
	if s == "" || s.Valid() {
		return nil
	}
	return InvalidArgument("severity", string(s), "must be one of low, medium, high, critical")
}
