package validations

import (
	"context"

	pkgError "github.com/AzielCF/az-fleet/pkg/error"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// ValidatePhone guards the endpoints keyed by a bare phone number:
// pairing, guest session lookup and registration checks.
func ValidatePhone(ctx context.Context, phone string) error {
	if err := validation.Validate(phone, validation.Required, validation.Match(phonePattern)); err != nil {
		return pkgError.ValidationError("phone: " + err.Error())
	}

	return nil
}
