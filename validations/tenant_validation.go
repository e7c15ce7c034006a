package validations

import (
	"context"

	domainTenant "github.com/AzielCF/az-fleet/domains/tenant"
	pkgError "github.com/AzielCF/az-fleet/pkg/error"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

func ValidateCreateTenant(ctx context.Context, request domainTenant.CreateTenantRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.Name, validation.Required, validation.Match(tenantPattern)),
		validation.Field(&request.Capacity, validation.Min(0)),
		validation.Field(&request.URL, is.URL),
		validation.Field(&request.Description, validation.Length(0, 500)),
	)

	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	return nil
}

func ValidateUpdateTenant(ctx context.Context, request domainTenant.UpdateTenantRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.Capacity, validation.Min(1)),
		validation.Field(&request.Status, validation.In("active", "inactive")),
		validation.Field(&request.URL, is.URL),
		validation.Field(&request.Description, validation.Length(0, 500)),
	)

	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	return nil
}

func ValidateTenantName(ctx context.Context, name string) error {
	if err := validation.Validate(name, validation.Required, validation.Match(tenantPattern)); err != nil {
		return pkgError.ValidationError("name: " + err.Error())
	}

	return nil
}
