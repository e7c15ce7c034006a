package validations

import (
	"context"
	"regexp"

	domainFleet "github.com/AzielCF/az-fleet/domains/fleet"
	pkgError "github.com/AzielCF/az-fleet/pkg/error"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var (
	phonePattern  = regexp.MustCompile(`^\d{10,15}$`)
	tenantPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,32}$`)
)

func ValidateRegisterBot(ctx context.Context, request domainFleet.RegisterRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.BotName, validation.Required, validation.Length(1, 100)),
		validation.Field(&request.SessionString, validation.Required),
		validation.Field(&request.Phone, validation.Match(phonePattern)),
		validation.Field(&request.TargetTenant, validation.Match(tenantPattern)),
	)

	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	return nil
}

func ValidateApprovalWindow(ctx context.Context, months int) error {
	err := validation.Validate(months,
		validation.Required,
		validation.Min(1),
		validation.Max(12),
	)

	if err != nil {
		return pkgError.ValidationError("months: " + err.Error())
	}

	return nil
}

func ValidateMigrateBot(ctx context.Context, botID, targetTenant string) error {
	if err := validation.Validate(botID, validation.Required); err != nil {
		return pkgError.ValidationError("bot_id: " + err.Error())
	}
	if err := validation.Validate(targetTenant, validation.Required, validation.Match(tenantPattern)); err != nil {
		return pkgError.ValidationError("target_tenant: " + err.Error())
	}

	return nil
}

func ValidateUpdateCredentials(ctx context.Context, sessionString string) error {
	if err := validation.Validate(sessionString, validation.Required); err != nil {
		return pkgError.ValidationError("session_string: " + err.Error())
	}

	return nil
}

func ValidateBatch(ctx context.Context, request domainFleet.BatchRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.Operation, validation.Required, validation.In(
			domainFleet.BatchStart,
			domainFleet.BatchStop,
			domainFleet.BatchRestart,
			domainFleet.BatchApprove,
		)),
		validation.Field(&request.BotIDs, validation.Required, validation.Each(validation.Required)),
		validation.Field(&request.TargetTenant, validation.Match(tenantPattern)),
		validation.Field(&request.Months, validation.When(
			request.Operation == domainFleet.BatchApprove,
			validation.Required,
			validation.Min(1),
			validation.Max(12),
		)),
	)

	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	return nil
}
