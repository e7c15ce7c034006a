package rest

import (
	domainCredential "github.com/AzielCF/az-fleet/domains/credential"
	"github.com/AzielCF/az-fleet/pkg/utils"
	"github.com/AzielCF/az-fleet/validations"
	"github.com/gofiber/fiber/v2"
)

type Credential struct {
	Service domainCredential.ICredentialUsecase
}

func InitRestCredential(app fiber.Router, service domainCredential.ICredentialUsecase) Credential {
	rest := Credential{Service: service}

	app.Post("/credentials/validate", rest.ValidateCredentials)
	app.Post("/credentials/extract-phone", rest.ExtractPhone)
	app.Post("/credentials/scan", rest.ScanDuplicates)

	return rest
}

func (h *Credential) ValidateCredentials(c *fiber.Ctx) error {
	var req domainCredential.ValidateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(utils.ResponseData{
			Status:  400,
			Code:    "BAD_REQUEST",
			Message: err.Error(),
		})
	}

	resp, err := h.Service.Validate(c.UserContext(), req)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Credentials validated",
		Results: resp,
	})
}

func (h *Credential) ExtractPhone(c *fiber.Ctx) error {
	var req struct {
		SessionString string `json:"session_string"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(utils.ResponseData{
			Status:  400,
			Code:    "BAD_REQUEST",
			Message: err.Error(),
		})
	}

	utils.PanicIfNeeded(validations.ValidateUpdateCredentials(c.UserContext(), req.SessionString))

	phone, err := h.Service.ExtractPhone(c.UserContext(), req.SessionString)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Phone extracted",
		Results: fiber.Map{"phone": phone},
	})
}

func (h *Credential) ScanDuplicates(c *fiber.Ctx) error {
	var req struct {
		SessionString string `json:"session_string"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(utils.ResponseData{
			Status:  400,
			Code:    "BAD_REQUEST",
			Message: err.Error(),
		})
	}

	utils.PanicIfNeeded(validations.ValidateUpdateCredentials(c.UserContext(), req.SessionString))

	report, err := h.Service.ScanDuplicates(c.UserContext(), req.SessionString)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Duplicate scan completed",
		Results: report,
	})
}
