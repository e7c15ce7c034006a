package rest

import (
	"github.com/AzielCF/az-fleet/core/settings/application"
	domainFleet "github.com/AzielCF/az-fleet/domains/fleet"
	pkgError "github.com/AzielCF/az-fleet/pkg/error"
	"github.com/AzielCF/az-fleet/pkg/utils"
	"github.com/AzielCF/az-fleet/validations"
	"github.com/gofiber/fiber/v2"
)

type Fleet struct {
	Service  domainFleet.IFleetUsecase
	Settings *application.SettingsService
}

func InitRestFleet(app fiber.Router, service domainFleet.IFleetUsecase, settings *application.SettingsService) Fleet {
	rest := Fleet{Service: service, Settings: settings}

	app.Post("/fleet/register", rest.Register)
	app.Get("/fleet/check/:phone", rest.CheckRegistration)

	app.Post("/fleet/bots/:id/approve", rest.ApproveBot)
	app.Post("/fleet/bots/:id/reject", rest.RejectBot)
	app.Post("/fleet/bots/:id/revoke", rest.RevokeBot)
	app.Put("/fleet/bots/:id/credentials", rest.UpdateCredentials)
	app.Post("/fleet/bots/:id/migrate", rest.MigrateBot)

	app.Post("/fleet/bots/:id/start", rest.StartBot)
	app.Post("/fleet/bots/:id/stop", rest.StopBot)
	app.Post("/fleet/bots/:id/restart", rest.RestartBot)
	app.Delete("/fleet/bots/:id", rest.DestroyBot)

	app.Post("/fleet/batch", rest.Batch)
	app.Post("/fleet/resume", rest.ResumeTenant)
	app.Post("/fleet/sweep", rest.SweepExpirations)

	return rest
}

func (h *Fleet) Register(c *fiber.Ctx) error {
	if h.Settings != nil && !h.Settings.IsRegistrationOpen(c.UserContext()) {
		utils.PanicIfNeeded(pkgError.PolicyError("registration: currently closed by the operator."))
	}

	var req domainFleet.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(utils.ResponseData{
			Status:  400,
			Code:    "BAD_REQUEST",
			Message: err.Error(),
		})
	}

	utils.PanicIfNeeded(validations.ValidateRegisterBot(c.UserContext(), req))

	resp, err := h.Service.Register(c.UserContext(), req)
	utils.PanicIfNeeded(err)

	message := "Bot registered"
	if resp.Kind == domainFleet.KindExistingBotFound {
		message = "Existing bot found"
	}

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: message,
		Results: resp,
	})
}

func (h *Fleet) CheckRegistration(c *fiber.Ctx) error {
	phone := c.Params("phone")
	utils.PanicIfNeeded(validations.ValidatePhone(c.UserContext(), phone))

	resp, err := h.Service.CheckRegistration(c.UserContext(), phone)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Registration checked",
		Results: resp,
	})
}

func (h *Fleet) ApproveBot(c *fiber.Ctx) error {
	id := c.Params("id")
	var req struct {
		Months int `json:"months"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(utils.ResponseData{
			Status:  400,
			Code:    "BAD_REQUEST",
			Message: err.Error(),
		})
	}

	utils.PanicIfNeeded(validations.ValidateApprovalWindow(c.UserContext(), req.Months))

	resp, err := h.Service.Approve(c.UserContext(), id, req.Months)
	utils.PanicIfNeeded(err)

	message := "Bot approved"
	if !resp.Changed {
		message = "Bot already approved"
	}

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: message,
		Results: resp,
	})
}

func (h *Fleet) RejectBot(c *fiber.Ctx) error {
	bot, err := h.Service.Reject(c.UserContext(), c.Params("id"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Bot rejected",
		Results: bot,
	})
}

func (h *Fleet) RevokeBot(c *fiber.Ctx) error {
	bot, err := h.Service.Revoke(c.UserContext(), c.Params("id"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Bot approval revoked",
		Results: bot,
	})
}

func (h *Fleet) UpdateCredentials(c *fiber.Ctx) error {
	id := c.Params("id")
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

	bot, err := h.Service.UpdateCredentials(c.UserContext(), id, req.SessionString)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Bot credentials updated",
		Results: bot,
	})
}

func (h *Fleet) MigrateBot(c *fiber.Ctx) error {
	id := c.Params("id")
	var req struct {
		TargetTenant string `json:"target_tenant"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(utils.ResponseData{
			Status:  400,
			Code:    "BAD_REQUEST",
			Message: err.Error(),
		})
	}

	utils.PanicIfNeeded(validations.ValidateMigrateBot(c.UserContext(), id, req.TargetTenant))

	bot, err := h.Service.Migrate(c.UserContext(), id, req.TargetTenant)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Bot migrated to " + bot.TenantName,
		Results: bot,
	})
}

func (h *Fleet) StartBot(c *fiber.Ctx) error {
	err := h.Service.StartBot(c.UserContext(), c.Params("id"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Bot start dispatched",
	})
}

func (h *Fleet) StopBot(c *fiber.Ctx) error {
	err := h.Service.StopBot(c.UserContext(), c.Params("id"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Bot stopped",
	})
}

func (h *Fleet) RestartBot(c *fiber.Ctx) error {
	err := h.Service.RestartBot(c.UserContext(), c.Params("id"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Bot restarted",
	})
}

func (h *Fleet) DestroyBot(c *fiber.Ctx) error {
	err := h.Service.DestroyBot(c.UserContext(), c.Params("id"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Bot destroyed",
	})
}

func (h *Fleet) Batch(c *fiber.Ctx) error {
	var req domainFleet.BatchRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(utils.ResponseData{
			Status:  400,
			Code:    "BAD_REQUEST",
			Message: err.Error(),
		})
	}

	utils.PanicIfNeeded(validations.ValidateBatch(c.UserContext(), req))

	result, err := h.Service.Batch(c.UserContext(), req)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Batch completed",
		Results: result,
	})
}

func (h *Fleet) ResumeTenant(c *fiber.Ctx) error {
	var req struct {
		TenantName string `json:"tenant_name"`
	}
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return c.Status(400).JSON(utils.ResponseData{
			Status:  400,
			Code:    "BAD_REQUEST",
			Message: err.Error(),
		})
	}

	dispatched, err := h.Service.ResumeTenant(c.UserContext(), req.TenantName)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Tenant resume dispatched",
		Results: fiber.Map{"dispatched": dispatched},
	})
}

func (h *Fleet) SweepExpirations(c *fiber.Ctx) error {
	expired, err := h.Service.SweepExpirations(c.UserContext())
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Expiration sweep completed",
		Results: fiber.Map{"expired": expired},
	})
}
