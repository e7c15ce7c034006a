package rest

import (
	domainPairing "github.com/AzielCF/az-fleet/domains/pairing"
	"github.com/AzielCF/az-fleet/pkg/utils"
	"github.com/AzielCF/az-fleet/validations"
	"github.com/gofiber/fiber/v2"
)

type Pairing struct {
	Service domainPairing.IPairingUsecase
}

func InitRestPairing(app fiber.Router, service domainPairing.IPairingUsecase) Pairing {
	rest := Pairing{Service: service}

	app.Post("/pairing/code", rest.GeneratePairingCode)
	app.Get("/pairing/guest/:phone", rest.GetGuestSession)
	app.Post("/pairing/sweep", rest.SweepExpired)

	return rest
}

func (h *Pairing) GeneratePairingCode(c *fiber.Ctx) error {
	var req struct {
		Phone string `json:"phone"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(utils.ResponseData{
			Status:  400,
			Code:    "BAD_REQUEST",
			Message: err.Error(),
		})
	}

	req.Phone = utils.SanitizePhone(req.Phone)
	utils.PanicIfNeeded(validations.ValidatePhone(c.UserContext(), req.Phone))

	resp, err := h.Service.GeneratePairingCode(c.UserContext(), req.Phone)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Pairing code generated",
		Results: resp,
	})
}

func (h *Pairing) GetGuestSession(c *fiber.Ctx) error {
	phone := utils.SanitizePhone(c.Params("phone"))
	utils.PanicIfNeeded(validations.ValidatePhone(c.UserContext(), phone))

	resp, err := h.Service.GetGuestSession(c.UserContext(), phone)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Guest session fetched",
		Results: resp,
	})
}

func (h *Pairing) SweepExpired(c *fiber.Ctx) error {
	reaped, err := h.Service.SweepExpired(c.UserContext())
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Guest session sweep completed",
		Results: fiber.Map{"reaped": reaped},
	})
}
