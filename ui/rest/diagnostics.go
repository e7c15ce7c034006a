package rest

import (
	"github.com/AzielCF/az-fleet/core/settings/application"
	"github.com/AzielCF/az-fleet/infrastructure/whatsapp"
	"github.com/AzielCF/az-fleet/pkg/ledger"
	"github.com/AzielCF/az-fleet/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

// Diagnostics exposes the operator-facing internals: live workers, the
// failure ledger, queue pressure and the dynamic settings.
type Diagnostics struct {
	Supervisor *whatsapp.Supervisor
	Ledger     *ledger.Ledger
	Settings   *application.SettingsService
}

func InitRestDiagnostics(app fiber.Router, supervisor *whatsapp.Supervisor, led *ledger.Ledger, settings *application.SettingsService) Diagnostics {
	rest := Diagnostics{Supervisor: supervisor, Ledger: led, Settings: settings}

	g := app.Group("/diagnostics")
	g.Get("/workers", rest.GetWorkers)
	g.Get("/ledger", rest.GetLedger)
	g.Delete("/ledger/:id", rest.ClearLedgerEntry)
	g.Get("/queue", rest.GetQueueStats)
	g.Get("/settings", rest.GetSettings)
	g.Put("/settings", rest.UpdateSettings)

	return rest
}

func (h *Diagnostics) GetWorkers(c *fiber.Ctx) error {
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Workers fetched",
		Results: h.Supervisor.Workers(),
	})
}

func (h *Diagnostics) GetLedger(c *fiber.Ctx) error {
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Ledger fetched",
		Results: fiber.Map{
			"entries": h.Ledger.Entries(),
			"skipped": h.Ledger.SkippedCount(),
		},
	})
}

// ClearLedgerEntry lets an operator forgive a skipped bot without
// forcing a start.
func (h *Diagnostics) ClearLedgerEntry(c *fiber.Ctx) error {
	err := h.Ledger.Clear(c.Params("id"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Ledger entry cleared",
	})
}

func (h *Diagnostics) GetQueueStats(c *fiber.Ctx) error {
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Queue stats fetched",
		Results: h.Supervisor.QueueStats(),
	})
}

func (h *Diagnostics) GetSettings(c *fiber.Ctx) error {
	settings, err := h.Settings.GetAll(c.UserContext())
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Settings fetched",
		Results: settings,
	})
}

func (h *Diagnostics) UpdateSettings(c *fiber.Ctx) error {
	var req struct {
		DefaultCapacity  *int  `json:"default_capacity"`
		RegistrationOpen *bool `json:"registration_open"`
		SweepSuspended   *bool `json:"sweep_suspended"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(utils.ResponseData{
			Status:  400,
			Code:    "BAD_REQUEST",
			Message: err.Error(),
		})
	}

	ctx := c.UserContext()
	if req.DefaultCapacity != nil {
		utils.PanicIfNeeded(h.Settings.SetDefaultCapacity(ctx, *req.DefaultCapacity))
	}
	if req.RegistrationOpen != nil {
		utils.PanicIfNeeded(h.Settings.SetRegistrationOpen(ctx, *req.RegistrationOpen))
	}
	if req.SweepSuspended != nil {
		utils.PanicIfNeeded(h.Settings.SetSweepSuspended(ctx, *req.SweepSuspended))
	}

	settings, err := h.Settings.GetAll(ctx)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Settings updated",
		Results: settings,
	})
}
