package rest

import (
	"strings"

	domainBot "github.com/AzielCF/az-fleet/domains/bot"
	"github.com/AzielCF/az-fleet/infrastructure/whatsapp"
	pkgError "github.com/AzielCF/az-fleet/pkg/error"
	"github.com/AzielCF/az-fleet/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type Bot struct {
	Service    domainBot.IBotUsecase
	Supervisor *whatsapp.Supervisor
}

func InitRestBot(app fiber.Router, service domainBot.IBotUsecase, supervisor *whatsapp.Supervisor) Bot {
	rest := Bot{Service: service, Supervisor: supervisor}

	app.Get("/bots", rest.ListBots)
	app.Get("/bots/:id", rest.GetBot)
	app.Put("/bots/:id/name", rest.UpdateName)
	app.Put("/bots/:id/features", rest.UpdateFeatures)
	app.Get("/bots/:id/status", rest.BotStatus)
	app.Post("/bots/:id/send", rest.SendMessage)

	return rest
}

func (h *Bot) ListBots(c *fiber.Ctx) error {
	bots, err := h.Service.List(c.UserContext(), c.Query("tenant"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Bots fetched",
		Results: bots,
	})
}

func (h *Bot) GetBot(c *fiber.Ctx) error {
	bot, err := h.Service.GetByID(c.UserContext(), c.Params("id"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Bot fetched",
		Results: bot,
	})
}

func (h *Bot) UpdateName(c *fiber.Ctx) error {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(utils.ResponseData{
			Status:  400,
			Code:    "BAD_REQUEST",
			Message: err.Error(),
		})
	}

	bot, err := h.Service.UpdateName(c.UserContext(), c.Params("id"), req.Name)
	utils.PanicIfNeeded(err)

	h.Supervisor.UpdateRow(bot.ID, bot)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Bot renamed",
		Results: bot,
	})
}

func (h *Bot) UpdateFeatures(c *fiber.Ctx) error {
	var req domainBot.UpdateFeaturesRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(utils.ResponseData{
			Status:  400,
			Code:    "BAD_REQUEST",
			Message: err.Error(),
		})
	}

	bot, err := h.Service.UpdateFeatures(c.UserContext(), c.Params("id"), req)
	utils.PanicIfNeeded(err)

	// A live worker keeps serving with the old toggles until the fresh
	// row is pushed into its cache.
	h.Supervisor.UpdateRow(bot.ID, bot)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Bot features updated",
		Results: bot,
	})
}

// BotStatus merges the persisted row with the live worker state: the
// row can say online while the worker is already gone after a crash.
func (h *Bot) BotStatus(c *fiber.Ctx) error {
	id := c.Params("id")
	bot, err := h.Service.GetByID(c.UserContext(), id)
	utils.PanicIfNeeded(err)

	live, hasWorker := h.Supervisor.Status(id)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Bot status fetched",
		Results: fiber.Map{
			"bot_id":          bot.ID,
			"tenant_name":     bot.TenantName,
			"stored_status":   bot.Status,
			"live_status":     live,
			"has_worker":      hasWorker,
			"approval_status": bot.ApprovalStatus,
		},
	})
}

func (h *Bot) SendMessage(c *fiber.Ctx) error {
	id := c.Params("id")
	var req struct {
		Phone   string `json:"phone"`
		Message string `json:"message"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(utils.ResponseData{
			Status:  400,
			Code:    "BAD_REQUEST",
			Message: err.Error(),
		})
	}

	target := strings.TrimSpace(req.Phone)
	if !strings.ContainsRune(target, '@') {
		target = utils.SanitizePhone(target)
	}
	if target == "" || strings.TrimSpace(req.Message) == "" {
		return c.Status(400).JSON(utils.ResponseData{
			Status:  400,
			Code:    "BAD_REQUEST",
			Message: "phone and message cannot be blank.",
		})
	}

	if !h.Supervisor.SendMessage(c.UserContext(), id, target, req.Message) {
		utils.PanicIfNeeded(pkgError.PolicyError("send: bot " + id + " has no online worker."))
	}

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Message sent",
		Results: fiber.Map{"bot_id": id, "to": target},
	})
}
