package rest

import (
	"strconv"

	domainActivity "github.com/AzielCF/az-fleet/domains/activity"
	"github.com/AzielCF/az-fleet/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type Activity struct {
	Service domainActivity.IActivityUsecase
}

func InitRestActivity(app fiber.Router, service domainActivity.IActivityUsecase) Activity {
	rest := Activity{Service: service}
	app.Get("/activities", rest.ListActivities)
	return rest
}

func (h *Activity) ListActivities(c *fiber.Ctx) error {
	filter := domainActivity.Filter{
		TenantName: c.Query("tenant"),
		BotID:      c.Query("bot_id"),
		Type:       domainActivity.Type(c.Query("type")),
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return c.Status(400).JSON(utils.ResponseData{
				Status:  400,
				Code:    "BAD_REQUEST",
				Message: "limit: must be a non-negative integer.",
			})
		}
		filter.Limit = limit
	}

	entries, err := h.Service.List(c.UserContext(), filter)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Activities fetched",
		Results: entries,
	})
}
