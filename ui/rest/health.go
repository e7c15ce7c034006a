package rest

import (
	domainHealth "github.com/AzielCF/az-fleet/domains/health"
	"github.com/AzielCF/az-fleet/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type Health struct {
	Service domainHealth.IHealthUsecase
}

func InitRestHealth(app fiber.Router, service domainHealth.IHealthUsecase) Health {
	handler := Health{Service: service}

	group := app.Group("/api/health")
	group.Get("/status", handler.GetStatus)

	return handler
}

func (h *Health) GetStatus(c *fiber.Ctx) error {
	status := h.Service.Check(c.UserContext())

	code := 200
	if !status.Healthy {
		code = 503
	}

	return c.Status(code).JSON(utils.ResponseData{
		Status:  code,
		Code:    "SUCCESS",
		Message: "Health status retrieved",
		Results: status,
	})
}
