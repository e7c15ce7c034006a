package rest

import (
	domainRegistry "github.com/AzielCF/az-fleet/domains/registry"
	"github.com/AzielCF/az-fleet/pkg/utils"
	"github.com/AzielCF/az-fleet/validations"
	"github.com/gofiber/fiber/v2"
)

type Registry struct {
	Service domainRegistry.IRegistryUsecase
}

func InitRestRegistry(app fiber.Router, service domainRegistry.IRegistryUsecase) Registry {
	rest := Registry{Service: service}

	app.Get("/registry", rest.ListEntries)
	app.Get("/registry/:phone", rest.LookupPhone)

	return rest
}

func (h *Registry) ListEntries(c *fiber.Ctx) error {
	entries, err := h.Service.List(c.UserContext())
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Registry entries fetched",
		Results: entries,
	})
}

func (h *Registry) LookupPhone(c *fiber.Ctx) error {
	phone := utils.SanitizePhone(c.Params("phone"))
	utils.PanicIfNeeded(validations.ValidatePhone(c.UserContext(), phone))

	entry, found, err := h.Service.Lookup(c.UserContext(), phone)
	utils.PanicIfNeeded(err)

	results := fiber.Map{"found": found}
	if found {
		results["entry"] = entry
	}

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Registry lookup completed",
		Results: results,
	})
}
