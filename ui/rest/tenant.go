package rest

import (
	domainTenant "github.com/AzielCF/az-fleet/domains/tenant"
	"github.com/AzielCF/az-fleet/pkg/utils"
	"github.com/AzielCF/az-fleet/validations"
	"github.com/gofiber/fiber/v2"
)

type Tenant struct {
	Service domainTenant.ITenantUsecase
}

func InitRestTenant(app fiber.Router, service domainTenant.ITenantUsecase) Tenant {
	rest := Tenant{Service: service}

	app.Get("/tenants", rest.ListTenants)
	app.Post("/tenants", rest.CreateTenant)
	app.Get("/tenants/:name", rest.GetTenant)
	app.Put("/tenants/:name", rest.UpdateTenant)
	app.Post("/tenants/:name/probe", rest.ProbeURL)
	app.Post("/tenants/reconcile", rest.ReconcileCounts)

	return rest
}

func (h *Tenant) ListTenants(c *fiber.Ctx) error {
	tenants, err := h.Service.List(c.UserContext())
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Tenants fetched",
		Results: tenants,
	})
}

func (h *Tenant) CreateTenant(c *fiber.Ctx) error {
	var req domainTenant.CreateTenantRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(utils.ResponseData{
			Status:  400,
			Code:    "BAD_REQUEST",
			Message: err.Error(),
		})
	}

	utils.PanicIfNeeded(validations.ValidateCreateTenant(c.UserContext(), req))

	tenant, err := h.Service.Create(c.UserContext(), req)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Tenant created",
		Results: tenant,
	})
}

func (h *Tenant) GetTenant(c *fiber.Ctx) error {
	tenant, err := h.Service.GetByName(c.UserContext(), c.Params("name"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Tenant fetched",
		Results: tenant,
	})
}

func (h *Tenant) UpdateTenant(c *fiber.Ctx) error {
	var req domainTenant.UpdateTenantRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(utils.ResponseData{
			Status:  400,
			Code:    "BAD_REQUEST",
			Message: err.Error(),
		})
	}

	utils.PanicIfNeeded(validations.ValidateUpdateTenant(c.UserContext(), req))

	tenant, err := h.Service.Update(c.UserContext(), c.Params("name"), req)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Tenant updated",
		Results: tenant,
	})
}

func (h *Tenant) ProbeURL(c *fiber.Ctx) error {
	meta, err := h.Service.ProbeURL(c.UserContext(), c.Params("name"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Tenant URL probed",
		Results: meta,
	})
}

func (h *Tenant) ReconcileCounts(c *fiber.Ctx) error {
	err := h.Service.ReconcileCounts(c.UserContext())
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Tenant counts reconciled",
	})
}
