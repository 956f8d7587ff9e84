package controller

import (
	"strings"

	"agui-policy-be/internal/dto"
	"agui-policy-be/internal/pkg/serverutils"
	"agui-policy-be/pkg/policy"

	"github.com/gofiber/fiber/v2"
)

type IPolicyController interface {
	RegisterRoutes(r fiber.Router)
	GetSpendPolicy(ctx *fiber.Ctx) error
	CompileSpend(ctx *fiber.Ctx) error
	ReloadSpendPolicy(ctx *fiber.Ctx) error
	GetDelegationRules(ctx *fiber.Ctx) error
	ReloadDelegationRules(ctx *fiber.Ctx) error
}

type policyController struct {
	policies *policy.Store
}

func NewPolicyController(policies *policy.Store) IPolicyController {
	return &policyController{policies: policies}
}

func (c *policyController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/policy")
	h.Get("/spend", c.GetSpendPolicy)
	h.Post("/spend/compile", c.CompileSpend)
	h.Post("/spend/reload", c.ReloadSpendPolicy)
	h.Get("/delegation", c.GetDelegationRules)
	h.Post("/delegation/reload", c.ReloadDelegationRules)
}

func (c *policyController) GetSpendPolicy(ctx *fiber.Ctx) error {
	return ctx.JSON(c.policies.SpendPolicy())
}

func (c *policyController) CompileSpend(ctx *fiber.Ctx) error {
	var req dto.CompileSpendRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "Invalid JSON: "+err.Error())
	}
	if strings.TrimSpace(req.Text) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Provide 'text' with policy excerpt")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	compiled := policy.CompileSpendPolicy(req.Text)

	persist := ctx.QueryBool("persist", true)
	if persist {
		if err := c.policies.SetSpendPolicy(compiled); err != nil {
			return err
		}
	}

	return ctx.JSON(dto.CompileSpendResponse{Ok: true, Compiled: compiled, Persisted: persist})
}

func (c *policyController) ReloadSpendPolicy(ctx *fiber.Ctx) error {
	if err := c.policies.ReloadSpendPolicy(); err != nil {
		return err
	}
	return ctx.JSON(dto.ReloadResponse{Ok: true})
}

func (c *policyController) GetDelegationRules(ctx *fiber.Ctx) error {
	return ctx.JSON(c.policies.DelegationRules())
}

func (c *policyController) ReloadDelegationRules(ctx *fiber.Ctx) error {
	if err := c.policies.ReloadDelegationRules(); err != nil {
		return err
	}
	return ctx.JSON(dto.ReloadResponse{Ok: true})
}
