package controller

import (
	"time"

	"agui-policy-be/internal/dto"
	"agui-policy-be/internal/pkg/logger"
	"agui-policy-be/internal/pkg/serverutils"
	"agui-policy-be/internal/service"
	internalWS "agui-policy-be/internal/websocket"
	"agui-policy-be/pkg/schema"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

type IStateController interface {
	RegisterRoutes(r fiber.Router)
	Health(ctx *fiber.Ctx) error
	GetState(ctx *fiber.Ctx) error
	GetSchema(ctx *fiber.Ctx) error
	ApplyPatch(ctx *fiber.Ctx) error
	Reset(ctx *fiber.Ctx) error
	DebugLast(ctx *fiber.Ctx) error
	Stream(ctx *fiber.Ctx) error
}

type stateController struct {
	stateService *service.StateService
	hub          *internalWS.Hub
	logger       logger.ILogger
}

func NewStateController(stateService *service.StateService, hub *internalWS.Hub, log logger.ILogger) IStateController {
	return &stateController{
		stateService: stateService,
		hub:          hub,
		logger:       log,
	}
}

func (c *stateController) RegisterRoutes(r fiber.Router) {
	r.Get("/health", c.Health)
	r.Get("/debug/last", c.DebugLast)

	h := r.Group("/agui")
	h.Get("/state", c.GetState)
	h.Get("/schema", c.GetSchema)
	h.Post("/patch", c.ApplyPatch)
	h.Post("/reset", c.Reset)
	h.Get("/stream", c.Stream)
}

func (c *stateController) Health(ctx *fiber.Ctx) error {
	return ctx.JSON(fiber.Map{"ok": true, "ts": float64(time.Now().UnixNano()) / 1e9})
}

func (c *stateController) GetState(ctx *fiber.Ctx) error {
	ctx.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return ctx.Send(c.stateService.Raw())
}

func (c *stateController) GetSchema(ctx *fiber.Ctx) error {
	return ctx.JSON(schema.Document())
}

func (c *stateController) ApplyPatch(ctx *fiber.Ctx) error {
	var req dto.ApplyPatchRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "Invalid JSON: "+err.Error())
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	applied, err := c.stateService.ApplyPatch(req.Ops)
	if err != nil {
		return err
	}

	return ctx.JSON(dto.ApplyPatchResponse{Ok: true, Applied: applied})
}

func (c *stateController) Reset(ctx *fiber.Ctx) error {
	var req dto.ResetRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusUnprocessableEntity, "Invalid JSON: "+err.Error())
		}
	}

	state := c.stateService.Reset(req.Panels)
	return ctx.JSON(dto.ResetResponse{Ok: true, State: state})
}

func (c *stateController) DebugLast(ctx *fiber.Ctx) error {
	applied, lastErr := c.stateService.DebugLast()
	return ctx.JSON(dto.DebugLastResponse{LastApplied: applied, LastError: lastErr})
}

func (c *stateController) Stream(ctx *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(ctx) {
		return websocket.New(func(conn *websocket.Conn) {
			c.logger.Info("StateController", "Starting stream session", nil)
			internalWS.ServeWs(c.hub, conn, c.stateService.Snapshot)
			c.logger.Info("StateController", "Stream session ended", nil)
		})(ctx)
	}
	return fiber.ErrUpgradeRequired
}
