package controller

import (
	"errors"
	"strings"

	"agui-policy-be/internal/dto"
	"agui-policy-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	Open(ctx *fiber.Ctx) error
	Ask(ctx *fiber.Ctx) error
}

type chatController struct {
	chatService *service.ChatService
}

func NewChatController(chatService *service.ChatService) IChatController {
	return &chatController{chatService: chatService}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/chat")
	h.Post("/open", c.Open)
	h.Post("/ask", c.Ask)
}

func (c *chatController) Open(ctx *fiber.Ctx) error {
	res := c.chatService.Open()
	return ctx.JSON(dto.ChatOpenResponse{
		SessionID: res.SessionID,
		DocID:     res.DocID,
		Greeting:  res.Greeting,
	})
}

func (c *chatController) Ask(ctx *fiber.Ctx) error {
	var req dto.ChatAskRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "Invalid JSON: "+err.Error())
	}

	prompt := strings.TrimSpace(req.PromptText())
	if prompt == "" {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "Missing 'prompt' string")
	}

	if err := c.chatService.Ask(prompt); err != nil {
		if errors.Is(err, service.ErrNoDocument) {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return err
	}

	return ctx.JSON(dto.ChatAskResponse{Ok: true})
}
