package controller

import (
	"io"

	"agui-policy-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IIngestController interface {
	RegisterRoutes(r fiber.Router)
	Upload(ctx *fiber.Ctx) error
}

type ingestController struct {
	ingestService *service.IngestService
}

func NewIngestController(ingestService *service.IngestService) IIngestController {
	return &ingestController{ingestService: ingestService}
}

func (c *ingestController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/ingest")
	h.Post("/upload", c.Upload)
}

func (c *ingestController) Upload(ctx *fiber.Ctx) error {
	header, err := ctx.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Provide a 'file' form field")
	}

	f, err := header.Open()
	if err != nil {
		return err
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return err
	}

	kind := ctx.FormValue("kind", "auto")

	res, err := c.ingestService.Upload(header.Filename, content, kind)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	return ctx.JSON(res)
}
