package controller

import (
	"evidence-intel-be/internal/pkg/serverutils"
	"evidence-intel-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IResearchController interface {
	RegisterRoutes(r fiber.Router)
	Start(ctx *fiber.Ctx) error
	ShowJob(ctx *fiber.Ctx) error
	LatestBySession(ctx *fiber.Ctx) error
	Cancel(ctx *fiber.Ctx) error
}

type researchController struct {
	researchService service.IResearchService
}

func NewResearchController(researchService service.IResearchService) IResearchController {
	return &researchController{
		researchService: researchService,
	}
}

func (c *researchController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/research/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Post("sessions/:id", c.Start)
	h.Get("sessions/:id/latest", c.LatestBySession)
	h.Get("jobs/:id", c.ShowJob)
	h.Post("jobs/:id/cancel", c.Cancel)
}

func (c *researchController) Start(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return serverutils.NewValidationError("invalid session id")
	}

	res, err := c.researchService.Start(ctx.Context(), id)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Success start research job", res))
}

func (c *researchController) ShowJob(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return serverutils.NewValidationError("invalid job id")
	}

	res, err := c.researchService.GetJob(ctx.Context(), id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get research job", res))
}

func (c *researchController) LatestBySession(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return serverutils.NewValidationError("invalid session id")
	}

	res, err := c.researchService.GetLatestBySession(ctx.Context(), id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get latest research job", res))
}

func (c *researchController) Cancel(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return serverutils.NewValidationError("invalid job id")
	}

	res, err := c.researchService.Cancel(ctx.Context(), id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success cancel research job", res))
}
