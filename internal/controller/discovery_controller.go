package controller

import (
	"evidence-intel-be/internal/pkg/serverutils"
	"evidence-intel-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IDiscoveryController interface {
	RegisterRoutes(r fiber.Router)
	RunDiscovery(ctx *fiber.Ctx) error
	GenerateRecommendations(ctx *fiber.Ctx) error
}

type discoveryController struct {
	discoveryService service.IDiscoveryService
}

func NewDiscoveryController(discoveryService service.IDiscoveryService) IDiscoveryController {
	return &discoveryController{
		discoveryService: discoveryService,
	}
}

func (c *discoveryController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/profile/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Post(":id/discovery", c.RunDiscovery)
	h.Post(":id/recommendations", c.GenerateRecommendations)
}

func (c *discoveryController) RunDiscovery(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return serverutils.NewValidationError("invalid session id")
	}

	res, err := c.discoveryService.RunDiscovery(ctx.Context(), id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success run discovery", res))
}

func (c *discoveryController) GenerateRecommendations(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return serverutils.NewValidationError("invalid session id")
	}

	res, err := c.discoveryService.GenerateRecommendations(ctx.Context(), id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success generate recommendations", res))
}
