package controller

import (
	"evidence-intel-be/internal/dto"
	"evidence-intel-be/internal/pkg/serverutils"
	"evidence-intel-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IApprovalController interface {
	RegisterRoutes(r fiber.Router)
	Update(ctx *fiber.Ctx) error
	Initialize(ctx *fiber.Ctx) error
	Feedback(ctx *fiber.Ctx) error
	Finalize(ctx *fiber.Ctx) error
	Audit(ctx *fiber.Ctx) error
}

type approvalController struct {
	approvalService service.IApprovalService
}

func NewApprovalController(approvalService service.IApprovalService) IApprovalController {
	return &approvalController{
		approvalService: approvalService,
	}
}

func (c *approvalController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/profile/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Patch(":id/approvals", c.Update)
	h.Post(":id/approvals/initialize", c.Initialize)
	h.Post(":id/feedback", c.Feedback)
	h.Post(":id/finalize", c.Finalize)
	h.Get(":id/audit", c.Audit)
}

func (c *approvalController) Update(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return serverutils.NewValidationError("invalid session id")
	}

	var req dto.UpdateApprovalRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if req.Actor == "" {
		req.Actor = serverutils.Actor(ctx)
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.approvalService.UpdateSourceApproval(ctx.Context(), id, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success update source approval", res))
}

func (c *approvalController) Initialize(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return serverutils.NewValidationError("invalid session id")
	}

	res, err := c.approvalService.InitializeFromRecommendations(ctx.Context(), id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success initialize approvals", res))
}

func (c *approvalController) Feedback(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return serverutils.NewValidationError("invalid session id")
	}

	var req dto.SubmitFeedbackRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if req.Actor == "" {
		req.Actor = serverutils.Actor(ctx)
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.approvalService.SubmitFeedback(ctx.Context(), id, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success submit feedback", res))
}

func (c *approvalController) Finalize(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return serverutils.NewValidationError("invalid session id")
	}

	req := dto.FinalizeRequest{Actor: serverutils.Actor(ctx)}

	res, err := c.approvalService.Finalize(ctx.Context(), id, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success finalize approvals", res))
}

func (c *approvalController) Audit(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return serverutils.NewValidationError("invalid session id")
	}

	res, err := c.approvalService.GetAudit(ctx.Context(), id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get audit trail", res))
}
