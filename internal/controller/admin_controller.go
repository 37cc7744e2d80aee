package controller

import (
	"errors"
	"strconv"
	"strings"

	"genstudio-be/internal/dto"
	"genstudio-be/internal/pkg/logger"
	"genstudio-be/internal/pkg/serverutils"
	"genstudio-be/internal/service"
	"genstudio-be/pkg/billing"

	"github.com/gofiber/fiber/v2"
)

type IAdminController interface {
	RegisterRoutes(api fiber.Router, jwtMiddleware fiber.Handler)
	SetCredits(ctx *fiber.Ctx) error
	GetCreditLogs(ctx *fiber.Ctx) error
	RunBackfill(ctx *fiber.Ctx) error
	GetLogs(ctx *fiber.Ctx) error
	GetLogDetail(ctx *fiber.Ctx) error
}

type adminController struct {
	service service.IAdminService
}

func NewAdminController(service service.IAdminService) IAdminController {
	return &adminController{service: service}
}

func (c *adminController) RegisterRoutes(api fiber.Router, jwtMiddleware fiber.Handler) {
	h := api.Group("/admin", jwtMiddleware, c.adminMiddleware)

	h.Post("/credits", c.SetCredits)
	h.Get("/credits/:user_id/logs", c.GetCreditLogs)

	h.Post("/backfill", c.RunBackfill)

	h.Get("/logs", c.GetLogs)
	h.Get("/logs/:id", c.GetLogDetail)
}

func (c *adminController) adminMiddleware(ctx *fiber.Ctx) error {
	ok, err := c.service.IsAdmin(ctx.UserContext(), serverutils.UserID(ctx), serverutils.Role(ctx))
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}
	if !ok {
		return ctx.Status(fiber.StatusForbidden).JSON(serverutils.ErrorResponse(403, "Admin access required"))
	}
	return ctx.Next()
}

func (c *adminController) SetCredits(ctx *fiber.Ctx) error {
	var req dto.AdminSetCreditsRequest
	if err := ctx.BodyParser(&req); err != nil {
		return serverutils.BadRequest(err.Error())
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.SetCredits(ctx.UserContext(), req)
	if err != nil {
		if errors.Is(err, billing.ErrUserNotFound) {
			return ctx.Status(fiber.StatusNotFound).JSON(serverutils.ErrorResponse(404, "User not found"))
		}
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}
	return ctx.JSON(serverutils.SuccessResponse("Credits updated", res))
}

func (c *adminController) GetCreditLogs(ctx *fiber.Ctx) error {
	page, limit := pageParams(ctx, 20)
	res, err := c.service.GetCreditLogs(ctx.UserContext(), ctx.Params("user_id"), page, limit)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}
	return ctx.JSON(serverutils.SuccessResponse("Credit logs", res))
}

func (c *adminController) RunBackfill(ctx *fiber.Ctx) error {
	res, err := c.service.RunBackfill(ctx.UserContext())
	if err != nil {
		if errors.Is(err, service.ErrBackfillRunning) {
			return ctx.Status(fiber.StatusConflict).JSON(serverutils.ErrorResponse(409, err.Error()))
		}
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}
	return ctx.JSON(serverutils.SuccessResponse("Backfill complete", res))
}

func (c *adminController) GetLogs(ctx *fiber.Ctx) error {
	page, limit := pageParams(ctx, 10)
	filter := logger.LogFilter{
		Level:  strings.ToUpper(ctx.Query("level", "")),
		Module: strings.ToUpper(ctx.Query("module", "")),
		TxID:   ctx.Query("tx_id", ""),
	}

	logs, err := c.service.GetSystemLogs(ctx.UserContext(), page, limit, filter)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}
	return ctx.JSON(serverutils.SuccessResponse("System logs", logs))
}

func (c *adminController) GetLogDetail(ctx *fiber.Ctx) error {
	logId := ctx.Params("id") // MD5 of the line, not a UUID

	l, err := c.service.GetLogDetail(ctx.UserContext(), logId)
	if err != nil {
		return ctx.Status(fiber.StatusNotFound).JSON(serverutils.ErrorResponse(404, "Log not found"))
	}
	return ctx.JSON(serverutils.SuccessResponse("Log detail", l))
}

func pageParams(ctx *fiber.Ctx, defaultLimit int) (int, int) {
	page, _ := strconv.Atoi(ctx.Query("page", "1"))
	limit, _ := strconv.Atoi(ctx.Query("limit", strconv.Itoa(defaultLimit)))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = defaultLimit
	}
	return page, limit
}
