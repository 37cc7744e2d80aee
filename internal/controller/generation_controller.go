package controller

import (
	"errors"
	"net/http"

	"genstudio-be/internal/dto"
	"genstudio-be/internal/pkg/serverutils"
	"genstudio-be/internal/service"
	"genstudio-be/pkg/billing"
	"genstudio-be/pkg/dispatch"

	"github.com/gofiber/fiber/v2"
)

type IGenerationController interface {
	RegisterRoutes(api fiber.Router, jwtMiddleware, optionalJwtMiddleware fiber.Handler)
	Proxy(ctx *fiber.Ctx) error
	Poll(ctx *fiber.Ctx) error
	Cancel(ctx *fiber.Ctx) error
}

type generationController struct {
	service service.IGenerationService
}

func NewGenerationController(service service.IGenerationService) IGenerationController {
	return &generationController{service: service}
}

func (c *generationController) RegisterRoutes(api fiber.Router, jwtMiddleware, optionalJwtMiddleware fiber.Handler) {
	h := api.Group("/generation")
	h.Post("/tasks/:task_id/cancel", jwtMiddleware, c.Cancel)
	h.Post("/*", optionalJwtMiddleware, c.Proxy)
	h.Get("/*", jwtMiddleware, c.Poll)
}

func (c *generationController) Proxy(ctx *fiber.Ctx) error {
	path := ctx.Params("*")
	userID := serverutils.UserID(ctx)
	if userID == "" && c.service.IsBilledPath(path) {
		return ctx.Status(fiber.StatusUnauthorized).JSON(dto.ProxyErrorResponse{Error: "Unauthorized"})
	}

	// fasthttp reuses the request buffer once the handler returns.
	body := append([]byte(nil), ctx.Body()...)

	res, err := c.service.Submit(ctx.UserContext(), userID, path, body)
	if err != nil {
		return writeProxyError(ctx, err, "Proxy connection failed")
	}
	return writeResult(ctx, res)
}

func (c *generationController) Poll(ctx *fiber.Ctx) error {
	res, err := c.service.Poll(
		ctx.UserContext(),
		serverutils.UserID(ctx),
		ctx.Params("*"),
		string(ctx.Request().URI().QueryString()),
	)
	if err != nil {
		var netErr *dispatch.NetworkError
		if errors.As(err, &netErr) {
			return ctx.Status(fiber.StatusBadGateway).JSON(dto.ProxyErrorResponse{Error: "Proxy failed"})
		}
		return writeProxyError(ctx, err, "Proxy failed")
	}
	return writeResult(ctx, res)
}

func (c *generationController) Cancel(ctx *fiber.Ctx) error {
	res, err := c.service.Cancel(ctx.UserContext(), serverutils.UserID(ctx), ctx.Params("task_id"))
	if err != nil {
		return writeProxyError(ctx, err, "Proxy connection failed")
	}
	return writeResult(ctx, res)
}

func writeResult(ctx *fiber.Ctx, res dispatch.Result) error {
	contentType := res.ContentType
	if contentType == "" {
		contentType = fiber.MIMEApplicationJSON
	}
	ctx.Set(fiber.HeaderContentType, contentType)
	return ctx.Status(res.StatusCode).Send(res.Body)
}

// writeProxyError maps the error taxonomy of the billed path onto HTTP.
func writeProxyError(ctx *fiber.Ctx, err error, networkMessage string) error {
	var (
		insufficient *billing.InsufficientCreditsError
		billingErr   *billing.BillingError
		backendErr   *dispatch.BackendError
		netErr       *dispatch.NetworkError
	)
	switch {
	case errors.Is(err, service.ErrInvalidRequestBody):
		return ctx.Status(fiber.StatusBadRequest).JSON(dto.ProxyErrorResponse{Error: "Invalid JSON body", Details: err.Error()})
	case errors.Is(err, service.ErrTaskNotOwned):
		return ctx.Status(fiber.StatusForbidden).JSON(dto.ProxyErrorResponse{Error: "Forbidden"})
	case errors.As(err, &insufficient):
		cost, balance := insufficient.Cost, insufficient.Balance
		return ctx.Status(fiber.StatusPaymentRequired).JSON(dto.ProxyErrorResponse{
			Error:   "Insufficient credits",
			Cost:    &cost,
			Balance: &balance,
		})
	case errors.As(err, &billingErr):
		return ctx.Status(fiber.StatusInternalServerError).JSON(dto.ProxyErrorResponse{Error: "Billing failed", Details: billingErr.Error()})
	case errors.As(err, &backendErr):
		return ctx.Status(backendErr.StatusCode).JSON(dto.ProxyErrorResponse{
			Error:   "Backend failed: " + http.StatusText(backendErr.StatusCode),
			Details: string(backendErr.Body),
		})
	case errors.As(err, &netErr):
		return ctx.Status(fiber.StatusBadGateway).JSON(dto.ProxyErrorResponse{Error: networkMessage, Details: netErr.Message})
	default:
		return ctx.Status(fiber.StatusInternalServerError).JSON(dto.ProxyErrorResponse{Error: "Internal error", Details: err.Error()})
	}
}
