package controller

import (
	"genstudio-be/internal/dto"
	"genstudio-be/internal/pkg/serverutils"
	"genstudio-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ILibraryController interface {
	RegisterRoutes(api fiber.Router, jwtMiddleware fiber.Handler)
	List(ctx *fiber.Ctx) error
	Save(ctx *fiber.Ctx) error
}

type libraryController struct {
	service service.ILibraryService
}

func NewLibraryController(service service.ILibraryService) ILibraryController {
	return &libraryController{service: service}
}

func (c *libraryController) RegisterRoutes(api fiber.Router, jwtMiddleware fiber.Handler) {
	h := api.Group("/library", jwtMiddleware)
	h.Get("/", c.List)
	h.Post("/save", c.Save)
}

func (c *libraryController) List(ctx *fiber.Ctx) error {
	req := dto.LibraryPageRequest{Page: 1, Limit: 20}
	if err := ctx.QueryParser(&req); err != nil {
		return serverutils.BadRequestParams(err.Error())
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.List(ctx.UserContext(), serverutils.UserID(ctx), req.Page, req.Limit)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}
	return ctx.JSON(serverutils.SuccessResponse("Library", res))
}

func (c *libraryController) Save(ctx *fiber.Ctx) error {
	var req dto.SaveCreationRequest
	if err := ctx.BodyParser(&req); err != nil {
		return serverutils.BadRequest(err.Error())
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Save(ctx.UserContext(), serverutils.UserID(ctx), req)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, "Failed to save creation"))
	}
	return ctx.JSON(res)
}
