package controller

import (
	"genstudio-be/internal/pkg/serverutils"
	"genstudio-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IUserController interface {
	RegisterRoutes(api fiber.Router, jwtMiddleware fiber.Handler)
	GetCredits(ctx *fiber.Ctx) error
}

type userController struct {
	service service.IUserService
}

func NewUserController(service service.IUserService) IUserController {
	return &userController{service: service}
}

func (c *userController) RegisterRoutes(api fiber.Router, jwtMiddleware fiber.Handler) {
	h := api.Group("/user", jwtMiddleware)
	h.Get("/credits", c.GetCredits)
}

func (c *userController) GetCredits(ctx *fiber.Ctx) error {
	res, err := c.service.GetCredits(ctx.UserContext(), serverutils.UserID(ctx))
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}
	return ctx.JSON(serverutils.SuccessResponse("User credits", res))
}
