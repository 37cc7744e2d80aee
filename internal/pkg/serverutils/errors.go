package serverutils

import (
	"errors"
	"log"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Application error codes. The first three digits are the HTTP status.
const (
	CodeBadRequestBody   = 40000
	CodeBadRequestParams = 40001
	CodeUnauthorized     = 40100
	CodeForbidden        = 40300
	CodeNotFound         = 40400
	CodeInternal         = 50000
	CodeDatabase         = 50001
	CodeExternalRequest  = 50200
)

type AppError struct {
	HTTPCode int
	Code     int
	Message  string
	Details  string
}

func (e *AppError) Error() string {
	if e.Details == "" {
		return e.Message
	}
	return e.Message + ": " + e.Details
}

func NewAppError(httpCode, code int, message, details string) *AppError {
	return &AppError{HTTPCode: httpCode, Code: code, Message: message, Details: details}
}

func BadRequest(details string) *AppError {
	return NewAppError(http.StatusBadRequest, CodeBadRequestBody, "bad-request", details)
}

func BadRequestParams(details string) *AppError {
	return NewAppError(http.StatusBadRequest, CodeBadRequestParams, "bad-request-params", details)
}

func Unauthorized(details string) *AppError {
	return NewAppError(http.StatusUnauthorized, CodeUnauthorized, "unauthorized", details)
}

func Forbidden(details string) *AppError {
	return NewAppError(http.StatusForbidden, CodeForbidden, "forbidden", details)
}

func NotFound(details string) *AppError {
	return NewAppError(http.StatusNotFound, CodeNotFound, "not-found", details)
}

func InternalServer(details string) *AppError {
	return NewAppError(http.StatusInternalServerError, CodeInternal, "internal-server-error", details)
}

func DatabaseError(details string) *AppError {
	return NewAppError(http.StatusInternalServerError, CodeDatabase, "database-error", details)
}

func ExternalRequestError(details string) *AppError {
	return NewAppError(http.StatusBadGateway, CodeExternalRequest, "external-request-failed", details)
}

// From keeps an *AppError and wraps anything else as an internal error.
func From(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return NewAppError(fiberErr.Code, fiberErr.Code*100, http.StatusText(fiberErr.Code), fiberErr.Message)
	}
	return InternalServer(err.Error())
}

// ErrorHandlerMiddleware turns errors returned by handlers into BaseResponse
// bodies. Handlers that already wrote a response return nil and are untouched.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}
		appErr := From(err)
		if appErr.HTTPCode >= http.StatusInternalServerError {
			log.Printf("[ERROR] %s %s: %v", ctx.Method(), ctx.Path(), err)
		}
		return ctx.Status(appErr.HTTPCode).JSON(BaseResponse[any]{
			Success: false,
			Code:    appErr.Code,
			Message: appErr.Error(),
		})
	}
}
