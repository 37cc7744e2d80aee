package serverutils

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "unit-secret"

func whoAmI(ctx *fiber.Ctx) error {
	return ctx.JSON(fiber.Map{"user_id": UserID(ctx), "role": Role(ctx)})
}

func call(t *testing.T, app *fiber.App, authorization string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var body map[string]interface{}
	_ = json.Unmarshal(raw, &body)
	return resp.StatusCode, body
}

func TestJwtMiddleware(t *testing.T) {
	app := fiber.New()
	app.Get("/", JwtMiddleware(secret), whoAmI)

	valid, err := SignToken(secret, "u1", "admin")
	require.NoError(t, err)
	forged, err := SignToken("other-secret", "u1", "admin")
	require.NoError(t, err)
	subOnly, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u9"}).SignedString([]byte(secret))
	require.NoError(t, err)
	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"role": "user"}).SignedString([]byte(secret))
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		status int
		userID string
	}{
		{name: "valid token", header: "Bearer " + valid, status: http.StatusOK, userID: "u1"},
		{name: "lowercase scheme", header: "bearer " + valid, status: http.StatusOK, userID: "u1"},
		{name: "sub claim fallback", header: "Bearer " + subOnly, status: http.StatusOK, userID: "u9"},
		{name: "missing header", status: http.StatusUnauthorized},
		{name: "wrong secret", header: "Bearer " + forged, status: http.StatusUnauthorized},
		{name: "no subject", header: "Bearer " + noSubject, status: http.StatusUnauthorized},
		{name: "garbage", header: "Bearer abc.def", status: http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := call(t, app, tc.header)
			assert.Equal(t, tc.status, status)
			if tc.status == http.StatusOK {
				assert.Equal(t, tc.userID, body["user_id"])
			} else {
				assert.Equal(t, false, body["success"])
			}
		})
	}
}

func TestOptionalJwtMiddleware(t *testing.T) {
	app := fiber.New()
	app.Get("/", OptionalJwtMiddleware(secret), whoAmI)

	status, body := call(t, app, "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "", body["user_id"])

	token, err := SignToken(secret, "u2", "")
	require.NoError(t, err)
	status, body = call(t, app, "Bearer "+token)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "u2", body["user_id"])
	assert.Equal(t, "", body["role"])
}

func TestErrorHandlerMiddleware(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   float64
	}{
		{name: "app error", err: NotFound("user"), status: http.StatusNotFound, code: CodeNotFound},
		{name: "wrapped app error", err: errors.Join(errors.New("ctx"), Forbidden("nope")), status: http.StatusForbidden, code: CodeForbidden},
		{name: "fiber error", err: fiber.ErrMethodNotAllowed, status: http.StatusMethodNotAllowed, code: 40500},
		{name: "plain error", err: errors.New("boom"), status: http.StatusInternalServerError, code: CodeInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := fiber.New()
			app.Use(ErrorHandlerMiddleware())
			app.Get("/", func(ctx *fiber.Ctx) error { return tc.err })

			status, body := call(t, app, "")
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.code, body["code"])
			assert.Equal(t, false, body["success"])
		})
	}
}

func TestValidateRequest(t *testing.T) {
	type payload struct {
		Name  string `validate:"required"`
		Limit int    `validate:"gte=1,lte=100"`
	}

	require.NoError(t, ValidateRequest(payload{Name: "a", Limit: 10}))

	err := ValidateRequest(payload{Limit: 500})
	require.Error(t, err)
	var appErr *AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusBadRequest, appErr.HTTPCode)
	assert.Contains(t, appErr.Details, "Name")
}
