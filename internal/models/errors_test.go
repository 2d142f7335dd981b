package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorCode(t *testing.T) {
	wrapped := fmt.Errorf("loading post: %w", NewNotFoundError("Post", "abc"))
	assert.Equal(t, CodeNotFound, ErrorCode(wrapped))
	assert.Equal(t, CodeInternal, ErrorCode(errors.New("boom")))
	assert.Equal(t, CodeConflict, ErrorCode(NewConflictError("taken")))
}

func TestAppError_ErrorAndUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewInternalError(cause)
	assert.Equal(t, "Internal server error: connection reset", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "Post with ID 7 not found", NewNotFoundError("Post", 7).Error())
}

func respond(t *testing.T, status int, err error) ErrorResponse {
	t.Helper()
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error { return RespondWithError(c, status, err) })

	resp, terr := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, terr)
	defer resp.Body.Close()
	assert.Equal(t, status, resp.StatusCode)

	body, rerr := io.ReadAll(resp.Body)
	require.NoError(t, rerr)
	var out ErrorResponse
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

func TestRespondWithError(t *testing.T) {
	t.Run("validation keeps message and details", func(t *testing.T) {
		out := respond(t, fiber.StatusBadRequest,
			NewValidationError("limit out of range").WithDetails(map[string]int{"max": 20}))
		assert.Equal(t, "limit out of range", out.Error)
		assert.Equal(t, CodeValidation, out.Code)
		assert.Equal(t, map[string]any{"max": float64(20)}, out.Details)
	})

	t.Run("internal hides cause and details", func(t *testing.T) {
		out := respond(t, fiber.StatusInternalServerError,
			NewInternalError(errors.New("pq: password authentication failed")).WithDetails("secret"))
		assert.Equal(t, "Internal server error", out.Error)
		assert.Nil(t, out.Details)
	})

	t.Run("plain errors are internal", func(t *testing.T) {
		out := respond(t, fiber.StatusInternalServerError, errors.New("raw"))
		assert.Equal(t, CodeInternal, out.Code)
		assert.Equal(t, "Internal server error", out.Error)
	})
}
