package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"filevault/internal/auth"
	authMocks "filevault/internal/auth/mocks"
	"filevault/internal/model"
)

func TestRequestID(t *testing.T) {
	app := fiber.New()
	app.Use(RequestID())

	app.Get("/test", func(c *fiber.Ctx) error {
		return c.SendString(RequestIDFromCtx(c))
	})

	t.Run("should generate new request id if not present", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		ridHeader := resp.Header.Get(RequestIDHeader)
		assert.NotEmpty(t, ridHeader)

		buf := new(bytes.Buffer)
		buf.ReadFrom(resp.Body)
		assert.Equal(t, ridHeader, buf.String())
	})

	t.Run("should preserve existing request id", func(t *testing.T) {
		existingID := "test-id-123"
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set(RequestIDHeader, existingID)

		resp, _ := app.Test(req)

		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, existingID, resp.Header.Get(RequestIDHeader))

		buf := new(bytes.Buffer)
		buf.ReadFrom(resp.Body)
		assert.Equal(t, existingID, buf.String())
	})

	t.Run("should replace oversized request id", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set(RequestIDHeader, strings.Repeat("a", 200))

		resp, _ := app.Test(req)

		rid := resp.Header.Get(RequestIDHeader)
		assert.Len(t, rid, 36)
	})
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "ts"
	logger := zap.New(zapcore.NewCore(zapcore.NewJSONEncoder(enc), zapcore.AddSync(&buf), zap.InfoLevel))

	app := fiber.New()
	app.Use(RequestID())
	app.Use(Logger(logger))

	app.Get("/test", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusAccepted)
	})
	app.Get("/denied", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusUnauthorized, "nope")
	})

	t.Run("success entry", func(t *testing.T) {
		buf.Reset()
		req := httptest.NewRequest("GET", "/test", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)

		var logData map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &logData))

		assert.NotEmpty(t, logData["request_id"])
		assert.Equal(t, "GET", logData["method"])
		assert.Equal(t, "/test", logData["path"])
		assert.Equal(t, float64(fiber.StatusAccepted), logData["status"])
		assert.NotNil(t, logData["latency_ms"])
		assert.NotEmpty(t, logData["ts"])
	})

	t.Run("error status is taken from fiber error", func(t *testing.T) {
		buf.Reset()
		req := httptest.NewRequest("GET", "/denied", nil)
		app.Test(req)

		var logData map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &logData))
		assert.Equal(t, float64(fiber.StatusUnauthorized), logData["status"])
		assert.Equal(t, "nope", logData["error"])
	})
}

func TestAuthenticate(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		setupMocks func(v *authMocks.MockTokenVerifier)
		wantStatus int
		wantUID    string
	}{
		{
			name:       "no header",
			wantStatus: fiber.StatusUnauthorized,
		},
		{
			name:       "wrong scheme",
			header:     "Basic dXNlcjpwYXNz",
			wantStatus: fiber.StatusUnauthorized,
		},
		{
			name:   "rejected token",
			header: "Bearer bad",
			setupMocks: func(v *authMocks.MockTokenVerifier) {
				v.On("Verify", mock.Anything, "bad").Return(model.Identity{}, auth.ErrUnauthenticated)
			},
			wantStatus: fiber.StatusUnauthorized,
		},
		{
			name:   "verified",
			header: "Bearer good",
			setupMocks: func(v *authMocks.MockTokenVerifier) {
				v.On("Verify", mock.Anything, "good").Return(model.Identity{SubjectID: "u1"}, nil)
			},
			wantStatus: fiber.StatusOK,
			wantUID:    "u1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := new(authMocks.MockTokenVerifier)
			if tt.setupMocks != nil {
				tt.setupMocks(v)
			}
			reached := false

			app := fiber.New()
			app.Get("/files", Authenticate(v), func(c *fiber.Ctx) error {
				reached = true
				id, ok := IdentityFromCtx(c)
				require.True(t, ok)
				assert.Equal(t, "good", TokenFromCtx(c))
				return c.SendString(id.SubjectID)
			})

			req := httptest.NewRequest("GET", "/files", nil)
			if tt.header != "" {
				req.Header.Set(fiber.HeaderAuthorization, tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantStatus == fiber.StatusOK, reached)
			if tt.wantUID != "" {
				buf := new(bytes.Buffer)
				buf.ReadFrom(resp.Body)
				assert.Equal(t, tt.wantUID, buf.String())
			}
			v.AssertExpectations(t)
		})
	}
}

func TestIdentityFromCtx_Missing(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		_, ok := IdentityFromCtx(c)
		if ok {
			return errors.New("unexpected identity")
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}
