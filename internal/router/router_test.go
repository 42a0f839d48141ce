package router

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-integrity-api/internal/config"
	"github.com/noah-isme/gema-integrity-api/internal/dto"
	"github.com/noah-isme/gema-integrity-api/internal/handler"
)

type stubSeedService struct{}

func (stubSeedService) SeedDemo(context.Context, string) (dto.SeedResponse, error) {
	return dto.SeedResponse{Submissions: 10}, nil
}

func denyAll(*fiber.Ctx) error {
	return fiber.ErrUnauthorized
}

func TestRegisterMountsHealthAndMetrics(t *testing.T) {
	app := fiber.New()
	Register(app, config.Config{AppName: "GEMA Integrity API"}, Dependencies{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "GEMA Integrity API", resp.Header.Get("X-Application"))

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRegisterGuardsIntegrityRoutes(t *testing.T) {
	app := fiber.New()
	Register(app, config.Config{}, Dependencies{
		AnalysisHandler: handler.NewAnalysisHandler(nil, zerolog.New(io.Discard)),
		JWTMiddleware:   denyAll,
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v2/integrity/assignments/a1/analysis", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestRegisterSeedSkipsJWT(t *testing.T) {
	app := fiber.New()
	Register(app, config.Config{}, Dependencies{
		SeedHandler:   handler.NewSeedHandler(stubSeedService{}, zerolog.New(io.Discard)),
		JWTMiddleware: denyAll,
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/v2/seed/demo", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
}
