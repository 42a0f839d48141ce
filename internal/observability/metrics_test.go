package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestAnalysisMetricsAreRegisteredOnce(t *testing.T) {
	RegisterMetrics()
	RegisterMetrics()

	before := testutil.ToFloat64(AnalysisRuns().WithLabelValues("success"))
	AnalysisRuns().WithLabelValues("success").Inc()
	require.Equal(t, before+1, testutil.ToFloat64(AnalysisRuns().WithLabelValues("success")))

	flagged := testutil.ToFloat64(AnalysisFlagged())
	AnalysisFlagged().Add(2)
	require.Equal(t, flagged+2, testutil.ToFloat64(AnalysisFlagged()))
}

func TestMetricsHandlerExposesAnalysisSeries(t *testing.T) {
	AnalysisRuns().WithLabelValues("conflict").Inc()

	app := fiber.New()
	app.Get("/metrics", MetricsHandler())

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `integrity_analysis_runs_total{outcome="conflict"}`)
}
