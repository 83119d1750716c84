package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestContactSubmissionsCounter(t *testing.T) {
	before := testutil.ToFloat64(ContactSubmissions().WithLabelValues("sent"))
	ContactSubmissions().WithLabelValues("sent").Inc()
	require.Equal(t, before+1, testutil.ToFloat64(ContactSubmissions().WithLabelValues("sent")))
}

func TestMetricsHandlerExposesCollectors(t *testing.T) {
	RecaptchaVerifications().WithLabelValues("rejected").Inc()

	app := fiber.New()
	app.Get("/metrics", MetricsHandler())

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.True(t, strings.Contains(string(body), `recaptcha_verifications_total{result="rejected"}`))
}
