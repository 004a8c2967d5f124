package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/littleoak-health/intake-platform/internal/appointments"
	"github.com/littleoak-health/intake-platform/internal/availability"
	"github.com/littleoak-health/intake-platform/internal/scheduling"
	"github.com/littleoak-health/intake-platform/internal/therapists"
	"github.com/littleoak-health/intake-platform/pkg/logging"
)

const routerTestSecret = "router-test-secret"

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	logger := logging.Default()

	therapistRepo := therapists.NewInMemoryRepository()
	availabilityRepo := availability.NewInMemoryRepository()
	appointmentRepo := appointments.NewInMemoryRepository()

	generator := scheduling.NewGenerator(availabilityRepo, appointmentRepo, therapistRepo)
	schedulingService := scheduling.NewService(generator, nil, nil, logger)
	appointmentService := appointments.NewService(appointmentRepo, therapistRepo, appointments.DefaultNoticePolicy(), logger)

	return New(&Config{
		Logger:              logger,
		SchedulingHandler:   scheduling.NewHandler(schedulingService, 60, logger),
		AppointmentsHandler: appointments.NewHandler(appointmentService, logger),
		AvailabilityHandler: availability.NewHandler(availabilityRepo, logger),
		AdminJWTSecret:      routerTestSecret,
	})
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Fatalf("unexpected content type %q", got)
	}
}

func TestAdminRoutesRequireJWT(t *testing.T) {
	router := newTestRouter(t)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/admin/therapists/5c2ba58a-1672-4c7e-a8a1-6baf0ef1a79a/availability"},
		{http.MethodGet, "/admin/therapists/5c2ba58a-1672-4c7e-a8a1-6baf0ef1a79a/time-off"},
		{http.MethodPost, "/admin/appointments/5c2ba58a-1672-4c7e-a8a1-6baf0ef1a79a/complete"},
		{http.MethodPost, "/admin/appointments/5c2ba58a-1672-4c7e-a8a1-6baf0ef1a79a/no-show"},
	}
	for _, p := range paths {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(p.method, p.path, nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: expected 401, got %d", p.method, p.path, rec.Code)
		}
	}
}

func TestAdminRoutesAcceptValidJWT(t *testing.T) {
	router := newTestRouter(t)

	claims := jwt.RegisteredClaims{
		Subject:   "ops",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(routerTestSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/admin/therapists/5c2ba58a-1672-4c7e-a8a1-6baf0ef1a79a/availability", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 past the guard, got %d", rec.Code)
	}
}

func TestPublicRoutesAreRegistered(t *testing.T) {
	router := newTestRouter(t)

	// A bad therapist id proves the slots route exists and reached the
	// handler.
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/therapists/nope/slots", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("slots route: expected 400, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/appointments/nope", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("appointments route: expected 400, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/does-not-exist", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown route: expected 404, got %d", rec.Code)
	}
}
