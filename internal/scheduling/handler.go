package scheduling

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/littleoak-health/intake-platform/internal/availability"
	"github.com/littleoak-health/intake-platform/internal/therapists"
	"github.com/littleoak-health/intake-platform/pkg/logging"
)

// Handler serves slot queries.
type Handler struct {
	service      *Service
	maxRangeDays int
	logger       *logging.Logger
}

// NewHandler creates a new scheduling handler
func NewHandler(service *Service, maxRangeDays int, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	if maxRangeDays <= 0 {
		maxRangeDays = 60
	}
	return &Handler{service: service, maxRangeDays: maxRangeDays, logger: logger}
}

// SlotsResponse is the response for a slot query.
type SlotsResponse struct {
	TherapistID uuid.UUID `json:"therapist_id"`
	Timezone    string    `json:"timezone"`
	Slots       []Slot    `json:"slots"`
	Count       int       `json:"count"`
}

// GetSlots handles GET /therapists/{therapistID}/slots?start=&end=&timezone=
func (h *Handler) GetSlots(w http.ResponseWriter, r *http.Request) {
	therapistID, err := uuid.Parse(chi.URLParam(r, "therapistID"))
	if err != nil {
		http.Error(w, "invalid therapist id", http.StatusBadRequest)
		return
	}

	q := r.URL.Query()
	start, err := time.Parse("2006-01-02", q.Get("start"))
	if err != nil {
		http.Error(w, "start must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	end, err := time.Parse("2006-01-02", q.Get("end"))
	if err != nil {
		http.Error(w, "end must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	if end.Before(start) {
		http.Error(w, "end must not be before start", http.StatusBadRequest)
		return
	}
	if int(end.Sub(start).Hours()/24) > h.maxRangeDays {
		http.Error(w, "date range too large", http.StatusBadRequest)
		return
	}

	tz := q.Get("timezone")
	if tz == "" {
		tz = "UTC"
	}

	slots, err := h.service.ComputeAvailableSlots(r.Context(), therapistID, start, end, tz)
	if err != nil {
		switch {
		case errors.Is(err, therapists.ErrNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, availability.ErrInvalidTimezone), errors.Is(err, availability.ErrDateOrder):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			h.logger.Error("slot query failed", "error", err, "therapist_id", therapistID)
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}

	if slots == nil {
		slots = []Slot{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(SlotsResponse{
		TherapistID: therapistID,
		Timezone:    tz,
		Slots:       slots,
		Count:       len(slots),
	})
}
