package availability

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/littleoak-health/intake-platform/internal/therapists"
	"github.com/littleoak-health/intake-platform/pkg/logging"
)

// SlotInvalidator drops cached slot computations after calendar mutations.
type SlotInvalidator interface {
	Invalidate(ctx context.Context, therapistID uuid.UUID) error
}

// Handler exposes the admin surface for managing the availability catalog.
type Handler struct {
	repo   Repository
	cache  SlotInvalidator
	logger *logging.Logger
}

// NewHandler creates a new availability handler
func NewHandler(repo Repository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, logger: logger}
}

// WithSlotCache attaches the slot cache invalidator.
func (h *Handler) WithSlotCache(cache SlotInvalidator) *Handler {
	h.cache = cache
	return h
}

func (h *Handler) invalidateSlots(ctx context.Context, therapistID uuid.UUID) {
	if h.cache == nil {
		return
	}
	if err := h.cache.Invalidate(ctx, therapistID); err != nil {
		h.logger.Warn("slot cache invalidation failed", "error", err, "therapist_id", therapistID)
	}
}

// CreateWindowRequest is the body for creating a recurring window.
type CreateWindowRequest struct {
	DayOfWeek   int       `json:"day_of_week"`
	StartTime   TimeOfDay `json:"start_time"`
	EndTime     TimeOfDay `json:"end_time"`
	Timezone    string    `json:"timezone"`
	IsRepeating *bool     `json:"is_repeating,omitempty"`
}

// CreateWindow handles POST /admin/therapists/{therapistID}/availability
func (h *Handler) CreateWindow(w http.ResponseWriter, r *http.Request) {
	therapistID, err := uuid.Parse(chi.URLParam(r, "therapistID"))
	if err != nil {
		http.Error(w, "invalid therapist id", http.StatusBadRequest)
		return
	}

	var req CreateWindowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	window := &Window{
		TherapistID: therapistID,
		DayOfWeek:   req.DayOfWeek,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Timezone:    req.Timezone,
		IsRepeating: true,
	}
	if req.IsRepeating != nil {
		window.IsRepeating = *req.IsRepeating
	}

	if err := h.repo.CreateWindow(r.Context(), window); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.invalidateSlots(r.Context(), therapistID)
	h.logger.Info("availability window created",
		"therapist_id", therapistID,
		"window_id", window.ID,
		"day_of_week", window.DayOfWeek,
	)
	writeJSON(w, http.StatusCreated, window)
}

// ListWindows handles GET /admin/therapists/{therapistID}/availability
func (h *Handler) ListWindows(w http.ResponseWriter, r *http.Request) {
	therapistID, err := uuid.Parse(chi.URLParam(r, "therapistID"))
	if err != nil {
		http.Error(w, "invalid therapist id", http.StatusBadRequest)
		return
	}

	windows, err := h.repo.WindowsForTherapist(r.Context(), therapistID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"windows": windows, "count": len(windows)})
}

// DeleteWindow handles DELETE /admin/therapists/{therapistID}/availability/{windowID}
func (h *Handler) DeleteWindow(w http.ResponseWriter, r *http.Request) {
	therapistID, err := uuid.Parse(chi.URLParam(r, "therapistID"))
	if err != nil {
		http.Error(w, "invalid therapist id", http.StatusBadRequest)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "windowID"))
	if err != nil {
		http.Error(w, "invalid window id", http.StatusBadRequest)
		return
	}

	if err := h.repo.DeleteWindow(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.invalidateSlots(r.Context(), therapistID)
	h.logger.Info("availability window deleted", "window_id", id, "therapist_id", therapistID)
	w.WriteHeader(http.StatusNoContent)
}

// CreateTimeOffRequest is the body for creating a time-off range.
type CreateTimeOffRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Reason    string `json:"reason,omitempty"`
}

// CreateTimeOff handles POST /admin/therapists/{therapistID}/time-off
func (h *Handler) CreateTimeOff(w http.ResponseWriter, r *http.Request) {
	therapistID, err := uuid.Parse(chi.URLParam(r, "therapistID"))
	if err != nil {
		http.Error(w, "invalid therapist id", http.StatusBadRequest)
		return
	}

	var req CreateTimeOffRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		http.Error(w, "start_date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	end, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		http.Error(w, "end_date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	timeOff := &TimeOff{
		TherapistID: therapistID,
		StartDate:   start,
		EndDate:     end,
		Reason:      req.Reason,
	}
	if err := h.repo.CreateTimeOff(r.Context(), timeOff); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.invalidateSlots(r.Context(), therapistID)
	h.logger.Info("time off created",
		"therapist_id", therapistID,
		"time_off_id", timeOff.ID,
		"start_date", req.StartDate,
		"end_date", req.EndDate,
	)
	writeJSON(w, http.StatusCreated, timeOff)
}

// ListTimeOff handles GET /admin/therapists/{therapistID}/time-off?start=&end=
func (h *Handler) ListTimeOff(w http.ResponseWriter, r *http.Request) {
	therapistID, err := uuid.Parse(chi.URLParam(r, "therapistID"))
	if err != nil {
		http.Error(w, "invalid therapist id", http.StatusBadRequest)
		return
	}

	now := time.Now().UTC()
	from, to := now, now.AddDate(1, 0, 0)
	if s := r.URL.Query().Get("start"); s != "" {
		if parsed, err := time.Parse("2006-01-02", s); err == nil {
			from = parsed
		}
	}
	if s := r.URL.Query().Get("end"); s != "" {
		if parsed, err := time.Parse("2006-01-02", s); err == nil {
			to = parsed
		}
	}

	ranges, err := h.repo.TimeOffFor(r.Context(), therapistID, from, to)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"time_off": ranges, "count": len(ranges)})
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, therapists.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrMissingTherapist),
		errors.Is(err, ErrInvalidDayOfWeek),
		errors.Is(err, ErrWindowOrder),
		errors.Is(err, ErrWindowOverlap),
		errors.Is(err, ErrInvalidTimezone),
		errors.Is(err, ErrDateOrder),
		errors.Is(err, ErrTimeOffInPast):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.logger.Error("availability request failed", "error", err, "path", r.URL.Path)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
