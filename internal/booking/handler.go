package booking

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/clinicops/booking-platform/pkg/logging"
)

// Handler exposes the public booking endpoints.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates the booking HTTP handler.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if service == nil {
		panic("booking: service required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// ListSlots returns the bookable slots for a service on one date.
// GET /public/clinics/{clinicSlug}/services/{serviceID}/slots?date=YYYY-MM-DD
func (h *Handler) ListSlots(w http.ResponseWriter, r *http.Request) {
	clinicSlug := chi.URLParam(r, "clinicSlug")
	serviceID := chi.URLParam(r, "serviceID")
	date := r.URL.Query().Get("date")
	if date == "" {
		writeAdmissionError(w, admissionErr(CodeInvalidRequest, "date query parameter is required"))
		return
	}

	out, err := h.service.ListSlots(r.Context(), clinicSlug, serviceID, date)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"date":  date,
		"slots": out,
	})
}

// Book admits one booking request. The Idempotency-Key header is required;
// retries with the same key replay the original response.
// POST /public/clinics/{clinicSlug}/bookings
func (h *Handler) Book(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAdmissionError(w, admissionErr(CodeInvalidRequest, "invalid JSON body"))
		return
	}
	// The URL, not the body, names the tenant.
	req.ClinicSlug = chi.URLParam(r, "clinicSlug")

	resp, err := h.service.Book(r.Context(), r.Header.Get("Idempotency-Key"), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	status := http.StatusCreated
	if resp.Replayed {
		status = http.StatusOK
	}
	writeJSON(w, status, resp)
}

// Cancel marks an appointment cancelled, freeing its slot.
// POST /public/clinics/{clinicSlug}/appointments/{appointmentID}/cancel
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	clinicSlug := chi.URLParam(r, "clinicSlug")
	appointmentID := chi.URLParam(r, "appointmentID")

	if err := h.service.Cancel(r.Context(), clinicSlug, appointmentID); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "CANCELLED", "appointmentId": appointmentID})
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, ErrRequestInProgress) {
		w.Header().Set("Retry-After", "1")
		writeJSON(w, http.StatusConflict, errorBody(Code("REQUEST_IN_PROGRESS"), "a request with this idempotency key is already in progress", nil))
		return
	}

	var ae *AdmissionError
	if errors.As(err, &ae) {
		writeAdmissionError(w, ae)
		return
	}

	h.logger.Error("booking request failed", "path", r.URL.Path, "error", err)
	writeJSON(w, http.StatusInternalServerError, errorBody("INTERNAL_ERROR", "internal error", nil))
}

func writeAdmissionError(w http.ResponseWriter, ae *AdmissionError) {
	writeJSON(w, statusForCode(ae.Code), errorBody(ae.Code, ae.Message, ae.Details))
}

func statusForCode(code Code) int {
	switch code {
	case CodeClinicNotFound, CodeServiceNotFound:
		return http.StatusNotFound
	case CodeDuplicateBooking, CodeSlotUnavailable:
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

func errorBody(code Code, message string, details map[string]any) map[string]any {
	body := map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	}
	if len(details) > 0 {
		body["error"].(map[string]any)["details"] = details
	}
	return body
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
