package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/hackgods/vet-clinic/internal/appointment"
	"github.com/hackgods/vet-clinic/internal/auth"
	"github.com/hackgods/vet-clinic/internal/clinic"
	"github.com/hackgods/vet-clinic/internal/inventory"
	"github.com/hackgods/vet-clinic/internal/invoice"
	"github.com/hackgods/vet-clinic/internal/medical"
	"github.com/hackgods/vet-clinic/internal/patient"
	"github.com/hackgods/vet-clinic/internal/validation"
)

const (
	CodeValidation           = "VALIDATION_ERROR"
	CodeInvalidBody          = "INVALID_REQUEST_BODY"
	CodeOverlapDetected      = "OVERLAP_DETECTED"
	CodeOverrideConfirmation = "OVERRIDE_CONFIRMATION_REQUIRED"
	CodeScheduleBusy         = "SCHEDULE_BUSY"
	CodeInvalidTransition    = "INVALID_STATUS_TRANSITION"
	CodeInvoiceChanged       = "INVOICE_CHANGED"
	CodeDuplicate            = "DUPLICATE"
	CodeSetupComplete        = "SETUP_COMPLETE"
	CodeNotFound             = "NOT_FOUND"
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeForbidden            = "FORBIDDEN"
	CodeRateLimited          = "RATE_LIMITED"
	CodeInternal             = "INTERNAL_ERROR"
)

var notFoundErrors = []error{
	appointment.ErrAppointmentNotFound,
	invoice.ErrInvoiceNotFound,
	invoice.ErrPaymentNotFound,
	clinic.ErrClinicNotFound,
	clinic.ErrUserNotFound,
	patient.ErrPetParentNotFound,
	patient.ErrPetNotFound,
	medical.ErrRecordNotFound,
	inventory.ErrItemNotFound,
}

// writeServiceError maps a domain error to its status code and body. Anything
// unrecognised is logged and reported as a 500 without its message.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	var (
		ve      *validation.Error
		overlap *appointment.OverlapError
	)

	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			ErrorCode: CodeValidation,
			Message:   "request has invalid fields",
			Fields:    ve.Fields,
		})
	case errors.As(err, &overlap):
		writeJSON(w, http.StatusConflict, ErrorResponse{
			ErrorCode: CodeOverlapDetected,
			Message:   "the vet already has an appointment in this time range",
			Conflicts: toConflictResponses(overlap.Conflicts),
		})
	case errors.Is(err, appointment.ErrOverrideConfirmationRequired):
		writeError(w, http.StatusConflict, CodeOverrideConfirmation, `set confirm_override to "yes" to book over the existing appointment`)
	case errors.Is(err, appointment.ErrScheduleBusy):
		writeError(w, http.StatusConflict, CodeScheduleBusy, err.Error())
	case errors.Is(err, invoice.ErrInvalidStatusTransition):
		writeError(w, http.StatusBadRequest, CodeInvalidTransition, err.Error())
	case errors.Is(err, invoice.ErrInvoiceChanged):
		writeError(w, http.StatusConflict, CodeInvoiceChanged, err.Error())
	case errors.Is(err, clinic.ErrDuplicatePhone):
		writeError(w, http.StatusConflict, CodeDuplicate, err.Error())
	case errors.Is(err, clinic.ErrAlreadySetUp):
		writeError(w, http.StatusConflict, CodeSetupComplete, err.Error())
	case errors.Is(err, clinic.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		writeError(w, http.StatusUnauthorized, CodeUnauthorized, err.Error())
	case isNotFound(err):
		writeError(w, http.StatusNotFound, CodeNotFound, err.Error())
	default:
		logger.Error("request failed",
			zap.String("request_id", GetRequestID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, CodeInternal, "internal server error")
	}
}

func isNotFound(err error) bool {
	for _, target := range notFoundErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{ErrorCode: code, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads a single JSON object from the body. It writes the error
// response itself and reports whether the handler may continue.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidBody, "could not parse JSON body")
		return false
	}
	return true
}
