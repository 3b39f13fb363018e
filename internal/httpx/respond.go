package httpx

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/ariefcatur/go-retail-stock/internal/errs"
	"github.com/ariefcatur/go-retail-stock/internal/inventory"
	"github.com/rs/zerolog"
)

const (
	codeIllegalTransition = "ILLEGAL_TRANSITION"
	codeStoreUnavailable  = "STORE_UNAVAILABLE"
	codeNotFound          = "NOT_FOUND"
	codeInvalidInput      = "INVALID_INPUT"
	codeInternal          = "INTERNAL"
)

// retryAfterSeconds is sent with 423 responses; a lock is held for one
// critical section, so a prompt retry usually succeeds.
const retryAfterSeconds = "1"

type errorResp struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type rejectionResp struct {
	OK     bool     `json:"ok"`
	Reason string   `json:"reason"`
	SKUs   []string `json:"skus"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errs.Mark(errs.Wrap(err, "invalid json"), errs.ErrInvalidInput)
	}
	return nil
}

// writeError maps the error taxonomy onto status codes. "Retry" and "no
// stock" are always distinguishable by status and reason.
func writeError(w http.ResponseWriter, log zerolog.Logger, err error) {
	if re, ok := inventory.AsReservationError(err); ok {
		code := http.StatusConflict
		if re.Reason == inventory.ReasonLocked {
			code = http.StatusLocked
			w.Header().Set("Retry-After", retryAfterSeconds)
		}
		writeJSON(w, code, rejectionResp{OK: false, Reason: string(re.Reason), SKUs: re.SKUs})
		return
	}

	switch {
	case errs.Is(err, errs.ErrInsufficientStock):
		writeJSON(w, http.StatusConflict, rejectionResp{Reason: string(inventory.ReasonInsufficientStock), SKUs: []string{}})
	case errs.Is(err, errs.ErrIllegalTransition):
		writeJSON(w, http.StatusUnprocessableEntity, errorResp{Error: codeIllegalTransition, Message: err.Error()})
	case errs.Is(err, errs.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResp{Error: codeNotFound, Message: err.Error()})
	case errs.Is(err, errs.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, errorResp{Error: codeInvalidInput, Message: err.Error()})
	case errs.Is(err, errs.ErrStoreUnavailable):
		log.Error().Err(err).Msg("store unavailable")
		writeJSON(w, http.StatusServiceUnavailable, errorResp{Error: codeStoreUnavailable})
	case errs.Is(err, context.DeadlineExceeded):
		writeJSON(w, http.StatusGatewayTimeout, errorResp{Error: codeStoreUnavailable, Message: "timed out"})
	default:
		log.Error().Err(err).Msg("unhandled error")
		writeJSON(w, http.StatusInternalServerError, errorResp{Error: codeInternal})
	}
}
