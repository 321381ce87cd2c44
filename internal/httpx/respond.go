package httpx

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/pasarhemat/pasar-surplus.git/internal/market"
)

// Envelope seragam untuk semua response error.
type errBody struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Code    string        `json:"code,omitempty"`
	Status  market.Status `json:"status,omitempty"` // status order saat ini, biar client resync
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func statusFor(kind market.ErrKind) int {
	switch kind {
	case market.KindValidation, market.KindInvalidState:
		return http.StatusBadRequest
	case market.KindNotFound:
		return http.StatusNotFound
	case market.KindUnauthenticated:
		return http.StatusUnauthorized
	case market.KindForbidden:
		return http.StatusForbidden
	case market.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeErr maps the domain taxonomy onto HTTP. Internal errors are logged
// in full and returned generic, kecuali dev mode.
func writeErr(w http.ResponseWriter, log *zap.Logger, dev bool, err error, ord *market.Order) {
	kind := market.KindOf(err)
	code := statusFor(kind)
	msg := err.Error()
	if kind == "" {
		log.Error("internal error", zap.Error(err))
		if !dev {
			msg = "internal error"
		}
	}
	body := errBody{Success: false, Message: msg, Code: string(kind)}
	if ord != nil {
		body.Status = ord.Status
	}
	writeJSON(w, code, body)
}
