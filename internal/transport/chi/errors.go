package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/kailas-cloud/pdfrag/internal/domain"
	gen "github.com/kailas-cloud/pdfrag/internal/transport/generated"
)

// retryAfterSec is advertised on 503 responses.
const retryAfterSec = 5

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, resp gen.ErrorResponse) bool

var errorHandlers = []errorHandler{
	sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, gen.ErrorResponseCodeBadRequest),
	sentinelHandler(domain.ErrDocumentUnreadable, http.StatusUnprocessableEntity, gen.ErrorResponseCodeDocumentUnreadable),
	sentinelHandler(domain.ErrConfiguration, http.StatusInternalServerError, gen.ErrorResponseCodeConfigurationError),
	unavailableHandler(domain.ErrStoreUnavailable, gen.ErrorResponseCodeStoreUnavailable),
	unavailableHandler(domain.ErrAdapterUnavailable, gen.ErrorResponseCodeAdapterUnavailable),
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code gen.ErrorResponseCode, message string) {
	writeJSON(w, status, gen.ErrorResponse{Code: code, Message: message})
}

func sentinelHandler(sentinel error, status int, code gen.ErrorResponseCode) errorHandler {
	return func(w http.ResponseWriter, err error, resp gen.ErrorResponse) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		resp.Code = code
		writeJSON(w, status, resp)
		return true
	}
}

func unavailableHandler(sentinel error, code gen.ErrorResponseCode) errorHandler {
	return func(w http.ResponseWriter, err error, resp gen.ErrorResponse) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSec))
		resp.Code = code
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return true
	}
}

// safeMessage returns the sentinel text for the client without exposing internals.
// Validation errors are returned in full since they describe the caller's input.
func safeMessage(err error) string {
	if errors.Is(err, domain.ErrInvalidRequest) {
		return err.Error()
	}
	for _, s := range []error{
		domain.ErrDocumentUnreadable,
		domain.ErrConfiguration,
		domain.ErrStoreUnavailable,
		domain.ErrAdapterUnavailable,
	} {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := s.log(r)
	resp := gen.ErrorResponse{Message: safeMessage(err)}
	var se *domain.StageError
	if errors.As(err, &se) {
		resp.Stage = se.Stage
	}

	for _, h := range errorHandlers {
		if h(w, err, resp) {
			log.Warn("domain error", zap.String("stage", resp.Stage), zap.Error(err))
			return
		}
	}
	log.Error("internal error", zap.String("stage", resp.Stage), zap.Error(err))
	resp.Code = gen.ErrorResponseCodeInternalError
	writeJSON(w, http.StatusInternalServerError, resp)
}

// invalidParam reports a path parameter the router could not bind.
func invalidParam(w http.ResponseWriter, _ *http.Request, err error) {
	writeError(w, http.StatusBadRequest, gen.ErrorResponseCodeBadRequest, err.Error())
}
