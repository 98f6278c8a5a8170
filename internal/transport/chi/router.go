package chi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/pdfrag/internal/metrics"
	gen "github.com/kailas-cloud/pdfrag/internal/transport/generated"
)

// NewRouter wires the routes and the middleware stack.
func NewRouter(s *Server, apiKeys []string, log *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(jsonRecoverer(log))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(log))
	r.Use(BearerAuthMiddleware(apiKeys))
	r.Use(metrics.Middleware())

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, gen.ErrorResponseCodeBadRequest, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, gen.ErrorResponseCodeBadRequest, "method not allowed")
	})

	return gen.HandlerWithOptions(s, gen.ChiServerOptions{
		BaseRouter:       r,
		ErrorHandlerFunc: invalidParam,
	})
}
