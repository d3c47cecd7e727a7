package api

import (
	_ "embed"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	httpSwagger "github.com/swaggo/http-swagger"

	"deskchat/pkg/api/handlers"
	"deskchat/pkg/auth"
	"deskchat/pkg/logger"
	"deskchat/pkg/metrics"
	"deskchat/pkg/store"
	"deskchat/pkg/utils"
)

//go:embed openapi.yaml
var openapiSpec []byte

// Options configures the HTTP router.
type Options struct {
	Gateway      *auth.Gateway
	MaxBodyBytes int64
}

// NewRouter assembles the full route table wrapped in the gateway,
// logging and metrics middleware.
func NewRouter(opts Options) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		utils.JSONWrite(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
	r.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		if !store.Ready() {
			utils.JSONError(w, http.StatusServiceUnavailable, "store not ready")
			return
		}
		utils.JSONWrite(w, http.StatusOK, map[string]string{"status": "ready"})
	}).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	r.HandleFunc("/openapi.yaml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(openapiSpec)
	}).Methods(http.MethodGet)
	r.PathPrefix("/docs/").Handler(httpSwagger.Handler(
		httpSwagger.URL("/openapi.yaml"),
	))

	v1 := r.PathPrefix("/v1").Subrouter()

	v1.HandleFunc("/auth/register", handlers.Register).Methods(http.MethodPost)
	v1.HandleFunc("/auth/login", handlers.Login).Methods(http.MethodPost)
	v1.HandleFunc("/auth/profile", handlers.Profile).Methods(http.MethodGet)

	v1.HandleFunc("/chat/messages", handlers.SendMessage).Methods(http.MethodPost)
	v1.HandleFunc("/chat/messages", handlers.History).Methods(http.MethodGet)
	v1.HandleFunc("/chat/messages", handlers.ClearHistory).Methods(http.MethodDelete)
	v1.HandleFunc("/chat/messages/{id}/reactions", handlers.React).Methods(http.MethodPost)
	v1.HandleFunc("/chat/export", handlers.Export).Methods(http.MethodGet)
	v1.HandleFunc("/chat/typing", handlers.SetTyping).Methods(http.MethodPost)
	v1.HandleFunc("/chat/typing", handlers.GetTyping).Methods(http.MethodGet)

	v1.HandleFunc("/faqs", auth.RequireAdmin(handlers.ListFAQs)).Methods(http.MethodGet)
	v1.HandleFunc("/faqs", auth.RequireAdmin(handlers.CreateFAQ)).Methods(http.MethodPost)
	v1.HandleFunc("/faqs/analytics", auth.RequireAdmin(handlers.FAQAnalytics)).Methods(http.MethodGet)
	v1.HandleFunc("/faqs/{id}", auth.RequireAdmin(handlers.GetFAQHandler)).Methods(http.MethodGet)
	v1.HandleFunc("/faqs/{id}", auth.RequireAdmin(handlers.UpdateFAQ)).Methods(http.MethodPut)
	v1.HandleFunc("/faqs/{id}", auth.RequireAdmin(handlers.DeleteFAQHandler)).Methods(http.MethodDelete)

	v1.HandleFunc("/admin/system-prompt", auth.RequireAdmin(handlers.GetSystemPrompt)).Methods(http.MethodGet)
	v1.HandleFunc("/admin/system-prompt", auth.RequireAdmin(handlers.PutSystemPrompt)).Methods(http.MethodPut)
	v1.HandleFunc("/admin/stats", auth.RequireAdmin(handlers.Stats)).Methods(http.MethodGet)
	v1.HandleFunc("/admin/health", auth.RequireAdmin(handlers.Health)).Methods(http.MethodGet)
	v1.HandleFunc("/admin/conversations", auth.RequireAdmin(handlers.ListConversations)).Methods(http.MethodGet)
	v1.HandleFunc("/admin/conversations/{userID}", auth.RequireAdmin(handlers.DeleteConversationHandler)).Methods(http.MethodDelete)

	r.Use(observeMiddleware)

	var h http.Handler = r
	h = bodyLimitMiddleware(h, opts.MaxBodyBytes)
	if opts.Gateway != nil {
		h = opts.Gateway.Middleware(h)
	}
	return h
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// observeMiddleware runs inside the mux so the matched route template is
// available as a low-cardinality metric label.
func observeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		metrics.RequestsTotal.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		logger.Debug("http_request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
		)
	})
}

func bodyLimitMiddleware(next http.Handler, maxBody int64) http.Handler {
	if maxBody <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxBody)
		}
		next.ServeHTTP(w, r)
	})
}
