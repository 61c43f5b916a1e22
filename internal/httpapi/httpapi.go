package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"superpos/backend/internal/auth"
	"superpos/backend/internal/domain"
	"superpos/backend/internal/logger"
	"superpos/backend/internal/metrics"
	"superpos/backend/internal/service"
	"superpos/backend/internal/store"
)

const maxBodyBytes = 1 << 20

type Options struct {
	AllowedOrigin  string
	RequestTimeout time.Duration
	// TrustProxy takes the client address from X-Forwarded-For or
	// X-Real-IP. Only enable it behind a proxy that overwrites them.
	TrustProxy bool
}

type API struct {
	service      *service.Service
	auth         *auth.Manager
	metrics      *metrics.Recorder
	opts         Options
	loginLimiter *attemptLimiter
	now          func() time.Time
}

func New(svc *service.Service, authManager *auth.Manager, recorder *metrics.Recorder, opts Options) *API {
	if opts.AllowedOrigin == "" {
		opts.AllowedOrigin = "*"
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 15 * time.Second
	}
	return &API{
		service:      svc,
		auth:         authManager,
		metrics:      recorder,
		opts:         opts,
		loginLimiter: newAttemptLimiter(5, time.Minute),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (a *API) Handler() http.Handler {
	r := chi.NewRouter()
	if a.opts.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(middleware.RequestID)
	r.Use(a.recoverer)
	r.Use(a.accessLog)
	r.Use(securityHeaders)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: strings.Split(a.opts.AllowedOrigin, ","),
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))
	r.Use(middleware.Timeout(a.opts.RequestTimeout))
	r.Use(limitBody)

	r.Get("/healthz", a.handleHealth)
	r.Method(http.MethodGet, "/metrics", a.metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", a.handleLogin)
		r.Post("/auth/refresh", a.handleRefresh)

		r.Group(func(r chi.Router) {
			r.Use(a.requireAuth())

			r.Get("/products", a.handleListProducts)
			r.Get("/products/search", a.handleProductBySKU)
			r.Get("/products/low-stock", a.handleLowStock)
			r.Get("/products/{id}", a.handleGetProduct)

			r.Post("/transactions/new", a.handlePostTransaction)
			r.Get("/transactions", a.handleListTransactions)
			r.Get("/transactions/{id}", a.handleGetTransaction)
			r.Get("/transactions/{id}/receipt", a.handleReceipt)
			r.Get("/transactions/{id}/receipt/escpos", a.handleEscposReceipt)

			r.Get("/reports/sales", a.handleSalesReport)
			r.Get("/reports/top-products", a.handleTopProducts)
			r.Get("/reports/cashier-performance", a.handleCashierPerformance)
			r.Get("/reports/export-sales", a.handleExportSales)
		})

		r.Group(func(r chi.Router) {
			r.Use(a.requireAuth(domain.RoleAdmin))

			r.Post("/products/create", a.handleCreateProduct)
			r.Put("/products/{id}", a.handleUpdateProduct)
			r.Delete("/products/{id}", a.handleDeleteProduct)
			r.Put("/products/{id}/inventory", a.handleUpdateInventory)
			r.Get("/products/{id}/price-history", a.handlePriceHistory)
			r.Get("/products/{id}/stock-adjustments", a.handleStockAdjustments)

			r.Get("/employees", a.handleListEmployees)
			r.Post("/employees", a.handleCreateEmployee)
			r.Delete("/employees/{id}", a.handleDeleteEmployee)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, errors.New("resource not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeMethodNotAllowed(w)
	})
	return r
}

// requireAuth resolves the bearer token into an identity. With roles given,
// callers holding any other role get 403.
func (a *API) requireAuth(roles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authorization := strings.TrimSpace(r.Header.Get("Authorization"))
			if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
				writeError(w, http.StatusUnauthorized, errors.New("authentication credentials were not provided"))
				return
			}

			token := strings.TrimSpace(authorization[len("Bearer "):])
			identity, err := a.auth.ParseAccessToken(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, err)
				return
			}

			if len(roles) > 0 && !isRoleAllowed(identity.Role, roles) {
				writeError(w, http.StatusForbidden, service.ErrForbidden)
				return
			}

			next.ServeHTTP(w, r.WithContext(service.WithActor(r.Context(), identity)))
		})
	}
}

func isRoleAllowed(role domain.Role, allowed []domain.Role) bool {
	for _, allow := range allowed {
		if role == allow {
			return true
		}
	}
	return false
}

func (a *API) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": a.now().Format(time.RFC3339),
	})
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return store.NewValidationError("body", "invalid JSON payload: "+err.Error())
	}
	return nil
}

func parsePositiveLimit(raw string, fallback int, max int) int {
	limit := fallback
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" {
		if parsed, err := strconv.Atoi(trimmed); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if max > 0 && limit > max {
		return max
	}
	return limit
}

// parsePage returns the 1-based page, the limit and the derived offset.
func parsePage(r *http.Request, fallback, max int) (int, int, int) {
	page := parsePositiveLimit(r.URL.Query().Get("page"), 1, 0)
	limit := parsePositiveLimit(r.URL.Query().Get("limit"), fallback, max)
	return page, limit, (page - 1) * limit
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id < 1 {
		return 0, store.NewValidationError(name, "must be a positive integer")
	}
	return id, nil
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

// writeServiceError maps an error kind to its status and body.
func writeServiceError(w http.ResponseWriter, err error) {
	var (
		verr     *store.ValidationError
		stockErr *store.StockError
		cashErr  *store.CashError
		nfErr    *store.NotFoundError
	)
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"message": "validation failed",
			"errors":  verr.Fields,
		})
	case errors.As(err, &stockErr):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success":    false,
			"message":    stockErr.Error(),
			"product_id": stockErr.ProductID,
			"requested":  stockErr.Requested,
			"available":  stockErr.Available,
		})
	case errors.As(err, &cashErr):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success":       false,
			"message":       cashErr.Error(),
			"total_amount":  cashErr.Total.StringFixed(2),
			"cash_received": cashErr.Received.StringFixed(2),
		})
	case errors.As(err, &nfErr):
		body := map[string]any{"success": false, "message": nfErr.Error()}
		if nfErr.Entity == "product" && nfErr.ID != 0 {
			body["product_id"] = nfErr.ID
		}
		writeJSON(w, http.StatusNotFound, body)
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, err)
	case errors.Is(err, service.ErrUnauthenticated),
		errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInactiveAccount),
		errors.Is(err, auth.ErrInvalidToken):
		writeError(w, http.StatusUnauthorized, err)
	case errors.Is(err, auth.ErrMissingCredentials):
		writeError(w, http.StatusBadRequest, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	msg := err.Error()
	if status >= 500 {
		logger.Error("internal error", "status", status, "error", err)
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{
		"success": false,
		"message": msg,
	})
}

// writeOK adds success:true to fields.
func writeOK(w http.ResponseWriter, status int, fields map[string]any) {
	fields["success"] = true
	writeJSON(w, status, fields)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
