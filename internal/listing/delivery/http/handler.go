package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tair/listing-ledger/internal/listing/domain"
	"github.com/tair/listing-ledger/internal/listing/usecase/command"
	"github.com/tair/listing-ledger/internal/listing/usecase/query"
	"github.com/tair/listing-ledger/pkg/auth"
	"github.com/tair/listing-ledger/pkg/logger"
)

// ProductRegistry is the operation surface the HTTP API exposes
type ProductRegistry interface {
	Create(ctx context.Context, caller domain.Principal, l domain.Listing) (uint64, error)
	Read(ctx context.Context, index uint64) (*domain.Product, error)
	Update(ctx context.Context, index uint64, caller domain.Principal, l domain.Listing) (*domain.Product, error)
	Remove(ctx context.Context, index uint64, caller domain.Principal) error
	Buy(ctx context.Context, index uint64, caller domain.Principal, tendered int64) (*command.Receipt, error)
	Counts(ctx context.Context) query.ProductCounts
	List(ctx context.Context, limit, offset int) ([]domain.Product, error)
	Balance(ctx context.Context, principal domain.Principal) (int64, error)
}

// HealthCheck reports whether a dependency is reachable
type HealthCheck func(ctx context.Context) error

// ListingHandler handles HTTP requests for the product registry
type ListingHandler struct {
	registry ProductRegistry
	tokens   *auth.Manager

	requestCounter  *prometheus.CounterVec
	requestLatency  *prometheus.HistogramVec
	requestSummary  *prometheus.SummaryVec
	purchaseCounter *prometheus.CounterVec
	totalProducts   prometheus.Gauge
	liveProducts    prometheus.Gauge
}

// NewListingHandler creates a new listing handler. Metrics are registered on
// reg, or on the default registry when reg is nil.
func NewListingHandler(registry ProductRegistry, tokens *auth.Manager, reg prometheus.Registerer) *ListingHandler {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	requestCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listing_service_requests_total",
			Help: "Total number of requests to listing service",
		},
		[]string{"method", "endpoint", "status"},
	)

	requestLatency := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "listing_service_request_duration_seconds",
			Help:    "Duration of listing service requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Summary metric for percentile calculation (p50, p90, p95, p99)
	requestSummary := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name: "listing_service_request_duration_summary",
			Help: "Summary of request durations with percentiles (client-side quantiles)",
			Objectives: map[float64]float64{
				0.5:  0.05,
				0.9:  0.01,
				0.95: 0.01,
				0.99: 0.001,
			},
			MaxAge: 10 * time.Minute,
		},
		[]string{"method", "endpoint"},
	)

	purchaseCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listing_service_purchases_total",
			Help: "Purchase attempts by outcome",
		},
		[]string{"outcome"},
	)

	totalProducts := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "listing_service_products_created",
			Help: "Number of products ever created, removed ones included",
		},
	)

	liveProducts := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "listing_service_products_live",
			Help: "Number of products that are not removed",
		},
	)

	reg.MustRegister(requestCounter, requestLatency, requestSummary, purchaseCounter, totalProducts, liveProducts)

	return &ListingHandler{
		registry:        registry,
		tokens:          tokens,
		requestCounter:  requestCounter,
		requestLatency:  requestLatency,
		requestSummary:  requestSummary,
		purchaseCounter: purchaseCounter,
		totalProducts:   totalProducts,
		liveProducts:    liveProducts,
	}
}

// Response is the envelope of every JSON reply
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ListingRequest is the body of create and update
type ListingRequest struct {
	Name        string `json:"name"`
	ImageRef    string `json:"image_ref"`
	Description string `json:"description"`
	Location    string `json:"location"`
	Price       int64  `json:"price"`
}

func (r ListingRequest) listing() domain.Listing {
	return domain.Listing{
		Name:        r.Name,
		ImageRef:    r.ImageRef,
		Description: r.Description,
		Location:    r.Location,
		Price:       r.Price,
	}
}

// BuyRequest is the body of a purchase
type BuyRequest struct {
	Tendered int64 `json:"tendered"`
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// metricsMiddleware wraps handlers with Prometheus metrics
func (h *ListingHandler) metricsMiddleware(endpoint string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()

		h.requestCounter.WithLabelValues(r.Method, endpoint, strconv.Itoa(rw.statusCode)).Inc()
		h.requestLatency.WithLabelValues(r.Method, endpoint).Observe(duration)
		h.requestSummary.WithLabelValues(r.Method, endpoint).Observe(duration)
	}
}

func (h *ListingHandler) RegisterRoutes(router *mux.Router) {
	authed := AuthMiddleware(h.tokens)

	// Public routes (no auth required)
	router.HandleFunc("/api/products", h.metricsMiddleware("/api/products", h.ListProducts)).Methods("GET")
	router.HandleFunc("/api/products/count", h.metricsMiddleware("/api/products/count", h.CountProducts)).Methods("GET")
	router.HandleFunc("/api/products/{index:[0-9]+}", h.metricsMiddleware("/api/products/{index}", h.GetProduct)).Methods("GET")
	router.HandleFunc("/api/balances/{principal}", h.metricsMiddleware("/api/balances/{principal}", h.GetBalance)).Methods("GET")

	// Caller routes (bearer token required)
	router.HandleFunc("/api/products", h.metricsMiddleware("/api/products", authed(h.CreateProduct))).Methods("POST")
	router.HandleFunc("/api/products/{index:[0-9]+}", h.metricsMiddleware("/api/products/{index}", authed(h.UpdateProduct))).Methods("PUT")
	router.HandleFunc("/api/products/{index:[0-9]+}", h.metricsMiddleware("/api/products/{index}", authed(h.RemoveProduct))).Methods("DELETE")
	router.HandleFunc("/api/products/{index:[0-9]+}/buy", h.metricsMiddleware("/api/products/{index}/buy", authed(h.BuyProduct))).Methods("POST")
}

// CreateProduct handles POST /api/products
func (h *ListingHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req ListingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	index, err := h.registry.Create(r.Context(), PrincipalFromContext(r.Context()), req.listing())
	if err != nil {
		h.respondFailure(w, r, err, "Failed to create product")
		return
	}

	h.updateProductsMetric(r.Context())

	respondJSON(w, http.StatusCreated, Response{
		Success: true,
		Message: "Product created successfully",
		Data:    map[string]uint64{"index": index},
	})
}

// ListProducts handles GET /api/products
func (h *ListingHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if limit <= 0 {
		limit = query.DefaultListLimit
	}

	products, err := h.registry.List(r.Context(), limit, offset)
	if err != nil {
		logger.Error(r.Context()).Err(err).Msg("Failed to list products")
		respondError(w, http.StatusInternalServerError, "Failed to list products")
		return
	}

	counts := h.registry.Counts(r.Context())

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Data: map[string]interface{}{
			"products": products,
			"count":    counts.Total,
			"live":     counts.Live,
			"limit":    limit,
			"offset":   offset,
		},
	})
}

// CountProducts handles GET /api/products/count
func (h *ListingHandler) CountProducts(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    h.registry.Counts(r.Context()),
	})
}

// GetProduct handles GET /api/products/{index}
func (h *ListingHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	index, ok := indexParam(w, r)
	if !ok {
		return
	}

	product, err := h.registry.Read(r.Context(), index)
	if err != nil {
		h.respondFailure(w, r, err, "Failed to read product")
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    product,
	})
}

// UpdateProduct handles PUT /api/products/{index}
func (h *ListingHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	index, ok := indexParam(w, r)
	if !ok {
		return
	}

	var req ListingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	product, err := h.registry.Update(r.Context(), index, PrincipalFromContext(r.Context()), req.listing())
	if err != nil {
		h.respondFailure(w, r, err, "Failed to update product")
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Product updated successfully",
		Data:    product,
	})
}

// RemoveProduct handles DELETE /api/products/{index}
func (h *ListingHandler) RemoveProduct(w http.ResponseWriter, r *http.Request) {
	index, ok := indexParam(w, r)
	if !ok {
		return
	}

	if err := h.registry.Remove(r.Context(), index, PrincipalFromContext(r.Context())); err != nil {
		h.respondFailure(w, r, err, "Failed to remove product")
		return
	}

	h.updateProductsMetric(r.Context())

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Product removed successfully",
	})
}

// BuyProduct handles POST /api/products/{index}/buy
func (h *ListingHandler) BuyProduct(w http.ResponseWriter, r *http.Request) {
	index, ok := indexParam(w, r)
	if !ok {
		return
	}

	var req BuyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	receipt, err := h.registry.Buy(r.Context(), index, PrincipalFromContext(r.Context()), req.Tendered)
	if err != nil {
		h.purchaseCounter.WithLabelValues(purchaseOutcome(err)).Inc()
		h.respondFailure(w, r, err, "Failed to buy product")
		return
	}
	h.purchaseCounter.WithLabelValues("settled").Inc()

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Purchase settled",
		Data:    receipt,
	})
}

// GetBalance handles GET /api/balances/{principal}
func (h *ListingHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	principal := domain.Principal(mux.Vars(r)["principal"])

	balance, err := h.registry.Balance(r.Context(), principal)
	if err != nil {
		h.respondFailure(w, r, err, "Failed to get balance")
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Data: map[string]interface{}{
			"principal": principal,
			"balance":   balance,
		},
	})
}

// RegisterHealthCheck exposes /health. A nil check always reports healthy.
func (h *ListingHandler) RegisterHealthCheck(router *mux.Router, check HealthCheck) {
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(r.Context()); err != nil {
				logger.Warn(r.Context()).Err(err).Msg("Health check failed")
				respondError(w, http.StatusServiceUnavailable, "Ledger unavailable")
				return
			}
		}

		respondJSON(w, http.StatusOK, Response{
			Success: true,
			Message: "Listing service is healthy",
		})
	}).Methods("GET")
}

// StatusFor maps a registry error to its HTTP status
func StatusFor(err error) int {
	switch {
	case domain.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrInsufficientFunds):
		return http.StatusPaymentRequired
	case errors.Is(err, domain.ErrTransferFailed), errors.Is(err, domain.ErrRefundFailed):
		return http.StatusBadGateway
	}

	// a structured ledger failure reaches here only when surfaced verbatim
	if _, ok := domain.AsServiceError(err); ok {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func purchaseOutcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, domain.ErrTransferFailed):
		return "transfer_failed"
	case errors.Is(err, domain.ErrRefundFailed):
		return "refund_failed"
	}
	if _, ok := domain.AsServiceError(err); ok {
		return "service_error"
	}
	return "error"
}

// respondFailure logs err once and writes the mapped status. Internal errors
// are not echoed to the client.
func (h *ListingHandler) respondFailure(w http.ResponseWriter, r *http.Request, err error, msg string) {
	status := StatusFor(err)

	event := logger.Warn(r.Context())
	if status >= http.StatusInternalServerError {
		event = logger.Error(r.Context())
	}
	event.Err(err).Int("status", status).Str("path", r.URL.Path).Msg(msg)

	if status == http.StatusInternalServerError {
		respondError(w, status, msg)
		return
	}
	respondError(w, status, err.Error())
}

func indexParam(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	raw := mux.Vars(r)["index"]
	index, err := strconv.ParseUint(raw, 10, 64)
	if errors.Is(err, strconv.ErrRange) {
		// beyond every index the registry can allocate
		respondError(w, http.StatusNotFound, domain.ErrNotFound.Error()+": index "+raw)
		return 0, false
	}
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid product index")
		return 0, false
	}
	return index, true
}

// updateProductsMetric updates the product gauges
func (h *ListingHandler) updateProductsMetric(ctx context.Context) {
	counts := h.registry.Counts(ctx)
	h.totalProducts.Set(float64(counts.Total))
	h.liveProducts.Set(float64(counts.Live))
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
