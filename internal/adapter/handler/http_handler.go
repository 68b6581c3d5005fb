package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/rl1809/inventory/internal/core/domain"
	"github.com/rl1809/inventory/internal/core/service"
	"github.com/rl1809/inventory/internal/platform/observability"
	"github.com/rl1809/inventory/internal/port"
)

const (
	defaultEventLimit = 50
	maxEventLimit     = 500
)

type HTTPHandler struct {
	inventory *service.InventoryService
	audit     port.DatabaseRepository
	logger    *zap.Logger
}

type SellHTTPRequest struct {
	RequestID string `json:"request_id"`
	ProductID int64  `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type BulkPriceUpdateHTTPResponse struct {
	UpdatedCount int `json:"updatedCount"`
}

type SoldUnitsHTTPResponse struct {
	ProductID int64 `json:"product_id"`
	SoldUnits int64 `json:"sold_units"`
}

type ErrorHTTPResponse struct {
	Error  string              `json:"error,omitempty"`
	Errors []string            `json:"errors,omitempty"`
	Fields []domain.FieldError `json:"fields,omitempty"`
}

// NewHTTPHandler wires the inventory service to HTTP. audit may be nil, in
// which case the events endpoint answers 503.
func NewHTTPHandler(inventory *service.InventoryService, audit port.DatabaseRepository, logger *zap.Logger) *HTTPHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPHandler{inventory: inventory, audit: audit, logger: logger}
}

func (h *HTTPHandler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.requestLogger)
	r.Use(observability.HTTPMiddleware)

	r.Get("/health", h.HealthCheck)
	r.Method(http.MethodGet, "/metrics", observability.MetricsHandler())

	r.Route("/api/products", func(r chi.Router) {
		r.Post("/", h.CreateProduct)
		r.Get("/", h.ListProducts)
		r.Get("/search", h.SearchProducts)
		r.Get("/summary", h.Summary)
		r.Get("/categories", h.Categories)
		r.Post("/sell", h.SellProduct)
		r.Put("/bulk-price-update", h.BulkUpdatePrice)
		r.Get("/{id}", h.GetProduct)
		r.Delete("/{id}", h.DeleteProduct)
		r.Get("/{id}/events", h.ListEvents)
		r.Get("/{id}/sales", h.SoldUnits)
	})

	return r
}

func (h *HTTPHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var in domain.ProductInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorHTTPResponse{Error: "invalid request body"})
		return
	}

	p, err := h.inventory.CreateProduct(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/products/"+strconv.FormatInt(p.ID, 10))
	writeJSON(w, http.StatusCreated, p)
}

func (h *HTTPHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	sortBy, ok := domain.ParseSortField(q.Get("sort"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, ErrorHTTPResponse{Error: "unknown sort field"})
		return
	}

	opts := domain.ListOptions{
		Category:   domain.Category(q.Get("category")),
		SortBy:     sortBy,
		Descending: q.Get("order") == "desc",
	}
	writeJSON(w, http.StatusOK, nonNil(h.inventory.ListProducts(r.Context(), opts)))
}

func (h *HTTPHandler) SearchProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.inventory.SearchProducts(r.Context(), r.URL.Query().Get("keyword"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(products))
}

func (h *HTTPHandler) Summary(w http.ResponseWriter, r *http.Request) {
	category := domain.Category(r.URL.Query().Get("category"))
	writeJSON(w, http.StatusOK, h.inventory.Summary(r.Context(), category))
}

func (h *HTTPHandler) Categories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.inventory.Categories())
}

func (h *HTTPHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}

	p, err := h.inventory.GetProduct(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *HTTPHandler) SellProduct(w http.ResponseWriter, r *http.Request) {
	var req SellHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorHTTPResponse{Error: "invalid request body"})
		return
	}

	var (
		p   domain.Product
		err error
	)
	if req.RequestID != "" {
		p, err = h.inventory.SellProductOnce(r.Context(), req.RequestID, req.ProductID, req.Quantity)
	} else {
		p, err = h.inventory.SellProduct(r.Context(), req.ProductID, req.Quantity)
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

func (h *HTTPHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}

	if err := h.inventory.DeleteProduct(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) BulkUpdatePrice(w http.ResponseWriter, r *http.Request) {
	var updates []domain.PriceUpdate
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorHTTPResponse{Error: "invalid request body"})
		return
	}

	n := h.inventory.BulkUpdatePrice(r.Context(), updates)
	writeJSON(w, http.StatusOK, BulkPriceUpdateHTTPResponse{UpdatedCount: n})
}

func (h *HTTPHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	if h.audit == nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorHTTPResponse{Error: "audit log not configured"})
		return
	}

	id, ok := productID(w, r)
	if !ok {
		return
	}

	limit := defaultEventLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, ErrorHTTPResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = min(n, maxEventLimit)
	}

	events, err := h.audit.ListEvents(r.Context(), id, limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if events == nil {
		events = []domain.InventoryEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (h *HTTPHandler) SoldUnits(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}

	n, err := h.inventory.SoldUnits(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SoldUnitsHTTPResponse{ProductID: id, SoldUnits: n})
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, ErrorHTTPResponse{Errors: verr.Messages(), Fields: verr.Errors})
		return
	}

	status := httpStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		message = "internal error"
	}
	writeJSON(w, status, ErrorHTTPResponse{Error: message})
}

func httpStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInsufficientStock), errors.Is(err, domain.ErrDuplicateRequest):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (h *HTTPHandler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		h.logger.Info("http request",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func productID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorHTTPResponse{Error: "invalid product id"})
		return 0, false
	}
	return id, true
}

func nonNil(products []domain.Product) []domain.Product {
	if products == nil {
		return []domain.Product{}
	}
	return products
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
