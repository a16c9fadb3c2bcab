package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/items-api/internal/model"
	"github.com/vyrodovalexey/items-api/internal/store"
)

// DefaultMaxBodyBytes limits request bodies when no limit is configured.
const DefaultMaxBodyBytes int64 = 1 << 20

// Error details returned to clients.
const (
	DetailItemNotFound     = "Item not found"
	DetailNotFound         = "Not Found"
	DetailMethodNotAllowed = "Method Not Allowed"
	DetailInternalError    = "Internal Server Error"
	DetailBodyTooLarge     = "Request body too large"
	DetailInvalidBody      = "Invalid request body"
)

// ItemService is the set of item use cases served over HTTP.
type ItemService interface {
	Health() model.HealthStatus
	CreateItem(ctx context.Context, in model.ItemCreate) (*model.Item, error)
	GetItem(ctx context.Context, id int64) (*model.Item, error)
	ListItems(ctx context.Context, params model.ListParams) ([]model.Item, error)
}

// RESTHandler handles REST API requests for items.
type RESTHandler struct {
	service      ItemService
	logger       *zap.Logger
	maxBodyBytes int64
}

// NewRESTHandler creates a new RESTHandler instance.
// A non-positive maxBodyBytes selects DefaultMaxBodyBytes.
func NewRESTHandler(svc ItemService, logger *zap.Logger, maxBodyBytes int64) *RESTHandler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}
	return &RESTHandler{
		service:      svc,
		logger:       logger,
		maxBodyBytes: maxBodyBytes,
	}
}

// RegisterRoutes registers the REST API routes with the router.
// The collection is served both with and without a trailing slash.
func (h *RESTHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/", h.HealthCheck).Methods(http.MethodGet)
	router.HandleFunc("/items/", h.ListItems).Methods(http.MethodGet)
	router.HandleFunc("/items", h.ListItems).Methods(http.MethodGet)
	router.HandleFunc("/items/", h.CreateItem).Methods(http.MethodPost)
	router.HandleFunc("/items", h.CreateItem).Methods(http.MethodPost)
	router.HandleFunc("/items/{"+model.ItemIDParam+"}", h.GetItem).Methods(http.MethodGet)
}

// RegisterProbeRoutes registers liveness and readiness routes.
func (h *RESTHandler) RegisterProbeRoutes(router *mux.Router) {
	router.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	router.HandleFunc("/ready", h.ReadyCheck).Methods(http.MethodGet)
}

// HealthCheck handles GET / requests.
func (h *RESTHandler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, h.service.Health())
}

// ReadyCheck handles GET /ready requests.
func (h *RESTHandler) ReadyCheck(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, ReadyResponse{Status: "ready"})
}

// ListItems handles GET /items/ requests.
func (h *RESTHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	params, err := model.ParseListParams(r.URL.Query())
	if err != nil {
		h.handleError(w, err, "list items")
		return
	}

	items, err := h.service.ListItems(r.Context(), params)
	if err != nil {
		h.handleError(w, err, "list items")
		return
	}

	h.writeJSON(w, http.StatusOK, items)
}

// GetItem handles GET /items/{item_id} requests.
func (h *RESTHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	id, err := model.ParseItemID(mux.Vars(r)[model.ItemIDParam])
	if err != nil {
		h.handleError(w, err, "get item")
		return
	}

	item, err := h.service.GetItem(r.Context(), id)
	if err != nil {
		h.handleError(w, err, "get item")
		return
	}

	h.writeJSON(w, http.StatusOK, item)
}

// CreateItem handles POST /items/ requests.
func (h *RESTHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, http.StatusRequestEntityTooLarge, DetailBodyTooLarge)
			return
		}
		h.logger.Warn("failed to read request body", zap.Error(err))
		h.writeError(w, http.StatusBadRequest, DetailInvalidBody)
		return
	}

	input, err := model.DecodeItemCreate(body)
	if err != nil {
		h.handleError(w, err, "create item")
		return
	}

	item, err := h.service.CreateItem(r.Context(), input)
	if err != nil {
		h.handleError(w, err, "create item")
		return
	}

	h.writeJSON(w, http.StatusCreated, item)
}

// handleError maps domain errors to HTTP responses.
func (h *RESTHandler) handleError(w http.ResponseWriter, err error, operation string) {
	var verr *model.ValidationError
	switch {
	case errors.As(err, &verr):
		h.logger.Debug("validation failed", zap.String("operation", operation), zap.Error(err))
		h.writeJSON(w, http.StatusUnprocessableEntity, model.ValidationErrorResponse{Detail: verr.Errors})
	case errors.Is(err, store.ErrNotFound):
		h.writeError(w, http.StatusNotFound, DetailItemNotFound)
	default:
		h.logger.Error("operation failed", zap.String("operation", operation), zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, DetailInternalError)
	}
}

// writeJSON writes a JSON response with the given status code.
func (h *RESTHandler) writeJSON(w http.ResponseWriter, status int, data any) {
	if err := WriteJSON(w, status, data); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}

// writeError writes an error response with the given status code and detail.
func (h *RESTHandler) writeError(w http.ResponseWriter, status int, detail string) {
	h.writeJSON(w, status, model.ErrorResponse{Detail: detail})
}

// WriteJSON writes data as a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data == nil {
		return nil
	}

	return json.NewEncoder(w).Encode(data)
}

// NotFoundHandler returns a handler that writes a JSON 404 response.
func NotFoundHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = WriteJSON(w, http.StatusNotFound, model.ErrorResponse{Detail: DetailNotFound})
	})
}

// MethodNotAllowedHandler returns a handler that writes a JSON 405 response.
func MethodNotAllowedHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = WriteJSON(w, http.StatusMethodNotAllowed, model.ErrorResponse{Detail: DetailMethodNotAllowed})
	})
}
