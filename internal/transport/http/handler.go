package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/logan-han/sms-otp-burner/internal/app"
	"github.com/logan-han/sms-otp-burner/internal/domain"
)

// routeAllowedMethods is the closed set of API routes with the methods
// each accepts. It drives both route registration and the 405 payload,
// so the two can't drift apart.
var routeAllowedMethods = map[string][]string{
	"leaseNumber":     {http.MethodPost, http.MethodDelete},
	"number":          {http.MethodPost, http.MethodDelete},
	"current-number":  {http.MethodGet},
	"virtual-numbers": {http.MethodGet},
	"messages":        {http.MethodGet},
}

// Handler exposes the number-lifecycle and message operations over HTTP.
type Handler struct {
	numbers  *app.NumberService
	messages *app.MessageService
	logger   *slog.Logger
}

func NewHandler(numbers *app.NumberService, messages *app.MessageService, logger *slog.Logger) *Handler {
	return &Handler{
		numbers:  numbers,
		messages: messages,
		logger:   logger.With("handler", "api"),
	}
}

// RegisterRoutes mounts the API routes. The caller is expected to
// mount this under /api.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.NotFound(h.handleRouteNotFound)
	r.MethodNotAllowed(h.handleMethodNotAllowed)

	for _, route := range []string{"/leaseNumber", "/number"} {
		r.Post(route, h.handleLease)
		r.Delete(route, h.handleRelease)
	}
	r.Get("/current-number", h.handleCurrentNumber)
	r.Get("/virtual-numbers", h.handleAllNumbers)
	r.Get("/messages", h.handleMessages)
}

// apiPath recovers the route segment relative to the /api mount.
func apiPath(r *http.Request) string {
	p := strings.TrimPrefix(r.URL.Path, "/api")
	return strings.TrimPrefix(p, "/")
}

func (h *Handler) handleRouteNotFound(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusNotFound, errorResponse{
		Message: fmt.Sprintf("Route not found: %s /api/%s", r.Method, apiPath(r)),
	})
}

func (h *Handler) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	path := apiPath(r)
	h.writeJSON(w, http.StatusMethodNotAllowed, errorResponse{
		Message:        fmt.Sprintf("Method %s not allowed for /api/%s", r.Method, path),
		AllowedMethods: routeAllowedMethods[path],
	})
}

func (h *Handler) handleLease(w http.ResponseWriter, r *http.Request) {
	result, err := h.numbers.Lease(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Lease failed", "error", err)
		h.writeProviderFailure(w, err, "Failed to lease numbers")
		return
	}
	h.writeJSON(w, http.StatusOK, leaseResponse{
		Message:        result.Message,
		VirtualNumbers: toNumberDTOs(result.VirtualNumbers, false),
		LeasedCount:    result.LeasedCount,
		MaxCount:       result.MaxCount,
	})
}

func (h *Handler) handleRelease(w http.ResponseWriter, r *http.Request) {
	var req releaseRequest
	hasBody := false
	if r.Body != nil {
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			h.writeJSON(w, http.StatusBadRequest, errorResponse{Message: "Invalid JSON in request body"})
			return
		}
		if len(bytes.TrimSpace(raw)) > 0 {
			hasBody = true
			if err := json.Unmarshal(raw, &req); err != nil {
				h.writeJSON(w, http.StatusBadRequest, errorResponse{Message: "Invalid JSON in request body"})
				return
			}
		}
	}

	number := req.resolve()
	if hasBody && number == "" {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Message: "Missing virtual number to release"})
		return
	}

	message, err := h.numbers.Release(r.Context(), number)
	switch {
	case errors.Is(err, domain.ErrNoActiveNumbers):
		h.writeJSON(w, http.StatusNotFound, errorResponse{Message: "No active numbers found to release for this session"})
	case errors.Is(err, domain.ErrNumberMismatch):
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Message: "Requested number does not match any current leased numbers"})
	case err != nil:
		h.logger.ErrorContext(r.Context(), "Release failed", "number", number, "error", err)
		h.writeProviderFailure(w, err, "Failed to release number")
	default:
		h.writeJSON(w, http.StatusOK, map[string]string{"message": message})
	}
}

func (h *Handler) handleCurrentNumber(w http.ResponseWriter, r *http.Request) {
	numbers, err := h.numbers.Current(r.Context())
	switch {
	case errors.Is(err, domain.ErrNoActiveNumbers):
		h.writeJSON(w, http.StatusNotFound, errorResponse{Message: "No active numbers leased"})
	case err != nil:
		h.logger.ErrorContext(r.Context(), "Current-number lookup failed", "error", err)
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{
			Message: "Failed to check for active numbers with Telstra",
			Error:   err.Error(),
		})
	default:
		h.writeJSON(w, http.StatusOK, numbersResponse{VirtualNumbers: toNumberDTOs(numbers, false)})
	}
}

func (h *Handler) handleAllNumbers(w http.ResponseWriter, r *http.Request) {
	numbers := h.numbers.All(r.Context())
	h.writeJSON(w, http.StatusOK, numbersResponse{VirtualNumbers: toNumberDTOs(numbers, true)})
}

func (h *Handler) handleMessages(w http.ResponseWriter, r *http.Request) {
	inbox, err := h.messages.Fetch(r.Context())
	switch {
	case errors.Is(err, domain.ErrNoActiveNumbers):
		h.writeJSON(w, http.StatusNotFound, errorResponse{Message: "No active numbers to fetch messages for. Try leasing a number first."})
	case err != nil:
		h.logger.ErrorContext(r.Context(), "Message fetch failed", "error", err)
		h.writeProviderFailure(w, err, "Failed to fetch messages")
	default:
		h.writeJSON(w, http.StatusOK, messagesResponse{
			Messages:      toMessageDTOs(inbox.Messages),
			ActiveNumbers: inbox.ActiveNumbers,
		})
	}
}

// writeProviderFailure maps a provider/auth failure onto the response:
// the provider's own error status is echoed when it is a 4xx/5xx,
// anything else (auth failures, transport errors) becomes a 500.
func (h *Handler) writeProviderFailure(w http.ResponseWriter, err error, message string) {
	status := http.StatusInternalServerError
	var detail any = err.Error()

	var perr *domain.ProviderError
	if errors.As(err, &perr) {
		if perr.StatusCode >= 400 {
			status = perr.StatusCode
		}
		if len(perr.Body) > 0 {
			detail = json.RawMessage(perr.Body)
		}
	}
	h.writeJSON(w, status, errorResponse{Message: message, Error: detail})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("Failed to encode response", "error", err)
	}
}
