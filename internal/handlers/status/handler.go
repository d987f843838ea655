package status

import (
	"net/http"

	"github.com/gorilla/mux"

	"gitlab.com/icecc-go.net/internal/core/ports/primary"
	"gitlab.com/icecc-go.net/internal/core/ports/secondary"
	"gitlab.com/icecc-go.net/internal/handlers/response"
)

// SchedulerResponse is the body of GET /scheduler.
type SchedulerResponse struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// Handler serves the daemon's status endpoints.
type Handler struct {
	locator secondary.SchedulerLocator
	logger  primary.Logger
}

func NewHandler(locator secondary.SchedulerLocator, logger primary.Logger) *Handler {
	return &Handler{
		locator: locator,
		logger:  logger,
	}
}

// RegisterRoutes registers the status routes
func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)
	router.HandleFunc("/scheduler", h.Scheduler).Methods(http.MethodGet)
}

// Health reports that the daemon is up.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	response.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Scheduler reports the scheduler the daemon currently hands out.
func (h *Handler) Scheduler(w http.ResponseWriter, r *http.Request) {
	addr, found, err := h.locator.Locate(r.Context())
	if err != nil {
		h.logger.Error("Failed to locate scheduler", "error", err)
		response.Error(w, http.StatusBadGateway, "failed to locate scheduler")
		return
	}
	if !found {
		response.Error(w, http.StatusNotFound, "no scheduler known")
		return
	}

	response.JSON(w, http.StatusOK, SchedulerResponse{Host: addr.Host, Port: addr.Port})
}
