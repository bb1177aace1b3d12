package http

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Shayennn/ptm-noti/internal/repository"
	"github.com/Shayennn/ptm-noti/internal/state"
)

// RunStatus tracks the outcome of the most recent poll cycle for the
// status endpoint. It is the only value shared between the scheduler
// goroutine and the HTTP server.
type RunStatus struct {
	mu      sync.Mutex
	lastRun time.Time
	lastErr string
}

// Record stores the outcome of a completed run.
func (rs *RunStatus) Record(runTime time.Time, err error) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.lastRun = runTime
	if err != nil {
		rs.lastErr = err.Error()
	} else {
		rs.lastErr = ""
	}
}

func (rs *RunStatus) snapshot() (time.Time, string) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.lastRun, rs.lastErr
}

// Handler serves the read-only status API in daemon mode.
type Handler struct {
	store   *state.Store
	archive *repository.TicketRepository
	status  *RunStatus
	log     zerolog.Logger
}

func NewHandler(store *state.Store, archive *repository.TicketRepository, status *RunStatus, log zerolog.Logger) *Handler {
	return &Handler{
		store:   store,
		archive: archive,
		status:  status,
		log:     log,
	}
}

// NewRouter builds a gin engine with CORS and the handler's routes.
func NewRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.Default())
	h.Register(r)
	return r
}

func (h *Handler) Register(r *gin.Engine) {
	r.GET("/healthz", h.healthz)

	api := r.Group("/api/v1")
	{
		api.GET("/status", h.getStatus)
		api.GET("/tickets", h.listTickets)
	}
}

func (h *Handler) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) getStatus(c *gin.Context) {
	st := h.store.Load()
	lastRun, lastErr := h.status.snapshot()

	resp := gin.H{
		"processed_tickets": len(st.ProcessedTickets),
		"token_cached":      st.AccessToken != "",
	}
	if st.ExpiresAt != nil {
		resp["token_expires_at"] = st.ExpiresAt
	}
	if !lastRun.IsZero() {
		resp["last_run"] = lastRun
	}
	if lastErr != "" {
		resp["last_error"] = lastErr
	}

	c.JSON(http.StatusOK, successResponse(resp))
}

func (h *Handler) listTickets(c *gin.Context) {
	if h.archive == nil {
		// No archive configured: fall back to the bare processed
		// ticket numbers from the state file.
		st := h.store.Load()
		c.JSON(http.StatusOK, successResponse(st.ProcessedTickets))
		return
	}

	limit := 50
	if l := c.Query("limit"); l != "" {
		if parsed, err := parseInt(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	offset := 0
	if o := c.Query("offset"); o != "" {
		if parsed, err := parseInt(o); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	rows, err := h.archive.ListProcessed(c.Request.Context(), limit, offset)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list archived tickets")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
		return
	}

	c.JSON(http.StatusOK, successResponse(rows))
}

func successResponse(data interface{}) gin.H {
	return gin.H{
		"data": data,
	}
}

func errorResponse(message string) gin.H {
	return gin.H{
		"error": message,
	}
}

func parseInt(s string) (int, error) {
	return strconv.Atoi(s)
}
