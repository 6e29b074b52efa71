package analyses

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"portfolio-backend/internal/shared/server/middleware"
	"portfolio-backend/internal/shared/server/respond"
)

const sseKeepAlive = 15 * time.Second

// Handler wires HTTP handlers to the analyses service.
type Handler struct {
	Svc   *Service
	polls *pollLimiter
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc, polls: newPollLimiter(pollLimitWindow, nil)}
}

// RegisterRoutes attaches analysis routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/companies/:company/analyses", h.startAnalysis)
	rg.GET("/companies/:company/analyses/latest", h.latest)
	rg.GET("/analyses/:id", h.getAnalysis)
	rg.GET("/analyses/:id/events", h.streamEvents)
	rg.POST("/analyses/:id/cancel", h.cancel)
}

func (h *Handler) startAnalysis(c *gin.Context) {
	company := strings.TrimSpace(c.Param("company"))
	c.Set(middleware.CompanyIDKey, company)

	job, err := h.Svc.Start(c.Request.Context(), company)
	if err != nil {
		respond.FromError(c, err, "failed to start analysis")
		return
	}
	c.Set(middleware.JobIDKey, job.ID)
	respond.JSON(c, http.StatusAccepted, gin.H{
		"jobId":  job.ID,
		"status": job.Status,
	})
}

func (h *Handler) getAnalysis(c *gin.Context) {
	jobID := c.Param("id")
	c.Set(middleware.JobIDKey, jobID)
	if !h.polls.Allow(c.ClientIP(), jobID) {
		retry := h.polls.RetryAfterMs()
		c.Header("Retry-After", "1")
		respond.Error(c, http.StatusTooManyRequests, "rate_limited", "polling too fast", gin.H{
			"retryAfterMs": retry,
		})
		return
	}

	job, err := h.Svc.Get(c.Request.Context(), jobID)
	if err != nil {
		respond.FromError(c, err, "failed to fetch analysis")
		return
	}
	respond.OK(c, job)
}

func (h *Handler) latest(c *gin.Context) {
	company := strings.TrimSpace(c.Param("company"))
	c.Set(middleware.CompanyIDKey, company)

	job, err := h.Svc.Latest(c.Request.Context(), company)
	if err != nil {
		respond.FromError(c, err, "failed to fetch analysis")
		return
	}
	c.Set(middleware.JobIDKey, job.ID)
	respond.OK(c, job)
}

func (h *Handler) cancel(c *gin.Context) {
	jobID := c.Param("id")
	c.Set(middleware.JobIDKey, jobID)

	job, err := h.Svc.Cancel(c.Request.Context(), jobID)
	if err != nil {
		respond.FromError(c, err, "failed to cancel analysis")
		return
	}
	respond.OK(c, gin.H{
		"jobId":                 job.ID,
		"status":                job.Status,
		"cancellationRequested": job.CancellationRequested,
	})
}

// streamEvents pushes job snapshots as server-sent events until the job is terminal or the
// client goes away.
func (h *Handler) streamEvents(c *gin.Context) {
	jobID := c.Param("id")
	c.Set(middleware.JobIDKey, jobID)
	ctx := c.Request.Context()

	updates, unsubscribe, err := h.Svc.Subscribe(ctx, jobID)
	if err != nil {
		respond.FromError(c, err, "failed to subscribe to analysis")
		return
	}
	defer unsubscribe()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ticker := time.NewTicker(sseKeepAlive)
	defer ticker.Stop()
	c.Stream(func(w io.Writer) bool {
		select {
		case job, ok := <-updates:
			if !ok {
				return false
			}
			c.SSEvent("progress", job)
			return !job.Status.Terminal()
		case <-ticker.C:
			c.SSEvent("ping", gin.H{"at": time.Now().UTC()})
			return true
		case <-ctx.Done():
			return false
		}
	})
}
