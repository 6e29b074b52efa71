package features

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"portfolio-backend/internal/shared/server/middleware"
	"portfolio-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the features service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches feature tagging routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/software/:id/features", h.listTags)
	rg.GET("/software/:id/features/preview", h.preview)
	rg.POST("/software/:id/features", h.addManual)
	rg.DELETE("/software/:id/features/:name", h.remove)
	rg.POST("/companies/:company/features/extract", h.extractForCompany)
}

func (h *Handler) preview(c *gin.Context) {
	tags, err := h.Svc.Preview(c.Request.Context(), c.Param("id"))
	if err != nil {
		respond.FromError(c, err, "failed to preview features")
		return
	}
	respond.OK(c, gin.H{
		"softwareId": c.Param("id"),
		"features":   tags,
	})
}

func (h *Handler) listTags(c *gin.Context) {
	tags, err := h.Svc.ListTags(c.Request.Context(), c.Param("id"))
	if err != nil {
		respond.FromError(c, err, "failed to list features")
		return
	}
	respond.OK(c, gin.H{
		"softwareId": c.Param("id"),
		"features":   tags,
	})
}

type addManualRequest struct {
	FeatureName string `json:"featureName"`
}

func (h *Handler) addManual(c *gin.Context) {
	var req addManualRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	tag, err := h.Svc.AddManual(c.Request.Context(), c.Param("id"), req.FeatureName)
	if err != nil {
		respond.FromError(c, err, "failed to add feature")
		return
	}
	respond.JSON(c, http.StatusCreated, tag)
}

func (h *Handler) remove(c *gin.Context) {
	if err := h.Svc.Remove(c.Request.Context(), c.Param("id"), c.Param("name")); err != nil {
		respond.FromError(c, err, "failed to remove feature")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) extractForCompany(c *gin.Context) {
	var opts Options
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&opts); err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
			return
		}
	}
	company := strings.TrimSpace(c.Param("company"))
	c.Set(middleware.CompanyIDKey, company)

	summary, err := h.Svc.ExtractForCompany(c.Request.Context(), company, opts)
	if err != nil {
		respond.FromError(c, err, "failed to extract features")
		return
	}
	respond.OK(c, summary)
}
