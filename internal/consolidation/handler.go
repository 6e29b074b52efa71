package consolidation

import (
	"github.com/gin-gonic/gin"

	"portfolio-backend/internal/companies"
	"portfolio-backend/internal/shared/apperr"
	"portfolio-backend/internal/shared/server/middleware"
	"portfolio-backend/internal/shared/server/respond"
)

// Handler serves the latest recommendations of a company.
type Handler struct {
	Companies companies.Resolver
	Repo      Repo
}

// NewHandler constructs a Handler.
func NewHandler(resolver companies.Resolver, repo Repo) *Handler {
	return &Handler{Companies: resolver, Repo: repo}
}

// RegisterRoutes attaches recommendation routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/companies/:company/recommendations", h.list)
}

func (h *Handler) list(c *gin.Context) {
	ctx := c.Request.Context()
	companyID, err := h.Companies.Resolve(ctx, c.Param("company"))
	if err != nil {
		respond.FromError(c, err, "failed to resolve company")
		return
	}
	c.Set(middleware.CompanyIDKey, companyID)

	recs, err := h.Repo.ListByCompany(ctx, companyID)
	if err != nil {
		respond.FromError(c, apperr.Wrap(apperr.ErrPersistence, "consolidation.list", err), "failed to list recommendations")
		return
	}
	total := 0.0
	for _, r := range recs {
		total += r.AnnualSavings
	}
	respond.OK(c, gin.H{
		"companyId":          companyID,
		"count":              len(recs),
		"totalAnnualSavings": total,
		"recommendations":    recs,
	})
}
