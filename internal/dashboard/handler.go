package dashboard

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"mess-backend/internal/platform/auth"
	"mess-backend/internal/platform/httperr"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	r.GET("/dashboard/", h.Dashboard)
}

// Dashboard godoc
// @Summary  Role-specific landing summary
// @Tags     dashboard
// @Produce  json
// @Security BearerAuth
// @Success  200 {object} StudentSummary
// @Router   /dashboard/ [get]
func (h *Handler) Dashboard(c *gin.Context) {
	sess, ok := auth.SessionFrom(c)
	if !ok {
		httperr.Write(c, httperr.ErrUnauth("not authenticated"))
		return
	}
	res, err := h.svc.Summary(c.Request.Context(), sess)
	if err != nil {
		httperr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
