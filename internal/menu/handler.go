package menu

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"mess-backend/internal/platform/httperr"
)

type Handler struct{ svc *Service }

// 閲覧は誰でも、変更は staff のみ
func RegisterRoutes(public, staff gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	public.GET("/menu/", h.ListMenu)
	staff.POST("/menu/", h.CreateMenu)
	staff.PATCH("/menu/:id", h.UpdateMenu)
}

// ListMenu godoc
// @Summary  Weekly menu, Monday first
// @Tags     menu
// @Produce  json
// @Success  200 {array} Item
// @Router   /menu/ [get]
func (h *Handler) ListMenu(c *gin.Context) {
	items, err := h.svc.List(c.Request.Context())
	if err != nil {
		httperr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) CreateMenu(c *gin.Context) {
	var req CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.Write(c, httperr.FromBind(err))
		return
	}
	res, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		httperr.Write(c, err)
		return
	}
	c.Header("Location", "/menu/"+strconv.FormatUint(res.ID, 10))
	c.JSON(http.StatusCreated, res)
}

// UpdateMenu godoc
// @Summary  Update one day's meals
// @Tags     menu
// @Accept   json
// @Produce  json
// @Security BearerAuth
// @Param    id   path int               true "menu id"
// @Param    body body UpdateItemRequest true "meals"
// @Success  200 {object} Item
// @Router   /menu/{id} [patch]
func (h *Handler) UpdateMenu(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		httperr.Write(c, httperr.ErrInvalid("invalid id"))
		return
	}
	var req UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.Write(c, httperr.FromBind(err))
		return
	}
	res, err := h.svc.Update(c.Request.Context(), id, req)
	if err != nil {
		httperr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
