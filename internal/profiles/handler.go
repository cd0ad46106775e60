package profiles

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"mess-backend/internal/platform/auth"
	"mess-backend/internal/platform/httperr"
)

type Handler struct{ svc *Service }

// RegisterRoutes: r は RequireAuth 済みのグループ
func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	r.GET("/profiles/", h.ListProfiles)
	r.POST("/profiles/", h.CreateProfile)
	r.GET("/profiles/:id", h.GetProfile)
	r.PATCH("/profiles/:id", h.UpdateProfile)
}

// ListProfiles godoc
// @Summary  List student profiles (staff: all, student: own)
// @Tags     profiles
// @Produce  json
// @Security BearerAuth
// @Success  200 {array} ProfileResponse
// @Router   /profiles/ [get]
func (h *Handler) ListProfiles(c *gin.Context) {
	sess, _ := auth.SessionFrom(c)
	res, err := h.svc.List(c.Request.Context(), sess)
	if err != nil {
		httperr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// CreateProfile godoc
// @Summary  Create the caller's student profile
// @Tags     profiles
// @Accept   json
// @Produce  json
// @Security BearerAuth
// @Param    body body CreateProfileRequest true "profile"
// @Success  201 {object} ProfileResponse
// @Failure  409 {object} httperr.APIError
// @Router   /profiles/ [post]
func (h *Handler) CreateProfile(c *gin.Context) {
	var req CreateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.Write(c, httperr.FromBind(err))
		return
	}
	sess, _ := auth.SessionFrom(c)
	res, err := h.svc.Create(c.Request.Context(), sess, req)
	if err != nil {
		httperr.Write(c, err)
		return
	}
	c.Header("Location", "/profiles/"+strconv.FormatUint(res.ID, 10))
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) GetProfile(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		httperr.Write(c, httperr.ErrInvalid("id must be a number"))
		return
	}
	sess, _ := auth.SessionFrom(c)
	res, err := h.svc.Get(c.Request.Context(), sess, id)
	if err != nil {
		httperr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		httperr.Write(c, httperr.ErrInvalid("id must be a number"))
		return
	}
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.Write(c, httperr.FromBind(err))
		return
	}
	sess, _ := auth.SessionFrom(c)
	res, err := h.svc.Update(c.Request.Context(), sess, id, req)
	if err != nil {
		httperr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
