package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"mess-backend/internal/platform/httperr"
)

type AuthHandler struct{ svc AuthService }

// RegisterRoutes: public には /register/ と /login/、authed には /me/ を載せる
func RegisterRoutes(public, authed gin.IRoutes, svc AuthService) {
	h := &AuthHandler{svc: svc}
	public.POST("/register/", h.Register)
	public.POST("/login/", h.Login)
	authed.GET("/me/", h.Me)
}

type RegisterRequest struct {
	Username      string `json:"username" binding:"required"`
	Password      string `json:"password" binding:"required"`
	Email         string `json:"email" binding:"omitempty,email"`
	IsStudent     bool   `json:"is_student"`
	IsStaffMember bool   `json:"is_staff_member"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role" binding:"omitempty,oneof=student staff"`
}

type UserResponse struct {
	ID            uint64 `json:"id"`
	Username      string `json:"username"`
	Email         string `json:"email"`
	IsStudent     bool   `json:"is_student"`
	IsStaffMember bool   `json:"is_staff_member"`
}

func toUserResponse(a *Account) UserResponse {
	return UserResponse{
		ID:            a.ID,
		Username:      a.Username,
		Email:         a.Email,
		IsStudent:     a.IsStudent,
		IsStaffMember: a.IsStaffMember,
	}
}

// Register godoc
// @Summary  Create a user account
// @Tags     auth
// @Accept   json
// @Produce  json
// @Param    body body RegisterRequest true "account"
// @Success  201 {object} UserResponse
// @Failure  403 {object} httperr.APIError
// @Failure  409 {object} httperr.APIError
// @Router   /register/ [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.Write(c, httperr.FromBind(err))
		return
	}
	// スタッフは messadmin createstaff でのみ作る
	if req.IsStaffMember {
		httperr.Write(c, httperr.ErrForbidden("is_staff_member: staff accounts cannot be self-registered."))
		return
	}

	acct, err := h.svc.Register(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			httperr.Write(c, httperr.ErrConflict("username: A user with that username already exists."))
			return
		}
		if errors.Is(err, errEmptyCredentials) {
			httperr.Write(c, httperr.ErrInvalid(errEmptyCredentials.Error()))
			return
		}
		httperr.Write(c, err)
		return
	}

	c.JSON(http.StatusCreated, toUserResponse(acct))
}

// Login godoc
// @Summary  Obtain an access token
// @Tags     auth
// @Accept   json
// @Produce  json
// @Param    body body LoginRequest true "credentials"
// @Success  200 {object} map[string]string
// @Failure  400 {object} map[string][]string
// @Failure  401 {object} httperr.APIError
// @Router   /login/ [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.Write(c, httperr.FromBind(err))
		return
	}

	token, err := h.svc.Login(c.Request.Context(), req.Username, req.Password, req.Role)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotStudent), errors.Is(err, ErrNotStaff):
			// フロントは non_field_errors[0] をそのまま表示する
			c.JSON(http.StatusBadRequest, gin.H{"non_field_errors": []string{err.Error()}})
		case errors.Is(err, ErrInvalidCredentials):
			httperr.Write(c, httperr.ErrUnauth(err.Error()))
		default:
			httperr.Write(c, err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"access": token})
}

// Me godoc
// @Summary  Current user
// @Tags     auth
// @Produce  json
// @Security BearerAuth
// @Success  200 {object} UserResponse
// @Router   /me/ [get]
func (h *AuthHandler) Me(c *gin.Context) {
	sess, ok := SessionFrom(c)
	if !ok {
		httperr.Write(c, httperr.ErrUnauth("not authenticated"))
		return
	}
	acct, err := h.svc.Me(c.Request.Context(), sess.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httperr.Write(c, httperr.ErrNotFound("user not found"))
			return
		}
		httperr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(acct))
}
