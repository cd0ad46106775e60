package attendance

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"mess-backend/internal/platform/auth"
	"mess-backend/internal/platform/httperr"
)

type Handler struct{ svc *Service }

// authed: RequireAuth 済み、staff: さらに RequireStaff 済み
func RegisterRoutes(authed, staff gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	authed.GET("/attendance/", h.ListAttendance)
	authed.POST("/attendance/", h.MarkAttendance)
	authed.GET("/attendance/monthly", h.Monthly)
	staff.POST("/attendance/bulk_update/", h.BulkUpdate)
	staff.GET("/attendance/history", h.History)
	staff.GET("/attendance/roster", h.Roster)
	staff.GET("/attendance/stats", h.Stats)
}

func queryID(c *gin.Context, key string) (*uint64, error) {
	v := c.Query(key)
	if v == "" {
		return nil, nil
	}
	id, err := strconv.ParseUint(v, 10, 64)
	if err != nil || id == 0 {
		return nil, httperr.ErrInvalid(key + " must be a positive integer")
	}
	return &id, nil
}

// ListAttendance godoc
// @Summary  List attendance (filter by date / student_id)
// @Tags     attendance
// @Produce  json
// @Security BearerAuth
// @Param    date       query string false "YYYY-MM-DD"
// @Param    student_id query int    false "profile id (staff only)"
// @Success  200 {array} RecordResponse
// @Router   /attendance/ [get]
func (h *Handler) ListAttendance(c *gin.Context) {
	var q ListQuery
	sid, err := queryID(c, "student_id")
	if err != nil {
		httperr.Write(c, err)
		return
	}
	q.StudentID = sid
	if d := c.Query("date"); d != "" {
		on, err := ParseDate(d)
		if err != nil {
			httperr.Write(c, err)
			return
		}
		q.On = &on
	}

	sess, _ := auth.SessionFrom(c)
	res, err := h.svc.List(c.Request.Context(), sess, q)
	if err != nil {
		httperr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) MarkAttendance(c *gin.Context) {
	var req MarkRequest
	// 空ボディは全項目省略扱い
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		httperr.Write(c, httperr.FromBind(err))
		return
	}
	sess, _ := auth.SessionFrom(c)
	res, err := h.svc.Mark(c.Request.Context(), sess, req)
	if err != nil {
		httperr.Write(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// BulkUpdate godoc
// @Summary  Upsert one day's attendance for many students
// @Tags     attendance
// @Accept   json
// @Produce  json
// @Security BearerAuth
// @Param    body body BulkRequest true "date and records"
// @Success  200 {object} BulkResult
// @Failure  400 {object} httperr.APIError
// @Router   /attendance/bulk_update/ [post]
func (h *Handler) BulkUpdate(c *gin.Context) {
	var req BulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.Write(c, httperr.FromBind(err))
		return
	}
	res, err := h.svc.BulkUpdate(c.Request.Context(), req)
	if err != nil {
		httperr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Monthly godoc
// @Summary  Attendance grouped by month, most recent first
// @Tags     attendance
// @Produce  json
// @Security BearerAuth
// @Param    student_id query int false "required for staff"
// @Success  200 {array} MonthBucketResponse
// @Router   /attendance/monthly [get]
func (h *Handler) Monthly(c *gin.Context) {
	sid, err := queryID(c, "student_id")
	if err != nil {
		httperr.Write(c, err)
		return
	}
	sess, _ := auth.SessionFrom(c)
	res, err := h.svc.Monthly(c.Request.Context(), sess, sid)
	if err != nil {
		httperr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) History(c *gin.Context) {
	sid, err := queryID(c, "student_id")
	if err != nil {
		httperr.Write(c, err)
		return
	}
	if sid == nil {
		httperr.Write(c, httperr.ErrInvalid("student_id is required"))
		return
	}
	res, err := h.svc.History(c.Request.Context(), *sid)
	if err != nil {
		httperr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Roster godoc
// @Summary  Roster merged with the day's attendance
// @Tags     attendance
// @Produce  json
// @Security BearerAuth
// @Param    date query string false "YYYY-MM-DD (default today)"
// @Param    q    query string false "reg num / name filter"
// @Param    sort query string false "reg_num | name | status, prefix - for desc"
// @Success  200 {array} RosterRowResponse
// @Router   /attendance/roster [get]
func (h *Handler) Roster(c *gin.Context) {
	res, err := h.svc.Roster(c.Request.Context(), c.Query("date"), c.Query("q"), c.Query("sort"))
	if err != nil {
		httperr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Stats(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	res, err := h.svc.Stats(c.Request.Context(), StatsRequest{
		From:  c.Query("from"),
		To:    c.Query("to"),
		Limit: limit,
	})
	if err != nil {
		httperr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
