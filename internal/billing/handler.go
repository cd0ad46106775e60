package billing

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"mess-backend/internal/platform/auth"
	"mess-backend/internal/platform/httperr"
)

const (
	mimePDF  = "application/pdf"
	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type Handler struct{ svc *Service }

func RegisterRoutes(authed, staff gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	authed.GET("/bills/", h.ListBills)
	authed.GET("/bills/latest", h.LatestBill)
	authed.GET("/bills/latest/invoice", h.LatestInvoice)
	authed.GET("/bills/:id/invoice", h.Invoice)
	staff.POST("/bills/generate_bills/", h.Generate)
	staff.PATCH("/bills/:id", h.PatchBill)
	staff.GET("/bills/export", h.Export)
}

func pathID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		httperr.Write(c, httperr.ErrInvalid("invalid id"))
		return 0, false
	}
	return id, true
}

func studentParam(c *gin.Context) (*uint64, bool) {
	v := c.Query("student_id")
	if v == "" {
		return nil, true
	}
	id, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		httperr.Write(c, httperr.ErrInvalid("student_id must be a positive integer"))
		return nil, false
	}
	return &id, true
}

func sendFile(c *gin.Context, mime string, f *InvoiceFile) {
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, f.Name))
	c.Data(http.StatusOK, mime, f.Data)
}

// ListBills godoc
// @Summary  List bills (staff: all, student: own)
// @Tags     bills
// @Produce  json
// @Security BearerAuth
// @Param    month query string false "YYYY-MM"
// @Success  200 {array} BillResponse
// @Router   /bills/ [get]
func (h *Handler) ListBills(c *gin.Context) {
	sess, _ := auth.SessionFrom(c)
	res, err := h.svc.List(c.Request.Context(), sess, c.Query("month"))
	if err != nil {
		httperr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Generate godoc
// @Summary  Generate or refresh a month's bills for every student
// @Tags     bills
// @Accept   json
// @Produce  json
// @Security BearerAuth
// @Param    body body GenerateRequest true "month and rates"
// @Success  200 {object} GenerateResult
// @Failure  400 {object} httperr.APIError
// @Router   /bills/generate_bills/ [post]
func (h *Handler) Generate(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.Write(c, httperr.FromBind(err))
		return
	}
	res, err := h.svc.Generate(c.Request.Context(), req)
	if err != nil {
		httperr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// PatchBill godoc
// @Summary  Mark a bill as paid
// @Tags     bills
// @Accept   json
// @Produce  json
// @Security BearerAuth
// @Param    id   path int          true "bill id"
// @Param    body body PatchRequest true "is_paid"
// @Success  200 {object} BillResponse
// @Failure  409 {object} httperr.APIError
// @Router   /bills/{id} [patch]
func (h *Handler) PatchBill(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req PatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.Write(c, httperr.FromBind(err))
		return
	}
	res, err := h.svc.Patch(c.Request.Context(), id, req)
	if err != nil {
		httperr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) LatestBill(c *gin.Context) {
	sid, ok := studentParam(c)
	if !ok {
		return
	}
	sess, _ := auth.SessionFrom(c)
	res, err := h.svc.Latest(c.Request.Context(), sess, sid)
	if err != nil {
		httperr.Write(c, err)
		return
	}
	if res == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, res)
}

// LatestInvoice godoc
// @Summary  Download the latest bill as a PDF invoice (204 when no bill exists)
// @Tags     bills
// @Produce  application/pdf
// @Security BearerAuth
// @Success  200 {file} file
// @Success  204
// @Router   /bills/latest/invoice [get]
func (h *Handler) LatestInvoice(c *gin.Context) {
	sid, ok := studentParam(c)
	if !ok {
		return
	}
	sess, _ := auth.SessionFrom(c)
	f, err := h.svc.LatestInvoice(c.Request.Context(), sess, sid)
	if err != nil {
		httperr.Write(c, err)
		return
	}
	if f == nil {
		c.Status(http.StatusNoContent)
		return
	}
	sendFile(c, mimePDF, f)
}

func (h *Handler) Invoice(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	sess, _ := auth.SessionFrom(c)
	f, err := h.svc.Invoice(c.Request.Context(), sess, id)
	if err != nil {
		httperr.Write(c, err)
		return
	}
	sendFile(c, mimePDF, f)
}

func (h *Handler) Export(c *gin.Context) {
	f, err := h.svc.Export(c.Request.Context(), c.Query("month"))
	if err != nil {
		httperr.Write(c, err)
		return
	}
	sendFile(c, mimeXLSX, f)
}
