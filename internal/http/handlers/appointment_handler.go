// Appointment HTTP handlers.
//
// This file exposes the patient side of the appointment lifecycle:
//   - POST   /appointments                 (book, Idempotency-Key aware)
//   - GET    /appointments/me              (list, paginated, ETag support)
//   - PATCH  /appointments/{id}/cancel
//   - GET    /appointments/confirm?token=  (emailed link, redirects to the SPA)
package handlers

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/allodocteur/booking-backend/internal/domain"
	"github.com/allodocteur/booking-backend/internal/http/middleware"
	"github.com/allodocteur/booking-backend/internal/repo"
	"github.com/allodocteur/booking-backend/internal/services"
)

// CreateAppointmentRequest is the JSON payload for booking a slot.
type CreateAppointmentRequest struct {
	DoctorID string `json:"doctorId" binding:"required,max=64" example:"0b8f7e0c-3a57-4b59-8d0e-5e4c1f9a2b31"`
	// DateTime is RFC 3339, or YYYY-MM-DDTHH:MM[:SS] read as UTC.
	DateTime string `json:"dateTime" binding:"required,max=64" example:"2026-01-12T09:30:00Z"`
	// PaymentRequired routes the booking through hosted card checkout.
	PaymentRequired bool `json:"paymentRequired" example:"false"`
}

// CreateAppointmentResponse is returned by POST /appointments.
type CreateAppointmentResponse struct {
	OK          bool                `json:"ok"`
	Status      string              `json:"status" example:"PENDING"`
	Appointment *domain.Appointment `json:"appointment"`
	// CheckoutURL is set when PaymentRequired was true.
	CheckoutURL string `json:"checkoutUrl,omitempty"`
}

// ListAppointmentsResponse wraps a page of appointments and pagination information.
type ListAppointmentsResponse struct {
	Appointments []domain.Appointment `json:"appointments"`
	Pagination   Pagination           `json:"pagination"`
}

// CancelAppointmentResponse carries the cancelled appointment.
type CancelAppointmentResponse struct {
	OK          bool                `json:"ok"`
	Appointment *domain.Appointment `json:"appointment"`
}

func (h *Handlers) create(c *gin.Context, req CreateAppointmentRequest) (*services.CreateResult, error) {
	key, _ := middleware.GetIdempotencyKey(c)
	return h.apptSvc.Create(c.Request.Context(), services.CreateInput{
		PatientID:        middleware.UserID(c),
		DoctorID:         req.DoctorID,
		DateTime:         req.DateTime,
		PaymentRequired:  req.PaymentRequired,
		IdempotencyScope: middleware.IdempotencyScope(c),
		IdempotencyKey:   key,
	})
}

// CreateAppointment godoc
// @ID          createAppointment
// @Summary     Book an appointment
// @Description Unpaid bookings are PENDING until the emailed link is followed. Paid bookings return a checkout URL.
// @Description A repeated Idempotency-Key returns the original booking with 200.
// @Tags        Appointments
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       Idempotency-Key  header  string                             false "Client retry key"  example(book-2026-01-12-0930)
// @Param       body             body    handlers.CreateAppointmentRequest  true  "Booking"
// @Success     201  {object}  handlers.CreateAppointmentResponse
// @Success     200  {object}  handlers.CreateAppointmentResponse "Idempotent replay"
// @Failure     400  {object}  handlers.ErrorResponse "Invalid input"
// @Failure     404  {object}  handlers.ErrorResponse "Doctor not found"
// @Failure     409  {object}  handlers.ErrorResponse "Slot taken"
// @Failure     502  {object}  handlers.ErrorResponse "Payment provider error"
// @Failure     503  {object}  handlers.ErrorResponse "Payments not configured"
// @Router      /appointments [post]
func (h *Handlers) CreateAppointment(c *gin.Context) {
	var req CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, bindMessage(err))
		return
	}
	res, err := h.create(c, req)
	if err != nil {
		failErr(c, err)
		return
	}
	status := http.StatusCreated
	if res.Replayed {
		status = http.StatusOK
	}
	ok(c, status, CreateAppointmentResponse{
		OK:          true,
		Status:      res.Appointment.Status,
		Appointment: res.Appointment,
		CheckoutURL: res.CheckoutURL,
	})
}

// ListMyAppointments godoc
// @ID          listMyAppointments
// @Summary     List my appointments (paginated)
// @Description Latest slot first, doctor embedded. Supports weak ETag via If-None-Match.
// @Tags        Appointments
// @Produce     json
// @Security    BearerAuth
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
// @Param       page           query   int     false "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200  {object}  handlers.ListAppointmentsResponse
// @Header      200  {string}  ETag  "Weak ETag for current result"
// @Success     304  {string}  string "Not Modified"
// @Failure     401  {object}  handlers.ErrorResponse
// @Router      /appointments/me [get]
func (h *Handlers) ListMyAppointments(c *gin.Context) {
	ctx := c.Request.Context()
	uid := middleware.UserID(c)
	page, pageSize := clampPagination(c)

	if db := statsDB(h.apptSvc); db != nil {
		if count, maxTS, err := repo.AppointmentsStats(ctx, db, uid); err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.UnixNano()
			}
			if notModified(c, fmt.Sprintf(`W/"appointments:%s:%d:%d:%d:%d"`, uid, page, pageSize, count, ts)) {
				return
			}
		}
	}

	items, total, err := h.apptSvc.ListMine(ctx, uid, page, pageSize)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ListAppointmentsResponse{Appointments: items, Pagination: newPagination(page, pageSize, total)})
}

// CancelAppointment godoc
// @ID          cancelAppointment
// @Summary     Cancel one of my appointments
// @Description Allowed in any state, including after payment. No refund is issued.
// @Tags        Appointments
// @Produce     json
// @Security    BearerAuth
// @Param       id   path      string  true  "Appointment ID"  format(uuid)
// @Success     200  {object}  handlers.CancelAppointmentResponse
// @Failure     403  {object}  handlers.ErrorResponse "Not your appointment"
// @Failure     404  {object}  handlers.ErrorResponse "Appointment not found"
// @Router      /appointments/{id}/cancel [patch]
func (h *Handlers) CancelAppointment(c *gin.Context) {
	a, err := h.apptSvc.Cancel(c.Request.Context(), c.Param("id"), middleware.UserID(c))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, CancelAppointmentResponse{OK: true, Appointment: a})
}

// ConfirmAppointment godoc
// @ID          confirmAppointment
// @Summary     Follow an emailed confirmation link
// @Description Confirms the appointment and redirects to the web app. Following the link again is harmless.
// @Tags        Appointments
// @Param       token  query  string  true  "Confirmation token"
// @Success     302  {string}  string "Redirect to FRONTEND_URL/confirmed"
// @Failure     400  {object}  handlers.ErrorResponse "Missing token"
// @Failure     404  {object}  handlers.ErrorResponse "Unknown token"
// @Router      /appointments/confirm [get]
func (h *Handlers) ConfirmAppointment(c *gin.Context) {
	token := c.Query("token")
	res, err := h.apptSvc.ConfirmByToken(c.Request.Context(), token)
	if err != nil {
		failErr(c, err)
		return
	}

	target := h.frontend + "/confirmed?token=" + url.QueryEscape(token)
	switch {
	case res.Appointment != nil && res.Appointment.Status == domain.StatusCancelled:
		target += "&cancelled=1"
	case res.AlreadyConfirmed:
		target += "&already=1"
	}
	c.Redirect(http.StatusFound, target)
}
