package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/allodocteur/booking-backend/internal/http/middleware"
)

// HospitalStats godoc
// @ID          hospitalStats
// @Summary     Dashboard counters
// @Tags        Hospital
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  repo.HospitalCounts
// @Failure     401  {object}  handlers.ErrorResponse
// @Failure     403  {object}  handlers.ErrorResponse
// @Router      /hospital/stats [get]
func (h *Handlers) HospitalStats(c *gin.Context) {
	st, err := h.hospSvc.Stats(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, st)
}

// HospitalAppointments godoc
// @ID          hospitalAppointments
// @Summary     Appointments with the hospital's doctors
// @Description Newest first, with patient and doctor embedded.
// @Tags        Hospital
// @Produce     json
// @Security    BearerAuth
// @Success     200  {array}   domain.Appointment
// @Failure     401  {object}  handlers.ErrorResponse
// @Failure     403  {object}  handlers.ErrorResponse
// @Router      /hospital/appointments [get]
func (h *Handlers) HospitalAppointments(c *gin.Context) {
	items, err := h.hospSvc.Appointments(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, items)
}
