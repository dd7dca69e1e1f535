// Doctor HTTP handlers.
//
// Public directory:
//   - GET    /doctors              (search, paginated, ETag support)
//   - GET    /doctors/{id}
//
// Hospital roster (HOSPITAL role):
//   - GET    /hospital/doctors
//   - POST   /hospital/doctors
//   - PUT    /hospital/doctors/{id}
//   - DELETE /hospital/doctors/{id}
package handlers

import (
	"fmt"
	"hash/fnv"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/allodocteur/booking-backend/internal/domain"
	"github.com/allodocteur/booking-backend/internal/http/middleware"
	"github.com/allodocteur/booking-backend/internal/repo"
	"github.com/allodocteur/booking-backend/internal/services"
)

// DoctorRequest is the JSON payload for creating or replacing a doctor.
type DoctorRequest struct {
	FullName     string                   `json:"fullName"  example:"Dr Awa Diop"`
	Specialty    string                   `json:"specialty" example:"Généraliste"`
	Clinic       string                   `json:"clinic"    example:"Clinique Saint Michel"`
	City         string                   `json:"city"      example:"Dakar"`
	PriceCfa     int64                    `json:"priceCfa"  example:"10000"`
	About        []string                 `json:"about"`
	Availability []domain.DayAvailability `json:"availability"`
}

func (r DoctorRequest) input() services.DoctorInput {
	return services.DoctorInput{
		FullName:     r.FullName,
		Specialty:    r.Specialty,
		Clinic:       r.Clinic,
		City:         r.City,
		PriceCfa:     r.PriceCfa,
		About:        r.About,
		Availability: r.Availability,
	}
}

// ListDoctorsResponse wraps a page of doctors and pagination information.
type ListDoctorsResponse struct {
	Doctors    []domain.Doctor `json:"doctors"`
	Pagination Pagination      `json:"pagination"`
}

// ListDoctors godoc
// @ID          listDoctors
// @Summary     Search the doctor directory
// @Description Filters by specialty and city (accent-insensitive) and ranks by free text in q. Supports weak ETag via If-None-Match.
// @Tags        Doctors
// @Produce     json
// @Param       specialty      query   string  false "Specialty"       example(Cardiologue)
// @Param       city           query   string  false "City"            example(Dakar)
// @Param       q              query   string  false "Free text"       example(cardio thies)
// @Param       page           query   int     false "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"  minimum(1) maximum(100) default(20)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
// @Success     200  {object}  handlers.ListDoctorsResponse
// @Header      200  {string}  ETag  "Weak ETag for current result"
// @Success     304  {string}  string "Not Modified"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /doctors [get]
func (h *Handlers) ListDoctors(c *gin.Context) {
	ctx := c.Request.Context()
	page, pageSize := clampPagination(c)

	// The ETag covers the whole table plus the query, so any roster change
	// invalidates every cached search.
	if db := statsDB(h.dirSvc); db != nil {
		if count, maxTS, err := repo.DoctorsStats(ctx, db); err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.UnixNano()
			}
			q := fnv.New32a()
			_, _ = q.Write([]byte(c.Request.URL.RawQuery))
			if notModified(c, fmt.Sprintf(`W/"doctors:%x:%d:%d"`, q.Sum32(), count, ts)) {
				return
			}
		}
	}

	items, total, err := h.dirSvc.List(ctx, services.DirectoryQuery{
		Specialty: c.Query("specialty"),
		City:      c.Query("city"),
		Q:         c.Query("q"),
		Page:      page,
		PageSize:  pageSize,
	})
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ListDoctorsResponse{Doctors: items, Pagination: newPagination(page, pageSize, total)})
}

// GetDoctor godoc
// @ID          getDoctor
// @Summary     Get a doctor profile
// @Tags        Doctors
// @Produce     json
// @Param       id   path      string  true  "Doctor ID"  format(uuid)
// @Success     200  {object}  domain.Doctor
// @Failure     404  {object}  handlers.ErrorResponse "Doctor not found"
// @Router      /doctors/{id} [get]
func (h *Handlers) GetDoctor(c *gin.Context) {
	d, err := h.dirSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, d)
}

// ListOwnedDoctors godoc
// @ID          listOwnedDoctors
// @Summary     List the hospital's doctors
// @Tags        Hospital
// @Produce     json
// @Security    BearerAuth
// @Success     200  {array}   domain.Doctor
// @Failure     401  {object}  handlers.ErrorResponse
// @Failure     403  {object}  handlers.ErrorResponse
// @Router      /hospital/doctors [get]
func (h *Handlers) ListOwnedDoctors(c *gin.Context) {
	items, err := h.dirSvc.ListOwned(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		failErr(c, err)
		return
	}
	if items == nil {
		items = []domain.Doctor{}
	}
	ok(c, http.StatusOK, items)
}

// CreateDoctor godoc
// @ID          createDoctor
// @Summary     Add a doctor to the hospital roster
// @Tags        Hospital
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       body  body      handlers.DoctorRequest  true  "Doctor"
// @Success     201   {object}  domain.Doctor
// @Failure     400   {object}  handlers.ErrorResponse "Invalid doctor"
// @Failure     403   {object}  handlers.ErrorResponse
// @Router      /hospital/doctors [post]
func (h *Handlers) CreateDoctor(c *gin.Context) {
	var req DoctorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	d, err := h.dirSvc.Create(c.Request.Context(), middleware.UserID(c), req.input())
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, d)
}

// UpdateDoctor godoc
// @ID          updateDoctor
// @Summary     Replace a doctor's profile
// @Tags        Hospital
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id    path      string                  true  "Doctor ID"  format(uuid)
// @Param       body  body      handlers.DoctorRequest  true  "Doctor"
// @Success     200   {object}  domain.Doctor
// @Failure     400   {object}  handlers.ErrorResponse "Invalid doctor"
// @Failure     404   {object}  handlers.ErrorResponse "Doctor not found"
// @Router      /hospital/doctors/{id} [put]
func (h *Handlers) UpdateDoctor(c *gin.Context) {
	var req DoctorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	d, err := h.dirSvc.Update(c.Request.Context(), middleware.UserID(c), c.Param("id"), req.input())
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, d)
}

// DeleteDoctor godoc
// @ID          deleteDoctor
// @Summary     Remove a doctor from the directory
// @Tags        Hospital
// @Produce     json
// @Security    BearerAuth
// @Param       id   path      string  true  "Doctor ID"  format(uuid)
// @Success     200  {object}  handlers.OKResponse
// @Failure     404  {object}  handlers.ErrorResponse "Doctor not found"
// @Router      /hospital/doctors/{id} [delete]
func (h *Handlers) DeleteDoctor(c *gin.Context) {
	if err := h.dirSvc.Delete(c.Request.Context(), middleware.UserID(c), c.Param("id")); err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, OKResponse{OK: true})
}
