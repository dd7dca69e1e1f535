package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterRequest is the JSON payload for patient sign-up.
type RegisterRequest struct {
	Email    string `json:"email"    binding:"required,email,max=255" example:"fatou@example.sn"`
	Password string `json:"password" binding:"required,min=6,max=72" example:"Patient123!"`
	FullName string `json:"fullName" binding:"required,min=2,max=120" example:"Fatou Ndiaye"`
}

// RegisterResponse identifies the new account.
type RegisterResponse struct {
	ID    string `json:"id"    example:"5b1f0a3e-2d4c-4e8b-9a61-0c7f3d2e1b9a"`
	Email string `json:"email" example:"fatou@example.sn"`
}

// LoginRequest is the JSON payload for sign-in.
type LoginRequest struct {
	Email    string `json:"email"    binding:"required,email" example:"patient@demo.com"`
	Password string `json:"password" binding:"required,max=72" example:"Patient123!"`
}

// Register godoc
// @ID          register
// @Summary     Register a patient account
// @Tags        Auth
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.RegisterRequest  true  "Account"
// @Success     201   {object}  handlers.RegisterResponse
// @Failure     400   {object}  handlers.ErrorResponse  "Invalid input"
// @Failure     409   {object}  handlers.ErrorResponse  "Email already registered"
// @Router      /auth/register [post]
func (h *Handlers) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, bindMessage(err))
		return
	}
	u, err := h.authSvc.Register(c.Request.Context(), req.Email, req.Password, req.FullName)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, RegisterResponse{ID: u.ID, Email: u.Email})
}

// Login godoc
// @ID          login
// @Summary     Exchange credentials for an access token
// @Tags        Auth
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.LoginRequest  true  "Credentials"
// @Success     200   {object}  services.Session
// @Failure     400   {object}  handlers.ErrorResponse  "Missing credentials"
// @Failure     401   {object}  handlers.ErrorResponse  "Invalid credentials"
// @Failure     429   {object}  handlers.ErrorResponse  "Too many attempts"
// @Router      /auth/login [post]
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, bindMessage(err))
		return
	}
	sess, err := h.authSvc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, sess)
}
