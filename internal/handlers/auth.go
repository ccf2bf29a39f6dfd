package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"clinicdesk/internal/guard"
	"clinicdesk/internal/middleware"
	"clinicdesk/internal/models"
)

type loginRequest struct {
	PhoneNumber string `json:"phoneNumber" binding:"required"`
	Password    string `json:"password" binding:"required"`
}

type registerRequest struct {
	LastName    string `json:"lastName" binding:"required"`
	FirstName   string `json:"firstName" binding:"required"`
	BirthDate   string `json:"birthDate" binding:"required"`
	PhoneNumber string `json:"phoneNumber" binding:"required"`
	Email       string `json:"email" binding:"required"`
	Password    string `json:"password" binding:"required"`
}

type sessionResponse struct {
	Session  models.Session `json:"session"`
	Redirect string         `json:"redirect"`
}

// LoginScreen sends visitors who already hold a token to where they belong.
func (h HandlerSet) LoginScreen(c *gin.Context) {
	if d := h.guard.Landing(c.Request.Context()); !d.Allowed() {
		c.Redirect(http.StatusFound, d.Redirect)
		return
	}
	c.JSON(http.StatusOK, gin.H{"screen": "login"})
}

func (h HandlerSet) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Phone number and password are required")
		return
	}

	token, err := h.auth.Login(c.Request.Context(), models.Credential{
		PhoneNumber: req.PhoneNumber,
		Password:    req.Password,
	})
	if err != nil {
		h.renderError(c, err)
		return
	}

	h.establish(c, token)
}

func (h HandlerSet) SignUp(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "All fields are required")
		return
	}

	result, err := h.auth.Register(c.Request.Context(), models.RegisterInput{
		LastName:    req.LastName,
		FirstName:   req.FirstName,
		BirthDate:   req.BirthDate,
		PhoneNumber: req.PhoneNumber,
		Email:       req.Email,
		Password:    req.Password,
	})
	if err != nil {
		h.renderError(c, err)
		return
	}

	h.establish(c, result.Token)
}

func (h HandlerSet) establish(c *gin.Context, token string) {
	sess, err := h.sessions.Login(c.Request.Context(), token)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, sessionResponse{Session: sess, Redirect: guard.Home(sess)})
}

func (h HandlerSet) Logout(c *gin.Context) {
	if err := h.sessions.Logout(c.Request.Context()); err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"redirect": guard.LoginPath})
}

func (h HandlerSet) Me(c *gin.Context) {
	sess, ok := middleware.CurrentSession(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Not signed in"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": sess})
}
