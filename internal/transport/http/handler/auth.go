package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"devconnect/internal/app"
	"devconnect/internal/transport/http/middleware"
	"devconnect/internal/transport/http/response"
)

type AuthHandler struct {
	authService *app.AuthService
}

type RegisterRequest struct {
	Name     string `json:"name" binding:"required,max=64"`
	Email    string `json:"email" binding:"required,email,max=128"`
	Password string `json:"password" binding:"required,min=4,max=128"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func NewAuthHandler(authService *app.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Register handles POST /api/users.
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Validation(c, "Name, a valid email and a password of at least 4 characters are required")
		return
	}
	if !strings.ContainsAny(req.Password, "0123456789") {
		response.Validation(c, "Password must contain a number")
		return
	}

	token, err := h.authService.Register(c.Request.Context(), app.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Validation(c, "Invalid registration input")
		case errors.Is(err, app.ErrEmailExists):
			response.Msg(c, http.StatusBadRequest, "User already exists")
		default:
			response.InternalError(c)
		}
		return
	}

	response.OK(c, gin.H{"token": token})
}

// Login handles POST /api/auth.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Msg(c, http.StatusBadRequest, "Invalid credentials")
		return
	}

	token, err := h.authService.Login(c.Request.Context(), app.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput), errors.Is(err, app.ErrInvalidCredentials):
			response.Msg(c, http.StatusBadRequest, "Invalid credentials")
		default:
			response.InternalError(c)
		}
		return
	}

	response.OK(c, gin.H{"token": token})
}

// Me handles GET /api/auth: the authenticated user without the password hash.
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Msg(c, http.StatusUnauthorized, "Token is not valid.")
		return
	}

	user, err := h.authService.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrUserNotFound):
			response.Msg(c, http.StatusNotFound, "User not found")
		default:
			response.InternalError(c)
		}
		return
	}

	response.OK(c, user)
}
