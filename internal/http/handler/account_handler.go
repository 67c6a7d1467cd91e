package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Monir-Ruet/authentication/internal/domain"
	"github.com/Monir-Ruet/authentication/internal/http/middleware"
	"github.com/Monir-Ruet/authentication/internal/service"
)

// AccountHandler serves the password-credential endpoints.
type AccountHandler struct {
	Users  service.UserService
	Logger *zap.Logger
}

// NewAccountHandler creates the handler set.
func NewAccountHandler(users service.UserService, logger *zap.Logger) *AccountHandler {
	return &AccountHandler{Users: users, Logger: logger}
}

// Register creates a local account and sends the confirmation mail.
func (h *AccountHandler) Register(c *gin.Context) {
	var req struct {
		UserName string `json:"user_name"`
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "email and password are required."})
		return
	}

	user, err := h.Users.Register(c.Request.Context(), service.RegisterInput{
		UserName: req.UserName,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": user.ID, "email": user.Email})
}

// Login exchanges email and password for a session token.
func (h *AccountHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "email and password are required."})
		return
	}

	out, err := h.Users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": out.AccessToken,
		"token_type":   out.TokenType,
		"expires_in":   out.ExpiresIn,
	})
}

// ConfirmEmail redeems the confirmation token from the mailed link.
func (h *AccountHandler) ConfirmEmail(c *gin.Context) {
	userID := strings.TrimSpace(c.Query("userId"))
	tok := strings.TrimSpace(c.Query("token"))
	if userID == "" || tok == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "userId and token are required."})
		return
	}

	if err := h.Users.ConfirmEmail(c.Request.Context(), userID, tok); err != nil {
		h.respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "confirmed"})
}

// ForgotPassword sends the reset mail. It answers the same way whether or not
// the address exists.
func (h *AccountHandler) ForgotPassword(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "email is required."})
		return
	}

	if err := h.Users.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		h.respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "sent"})
}

// ResetPassword redeems a reset token and stores the new password.
func (h *AccountHandler) ResetPassword(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Token    string `json:"token" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "email, token, and password are required."})
		return
	}

	if err := h.Users.ResetPassword(c.Request.Context(), req.Email, req.Token, req.Password); err != nil {
		h.respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "reset"})
}

// Me returns the claims of the authenticated session.
func (h *AccountHandler) Me(c *gin.Context) {
	claims, ok := middleware.GetSessionClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_token", "error_description": "Session claims missing."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sub": claims.Subject, "email": claims.Email})
}

func (h *AccountHandler) respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": err.Error()})
	case errors.Is(err, domain.ErrEmailTaken):
		c.JSON(http.StatusConflict, gin.H{"error": "email_taken", "error_description": "This email address is already in use."})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_credentials", "error_description": "Email or password is incorrect."})
	case errors.Is(err, service.ErrEmailNotConfirmed):
		c.JSON(http.StatusForbidden, gin.H{"error": "email_not_confirmed", "error_description": "Confirm your email address before signing in."})
	case errors.Is(err, service.ErrLockedOut):
		c.JSON(http.StatusForbidden, gin.H{"error": "account_locked", "error_description": "Too many failed attempts. Try again later."})
	case errors.Is(err, service.ErrInvalidToken):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_token", "error_description": "This link is invalid or has expired."})
	default:
		h.log().Error("account service failure", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": "Internal server error."})
	}
}

func (h *AccountHandler) log() *zap.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return zap.L()
}
