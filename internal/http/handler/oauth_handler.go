package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Monir-Ruet/authentication/internal/domain"
	"github.com/Monir-Ruet/authentication/internal/oauth"
)

// OAuthHandler serves the external-login endpoints.
type OAuthHandler struct {
	Callback *oauth.Callback
	Logger   *zap.Logger
}

// NewOAuthHandler creates the handler set.
func NewOAuthHandler(callback *oauth.Callback, logger *zap.Logger) *OAuthHandler {
	return &OAuthHandler{Callback: callback, Logger: logger}
}

// Validate exchanges a provider authorization code for a session token,
// creating and linking the account on first sign-in.
func (h *OAuthHandler) Validate(c *gin.Context) {
	provider := strings.TrimSpace(c.Param("provider"))

	var req struct {
		Code string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "code is required."})
		return
	}

	session, err := h.Callback.Handle(c.Request.Context(), provider, req.Code)
	if err != nil {
		h.respondFlowError(c, err)
		return
	}

	status := http.StatusOK
	if session.Created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{
		"access_token": session.Token,
		"token_type":   "Bearer",
		"user_id":      session.UserID,
		"email":        session.Email,
		"provider":     session.Provider,
	})
}

func (h *OAuthHandler) respondFlowError(c *gin.Context, err error) {
	var flowErr *oauth.FlowError
	switch {
	case errors.As(err, &flowErr):
		h.log().Warn("oauth flow rejected", zap.Error(err))
		c.JSON(flowErr.Status, gin.H{"error": flowErr.Code, "error_description": flowErr.Message})
	case errors.Is(err, domain.ErrEmailTaken):
		h.log().Warn("oauth email conflict", zap.Error(err))
		c.JSON(http.StatusConflict, gin.H{"error": "email_taken", "error_description": "This email address is already bound to an account."})
	case errors.Is(err, oauth.ErrExchangeFailed), errors.Is(err, oauth.ErrProfileFailed):
		h.log().Error("oauth provider unreachable", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "provider_error", "error_description": "The identity provider could not be reached."})
	default:
		h.log().Error("oauth service failure", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": "Internal server error."})
	}
}

func (h *OAuthHandler) log() *zap.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return zap.L()
}
