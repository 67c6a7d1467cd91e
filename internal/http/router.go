package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/Monir-Ruet/authentication/internal/config"
	"github.com/Monir-Ruet/authentication/internal/http/handler"
	"github.com/Monir-Ruet/authentication/internal/http/middleware"
)

// NewRouter wires Gin routes and middleware.
func NewRouter(cfg config.Config, accounts *handler.AccountHandler, oauthHandler *handler.OAuthHandler, auth *middleware.Auth) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(nil))
	r.Use(middleware.CORS(cfg))
	r.Use(otelgin.Middleware(cfg.ServiceName))

	authGroup := r.Group("/auth")
	{
		password := authGroup.Group("/password")
		{
			password.POST("/register", accounts.Register)
			password.POST("/login", accounts.Login)
			password.POST("/forgot", accounts.ForgotPassword)
			password.POST("/reset", accounts.ResetPassword)
		}
		authGroup.GET("/confirm-email", accounts.ConfirmEmail)
		authGroup.GET("/me", auth.ValidateJWT, accounts.Me)
	}

	api := r.Group("/api")
	{
		api.POST("/oauth/validate/:provider", oauthHandler.Validate)
	}

	return r
}
