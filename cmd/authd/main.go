package main

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Monir-Ruet/authentication/internal/config"
	"github.com/Monir-Ruet/authentication/internal/database"
	httptransport "github.com/Monir-Ruet/authentication/internal/http"
	"github.com/Monir-Ruet/authentication/internal/http/handler"
	httpmiddleware "github.com/Monir-Ruet/authentication/internal/http/middleware"
	"github.com/Monir-Ruet/authentication/internal/mail"
	"github.com/Monir-Ruet/authentication/internal/oauth"
	"github.com/Monir-Ruet/authentication/internal/server"
	"github.com/Monir-Ruet/authentication/internal/service"
	"github.com/Monir-Ruet/authentication/internal/store"
	"github.com/Monir-Ruet/authentication/internal/token"
)

func main() {
	app := fx.New(
		fx.Provide(
			newConfig,
			newLogger,
			newDatabase,
			newUserStore,
			newRoleStore,
			newTokenIssuer,
			newMailer,
			newUserService,
			newExchange,
			newCallback,
			handler.NewAccountHandler,
			handler.NewOAuthHandler,
			newAuthMiddleware,
			httptransport.NewRouter,
			server.NewHTTPServer,
		),
		fx.Invoke(useRoleStore, startHTTPServer),
	)

	app.Run()
}

func newConfig() (config.Config, error) {
	return config.Load()
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.Environment == "development" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}

func newDatabase(lc fx.Lifecycle, cfg config.Config) (*database.Database, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := database.Connect(ctx, cfg.DatabaseURL, cfg.DBSchema)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			db.Close()
			return nil
		},
	})

	return db, nil
}

func newUserStore(db *database.Database) *store.Users {
	return store.NewPgxUsers(db)
}

func newRoleStore(db *database.Database) *store.Roles {
	return store.NewPgxRoles(db)
}

func newTokenIssuer(cfg config.Config) *token.Issuer {
	return token.NewIssuer(cfg)
}

func newMailer(cfg config.Config, logger *zap.Logger) (mail.Mailer, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return mail.NewSESMailer(ctx, cfg, logger)
}

func newUserService(users *store.Users, issuer *token.Issuer, mailer mail.Mailer, cfg config.Config, logger *zap.Logger) service.UserService {
	return service.NewUserService(users, issuer, mailer, cfg, logger)
}

func newExchange(cfg config.Config, logger *zap.Logger) *oauth.Exchange {
	return oauth.NewExchange(cfg, logger)
}

func newCallback(exchange *oauth.Exchange, users *store.Users, issuer *token.Issuer, logger *zap.Logger) *oauth.Callback {
	return oauth.NewCallback(exchange, users, issuer, logger)
}

func newAuthMiddleware(issuer *token.Issuer) *httpmiddleware.Auth {
	return &httpmiddleware.Auth{Issuer: issuer}
}

// useRoleStore keeps the role store in the object graph; role management has
// no HTTP surface yet.
func useRoleStore(*store.Roles) {}

func startHTTPServer(lc fx.Lifecycle, srv *server.HTTPServer, cfg config.Config, logger *zap.Logger) {
	addr := ":" + cfg.HTTPPort
	var (
		cancel context.CancelFunc
		done   chan struct{}
	)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			runCtx, stop := context.WithCancel(context.Background())
			cancel = stop
			done = make(chan struct{})

			go func() {
				if err := srv.Run(runCtx, addr); err != nil {
					logger.Error("http server stopped", zap.Error(err))
				}
				close(done)
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			if cancel != nil {
				cancel()
			}
			if done == nil {
				return nil
			}
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}
