package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"shiftcalendar/pkg/admin"
	"shiftcalendar/pkg/api"
	"shiftcalendar/pkg/authflow"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and follow the database for changes",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.cfg.JWTSecret == "" || a.cfg.AdminPasswordHash == "" {
		return errors.New("JWT_SECRET and ADMIN_PASSWORD_HASH must be set")
	}

	oauth := authflow.NewOAuthConfig(a.cfg.GoogleClientId, a.cfg.GoogleSecretId, a.cfg.RedirectURL)
	srv := api.New(api.Options{
		Scheduler: a.sched,
		Session:   a.session,
		Auth:      admin.NewAuthenticator(a.cfg.AdminEmail, a.cfg.AdminPasswordHash, a.cfg.JWTSecret, admin.NewRateLimiter(5, 5)),
		Broker:    authflow.NewBroker(oauth, a.cfg.AuthTimeout, logger.Named("authflow")),
		Origin:    a.cfg.PublicOrigin,
		Language:  a.cfg.Language,
		Logger:    logger.Named("api"),
	})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Listen(a.cfg.HTTPAddr)
	})
	g.Go(func() error {
		return a.sched.Watch(ctx, a.remote)
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		return srv.Shutdown()
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server stopped", zap.Error(err))
		return err
	}
	return nil
}
