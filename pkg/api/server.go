// Package api serves the admin tool over HTTP: the scheduling API under
// /api and the calendar authorization exchange under /google.
package api

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	fibersession "github.com/gofiber/fiber/v2/middleware/session"
	"go.uber.org/zap"

	"shiftcalendar/pkg/admin"
	"shiftcalendar/pkg/authflow"
	"shiftcalendar/pkg/scheduler"
	"shiftcalendar/pkg/session"
)

const (
	tokenKey  = "admin_token"
	claimsKey = "claims"
)

type Options struct {
	Scheduler *scheduler.Scheduler
	Session   *session.Session
	Auth      *admin.Authenticator
	Broker    *authflow.Broker
	// Origin is the only origin allowed to post a token message.
	Origin    string
	Language  string
	Logger    *zap.Logger
}

type Server struct {
	app     *fiber.App
	cookies *fibersession.Store

	sched   *scheduler.Scheduler
	session *session.Session
	auth    *admin.Authenticator
	broker  *authflow.Broker
	origin  string
	lang    string
	logger  *zap.Logger
	now     func() time.Time
}

func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Language == "" {
		opts.Language = "en"
	}
	s := &Server{
		cookies: fibersession.New(fibersession.Config{
			Expiration:     12 * time.Hour,
			CookieHTTPOnly: true,
			CookieSameSite: "Lax",
		}),
		sched:   opts.Scheduler,
		session: opts.Session,
		auth:    opts.Auth,
		broker:  opts.Broker,
		origin:  strings.TrimSuffix(opts.Origin, "/"),
		lang:    opts.Language,
		logger:  opts.Logger,
		now:     time.Now,
	}
	s.app = fiber.New(fiber.Config{
		AppName:               "shiftcalendar",
		DisableStartupMessage: true,
		ErrorHandler:          s.errorHandler,
	})
	s.routes()
	return s
}

// App exposes the fiber application, mainly for app.Test.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Listen(addr string) error {
	s.logger.Info("http server listening", zap.String("addr", addr))
	return s.app.Listen(addr)
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func (s *Server) routes() {
	// open routes go first so the group guards below never run for them
	s.app.Post("/api/login", s.handleLogin)
	s.app.Get("/google/redirect", s.handleRedirect)

	api := s.app.Group("/api", s.requireAdmin)
	api.Post("/logout", s.handleLogout)
	api.Get("/employees", s.handleListEmployees)
	api.Post("/employees", s.handleAddEmployee)
	api.Delete("/employees/:id", s.handleDeleteEmployee)
	api.Get("/shifts", s.handleListShifts)
	api.Get("/shifts/pending", s.handleListPending)
	api.Post("/shifts", s.handleCreateShift)
	api.Post("/shifts/publish", s.handlePublish)
	api.Put("/shifts/:id", s.handleUpdateShift)
	api.Delete("/shifts/:id", s.handleDeleteShift)
	api.Get("/days/:date", s.handleDay)
	api.Put("/bulk-mode", s.handleBulkMode)
	api.Get("/stats", s.handleStats)
	api.Get("/export", s.handleExport)

	google := s.app.Group("/google", s.requireAdmin)
	google.Post("/authorize", s.handleAuthorize)
	google.Get("/authorize/:state", s.handleAwait)
	google.Delete("/authorize/:state", s.handleCancel)
	google.Post("/token", s.handleTokenMessage)
	google.Post("/logout", s.handleGoogleLogout)
}

// requireAdmin accepts the JWT from the Authorization header or from the
// cookie session set at sign-in.
func (s *Server) requireAdmin(c *fiber.Ctx) error {
	raw := strings.TrimPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
	if raw == "" {
		if sess, err := s.cookies.Get(c); err == nil {
			raw, _ = sess.Get(tokenKey).(string)
		}
	}
	claims, err := s.auth.ParseToken(raw)
	if err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, "sign in required")
	}
	// A restarted server picks the session up from the token.
	if s.session.User() != claims.Email {
		if err := s.session.Begin(claims.Email); err != nil {
			return err
		}
	}
	c.Locals(claimsKey, claims)
	return c.Next()
}

func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var ferr *fiber.Error
	var verr *scheduler.ValidationError
	switch {
	case errors.As(err, &ferr):
		code = ferr.Code
	case errors.As(err, &verr),
		errors.Is(err, scheduler.ErrNothingSelected):
		code = fiber.StatusBadRequest
	case errors.Is(err, scheduler.ErrConfirmationRequired):
		code = fiber.StatusConflict
	case errors.Is(err, scheduler.ErrNotFound),
		errors.Is(err, authflow.ErrUnknownRequest):
		code = fiber.StatusNotFound
	case errors.Is(err, scheduler.ErrNotAuthorized),
		errors.Is(err, session.ErrNoToken):
		code = fiber.StatusUnauthorized
	case errors.Is(err, authflow.ErrDenied),
		errors.Is(err, authflow.ErrCanceled):
		code = fiber.StatusForbidden
	case errors.Is(err, authflow.ErrTimeout):
		code = fiber.StatusRequestTimeout
	case errors.Is(err, admin.ErrTooManyRequests):
		code = fiber.StatusTooManyRequests
	}
	if code >= fiber.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}
