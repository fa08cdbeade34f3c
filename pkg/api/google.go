package api

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// MessageType marks a token message posted by the authorization window.
const MessageType = "google_auth_success"

func (s *Server) handleAuthorize(c *fiber.Ctx) error {
	return c.Status(fiber.StatusCreated).JSON(s.broker.Begin())
}

// handleAwait long-polls until the authorization request resolves and
// stores the token in the session.
func (s *Server) handleAwait(c *fiber.Ctx) error {
	tok, err := s.broker.Await(c.UserContext(), c.Params("state"))
	if err != nil {
		return err
	}
	if err := s.session.Store(tok.AccessToken); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"authorized": true})
}

func (s *Server) handleCancel(c *fiber.Ctx) error {
	if err := s.broker.Cancel(c.Params("state")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// handleRedirect is the provider's redirect target. It only resolves the
// pending request; the awaiting client stores the token.
func (s *Server) handleRedirect(c *fiber.Ctx) error {
	state := c.Query("state")
	if state == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing state")
	}
	if reason := c.Query("error"); reason != "" {
		if err := s.broker.Fail(state, reason); err != nil {
			return err
		}
		return c.SendString("Authorization was not granted. You can close this window.")
	}
	code := c.Query("code")
	if code == "" {
		return fiber.NewError(fiber.StatusBadRequest, "No code in query parameters")
	}
	if err := s.broker.Complete(c.UserContext(), state, code); err != nil {
		return err
	}
	return c.SendString("Calendar connected. You can close this window.")
}

type tokenMessage struct {
	Type  string `json:"type"`
	Token string `json:"token"`
	State string `json:"state"`
}

// handleTokenMessage takes a token captured by a same-origin page. With a
// state it resolves that authorization request, without one the token is
// stored right away.
func (s *Server) handleTokenMessage(c *fiber.Ctx) error {
	if origin := c.Get(fiber.HeaderOrigin); origin == "" || origin != s.origin {
		s.logger.Warn("token message from foreign origin", zap.String("origin", origin))
		return fiber.NewError(fiber.StatusForbidden, "origin not allowed")
	}
	var msg tokenMessage
	if err := c.BodyParser(&msg); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if msg.Type != MessageType {
		return fiber.NewError(fiber.StatusBadRequest, "unexpected message type")
	}
	if msg.State != "" {
		if err := s.broker.Deliver(msg.State, msg.Token); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusAccepted)
	}
	if err := s.session.Store(msg.Token); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"authorized": true})
}

func (s *Server) handleGoogleLogout(c *fiber.Ctx) error {
	s.session.Invalidate()
	return c.SendStatus(fiber.StatusNoContent)
}
