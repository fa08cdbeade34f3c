package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"shiftcalendar/pkg/admin"
	"shiftcalendar/pkg/export"
	"shiftcalendar/pkg/scheduler"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	token, err := s.auth.SignIn(c.IP(), req.Email, req.Password)
	if err != nil {
		status := fiber.StatusUnauthorized
		if errors.Is(err, admin.ErrTooManyRequests) {
			status = fiber.StatusTooManyRequests
		}
		s.logger.Info("sign-in rejected", zap.String("ip", c.IP()), zap.Error(err))
		return c.Status(status).JSON(fiber.Map{"error": admin.Message(err, s.lang)})
	}

	claims, err := s.auth.ParseToken(token)
	if err != nil {
		return err
	}
	if err := s.session.Begin(claims.Email); err != nil {
		return err
	}
	if s.session.Authorized() {
		// validate the cached calendar token before first use
		if _, err := s.session.Token(c.UserContext()); err != nil {
			s.logger.Info("cached calendar token dropped", zap.Error(err))
		}
	}

	sess, err := s.cookies.Get(c)
	if err != nil {
		return err
	}
	sess.Set(tokenKey, token)
	if err := sess.Save(); err != nil {
		return err
	}
	if err := s.sched.LoadPending(); err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"token":              token,
		"email":              claims.Email,
		"calendarAuthorized": s.session.Authorized(),
	})
}

func (s *Server) handleLogout(c *fiber.Ctx) error {
	if claims, ok := c.Locals(claimsKey).(*admin.Claims); ok {
		s.auth.Revoke(claims)
	}
	s.session.End()
	if sess, err := s.cookies.Get(c); err == nil {
		if err := sess.Destroy(); err != nil {
			return err
		}
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleListEmployees(c *fiber.Ctx) error {
	return c.JSON(s.sched.Employees())
}

func (s *Server) handleAddEmployee(c *fiber.Ctx) error {
	var in scheduler.NewEmployee
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	e, err := s.sched.AddEmployee(c.UserContext(), in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(e)
}

func (s *Server) handleDeleteEmployee(c *fiber.Ctx) error {
	err := s.sched.DeleteEmployee(c.UserContext(), c.Params("id"), c.QueryBool("confirm"))
	if err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleListShifts(c *fiber.Ctx) error {
	return c.JSON(s.sched.Shifts())
}

func (s *Server) handleListPending(c *fiber.Ctx) error {
	return c.JSON(s.sched.Pending())
}

func (s *Server) handleDay(c *fiber.Ctx) error {
	return c.JSON(s.sched.Day(c.Params("date")))
}

func (s *Server) handleCreateShift(c *fiber.Ctx) error {
	var in scheduler.ShiftInput
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	shifts, err := s.sched.CreateShift(c.UserContext(), in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(shifts)
}

func (s *Server) handleUpdateShift(c *fiber.Ctx) error {
	var in scheduler.ShiftInput
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	sh, err := s.sched.UpdateShift(c.UserContext(), c.Params("id"), in, c.QueryBool("pending"))
	if err != nil {
		return err
	}
	return c.JSON(sh)
}

func (s *Server) handleDeleteShift(c *fiber.Ctx) error {
	err := s.sched.DeleteShift(c.UserContext(), c.Params("id"), c.QueryBool("pending"), c.QueryBool("confirm"))
	if err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type bulkModeRequest struct {
	Enabled bool `json:"enabled"`
}

func (s *Server) handleBulkMode(c *fiber.Ctx) error {
	var req bulkModeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	s.session.SetBulkMode(req.Enabled)
	return c.JSON(fiber.Map{"enabled": s.session.BulkMode()})
}

type publishRequest struct {
	IDs []string `json:"ids"`
}

func (s *Server) handlePublish(c *fiber.Ctx) error {
	var req publishRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	rep, err := s.sched.PublishPending(c.UserContext(), req.IDs)
	if err != nil {
		return err
	}
	return c.JSON(rep)
}

func (s *Server) handleStats(c *fiber.Ctx) error {
	return c.JSON(s.sched.Stats())
}

func (s *Server) handleExport(c *fiber.Ctx) error {
	month, err := export.ParseMonth(c.Query("month"), s.now())
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	shifts := export.InMonth(s.sched.Shifts(), month)
	f, err := export.Workbook(month, s.sched.Employees(), shifts, s.sched.StatsFor(shifts))
	if err != nil {
		return err
	}
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		return err
	}
	c.Attachment(export.FileName(month))
	return c.Send(buf.Bytes())
}
