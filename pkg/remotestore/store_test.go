package remotestore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"shiftcalendar/pkg/models"
)

// StoreSuite needs a scratch Postgres database in DATABASE_DSN.
type StoreSuite struct {
	suite.Suite
	store *Store
	ctx   context.Context
}

func (s *StoreSuite) SetupSuite() {
	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		s.T().Skip("DATABASE_DSN not set")
	}
	st, err := Open(dsn, zap.NewNop())
	s.Require().NoError(err)
	s.ctx = context.Background()
	s.Require().NoError(st.Migrate(s.ctx))
	s.store = st
}

func (s *StoreSuite) TearDownSuite() {
	if s.store != nil {
		s.store.Close()
	}
}

func (s *StoreSuite) SetupTest() {
	s.Require().NoError(s.store.db.Exec("DELETE FROM shifts").Error)
	s.Require().NoError(s.store.db.Exec("DELETE FROM employees").Error)
}

func (s *StoreSuite) employee(name string) models.Employee {
	e := models.Employee{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     name + "-" + uuid.NewString()[:8] + "@example.com",
		Color:     models.DefaultColor,
		IsActive:  true,
		CreatedAt: time.Now(),
	}
	s.Require().NoError(s.store.SaveEmployee(s.ctx, &e))
	return e
}

func (s *StoreSuite) shift(emp string) models.Shift {
	sh := models.Shift{
		ID:         uuid.NewString(),
		Title:      "Bar",
		Date:       "2026-10-20",
		StartTime:  "13:00",
		EndTime:    "20:00",
		EmployeeID: emp,
		CreatedAt:  time.Now(),
	}
	s.Require().NoError(s.store.SaveShift(s.ctx, &sh))
	return sh
}

func (s *StoreSuite) TestDeleteEmployeeCascades() {
	anna := s.employee("anna")
	piotr := s.employee("piotr")
	s.shift(anna.ID)
	s.shift(anna.ID)
	kept := s.shift(piotr.ID)

	s.Require().NoError(s.store.DeleteEmployee(s.ctx, anna.ID))

	emps, err := s.store.ListEmployees(s.ctx)
	s.Require().NoError(err)
	s.Len(emps, 1)
	s.Equal(piotr.ID, emps[0].ID)

	shifts, err := s.store.ListShifts(s.ctx)
	s.Require().NoError(err)
	s.Len(shifts, 1)
	s.Equal(kept.ID, shifts[0].ID)
}

func (s *StoreSuite) TestSaveShiftUpserts() {
	anna := s.employee("anna")
	sh := s.shift(anna.ID)
	sh.Title = "Kitchen"
	sh.GoogleEventID = models.StringPtr("evt-1")
	s.Require().NoError(s.store.SaveShift(s.ctx, &sh))

	got, err := s.store.GetShift(s.ctx, sh.ID)
	s.Require().NoError(err)
	s.Equal("Kitchen", got.Title)
	s.Equal("evt-1", got.EventID())

	s.Require().NoError(s.store.DeleteShift(s.ctx, sh.ID))
	_, err = s.store.GetShift(s.ctx, sh.ID)
	s.ErrorIs(err, ErrNotFound)
}

func (s *StoreSuite) TestShiftSnapshots() {
	ctx, cancel := context.WithTimeout(s.ctx, 10*time.Second)
	defer cancel()

	anna := s.employee("anna")
	var seen [][]models.Shift
	for snap, err := range s.store.ShiftSnapshots(ctx) {
		s.Require().NoError(err)
		seen = append(seen, snap)
		if len(seen) == 1 {
			s.Empty(snap)
			s.shift(anna.ID)
			continue
		}
		break
	}
	s.Require().Len(seen, 2)
	s.Len(seen[1], 1)
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}
