// Package remotestore is the shared database of employees and published
// shifts, with live full-collection snapshots.
package remotestore

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"shiftcalendar/pkg/models"
)

// Channel carries change notifications; the payload is the table name.
const Channel = "shift_calendar"

const (
	employeesTable = "employees"
	shiftsTable    = "shifts"
)

var ErrNotFound = errors.New("record not found")

type Store struct {
	db     *gorm.DB
	dsn    string
	logger *zap.Logger
}

func Open(dsn string, logger *zap.Logger) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect remote store: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, dsn: dsn, logger: logger}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

const notifyFunction = `
CREATE OR REPLACE FUNCTION shift_calendar_notify() RETURNS trigger AS $$
BEGIN
	PERFORM pg_notify('` + Channel + `', TG_TABLE_NAME);
	RETURN NULL;
END;
$$ LANGUAGE plpgsql`

func notifyTrigger(table string) []string {
	return []string{
		fmt.Sprintf(`DROP TRIGGER IF EXISTS %[1]s_notify ON %[1]s`, table),
		fmt.Sprintf(`CREATE TRIGGER %[1]s_notify AFTER INSERT OR UPDATE OR DELETE ON %[1]s
	FOR EACH STATEMENT EXECUTE FUNCTION shift_calendar_notify()`, table),
	}
}

// Migrate creates the collections and the triggers that feed snapshots.
func (s *Store) Migrate(ctx context.Context) error {
	db := s.db.WithContext(ctx)
	if err := db.AutoMigrate(&models.Employee{}, &models.Shift{}); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if err := db.Exec(notifyFunction).Error; err != nil {
		return fmt.Errorf("create notify function: %w", err)
	}
	for _, table := range []string{employeesTable, shiftsTable} {
		for _, stmt := range notifyTrigger(table) {
			if err := db.Exec(stmt).Error; err != nil {
				return fmt.Errorf("create %s trigger: %w", table, err)
			}
		}
	}
	s.logger.Info("remote store migrated")
	return nil
}

func (s *Store) SaveEmployee(ctx context.Context, e *models.Employee) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(e).Error
}

// DeleteEmployee removes the employee and every shift that references it.
func (s *Store) DeleteEmployee(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("employee_id = ?", id).Delete(&models.Shift{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.Employee{}).Error
	})
}

func (s *Store) SaveShift(ctx context.Context, sh *models.Shift) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(sh).Error
}

func (s *Store) DeleteShift(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Shift{}).Error
}

func (s *Store) GetShift(ctx context.Context, id string) (*models.Shift, error) {
	var sh models.Shift
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&sh).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sh, nil
}

func (s *Store) ListEmployees(ctx context.Context) ([]models.Employee, error) {
	var out []models.Employee
	err := s.db.WithContext(ctx).Order("created_at, id").Find(&out).Error
	return out, err
}

func (s *Store) ListShifts(ctx context.Context) ([]models.Shift, error) {
	var out []models.Shift
	err := s.db.WithContext(ctx).Order("date, start_time, id").Find(&out).Error
	return out, err
}
