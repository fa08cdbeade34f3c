package remotestore

import (
	"context"
	"iter"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"shiftcalendar/pkg/models"
)

const (
	minBackoff = 500 * time.Millisecond
	maxBackoff = 30 * time.Second
)

// listenFunc holds one change subscription for table; see Store.listen.
type listenFunc func(ctx context.Context, table string, emit func() bool) (connected, stopped bool, err error)

// follower drives the reconnect loop around a listenFunc.
type follower struct {
	listen listenFunc
	after  func(time.Duration) <-chan time.Time
	logger *zap.Logger
}

func (s *Store) follower() follower {
	return follower{listen: s.listen, after: time.After, logger: s.logger}
}

// EmployeeSnapshots yields the whole employee collection now and after every
// change. The sequence never ends on its own: a lost connection is reported
// as an error element and the subscription reconnects. Break out of the loop
// or cancel ctx to stop it.
func (s *Store) EmployeeSnapshots(ctx context.Context) iter.Seq2[[]models.Employee, error] {
	return subscribe(ctx, s.follower(), employeesTable, s.ListEmployees)
}

// ShiftSnapshots is EmployeeSnapshots for published shifts.
func (s *Store) ShiftSnapshots(ctx context.Context) iter.Seq2[[]models.Shift, error] {
	return subscribe(ctx, s.follower(), shiftsTable, s.ListShifts)
}

func subscribe[T any](ctx context.Context, f follower, table string, load func(context.Context) ([]T, error)) iter.Seq2[[]T, error] {
	return func(yield func([]T, error) bool) {
		emit := func() bool {
			items, err := load(ctx)
			if err != nil {
				return yield(nil, err)
			}
			return yield(items, nil)
		}

		backoff := minBackoff
		for ctx.Err() == nil {
			connected, stopped, err := f.listen(ctx, table, emit)
			if stopped || ctx.Err() != nil {
				return
			}
			if connected {
				backoff = minBackoff
			}
			f.logger.Warn("snapshot subscription lost",
				zap.String("collection", table), zap.Duration("retry_in", backoff), zap.Error(err))
			if !yield(nil, err) {
				return
			}

			select {
			case <-ctx.Done():
				return
			case <-f.after(backoff):
			}
			backoff = min(backoff*2, maxBackoff)
		}
	}
}

// listen holds one LISTEN connection and calls emit for the initial state and
// for every notification about table. stopped reports that emit asked to end.
func (s *Store) listen(ctx context.Context, table string, emit func() bool) (connected, stopped bool, err error) {
	conn, err := pgx.Connect(ctx, s.dsn)
	if err != nil {
		return false, false, err
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+Channel); err != nil {
		return false, false, err
	}
	s.logger.Debug("snapshot subscription open", zap.String("collection", table))

	if !emit() {
		return true, true, nil
	}
	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return true, false, err
		}
		if n.Payload != table {
			continue
		}
		if !emit() {
			return true, true, nil
		}
	}
}
