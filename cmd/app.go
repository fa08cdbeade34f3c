package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"shiftcalendar/pkg/calendar"
	"shiftcalendar/pkg/config"
	"shiftcalendar/pkg/localstore"
	"shiftcalendar/pkg/remotestore"
	"shiftcalendar/pkg/scheduler"
	"shiftcalendar/pkg/session"
)

// app is everything a command needs, wired from the configuration.
type app struct {
	cfg     config.Config
	local   *localstore.DB
	remote  *remotestore.Store
	session *session.Session
	sched   *scheduler.Scheduler
}

func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	local, err := localstore.Open(cfg.LocalStorePath)
	if err != nil {
		return nil, fmt.Errorf("open local store %s: %w", cfg.LocalStorePath, err)
	}
	remote, err := remotestore.Open(cfg.DSN(), logger)
	if err != nil {
		local.Close()
		return nil, fmt.Errorf("connect to the database: %w", err)
	}

	sess := session.New(localstore.NewTokenCache(local), session.Options{
		TokenInfoURL: cfg.TokenInfoURL,
		Logger:       logger.Named("session"),
	})
	bridge := calendar.NewBridge(sess, calendar.Options{
		Endpoint: cfg.CalendarEndpoint,
		Location: loc,
		Logger:   logger.Named("calendar"),
	})
	sched := scheduler.New(scheduler.Deps{
		Store:    remote,
		Calendar: bridge,
		Queue:    localstore.NewPendingQueue(local, logger),
		Session:  sess,
		Logger:   logger.Named("scheduler"),
	})

	a := &app{cfg: cfg, local: local, remote: remote, session: sess, sched: sched}
	if err := a.load(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// load fills the scheduler with the current remote collections and the
// local pending queue.
func (a *app) load(ctx context.Context) error {
	if err := a.sched.LoadPending(); err != nil {
		return err
	}
	employees, err := a.remote.ListEmployees(ctx)
	if err != nil {
		return fmt.Errorf("load employees: %w", err)
	}
	a.sched.ApplyEmployees(employees)
	shifts, err := a.remote.ListShifts(ctx)
	if err != nil {
		return fmt.Errorf("load shifts: %w", err)
	}
	a.sched.ApplyShifts(shifts)
	logger.Debug("state loaded", zap.Int("employees", len(employees)), zap.Int("shifts", len(shifts)))
	return nil
}

func (a *app) Close() {
	if err := a.remote.Close(); err != nil {
		logger.Warn("close database", zap.Error(err))
	}
	if err := a.local.Close(); err != nil {
		logger.Warn("close local store", zap.Error(err))
	}
}
