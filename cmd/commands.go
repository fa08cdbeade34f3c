package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"shiftcalendar/pkg/admin"
	"shiftcalendar/pkg/config"
	"shiftcalendar/pkg/export"
	"shiftcalendar/pkg/remotestore"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the tables and change-notification triggers",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}
		store, err := remotestore.Open(cfg.DSN(), logger)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.Migrate(cmd.Context()); err != nil {
			return err
		}
		logger.Info("database migrated")
		return nil
	},
}

var publishAll bool

var publishCmd = &cobra.Command{
	Use:   "publish [pending-id...]",
	Short: "Publish pending shifts to the calendar",
	Long: `Publishes the given pending shifts (or all of them with --all) using the
calendar token cached on this device. Shifts that fail stay pending.`,
	RunE: runPublish,
}

func runPublish(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.session.Begin(a.cfg.AdminEmail); err != nil {
		return err
	}
	defer a.session.End()

	ids := args
	if publishAll {
		ids = nil
		for _, sh := range a.sched.Pending() {
			ids = append(ids, sh.ID)
		}
	}
	rep, err := a.sched.PublishPending(cmd.Context(), ids)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	if rep.Failed > 0 {
		return fmt.Errorf("%d shift(s) could not be published", rep.Failed)
	}
	return nil
}

var (
	exportMonth string
	exportOut   string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a month of shifts and statistics to an Excel file",
	RunE:  runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	month, err := export.ParseMonth(exportMonth, time.Now())
	if err != nil {
		return err
	}
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	shifts := export.InMonth(a.sched.Shifts(), month)
	f, err := export.Workbook(month, a.sched.Employees(), shifts, a.sched.StatsFor(shifts))
	if err != nil {
		return err
	}
	defer f.Close()

	path := exportOut
	if path == "" {
		path = export.FileName(month)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	logger.Info("workbook written", zap.String("path", path), zap.Int("shifts", len(shifts)))
	return nil
}

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password [password]",
	Short: "Print the bcrypt hash for ADMIN_PASSWORD_HASH",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if args[0] == "" {
			return errors.New("password must not be empty")
		}
		hash, err := admin.HashPassword(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

func init() {
	publishCmd.Flags().BoolVar(&publishAll, "all", false, "publish every pending shift")
	exportCmd.Flags().StringVar(&exportMonth, "month", "", "month as YYYY-MM (default: current month)")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default: shifts-<month>.xlsx)")
}
