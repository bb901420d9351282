package system

import (
	"errors"
	"fmt"
	"time"

	"github.com/julianstephens/banquet/internal/backup"
	"github.com/julianstephens/banquet/internal/calendar"
	"github.com/julianstephens/banquet/internal/cli"
	"github.com/julianstephens/banquet/internal/keyring"
	"github.com/julianstephens/banquet/internal/slot"
)

// DoctorCmd checks storage health and compares every hotel's cursor with its records.
type DoctorCmd struct {
	Fix bool `help:"Rebuild cursors that disagree with the stored records (admin)."`
}

var errDoctorFailed = errors.New("one or more checks failed")

func (cmd *DoctorCmd) Run(ctx *cli.Context) error {
	if cmd.Fix && !ctx.Actor.Admin {
		return errors.New("--fix is an administrative command, run it with --admin")
	}
	fmt.Fprintln(cli.Out, "Running diagnostics...")
	fmt.Fprintln(cli.Out)

	hasError := false
	if err := ctx.Store.Load(ctx.Ctx()); err != nil {
		cli.Failf("Database reachable: FAIL")
		cli.Mutedf("   Error: %v", err)
		cli.Mutedf("⊘ Hotel cursors: SKIPPED (database not reachable)")
		return errDoctorFailed
	}
	cli.Successf("Database reachable and schema current: OK")

	if err := checkBackups(ctx); err != nil {
		cli.Warnf("Backups present: WARNING")
		cli.Mutedf("   %v", err)
	} else if ctx.IsFileStore() {
		cli.Successf("Backups present: OK")
	}

	if keyring.IsAvailable() {
		cli.Successf("OS keyring: available")
	} else {
		cli.Mutedf("ℹ OS keyring: not available (only needed for keyring storage)")
	}

	if !checkCursors(ctx, cmd.Fix) {
		hasError = true
	}

	fmt.Fprintln(cli.Out)
	if hasError {
		return errDoctorFailed
	}
	cli.Successf("All checks passed")
	return nil
}

func checkBackups(ctx *cli.Context) error {
	if !ctx.IsFileStore() {
		return nil
	}
	mgr := backup.NewManager(ctx.Store.GetConfigPath())
	list, err := mgr.ListBackups()
	if err != nil {
		return err
	}
	if len(list) == 0 {
		return fmt.Errorf("no backups in %s, run 'banquet backup'", mgr.GetBackupDir())
	}
	if age := time.Since(list[0].Timestamp); age > 7*24*time.Hour {
		return fmt.Errorf("latest backup is %d days old", int(age.Hours()/24))
	}
	return nil
}

// checkCursors reconciles each hotel. It reports false when any hotel is left
// inconsistent.
func checkCursors(ctx *cli.Context, fix bool) bool {
	hotels, err := ctx.Engine.Hotels(ctx.Ctx(), ctx.City)
	if err != nil {
		cli.Failf("Hotel cursors: FAIL")
		cli.Mutedf("   Error: %v", err)
		return false
	}

	ok := true
	for _, h := range hotels {
		rec, err := ctx.Engine.Reconcile(ctx.Ctx(), h.ID, fix)
		switch {
		case err != nil:
			cli.Failf("%s: %v", h, err)
			ok = false
		case rec.Fixed:
			cli.Warnf("%s: cursor rebuilt from %s to %s", h, rec.Cached, rec.Derived)
			if len(rec.Gaps) > 0 {
				cli.Mutedf("   Missing slots: %s", formatGaps(rec.Gaps))
				ok = false
			}
		case rec.Consistent():
			cli.Successf("%s: cursor %s", h, rec.Cached)
		default:
			cli.Failf("%s: cursor %s, records end at %s", h, rec.Cached, rec.Derived)
			if len(rec.Gaps) > 0 {
				cli.Mutedf("   Missing slots: %s", formatGaps(rec.Gaps))
			}
			ok = false
		}
	}
	return ok
}

func formatGaps(gaps []slot.Slot) string {
	const shown = 5
	var out string
	for i, s := range gaps {
		if i == shown {
			out += fmt.Sprintf(" and %d more", len(gaps)-shown)
			break
		}
		if i > 0 {
			out += ", "
		}
		out += calendar.FormatDisplay(s.Date) + " " + string(s.Timing)
	}
	return out
}
