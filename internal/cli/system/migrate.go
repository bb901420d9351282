package system

import (
	"context"
	"errors"
	"fmt"

	"github.com/julianstephens/banquet/internal/cli"
)

// migrator is implemented by the SQL backends.
type migrator interface {
	Migrate(ctx context.Context, logFn func(string)) (int, error)
}

var errNoMigrations = errors.New("migrate only applies to SQLite and PostgreSQL storage")

type MigrateCmd struct{}

func (c *MigrateCmd) Run(ctx *cli.Context) error {
	m, ok := ctx.Store.(migrator)
	if !ok {
		return errNoMigrations
	}
	ctx.PerformAutomaticBackup()

	count, err := m.Migrate(ctx.Ctx(), func(msg string) {
		fmt.Fprintln(cli.Out, msg)
	})
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	if count == 0 {
		fmt.Fprintln(cli.Out, "No migrations to apply. Database is up to date.")
	} else {
		cli.Successf("Applied %d migration(s)", count)
	}
	return nil
}
