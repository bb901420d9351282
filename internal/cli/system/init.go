package system

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/julianstephens/banquet/internal/cli"
	"github.com/julianstephens/banquet/internal/storage"
)

type InitCmd struct {
	Force  bool   `help:"Delete an existing SQLite or JSON database before initialization."`
	Source string `help:"Database path or connection string to copy hotels and records from."`
}

func (c *InitCmd) Run(ctx *cli.Context) error {
	if c.Force {
		if err := c.reset(ctx); err != nil {
			return err
		}
	}

	if err := ctx.Store.Init(ctx.Ctx()); err != nil {
		return err
	}
	cli.Successf("Initialized banquet storage at: %s", ctx.Store.GetConfigPath())

	if c.Source != "" {
		source, err := cli.OpenStore(c.Source, false)
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.Out, "Copying data from: %s\n", c.Source)
		if err := CopyData(ctx.Ctx(), source, ctx.Store); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		cli.Successf("Migration completed successfully")
	}
	return nil
}

// reset removes a file database. Server databases are never dropped from here.
func (c *InitCmd) reset(ctx *cli.Context) error {
	if !ctx.IsFileStore() {
		return errors.New("--force only resets SQLite and JSON databases")
	}
	dbPath := ctx.Store.GetConfigPath()
	if c.Source != "" {
		absDB, err := filepath.Abs(dbPath)
		if err == nil {
			dbPath = absDB
		}
		if absSource, err := filepath.Abs(c.Source); err == nil && absSource == dbPath {
			return fmt.Errorf("cannot use --force when source and destination are the same: %s", dbPath)
		}
	}

	if _, err := os.Stat(dbPath); err == nil {
		ok, err := cli.Confirm("Delete the existing database?", dbPath, ctx.Yes)
		if err != nil {
			return err
		}
		if !ok {
			return errors.New("init cancelled")
		}
		ctx.PerformAutomaticBackup()
		if err := ctx.Store.Close(); err != nil {
			return fmt.Errorf("failed to close existing database: %w", err)
		}
		if err := os.Remove(dbPath); err != nil {
			return fmt.Errorf("failed to delete existing database: %w", err)
		}
		fmt.Fprintf(cli.Out, "Deleted existing database at: %s\n", dbPath)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to access existing database: %w", err)
	}
	return nil
}

// CopyData copies every hotel, with its cursor and contract, and all of its records
// from src into dst. Each hotel's records land in one commit.
func CopyData(ctx context.Context, src, dst storage.Provider) error {
	if err := src.Load(ctx); err != nil {
		return fmt.Errorf("failed to load source database: %w", err)
	}
	defer src.Close()

	hotels, err := src.GetAllHotels(ctx)
	if err != nil {
		return fmt.Errorf("failed to get hotels from source: %w", err)
	}
	var total int
	for _, h := range hotels {
		records, err := src.FindRecords(ctx, h.ID, time.Time{}, time.Time{})
		if err != nil {
			return fmt.Errorf("failed to get records of %s: %w", h, err)
		}
		if err := dst.AddHotel(ctx, h); err != nil {
			return fmt.Errorf("failed to add hotel %s: %w", h, err)
		}
		if len(records) > 0 {
			stored, err := dst.GetHotel(ctx, h.ID)
			if err != nil {
				return err
			}
			if err := dst.Commit(ctx, storage.Changeset{Hotel: stored, Create: records}); err != nil {
				return fmt.Errorf("failed to copy records of %s: %w", h, err)
			}
		}
		fmt.Fprintf(cli.Out, "  %s: %d records\n", h, len(records))
		total += len(records)
	}
	fmt.Fprintf(cli.Out, "  Copied %d hotels and %d records\n", len(hotels), total)
	return nil
}
