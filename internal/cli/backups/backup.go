package backups

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/julianstephens/banquet/internal/backup"
	"github.com/julianstephens/banquet/internal/cli"
	"github.com/julianstephens/banquet/internal/constants"
)

var errNotFileStore = errors.New("backups are only kept for SQLite and JSON storage; use the database's own tooling for PostgreSQL and MongoDB")

func manager(ctx *cli.Context) (*backup.Manager, error) {
	if !ctx.IsFileStore() {
		return nil, errNotFileStore
	}
	return backup.NewManager(ctx.Store.GetConfigPath()), nil
}

type BackupCreateCmd struct{}

func (c *BackupCreateCmd) Run(ctx *cli.Context) error {
	mgr, err := manager(ctx)
	if err != nil {
		return err
	}
	backupPath, err := mgr.CreateBackup()
	if err != nil {
		return fmt.Errorf("backup failed: %w", err)
	}
	cli.Successf("Backup created: %s", filepath.Base(backupPath))
	return nil
}

type BackupListCmd struct{}

func (c *BackupListCmd) Run(ctx *cli.Context) error {
	mgr, err := manager(ctx)
	if err != nil {
		return err
	}
	list, err := mgr.ListBackups()
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}
	if len(list) == 0 {
		fmt.Fprintln(cli.Out, "No backups found.")
		cli.Mutedf("Backups are stored in: %s", mgr.GetBackupDir())
		return nil
	}

	rows := make([][]string, 0, len(list))
	for _, b := range list {
		rows = append(rows, []string{
			b.Timestamp.Format("2006-01-02 15:04:05"),
			filepath.Base(b.Path),
			fmt.Sprintf("%.1f KB", float64(b.Size)/1024.0),
		})
	}
	fmt.Fprintf(cli.Out, "Available backups (%d total, keeping most recent %d):\n", len(list), constants.MaxBackups)
	fmt.Fprintln(cli.Out, cli.Table([]string{"Created", "File", "Size"}, rows))
	cli.Mutedf("Backup directory: %s", mgr.GetBackupDir())
	return nil
}

type BackupRestoreCmd struct {
	BackupFile string `arg:"" help:"Path or filename of the backup to restore."`
}

func (c *BackupRestoreCmd) Run(ctx *cli.Context) error {
	mgr, err := manager(ctx)
	if err != nil {
		return err
	}
	backupPath, err := resolve(c.BackupFile, mgr.GetBackupDir())
	if err != nil {
		return err
	}

	ok, err := cli.Confirm("Replace the current database with this backup?",
		fmt.Sprintf("Restore from %s. Stop every banquet process (including serve) first; a backup of the current database is taken before restoring.", backupPath),
		ctx.Yes)
	if err != nil || !ok {
		if err == nil {
			fmt.Fprintln(cli.Out, "Restore cancelled.")
		}
		return err
	}

	if err := ctx.Store.Close(); err != nil {
		cli.Warnf("Failed to close database connection: %v", err)
	}
	previous, err := mgr.RestoreBackup(backupPath)
	if err != nil {
		return fmt.Errorf("restore failed: %w", err)
	}

	cli.Successf("Database restored from %s", filepath.Base(backupPath))
	if previous != "" {
		cli.Mutedf("The previous database was saved as %s", filepath.Base(previous))
	}
	cli.Warnf("Run 'banquet doctor' to check hotel cursors against the restored records.")
	return nil
}

// resolve finds name as given, relative to the working directory, or in the backup
// directory.
func resolve(name, backupDir string) (string, error) {
	if filepath.IsAbs(name) {
		if _, err := os.Stat(name); err != nil {
			return "", fmt.Errorf("backup file not found: %s", name)
		}
		return name, nil
	}
	if _, err := os.Stat(name); err == nil {
		return filepath.Abs(name)
	}
	candidate := filepath.Join(backupDir, name)
	if _, err := os.Stat(candidate); err == nil {
		return candidate, nil
	}
	return "", fmt.Errorf("backup file not found: tried current directory and %s", backupDir)
}
