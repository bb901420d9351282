package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/julianstephens/banquet/internal/cli"
	"github.com/julianstephens/banquet/internal/cli/backups"
	"github.com/julianstephens/banquet/internal/cli/entries"
	"github.com/julianstephens/banquet/internal/cli/hotels"
	"github.com/julianstephens/banquet/internal/cli/system"
	"github.com/julianstephens/banquet/internal/config"
	"github.com/julianstephens/banquet/internal/constants"
	apperrors "github.com/julianstephens/banquet/internal/errors"
	"github.com/julianstephens/banquet/internal/logger"
	"github.com/julianstephens/banquet/internal/service"
)

var CLI struct {
	Version   kong.VersionFlag
	ConfigDir string `help:"Config directory holding config.yaml, logs and the default database." type:"path" default:"${config_dir}" env:"BANQUET_CONFIG_DIR"`
	Storage   string `help:"Database path, or a PostgreSQL or MongoDB connection string. Overrides the config file. Use the OS keyring for connection strings with passwords."`
	City      string `help:"City of the hotels addressed by name."`
	User      string `help:"Name recorded as the author of entries." env:"USER" default:"frontdesk"`
	Admin     bool   `help:"Act as an administrator: entries are not limited to the next slot or the lock-in window."`
	Yes       bool   `help:"Answer yes to confirmation prompts." short:"y"`
	Debug     bool   `help:"Write debug logs to stderr."`

	Init    system.InitCmd    `cmd:"" help:"Initialize banquet storage."`
	Migrate system.MigrateCmd `cmd:"" help:"Run database migrations."`
	Doctor  system.DoctorCmd  `cmd:"" help:"Run health checks and compare hotel cursors with their records."`
	Serve   system.ServeCmd   `cmd:"" help:"Serve the HTTP API."`
	Hotel   hotels.HotelCmd   `cmd:"" help:"Manage hotels, contracts and ballrooms."`
	Entry   entries.EntryCmd  `cmd:"" help:"Enter and correct usage records."`
	Import  entries.ImportCmd `cmd:"" help:"Import a CSV batch of usage records."`
	Status  entries.StatusCmd `cmd:"" help:"Show how far behind each hotel's data entry is." default:"1"`
	Backup  struct {
		Create  backups.BackupCreateCmd  `cmd:"" help:"Create a manual backup." default:"1"`
		List    backups.BackupListCmd    `cmd:"" help:"List available backups."`
		Restore backups.BackupRestoreCmd `cmd:"" help:"Restore from a backup."`
	} `cmd:"" help:"Manage database backups."`
	Config system.ConfigCmd `cmd:"" help:"Show configuration and manage keyring secrets."`
}

// Commands that open the store themselves, or need none.
var (
	skipLoad    = map[string]bool{"init": true, "migrate": true, "doctor": true}
	skipStorage = map[string]bool{"config": true}
)

func main() {
	// A .env in the working directory may set BANQUET_CONFIG_DIR itself.
	if err := config.LoadEnvFiles(".env"); err != nil {
		apperrors.Fatal(err)
	}

	kctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Hotel ballroom usage data entry with period-consistency checks"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{"version": constants.Version, "config_dir": constants.DefaultConfigDir},
	)
	command := strings.Fields(kctx.Command())[0]

	if err := cli.EnsureDir(CLI.ConfigDir); err != nil {
		apperrors.Fatal(err)
	}
	if err := config.LoadEnvFiles(filepath.Join(CLI.ConfigDir, ".env")); err != nil {
		apperrors.Fatal(err)
	}
	if err := logger.Init(logger.Config{Debug: CLI.Debug, ConfigDir: CLI.ConfigDir, Stderr: command == "serve"}); err != nil {
		apperrors.Fatal(err)
	}

	cfg, err := config.Load(config.Path(CLI.ConfigDir))
	if err != nil {
		apperrors.Fatal(err)
	}
	if CLI.Storage != "" {
		cfg.Storage = CLI.Storage
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appCtx := (&cli.Context{
		Config:    cfg,
		ConfigDir: CLI.ConfigDir,
		Actor:     service.Actor{Name: CLI.User, Admin: CLI.Admin},
		City:      CLI.City,
		Yes:       CLI.Yes,
	}).WithContext(ctx)

	if !skipStorage[command] {
		source, trusted, err := cli.ResolveStorage(cfg, CLI.ConfigDir)
		if err != nil {
			apperrors.Fatal(err)
		}
		store, err := cli.OpenStore(source, trusted)
		if err != nil {
			apperrors.Fatal(err)
		}
		defer store.Close()

		engine, err := cli.NewEngine(cfg, store, nil)
		if err != nil {
			apperrors.Fatal(err)
		}
		appCtx.Store = store
		appCtx.Engine = engine

		if !skipLoad[command] {
			if err := store.Load(ctx); err != nil {
				apperrors.Fatal(err)
			}
		}
	}

	logger.Debug("Running command", "command", kctx.Command(), "user", CLI.User, "admin", CLI.Admin)
	if err := kctx.Run(appCtx); err != nil {
		stop()
		apperrors.Fatal(err)
	}
}
