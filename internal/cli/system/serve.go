package system

import (
	"fmt"

	"github.com/julianstephens/banquet/internal/calendar"
	"github.com/julianstephens/banquet/internal/cli"
	"github.com/julianstephens/banquet/internal/keyring"
	"github.com/julianstephens/banquet/internal/lock"
	"github.com/julianstephens/banquet/internal/logger"
	"github.com/julianstephens/banquet/internal/server"
)

// ServeCmd runs the HTTP API used by the reporting portal.
type ServeCmd struct {
	Listen string `help:"Address to listen on. Overrides the config file."`
}

func (c *ServeCmd) Run(ctx *cli.Context) error {
	cfg := ctx.Config
	listen := cfg.Listen
	if c.Listen != "" {
		listen = c.Listen
	}

	// With Redis configured, several serve processes can share one database.
	if cfg.Redis.Enabled() {
		password := cfg.Redis.Password
		if password == "" {
			stored, err := keyring.RedisPassword.Lookup()
			if err != nil {
				logger.Warn("Could not read Redis password from keyring", "error", err)
			}
			password = stored
		}
		locker := lock.NewRedis(lock.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.LockTTL,
		})
		defer locker.Close()
		if err := locker.Ping(ctx.Ctx()); err != nil {
			return fmt.Errorf("failed to reach Redis at %s: %w", cfg.Redis.Addr, err)
		}
		engine, err := cli.NewEngine(cfg, ctx.Store, locker)
		if err != nil {
			return err
		}
		ctx.Engine = engine
		logger.Info("Using Redis hotel locks", "addr", cfg.Redis.Addr)
	}

	loc, err := calendar.LoadLocation(cfg.Timezone)
	if err != nil {
		return err
	}
	srv := server.New(ctx.Engine, server.Options{
		Listen:        listen,
		RatePerSecond: cfg.RateLimit.PerSecond,
		Burst:         cfg.RateLimit.Burst,
		StatusCron:    cfg.StatusCron,
		StatusDays:    cfg.StatusDays,
		Location:      loc,
	})
	fmt.Fprintf(cli.Out, "Serving on http://%s (Ctrl+C to stop)\n", listen)
	return srv.Run(ctx.Ctx())
}
