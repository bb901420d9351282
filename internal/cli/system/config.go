package system

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/julianstephens/banquet/internal/cli"
	"github.com/julianstephens/banquet/internal/config"
	"github.com/julianstephens/banquet/internal/keyring"
	"github.com/julianstephens/banquet/internal/storage/postgres"
)

type ConfigCmd struct {
	Show             ConfigShowCmd             `cmd:"" help:"Print the effective configuration." default:"1"`
	SetConnection    ConfigSetConnectionCmd    `cmd:"" name:"set-connection" help:"Store the database connection string in the OS keyring."`
	DeleteConnection ConfigDeleteConnectionCmd `cmd:"" name:"delete-connection" help:"Remove the database connection string from the OS keyring."`
	SetRedisPassword ConfigSetRedisPasswordCmd `cmd:"" name:"set-redis-password" help:"Store the Redis password in the OS keyring."`
	KeyringStatus    ConfigKeyringStatusCmd    `cmd:"" name:"keyring-status" help:"Check the OS keyring."`
}

type ConfigShowCmd struct{}

func (c *ConfigShowCmd) Run(ctx *cli.Context) error {
	shown := *ctx.Config
	shown.Storage = maskPassword(shown.Storage)
	if shown.Redis.Password != "" {
		shown.Redis.Password = "****"
	}
	data, err := yaml.Marshal(&shown)
	if err != nil {
		return err
	}
	cli.Mutedf("# %s", config.Path(ctx.ConfigDir))
	fmt.Fprint(cli.Out, string(data))
	return nil
}

type ConfigSetConnectionCmd struct {
	ConnectionString string `arg:"" help:"PostgreSQL or MongoDB connection string."`
}

func (cmd *ConfigSetConnectionCmd) Run(ctx *cli.Context) error {
	connStr := strings.TrimSpace(cmd.ConnectionString)
	switch {
	case cli.IsPostgres(connStr) || strings.Contains(connStr, "host="):
		if _, err := postgres.ValidateConnString(connStr); err != nil && !errors.Is(err, postgres.ErrEmbeddedCredentials) {
			return fmt.Errorf("invalid connection string: %w", err)
		}
	case cli.IsMongo(connStr):
		if _, err := url.Parse(connStr); err != nil {
			return fmt.Errorf("invalid connection string: %w", err)
		}
	default:
		return errors.New("connection string must be a PostgreSQL or MongoDB connection string")
	}

	if err := keyring.ConnectionString.Set(connStr); err != nil {
		return err
	}
	cli.Successf("Connection string stored in the OS keyring")
	if ctx.Config.Storage != config.KeyringSource {
		cli.Mutedf("  Set storage: %s in %s (or %s=%s) to use it.",
			config.KeyringSource, config.Path(ctx.ConfigDir), config.EnvStorage, config.KeyringSource)
	}
	return nil
}

type ConfigDeleteConnectionCmd struct{}

func (cmd *ConfigDeleteConnectionCmd) Run(ctx *cli.Context) error {
	if err := keyring.ConnectionString.Delete(); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return errors.New("no connection string found in keyring")
		}
		return err
	}
	cli.Successf("Connection string deleted from the OS keyring")
	return nil
}

type ConfigSetRedisPasswordCmd struct {
	Password string `arg:"" help:"Redis password."`
}

func (cmd *ConfigSetRedisPasswordCmd) Run(ctx *cli.Context) error {
	if err := keyring.RedisPassword.Set(cmd.Password); err != nil {
		return err
	}
	cli.Successf("Redis password stored in the OS keyring")
	return nil
}

type ConfigKeyringStatusCmd struct{}

func (cmd *ConfigKeyringStatusCmd) Run(ctx *cli.Context) error {
	if !keyring.IsAvailable() {
		cli.Failf("OS keyring is not available on this system")
		return keyring.ErrKeyringUnavailable
	}
	cli.Successf("OS keyring is available")
	for _, s := range []keyring.Secret{keyring.ConnectionString, keyring.RedisPassword} {
		value, err := s.Lookup()
		switch {
		case err != nil:
			return err
		case value == "":
			cli.Mutedf("ℹ No %s stored", s)
		default:
			cli.Successf("%s is stored", s)
		}
	}
	return nil
}

// maskPassword hides the password of a connection URL or DSN.
func maskPassword(connStr string) string {
	if u, err := url.Parse(connStr); err == nil && u.User != nil {
		if _, set := u.User.Password(); set {
			return spliceMask(connStr)
		}
		return connStr
	}
	if strings.Contains(connStr, "password=") {
		parts := strings.Fields(connStr)
		for i, part := range parts {
			if strings.HasPrefix(part, "password=") {
				parts[i] = "password=****"
			}
		}
		return strings.Join(parts, " ")
	}
	return connStr
}

// spliceMask replaces the password of the URL's userinfo in place, leaving the rest of
// connStr untouched.
func spliceMask(connStr string) string {
	idx := strings.Index(connStr, "://")
	if idx == -1 {
		return connStr
	}
	rest := connStr[idx+3:]
	authority := rest
	if end := strings.IndexAny(rest, "/?#"); end != -1 {
		authority = rest[:end]
	}
	atIdx := strings.LastIndex(authority, "@")
	if atIdx == -1 {
		return connStr
	}
	colonIdx := strings.Index(authority[:atIdx], ":")
	if colonIdx == -1 {
		return connStr
	}
	return connStr[:idx+3] + authority[:colonIdx] + ":****" + rest[atIdx:]
}
