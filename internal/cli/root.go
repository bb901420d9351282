package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/julianstephens/banquet/internal/backup"
	"github.com/julianstephens/banquet/internal/calendar"
	"github.com/julianstephens/banquet/internal/config"
	"github.com/julianstephens/banquet/internal/keyring"
	"github.com/julianstephens/banquet/internal/lock"
	"github.com/julianstephens/banquet/internal/logger"
	"github.com/julianstephens/banquet/internal/models"
	"github.com/julianstephens/banquet/internal/service"
	"github.com/julianstephens/banquet/internal/storage"
	"github.com/julianstephens/banquet/internal/storage/mongo"
	"github.com/julianstephens/banquet/internal/storage/postgres"
	"github.com/julianstephens/banquet/internal/storage/sqlite"
)

// DatabaseFile is the default SQLite database inside the config directory.
const DatabaseFile = "banquet.db"

type Context struct {
	ctx context.Context

	Config    *config.Config
	ConfigDir string
	Store     storage.Provider
	Engine    *service.Engine
	// Actor performs entry operations; --admin lifts the entry window guards.
	Actor service.Actor
	// City scopes hotel lookups by name and the status board.
	City string
	// Yes skips confirmation prompts.
	Yes bool
}

// WithContext sets the context commands run under, usually cancelled on SIGINT.
func (c *Context) WithContext(ctx context.Context) *Context {
	c.ctx = ctx
	return c
}

func (c *Context) Ctx() context.Context {
	if c.ctx == nil {
		return context.Background()
	}
	return c.ctx
}

// ResolveStorage returns the storage source for cfg. An empty source selects the
// default database in configDir; "keyring" reads the OS keyring. The second result
// reports whether the source came from the keyring.
func ResolveStorage(cfg *config.Config, configDir string) (string, bool, error) {
	switch source := strings.TrimSpace(cfg.Storage); source {
	case "":
		return filepath.Join(configDir, DatabaseFile), false, nil
	case config.KeyringSource:
		connStr, err := keyring.ConnectionString.Get()
		if err != nil {
			if errors.Is(err, keyring.ErrNotFound) {
				return "", true, errors.New("no connection string in the OS keyring, run 'banquet config set-connection' first")
			}
			return "", true, err
		}
		return connStr, true, nil
	default:
		return source, false, nil
	}
}

func IsPostgres(source string) bool {
	return strings.HasPrefix(source, "postgres://") || strings.HasPrefix(source, "postgresql://")
}

func IsMongo(source string) bool {
	return strings.HasPrefix(source, "mongodb://") || strings.HasPrefix(source, "mongodb+srv://")
}

// OpenStore picks the provider for source. PostgreSQL strings given in plain config
// must not embed a password; trusted sources (the keyring) may.
func OpenStore(source string, trusted bool) (storage.Provider, error) {
	switch {
	case IsPostgres(source) || strings.Contains(source, "host="):
		if _, err := postgres.ValidateConnString(source); err != nil {
			if !trusted || !errors.Is(err, postgres.ErrEmbeddedCredentials) {
				return nil, err
			}
		}
		return postgres.New(source), nil
	case IsMongo(source):
		return mongo.New(source), nil
	case strings.EqualFold(filepath.Ext(source), ".json"):
		return storage.NewJSONStore(source), nil
	default:
		return sqlite.NewStore(source), nil
	}
}

// NewEngine wires an engine for store from cfg. A nil locker means in-process locks.
func NewEngine(cfg *config.Config, store storage.Provider, locker lock.Locker) (*service.Engine, error) {
	clock, err := cfg.Clock()
	if err != nil {
		return nil, err
	}
	return service.New(store, service.Options{
		Clock:      clock,
		Rule:       cfg.Rule(),
		Vocabulary: cfg.Vocabulary,
		Locker:     locker,
		Retries:    cfg.Retries,
	}), nil
}

// Hotel resolves a hotel by ID, or by name within the selected city. Without a city
// the name must be unique across cities.
func (c *Context) Hotel(ref string) (*models.Hotel, error) {
	if c.City == "" {
		if h, err := c.hotelAnyCity(ref); h != nil || err != nil {
			return h, err
		}
	}
	h, err := c.Engine.FindHotel(c.Ctx(), c.City, ref)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("hotel %q not found in %s: %w", ref, c.cityName(), err)
	}
	return h, err
}

func (c *Context) hotelAnyCity(name string) (*models.Hotel, error) {
	hotels, err := c.Engine.Hotels(c.Ctx(), "")
	if err != nil {
		return nil, err
	}
	var found *models.Hotel
	for _, h := range hotels {
		if !strings.EqualFold(h.Name, strings.TrimSpace(name)) {
			continue
		}
		if found != nil {
			return nil, fmt.Errorf("hotel name %q is used in %s and %s, pass --city", name, found.City, h.City)
		}
		found = h
	}
	return found, nil
}

func (c *Context) cityName() string {
	if c.City == "" {
		return "any city"
	}
	return c.City
}

// IsFileStore reports whether the store is a local file that backups can copy.
func (c *Context) IsFileStore() bool {
	switch c.Store.(type) {
	case *sqlite.Store, *storage.JSONStore:
		return true
	}
	return false
}

// PerformAutomaticBackup backs up a file store before a destructive command. Failures
// are logged and never interrupt the command.
func (c *Context) PerformAutomaticBackup() {
	if !c.IsFileStore() {
		return
	}
	mgr := backup.NewManager(c.Store.GetConfigPath())
	if _, err := mgr.CreateBackup(); err != nil {
		logger.Warn("Automatic backup failed", "error", err)
	}
}

// ParseDate accepts the storage, import and display date formats.
func ParseDate(s string) (time.Time, error) {
	d, err := calendar.ParseFlexible(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return d, nil
}

// EnsureDir creates the config directory with owner-only permissions.
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0o700)
}
