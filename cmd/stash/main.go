package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/erazemk/stash/internal/api"
	"github.com/erazemk/stash/internal/cache"
	"github.com/erazemk/stash/internal/config"
	"github.com/erazemk/stash/internal/events"
	"github.com/erazemk/stash/internal/manager"
	"github.com/erazemk/stash/internal/store"
)

const usage = `Usage: stash [command] [flags]

Commands:
  serve     run the HTTP server (default)
  backup    export a course stash to a file
  restore   import a stash backup into a course

Common flags:
  -c, -config <path>      config file (YAML, TOML or JSON)
  -driver <name>          database driver: sqlite or pgx (default: sqlite)
  -d, -dsn <dsn>          database path or DSN (default: stash.sqlite3)
  -l, -log <path>         log file path (default: no file, stdout/stderr only)
  -level <level>          minimum log level (default: info)

Serve flags:
  -a, -addr <host:port>   listen address (default: :8080)
  -u, -user <name>        admin username on first run (default: Admin)

Backup flags:
  -course <id>            course whose stash is exported
  -o, -out <path>         output file; .zst is compressed (default: stdout)
  -users                  include holdings and pickup history

Restore flags:
  -course <id>            course that receives the stash
  -i, -in <path>          backup file, plain or compressed

Settings can also come from STASH_* environment variables or a .env file.
`

func main() {
	cmd, args := "serve", os.Args[1:]
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	var err error
	switch cmd {
	case "serve":
		err = cmdServe(args)
	case "backup":
		err = cmdBackup(args)
	case "restore":
		err = cmdRestore(args)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n%s", cmd, usage)
		os.Exit(1)
	}

	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// commonFlags registers the flags shared by every command. Only flags given
// on the command line end up in the returned overrides.
type commonFlags struct {
	fs         *flag.FlagSet
	configPath string
	keys       map[string]string
}

func newFlagSet(name string) *commonFlags {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.Usage = func() { fmt.Fprint(os.Stdout, usage) }

	c := &commonFlags{fs: fs, keys: map[string]string{}}
	fs.StringVar(&c.configPath, "config", "", "")
	fs.StringVar(&c.configPath, "c", "", "")
	c.setting(config.KeyDBDriver, "driver")
	c.setting(config.KeyDBDSN, "dsn", "d")
	c.setting(config.KeyLogFile, "log", "l")
	c.setting(config.KeyLogLevel, "level")
	return c
}

// setting registers a string flag, with aliases, for a config key.
func (c *commonFlags) setting(key string, names ...string) {
	for _, name := range names {
		c.fs.String(name, "", "")
		c.keys[name] = key
	}
}

// load parses args and loads the configuration with the flags applied.
func (c *commonFlags) load(args []string) (*config.Config, error) {
	if err := c.fs.Parse(args); err != nil {
		return nil, err
	}
	if c.fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected argument: %s", c.fs.Arg(0))
	}

	overrides := map[string]any{}
	c.fs.Visit(func(f *flag.Flag) {
		if key, ok := c.keys[f.Name]; ok {
			overrides[key] = f.Value.String()
		}
	})
	return config.Load(c.configPath, overrides)
}

func cmdServe(args []string) error {
	flags := newFlagSet("serve")
	flags.setting(config.KeyAddr, "addr", "a")
	flags.setting(config.KeyAdminUser, "user", "u")

	cfg, err := flags.load(args)
	if err != nil {
		return err
	}

	closeLog, err := setupLogger(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return err
	}
	defer closeLog()

	database, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close()
	slog.Info("database ready", "driver", cfg.DBDriver)

	ctx := context.Background()
	password, err := initAdmin(ctx, database, cfg.AdminUser)
	if err != nil {
		return err
	}
	if password != "" {
		printInitResult(cfg.AdminUser, password)
	}

	// Load JWT secret from database (auto-generated on first run) unless
	// one is configured.
	jwtSecret := cfg.JWTSecret
	if jwtSecret == "" {
		if jwtSecret, err = store.GetJWTSecret(ctx, database); err != nil {
			return fmt.Errorf("getting JWT secret: %w", err)
		}
	}

	hub := events.NewHub(nil)
	resolver := &manager.Resolver{
		DB:     database,
		Events: events.Multi{events.StoreSink{DB: database}, events.LogSink{}, hub},
	}
	if cfg.RedisAddr != "" {
		rdb, closeRedis := cache.NewRedis(cfg.RedisAddr, cfg.RedisUser, cfg.RedisPassword)
		defer closeRedis()
		resolver.Cache = &cache.RedisStashes{Redis: rdb, TTL: cfg.CacheTTL}
		slog.Info("stash cache enabled", "redis", cfg.RedisAddr, "ttl", cfg.CacheTTL)
	}

	handler := api.RecoveryMiddleware(api.LoggingMiddleware(api.NewRouter(resolver, jwtSecret, hub)))

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-quit
		slog.Info("shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}()

	slog.Info("server started", "addr", cfg.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	slog.Info("server stopped, closing database")
	return nil
}
