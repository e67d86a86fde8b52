package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/MarkoPoloResearchLab/cartowl/internal/httpserver"
	"github.com/MarkoPoloResearchLab/cartowl/internal/store/gormstore"
	"github.com/MarkoPoloResearchLab/cartowl/internal/store/pgstore"
	"github.com/MarkoPoloResearchLab/cartowl/pkg/board"
	"github.com/glebarez/sqlite"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const (
	flagDatabaseURL       = "database-url"
	flagDatabaseDriver    = "database-driver"
	flagListenAddr        = "listen-addr"
	flagAdminToken        = "admin-token"
	flagAllowedOrigins    = "allowed-origins"
	configKeyDatabaseURL  = "database_url"
	configKeyDriver       = "database_driver"
	configKeyListenAddr   = "listen_addr"
	configKeyAdminToken   = "admin_token"
	configKeyOrigins      = "allowed_origins"
	defaultDatabaseURL    = "sqlite://cartowl.db"
	defaultHTTPListenAddr = ":3001"
	databaseDriverGorm    = "gorm"
	databaseDriverPgx     = "pgx"
	defaultDatabaseDriver = databaseDriverGorm
)

// storeKind names a resolved storage backend.
type storeKind string

const (
	storeKindSQLite       storeKind = "sqlite"
	storeKindGormPostgres storeKind = "gorm-postgres"
	storeKindPgxPostgres  storeKind = "pgx-postgres"
)

type runtimeConfig struct {
	DatabaseURL    string
	DatabaseDriver string
	ListenAddr     string
	AdminToken     string
	AllowedOrigins string
}

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "cartowld: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cfg := &runtimeConfig{}
	cmd := &cobra.Command{
		Use:           "cartowld",
		Short:         "Map-unlocking board HTTP server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(cmd, cfg)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg)
		},
	}

	cmd.Flags().String(flagDatabaseURL, defaultDatabaseURL, "database connection string (sqlite path or postgres URL)")
	cmd.Flags().String(flagDatabaseDriver, defaultDatabaseDriver, "postgres access layer, gorm or pgx (ignored for sqlite)")
	cmd.Flags().String(flagListenAddr, defaultHTTPListenAddr, "HTTP listen address")
	cmd.Flags().String(flagAdminToken, "", "static bearer token for admin routes")
	cmd.Flags().String(flagAllowedOrigins, "", "comma-separated list of allowed CORS origins (empty allows all)")

	return cmd
}

func loadConfig(cmd *cobra.Command, cfg *runtimeConfig) error {
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.BindEnv(configKeyDatabaseURL, "DATABASE_URL"); err != nil {
		return err
	}
	if err := viper.BindEnv(configKeyDriver, "DATABASE_DRIVER"); err != nil {
		return err
	}
	if err := viper.BindEnv(configKeyListenAddr, "LISTEN_ADDR"); err != nil {
		return err
	}
	if err := viper.BindEnv(configKeyAdminToken, "ADMIN_TOKEN"); err != nil {
		return err
	}
	if err := viper.BindEnv(configKeyOrigins, "ALLOWED_ORIGINS"); err != nil {
		return err
	}

	if err := viper.BindPFlag(configKeyDatabaseURL, cmd.Flags().Lookup(flagDatabaseURL)); err != nil {
		return err
	}
	if err := viper.BindPFlag(configKeyDriver, cmd.Flags().Lookup(flagDatabaseDriver)); err != nil {
		return err
	}
	if err := viper.BindPFlag(configKeyListenAddr, cmd.Flags().Lookup(flagListenAddr)); err != nil {
		return err
	}
	if err := viper.BindPFlag(configKeyAdminToken, cmd.Flags().Lookup(flagAdminToken)); err != nil {
		return err
	}
	if err := viper.BindPFlag(configKeyOrigins, cmd.Flags().Lookup(flagAllowedOrigins)); err != nil {
		return err
	}

	cfg.DatabaseURL = viper.GetString(configKeyDatabaseURL)
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = defaultDatabaseURL
	}
	cfg.DatabaseDriver = viper.GetString(configKeyDriver)
	if cfg.DatabaseDriver == "" {
		cfg.DatabaseDriver = defaultDatabaseDriver
	}
	cfg.ListenAddr = viper.GetString(configKeyListenAddr)
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = defaultHTTPListenAddr
	}
	cfg.AdminToken = viper.GetString(configKeyAdminToken)
	cfg.AllowedOrigins = viper.GetString(configKeyOrigins)
	return nil
}

func runServer(ctx context.Context, cfg *runtimeConfig) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	store, cleanup, err := openStore(ctx, cfg.DatabaseURL, cfg.DatabaseDriver)
	if err != nil {
		return fmt.Errorf("store open: %w", err)
	}
	defer cleanup()

	clock := func() time.Time { return time.Now().UTC() }
	service, err := board.NewService(store, clock,
		board.WithOperationLogger(httpserver.NewOperationLogger(logger)))
	if err != nil {
		return fmt.Errorf("service init: %w", err)
	}

	serverConfig := httpserver.Config{
		ListenAddr:     cfg.ListenAddr,
		AdminToken:     cfg.AdminToken,
		AllowedOrigins: httpserver.ParseAllowedOrigins(cfg.AllowedOrigins),
	}
	if err := serverConfig.Validate(); err != nil {
		return err
	}
	return httpserver.Run(ctx, serverConfig, service, logger)
}

// openStore resolves the DSN and driver to a storage backend. Postgres URLs
// go through GORM by default, or through the raw pgx store when the driver is
// set to pgx; anything else is treated as a sqlite path behind GORM.
func openStore(ctx context.Context, dsn string, driver string) (board.Store, func(), error) {
	kind, err := resolveStoreKind(dsn, driver)
	if err != nil {
		return nil, nil, err
	}

	switch kind {
	case storeKindPgxPostgres:
		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			return nil, nil, err
		}
		if err := pgstore.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return pgstore.New(pool), pool.Close, nil
	case storeKindGormPostgres:
		db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err != nil {
			return nil, nil, err
		}
		return finishGormStore(ctx, db)
	default:
		sqlitePath, err := resolveSQLitePath(dsn)
		if err != nil {
			return nil, nil, err
		}
		db, err := gorm.Open(sqlite.Open(sqlitePath), &gorm.Config{})
		if err != nil {
			return nil, nil, err
		}
		return finishGormStore(ctx, db)
	}
}

func finishGormStore(ctx context.Context, db *gorm.DB) (board.Store, func(), error) {
	if err := gormstore.Migrate(db); err != nil {
		return nil, nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() { _ = sqlDB.Close() }
	return gormstore.New(db.WithContext(ctx)), cleanup, nil
}

func resolveStoreKind(dsn string, driver string) (storeKind, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		switch driver {
		case databaseDriverPgx:
			return storeKindPgxPostgres, nil
		case databaseDriverGorm, "":
			return storeKindGormPostgres, nil
		}
		return "", fmt.Errorf("unsupported database driver %q", driver)
	}
	return storeKindSQLite, nil
}

func resolveSQLitePath(dsn string) (string, error) {
	path := dsn
	if strings.HasPrefix(dsn, "sqlite://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", fmt.Errorf("parse sqlite url: %w", err)
		}
		path = u.Path
		if path == "" {
			path = u.Host
		}
		if path == "" || path == "/" {
			path = "cartowl.db"
		}
	}
	return normalizeSQLitePath(path)
}

func normalizeSQLitePath(path string) (string, error) {
	if path == ":memory:" {
		return path, nil
	}
	if strings.HasPrefix(path, "/") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return "", err
		}
		return path, nil
	}
	abs := filepath.Join(".", path)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", err
	}
	return abs, nil
}
