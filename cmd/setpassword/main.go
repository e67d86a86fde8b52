package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/MarkoPoloResearchLab/cartowl/internal/store/gormstore"
	"github.com/MarkoPoloResearchLab/cartowl/internal/store/pgstore"
	"github.com/MarkoPoloResearchLab/cartowl/pkg/board"
	"github.com/glebarez/sqlite"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const (
	flagDatabaseURL      = "database-url"
	flagDatabaseDriver   = "database-driver"
	configKeyDatabaseURL = "database_url"
	configKeyDriver      = "database_driver"
	defaultDatabaseURL   = "sqlite://cartowl.db"
	databaseDriverGorm   = "gorm"
	databaseDriverPgx    = "pgx"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "setpassword: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "setpassword <password>",
		Short:         "Set the admin password for the board",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return setPassword(cmd, args[0])
		},
	}
	cmd.Flags().String(flagDatabaseURL, defaultDatabaseURL, "database connection string (sqlite path or postgres URL)")
	cmd.Flags().String(flagDatabaseDriver, databaseDriverGorm, "postgres access layer, gorm or pgx (ignored for sqlite)")
	return cmd
}

func setPassword(cmd *cobra.Command, password string) error {
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	if err := viper.BindEnv(configKeyDatabaseURL, "DATABASE_URL"); err != nil {
		return err
	}
	if err := viper.BindEnv(configKeyDriver, "DATABASE_DRIVER"); err != nil {
		return err
	}
	if err := viper.BindPFlag(configKeyDatabaseURL, cmd.Flags().Lookup(flagDatabaseURL)); err != nil {
		return err
	}
	if err := viper.BindPFlag(configKeyDriver, cmd.Flags().Lookup(flagDatabaseDriver)); err != nil {
		return err
	}
	dsn := viper.GetString(configKeyDatabaseURL)
	if dsn == "" {
		dsn = defaultDatabaseURL
	}
	driver := viper.GetString(configKeyDriver)
	if driver == "" {
		driver = databaseDriverGorm
	}

	ctx := cmd.Context()
	store, cleanup, err := openStore(ctx, dsn, driver)
	if err != nil {
		return fmt.Errorf("store open: %w", err)
	}
	defer cleanup()

	service, err := board.NewService(store, func() time.Time { return time.Now().UTC() })
	if err != nil {
		return err
	}
	if err := service.SetAdminPassword(ctx, password); err != nil {
		return err
	}
	fmt.Println("Admin password updated successfully.")
	return nil
}

func openStore(ctx context.Context, dsn string, driver string) (board.Store, func(), error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		switch driver {
		case databaseDriverPgx:
			pool, err := pgxpool.New(ctx, dsn)
			if err != nil {
				return nil, nil, err
			}
			if err := pgstore.Migrate(ctx, pool); err != nil {
				pool.Close()
				return nil, nil, err
			}
			return pgstore.New(pool), pool.Close, nil
		case databaseDriverGorm:
			db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
			if err != nil {
				return nil, nil, err
			}
			return finishGormStore(ctx, db)
		}
		return nil, nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	path := strings.TrimPrefix(dsn, "sqlite://")
	if path == "" {
		path = "cartowl.db"
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, nil, err
	}
	return finishGormStore(ctx, db)
}

func finishGormStore(ctx context.Context, db *gorm.DB) (board.Store, func(), error) {
	if err := gormstore.Migrate(db); err != nil {
		return nil, nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, err
	}
	return gormstore.New(db.WithContext(ctx)), func() { _ = sqlDB.Close() }, nil
}
