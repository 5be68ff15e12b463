// Package storeflags registers the storage flags shared by commands that
// read the tutor store directly, and opens the store they describe.
package storeflags

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/tutor/cmd/tutor/sqlitepath"
	"github.com/papercomputeco/tutor/pkg/bootstrap"
	"github.com/papercomputeco/tutor/pkg/config"
	"github.com/papercomputeco/tutor/pkg/logger"
)

// Flags holds the storage flag targets of one command.
type Flags struct {
	driver     string
	sqlitePath string
	postgres   string
}

// Register adds --storage-driver, --sqlite and --postgres to cmd. Flags on
// a parent command are inherited by its subcommands.
func Register(cmd *cobra.Command) *Flags {
	f := &Flags{}
	config.AddPersistentStringFlag(cmd, config.StorageFlags, config.FlagStorageDriver, &f.driver)
	config.AddPersistentStringFlag(cmd, config.StorageFlags, config.FlagSQLite, &f.sqlitePath)
	config.AddPersistentStringFlag(cmd, config.StorageFlags, config.FlagPostgres, &f.postgres)
	return f
}

// Open resolves the configuration of cmd and opens the stores over it.
func Open(ctx context.Context, cmd *cobra.Command) (*bootstrap.Stores, *config.Config, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Resolve(cmd, config.StorageFlags)
	if err != nil {
		return nil, nil, err
	}

	configDir, _ := cmd.Flags().GetString("config-dir")
	if err := sqlitepath.Apply(cfg, configDir); err != nil {
		return nil, nil, err
	}

	log := logger.Nop()
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		log = logger.New(logger.WithDebug(true), logger.WithPretty(true), logger.WithWriter(cmd.ErrOrStderr()))
	}

	stores, err := bootstrap.OpenStores(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return stores, cfg, nil
}
