package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/account"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/config"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/database"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/logging"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"
)

const usage = "usage: up | down [steps] | version | force <version> | seed"

var errUsage = errors.New(usage)

type command struct {
	name string
	// steps for down, version for force
	arg int
}

func parseCommand(args []string) (command, error) {
	if len(args) == 0 {
		return command{}, errUsage
	}

	cmd := command{name: args[0]}

	switch cmd.name {
	case "up", "version", "seed":
		if len(args) != 1 {
			return command{}, errUsage
		}
	case "down":
		cmd.arg = 1

		if len(args) == 2 {
			steps, err := strconv.Atoi(args[1])
			if err != nil || steps < 1 {
				return command{}, fmt.Errorf("invalid steps %q: %w", args[1], errUsage)
			}

			cmd.arg = steps
		} else if len(args) > 2 {
			return command{}, errUsage
		}
	case "force":
		if len(args) != 2 {
			return command{}, errUsage
		}

		version, err := strconv.Atoi(args[1])
		if err != nil || version < 0 {
			return command{}, fmt.Errorf("invalid version %q: %w", args[1], errUsage)
		}

		cmd.arg = version
	default:
		return command{}, fmt.Errorf("unknown command %q: %w", cmd.name, errUsage)
	}

	return cmd, nil
}

func sourceURL(migrationsPath string) (string, error) {
	abs, err := filepath.Abs(migrationsPath)
	if err != nil {
		return "", err
	}

	return "file://" + filepath.ToSlash(abs), nil
}

func main() {
	cmd, err := parseCommand(os.Args[1:])
	if err != nil {
		logging.Logger.Fatal("[migrate-apply] Invalid arguments", zap.String("error", err.Error()))
	}

	if cmd.name == "seed" {
		err = seedRoles(context.Background())
		if err != nil {
			logging.Logger.Fatal("[migrate-apply] Failed to seed roles", zap.String("error", err.Error()))
		}

		logging.Logger.Info("[migrate-apply] Roles seeded")

		return
	}

	source, err := sourceURL(config.Conf.MigrationsPath)
	if err != nil {
		logging.Logger.Fatal("[migrate-apply] Failed to resolve migrations path",
			zap.String("path", config.Conf.MigrationsPath),
			zap.String("error", err.Error()),
		)
	}

	migrator, err := migrate.New(source, database.GetURL())
	if err != nil {
		logging.Logger.Fatal("[migrate-apply] Failed to create migrator",
			zap.String("source", source),
			zap.String("error", err.Error()),
		)
	}

	defer migrator.Close()

	switch cmd.name {
	case "up":
		err = migrator.Up()
	case "down":
		err = migrator.Steps(-cmd.arg)
	case "force":
		err = migrator.Force(cmd.arg)
	}

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logging.Logger.Fatal("[migrate-apply] Migration failed",
			zap.String("command", cmd.name),
			zap.String("error", err.Error()),
		)
	}

	version, dirty, err := migrator.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		logging.Logger.Fatal("[migrate-apply] Failed to read version", zap.String("error", err.Error()))
	}

	logging.Logger.Info("[migrate-apply] Done",
		zap.String("command", cmd.name),
		zap.Uint("version", version),
		zap.Bool("dirty", dirty),
	)
}

// seedRoles inserts the admin and telecaller roles the API expects.
func seedRoles(ctx context.Context) error {
	dbConn, err := database.NewDatabase()
	if err != nil {
		return err
	}

	sqlDB, err := dbConn.DB()
	if err == nil {
		defer sqlDB.Close()
	}

	return account.NewAccountRepository(dbConn).SeedRoles(ctx)
}
