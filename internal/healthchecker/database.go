package healthchecker

import (
	"context"

	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/database"
	"gorm.io/gorm"
)

func CheckDB(dbConn *gorm.DB) Check {
	return func(ctx context.Context) error {
		return database.Ping(ctx, dbConn)
	}
}
