package catalog

import (
	"context"
	"errors"
	"strings"

	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/apperr"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/database"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/logging"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/query"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Entry interface {
	Course | Service | Mettad | Checklist
}

// Store is the shared CRUD repository for one reference table.
type Store[T Entry] struct {
	DBConn         *gorm.DB
	CircuitBreaker *gobreaker.CircuitBreaker[any]
	Resource       string
	NameColumn     string
}

func NewStore[T Entry](dbConn *gorm.DB, resource, nameColumn string) *Store[T] {
	return &Store[T]{
		DBConn:         dbConn,
		CircuitBreaker: database.NewCircuitBreaker(),
		Resource:       resource,
		NameColumn:     nameColumn,
	}
}

func (store *Store[T]) Create(ctx context.Context, entry *T) error {
	return database.Run(store.CircuitBreaker, func() error {
		err := store.DBConn.WithContext(ctx).Create(entry).Error
		if err != nil {
			logging.Logger.Error("[CreateCatalogEntry] Failed to create entry",
				zap.String("resource", store.Resource),
				zap.String("error", err.Error()),
				zap.Bool("is_context_error", ctx.Err() != nil),
			)
		}

		return err
	})
}

func (store *Store[T]) Get(ctx context.Context, id uint) (*T, error) {
	entry, err := database.Execute(store.CircuitBreaker, func() (*T, error) {
		var entry T

		err := store.DBConn.WithContext(ctx).First(&entry, id).Error
		if err != nil {
			return nil, err
		}

		return &entry, nil
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound(store.Resource)
	}

	return entry, err
}

func (store *Store[T]) List(
	ctx context.Context,
	search string,
	activeOnly bool,
	page query.Page,
) (query.Result[T], error) {
	return database.Execute(store.CircuitBreaker, func() (query.Result[T], error) {
		result := query.Result[T]{Page: page}

		stmt := store.DBConn.WithContext(ctx).Model(new(T))
		if search != "" {
			stmt = stmt.Where("LOWER("+store.NameColumn+") LIKE ?", query.Contains(search))
		}

		if activeOnly {
			stmt = stmt.Where("is_active = ?", true)
		}

		stmt = stmt.Session(&gorm.Session{})

		err := stmt.Count(&result.Total).Error
		if err != nil {
			return result, err
		}

		err = stmt.Order(store.NameColumn + " ASC, id ASC").Scopes(page.Scope).Find(&result.Items).Error

		return result, err
	})
}

func (store *Store[T]) Update(ctx context.Context, id uint, updates map[string]any) (*T, error) {
	_, err := store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if len(updates) > 0 {
		err = database.Run(store.CircuitBreaker, func() error {
			err := store.DBConn.WithContext(ctx).Model(new(T)).Where("id = ?", id).Updates(updates).Error
			if err != nil {
				logging.Logger.Error("[UpdateCatalogEntry] Failed to update entry",
					zap.String("resource", store.Resource),
					zap.Uint("id", id),
					zap.String("error", err.Error()),
				)
			}

			return err
		})
		if err != nil {
			return nil, err
		}
	}

	return store.Get(ctx, id)
}

func (store *Store[T]) Delete(ctx context.Context, id uint) error {
	_, err := store.Get(ctx, id)
	if err != nil {
		return err
	}

	return database.Run(store.CircuitBreaker, func() error {
		return store.DBConn.WithContext(ctx).Delete(new(T), id).Error
	})
}

// IDByName resolves a case-insensitive exact name to an id; unknown names yield nil.
func (store *Store[T]) IDByName(ctx context.Context, name string) (*uint, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return nil, nil
	}

	return database.Execute(store.CircuitBreaker, func() (*uint, error) {
		var ids []uint

		err := store.DBConn.WithContext(ctx).
			Model(new(T)).
			Where("LOWER("+store.NameColumn+") = ?", name).
			Order("id ASC").
			Limit(1).
			Pluck("id", &ids).Error
		if err != nil || len(ids) == 0 {
			return nil, err
		}

		return &ids[0], nil
	})
}
