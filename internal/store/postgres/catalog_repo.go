package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"stylebook/backend/internal/domain"
	"stylebook/backend/internal/store"
)

// CatalogRepo serves the stylist and service lookups consumed by the booking
// flow. Inactive rows are treated as unknown.
type CatalogRepo struct {
	db *bun.DB
}

func NewCatalogRepo(db *bun.DB) *CatalogRepo {
	return &CatalogRepo{db: db}
}

func (r *CatalogRepo) GetStylist(ctx context.Context, stylistID uuid.UUID) (domain.Stylist, error) {
	var stylist domain.Stylist
	err := r.db.NewSelect().
		Model(&stylist).
		Where("id = ?", stylistID).
		Where("active").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Stylist{}, store.ErrUnknownStylist
		}
		return domain.Stylist{}, err
	}
	return stylist, nil
}

func (r *CatalogRepo) ListStylists(ctx context.Context) ([]domain.Stylist, error) {
	var rows []domain.Stylist
	err := r.db.NewSelect().
		Model(&rows).
		Where("active").
		OrderExpr("name ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *CatalogRepo) GetService(ctx context.Context, serviceID uuid.UUID) (domain.Service, error) {
	var svc domain.Service
	err := r.db.NewSelect().
		Model(&svc).
		Where("id = ?", serviceID).
		Where("active").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Service{}, store.ErrUnknownService
		}
		return domain.Service{}, err
	}
	return svc, nil
}

func (r *CatalogRepo) ListServices(ctx context.Context) ([]domain.Service, error) {
	var rows []domain.Service
	err := r.db.NewSelect().
		Model(&rows).
		Where("active").
		OrderExpr("name ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
