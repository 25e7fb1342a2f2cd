package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agrodash/backend/internal/domain/projection"
	"github.com/agrodash/backend/internal/infrastructure/persistence/models"
)

// GormHarvestRepository implements projection.HarvestRegistry using GORM
type GormHarvestRepository struct {
	db *gorm.DB
}

// NewGormHarvestRepository creates a new GormHarvestRepository
func NewGormHarvestRepository(db *gorm.DB) *GormHarvestRepository {
	return &GormHarvestRepository{db: db}
}

// ListPeriods returns the organization's harvest periods ordered by start year
func (r *GormHarvestRepository) ListPeriods(ctx context.Context, organizationID uuid.UUID) ([]projection.HarvestPeriod, error) {
	var rows []models.HarvestPeriodModel
	if err := r.db.WithContext(ctx).
		Where("organization_id = ?", organizationID).
		Order("start_year ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	periods := make([]projection.HarvestPeriod, 0, len(rows))
	for i := range rows {
		periods = append(periods, rows[i].ToDomain())
	}
	return periods, nil
}

// ListOrganizations returns every organization with at least one harvest
func (r *GormHarvestRepository) ListOrganizations(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.HarvestPeriodModel{}).
		Distinct("organization_id").
		Order("organization_id").
		Pluck("organization_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// Ensure GormHarvestRepository implements HarvestRegistry
var _ projection.HarvestRegistry = (*GormHarvestRepository)(nil)
