package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agrodash/backend/internal/domain/projection"
	"github.com/agrodash/backend/internal/infrastructure/persistence/models"
)

// GormAssetRepository implements projection.AssetRegistry using GORM
type GormAssetRepository struct {
	db *gorm.DB
}

// NewGormAssetRepository creates a new GormAssetRepository
func NewGormAssetRepository(db *gorm.DB) *GormAssetRepository {
	return &GormAssetRepository{db: db}
}

// GetValues returns the asset values recorded for one harvest. A harvest
// without a row has zero values.
func (r *GormAssetRepository) GetValues(ctx context.Context, organizationID, harvestID uuid.UUID) (projection.AssetValues, error) {
	var row models.AssetValueModel
	err := r.db.WithContext(ctx).
		Where("organization_id = ? AND harvest_id = ?", organizationID, harvestID).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return projection.AssetValues{HarvestID: harvestID}, nil
	}
	if err != nil {
		return projection.AssetValues{}, err
	}
	return row.ToDomain(), nil
}

// Ensure GormAssetRepository implements AssetRegistry
var _ projection.AssetRegistry = (*GormAssetRepository)(nil)
