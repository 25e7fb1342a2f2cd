package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agrodash/backend/internal/domain/projection"
	"github.com/agrodash/backend/internal/infrastructure/persistence/models"
)

// GormCashFlowRepository implements projection.RevenueExpenseRegistry using GORM
type GormCashFlowRepository struct {
	db *gorm.DB
}

// NewGormCashFlowRepository creates a new GormCashFlowRepository
func NewGormCashFlowRepository(db *gorm.DB) *GormCashFlowRepository {
	return &GormCashFlowRepository{db: db}
}

// ListLineItems returns every cash-flow line of the organization with its per-harvest values
func (r *GormCashFlowRepository) ListLineItems(ctx context.Context, organizationID uuid.UUID) ([]projection.CashFlowLineItem, error) {
	var rows []models.CashFlowItemModel
	if err := r.db.WithContext(ctx).
		Preload("Values").
		Where("organization_id = ?", organizationID).
		Order("category ASC").
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	items := make([]projection.CashFlowLineItem, 0, len(rows))
	for i := range rows {
		items = append(items, rows[i].ToDomain())
	}
	return items, nil
}

// Ensure GormCashFlowRepository implements RevenueExpenseRegistry
var _ projection.RevenueExpenseRegistry = (*GormCashFlowRepository)(nil)
