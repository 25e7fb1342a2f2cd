package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agrodash/backend/internal/domain/projection"
	"github.com/agrodash/backend/internal/infrastructure/persistence/models"
)

// GormDebtRepository implements projection.DebtRegistry using GORM
type GormDebtRepository struct {
	db *gorm.DB
}

// NewGormDebtRepository creates a new GormDebtRepository
func NewGormDebtRepository(db *gorm.DB) *GormDebtRepository {
	return &GormDebtRepository{db: db}
}

// ListInstruments returns the organization's debt instruments with their
// payment schedules, in entry order. A nil category returns every category.
func (r *GormDebtRepository) ListInstruments(ctx context.Context, organizationID uuid.UUID, category *projection.DebtCategory) ([]projection.DebtInstrument, error) {
	query := r.db.WithContext(ctx).
		Preload("Payments").
		Where("organization_id = ?", organizationID)
	if category != nil {
		query = query.Where("category = ?", string(*category))
	}

	var rows []models.DebtInstrumentModel
	if err := query.Order("created_at ASC").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}

	instruments := make([]projection.DebtInstrument, 0, len(rows))
	for i := range rows {
		instruments = append(instruments, rows[i].ToDomain())
	}
	return instruments, nil
}

// Ensure GormDebtRepository implements DebtRegistry
var _ projection.DebtRegistry = (*GormDebtRepository)(nil)
