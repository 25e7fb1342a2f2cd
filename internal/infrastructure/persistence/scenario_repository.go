package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agrodash/backend/internal/domain/projection"
	"github.com/agrodash/backend/internal/domain/shared"
	"github.com/agrodash/backend/internal/infrastructure/persistence/models"
)

// GormScenarioRepository implements projection.ScenarioRegistry using GORM
type GormScenarioRepository struct {
	db *gorm.DB
}

// NewGormScenarioRepository creates a new GormScenarioRepository
func NewGormScenarioRepository(db *gorm.DB) *GormScenarioRepository {
	return &GormScenarioRepository{db: db}
}

// Get loads a scenario with its per-harvest adjustments
func (r *GormScenarioRepository) Get(ctx context.Context, scenarioID uuid.UUID) (*projection.Scenario, error) {
	var row models.ScenarioModel
	if err := r.db.WithContext(ctx).
		Preload("Adjustments").
		First(&row, "id = ?", scenarioID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return row.ToDomain(), nil
}

// Ensure GormScenarioRepository implements ScenarioRegistry
var _ projection.ScenarioRegistry = (*GormScenarioRepository)(nil)
