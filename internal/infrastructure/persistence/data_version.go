package persistence

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
	"gorm.io/gorm"

	"github.com/agrodash/backend/internal/domain/projection"
)

// versionSize is the digest length in bytes; versions print as 16 hex chars.
const versionSize = 8

// versionSources lists the statements fingerprinting each input table of an
// organization. Child tables are joined to their owner so that edits to a
// single payment or value also move the version.
var versionSources = []struct {
	table string
	query string
}{
	{"harvest_periods", `SELECT COUNT(*) AS row_count, MAX(updated_at) AS latest FROM harvest_periods WHERE organization_id = ?`},
	{"debt_instruments", `SELECT COUNT(*) AS row_count, MAX(updated_at) AS latest FROM debt_instruments WHERE organization_id = ?`},
	{"debt_payments", `SELECT COUNT(*) AS row_count, MAX(c.updated_at) AS latest FROM debt_payments c
		JOIN debt_instruments p ON p.id = c.instrument_id WHERE p.organization_id = ?`},
	{"cash_flow_items", `SELECT COUNT(*) AS row_count, MAX(updated_at) AS latest FROM cash_flow_items WHERE organization_id = ?`},
	{"cash_flow_values", `SELECT COUNT(*) AS row_count, MAX(c.updated_at) AS latest FROM cash_flow_values c
		JOIN cash_flow_items p ON p.id = c.item_id WHERE p.organization_id = ?`},
	{"scenarios", `SELECT COUNT(*) AS row_count, MAX(updated_at) AS latest FROM scenarios WHERE organization_id = ?`},
	{"scenario_adjustments", `SELECT COUNT(*) AS row_count, MAX(c.updated_at) AS latest FROM scenario_adjustments c
		JOIN scenarios p ON p.id = c.scenario_id WHERE p.organization_id = ?`},
	{"asset_values", `SELECT COUNT(*) AS row_count, MAX(updated_at) AS latest FROM asset_values WHERE organization_id = ?`},
}

// GormDataVersionSource implements projection.DataVersionSource by hashing the
// row count and latest update time of every input table.
type GormDataVersionSource struct {
	db *gorm.DB
}

// NewGormDataVersionSource creates a new GormDataVersionSource
func NewGormDataVersionSource(db *gorm.DB) *GormDataVersionSource {
	return &GormDataVersionSource{db: db}
}

type tableVersion struct {
	RowCount int64
	Latest   sql.NullString
}

// InputDataVersion returns a short fingerprint of the organization's inputs.
// Deleting a row changes the count, editing one changes the latest time.
func (s *GormDataVersionSource) InputDataVersion(ctx context.Context, organizationID uuid.UUID) (string, error) {
	h, err := blake2b.New(versionSize, nil)
	if err != nil {
		return "", err
	}
	db := s.db.WithContext(ctx)
	for _, src := range versionSources {
		var v tableVersion
		if err := db.Raw(src.query, organizationID).Scan(&v).Error; err != nil {
			return "", fmt.Errorf("version of %s: %w", src.table, err)
		}
		fmt.Fprintf(h, "%s:%d:%s;", src.table, v.RowCount, v.Latest.String)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Ensure GormDataVersionSource implements DataVersionSource
var _ projection.DataVersionSource = (*GormDataVersionSource)(nil)
