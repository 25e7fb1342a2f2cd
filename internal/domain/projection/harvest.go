// Package projection holds the financial projection engine: the shared harvest
// axis, currency normalization, debt consolidation, cash-flow projection,
// scenario overlays and statement derivation.
//
// Everything in this package is a pure computation over values fetched by the
// application layer; nothing here performs I/O.
package projection

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/agrodash/backend/internal/domain/shared"
)

// HarvestPeriod is one agricultural cycle on the projection time axis.
type HarvestPeriod struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	StartYear int       `json:"start_year"`
	EndYear   int       `json:"end_year"`
}

// Validate checks the period on its own.
func (p HarvestPeriod) Validate() error {
	if p.ID == uuid.Nil {
		return NewValidationError("harvest_id", "harvest period id is required")
	}
	if p.StartYear <= 0 {
		return NewValidationError("start_year", fmt.Sprintf("harvest %s has invalid start year %d", p.ID, p.StartYear))
	}
	if p.EndYear < p.StartYear {
		return NewValidationError("end_year", fmt.Sprintf("harvest %s ends (%d) before it starts (%d)", p.ID, p.EndYear, p.StartYear))
	}
	return nil
}

// HarvestAxis is the validated, chronologically ordered list of harvest periods
// shared by every component of a run.
type HarvestAxis struct {
	periods []HarvestPeriod
	index   map[uuid.UUID]int
}

// NewHarvestAxis validates the periods and orders them by start year.
// Duplicate ids and two periods starting in the same year are rejected.
func NewHarvestAxis(periods []HarvestPeriod) (*HarvestAxis, error) {
	sorted := make([]HarvestPeriod, len(periods))
	copy(sorted, periods)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartYear < sorted[j].StartYear
	})

	index := make(map[uuid.UUID]int, len(sorted))
	for i, p := range sorted {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if _, dup := index[p.ID]; dup {
			return nil, NewValidationError("harvest_id", fmt.Sprintf("harvest %s is listed twice", p.ID))
		}
		if i > 0 && sorted[i-1].StartYear == p.StartYear {
			return nil, NewValidationError("start_year",
				fmt.Sprintf("harvests %s and %s both start in %d", sorted[i-1].ID, p.ID, p.StartYear))
		}
		index[p.ID] = i
	}

	return &HarvestAxis{periods: sorted, index: index}, nil
}

// Periods returns a copy of the ordered periods.
func (a *HarvestAxis) Periods() []HarvestPeriod {
	out := make([]HarvestPeriod, len(a.periods))
	copy(out, a.periods)
	return out
}

// Len returns the number of periods on the axis.
func (a *HarvestAxis) Len() int {
	return len(a.periods)
}

// At returns the i-th period in chronological order.
func (a *HarvestAxis) At(i int) HarvestPeriod {
	return a.periods[i]
}

// Contains reports whether id is a registered harvest.
func (a *HarvestAxis) Contains(id uuid.UUID) bool {
	_, ok := a.index[id]
	return ok
}

// IDs returns the harvest ids in chronological order.
func (a *HarvestAxis) IDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(a.periods))
	for i, p := range a.periods {
		ids[i] = p.ID
	}
	return ids
}

// PerHarvest is a mapping keyed by harvest ids that were checked against an axis.
// The zero value is an empty mapping.
type PerHarvest[T any] struct {
	values map[uuid.UUID]T
}

// BindPerHarvest checks every key of raw against the axis. Unknown keys are rejected
// with an UNKNOWN_HARVEST domain error naming the offending id.
func BindPerHarvest[T any](axis *HarvestAxis, raw map[uuid.UUID]T) (PerHarvest[T], error) {
	values := make(map[uuid.UUID]T, len(raw))
	for id, v := range raw {
		if !axis.Contains(id) {
			return PerHarvest[T]{}, shared.ErrUnknownHarvest.WithDetails(fmt.Sprintf("harvest_id=%s", id))
		}
		values[id] = v
	}
	return PerHarvest[T]{values: values}, nil
}

// Get returns the value bound to a harvest.
func (p PerHarvest[T]) Get(id uuid.UUID) (T, bool) {
	v, ok := p.values[id]
	return v, ok
}

// Len returns the number of bound harvests.
func (p PerHarvest[T]) Len() int {
	return len(p.values)
}
