// Package models contains the GORM persistence models of the projection
// inputs. They are kept apart from the domain types so the domain stays free
// of ORM tags; every model converts itself with ToDomain.
//
// Root tables carry organization_id. Per-harvest amounts live in child tables
// (debt_payments, cash_flow_values, scenario_adjustments) keyed by harvest id.
package models
