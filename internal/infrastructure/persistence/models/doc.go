// Package models contains GORM persistence models that map to database tables.
// They are kept apart from domain entities so the domain layer stays free of
// ORM tags; each model converts to and from its entity with ToDomain/FromDomain.
//
//   - base.go: shared columns (ID, timestamps, version, actors)
//   - settlement.go: invoices, payments, allocations, ledger entries
//   - exchange_rate.go: exchange rates and synchronizer run records
//   - reference.go: read-only partner and currency replicas
package models
