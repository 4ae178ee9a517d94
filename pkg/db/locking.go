package db

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ForUpdate adds a row lock to query on Postgres. Other dialects (SQLite in
// tests) serialize writers already and get the query unchanged.
func ForUpdate(query *gorm.DB) *gorm.DB {
	if query.Dialector != nil && query.Dialector.Name() == "postgres" {
		return query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return query
}
