package specification

import "gorm.io/gorm"

// Specification narrows a query. Repositories fold them onto the base query in order.
type Specification interface {
	Apply(db *gorm.DB) *gorm.DB
}

func ApplyAll(db *gorm.DB, specs ...Specification) *gorm.DB {
	for _, spec := range specs {
		if spec == nil {
			continue
		}
		db = spec.Apply(db)
	}
	return db
}
