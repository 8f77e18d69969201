package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ByID struct {
	ID uuid.UUID
}

func (s ByID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("id = ?", s.ID)
}

// sortableColumns are the only columns OrderBy will emit; anything else falls back to created_at.
var sortableColumns = map[string]struct{}{
	"created_at": {},
	"updated_at": {},
}

type OrderBy struct {
	Field string
	Desc  bool
}

func (s OrderBy) Apply(db *gorm.DB) *gorm.DB {
	field := s.Field
	if _, ok := sortableColumns[field]; !ok {
		field = "created_at"
	}
	return db.Order(clause.OrderByColumn{Column: clause.Column{Name: field}, Desc: s.Desc})
}

// Pagination caps the result set. A non-positive Limit leaves it unbounded.
type Pagination struct {
	Limit  int
	Offset int
}

func (s Pagination) Apply(db *gorm.DB) *gorm.DB {
	if s.Limit > 0 {
		db = db.Limit(s.Limit)
	}
	if s.Offset > 0 {
		db = db.Offset(s.Offset)
	}
	return db
}
