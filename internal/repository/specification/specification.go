package specification

import "gorm.io/gorm"

// Specification narrows a repository query. Specs compose in argument order.
type Specification interface {
	Apply(db *gorm.DB) *gorm.DB
}
