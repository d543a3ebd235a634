package entities

import (
	"github.com/google/uuid"
)

type Tag struct {
	ID    uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Name  string    `gorm:"size:100" json:"name"`
	Color string    `gorm:"size:100" json:"color"`
	Slug  string    `gorm:"uniqueIndex;size:100" json:"slug"`

	Recipes []Recipe `gorm:"many2many:recipe_tags" json:"-"`
	Timestamp
}
