package model

import "github.com/google/uuid"

type Category struct {
	BaseModel
	Name        string `gorm:"type:varchar(50);uniqueIndex;not null" json:"name"`
	Description string `gorm:"type:varchar(200)" json:"description"`
}

// CategorySummary is the subset of a category embedded in item responses.
type CategorySummary struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}
