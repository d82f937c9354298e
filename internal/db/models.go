package db

import (
	"time"

	"gorm.io/datatypes"
)

type Question struct {
	ID           uint                        `gorm:"primaryKey"`
	Category     string                      `gorm:"size:64;not null;default:'';index;uniqueIndex:idx_questions_category_text"`
	Text         string                      `gorm:"size:500;not null;uniqueIndex:idx_questions_category_text"`
	Options      datatypes.JSONSlice[string] `gorm:"type:jsonb;not null"`
	CorrectIndex int                         `gorm:"not null"`
	CreatedAt    time.Time                   `gorm:"not null"`
	UpdatedAt    time.Time                   `gorm:"not null"`
}

type User struct {
	ID           uint      `gorm:"primaryKey"`
	Username     string    `gorm:"size:64;not null;uniqueIndex"`
	PasswordHash string    `gorm:"size:255;not null"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}
