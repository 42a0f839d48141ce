package models

import (
	"time"

	"gorm.io/gorm"
)

// Assignment is a piece of work students submit text for.
type Assignment struct {
	ID              string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Title           string    `gorm:"size:255;not null" json:"title"`
	ClassID         string    `gorm:"type:varchar(36);index;not null" json:"class_id"`
	CreatedBy       string    `gorm:"type:varchar(36);not null" json:"created_by"`
	Deadline        time.Time `gorm:"not null" json:"deadline"`
	SubmissionsOpen bool      `gorm:"not null" json:"submissions_open"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// BeforeCreate assigns a UUID when none was provided.
func (a *Assignment) BeforeCreate(_ *gorm.DB) error {
	ensureID(&a.ID)
	return nil
}

// AcceptsSubmissions reports whether new submissions may be created at reference.
func (a Assignment) AcceptsSubmissions(reference time.Time) bool {
	return a.SubmissionsOpen && !reference.After(a.Deadline)
}
