package models

import (
	"time"

	"gorm.io/gorm"
)

// Class groups students under a teacher for a semester.
type Class struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	Code      string    `gorm:"size:16;uniqueIndex;not null" json:"code"`
	CreatedBy string    `gorm:"type:varchar(36);not null" json:"created_by"`
	Semester  string    `gorm:"size:64" json:"semester"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns a UUID when none was provided.
func (c *Class) BeforeCreate(_ *gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// ClassMember enrolls a user in a class.
type ClassMember struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	ClassID   string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_class_member" json:"class_id"`
	UserID    string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_class_member" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// BeforeCreate assigns a UUID when none was provided.
func (m *ClassMember) BeforeCreate(_ *gorm.DB) error {
	ensureID(&m.ID)
	return nil
}
