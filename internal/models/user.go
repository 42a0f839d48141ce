package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	// RoleStudent identifies learners who submit work.
	RoleStudent = "student"
	// RoleTeacher identifies staff who run analyses.
	RoleTeacher = "teacher"
)

// User is a student or a teacher.
type User struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Email     string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Role      string    `gorm:"size:16;not null" json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns a UUID when none was provided.
func (u *User) BeforeCreate(_ *gorm.DB) error {
	ensureID(&u.ID)
	return nil
}
