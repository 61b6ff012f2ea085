package models

import "time"

const EnrollmentStatusActive = "active"

// Enrollment grants access to a course. (email, course_id) is unique.
type Enrollment struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        *uint     `gorm:"index" json:"user_id,omitempty"`
	Email         string    `gorm:"type:varchar(150);not null;uniqueIndex:ux_enrollments_email_course,priority:1" json:"email"`
	CourseID      string    `gorm:"type:varchar(100);not null;uniqueIndex:ux_enrollments_email_course,priority:2" json:"course_id"`
	TransactionID *uint     `gorm:"index" json:"transaction_id,omitempty"`
	Status        string    `gorm:"type:varchar(32);not null;default:'active'" json:"status"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}
