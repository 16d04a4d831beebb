package models

import "time"

// CourseProgress tracks how far a user has come in a course. One row per
// user/course pair; all writes are absolute sets, never increments.
type CourseProgress struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	UserID             uint      `gorm:"not null;index:ux_course_progress_user_course,unique,priority:1" json:"user_id"`
	CourseID           uint      `gorm:"not null;index:ux_course_progress_user_course,unique,priority:2" json:"course_id"`
	Completed          bool      `gorm:"default:false" json:"completed"`
	ProgressPercentage int       `gorm:"default:0" json:"progress_percentage" validate:"min=0,max=100"`
	LastAccessed       *time.Time `gorm:"type:timestamp;default:null" json:"last_accessed"`
	CreatedAt          time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
