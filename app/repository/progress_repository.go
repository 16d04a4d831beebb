package repository

import (
	"github.com/aicser/aicser-studio/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// progressRepository implements the ProgressRepository interface
type progressRepository struct {
	db *gorm.DB
}

// NewProgressRepository creates a new course progress repository instance
func NewProgressRepository(db *gorm.DB) ProgressRepository {
	return &progressRepository{db: db}
}

// GetByUserAndCourse retrieves the progress record for one user on one course
func (r *progressRepository) GetByUserAndCourse(userID, courseID uint) (*models.CourseProgress, error) {
	var progress models.CourseProgress
	err := r.db.Where("user_id = ? AND course_id = ?", userID, courseID).First(&progress).Error
	if err != nil {
		return nil, err
	}
	return &progress, nil
}

// GetByUser retrieves all progress records for a user
func (r *progressRepository) GetByUser(userID uint) ([]models.CourseProgress, error) {
	var progress []models.CourseProgress
	err := r.db.Where("user_id = ?", userID).Order("last_accessed DESC").Find(&progress).Error
	return progress, err
}

// Upsert inserts or updates a progress record. The unique index on
// (user_id, course_id) guarantees a single row per pairing.
func (r *progressRepository) Upsert(progress *models.CourseProgress) error {
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "course_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"completed", "progress_percentage", "last_accessed", "updated_at",
		}),
	}).Create(progress).Error
}

// CountCompletedByUser counts the courses a user has completed
func (r *progressRepository) CountCompletedByUser(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.CourseProgress{}).
		Where("user_id = ? AND completed = ?", userID, true).
		Count(&count).Error
	return count, err
}
