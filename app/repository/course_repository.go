package repository

import (
	"strings"

	"github.com/aicser/aicser-studio/app/models"
	"gorm.io/gorm"
)

// courseRepository implements the CourseRepository interface
type courseRepository struct {
	db *gorm.DB
}

// NewCourseRepository creates a new course repository instance
func NewCourseRepository(db *gorm.DB) CourseRepository {
	return &courseRepository{db: db}
}

// Create creates a new course in the database
func (r *courseRepository) Create(course *models.Course) error {
	return r.db.Create(course).Error
}

// GetByID retrieves a course by its ID
func (r *courseRepository) GetByID(id uint) (*models.Course, error) {
	var course models.Course
	err := r.db.First(&course, id).Error
	if err != nil {
		return nil, err
	}
	return &course, nil
}

// GetByUUID retrieves a course by its UUID
func (r *courseRepository) GetByUUID(uuid string) (*models.Course, error) {
	var course models.Course
	err := r.db.Where("uuid = ?", uuid).First(&course).Error
	if err != nil {
		return nil, err
	}
	return &course, nil
}

// List retrieves a paginated list of courses
func (r *courseRepository) List(offset, limit int) ([]models.Course, error) {
	var courses []models.Course
	err := r.db.Order("created_at DESC").Offset(offset).Limit(limit).Find(&courses).Error
	return courses, err
}

// Update updates an existing course in the database
func (r *courseRepository) Update(course *models.Course) error {
	return r.db.Save(course).Error
}

// Delete soft deletes a course by its ID
func (r *courseRepository) Delete(id uint) error {
	return r.db.Delete(&models.Course{}, id).Error
}

// Count returns the total number of courses
func (r *courseRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Course{}).Count(&count).Error
	return count, err
}

// Search searches for courses by title or description
func (r *courseRepository) Search(query string) ([]models.Course, error) {
	var courses []models.Course
	searchPattern := "%" + strings.TrimSpace(query) + "%"
	err := r.db.Where("title LIKE ? OR description LIKE ?", searchPattern, searchPattern).Find(&courses).Error
	return courses, err
}
