package repository

import (
	"time"

	"github.com/aicser/aicser-studio/app/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByActivationToken(token string) (*models.User, error)
	Update(user *models.User) error
	UpdateFields(id uint, fields map[string]interface{}) error
	Delete(id uint) error
	List(offset, limit int) ([]models.User, error)
	Count() (int64, error)
	CountBySubscriptionStatus(status string) (int64, error)
	Search(query string) ([]models.User, error)
}

// CourseRepository defines the interface for course-related database operations
type CourseRepository interface {
	Create(course *models.Course) error
	GetByID(id uint) (*models.Course, error)
	GetByUUID(uuid string) (*models.Course, error)
	List(offset, limit int) ([]models.Course, error)
	Update(course *models.Course) error
	Delete(id uint) error
	Count() (int64, error)
	Search(query string) ([]models.Course, error)
}

// ProgressRepository defines the interface for course progress operations
type ProgressRepository interface {
	GetByUserAndCourse(userID, courseID uint) (*models.CourseProgress, error)
	GetByUser(userID uint) ([]models.CourseProgress, error)
	Upsert(progress *models.CourseProgress) error
	CountCompletedByUser(userID uint) (int64, error)
}

// PaymentRepository defines the interface for the append-only payment ledger
type PaymentRepository interface {
	Create(payment *models.Payment) error
	GetByUser(userID uint, offset, limit int) ([]models.Payment, error)
	List(offset, limit int) ([]models.Payment, error)
	Count() (int64, error)
	SumAmountSince(status string, since time.Time) (int64, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	User     UserRepository
	Course   CourseRepository
	Progress ProgressRepository
	Payment  PaymentRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:     NewUserRepository(db),
		Course:   NewCourseRepository(db),
		Progress: NewProgressRepository(db),
		Payment:  NewPaymentRepository(db),
	}
}
