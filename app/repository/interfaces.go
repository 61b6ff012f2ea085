package repository

import (
	"context"
	"time"

	"github.com/ManuelReschke/CourseCheckout/app/models"
	"gorm.io/gorm"
)

const (
	DefaultListLimit = 100
	MaxListLimit     = 500
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	CreateIfNotExists(ctx context.Context, user *models.User) (bool, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, offset, limit int) ([]models.User, error)
	Count(ctx context.Context) (int64, error)
}

// TransactionRepository defines the interface for gateway transaction mirrors
type TransactionRepository interface {
	Upsert(ctx context.Context, tx *models.Transaction) error
	GetByExternalID(ctx context.Context, externalID string) (*models.Transaction, error)
	List(ctx context.Context, status string, offset, limit int) ([]models.Transaction, error)
	ListByStatusBefore(ctx context.Context, status string, before time.Time, limit int) ([]models.Transaction, error)
	Count(ctx context.Context) (int64, error)
}

// EnrollmentRepository defines the interface for course enrollments
type EnrollmentRepository interface {
	CreateIfNotExists(ctx context.Context, enrollment *models.Enrollment) (bool, error)
	GetByEmailAndCourse(ctx context.Context, email, courseID string) (*models.Enrollment, error)
	List(ctx context.Context, email string, offset, limit int) ([]models.Enrollment, error)
	Count(ctx context.Context) (int64, error)
}

// WebhookEventRepository defines the interface for the webhook delivery log
type WebhookEventRepository interface {
	CreateIfNotExists(ctx context.Context, event *models.WebhookEvent) (bool, *models.WebhookEvent, error)
	MarkProcessed(ctx context.Context, id uint, processingError string) error
	List(ctx context.Context, offset, limit int) ([]models.WebhookEvent, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	User         UserRepository
	Transaction  TransactionRepository
	Enrollment   EnrollmentRepository
	WebhookEvent WebhookEventRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:         NewUserRepository(db),
		Transaction:  NewTransactionRepository(db),
		Enrollment:   NewEnrollmentRepository(db),
		WebhookEvent: NewWebhookEventRepository(db),
	}
}

func clampLimit(offset, limit int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	return offset, limit
}
