package repository

import (
	"context"

	"github.com/ManuelReschke/CourseCheckout/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type enrollmentRepository struct {
	db *gorm.DB
}

func NewEnrollmentRepository(db *gorm.DB) EnrollmentRepository {
	return &enrollmentRepository{db: db}
}

// CreateIfNotExists inserts the enrollment unless (email, course_id) already
// exists. The unique index makes this safe under concurrent deliveries.
func (r *enrollmentRepository) CreateIfNotExists(ctx context.Context, enrollment *models.Enrollment) (bool, error) {
	enrollment.Email = models.NormalizeEmail(enrollment.Email)
	if enrollment.Status == "" {
		enrollment.Status = models.EnrollmentStatusActive
	}

	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}, {Name: "course_id"}},
		DoNothing: true,
	}).Create(enrollment)
	if tx.Error != nil {
		return false, tx.Error
	}

	created := tx.RowsAffected > 0
	err := r.db.WithContext(ctx).
		Where("email = ? AND course_id = ?", enrollment.Email, enrollment.CourseID).
		First(enrollment).Error
	if err != nil {
		return false, err
	}
	return created, nil
}

func (r *enrollmentRepository) GetByEmailAndCourse(ctx context.Context, email, courseID string) (*models.Enrollment, error) {
	var e models.Enrollment
	err := r.db.WithContext(ctx).
		Where("email = ? AND course_id = ?", models.NormalizeEmail(email), courseID).
		First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// List returns enrollments newest first, optionally filtered by email.
func (r *enrollmentRepository) List(ctx context.Context, email string, offset, limit int) ([]models.Enrollment, error) {
	offset, limit = clampLimit(offset, limit)
	q := r.db.WithContext(ctx).Order("id DESC").Offset(offset).Limit(limit)
	if email != "" {
		q = q.Where("email = ?", models.NormalizeEmail(email))
	}
	var out []models.Enrollment
	err := q.Find(&out).Error
	return out, err
}

func (r *enrollmentRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Enrollment{}).Count(&count).Error
	return count, err
}
