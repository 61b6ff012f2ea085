package repository

import (
	"context"

	"github.com/ManuelReschke/CourseCheckout/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// userRepository implements the UserRepository interface
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository instance
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// CreateIfNotExists inserts the user unless the email is taken. user is
// reloaded from the stored row either way.
func (r *userRepository) CreateIfNotExists(ctx context.Context, user *models.User) (bool, error) {
	user.Email = models.NormalizeEmail(user.Email)

	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoNothing: true,
	}).Create(user)
	if tx.Error != nil {
		return false, tx.Error
	}

	created := tx.RowsAffected > 0
	if err := r.db.WithContext(ctx).Where("email = ?", user.Email).First(user).Error; err != nil {
		return false, err
	}
	return created, nil
}

// GetByEmail retrieves a user by their email address
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("email = ?", models.NormalizeEmail(email)).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// List returns users, newest first
func (r *userRepository) List(ctx context.Context, offset, limit int) ([]models.User, error) {
	offset, limit = clampLimit(offset, limit)
	var users []models.User
	err := r.db.WithContext(ctx).Order("id DESC").Offset(offset).Limit(limit).Find(&users).Error
	return users, err
}

func (r *userRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Count(&count).Error
	return count, err
}
