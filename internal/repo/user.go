package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/styleguard/styleguard/internal/models"
)

func (r *GormRepo) FindUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *GormRepo) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *GormRepo) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *GormRepo) InsertUser(ctx context.Context, u *models.User) error {
	return translate(r.DB.WithContext(ctx).Create(u).Error)
}

// UpdateUser writes the mutable account fields of u.
func (r *GormRepo) UpdateUser(ctx context.Context, u *models.User) error {
	res := r.DB.WithContext(ctx).Model(u).
		Select("email", "username", "password_hash", "updated_at").
		Updates(u)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteUser removes the user and their corrections. It reports false when
// no such user exists.
func (r *GormRepo) DeleteUser(ctx context.Context, id uint) (bool, error) {
	var deleted bool
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&models.Correction{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.User{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, translate(err)
	}
	return deleted, nil
}
