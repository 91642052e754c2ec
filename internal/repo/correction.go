package repo

import (
	"context"

	"github.com/styleguard/styleguard/internal/models"
)

func (r *GormRepo) InsertCorrection(ctx context.Context, c *models.Correction) error {
	return translate(r.DB.WithContext(ctx).Create(c).Error)
}

// ListCorrections returns newest first; ties on created_at fall back to id.
func (r *GormRepo) ListCorrections(ctx context.Context, userID uint, offset, limit int) ([]models.Correction, error) {
	var out []models.Correction
	err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, translate(err)
	}
	return out, nil
}

func (r *GormRepo) CountCorrections(ctx context.Context, userID uint) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.Correction{}).Where("user_id = ?", userID).Count(&n).Error
	return n, translate(err)
}

func (r *GormRepo) FindCorrection(ctx context.Context, id, userID uint) (*models.Correction, error) {
	var c models.Correction
	err := r.DB.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&c).Error
	if err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

// DeleteCorrection reports false when no record owned by userID matched.
func (r *GormRepo) DeleteCorrection(ctx context.Context, id, userID uint) (bool, error) {
	res := r.DB.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.Correction{})
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected > 0, nil
}
