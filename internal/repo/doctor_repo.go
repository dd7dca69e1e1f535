package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/allodocteur/booking-backend/internal/domain"
)

// DoctorFilter narrows ListDoctors. Empty fields are ignored.
type DoctorFilter struct {
	HospitalUserID string
}

// CreateDoctor inserts d, assigning an ID when empty.
func CreateDoctor(ctx context.Context, db *gorm.DB, d *domain.Doctor) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	d.CreatedAt, d.UpdatedAt = now, now
	return db.WithContext(ctx).Create(d).Error
}

// GetDoctor fetches a non-deleted doctor by id, or ErrNotFound.
func GetDoctor(ctx context.Context, db *gorm.DB, id string) (*domain.Doctor, error) {
	var d domain.Doctor
	if err := db.WithContext(ctx).First(&d, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

// GetOwnedDoctor fetches a doctor by id scoped to its hospital, or ErrNotFound.
func GetOwnedDoctor(ctx context.Context, db *gorm.DB, id, hospitalUserID string) (*domain.Doctor, error) {
	var d domain.Doctor
	err := db.WithContext(ctx).
		Where("id = ? AND hospital_user_id = ?", id, hospitalUserID).
		First(&d).Error
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ListDoctors returns every non-deleted doctor matching f, newest first.
func ListDoctors(ctx context.Context, db *gorm.DB, f DoctorFilter) ([]domain.Doctor, error) {
	q := db.WithContext(ctx).Model(&domain.Doctor{})
	if f.HospitalUserID != "" {
		q = q.Where("hospital_user_id = ?", f.HospitalUserID)
	}
	var out []domain.Doctor
	err := q.Order("created_at desc").Order("id").Find(&out).Error
	return out, err
}

// UpdateDoctor persists the mutable profile fields of d, enforcing hospital
// ownership. Returns ErrNotFound if no owned row matched.
func UpdateDoctor(ctx context.Context, db *gorm.DB, d *domain.Doctor) error {
	d.UpdatedAt = time.Now().UTC()
	res := db.WithContext(ctx).
		Model(&domain.Doctor{}).
		Where("id = ? AND hospital_user_id = ?", d.ID, d.HospitalUserID).
		Select("full_name", "specialty", "clinic", "city", "price_cfa", "about", "availability", "updated_at").
		Updates(d)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteDoctor soft-deletes an owned doctor. Returns ErrNotFound if no owned
// row matched.
func DeleteDoctor(ctx context.Context, db *gorm.DB, id, hospitalUserID string) error {
	res := db.WithContext(ctx).
		Where("id = ? AND hospital_user_id = ?", id, hospitalUserID).
		Delete(&domain.Doctor{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
