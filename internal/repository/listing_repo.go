package repository

import (
	"hansa/internal/models"

	"gorm.io/gorm"
)

type ListingRepository struct {
	db *gorm.DB
}

func NewListingRepository(db *gorm.DB) *ListingRepository {
	return &ListingRepository{db: db}
}

func (r *ListingRepository) Create(l *models.Listing) error {
	return r.db.Create(l).Error
}

func (r *ListingRepository) GetByID(id uint) (*models.Listing, error) {
	var l models.Listing
	err := r.db.First(&l, id).Error
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *ListingRepository) Update(l *models.Listing) error {
	return r.db.Save(l).Error
}

func (r *ListingRepository) ListByOwner(ownerID uint, limit, offset int) ([]models.Listing, error) {
	var list []models.Listing
	err := r.db.Where("owner_id = ?", ownerID).Order("created_at DESC").Limit(limit).Offset(offset).Find(&list).Error
	return list, err
}
