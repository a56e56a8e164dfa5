package reservation

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sorbeteslab/sorbetes-backend/pkg/db/models"
)

// FlavorRepository reads the vendor catalog. The reservation flow never
// writes flavors.
type FlavorRepository interface {
	WithTx(tx *gorm.DB) FlavorRepository
	FindFlavor(ctx context.Context, flavorID uuid.UUID) (*models.Flavor, error)
}

type flavorRepository struct {
	db *gorm.DB
}

// NewFlavorRepository builds a flavor reader bound to the provided DB.
func NewFlavorRepository(db *gorm.DB) FlavorRepository {
	return &flavorRepository{db: db}
}

func (r *flavorRepository) WithTx(tx *gorm.DB) FlavorRepository {
	if tx == nil {
		return r
	}
	return &flavorRepository{db: tx}
}

func (r *flavorRepository) FindFlavor(ctx context.Context, flavorID uuid.UUID) (*models.Flavor, error) {
	var flavor models.Flavor
	err := r.db.WithContext(ctx).
		Preload("Sizes").
		Where("id = ?", flavorID).
		First(&flavor).Error
	if err != nil {
		return nil, err
	}
	return &flavor, nil
}
