package availability

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sorbeteslab/sorbetes-backend/pkg/db/models"
	"github.com/sorbeteslab/sorbetes-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an availability repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindRecord(ctx context.Context, vendorID uuid.UUID, date string, size enums.DrumSize) (*models.AvailabilityRecord, error) {
	var record models.AvailabilityRecord
	err := r.db.WithContext(ctx).
		Where("vendor_id = ? AND date = ? AND size = ?", vendorID, date, size).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repository) ListRecords(ctx context.Context, vendorID uuid.UUID, date string) ([]models.AvailabilityRecord, error) {
	var records []models.AvailabilityRecord
	err := r.db.WithContext(ctx).
		Where("vendor_id = ? AND date = ?", vendorID, date).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// DefaultCount is the vendor-level projection of the flavor-size defaults: the
// largest per-day drum count any active flavor declares for the size.
func (r *repository) DefaultCount(ctx context.Context, vendorID uuid.UUID, size enums.DrumSize) (int, error) {
	var count int
	err := r.db.WithContext(ctx).
		Model(&models.FlavorSize{}).
		Select("COALESCE(MAX(flavor_sizes.default_count), 0)").
		Joins("JOIN flavors ON flavors.id = flavor_sizes.flavor_id").
		Where("flavors.vendor_id = ? AND flavors.active = ? AND flavor_sizes.size = ?", vendorID, true, size).
		Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// SeedRecord materializes the date-specific counter row if it does not exist
// yet. Concurrent seeders race harmlessly via ON CONFLICT DO NOTHING.
func (r *repository) SeedRecord(ctx context.Context, record *models.AvailabilityRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "vendor_id"}, {Name: "date"}, {Name: "size"}},
			DoNothing: true,
		}).
		Create(record).Error
}

// DecrementIfAvailable performs the compare-and-decrement in one conditional
// UPDATE so concurrent reservations serialize at the database.
func (r *repository) DecrementIfAvailable(ctx context.Context, vendorID uuid.UUID, date string, size enums.DrumSize, qty int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.AvailabilityRecord{}).
		Where("vendor_id = ? AND date = ? AND size = ? AND available_count >= ?", vendorID, date, size, qty).
		Update("available_count", gorm.Expr("available_count - ?", qty))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) Increment(ctx context.Context, vendorID uuid.UUID, date string, size enums.DrumSize, qty int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.AvailabilityRecord{}).
		Where("vendor_id = ? AND date = ? AND size = ?", vendorID, date, size).
		Update("available_count", gorm.Expr("available_count + ?", qty))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
