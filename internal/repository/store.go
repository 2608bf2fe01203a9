package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store bundles the repositories over one *gorm.DB, which is either the pool or an
// open transaction.
type Store struct {
	db *gorm.DB

	Equipment     *EquipmentRepository
	Assets        *AssetRepository
	Reservations  *ReservationRepository
	Repairs       *RepairRepository
	History       *ChangeHistoryRepository
	Notifications *NotificationRepository
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:            db,
		Equipment:     NewEquipmentRepository(db),
		Assets:        NewAssetRepository(db),
		Reservations:  NewReservationRepository(db),
		Repairs:       NewRepairRepository(db),
		History:       NewChangeHistoryRepository(db),
		Notifications: NewNotificationRepository(db),
	}
}

func (s *Store) DB() *gorm.DB { return s.db }

// Transaction runs fn against a Store bound to a single database transaction.
// Inside fn only tx may be used.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}

// AutoMigrate creates or updates every table the service owns.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&equipmentModel{},
		&assetModel{},
		&assetHistoryModel{},
		&reservationModel{},
		&reservationItemModel{},
		&assignmentModel{},
		&repairModel{},
		&changeHistoryModel{},
		&notificationModel{},
	); err != nil {
		return err
	}

	// Serial numbers are unique per equipment type when present.
	return db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_assets_equipment_serial
		ON assets (equipment_id, serial_number) WHERE serial_number <> ''`).Error
}
