package repository

import (
	"context"
	"fmt"

	"filmrental/internal/domain"

	"gorm.io/gorm"
)

type RepairRepository struct {
	db *gorm.DB
}

func NewRepairRepository(db *gorm.DB) *RepairRepository {
	return &RepairRepository{db: db}
}

type RepairFilter struct {
	Stage         domain.RepairStage
	IsFixed       *bool
	ReservationID int64
	AssetID       int64
}

func (r *RepairRepository) Create(ctx context.Context, c *domain.RepairCase) error {
	m := toRepairModel(c)
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return err
	}
	c.ID, c.CreatedAt, c.UpdatedAt = m.ID, m.CreatedAt, m.UpdatedAt
	return nil
}

func (r *RepairRepository) GetByID(ctx context.Context, id int64) (*domain.RepairCase, error) {
	return r.get(ctx, id, false)
}

func (r *RepairRepository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.RepairCase, error) {
	return r.get(ctx, id, true)
}

func (r *RepairRepository) get(ctx context.Context, id int64, lock bool) (*domain.RepairCase, error) {
	var m repairModel
	if err := forUpdate(r.db.WithContext(ctx), lock).First(&m, "id = ?", id).Error; err != nil {
		return nil, translate(err, fmt.Sprintf("repair case %d", id))
	}
	return toDomainRepair(m), nil
}

func (r *RepairRepository) Update(ctx context.Context, c *domain.RepairCase) error {
	m := toRepairModel(c)
	if err := r.db.WithContext(ctx).Save(&m).Error; err != nil {
		return err
	}
	c.UpdatedAt = m.UpdatedAt
	return nil
}

func (r *RepairRepository) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&repairModel{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.NotFoundf("repair case %d", id)
	}
	return nil
}

// List returns cases newest first.
func (r *RepairRepository) List(ctx context.Context, f RepairFilter) ([]domain.RepairCase, error) {
	q := r.db.WithContext(ctx).Model(&repairModel{})
	if f.Stage != "" {
		q = q.Where("stage = ?", string(f.Stage))
	}
	if f.IsFixed != nil {
		q = q.Where("is_fixed = ?", *f.IsFixed)
	}
	if f.ReservationID > 0 {
		q = q.Where("reservation_id = ?", f.ReservationID)
	}
	if f.AssetID > 0 {
		q = q.Where("asset_id = ?", f.AssetID)
	}
	var rows []repairModel
	if err := q.Order("id DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.RepairCase, 0, len(rows))
	for _, m := range rows {
		out = append(out, *toDomainRepair(m))
	}
	return out, nil
}
