package repository

import (
	"context"
	"fmt"

	"filmrental/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type EquipmentRepository struct {
	db *gorm.DB
}

func NewEquipmentRepository(db *gorm.DB) *EquipmentRepository {
	return &EquipmentRepository{db: db}
}

func forUpdate(db *gorm.DB, lock bool) *gorm.DB {
	if lock {
		return db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return db
}

func (r *EquipmentRepository) Create(ctx context.Context, e *domain.EquipmentType) error {
	m := toEquipmentModel(e)
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return translate(err, "equipment")
	}
	e.ID, e.CreatedAt, e.UpdatedAt = m.ID, m.CreatedAt, m.UpdatedAt
	return nil
}

func (r *EquipmentRepository) GetByID(ctx context.Context, id int64) (*domain.EquipmentType, error) {
	var m equipmentModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, translate(err, fmt.Sprintf("equipment %d", id))
	}
	return toDomainEquipment(m), nil
}

// GetByName returns the first equipment type with exactly this name.
func (r *EquipmentRepository) GetByName(ctx context.Context, name string) (*domain.EquipmentType, error) {
	var m equipmentModel
	if err := r.db.WithContext(ctx).Where("name = ?", name).Order("id").First(&m).Error; err != nil {
		return nil, translate(err, fmt.Sprintf("equipment %q", name))
	}
	return toDomainEquipment(m), nil
}

func (r *EquipmentRepository) GetByIDs(ctx context.Context, ids []int64) (map[int64]*domain.EquipmentType, error) {
	out := make(map[int64]*domain.EquipmentType, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []equipmentModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, m := range rows {
		out[m.ID] = toDomainEquipment(m)
	}
	return out, nil
}

func (r *EquipmentRepository) List(ctx context.Context, includeHidden bool) ([]domain.EquipmentType, error) {
	q := r.db.WithContext(ctx).Model(&equipmentModel{})
	if !includeHidden {
		q = q.Where("is_visible = ?", true)
	}
	var rows []equipmentModel
	if err := q.Order("sort_order ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.EquipmentType, 0, len(rows))
	for _, m := range rows {
		out = append(out, *toDomainEquipment(m))
	}
	return out, nil
}

func (r *EquipmentRepository) Update(ctx context.Context, e *domain.EquipmentType) error {
	m := toEquipmentModel(e)
	if err := r.db.WithContext(ctx).Save(&m).Error; err != nil {
		return translate(err, "equipment")
	}
	e.UpdatedAt = m.UpdatedAt
	return nil
}

// AdjustTotalQuantity keeps the unit count in step with asset creation and deletion.
func (r *EquipmentRepository) AdjustTotalQuantity(ctx context.Context, id int64, delta int) error {
	res := r.db.WithContext(ctx).Model(&equipmentModel{}).Where("id = ?", id).
		Update("total_quantity", gorm.Expr("total_quantity + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.NotFoundf("equipment %d", id)
	}
	return nil
}

// Delete removes the equipment type with its assets and their history.
func (r *EquipmentRepository) Delete(ctx context.Context, id int64) error {
	db := r.db.WithContext(ctx)
	assetIDs := db.Model(&assetModel{}).Select("id").Where("equipment_id = ?", id)
	if err := db.Where("asset_id IN (?)", assetIDs).Delete(&assignmentModel{}).Error; err != nil {
		return err
	}
	if err := db.Where("asset_id IN (?)", assetIDs).Delete(&assetHistoryModel{}).Error; err != nil {
		return err
	}
	if err := db.Where("equipment_id = ?", id).Delete(&assetModel{}).Error; err != nil {
		return err
	}
	res := db.Delete(&equipmentModel{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.NotFoundf("equipment %d", id)
	}
	return nil
}
