package repository

import (
	"context"
	"fmt"

	"filmrental/internal/domain"

	"gorm.io/gorm"
)

type AssetRepository struct {
	db *gorm.DB
}

func NewAssetRepository(db *gorm.DB) *AssetRepository {
	return &AssetRepository{db: db}
}

func (r *AssetRepository) Create(ctx context.Context, a *domain.Asset) error {
	m := toAssetModel(a)
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return translate(err, "serial number")
	}
	a.ID, a.CreatedAt, a.UpdatedAt = m.ID, m.CreatedAt, m.UpdatedAt
	return nil
}

func (r *AssetRepository) GetByID(ctx context.Context, id int64) (*domain.Asset, error) {
	var m assetModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, translate(err, fmt.Sprintf("asset %d", id))
	}
	return toDomainAsset(m), nil
}

// GetByIDs loads the given assets keyed by id; lock takes row locks where the
// dialect supports them. Missing ids are simply absent from the map.
func (r *AssetRepository) GetByIDs(ctx context.Context, ids []int64, lock bool) (map[int64]*domain.Asset, error) {
	out := make(map[int64]*domain.Asset, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []assetModel
	if err := forUpdate(r.db.WithContext(ctx), lock).Where("id IN ?", ids).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, m := range rows {
		out[m.ID] = toDomainAsset(m)
	}
	return out, nil
}

func (r *AssetRepository) ListByEquipment(ctx context.Context, equipmentID int64) ([]domain.Asset, error) {
	var rows []assetModel
	if err := r.db.WithContext(ctx).Where("equipment_id = ?", equipmentID).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Asset, 0, len(rows))
	for _, m := range rows {
		out = append(out, *toDomainAsset(m))
	}
	return out, nil
}

// ExistingSerials returns which of serials are already registered for the equipment type.
func (r *AssetRepository) ExistingSerials(ctx context.Context, equipmentID int64, serials []string) ([]string, error) {
	if len(serials) == 0 {
		return nil, nil
	}
	var found []string
	err := r.db.WithContext(ctx).Model(&assetModel{}).
		Where("equipment_id = ? AND serial_number IN ?", equipmentID, serials).
		Pluck("serial_number", &found).Error
	return found, err
}

func (r *AssetRepository) Update(ctx context.Context, a *domain.Asset) error {
	m := toAssetModel(a)
	if err := r.db.WithContext(ctx).Save(&m).Error; err != nil {
		return translate(err, "serial number")
	}
	a.UpdatedAt = m.UpdatedAt
	return nil
}

func (r *AssetRepository) UpdateStatus(ctx context.Context, id int64, status domain.AssetStatus) error {
	res := r.db.WithContext(ctx).Model(&assetModel{}).Where("id = ?", id).Update("status", string(status))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.NotFoundf("asset %d", id)
	}
	return nil
}

// Delete removes the asset, its history lines and any pre-picks of it on
// reservation lines.
func (r *AssetRepository) Delete(ctx context.Context, id int64) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("asset_id = ?", id).Delete(&assignmentModel{}).Error; err != nil {
		return err
	}
	if err := db.Where("asset_id = ?", id).Delete(&assetHistoryModel{}).Error; err != nil {
		return err
	}
	res := db.Delete(&assetModel{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.NotFoundf("asset %d", id)
	}
	return nil
}

func (r *AssetRepository) AppendHistory(ctx context.Context, h *domain.AssetHistory) error {
	m := assetHistoryModel{
		AssetID:       h.AssetID,
		ReservationID: h.ReservationID,
		Action:        string(h.Action),
		UserName:      h.UserName,
		ReturnNotes:   h.ReturnNotes,
		Condition:     string(h.Condition),
		CreatedAt:     h.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return err
	}
	h.ID, h.CreatedAt = m.ID, m.CreatedAt
	return nil
}

// History returns the asset's log oldest first.
func (r *AssetRepository) History(ctx context.Context, assetID int64) ([]domain.AssetHistory, error) {
	var rows []assetHistoryModel
	if err := r.db.WithContext(ctx).Where("asset_id = ?", assetID).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.AssetHistory, 0, len(rows))
	for _, m := range rows {
		out = append(out, toDomainAssetHistory(m))
	}
	return out, nil
}
