package repository

import (
	"context"
	"errors"

	"filmrental/internal/domain"

	"gorm.io/gorm"
)

type ChangeHistoryRepository struct {
	db *gorm.DB
}

func NewChangeHistoryRepository(db *gorm.DB) *ChangeHistoryRepository {
	return &ChangeHistoryRepository{db: db}
}

type HistoryFilter struct {
	TargetType domain.TargetType
	TargetID   int64
	BatchID    string
	Page       int
	PageSize   int
}

func (r *ChangeHistoryRepository) Create(ctx context.Context, e *domain.ChangeHistoryEntry) error {
	m, err := toChangeModel(e)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return err
	}
	e.ID, e.CreatedAt = m.ID, m.CreatedAt
	return nil
}

// LatestVersion returns the version of the newest entry of a target lineage.
func (r *ChangeHistoryRepository) LatestVersion(ctx context.Context, target domain.TargetType, targetID int64) (major, minor int, found bool, err error) {
	var m changeHistoryModel
	err = r.db.WithContext(ctx).
		Where("target_type = ? AND target_id = ?", string(target), targetID).
		Order("id DESC").First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, 0, false, nil
	}
	if err != nil {
		return 0, 0, false, err
	}
	return m.VersionMajor, m.VersionMinor, true, nil
}

// List returns entries newest first along with the unpaged total.
func (r *ChangeHistoryRepository) List(ctx context.Context, f HistoryFilter) ([]domain.ChangeHistoryEntry, int64, error) {
	q := r.db.WithContext(ctx).Model(&changeHistoryModel{})
	if f.TargetType != "" {
		q = q.Where("target_type = ?", string(f.TargetType))
	}
	if f.TargetID > 0 {
		q = q.Where("target_id = ?", f.TargetID)
	}
	if f.BatchID != "" {
		q = q.Where("batch_id = ?", f.BatchID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if f.PageSize > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		q = q.Offset((page - 1) * f.PageSize).Limit(f.PageSize)
	}

	var rows []changeHistoryModel
	if err := q.Order("id DESC").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	out := make([]domain.ChangeHistoryEntry, 0, len(rows))
	for _, m := range rows {
		e, err := toDomainChange(m)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, e)
	}
	return out, total, nil
}
