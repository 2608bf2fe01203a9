package repository

import (
	"context"
	"time"

	"filmrental/internal/domain"

	"gorm.io/gorm"
)

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	m := notificationModel{
		UserID:    n.UserID,
		Type:      string(n.Type),
		Title:     n.Title,
		Message:   n.Message,
		RelatedID: n.RelatedID,
		IsRead:    n.IsRead,
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return err
	}
	n.ID, n.CreatedAt = m.ID, m.CreatedAt
	return nil
}

// ListForRecipients returns the newest notifications addressed to any of recipients.
func (r *NotificationRepository) ListForRecipients(ctx context.Context, recipients []string, limit int) ([]domain.Notification, error) {
	q := r.db.WithContext(ctx).Where("user_id IN ?", recipients).Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []notificationModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Notification, 0, len(rows))
	for _, m := range rows {
		out = append(out, toDomainNotification(m))
	}
	return out, nil
}

func (r *NotificationRepository) CountUnread(ctx context.Context, recipients []string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&notificationModel{}).
		Where("user_id IN ? AND is_read = ?", recipients, false).Count(&n).Error
	return n, err
}

func (r *NotificationRepository) MarkRead(ctx context.Context, id int64, recipients []string) error {
	res := r.db.WithContext(ctx).Model(&notificationModel{}).
		Where("id = ? AND user_id IN ?", id, recipients).Update("is_read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.NotFoundf("notification %d", id)
	}
	return nil
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, recipients []string) error {
	return r.db.WithContext(ctx).Model(&notificationModel{}).
		Where("user_id IN ? AND is_read = ?", recipients, false).Update("is_read", true).Error
}

// DeleteReadOlderThan removes read notifications created before cutoff.
func (r *NotificationRepository) DeleteReadOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("is_read = ? AND created_at < ?", true, cutoff).
		Delete(&notificationModel{})
	return res.RowsAffected, res.Error
}
