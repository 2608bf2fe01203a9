package notification

import (
	"context"
	"log"
	"strings"
	"time"

	"filmrental/internal/domain"
	"filmrental/internal/repository"
)

// Pusher delivers a stored notification to live connections.
type Pusher interface {
	Push(key string, message interface{}) int
}

type Service struct {
	repo   *repository.NotificationRepository
	pusher Pusher
}

func NewService(repo *repository.NotificationRepository, pusher Pusher) *Service {
	return &Service{repo: repo, pusher: pusher}
}

// Recipients are the inbox keys an actor reads: their own id, plus the shared
// admin inbox for administrators.
func Recipients(actor domain.ActorIdentity) []string {
	if actor.IsAdmin() {
		return []string{actor.ID, domain.AdminAudience}
	}
	return []string{actor.ID}
}

// Notify stores msg and pushes it to whoever is connected under its recipient.
func (s *Service) Notify(ctx context.Context, msg domain.NotificationMessage) error {
	if strings.TrimSpace(msg.UserID) == "" {
		return domain.Validationf("notification recipient is required")
	}
	if strings.TrimSpace(msg.Title) == "" {
		return domain.Validationf("notification title is required")
	}
	n := &domain.Notification{
		UserID:    msg.UserID,
		Type:      msg.Type,
		Title:     msg.Title,
		Message:   msg.Message,
		RelatedID: msg.RelatedID,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return err
	}
	if s.pusher != nil {
		s.pusher.Push(n.UserID, Event{Type: "notification", Notification: n})
	}
	return nil
}

// Event is the websocket frame carrying a new notification.
type Event struct {
	Type         string               `json:"type"`
	Notification *domain.Notification `json:"notification"`
}

func (s *Service) List(ctx context.Context, actor domain.ActorIdentity, limit int) ([]domain.Notification, int64, error) {
	recipients := Recipients(actor)
	list, err := s.repo.ListForRecipients(ctx, recipients, limit)
	if err != nil {
		return nil, 0, err
	}
	unread, err := s.repo.CountUnread(ctx, recipients)
	if err != nil {
		return nil, 0, err
	}
	return list, unread, nil
}

func (s *Service) MarkRead(ctx context.Context, actor domain.ActorIdentity, id int64) error {
	return s.repo.MarkRead(ctx, id, Recipients(actor))
}

func (s *Service) MarkAllRead(ctx context.Context, actor domain.ActorIdentity) error {
	return s.repo.MarkAllRead(ctx, Recipients(actor))
}

// Cleanup deletes read notifications older than keepDays days.
func (s *Service) Cleanup(ctx context.Context, keepDays int, now time.Time) (int64, error) {
	if keepDays <= 0 {
		return 0, domain.Validationf("retention must be at least one day")
	}
	start := time.Now()
	deleted, err := s.repo.DeleteReadOlderThan(ctx, now.AddDate(0, 0, -keepDays))
	if err != nil {
		log.Printf("[ERROR] notification cleanup: %v", err)
		return 0, err
	}
	log.Printf("[INFO] notification cleanup: deleted %d read notifications in %v", deleted, time.Since(start))
	return deleted, nil
}
