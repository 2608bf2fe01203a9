package reservation

import (
	"context"

	"filmrental/internal/domain"
)

// NotificationSender delivers inbox messages. Failures never affect the caller's
// outcome.
type NotificationSender interface {
	Notify(ctx context.Context, msg domain.NotificationMessage) error
}
