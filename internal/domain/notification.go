package domain

import "time"

// AdminAudience is the inbox key shared by every administrator.
const AdminAudience = "admin"

type NotificationType string

const (
	NotifReservationCreated   NotificationType = "reservation.created"
	NotifReservationApproved  NotificationType = "reservation.approved"
	NotifReservationRejected  NotificationType = "reservation.rejected"
	NotifReservationRented    NotificationType = "reservation.rented"
	NotifReservationReturned  NotificationType = "reservation.returned"
	NotifReservationCancelled NotificationType = "reservation.cancelled"
	NotifRepairCreated        NotificationType = "repair.created"
)

type Notification struct {
	ID        int64            `json:"id"`
	UserID    string           `json:"user_id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message,omitempty"`
	RelatedID int64            `json:"related_id,omitempty"`
	IsRead    bool             `json:"is_read"`
	CreatedAt time.Time        `json:"created_at"`
}

// NotificationMessage is what services hand to the notification sink.
type NotificationMessage struct {
	UserID    string
	Type      NotificationType
	Title     string
	Message   string
	RelatedID int64
}
