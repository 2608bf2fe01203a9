package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "pending"
	ReservationApproved  ReservationStatus = "approved"
	ReservationRented    ReservationStatus = "rented"
	ReservationReturned  ReservationStatus = "returned"
	ReservationRejected  ReservationStatus = "rejected"
	ReservationCancelled ReservationStatus = "cancelled"
)

var (
	// ActiveStatuses hold assets exclusively.
	ActiveStatuses = []ReservationStatus{ReservationApproved, ReservationRented}
	// BlockingStatuses count toward reserved quantity on the calendar.
	BlockingStatuses = []ReservationStatus{ReservationPending, ReservationApproved, ReservationRented}
)

var reservationTransitions = map[ReservationStatus][]ReservationStatus{
	ReservationPending:  {ReservationApproved, ReservationRejected, ReservationCancelled},
	ReservationApproved: {ReservationRented, ReservationCancelled, ReservationPending},
	ReservationRented:   {ReservationReturned, ReservationCancelled, ReservationApproved},
}

func ParseReservationStatus(s string) (ReservationStatus, error) {
	st := ReservationStatus(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", Validationf("unknown reservation status %q", s)
	}
	return st, nil
}

func (s ReservationStatus) Valid() bool {
	switch s {
	case ReservationPending, ReservationApproved, ReservationRented,
		ReservationReturned, ReservationRejected, ReservationCancelled:
		return true
	}
	return false
}

func (s ReservationStatus) IsTerminal() bool {
	return s == ReservationReturned || s == ReservationRejected || s == ReservationCancelled
}

func (s ReservationStatus) IsActive() bool {
	return s == ReservationApproved || s == ReservationRented
}

func (s ReservationStatus) Blocks() bool {
	return s == ReservationPending || s.IsActive()
}

// CanTransition reports whether from → to is an allowed lifecycle move.
func CanTransition(from, to ReservationStatus) bool {
	for _, next := range reservationTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ReservationItem is one line of a reservation: an equipment type, a quantity and
// the concrete assets bound to it so far.
type ReservationItem struct {
	ID             int64   `json:"id"`
	ReservationID  int64   `json:"reservation_id"`
	Position       int     `json:"position"`
	EquipmentID    int64   `json:"equipment_id"`
	Name           string  `json:"name"`
	Quantity       int     `json:"quantity"`
	CheckedOut     bool    `json:"checked_out"`
	Returned       bool    `json:"returned"`
	AssignedAssets []int64 `json:"assigned_assets"`
}

type Reservation struct {
	ID                int64             `json:"id"`
	ReservationNumber string            `json:"reservation_number"`
	UserID            string            `json:"user_id"`
	UserName          string            `json:"user_name"`
	UserEmail         string            `json:"user_email"`
	Status            ReservationStatus `json:"status"`
	StartDate         time.Time         `json:"start_date"`
	EndDate           time.Time         `json:"end_date"`
	Purpose           string            `json:"purpose"`
	PurposeDetail     string            `json:"purpose_detail,omitempty"`
	LeaderName        string            `json:"leader_name"`
	LeaderPhone       string            `json:"leader_phone,omitempty"`
	LeaderEmail       string            `json:"leader_email,omitempty"`
	ReturnNote        string            `json:"return_note,omitempty"`
	Items             []ReservationItem `json:"items"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
	ApprovedAt        *time.Time        `json:"approved_at,omitempty"`
	RentedAt          *time.Time        `json:"rented_at,omitempty"`
	ReturnedAt        *time.Time        `json:"returned_at,omitempty"`
	CancelledAt       *time.Time        `json:"cancelled_at,omitempty"`
	RejectedAt        *time.Time        `json:"rejected_at,omitempty"`
}

// ReservationNumber formats the human-facing number from the start date and id.
func ReservationNumber(start time.Time, id int64) string {
	return fmt.Sprintf("%s-%06d", start.Format("20060102"), id)
}

func (r *Reservation) Item(equipmentID int64) *ReservationItem {
	for i := range r.Items {
		if r.Items[i].EquipmentID == equipmentID {
			return &r.Items[i]
		}
	}
	return nil
}

// EquipmentIDs returns the distinct equipment ids of the lines, sorted.
func (r *Reservation) EquipmentIDs() []int64 {
	seen := make(map[int64]struct{}, len(r.Items))
	out := make([]int64, 0, len(r.Items))
	for _, it := range r.Items {
		if _, ok := seen[it.EquipmentID]; ok {
			continue
		}
		seen[it.EquipmentID] = struct{}{}
		out = append(out, it.EquipmentID)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (r *Reservation) AssignedAssetIDs() []int64 {
	var out []int64
	for _, it := range r.Items {
		out = append(out, it.AssignedAssets...)
	}
	return out
}

// Contact is the name shown on asset history lines.
func (r *Reservation) Contact() string {
	if r.LeaderName != "" {
		return r.LeaderName
	}
	return r.UserName
}

// Occupies reports whether the reservation covers the calendar day of day.
func (r *Reservation) Occupies(day time.Time) bool {
	return SpansDay(r.StartDate, r.EndDate, day)
}

// SpansDay reports whether the inclusive calendar-day range [start, end] contains day.
func SpansDay(start, end, day time.Time) bool {
	d := DateOnly(day)
	return !d.Before(DateOnly(start)) && !d.After(DateOnly(end))
}

// DateOnly truncates t to its calendar day.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseDateTime accepts a date or date-time and returns its wall clock in UTC,
// so calendar days stay stable across databases.
func ParseDateTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, Validationf("invalid date %q", s)
}
