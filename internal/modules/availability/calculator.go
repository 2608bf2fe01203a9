package availability

import (
	"context"
	"fmt"
	"time"

	"filmrental/internal/domain"
	"filmrental/internal/repository"
)

const DefaultMaxDays = 366

const dayLayout = "2006-01-02"

// Occupant is a reservation line covering a day.
type Occupant struct {
	ReservationID     int64                    `json:"reservation_id"`
	ReservationNumber string                   `json:"reservation_number"`
	LeaderName        string                   `json:"leader_name"`
	Status            domain.ReservationStatus `json:"status"`
	Quantity          int                      `json:"quantity"`
	StartDate         time.Time                `json:"start_date"`
	EndDate           time.Time                `json:"end_date"`
}

type DayAvailability struct {
	Date         string     `json:"date"`
	Reserved     int        `json:"reserved"`
	Remaining    int        `json:"remaining"`
	Overbooked   bool       `json:"overbooked"`
	Reservations []Occupant `json:"reservations"`
	Historical   []Occupant `json:"historical"`
}

type Availability struct {
	EquipmentID   int64             `json:"equipment_id"`
	EquipmentName string            `json:"equipment_name"`
	TotalQuantity int               `json:"total_quantity"`
	PerDay        []DayAvailability `json:"per_day"`
}

// Calculator answers per-day reserved/remaining counts for an equipment type.
// Nothing is cached; every call reads current reservations.
type Calculator struct {
	store   *repository.Store
	maxDays int
}

func NewCalculator(store *repository.Store, maxDays int) *Calculator {
	if maxDays <= 0 {
		maxDays = DefaultMaxDays
	}
	return &Calculator{store: store, maxDays: maxDays}
}

var occupancyStatuses = []domain.ReservationStatus{
	domain.ReservationPending,
	domain.ReservationApproved,
	domain.ReservationRented,
	domain.ReservationReturned,
}

func (c *Calculator) GetAvailability(ctx context.Context, equipmentID int64, start, end time.Time) (*Availability, error) {
	from, to, err := c.window(start, end)
	if err != nil {
		return nil, err
	}
	eq, err := c.store.Equipment.GetByID(ctx, equipmentID)
	if err != nil {
		return nil, err
	}
	rows, err := c.store.Reservations.Occupancy(ctx, equipmentID, occupancyStatuses)
	if err != nil {
		return nil, err
	}
	return &Availability{
		EquipmentID:   eq.ID,
		EquipmentName: eq.Name,
		TotalQuantity: eq.TotalQuantity,
		PerDay:        Compute(eq.TotalQuantity, toOccupants(rows, 0), from, to),
	}, nil
}

// CheckFits refuses quantity more units of the equipment type over [start, end]
// if any day would exceed the total. It runs inside the caller's transaction.
func (c *Calculator) CheckFits(ctx context.Context, tx *repository.Store, eq *domain.EquipmentType, start, end time.Time, quantity int, excludeReservationID int64) error {
	from, to, err := c.window(start, end)
	if err != nil {
		return err
	}
	rows, err := tx.Reservations.Occupancy(ctx, eq.ID, domain.BlockingStatuses)
	if err != nil {
		return err
	}
	for _, day := range Compute(eq.TotalQuantity, toOccupants(rows, excludeReservationID), from, to) {
		if day.Reserved+quantity > eq.TotalQuantity {
			return domain.NewUnavailable(fmt.Sprintf("%s has %d of %d left on %s, %d requested",
				eq.Name, day.Remaining, eq.TotalQuantity, day.Date, quantity))
		}
	}
	return nil
}

func (c *Calculator) window(start, end time.Time) (time.Time, time.Time, error) {
	from, to := domain.DateOnly(start), domain.DateOnly(end)
	if to.Before(from) {
		return from, to, domain.Validationf("end date %s is before start date %s", to.Format(dayLayout), from.Format(dayLayout))
	}
	if days := int(to.Sub(from).Hours()/24) + 1; days > c.maxDays {
		return from, to, domain.Validationf("range of %d days exceeds the %d day limit", days, c.maxDays)
	}
	return from, to, nil
}

func toOccupants(rows []repository.OccupancyRow, excludeReservationID int64) []Occupant {
	out := make([]Occupant, 0, len(rows))
	for _, r := range rows {
		if excludeReservationID != 0 && r.ReservationID == excludeReservationID {
			continue
		}
		out = append(out, Occupant{
			ReservationID:     r.ReservationID,
			ReservationNumber: r.ReservationNumber,
			LeaderName:        r.LeaderName,
			Status:            domain.ReservationStatus(r.Status),
			Quantity:          r.Quantity,
			StartDate:         r.StartDate.UTC(),
			EndDate:           r.EndDate.UTC(),
		})
	}
	return out
}

// Compute builds the per-day view for the inclusive range [from, to]. Returned
// reservations are listed as historical and never counted.
func Compute(total int, occupants []Occupant, from, to time.Time) []DayAvailability {
	from, to = domain.DateOnly(from), domain.DateOnly(to)
	var out []DayAvailability
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		day := DayAvailability{
			Date:         d.Format(dayLayout),
			Reservations: []Occupant{},
			Historical:   []Occupant{},
		}
		for _, o := range occupants {
			if !domain.SpansDay(o.StartDate, o.EndDate, d) {
				continue
			}
			switch {
			case o.Status.Blocks():
				day.Reserved += o.Quantity
				day.Reservations = append(day.Reservations, o)
			case o.Status == domain.ReservationReturned:
				day.Historical = append(day.Historical, o)
			}
		}
		day.Remaining = total - day.Reserved
		if day.Remaining < 0 {
			day.Remaining = 0
		}
		day.Overbooked = day.Reserved > total
		out = append(out, day)
	}
	return out
}
