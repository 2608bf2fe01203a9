package reservation

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"filmrental/internal/domain"
	"filmrental/internal/modules/allocation"
	"filmrental/internal/modules/availability"
	"filmrental/internal/pkg/validator"
	"filmrental/internal/repository"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type Service struct {
	store  *repository.Store
	engine *allocation.Engine
	avail  *availability.Calculator
	notifs NotificationSender
	now    func() time.Time
}

func NewService(store *repository.Store, engine *allocation.Engine, avail *availability.Calculator, notifs NotificationSender) *Service {
	return &Service{
		store:  store,
		engine: engine,
		avail:  avail,
		notifs: notifs,
		now:    time.Now,
	}
}

// Create files a pending reservation after checking every line against the
// availability calendar. Lines of the same equipment type may not repeat.
func (s *Service) Create(ctx context.Context, actor domain.ActorIdentity, req CreateReservationRequest) (*domain.Reservation, error) {
	if errs := validator.Validate(req); errs != nil {
		return nil, domain.Validationf("%s", validator.Format(errs))
	}
	start, err := domain.ParseDateTime(req.StartDate)
	if err != nil {
		return nil, err
	}
	end, err := domain.ParseDateTime(req.EndDate)
	if err != nil {
		return nil, err
	}
	if domain.DateOnly(end).Before(domain.DateOnly(start)) {
		return nil, domain.Validationf("end date is before start date")
	}
	ids, err := equipmentIDs(req.Items)
	if err != nil {
		return nil, err
	}

	leader := strings.TrimSpace(req.LeaderName)
	if leader == "" {
		leader = actor.DisplayName()
	}
	res := &domain.Reservation{
		UserID:        actor.ID,
		UserName:      actor.DisplayName(),
		UserEmail:     actor.Email,
		Status:        domain.ReservationPending,
		StartDate:     start,
		EndDate:       end,
		Purpose:       strings.TrimSpace(req.Purpose),
		PurposeDetail: strings.TrimSpace(req.PurposeDetail),
		LeaderName:    leader,
		LeaderPhone:   strings.TrimSpace(req.LeaderPhone),
		LeaderEmail:   strings.TrimSpace(req.LeaderEmail),
	}

	unlock, err := s.engine.LockEquipment(ctx, ids)
	if err != nil {
		return nil, err
	}
	defer unlock()

	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		eqs, err := tx.Equipment.GetByIDs(ctx, ids)
		if err != nil {
			return err
		}
		for _, in := range req.Items {
			eq, ok := eqs[in.EquipmentID]
			if !ok {
				return domain.NotFoundf("equipment %d", in.EquipmentID)
			}
			if !eq.IsVisible && !actor.IsAdmin() {
				return domain.Validationf("%q is not open for reservation", eq.Name)
			}
			if err := s.avail.CheckFits(ctx, tx, eq, start, end, in.Quantity, 0); err != nil {
				return err
			}
			res.Items = append(res.Items, domain.ReservationItem{
				EquipmentID:    eq.ID,
				Name:           eq.Name,
				Quantity:       in.Quantity,
				AssignedAssets: []int64{},
			})
		}
		return tx.Reservations.Create(ctx, res)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[INFO] reservation %s created by %s", res.ReservationNumber, actor.ID)
	s.notify(ctx, domain.NotificationMessage{
		UserID:    domain.AdminAudience,
		Type:      domain.NotifReservationCreated,
		Title:     "New reservation request",
		Message:   fmt.Sprintf("%s requested %d item(s) for %s ~ %s", res.LeaderName, len(res.Items), day(res.StartDate), day(res.EndDate)),
		RelatedID: res.ID,
	})
	return res, nil
}

// ChangeStatus moves a reservation along the lifecycle. note is stored as the
// return note and copied into the asset history of a return.
func (s *Service) ChangeStatus(ctx context.Context, actor domain.ActorIdentity, id int64, to domain.ReservationStatus, note string) (*TransitionResult, error) {
	if !to.Valid() {
		return nil, domain.Validationf("unknown reservation status %q", to)
	}
	return s.transition(ctx, actor, id, to, note, nil)
}

// Cancel is the student-facing cancellation of a pending reservation.
func (s *Service) Cancel(ctx context.Context, actor domain.ActorIdentity, id int64) (*TransitionResult, error) {
	return s.transition(ctx, actor, id, domain.ReservationCancelled, "", nil)
}

// ReturnAssets completes a rental with per-asset conditions.
func (s *Service) ReturnAssets(ctx context.Context, actor domain.ActorIdentity, id int64, entries []allocation.ReturnEntry, note string) (*TransitionResult, error) {
	for _, en := range entries {
		if errs := validator.Validate(en); errs != nil {
			return nil, domain.Validationf("%s", validator.Format(errs))
		}
	}
	return s.transition(ctx, actor, id, domain.ReservationReturned, note, entries)
}

func (s *Service) transition(ctx context.Context, actor domain.ActorIdentity, id int64, to domain.ReservationStatus,
	note string, entries []allocation.ReturnEntry) (*TransitionResult, error) {
	var cases []domain.RepairCase

	err := s.engine.WithReservation(ctx, id, nil, func(tx *repository.Store, r *domain.Reservation) error {
		if err := authorize(actor, r, to); err != nil {
			return err
		}
		if !domain.CanTransition(r.Status, to) {
			return domain.InvalidTransitionf("reservation %s cannot move from %s to %s", r.ReservationNumber, r.Status, to)
		}

		now := s.now()
		switch {
		case to == domain.ReservationApproved && r.Status == domain.ReservationPending:
			if err := s.engine.ValidateActivation(ctx, tx, r); err != nil {
				return err
			}
			r.ApprovedAt = &now
		case to == domain.ReservationApproved && r.Status == domain.ReservationRented:
			if err := s.engine.RevertCheckout(ctx, tx, actor, r); err != nil {
				return err
			}
			r.RentedAt = nil
		case to == domain.ReservationPending:
			r.ApprovedAt = nil
		case to == domain.ReservationRented:
			if err := s.engine.Checkout(ctx, tx, actor, r); err != nil {
				return err
			}
			r.RentedAt = &now
		case to == domain.ReservationReturned:
			var err error
			if cases, err = s.engine.Return(ctx, tx, actor, r, entries, note); err != nil {
				return err
			}
			r.ReturnNote = strings.TrimSpace(note)
			r.ReturnedAt = &now
		case to == domain.ReservationRejected:
			if err := s.engine.Release(ctx, tx, actor, r, "reservation rejected"); err != nil {
				return err
			}
			r.RejectedAt = &now
		case to == domain.ReservationCancelled:
			if err := s.engine.Release(ctx, tx, actor, r, "reservation cancelled"); err != nil {
				return err
			}
			r.CancelledAt = &now
		}

		r.Status = to
		return tx.Reservations.Update(ctx, r)
	})
	if err != nil {
		return nil, err
	}

	r, err := s.store.Reservations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	log.Printf("[INFO] reservation %s -> %s by %s", r.ReservationNumber, to, actor.ID)
	s.notifyTransition(ctx, r, cases)
	return &TransitionResult{Reservation: r, RepairCases: cases}, nil
}

// authorize: admins may make any move; students may only cancel their own
// pending reservation.
func authorize(actor domain.ActorIdentity, r *domain.Reservation, to domain.ReservationStatus) error {
	if actor.IsAdmin() {
		return nil
	}
	if r.UserID != actor.ID {
		return domain.Forbiddenf("reservation belongs to another user")
	}
	if to != domain.ReservationCancelled || r.Status != domain.ReservationPending {
		return domain.Forbiddenf("only pending reservations can be cancelled by their owner")
	}
	return nil
}

// UpdateItems replaces the line list of a pending or approved reservation. Kept
// lines keep their assignments, trimmed to the new quantity.
func (s *Service) UpdateItems(ctx context.Context, actor domain.ActorIdentity, id int64, items []ItemInput) (*domain.Reservation, error) {
	if len(items) == 0 {
		return nil, domain.Validationf("at least one item is required")
	}
	for _, in := range items {
		if errs := validator.Validate(in); errs != nil {
			return nil, domain.Validationf("%s", validator.Format(errs))
		}
	}
	ids, err := equipmentIDs(items)
	if err != nil {
		return nil, err
	}

	err = s.engine.WithReservation(ctx, id, ids, func(tx *repository.Store, r *domain.Reservation) error {
		if r.Status != domain.ReservationPending && r.Status != domain.ReservationApproved {
			return domain.InvalidTransitionf("items of a %s reservation cannot be changed", r.Status)
		}
		if !actor.IsAdmin() && (r.UserID != actor.ID || r.Status != domain.ReservationPending) {
			return domain.Forbiddenf("only the owner may change a pending reservation")
		}

		eqs, err := tx.Equipment.GetByIDs(ctx, ids)
		if err != nil {
			return err
		}
		next := make([]domain.ReservationItem, 0, len(items))
		for _, in := range items {
			eq, ok := eqs[in.EquipmentID]
			if !ok {
				return domain.NotFoundf("equipment %d", in.EquipmentID)
			}
			old := r.Item(eq.ID)
			if old == nil && !eq.IsVisible && !actor.IsAdmin() {
				return domain.Validationf("%q is not open for reservation", eq.Name)
			}
			if err := s.avail.CheckFits(ctx, tx, eq, r.StartDate, r.EndDate, in.Quantity, r.ID); err != nil {
				return err
			}

			item := domain.ReservationItem{EquipmentID: eq.ID, Name: eq.Name, Quantity: in.Quantity, AssignedAssets: []int64{}}
			if old != nil {
				item.Name = old.Name
				keep := old.AssignedAssets
				if len(keep) > in.Quantity {
					keep = keep[:in.Quantity]
				}
				item.AssignedAssets = append(item.AssignedAssets, keep...)
			}
			next = append(next, item)
		}

		r.Items = next
		if err := tx.Reservations.ReplaceItems(ctx, r); err != nil {
			return err
		}
		return tx.Reservations.Update(ctx, r)
	})
	if err != nil {
		return nil, err
	}
	return s.store.Reservations.GetByID(ctx, id)
}

func (s *Service) Get(ctx context.Context, actor domain.ActorIdentity, id int64) (*domain.Reservation, error) {
	r, err := s.store.Reservations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && r.UserID != actor.ID {
		return nil, domain.Forbiddenf("reservation belongs to another user")
	}
	return r, nil
}

func (s *Service) ListMine(ctx context.Context, actor domain.ActorIdentity, page, size int) (*ListResult, error) {
	return s.list(ctx, repository.ReservationFilter{UserID: actor.ID, Page: page, PageSize: size})
}

func (s *Service) List(ctx context.Context, actor domain.ActorIdentity, f repository.ReservationFilter) (*ListResult, error) {
	if !actor.IsAdmin() {
		return nil, domain.Forbiddenf("only administrators list all reservations")
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, domain.Validationf("unknown reservation status %q", f.Status)
	}
	return s.list(ctx, f)
}

func (s *Service) list(ctx context.Context, f repository.ReservationFilter) (*ListResult, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize <= 0 || f.PageSize > maxPageSize {
		f.PageSize = defaultPageSize
	}
	items, total, err := s.store.Reservations.List(ctx, f)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*domain.Reservation{}
	}
	return &ListResult{Items: items, Total: total, Page: f.Page, PageSize: f.PageSize}, nil
}

// SweepStale cancels pending reservations whose end date has passed. It returns
// how many were cancelled; a failure on one reservation does not stop the rest.
func (s *Service) SweepStale(ctx context.Context, now time.Time) (int, error) {
	stale, err := s.store.Reservations.ListPendingEndingBefore(ctx, now)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, r := range stale {
		if _, err := s.transition(ctx, domain.SystemActor, r.ID, domain.ReservationCancelled, "", nil); err != nil {
			log.Printf("[WARN] sweep: reservation %s not cancelled: %v", r.ReservationNumber, err)
			continue
		}
		n++
	}
	return n, nil
}

func (s *Service) notifyTransition(ctx context.Context, r *domain.Reservation, cases []domain.RepairCase) {
	var typ domain.NotificationType
	var title string
	switch r.Status {
	case domain.ReservationApproved:
		typ, title = domain.NotifReservationApproved, "Reservation approved"
	case domain.ReservationRejected:
		typ, title = domain.NotifReservationRejected, "Reservation rejected"
	case domain.ReservationRented:
		typ, title = domain.NotifReservationRented, "Equipment checked out"
	case domain.ReservationReturned:
		typ, title = domain.NotifReservationReturned, "Equipment returned"
	case domain.ReservationCancelled:
		typ, title = domain.NotifReservationCancelled, "Reservation cancelled"
	default:
		return
	}
	s.notify(ctx, domain.NotificationMessage{
		UserID:    r.UserID,
		Type:      typ,
		Title:     title,
		Message:   fmt.Sprintf("Reservation %s (%s ~ %s) is now %s", r.ReservationNumber, day(r.StartDate), day(r.EndDate), r.Status),
		RelatedID: r.ID,
	})
	for _, rc := range cases {
		s.notify(ctx, domain.NotificationMessage{
			UserID:    domain.AdminAudience,
			Type:      domain.NotifRepairCreated,
			Title:     "Repair case opened",
			Message:   fmt.Sprintf("%s %s returned %s (reservation %s)", rc.EquipmentName, rc.SerialNumber, rc.DamageType, rc.ReservationNumber),
			RelatedID: rc.ID,
		})
	}
}

func (s *Service) notify(ctx context.Context, msg domain.NotificationMessage) {
	if s.notifs == nil {
		return
	}
	if err := s.notifs.Notify(ctx, msg); err != nil {
		log.Printf("[WARN] notify %s to %s failed: %v", msg.Type, msg.UserID, err)
	}
}

// equipmentIDs returns the sorted equipment ids of items, refusing repeated lines.
func equipmentIDs(items []ItemInput) ([]int64, error) {
	seen := make(map[int64]bool, len(items))
	ids := make([]int64, 0, len(items))
	for _, in := range items {
		if in.Quantity <= 0 {
			return nil, domain.Validationf("quantity must be positive")
		}
		if seen[in.EquipmentID] {
			return nil, domain.Validationf("equipment %d appears on more than one line", in.EquipmentID)
		}
		seen[in.EquipmentID] = true
		ids = append(ids, in.EquipmentID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func day(t time.Time) string { return t.Format("2006-01-02") }
