package allocation

import (
	"context"
	"errors"
	"log"
	"time"

	"filmrental/internal/domain"
	"filmrental/internal/modules/history"
	"filmrental/internal/pkg/lock"
	"filmrental/internal/repository"
)

const maxLockAttempts = 3

var errLinesChanged = errors.New("reservation lines changed while locking")

// Engine binds concrete assets to reservation lines and moves asset status through
// checkout and return. Every mutation runs in one transaction under the allocation
// lock of each equipment type it touches.
type Engine struct {
	store    *repository.Store
	locker   lock.Locker
	recorder *history.Recorder
	now      func() time.Time
}

func NewEngine(store *repository.Store, locker lock.Locker, recorder *history.Recorder) *Engine {
	return &Engine{
		store:    store,
		locker:   locker,
		recorder: recorder,
		now:      time.Now,
	}
}

// LockEquipment acquires the allocation locks of the given equipment types.
func (e *Engine) LockEquipment(ctx context.Context, equipmentIDs []int64) (func(), error) {
	keys := make([]string, 0, len(equipmentIDs))
	for _, id := range equipmentIDs {
		keys = append(keys, lock.EquipmentKey(id))
	}
	return lock.LockAll(ctx, e.locker, keys)
}

// WithReservation locks the reservation and every equipment type on its lines (plus
// extraEquipment), then runs fn in a transaction with the reservation re-read and
// row-locked. If the lines changed between the first read and locking, it retries.
func (e *Engine) WithReservation(ctx context.Context, reservationID int64, extraEquipment []int64,
	fn func(tx *repository.Store, r *domain.Reservation) error) error {
	for attempt := 0; attempt < maxLockAttempts; attempt++ {
		current, err := e.store.Reservations.GetByID(ctx, reservationID)
		if err != nil {
			return err
		}

		locked := make(map[int64]bool)
		keys := []string{lock.ReservationKey(reservationID)}
		for _, id := range append(current.EquipmentIDs(), extraEquipment...) {
			if !locked[id] {
				locked[id] = true
				keys = append(keys, lock.EquipmentKey(id))
			}
		}
		unlock, err := lock.LockAll(ctx, e.locker, keys)
		if err != nil {
			return err
		}

		err = e.store.Transaction(ctx, func(tx *repository.Store) error {
			r, err := tx.Reservations.GetByIDForUpdate(ctx, reservationID)
			if err != nil {
				return err
			}
			for _, id := range r.EquipmentIDs() {
				if !locked[id] {
					return errLinesChanged
				}
			}
			return fn(tx, r)
		})
		unlock()

		if errors.Is(err, errLinesChanged) {
			log.Printf("[WARN] allocation: reservation %d lines changed while locking, retrying", reservationID)
			continue
		}
		return err
	}
	return domain.NewConflict("reservation is being edited concurrently, try again")
}

// OccupiedAssets lists assets of an equipment type held by active reservations,
// for the admin asset picker.
func (e *Engine) OccupiedAssets(ctx context.Context, equipmentID, excludeReservationID int64) ([]int64, error) {
	if _, err := e.store.Equipment.GetByID(ctx, equipmentID); err != nil {
		return nil, err
	}
	ids, err := e.store.Reservations.OccupiedAssets(ctx, equipmentID, excludeReservationID)
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []int64{}
	}
	return ids, nil
}

// ValidateActivation runs before pending → approved: none of the reservation's
// assigned assets may be held by another active reservation.
func (e *Engine) ValidateActivation(ctx context.Context, tx *repository.Store, r *domain.Reservation) error {
	return e.ensureNotHeld(ctx, tx, r, r.AssignedAssetIDs())
}

func (e *Engine) ensureNotHeld(ctx context.Context, tx *repository.Store, r *domain.Reservation, ids []int64) error {
	holders, err := tx.Reservations.FindHolders(ctx, ids, r.ID)
	if err != nil {
		return err
	}
	if len(holders) == 0 {
		return nil
	}
	conflicting := make([]int64, 0, len(holders))
	for id := range holders {
		conflicting = append(conflicting, id)
	}
	return domain.NewConflict("assets are assigned to another approved or rented reservation", conflicting...)
}

// moveAsset changes an asset's status and appends both the asset log line and the
// change-history entry.
func (e *Engine) moveAsset(ctx context.Context, tx *repository.Store, actor domain.ActorIdentity,
	r *domain.Reservation, a *domain.Asset, to domain.AssetStatus, line domain.AssetHistory) error {
	from := a.Status
	if err := tx.Assets.UpdateStatus(ctx, a.ID, to); err != nil {
		return err
	}
	a.Status = to

	line.AssetID = a.ID
	line.ReservationID = r.ID
	line.UserName = r.Contact()
	line.CreatedAt = e.now()
	if err := tx.Assets.AppendHistory(ctx, &line); err != nil {
		return err
	}
	return e.recorder.AssetStatusChange(ctx, tx, actor, a, from)
}

// releaseAssets returns rented assets to available unless another active
// reservation still lists them.
func (e *Engine) releaseAssets(ctx context.Context, tx *repository.Store, actor domain.ActorIdentity,
	r *domain.Reservation, ids []int64, assets map[int64]*domain.Asset, reason string) error {
	if len(ids) == 0 {
		return nil
	}
	holders, err := tx.Reservations.FindHolders(ctx, ids, r.ID)
	if err != nil {
		return err
	}
	for _, id := range ids {
		a := assets[id]
		if a == nil || a.Status != domain.AssetRented || holders[id] != 0 {
			continue
		}
		if err := e.moveAsset(ctx, tx, actor, r, a, domain.AssetAvailable, domain.AssetHistory{
			Action:      domain.AssetActionReturned,
			ReturnNotes: reason,
			Condition:   domain.ConditionNormal,
		}); err != nil {
			return err
		}
	}
	return nil
}

func difference(a, b []int64) []int64 {
	in := make(map[int64]bool, len(b))
	for _, id := range b {
		in[id] = true
	}
	var out []int64
	for _, id := range a {
		if !in[id] {
			out = append(out, id)
		}
	}
	return out
}

func sameSet(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	return len(difference(a, b)) == 0 && len(difference(b, a)) == 0
}
