package allocation

import (
	"context"
	"sort"

	"filmrental/internal/domain"
	"filmrental/internal/repository"
)

// Assignment is the full asset list for one reservation line.
type Assignment struct {
	EquipmentID int64   `json:"equipment_id" validate:"gt=0"`
	AssetIDs    []int64 `json:"asset_ids"`
}

// Assign replaces the asset lists of the given lines. Admins may pre-pick before
// approval, so pending, approved and rented reservations are accepted. The call is
// all-or-nothing.
func (e *Engine) Assign(ctx context.Context, actor domain.ActorIdentity, reservationID int64, assignments []Assignment) (*domain.Reservation, error) {
	if !actor.IsAdmin() {
		return nil, domain.Forbiddenf("only administrators assign assets")
	}
	if len(assignments) == 0 {
		return nil, domain.Validationf("at least one assignment is required")
	}

	err := e.WithReservation(ctx, reservationID, nil, func(tx *repository.Store, r *domain.Reservation) error {
		if r.Status.IsTerminal() {
			return domain.InvalidTransitionf("reservation %d is %s", r.ID, r.Status)
		}

		lines := make(map[int64]bool, len(assignments))
		seen := make(map[int64]bool)
		var all []int64
		for _, a := range assignments {
			item := r.Item(a.EquipmentID)
			if item == nil {
				return domain.Validationf("reservation has no line for equipment %d", a.EquipmentID)
			}
			if lines[a.EquipmentID] {
				return domain.Validationf("equipment %d is listed twice", a.EquipmentID)
			}
			lines[a.EquipmentID] = true
			if len(a.AssetIDs) > item.Quantity {
				return domain.Validationf("%d assets for %q exceed the reserved quantity %d", len(a.AssetIDs), item.Name, item.Quantity)
			}
			for _, id := range a.AssetIDs {
				if seen[id] {
					return domain.Validationf("asset %d appears more than once", id)
				}
				seen[id] = true
			}
			all = append(all, a.AssetIDs...)
		}

		assets, err := e.loadForLines(ctx, tx, r, all, nil)
		if err != nil {
			return err
		}
		if err := e.ensureNotHeld(ctx, tx, r, all); err != nil {
			return err
		}

		for _, a := range assignments {
			if err := e.apply(ctx, tx, actor, r, r.Item(a.EquipmentID), a.AssetIDs, assets); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return e.store.Reservations.GetByID(ctx, reservationID)
}

// Reassign swaps the assets of one line while the reservation is approved or rented.
// oldAssetIDs must match the current assignment so concurrent edits are detected.
func (e *Engine) Reassign(ctx context.Context, actor domain.ActorIdentity, reservationID, equipmentID int64, oldAssetIDs, newAssetIDs []int64) (*domain.Reservation, error) {
	if !actor.IsAdmin() {
		return nil, domain.Forbiddenf("only administrators reassign assets")
	}

	err := e.WithReservation(ctx, reservationID, nil, func(tx *repository.Store, r *domain.Reservation) error {
		if !r.Status.IsActive() {
			return domain.InvalidTransitionf("assets can be reassigned only while approved or rented, reservation is %s", r.Status)
		}
		item := r.Item(equipmentID)
		if item == nil {
			return domain.Validationf("reservation has no line for equipment %d", equipmentID)
		}
		if !sameSet(item.AssignedAssets, oldAssetIDs) {
			return domain.NewConflict("assignment is stale, reload and try again",
				append(difference(item.AssignedAssets, oldAssetIDs), difference(oldAssetIDs, item.AssignedAssets)...)...)
		}
		if len(newAssetIDs) > item.Quantity {
			return domain.Validationf("%d assets for %q exceed the reserved quantity %d", len(newAssetIDs), item.Name, item.Quantity)
		}
		seen := make(map[int64]bool, len(newAssetIDs))
		for _, id := range newAssetIDs {
			if seen[id] {
				return domain.Validationf("asset %d appears more than once", id)
			}
			seen[id] = true
		}
		for _, other := range r.Items {
			if other.EquipmentID == equipmentID {
				continue
			}
			for _, id := range other.AssignedAssets {
				if seen[id] {
					return domain.Validationf("asset %d is already assigned to another line", id)
				}
			}
		}

		added := difference(newAssetIDs, item.AssignedAssets)
		assets, err := e.loadForLines(ctx, tx, r, added, item.AssignedAssets)
		if err != nil {
			return err
		}
		if err := e.ensureNotHeld(ctx, tx, r, added); err != nil {
			return err
		}
		return e.apply(ctx, tx, actor, r, item, newAssetIDs, assets)
	})
	if err != nil {
		return nil, err
	}
	return e.store.Reservations.GetByID(ctx, reservationID)
}

// loadForLines row-locks ids (validated against r's lines) and extra (loaded as is).
func (e *Engine) loadForLines(ctx context.Context, tx *repository.Store, r *domain.Reservation, ids, extra []int64) (map[int64]*domain.Asset, error) {
	all := append(append([]int64(nil), ids...), extra...)
	sort.Slice(all, func(i, j int) bool { return all[i] < all[j] })
	assets, err := tx.Assets.GetByIDs(ctx, all, true)
	if err != nil {
		return nil, err
	}

	for _, id := range ids {
		a, ok := assets[id]
		if !ok {
			return nil, domain.NotFoundf("asset %d", id)
		}
		if !a.Status.Assignable() {
			return nil, domain.Validationf("asset %s is %s", a.Label(), a.Status)
		}
		if r.Item(a.EquipmentID) == nil {
			return nil, domain.Validationf("asset %s does not belong to any reserved equipment", a.Label())
		}
	}
	return assets, nil
}

// apply writes newIDs as the line's assignment. On a rented reservation released
// assets go back to available and added assets go out as rented.
func (e *Engine) apply(ctx context.Context, tx *repository.Store, actor domain.ActorIdentity,
	r *domain.Reservation, item *domain.ReservationItem, newIDs []int64, assets map[int64]*domain.Asset) error {
	for _, id := range newIDs {
		if a := assets[id]; a != nil && a.EquipmentID != item.EquipmentID {
			return domain.Validationf("asset %s belongs to equipment %d, not %q", a.Label(), a.EquipmentID, item.Name)
		}
	}

	removed := difference(item.AssignedAssets, newIDs)
	added := difference(newIDs, item.AssignedAssets)

	if r.Status == domain.ReservationRented {
		if err := e.releaseAssets(ctx, tx, actor, r, removed, assets, "reassigned"); err != nil {
			return err
		}
		for _, id := range added {
			if a := assets[id]; a != nil && !a.Status.CanCheckOut() {
				return domain.Validationf("asset %s is %s and cannot be checked out", a.Label(), a.Status)
			}
		}
		for _, id := range added {
			if err := e.moveAsset(ctx, tx, actor, r, assets[id], domain.AssetRented, domain.AssetHistory{
				Action: domain.AssetActionRented,
			}); err != nil {
				return err
			}
		}
	}

	item.AssignedAssets = append([]int64{}, newIDs...)
	return tx.Reservations.SetAssignments(ctx, item)
}
