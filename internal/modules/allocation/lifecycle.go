package allocation

import (
	"context"
	"strings"

	"filmrental/internal/domain"
	"filmrental/internal/repository"
)

// ReturnEntry is the reported condition of one returned asset.
type ReturnEntry struct {
	AssetID   int64                  `json:"asset_id" validate:"gt=0"`
	Condition domain.ReturnCondition `json:"condition"`
	Notes     string                 `json:"notes"`
}

// Checkout hands out every assigned asset of an approved reservation. The caller
// owns the transaction and the allocation locks (see WithReservation).
func (e *Engine) Checkout(ctx context.Context, tx *repository.Store, actor domain.ActorIdentity, r *domain.Reservation) error {
	if r.Status != domain.ReservationApproved {
		return domain.InvalidTransitionf("only approved reservations can be checked out, reservation is %s", r.Status)
	}
	ids := r.AssignedAssetIDs()
	if err := e.ensureNotHeld(ctx, tx, r, ids); err != nil {
		return err
	}
	assets, err := tx.Assets.GetByIDs(ctx, ids, true)
	if err != nil {
		return err
	}

	for i := range r.Items {
		item := &r.Items[i]
		for _, id := range item.AssignedAssets {
			a, ok := assets[id]
			if !ok {
				return domain.NotFoundf("asset %d", id)
			}
			if !a.Status.CanCheckOut() {
				return domain.Validationf("asset %s is %s and cannot be checked out", a.Label(), a.Status)
			}
			if err := e.moveAsset(ctx, tx, actor, r, a, domain.AssetRented, domain.AssetHistory{
				Action: domain.AssetActionRented,
			}); err != nil {
				return err
			}
		}
		item.CheckedOut = true
		if err := tx.Reservations.UpdateItemFlags(ctx, item); err != nil {
			return err
		}
	}
	return nil
}

// RevertCheckout undoes a checkout (rented → approved): assets go back to
// available, assignments are kept.
func (e *Engine) RevertCheckout(ctx context.Context, tx *repository.Store, actor domain.ActorIdentity, r *domain.Reservation) error {
	if r.Status != domain.ReservationRented {
		return domain.InvalidTransitionf("checkout of a %s reservation cannot be reverted", r.Status)
	}
	ids := r.AssignedAssetIDs()
	assets, err := tx.Assets.GetByIDs(ctx, ids, true)
	if err != nil {
		return err
	}
	if err := e.releaseAssets(ctx, tx, actor, r, ids, assets, "checkout reverted"); err != nil {
		return err
	}
	for i := range r.Items {
		r.Items[i].CheckedOut = false
		if err := tx.Reservations.UpdateItemFlags(ctx, &r.Items[i]); err != nil {
			return err
		}
	}
	return nil
}

// Return checks every assigned asset of a rented reservation back in. Assets not
// listed in entries come back in normal condition. Each damaged or incomplete
// asset opens one repair case, returned to the caller.
func (e *Engine) Return(ctx context.Context, tx *repository.Store, actor domain.ActorIdentity,
	r *domain.Reservation, entries []ReturnEntry, note string) ([]domain.RepairCase, error) {
	if r.Status != domain.ReservationRented {
		return nil, domain.InvalidTransitionf("only rented reservations can be returned, reservation is %s", r.Status)
	}

	owner := make(map[int64]*domain.ReservationItem)
	for i := range r.Items {
		for _, id := range r.Items[i].AssignedAssets {
			owner[id] = &r.Items[i]
		}
	}
	byAsset := make(map[int64]ReturnEntry, len(entries))
	for _, en := range entries {
		if owner[en.AssetID] == nil {
			return nil, domain.Validationf("asset %d is not assigned to reservation %s", en.AssetID, r.ReservationNumber)
		}
		if _, dup := byAsset[en.AssetID]; dup {
			return nil, domain.Validationf("asset %d is listed twice", en.AssetID)
		}
		if en.Condition == "" {
			en.Condition = domain.ConditionNormal
		}
		if !en.Condition.Valid() {
			return nil, domain.Validationf("unknown return condition %q", en.Condition)
		}
		byAsset[en.AssetID] = en
	}

	ids := r.AssignedAssetIDs()
	assets, err := tx.Assets.GetByIDs(ctx, ids, true)
	if err != nil {
		return nil, err
	}

	note = strings.TrimSpace(note)
	cases := []domain.RepairCase{}
	for _, id := range ids {
		a, ok := assets[id]
		if !ok {
			// Deleted while rented; nothing to check in.
			continue
		}
		en, listed := byAsset[id]
		if !listed {
			en = ReturnEntry{AssetID: id, Condition: domain.ConditionNormal}
		}
		notes := strings.TrimSpace(en.Notes)
		if notes == "" {
			notes = note
		}

		if err := e.moveAsset(ctx, tx, actor, r, a, en.Condition.StatusAfterReturn(), domain.AssetHistory{
			Action:      domain.AssetActionReturned,
			ReturnNotes: notes,
			Condition:   en.Condition,
		}); err != nil {
			return nil, err
		}

		damage, ok := domain.DamageTypeFor(en.Condition)
		if !ok {
			continue
		}
		now := e.now()
		rc := domain.RepairCase{
			ReservationID:     r.ID,
			AssetID:           a.ID,
			EquipmentName:     owner[id].Name,
			SerialNumber:      a.SerialNumber,
			UserName:          r.Contact(),
			ReservationNumber: r.ReservationNumber,
			Stage:             domain.StageDamageConfirmed,
			DamageType:        damage,
			Description:       notes,
			DamageConfirmedAt: &now,
		}
		if err := tx.Repairs.Create(ctx, &rc); err != nil {
			return nil, err
		}
		cases = append(cases, rc)
	}

	for i := range r.Items {
		r.Items[i].Returned = true
		if err := tx.Reservations.UpdateItemFlags(ctx, &r.Items[i]); err != nil {
			return nil, err
		}
	}
	return cases, nil
}

// Release drops every assignment of a reservation that is being cancelled or
// rejected. Assets it had out are checked back in as available.
func (e *Engine) Release(ctx context.Context, tx *repository.Store, actor domain.ActorIdentity, r *domain.Reservation, reason string) error {
	if r.Status == domain.ReservationRented {
		ids := r.AssignedAssetIDs()
		assets, err := tx.Assets.GetByIDs(ctx, ids, true)
		if err != nil {
			return err
		}
		if err := e.releaseAssets(ctx, tx, actor, r, ids, assets, reason); err != nil {
			return err
		}
	}
	if err := tx.Reservations.ClearAssignments(ctx, r.ID); err != nil {
		return err
	}
	for i := range r.Items {
		r.Items[i].AssignedAssets = []int64{}
	}
	return nil
}
