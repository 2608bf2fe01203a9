package repair

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"filmrental/internal/domain"
	"filmrental/internal/modules/history"
	"filmrental/internal/repository"
)

type NotificationSender interface {
	Notify(ctx context.Context, msg domain.NotificationMessage) error
}

type CreateRepairRequest struct {
	ReservationID int64             `json:"reservation_id"`
	AssetID       int64             `json:"asset_id"`
	EquipmentName string            `json:"equipment_name"`
	DamageType    domain.DamageType `json:"damage_type" binding:"required"`
	Description   string            `json:"description"`
}

type Service struct {
	store    *repository.Store
	recorder *history.Recorder
	notifs   NotificationSender
	now      func() time.Time
}

func NewService(store *repository.Store, recorder *history.Recorder, notifs NotificationSender) *Service {
	return &Service{store: store, recorder: recorder, notifs: notifs, now: time.Now}
}

// Create opens a repair case by hand. A referenced asset is taken out of
// circulation: lost for a lost report, maintenance otherwise. An asset that is
// currently rented keeps its status until it comes back.
func (s *Service) Create(ctx context.Context, actor domain.ActorIdentity, req CreateRepairRequest) (*domain.RepairCase, error) {
	if !actor.IsAdmin() {
		return nil, domain.Forbiddenf("only administrators open repair cases")
	}
	if !req.DamageType.Valid() {
		return nil, domain.Validationf("unknown damage type %q", req.DamageType)
	}
	now := s.now()
	rc := &domain.RepairCase{
		ReservationID:     req.ReservationID,
		AssetID:           req.AssetID,
		EquipmentName:     strings.TrimSpace(req.EquipmentName),
		Stage:             domain.StageDamageConfirmed,
		DamageType:        req.DamageType,
		Description:       strings.TrimSpace(req.Description),
		DamageConfirmedAt: &now,
	}

	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		if req.ReservationID > 0 {
			r, err := tx.Reservations.GetByID(ctx, req.ReservationID)
			if err != nil {
				return err
			}
			rc.ReservationNumber = r.ReservationNumber
			rc.UserName = r.Contact()
		}
		if req.AssetID > 0 {
			assets, err := tx.Assets.GetByIDs(ctx, []int64{req.AssetID}, true)
			if err != nil {
				return err
			}
			a, ok := assets[req.AssetID]
			if !ok {
				return domain.NotFoundf("asset %d", req.AssetID)
			}
			eq, err := tx.Equipment.GetByID(ctx, a.EquipmentID)
			if err != nil {
				return err
			}
			rc.EquipmentName = eq.Name
			rc.SerialNumber = a.SerialNumber

			to := rc.OpenAssetStatus()
			if a.Status != domain.AssetRented || to == domain.AssetLost {
				if err := s.setAssetStatus(ctx, tx, actor, a, to); err != nil {
					return err
				}
			}
		}
		if rc.EquipmentName == "" {
			return domain.Validationf("equipment name is required when no asset is given")
		}
		return tx.Repairs.Create(ctx, rc)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[INFO] repair case %d opened for %s by %s", rc.ID, rc.EquipmentName, actor.ID)
	if s.notifs != nil {
		if err := s.notifs.Notify(ctx, domain.NotificationMessage{
			UserID:    domain.AdminAudience,
			Type:      domain.NotifRepairCreated,
			Title:     "Repair case opened",
			Message:   fmt.Sprintf("%s %s: %s", rc.EquipmentName, rc.SerialNumber, rc.DamageType),
			RelatedID: rc.ID,
		}); err != nil {
			log.Printf("[WARN] notify repair %d failed: %v", rc.ID, err)
		}
	}
	return rc, nil
}

// Advance moves a case exactly one stage forward.
func (s *Service) Advance(ctx context.Context, actor domain.ActorIdentity, id int64, in domain.StageInput) (*domain.RepairCase, error) {
	return s.mutate(ctx, actor, id, func(tx *repository.Store, rc *domain.RepairCase) error {
		return rc.Advance(in, s.now())
	})
}

// Complete closes a case from payment_confirmed and puts the asset back in
// circulation, or retires it when the unit was disposed.
func (s *Service) Complete(ctx context.Context, actor domain.ActorIdentity, id int64, result domain.RepairResult, memo string) (*domain.RepairCase, error) {
	return s.mutate(ctx, actor, id, func(tx *repository.Store, rc *domain.RepairCase) error {
		if err := rc.Complete(result, memo, s.now()); err != nil {
			return err
		}
		if rc.AssetID == 0 {
			return nil
		}
		assets, err := tx.Assets.GetByIDs(ctx, []int64{rc.AssetID}, true)
		if err != nil {
			return err
		}
		a, ok := assets[rc.AssetID]
		if !ok {
			log.Printf("[WARN] repair case %d: asset %d no longer exists", rc.ID, rc.AssetID)
			return nil
		}
		if a.Status == domain.AssetRented {
			log.Printf("[WARN] repair case %d: asset %s is rented, status left as is", rc.ID, a.Label())
			return nil
		}
		return s.setAssetStatus(ctx, tx, actor, a, result.AssetStatus())
	})
}

// Revert moves a case back to an earlier stage, keeping entered data. Reopening a
// completed case puts its asset back under repair.
func (s *Service) Revert(ctx context.Context, actor domain.ActorIdentity, id int64, target domain.RepairStage) (*domain.RepairCase, error) {
	return s.mutate(ctx, actor, id, func(tx *repository.Store, rc *domain.RepairCase) error {
		reopened := rc.Stage == domain.StageCompleted
		if err := rc.RevertTo(target); err != nil {
			return err
		}
		if !reopened || rc.AssetID == 0 {
			return nil
		}
		assets, err := tx.Assets.GetByIDs(ctx, []int64{rc.AssetID}, true)
		if err != nil {
			return err
		}
		a, ok := assets[rc.AssetID]
		if !ok {
			return nil
		}
		// Only undo the status Complete set; later manual edits win.
		if a.Status != rc.RepairResult.AssetStatus() {
			log.Printf("[WARN] repair case %d reopened: asset %s is %s, status left as is", rc.ID, a.Label(), a.Status)
			return nil
		}
		return s.setAssetStatus(ctx, tx, actor, a, rc.OpenAssetStatus())
	})
}

func (s *Service) SetFixed(ctx context.Context, actor domain.ActorIdentity, id int64, fixed bool) (*domain.RepairCase, error) {
	return s.mutate(ctx, actor, id, func(tx *repository.Store, rc *domain.RepairCase) error {
		rc.IsFixed = fixed
		return nil
	})
}

func (s *Service) UpdateMemo(ctx context.Context, actor domain.ActorIdentity, id int64, memo string) (*domain.RepairCase, error) {
	return s.mutate(ctx, actor, id, func(tx *repository.Store, rc *domain.RepairCase) error {
		rc.AdminMemo = strings.TrimSpace(memo)
		return nil
	})
}

func (s *Service) Delete(ctx context.Context, actor domain.ActorIdentity, id int64) error {
	if !actor.IsAdmin() {
		return domain.Forbiddenf("only administrators delete repair cases")
	}
	if err := s.store.Repairs.Delete(ctx, id); err != nil {
		return err
	}
	log.Printf("[INFO] repair case %d deleted by %s", id, actor.ID)
	return nil
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.RepairCase, error) {
	return s.store.Repairs.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, f repository.RepairFilter) ([]domain.RepairCase, error) {
	if f.Stage != "" && !f.Stage.Valid() {
		return nil, domain.Validationf("unknown repair stage %q", f.Stage)
	}
	return s.store.Repairs.List(ctx, f)
}

func (s *Service) mutate(ctx context.Context, actor domain.ActorIdentity, id int64,
	fn func(tx *repository.Store, rc *domain.RepairCase) error) (*domain.RepairCase, error) {
	if !actor.IsAdmin() {
		return nil, domain.Forbiddenf("only administrators edit repair cases")
	}
	var out *domain.RepairCase
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		rc, err := tx.Repairs.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(tx, rc); err != nil {
			return err
		}
		if err := tx.Repairs.Update(ctx, rc); err != nil {
			return err
		}
		out = rc
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) setAssetStatus(ctx context.Context, tx *repository.Store, actor domain.ActorIdentity, a *domain.Asset, to domain.AssetStatus) error {
	if a.Status == to {
		return nil
	}
	from := a.Status
	if err := tx.Assets.UpdateStatus(ctx, a.ID, to); err != nil {
		return err
	}
	a.Status = to
	return s.recorder.AssetStatusChange(ctx, tx, actor, a, from)
}
