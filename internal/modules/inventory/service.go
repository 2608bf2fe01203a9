package inventory

import (
	"context"
	"log"
	"sort"
	"strings"

	"filmrental/internal/domain"
	"filmrental/internal/modules/history"
	"filmrental/internal/pkg/lock"
	"filmrental/internal/pkg/utils"
	"filmrental/internal/pkg/validator"
	"filmrental/internal/repository"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Service manages equipment types and their assets. Every mutation writes its
// change-history entry in the same transaction.
type Service struct {
	store    *repository.Store
	locker   lock.Locker
	recorder *history.Recorder
	locale   language.Tag
}

func NewService(store *repository.Store, locker lock.Locker, recorder *history.Recorder, locale string) *Service {
	tag, err := language.Parse(locale)
	if err != nil {
		log.Printf("[WARN] inventory: unknown catalog locale %q, using ko", locale)
		tag = language.Korean
	}
	return &Service{store: store, locker: locker, recorder: recorder, locale: tag}
}

func requireAdmin(actor domain.ActorIdentity) error {
	if !actor.IsAdmin() {
		return domain.Forbiddenf("inventory is managed by administrators")
	}
	return nil
}

func invalid(v interface{}) error {
	if errs := validator.Validate(v); errs != nil {
		return domain.Validationf("%s", validator.Format(errs))
	}
	return nil
}

// ListEquipment orders by sort order, then by name in the catalog locale.
func (s *Service) ListEquipment(ctx context.Context, includeHidden bool) ([]domain.EquipmentType, error) {
	list, err := s.store.Equipment.List(ctx, includeHidden)
	if err != nil {
		return nil, err
	}
	col := collate.New(s.locale)
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].SortOrder != list[j].SortOrder {
			return list[i].SortOrder < list[j].SortOrder
		}
		return col.CompareString(list[i].Name, list[j].Name) < 0
	})
	return list, nil
}

func (s *Service) GetEquipment(ctx context.Context, id int64) (*domain.EquipmentType, error) {
	return s.store.Equipment.GetByID(ctx, id)
}

func (s *Service) CreateEquipment(ctx context.Context, actor domain.ActorIdentity, req CreateEquipmentRequest) (*domain.EquipmentType, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := invalid(req); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.Validationf("name is required")
	}

	eq := domain.NewEquipmentType(name, req.CategoryID)
	eq.Description = strings.TrimSpace(req.Description)
	eq.TotalQuantity = req.TotalQuantity
	eq.GroupPrint = req.GroupPrint
	if req.IsVisible != nil {
		eq.IsVisible = *req.IsVisible
	}
	if req.SortOrder != nil {
		eq.SortOrder = *req.SortOrder
	}

	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		return s.createEquipment(ctx, tx, actor, eq, domain.SourceManual, "")
	})
	if err != nil {
		return nil, err
	}
	return eq, nil
}

func (s *Service) createEquipment(ctx context.Context, tx *repository.Store, actor domain.ActorIdentity,
	eq *domain.EquipmentType, source domain.ChangeSource, batchID string) error {
	if err := tx.Equipment.Create(ctx, eq); err != nil {
		return err
	}
	_, err := s.recorder.Record(ctx, tx, history.Change{
		Actor:      actor,
		TargetType: domain.TargetEquipment,
		TargetID:   eq.ID,
		TargetName: eq.Name,
		Action:     domain.ActionCreate,
		After:      history.EquipmentFields(eq),
		Source:     source,
		BatchID:    batchID,
	})
	return err
}

func (s *Service) UpdateEquipment(ctx context.Context, actor domain.ActorIdentity, id int64, req UpdateEquipmentRequest) (*domain.EquipmentType, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := invalid(req); err != nil {
		return nil, err
	}
	return s.editEquipment(ctx, actor, id, func(eq *domain.EquipmentType) error {
		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return domain.Validationf("name cannot be blank")
			}
			eq.Name = name
		}
		if req.Description != nil {
			eq.Description = strings.TrimSpace(*req.Description)
		}
		if req.TotalQuantity != nil {
			eq.TotalQuantity = *req.TotalQuantity
		}
		if req.IsVisible != nil {
			eq.IsVisible = *req.IsVisible
		}
		if req.SortOrder != nil {
			eq.SortOrder = *req.SortOrder
		}
		if req.GroupPrint != nil {
			eq.GroupPrint = *req.GroupPrint
		}
		return nil
	})
}

// MoveEquipmentToCategory changes only the category.
func (s *Service) MoveEquipmentToCategory(ctx context.Context, actor domain.ActorIdentity, id, categoryID int64) (*domain.EquipmentType, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if categoryID < 0 {
		return nil, domain.Validationf("category id must not be negative")
	}
	return s.editEquipment(ctx, actor, id, func(eq *domain.EquipmentType) error {
		eq.CategoryID = categoryID
		return nil
	})
}

func (s *Service) editEquipment(ctx context.Context, actor domain.ActorIdentity, id int64, edit func(eq *domain.EquipmentType) error) (*domain.EquipmentType, error) {
	unlock, err := s.locker.Lock(ctx, lock.EquipmentKey(id))
	if err != nil {
		return nil, err
	}
	defer unlock()

	var out *domain.EquipmentType
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		eq, err := tx.Equipment.GetByID(ctx, id)
		if err != nil {
			return err
		}
		before := history.EquipmentFields(eq)
		if err := edit(eq); err != nil {
			return err
		}
		if err := tx.Equipment.Update(ctx, eq); err != nil {
			return err
		}
		if _, err := s.recorder.Record(ctx, tx, history.Change{
			Actor:      actor,
			TargetType: domain.TargetEquipment,
			TargetID:   eq.ID,
			TargetName: eq.Name,
			Action:     domain.ActionUpdate,
			Before:     before,
			After:      history.EquipmentFields(eq),
		}); err != nil {
			return err
		}
		out = eq
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteEquipment removes the type with its assets. It is refused while any of
// its assets is assigned to an approved or rented reservation; pending pre-picks
// are dropped.
func (s *Service) DeleteEquipment(ctx context.Context, actor domain.ActorIdentity, id int64) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	unlock, err := s.locker.Lock(ctx, lock.EquipmentKey(id))
	if err != nil {
		return err
	}
	defer unlock()

	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		eq, err := tx.Equipment.GetByID(ctx, id)
		if err != nil {
			return err
		}
		held, err := tx.Reservations.OccupiedAssets(ctx, id, 0)
		if err != nil {
			return err
		}
		if len(held) > 0 {
			return domain.NewConflict("equipment has assets assigned to approved or rented reservations", held...)
		}
		if err := tx.Equipment.Delete(ctx, id); err != nil {
			return err
		}
		_, err = s.recorder.Record(ctx, tx, history.Change{
			Actor:      actor,
			TargetType: domain.TargetEquipment,
			TargetID:   eq.ID,
			TargetName: eq.Name,
			Action:     domain.ActionDelete,
			Before:     history.EquipmentFields(eq),
		})
		return err
	})
	if err != nil {
		return err
	}
	log.Printf("[INFO] equipment %d deleted by %s", id, actor.ID)
	return nil
}

func (s *Service) ListAssets(ctx context.Context, equipmentID int64) ([]AssetView, error) {
	if _, err := s.store.Equipment.GetByID(ctx, equipmentID); err != nil {
		return nil, err
	}
	assets, err := s.store.Assets.ListByEquipment(ctx, equipmentID)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(assets))
	for i, a := range assets {
		ids[i] = a.ID
	}
	holders, err := s.store.Reservations.FindHolders(ctx, ids, 0)
	if err != nil {
		return nil, err
	}
	out := make([]AssetView, 0, len(assets))
	for _, a := range assets {
		v := AssetView{Asset: a}
		if rid, ok := holders[a.ID]; ok {
			v.AssignedToActive, v.ReservationID = true, rid
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *Service) AssetHistory(ctx context.Context, assetID int64) ([]domain.AssetHistory, error) {
	if _, err := s.store.Assets.GetByID(ctx, assetID); err != nil {
		return nil, err
	}
	return s.store.Assets.History(ctx, assetID)
}

func (s *Service) CreateAsset(ctx context.Context, actor domain.ActorIdentity, equipmentID int64, req CreateAssetRequest) (*domain.Asset, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := invalid(req); err != nil {
		return nil, err
	}
	status := req.Status
	if status == "" {
		status = domain.AssetAvailable
	}
	if !status.Valid() {
		return nil, domain.Validationf("unknown asset status %q", status)
	}
	a := &domain.Asset{
		EquipmentID:    equipmentID,
		SerialNumber:   strings.TrimSpace(req.SerialNumber),
		ManagementCode: strings.TrimSpace(req.ManagementCode),
		Status:         status,
		Note:           strings.TrimSpace(req.Note),
	}

	unlock, err := s.locker.Lock(ctx, lock.EquipmentKey(equipmentID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		if _, err := tx.Equipment.GetByID(ctx, equipmentID); err != nil {
			return err
		}
		return s.createAsset(ctx, tx, actor, a, domain.SourceManual, "")
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// CreateAssetsBatch registers one asset per serial in text. Blank entries are
// dropped; a serial repeated in text or already registered fails the whole batch.
func (s *Service) CreateAssetsBatch(ctx context.Context, actor domain.ActorIdentity, equipmentID int64, text string) ([]domain.Asset, string, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, "", err
	}
	serials := utils.SplitSerials(text)
	if len(serials) == 0 {
		return nil, "", domain.Validationf("no serial numbers given")
	}
	if dups := utils.Duplicates(serials); len(dups) > 0 {
		return nil, "", domain.Validationf("serial numbers repeated in input: %s", strings.Join(dups, ", "))
	}

	unlock, err := s.locker.Lock(ctx, lock.EquipmentKey(equipmentID))
	if err != nil {
		return nil, "", err
	}
	defer unlock()

	batchID := history.NewBatchID()
	out := make([]domain.Asset, 0, len(serials))
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		if _, err := tx.Equipment.GetByID(ctx, equipmentID); err != nil {
			return err
		}
		existing, err := tx.Assets.ExistingSerials(ctx, equipmentID, serials)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return domain.Validationf("serial numbers already registered: %s", strings.Join(existing, ", "))
		}
		for _, sn := range serials {
			a := &domain.Asset{EquipmentID: equipmentID, SerialNumber: sn, Status: domain.AssetAvailable}
			if err := s.createAsset(ctx, tx, actor, a, domain.SourceManual, batchID); err != nil {
				return err
			}
			out = append(out, *a)
		}
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	log.Printf("[INFO] %d assets added to equipment %d (batch %s)", len(out), equipmentID, batchID)
	return out, batchID, nil
}

func (s *Service) createAsset(ctx context.Context, tx *repository.Store, actor domain.ActorIdentity,
	a *domain.Asset, source domain.ChangeSource, batchID string) error {
	if a.SerialNumber != "" {
		existing, err := tx.Assets.ExistingSerials(ctx, a.EquipmentID, []string{a.SerialNumber})
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return domain.Validationf("serial number %s is already registered", a.SerialNumber)
		}
	}
	if err := tx.Assets.Create(ctx, a); err != nil {
		return err
	}
	if err := tx.Equipment.AdjustTotalQuantity(ctx, a.EquipmentID, 1); err != nil {
		return err
	}
	_, err := s.recorder.Record(ctx, tx, history.Change{
		Actor:      actor,
		TargetType: domain.TargetAsset,
		TargetID:   a.ID,
		TargetName: a.Label(),
		Action:     domain.ActionCreate,
		After:      history.AssetFields(a),
		Source:     source,
		BatchID:    batchID,
	})
	return err
}

// UpdateAsset edits serial, management code and note. The equipment type of an
// asset never changes.
func (s *Service) UpdateAsset(ctx context.Context, actor domain.ActorIdentity, id int64, req UpdateAssetRequest) (*domain.Asset, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := invalid(req); err != nil {
		return nil, err
	}

	var out *domain.Asset
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		a, err := tx.Assets.GetByID(ctx, id)
		if err != nil {
			return err
		}
		before := history.AssetFields(a)
		if req.SerialNumber != nil {
			sn := strings.TrimSpace(*req.SerialNumber)
			if sn != "" && sn != a.SerialNumber {
				existing, err := tx.Assets.ExistingSerials(ctx, a.EquipmentID, []string{sn})
				if err != nil {
					return err
				}
				if len(existing) > 0 {
					return domain.Validationf("serial number %s is already registered", sn)
				}
			}
			a.SerialNumber = sn
		}
		if req.ManagementCode != nil {
			a.ManagementCode = strings.TrimSpace(*req.ManagementCode)
		}
		if req.Note != nil {
			a.Note = strings.TrimSpace(*req.Note)
		}
		if err := tx.Assets.Update(ctx, a); err != nil {
			return err
		}
		if _, err := s.recorder.Record(ctx, tx, history.Change{
			Actor:      actor,
			TargetType: domain.TargetAsset,
			TargetID:   a.ID,
			TargetName: a.Label(),
			Action:     domain.ActionUpdate,
			Before:     before,
			After:      history.AssetFields(a),
		}); err != nil {
			return err
		}
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SetAssetStatus is the manual status edit. It does not take the allocation lock
// and is allowed while the asset is assigned; listings flag such assets.
func (s *Service) SetAssetStatus(ctx context.Context, actor domain.ActorIdentity, id int64, status domain.AssetStatus) (*domain.Asset, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, domain.Validationf("unknown asset status %q", status)
	}

	var out *domain.Asset
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		a, err := tx.Assets.GetByID(ctx, id)
		if err != nil {
			return err
		}
		from := a.Status
		if from != status {
			if err := tx.Assets.UpdateStatus(ctx, a.ID, status); err != nil {
				return err
			}
			a.Status = status
			if err := s.recorder.AssetStatusChange(ctx, tx, actor, a, from); err != nil {
				return err
			}
		}
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteAsset removes an asset and its history. It is refused while an approved or
// rented reservation lists it; pending reservations lose the pre-pick.
func (s *Service) DeleteAsset(ctx context.Context, actor domain.ActorIdentity, id int64) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	a, err := s.store.Assets.GetByID(ctx, id)
	if err != nil {
		return err
	}
	unlock, err := s.locker.Lock(ctx, lock.EquipmentKey(a.EquipmentID))
	if err != nil {
		return err
	}
	defer unlock()

	return s.store.Transaction(ctx, func(tx *repository.Store) error {
		holders, err := tx.Reservations.FindHolders(ctx, []int64{id}, 0)
		if err != nil {
			return err
		}
		if len(holders) > 0 {
			return domain.NewConflict("asset is assigned to an approved or rented reservation", id)
		}
		if err := tx.Assets.Delete(ctx, id); err != nil {
			return err
		}
		if err := tx.Equipment.AdjustTotalQuantity(ctx, a.EquipmentID, -1); err != nil {
			return err
		}
		_, err = s.recorder.Record(ctx, tx, history.Change{
			Actor:      actor,
			TargetType: domain.TargetAsset,
			TargetID:   a.ID,
			TargetName: a.Label(),
			Action:     domain.ActionDelete,
			Before:     history.AssetFields(a),
		})
		return err
	})
}
