package inventory

import (
	"context"
	"errors"
	"log"
	"strings"

	"filmrental/internal/domain"
	"filmrental/internal/modules/history"
	"filmrental/internal/pkg/lock"
	"filmrental/internal/repository"
)

// ImportRows registers spreadsheet rows one transaction per row. A failing row is
// counted and reported; the rest of the import continues. Equipment types are
// created the first time their name is seen. All history entries share one batch
// id.
func (s *Service) ImportRows(ctx context.Context, actor domain.ActorIdentity, rows []ImportRow) (*ImportResult, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, domain.Validationf("no rows to import")
	}

	res := &ImportResult{BatchID: history.NewBatchID(), RowErrors: []RowError{}}
	for i, row := range rows {
		created, err := s.importRow(ctx, actor, row, res.BatchID)
		if err != nil {
			res.Errors++
			res.RowErrors = append(res.RowErrors, RowError{Row: i + 1, Message: err.Error()})
			continue
		}
		if created {
			res.EquipmentCreated++
		}
		res.AssetsCreated++
	}
	log.Printf("[INFO] import %s: %d assets, %d new equipment, %d errors",
		res.BatchID, res.AssetsCreated, res.EquipmentCreated, res.Errors)
	return res, nil
}

func (s *Service) importRow(ctx context.Context, actor domain.ActorIdentity, row ImportRow, batchID string) (bool, error) {
	name := strings.TrimSpace(row.EquipmentName)
	if name == "" {
		return false, domain.Validationf("equipment name is empty")
	}
	if row.CategoryID < 0 {
		return false, domain.Validationf("category id must not be negative")
	}

	eq, err := s.store.Equipment.GetByName(ctx, name)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return false, err
	}
	if eq != nil {
		unlock, err := s.locker.Lock(ctx, lock.EquipmentKey(eq.ID))
		if err != nil {
			return false, err
		}
		defer unlock()
	}

	created := false
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		if eq == nil {
			eq = domain.NewEquipmentType(name, row.CategoryID)
			if err := s.createEquipment(ctx, tx, actor, eq, domain.SourceExcelImport, batchID); err != nil {
				return err
			}
			created = true
		}
		a := &domain.Asset{
			EquipmentID:    eq.ID,
			SerialNumber:   strings.TrimSpace(row.SerialNumber),
			ManagementCode: strings.TrimSpace(row.ManagementCode),
			Status:         domain.AssetAvailable,
			Note:           strings.TrimSpace(row.Note),
		}
		return s.createAsset(ctx, tx, actor, a, domain.SourceExcelImport, batchID)
	})
	if err != nil {
		return false, err
	}
	return created, nil
}
