package repository

import (
	"context"
	"fmt"
	"time"

	"filmrental/internal/domain"

	"gorm.io/gorm"
)

type ReservationRepository struct {
	db *gorm.DB
}

func NewReservationRepository(db *gorm.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

type ReservationFilter struct {
	Status   domain.ReservationStatus
	UserID   string
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
}

// OccupancyRow is one reservation line of a given equipment type, used by the
// availability calculator.
type OccupancyRow struct {
	ReservationID     int64     `gorm:"column:reservation_id"`
	ReservationNumber string    `gorm:"column:reservation_number"`
	LeaderName        string    `gorm:"column:leader_name"`
	Status            string    `gorm:"column:status"`
	StartDate         time.Time `gorm:"column:start_date"`
	EndDate           time.Time `gorm:"column:end_date"`
	Quantity          int       `gorm:"column:quantity"`
}

func statusStrings(statuses []domain.ReservationStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func (r *ReservationRepository) Create(ctx context.Context, res *domain.Reservation) error {
	db := r.db.WithContext(ctx)
	m := toReservationModel(res)
	if err := db.Create(&m).Error; err != nil {
		return translate(err, "reservation")
	}
	res.ID, res.CreatedAt, res.UpdatedAt = m.ID, m.CreatedAt, m.UpdatedAt
	res.ReservationNumber = domain.ReservationNumber(res.StartDate, m.ID)
	if err := db.Model(&reservationModel{}).Where("id = ?", m.ID).
		Update("reservation_number", res.ReservationNumber).Error; err != nil {
		return err
	}
	return r.insertItems(ctx, res)
}

func (r *ReservationRepository) insertItems(ctx context.Context, res *domain.Reservation) error {
	db := r.db.WithContext(ctx)
	for i := range res.Items {
		it := &res.Items[i]
		it.ReservationID = res.ID
		it.Position = i
		if it.AssignedAssets == nil {
			it.AssignedAssets = []int64{}
		}
		m := reservationItemModel{
			ReservationID: res.ID,
			Position:      i,
			EquipmentID:   it.EquipmentID,
			Name:          it.Name,
			Quantity:      it.Quantity,
			CheckedOut:    it.CheckedOut,
			Returned:      it.Returned,
		}
		if err := db.Create(&m).Error; err != nil {
			return err
		}
		it.ID = m.ID
		if err := r.writeAssignments(ctx, it); err != nil {
			return err
		}
	}
	return nil
}

func (r *ReservationRepository) writeAssignments(ctx context.Context, it *domain.ReservationItem) error {
	if len(it.AssignedAssets) == 0 {
		return nil
	}
	rows := make([]assignmentModel, 0, len(it.AssignedAssets))
	for pos, assetID := range it.AssignedAssets {
		rows = append(rows, assignmentModel{
			ReservationID: it.ReservationID,
			ItemID:        it.ID,
			EquipmentID:   it.EquipmentID,
			AssetID:       assetID,
			Position:      pos,
		})
	}
	if err := r.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return translate(err, "assignment")
	}
	return nil
}

// SetAssignments replaces the assigned assets of one line, keeping the given order.
func (r *ReservationRepository) SetAssignments(ctx context.Context, it *domain.ReservationItem) error {
	if err := r.db.WithContext(ctx).Where("item_id = ?", it.ID).Delete(&assignmentModel{}).Error; err != nil {
		return err
	}
	return r.writeAssignments(ctx, it)
}

func (r *ReservationRepository) ClearAssignments(ctx context.Context, reservationID int64) error {
	return r.db.WithContext(ctx).Where("reservation_id = ?", reservationID).Delete(&assignmentModel{}).Error
}

// ReplaceItems rewrites the whole line list of a reservation.
func (r *ReservationRepository) ReplaceItems(ctx context.Context, res *domain.Reservation) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("reservation_id = ?", res.ID).Delete(&assignmentModel{}).Error; err != nil {
		return err
	}
	if err := db.Where("reservation_id = ?", res.ID).Delete(&reservationItemModel{}).Error; err != nil {
		return err
	}
	return r.insertItems(ctx, res)
}

func (r *ReservationRepository) UpdateItemFlags(ctx context.Context, it *domain.ReservationItem) error {
	return r.db.WithContext(ctx).Model(&reservationItemModel{}).Where("id = ?", it.ID).
		Updates(map[string]any{"checked_out": it.CheckedOut, "returned": it.Returned}).Error
}

// Update writes the reservation header; lines are written through their own methods.
func (r *ReservationRepository) Update(ctx context.Context, res *domain.Reservation) error {
	m := toReservationModel(res)
	if err := r.db.WithContext(ctx).Save(&m).Error; err != nil {
		return err
	}
	res.UpdatedAt = m.UpdatedAt
	return nil
}

func (r *ReservationRepository) GetByID(ctx context.Context, id int64) (*domain.Reservation, error) {
	return r.get(ctx, id, false)
}

// GetByIDForUpdate loads the reservation with its row locked where supported.
func (r *ReservationRepository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Reservation, error) {
	return r.get(ctx, id, true)
}

func (r *ReservationRepository) get(ctx context.Context, id int64, lock bool) (*domain.Reservation, error) {
	var m reservationModel
	if err := forUpdate(r.db.WithContext(ctx), lock).First(&m, "id = ?", id).Error; err != nil {
		return nil, translate(err, fmt.Sprintf("reservation %d", id))
	}
	out, err := r.attachItems(ctx, []reservationModel{m})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (r *ReservationRepository) attachItems(ctx context.Context, rows []reservationModel) ([]*domain.Reservation, error) {
	out := make([]*domain.Reservation, 0, len(rows))
	if len(rows) == 0 {
		return out, nil
	}
	ids := make([]int64, 0, len(rows))
	byID := make(map[int64]*domain.Reservation, len(rows))
	for _, m := range rows {
		res := toDomainReservation(m)
		ids = append(ids, m.ID)
		byID[m.ID] = res
		out = append(out, res)
	}

	db := r.db.WithContext(ctx)
	var items []reservationItemModel
	if err := db.Where("reservation_id IN ?", ids).Order("reservation_id, position, id").Find(&items).Error; err != nil {
		return nil, err
	}
	var assigns []assignmentModel
	if err := db.Where("reservation_id IN ?", ids).Order("item_id, position, id").Find(&assigns).Error; err != nil {
		return nil, err
	}
	assigned := make(map[int64][]int64)
	for _, a := range assigns {
		assigned[a.ItemID] = append(assigned[a.ItemID], a.AssetID)
	}

	for _, im := range items {
		res := byID[im.ReservationID]
		assets := assigned[im.ID]
		if assets == nil {
			assets = []int64{}
		}
		res.Items = append(res.Items, domain.ReservationItem{
			ID:             im.ID,
			ReservationID:  im.ReservationID,
			Position:       im.Position,
			EquipmentID:    im.EquipmentID,
			Name:           im.Name,
			Quantity:       im.Quantity,
			CheckedOut:     im.CheckedOut,
			Returned:       im.Returned,
			AssignedAssets: assets,
		})
	}
	return out, nil
}

// List returns reservations newest first along with the unpaged total.
func (r *ReservationRepository) List(ctx context.Context, f ReservationFilter) ([]*domain.Reservation, int64, error) {
	q := r.db.WithContext(ctx).Model(&reservationModel{})
	if f.Status != "" {
		q = q.Where("status = ?", string(f.Status))
	}
	if f.UserID != "" {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.From != nil {
		q = q.Where("end_date >= ?", domain.DateOnly(*f.From))
	}
	if f.To != nil {
		q = q.Where("start_date < ?", domain.DateOnly(*f.To).AddDate(0, 0, 1))
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if f.PageSize > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		q = q.Offset((page - 1) * f.PageSize).Limit(f.PageSize)
	}

	var rows []reservationModel
	if err := q.Order("start_date DESC, id DESC").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	out, err := r.attachItems(ctx, rows)
	return out, total, err
}

// ListPendingEndingBefore returns pending reservations whose end date is before day.
func (r *ReservationRepository) ListPendingEndingBefore(ctx context.Context, day time.Time) ([]*domain.Reservation, error) {
	var rows []reservationModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND end_date < ?", string(domain.ReservationPending), domain.DateOnly(day)).
		Order("id").Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return r.attachItems(ctx, rows)
}

// FindHolders maps each of assetIDs held by an active reservation other than
// excludeReservationID to that reservation.
func (r *ReservationRepository) FindHolders(ctx context.Context, assetIDs []int64, excludeReservationID int64) (map[int64]int64, error) {
	out := make(map[int64]int64)
	if len(assetIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		AssetID       int64 `gorm:"column:asset_id"`
		ReservationID int64 `gorm:"column:reservation_id"`
	}
	err := r.db.WithContext(ctx).Table("reservation_assignments AS ra").
		Select("ra.asset_id, ra.reservation_id").
		Joins("JOIN reservations r ON r.id = ra.reservation_id").
		Where("r.status IN ? AND ra.reservation_id <> ? AND ra.asset_id IN ?",
			statusStrings(domain.ActiveStatuses), excludeReservationID, assetIDs).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.AssetID] = row.ReservationID
	}
	return out, nil
}

// OccupiedAssets lists assets of the equipment type held by active reservations.
func (r *ReservationRepository) OccupiedAssets(ctx context.Context, equipmentID, excludeReservationID int64) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).Table("reservation_assignments AS ra").
		Distinct("ra.asset_id").
		Joins("JOIN reservations r ON r.id = ra.reservation_id").
		Where("ra.equipment_id = ? AND r.status IN ? AND ra.reservation_id <> ?",
			equipmentID, statusStrings(domain.ActiveStatuses), excludeReservationID).
		Order("ra.asset_id").
		Pluck("ra.asset_id", &ids).Error
	return ids, err
}

// Occupancy returns every line of the equipment type whose reservation is in one of statuses.
func (r *ReservationRepository) Occupancy(ctx context.Context, equipmentID int64, statuses []domain.ReservationStatus) ([]OccupancyRow, error) {
	var rows []OccupancyRow
	err := r.db.WithContext(ctx).Table("reservation_items AS ri").
		Select("r.id AS reservation_id, r.reservation_number, r.leader_name, r.status, r.start_date, r.end_date, ri.quantity").
		Joins("JOIN reservations r ON r.id = ri.reservation_id").
		Where("ri.equipment_id = ? AND r.status IN ?", equipmentID, statusStrings(statuses)).
		Order("r.start_date, r.id").
		Scan(&rows).Error
	return rows, err
}
