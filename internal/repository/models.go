package repository

import (
	"encoding/json"
	"time"

	"filmrental/internal/domain"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type equipmentModel struct {
	ID            int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Name          string    `gorm:"column:name;size:200;not null;index"`
	CategoryID    int64     `gorm:"column:category_id;index"`
	Description   string    `gorm:"column:description;type:text"`
	TotalQuantity int       `gorm:"column:total_quantity;not null"`
	IsVisible     bool      `gorm:"column:is_visible;not null"`
	SortOrder     int       `gorm:"column:sort_order;not null"`
	GroupPrint    bool      `gorm:"column:group_print;not null"`
	CreatedAt     time.Time `gorm:"column:created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at"`
}

func (equipmentModel) TableName() string { return "equipment_types" }

func toDomainEquipment(m equipmentModel) *domain.EquipmentType {
	return &domain.EquipmentType{
		ID:            m.ID,
		Name:          m.Name,
		CategoryID:    m.CategoryID,
		Description:   m.Description,
		TotalQuantity: m.TotalQuantity,
		IsVisible:     m.IsVisible,
		SortOrder:     m.SortOrder,
		GroupPrint:    m.GroupPrint,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func toEquipmentModel(e *domain.EquipmentType) equipmentModel {
	return equipmentModel{
		ID:            e.ID,
		Name:          e.Name,
		CategoryID:    e.CategoryID,
		Description:   e.Description,
		TotalQuantity: e.TotalQuantity,
		IsVisible:     e.IsVisible,
		SortOrder:     e.SortOrder,
		GroupPrint:    e.GroupPrint,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
}

type assetModel struct {
	ID             int64     `gorm:"column:id;primaryKey;autoIncrement"`
	EquipmentID    int64     `gorm:"column:equipment_id;not null;index"`
	SerialNumber   string    `gorm:"column:serial_number;size:120"`
	ManagementCode string    `gorm:"column:management_code;size:120"`
	Status         string    `gorm:"column:status;size:20;not null;index"`
	Note           string    `gorm:"column:note;type:text"`
	CreatedAt      time.Time `gorm:"column:created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at"`
}

func (assetModel) TableName() string { return "assets" }

func toDomainAsset(m assetModel) *domain.Asset {
	return &domain.Asset{
		ID:             m.ID,
		EquipmentID:    m.EquipmentID,
		SerialNumber:   m.SerialNumber,
		ManagementCode: m.ManagementCode,
		Status:         domain.AssetStatus(m.Status),
		Note:           m.Note,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func toAssetModel(a *domain.Asset) assetModel {
	return assetModel{
		ID:             a.ID,
		EquipmentID:    a.EquipmentID,
		SerialNumber:   a.SerialNumber,
		ManagementCode: a.ManagementCode,
		Status:         string(a.Status),
		Note:           a.Note,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

type assetHistoryModel struct {
	ID            int64     `gorm:"column:id;primaryKey;autoIncrement"`
	AssetID       int64     `gorm:"column:asset_id;not null;index"`
	ReservationID int64     `gorm:"column:reservation_id;index"`
	Action        string    `gorm:"column:action;size:20;not null"`
	UserName      string    `gorm:"column:user_name;size:120"`
	ReturnNotes   string    `gorm:"column:return_notes;type:text"`
	Condition     string    `gorm:"column:return_condition;size:20"`
	CreatedAt     time.Time `gorm:"column:created_at"`
}

func (assetHistoryModel) TableName() string { return "asset_histories" }

func toDomainAssetHistory(m assetHistoryModel) domain.AssetHistory {
	return domain.AssetHistory{
		ID:            m.ID,
		AssetID:       m.AssetID,
		ReservationID: m.ReservationID,
		Action:        domain.AssetAction(m.Action),
		UserName:      m.UserName,
		ReturnNotes:   m.ReturnNotes,
		Condition:     domain.ReturnCondition(m.Condition),
		CreatedAt:     m.CreatedAt,
	}
}

type reservationModel struct {
	ID                int64      `gorm:"column:id;primaryKey;autoIncrement"`
	ReservationNumber string     `gorm:"column:reservation_number;size:32;index"`
	UserID            string     `gorm:"column:user_id;size:128;not null;index"`
	UserName          string     `gorm:"column:user_name;size:120"`
	UserEmail         string     `gorm:"column:user_email;size:200"`
	Status            string     `gorm:"column:status;size:20;not null;index"`
	StartDate         time.Time  `gorm:"column:start_date;not null"`
	EndDate           time.Time  `gorm:"column:end_date;not null"`
	Purpose           string     `gorm:"column:purpose;size:200"`
	PurposeDetail     string     `gorm:"column:purpose_detail;type:text"`
	LeaderName        string     `gorm:"column:leader_name;size:120"`
	LeaderPhone       string     `gorm:"column:leader_phone;size:40"`
	LeaderEmail       string     `gorm:"column:leader_email;size:200"`
	ReturnNote        string     `gorm:"column:return_note;type:text"`
	CreatedAt         time.Time  `gorm:"column:created_at"`
	UpdatedAt         time.Time  `gorm:"column:updated_at"`
	ApprovedAt        *time.Time `gorm:"column:approved_at"`
	RentedAt          *time.Time `gorm:"column:rented_at"`
	ReturnedAt        *time.Time `gorm:"column:returned_at"`
	CancelledAt       *time.Time `gorm:"column:cancelled_at"`
	RejectedAt        *time.Time `gorm:"column:rejected_at"`
}

func (reservationModel) TableName() string { return "reservations" }

func toDomainReservation(m reservationModel) *domain.Reservation {
	return &domain.Reservation{
		ID:                m.ID,
		ReservationNumber: m.ReservationNumber,
		UserID:            m.UserID,
		UserName:          m.UserName,
		UserEmail:         m.UserEmail,
		Status:            domain.ReservationStatus(m.Status),
		StartDate:         m.StartDate.UTC(),
		EndDate:           m.EndDate.UTC(),
		Purpose:           m.Purpose,
		PurposeDetail:     m.PurposeDetail,
		LeaderName:        m.LeaderName,
		LeaderPhone:       m.LeaderPhone,
		LeaderEmail:       m.LeaderEmail,
		ReturnNote:        m.ReturnNote,
		Items:             []domain.ReservationItem{},
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
		ApprovedAt:        m.ApprovedAt,
		RentedAt:          m.RentedAt,
		ReturnedAt:        m.ReturnedAt,
		CancelledAt:       m.CancelledAt,
		RejectedAt:        m.RejectedAt,
	}
}

func toReservationModel(r *domain.Reservation) reservationModel {
	return reservationModel{
		ID:                r.ID,
		ReservationNumber: r.ReservationNumber,
		UserID:            r.UserID,
		UserName:          r.UserName,
		UserEmail:         r.UserEmail,
		Status:            string(r.Status),
		StartDate:         r.StartDate,
		EndDate:           r.EndDate,
		Purpose:           r.Purpose,
		PurposeDetail:     r.PurposeDetail,
		LeaderName:        r.LeaderName,
		LeaderPhone:       r.LeaderPhone,
		LeaderEmail:       r.LeaderEmail,
		ReturnNote:        r.ReturnNote,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
		ApprovedAt:        r.ApprovedAt,
		RentedAt:          r.RentedAt,
		ReturnedAt:        r.ReturnedAt,
		CancelledAt:       r.CancelledAt,
		RejectedAt:        r.RejectedAt,
	}
}

type reservationItemModel struct {
	ID            int64  `gorm:"column:id;primaryKey;autoIncrement"`
	ReservationID int64  `gorm:"column:reservation_id;not null;index"`
	Position      int    `gorm:"column:position;not null"`
	EquipmentID   int64  `gorm:"column:equipment_id;not null;index"`
	Name          string `gorm:"column:name;size:200"`
	Quantity      int    `gorm:"column:quantity;not null"`
	CheckedOut    bool   `gorm:"column:checked_out;not null"`
	Returned      bool   `gorm:"column:returned;not null"`
}

func (reservationItemModel) TableName() string { return "reservation_items" }

type assignmentModel struct {
	ID            int64 `gorm:"column:id;primaryKey;autoIncrement"`
	ReservationID int64 `gorm:"column:reservation_id;not null;index"`
	ItemID        int64 `gorm:"column:item_id;not null;uniqueIndex:idx_assignment_item_asset"`
	EquipmentID   int64 `gorm:"column:equipment_id;not null;index"`
	AssetID       int64 `gorm:"column:asset_id;not null;index;uniqueIndex:idx_assignment_item_asset"`
	Position      int   `gorm:"column:position;not null"`
}

func (assignmentModel) TableName() string { return "reservation_assignments" }

type repairModel struct {
	ID                  int64               `gorm:"column:id;primaryKey;autoIncrement"`
	ReservationID       int64               `gorm:"column:reservation_id;index"`
	AssetID             int64               `gorm:"column:asset_id;index"`
	EquipmentName       string              `gorm:"column:equipment_name;size:200"`
	SerialNumber        string              `gorm:"column:serial_number;size:120"`
	UserName            string              `gorm:"column:user_name;size:120"`
	ReservationNumber   string              `gorm:"column:reservation_number;size:32"`
	Stage               string              `gorm:"column:stage;size:30;not null;index"`
	DamageType          string              `gorm:"column:damage_type;size:20;not null"`
	Description         string              `gorm:"column:description;type:text"`
	DamageConfirmedAt   *time.Time          `gorm:"column:damage_confirmed_at"`
	ChargeDecidedAt     *time.Time          `gorm:"column:charge_decided_at"`
	EstimateRequestedAt *time.Time          `gorm:"column:estimate_requested_at"`
	PaymentConfirmedAt  *time.Time          `gorm:"column:payment_confirmed_at"`
	CompletedAt         *time.Time          `gorm:"column:completed_at"`
	ChargeType          string              `gorm:"column:charge_type;size:30"`
	EstimateMemo        string              `gorm:"column:estimate_memo;type:text"`
	FinalAmount         decimal.NullDecimal `gorm:"column:final_amount;type:numeric(12,2)"`
	RepairResult        string              `gorm:"column:repair_result;size:20"`
	IsFixed             bool                `gorm:"column:is_fixed;not null"`
	AdminMemo           string              `gorm:"column:admin_memo;type:text"`
	CreatedAt           time.Time           `gorm:"column:created_at"`
	UpdatedAt           time.Time           `gorm:"column:updated_at"`
}

func (repairModel) TableName() string { return "repair_cases" }

func toDomainRepair(m repairModel) *domain.RepairCase {
	c := &domain.RepairCase{
		ID:                  m.ID,
		ReservationID:       m.ReservationID,
		AssetID:             m.AssetID,
		EquipmentName:       m.EquipmentName,
		SerialNumber:        m.SerialNumber,
		UserName:            m.UserName,
		ReservationNumber:   m.ReservationNumber,
		Stage:               domain.RepairStage(m.Stage),
		DamageType:          domain.DamageType(m.DamageType),
		Description:         m.Description,
		DamageConfirmedAt:   m.DamageConfirmedAt,
		ChargeDecidedAt:     m.ChargeDecidedAt,
		EstimateRequestedAt: m.EstimateRequestedAt,
		PaymentConfirmedAt:  m.PaymentConfirmedAt,
		CompletedAt:         m.CompletedAt,
		ChargeType:          domain.ChargeType(m.ChargeType),
		EstimateMemo:        m.EstimateMemo,
		RepairResult:        domain.RepairResult(m.RepairResult),
		IsFixed:             m.IsFixed,
		AdminMemo:           m.AdminMemo,
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
	}
	if m.FinalAmount.Valid {
		amount := m.FinalAmount.Decimal
		c.FinalAmount = &amount
	}
	return c
}

func toRepairModel(c *domain.RepairCase) repairModel {
	m := repairModel{
		ID:                  c.ID,
		ReservationID:       c.ReservationID,
		AssetID:             c.AssetID,
		EquipmentName:       c.EquipmentName,
		SerialNumber:        c.SerialNumber,
		UserName:            c.UserName,
		ReservationNumber:   c.ReservationNumber,
		Stage:               string(c.Stage),
		DamageType:          string(c.DamageType),
		Description:         c.Description,
		DamageConfirmedAt:   c.DamageConfirmedAt,
		ChargeDecidedAt:     c.ChargeDecidedAt,
		EstimateRequestedAt: c.EstimateRequestedAt,
		PaymentConfirmedAt:  c.PaymentConfirmedAt,
		CompletedAt:         c.CompletedAt,
		ChargeType:          string(c.ChargeType),
		EstimateMemo:        c.EstimateMemo,
		RepairResult:        string(c.RepairResult),
		IsFixed:             c.IsFixed,
		AdminMemo:           c.AdminMemo,
		CreatedAt:           c.CreatedAt,
		UpdatedAt:           c.UpdatedAt,
	}
	if c.FinalAmount != nil {
		m.FinalAmount = decimal.NewNullDecimal(*c.FinalAmount)
	}
	return m
}

type changeHistoryModel struct {
	ID           int64          `gorm:"column:id;primaryKey;autoIncrement"`
	ActorID      string         `gorm:"column:actor_id;size:128"`
	ActorName    string         `gorm:"column:actor_name;size:120"`
	ActorEmail   string         `gorm:"column:actor_email;size:200"`
	TargetType   string         `gorm:"column:target_type;size:20;not null;index:idx_history_target"`
	TargetID     int64          `gorm:"column:target_id;not null;index:idx_history_target"`
	TargetName   string         `gorm:"column:target_name;size:200"`
	Action       string         `gorm:"column:action;size:20;not null"`
	Changes      datatypes.JSON `gorm:"column:changes"`
	Source       string         `gorm:"column:source;size:20;not null"`
	BatchID      string         `gorm:"column:batch_id;size:36;index"`
	VersionMajor int            `gorm:"column:version_major;not null"`
	VersionMinor int            `gorm:"column:version_minor;not null"`
	CreatedAt    time.Time      `gorm:"column:created_at;index"`
}

func (changeHistoryModel) TableName() string { return "change_histories" }

func toDomainChange(m changeHistoryModel) (domain.ChangeHistoryEntry, error) {
	e := domain.ChangeHistoryEntry{
		ID:           m.ID,
		ActorID:      m.ActorID,
		ActorName:    m.ActorName,
		ActorEmail:   m.ActorEmail,
		TargetType:   domain.TargetType(m.TargetType),
		TargetID:     m.TargetID,
		TargetName:   m.TargetName,
		Action:       domain.ChangeAction(m.Action),
		Changes:      []domain.FieldChange{},
		Source:       domain.ChangeSource(m.Source),
		BatchID:      m.BatchID,
		VersionMajor: m.VersionMajor,
		VersionMinor: m.VersionMinor,
		CreatedAt:    m.CreatedAt,
	}
	if len(m.Changes) > 0 {
		if err := json.Unmarshal(m.Changes, &e.Changes); err != nil {
			return e, err
		}
	}
	return e, nil
}

func toChangeModel(e *domain.ChangeHistoryEntry) (changeHistoryModel, error) {
	raw, err := json.Marshal(e.Changes)
	if err != nil {
		return changeHistoryModel{}, err
	}
	return changeHistoryModel{
		ID:           e.ID,
		ActorID:      e.ActorID,
		ActorName:    e.ActorName,
		ActorEmail:   e.ActorEmail,
		TargetType:   string(e.TargetType),
		TargetID:     e.TargetID,
		TargetName:   e.TargetName,
		Action:       string(e.Action),
		Changes:      datatypes.JSON(raw),
		Source:       string(e.Source),
		BatchID:      e.BatchID,
		VersionMajor: e.VersionMajor,
		VersionMinor: e.VersionMinor,
		CreatedAt:    e.CreatedAt,
	}, nil
}

type notificationModel struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	UserID    string    `gorm:"column:user_id;size:128;not null;index"`
	Type      string    `gorm:"column:type;size:40;not null"`
	Title     string    `gorm:"column:title;size:200"`
	Message   string    `gorm:"column:message;type:text"`
	RelatedID int64     `gorm:"column:related_id"`
	IsRead    bool      `gorm:"column:is_read;not null"`
	CreatedAt time.Time `gorm:"column:created_at;index"`
}

func (notificationModel) TableName() string { return "notifications" }

func toDomainNotification(m notificationModel) domain.Notification {
	return domain.Notification{
		ID:        m.ID,
		UserID:    m.UserID,
		Type:      domain.NotificationType(m.Type),
		Title:     m.Title,
		Message:   m.Message,
		RelatedID: m.RelatedID,
		IsRead:    m.IsRead,
		CreatedAt: m.CreatedAt,
	}
}
