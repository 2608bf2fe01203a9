package domain

import (
	"fmt"
	"time"
)

const DefaultSortOrder = 999

// EquipmentType is a bookable product kind (e.g. "Sony FX3"). Students reserve
// quantities of it; admins later bind concrete Assets.
type EquipmentType struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	CategoryID    int64     `json:"category_id"`
	Description   string    `json:"description,omitempty"`
	TotalQuantity int       `json:"total_quantity"`
	IsVisible     bool      `json:"is_visible"`
	SortOrder     int       `json:"sort_order"`
	GroupPrint    bool      `json:"group_print"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func NewEquipmentType(name string, categoryID int64) *EquipmentType {
	return &EquipmentType{
		Name:       name,
		CategoryID: categoryID,
		IsVisible:  true,
		SortOrder:  DefaultSortOrder,
	}
}

type AssetStatus string

const (
	AssetAvailable   AssetStatus = "available"
	AssetRented      AssetStatus = "rented"
	AssetMaintenance AssetStatus = "maintenance"
	AssetRepair      AssetStatus = "repair"
	AssetBroken      AssetStatus = "broken"
	AssetLost        AssetStatus = "lost"
	AssetRetired     AssetStatus = "retired"
)

func (s AssetStatus) Valid() bool {
	switch s {
	case AssetAvailable, AssetRented, AssetMaintenance, AssetRepair, AssetBroken, AssetLost, AssetRetired:
		return true
	}
	return false
}

// Assignable reports whether an asset in this status may be bound to a reservation.
func (s AssetStatus) Assignable() bool {
	return s != AssetLost && s != AssetRetired
}

// CanCheckOut reports whether an asset in this status may be handed out. Pre-picked
// assets still in maintenance, repair or broken must be swapped before checkout.
func (s AssetStatus) CanCheckOut() bool {
	return s == AssetAvailable
}

// Asset is one physical, serialized unit of an EquipmentType.
type Asset struct {
	ID             int64       `json:"id"`
	EquipmentID    int64       `json:"equipment_id"`
	SerialNumber   string      `json:"serial_number"`
	ManagementCode string      `json:"management_code"`
	Status         AssetStatus `json:"status"`
	Note           string      `json:"note,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

func (a *Asset) Label() string {
	switch {
	case a.SerialNumber != "":
		return a.SerialNumber
	case a.ManagementCode != "":
		return a.ManagementCode
	}
	return fmt.Sprintf("#%d", a.ID)
}

type AssetAction string

const (
	AssetActionRented   AssetAction = "rented"
	AssetActionReturned AssetAction = "returned"
)

type ReturnCondition string

const (
	ConditionNormal       ReturnCondition = "normal"
	ConditionDamaged      ReturnCondition = "damaged"
	ConditionMissingParts ReturnCondition = "missing_parts"
)

func (c ReturnCondition) Valid() bool {
	switch c {
	case ConditionNormal, ConditionDamaged, ConditionMissingParts:
		return true
	}
	return false
}

// StatusAfterReturn is the asset status a return with this condition leaves behind.
func (c ReturnCondition) StatusAfterReturn() AssetStatus {
	if c == ConditionNormal {
		return AssetAvailable
	}
	return AssetMaintenance
}

// AssetHistory is an append-only log line of an asset leaving or coming back.
type AssetHistory struct {
	ID            int64           `json:"id"`
	AssetID       int64           `json:"asset_id"`
	ReservationID int64           `json:"reservation_id,omitempty"`
	Action        AssetAction     `json:"action"`
	UserName      string          `json:"user_name"`
	ReturnNotes   string          `json:"return_notes,omitempty"`
	Condition     ReturnCondition `json:"condition,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}
