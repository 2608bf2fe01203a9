package inventory

import "filmrental/internal/domain"

type CreateEquipmentRequest struct {
	Name          string `json:"name" binding:"required" validate:"required,max=200"`
	CategoryID    int64  `json:"category_id" validate:"gte=0"`
	Description   string `json:"description"`
	TotalQuantity int    `json:"total_quantity" validate:"gte=0"`
	IsVisible     *bool  `json:"is_visible"`
	SortOrder     *int   `json:"sort_order"`
	GroupPrint    bool   `json:"group_print"`
}

// UpdateEquipmentRequest changes only the fields that are set.
type UpdateEquipmentRequest struct {
	Name          *string `json:"name" validate:"omitempty,min=1,max=200"`
	Description   *string `json:"description"`
	TotalQuantity *int    `json:"total_quantity" validate:"omitempty,gte=0"`
	IsVisible     *bool   `json:"is_visible"`
	SortOrder     *int    `json:"sort_order"`
	GroupPrint    *bool   `json:"group_print"`
}

type MoveCategoryRequest struct {
	CategoryID int64 `json:"category_id" binding:"gte=0"`
}

type CreateAssetRequest struct {
	SerialNumber   string             `json:"serial_number" validate:"max=100"`
	ManagementCode string             `json:"management_code" validate:"max=100"`
	Status         domain.AssetStatus `json:"status"`
	Note           string             `json:"note"`
}

type BatchAssetsRequest struct {
	Serials string `json:"serials" binding:"required"`
}

type UpdateAssetRequest struct {
	SerialNumber   *string `json:"serial_number" validate:"omitempty,max=100"`
	ManagementCode *string `json:"management_code" validate:"omitempty,max=100"`
	Note           *string `json:"note"`
}

type SetStatusRequest struct {
	Status domain.AssetStatus `json:"status" binding:"required"`
}

// AssetView is an asset as listed for admins. AssignedToActive flags assets an
// approved or rented reservation lists, whatever their recorded status says.
type AssetView struct {
	domain.Asset
	AssignedToActive bool  `json:"assigned_to_active"`
	ReservationID    int64 `json:"reservation_id,omitempty"`
}

// ImportRow is one already-parsed spreadsheet line.
type ImportRow struct {
	EquipmentName  string `json:"equipment_name"`
	CategoryID     int64  `json:"category_id"`
	SerialNumber   string `json:"serial_number"`
	ManagementCode string `json:"management_code"`
	Note           string `json:"note"`
}

type ImportRequest struct {
	Rows []ImportRow `json:"rows" binding:"required,min=1"`
}

type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

type ImportResult struct {
	BatchID          string     `json:"batch_id"`
	EquipmentCreated int        `json:"equipment_created"`
	AssetsCreated    int        `json:"assets_created"`
	Errors           int        `json:"errors"`
	RowErrors        []RowError `json:"row_errors"`
}
