package reservation

import (
	"filmrental/internal/domain"
	"filmrental/internal/modules/allocation"
)

type ItemInput struct {
	EquipmentID int64 `json:"equipment_id" binding:"required,gt=0" validate:"gt=0"`
	Quantity    int   `json:"quantity" binding:"required,gt=0" validate:"gt=0"`
}

type CreateReservationRequest struct {
	StartDate     string      `json:"start_date" binding:"required" validate:"required"`
	EndDate       string      `json:"end_date" binding:"required" validate:"required"`
	Purpose       string      `json:"purpose" binding:"required" validate:"required,max=200"`
	PurposeDetail string      `json:"purpose_detail" validate:"max=2000"`
	LeaderName    string      `json:"leader_name" validate:"max=100"`
	LeaderPhone   string      `json:"leader_phone" validate:"max=40"`
	LeaderEmail   string      `json:"leader_email" validate:"omitempty,email"`
	Items         []ItemInput `json:"items" binding:"required,min=1,dive" validate:"required,min=1,dive"`
}

type UpdateItemsRequest struct {
	Items []ItemInput `json:"items" binding:"required,min=1,dive"`
}

type ChangeStatusRequest struct {
	Status     string `json:"status" binding:"required"`
	RepairNote string `json:"repair_note"`
}

type ReturnRequest struct {
	Returns    []allocation.ReturnEntry `json:"returns"`
	RepairNote string                   `json:"repair_note"`
}

// TransitionResult is a reservation after a status change, plus the repair cases a
// return opened.
type TransitionResult struct {
	Reservation *domain.Reservation `json:"reservation"`
	RepairCases []domain.RepairCase `json:"repair_cases,omitempty"`
}

type ListResult struct {
	Items    []*domain.Reservation `json:"items"`
	Total    int64                 `json:"total"`
	Page     int                   `json:"page"`
	PageSize int                   `json:"page_size"`
}
