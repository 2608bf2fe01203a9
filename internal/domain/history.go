package domain

import "time"

type TargetType string

const (
	TargetEquipment TargetType = "equipment"
	TargetAsset     TargetType = "asset"
)

func (t TargetType) Valid() bool { return t == TargetEquipment || t == TargetAsset }

type ChangeAction string

const (
	ActionCreate       ChangeAction = "create"
	ActionUpdate       ChangeAction = "update"
	ActionDelete       ChangeAction = "delete"
	ActionStatusChange ChangeAction = "status_change"
)

type ChangeSource string

const (
	SourceManual      ChangeSource = "manual"
	SourceExcelImport ChangeSource = "excel_import"
)

type FieldChange struct {
	Field      string `json:"field"`
	FieldLabel string `json:"fieldLabel"`
	OldValue   string `json:"oldValue"`
	NewValue   string `json:"newValue"`
}

// ChangeHistoryEntry is an immutable audit record of one inventory mutation.
type ChangeHistoryEntry struct {
	ID           int64         `json:"id"`
	ActorID      string        `json:"actor_id"`
	ActorName    string        `json:"actor_name"`
	ActorEmail   string        `json:"actor_email,omitempty"`
	TargetType   TargetType    `json:"target_type"`
	TargetID     int64         `json:"target_id"`
	TargetName   string        `json:"target_name"`
	Action       ChangeAction  `json:"action"`
	Changes      []FieldChange `json:"changes"`
	Source       ChangeSource  `json:"source"`
	BatchID      string        `json:"batch_id,omitempty"`
	VersionMajor int           `json:"version_major"`
	VersionMinor int           `json:"version_minor"`
	CreatedAt    time.Time     `json:"created_at"`
}
