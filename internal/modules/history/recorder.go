package history

import (
	"context"
	"strconv"

	"filmrental/internal/domain"
	"filmrental/internal/repository"

	"github.com/google/uuid"
)

// Field is one audited attribute of a record as a display string.
type Field struct {
	Name  string
	Label string
	Value string
}

// Change describes one mutation to audit. Before is nil for creates, After is nil
// for deletes.
type Change struct {
	Actor      domain.ActorIdentity
	TargetType domain.TargetType
	TargetID   int64
	TargetName string
	Action     domain.ChangeAction
	Before     []Field
	After      []Field
	Source     domain.ChangeSource
	BatchID    string
}

type Recorder struct{}

func NewRecorder() *Recorder { return &Recorder{} }

// NewBatchID groups the entries of one bulk operation.
func NewBatchID() string { return uuid.NewString() }

// Record appends an entry inside the caller's transaction. Updates and status
// changes with no field difference write nothing and return nil.
func (r *Recorder) Record(ctx context.Context, tx *repository.Store, ch Change) (*domain.ChangeHistoryEntry, error) {
	changes := Diff(ch.Before, ch.After)
	if len(changes) == 0 && (ch.Action == domain.ActionUpdate || ch.Action == domain.ActionStatusChange) {
		return nil, nil
	}

	major, minor, found, err := tx.History.LatestVersion(ctx, ch.TargetType, ch.TargetID)
	if err != nil {
		return nil, err
	}
	major, minor = nextVersion(ch.Action, major, minor, found)

	source := ch.Source
	if source == "" {
		source = domain.SourceManual
	}
	entry := &domain.ChangeHistoryEntry{
		ActorID:      ch.Actor.ID,
		ActorName:    ch.Actor.DisplayName(),
		ActorEmail:   ch.Actor.Email,
		TargetType:   ch.TargetType,
		TargetID:     ch.TargetID,
		TargetName:   ch.TargetName,
		Action:       ch.Action,
		Changes:      changes,
		Source:       source,
		BatchID:      ch.BatchID,
		VersionMajor: major,
		VersionMinor: minor,
	}
	if err := tx.History.Create(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func nextVersion(action domain.ChangeAction, major, minor int, found bool) (int, int) {
	if !found {
		return 1, 0
	}
	switch action {
	case domain.ActionCreate, domain.ActionDelete:
		return major + 1, 0
	default:
		return major, minor + 1
	}
}

// Diff lists fields whose value differs; a field missing on one side counts as empty.
func Diff(before, after []Field) []domain.FieldChange {
	old := make(map[string]Field, len(before))
	for _, f := range before {
		old[f.Name] = f
	}

	out := []domain.FieldChange{}
	seen := make(map[string]bool, len(after))
	for _, f := range after {
		seen[f.Name] = true
		prev := old[f.Name]
		if prev.Value == f.Value {
			continue
		}
		out = append(out, domain.FieldChange{Field: f.Name, FieldLabel: f.Label, OldValue: prev.Value, NewValue: f.Value})
	}
	for _, f := range before {
		if seen[f.Name] || f.Value == "" {
			continue
		}
		out = append(out, domain.FieldChange{Field: f.Name, FieldLabel: f.Label, OldValue: f.Value})
	}
	return out
}

func EquipmentFields(e *domain.EquipmentType) []Field {
	return []Field{
		{Name: "name", Label: "Name", Value: e.Name},
		{Name: "category_id", Label: "Category", Value: strconv.FormatInt(e.CategoryID, 10)},
		{Name: "description", Label: "Description", Value: e.Description},
		{Name: "total_quantity", Label: "Total quantity", Value: strconv.Itoa(e.TotalQuantity)},
		{Name: "is_visible", Label: "Visible", Value: strconv.FormatBool(e.IsVisible)},
		{Name: "sort_order", Label: "Sort order", Value: strconv.Itoa(e.SortOrder)},
		{Name: "group_print", Label: "Group print", Value: strconv.FormatBool(e.GroupPrint)},
	}
}

func AssetFields(a *domain.Asset) []Field {
	return []Field{
		{Name: "equipment_id", Label: "Equipment", Value: strconv.FormatInt(a.EquipmentID, 10)},
		{Name: "serial_number", Label: "Serial number", Value: a.SerialNumber},
		{Name: "management_code", Label: "Management code", Value: a.ManagementCode},
		{Name: "status", Label: "Status", Value: string(a.Status)},
		{Name: "note", Label: "Note", Value: a.Note},
	}
}

// AssetStatusChange records an asset moving from one status to another.
func (r *Recorder) AssetStatusChange(ctx context.Context, tx *repository.Store, actor domain.ActorIdentity, a *domain.Asset, from domain.AssetStatus) error {
	_, err := r.Record(ctx, tx, Change{
		Actor:      actor,
		TargetType: domain.TargetAsset,
		TargetID:   a.ID,
		TargetName: a.Label(),
		Action:     domain.ActionStatusChange,
		Before:     []Field{{Name: "status", Label: "Status", Value: string(from)}},
		After:      []Field{{Name: "status", Label: "Status", Value: string(a.Status)}},
	})
	return err
}
