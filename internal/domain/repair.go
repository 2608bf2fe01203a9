package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type RepairStage string

const (
	StageDamageConfirmed   RepairStage = "damage_confirmed"
	StageChargeDecided     RepairStage = "charge_decided"
	StageEstimateRequested RepairStage = "estimate_requested"
	StagePaymentConfirmed  RepairStage = "payment_confirmed"
	StageCompleted         RepairStage = "completed"
)

// RepairStages is the linear stage order.
var RepairStages = []RepairStage{
	StageDamageConfirmed,
	StageChargeDecided,
	StageEstimateRequested,
	StagePaymentConfirmed,
	StageCompleted,
}

// Index returns the position of s in RepairStages, or -1.
func (s RepairStage) Index() int {
	for i, st := range RepairStages {
		if st == s {
			return i
		}
	}
	return -1
}

func (s RepairStage) Valid() bool { return s.Index() >= 0 }

func (s RepairStage) Next() (RepairStage, bool) {
	i := s.Index()
	if i < 0 || i+1 >= len(RepairStages) {
		return "", false
	}
	return RepairStages[i+1], true
}

type DamageType string

const (
	DamageDamaged      DamageType = "damaged"
	DamageLost         DamageType = "lost"
	DamageMissingParts DamageType = "missing_parts"
)

func (d DamageType) Valid() bool {
	return d == DamageDamaged || d == DamageLost || d == DamageMissingParts
}

// DamageTypeFor maps a return condition to the repair case it opens, if any.
func DamageTypeFor(c ReturnCondition) (DamageType, bool) {
	switch c {
	case ConditionDamaged:
		return DamageDamaged, true
	case ConditionMissingParts:
		return DamageMissingParts, true
	}
	return "", false
}

type ChargeType string

const (
	ChargeStudent    ChargeType = "student_charge"
	ChargeDepartment ChargeType = "department_handle"
)

func (c ChargeType) Valid() bool { return c == ChargeStudent || c == ChargeDepartment }

type RepairResult string

const (
	ResultRepaired RepairResult = "repaired"
	ResultReplaced RepairResult = "replaced"
	ResultDisposed RepairResult = "disposed"
)

func (r RepairResult) Valid() bool {
	return r == ResultRepaired || r == ResultReplaced || r == ResultDisposed
}

// AssetStatus is where a completed repair leaves the asset.
func (r RepairResult) AssetStatus() AssetStatus {
	if r == ResultDisposed {
		return AssetRetired
	}
	return AssetAvailable
}

type RepairCase struct {
	ID                  int64            `json:"id"`
	ReservationID       int64            `json:"reservation_id,omitempty"`
	AssetID             int64            `json:"asset_id,omitempty"`
	EquipmentName       string           `json:"equipment_name"`
	SerialNumber        string           `json:"serial_number,omitempty"`
	UserName            string           `json:"user_name,omitempty"`
	ReservationNumber   string           `json:"reservation_number,omitempty"`
	Stage               RepairStage      `json:"stage"`
	DamageType          DamageType       `json:"damage_type"`
	Description         string           `json:"description,omitempty"`
	DamageConfirmedAt   *time.Time       `json:"damage_confirmed_at,omitempty"`
	ChargeDecidedAt     *time.Time       `json:"charge_decided_at,omitempty"`
	EstimateRequestedAt *time.Time       `json:"estimate_requested_at,omitempty"`
	PaymentConfirmedAt  *time.Time       `json:"payment_confirmed_at,omitempty"`
	CompletedAt         *time.Time       `json:"completed_at,omitempty"`
	ChargeType          ChargeType       `json:"charge_type,omitempty"`
	EstimateMemo        string           `json:"estimate_memo,omitempty"`
	FinalAmount         *decimal.Decimal `json:"final_amount,omitempty"`
	RepairResult        RepairResult     `json:"repair_result,omitempty"`
	IsFixed             bool             `json:"is_fixed"`
	AdminMemo           string           `json:"admin_memo,omitempty"`
	CreatedAt           time.Time        `json:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at"`
}

// StageInput carries the data a forward stage move requires.
type StageInput struct {
	ChargeType   ChargeType       `json:"charge_type"`
	EstimateMemo string           `json:"estimate_memo"`
	FinalAmount  *decimal.Decimal `json:"final_amount"`
}

func (c *RepairCase) stamp(stage RepairStage) **time.Time {
	switch stage {
	case StageDamageConfirmed:
		return &c.DamageConfirmedAt
	case StageChargeDecided:
		return &c.ChargeDecidedAt
	case StageEstimateRequested:
		return &c.EstimateRequestedAt
	case StagePaymentConfirmed:
		return &c.PaymentConfirmedAt
	case StageCompleted:
		return &c.CompletedAt
	}
	return nil
}

// Advance moves the case exactly one stage forward. Completion goes through Complete.
func (c *RepairCase) Advance(in StageInput, now time.Time) error {
	next, ok := c.Stage.Next()
	if !ok || next == StageCompleted {
		return InvalidTransitionf("repair case in stage %s cannot advance", c.Stage)
	}
	switch next {
	case StageChargeDecided:
		if !in.ChargeType.Valid() {
			return InvalidTransitionf("charge type is required to enter %s", next)
		}
		c.ChargeType = in.ChargeType
	case StageEstimateRequested:
		memo := strings.TrimSpace(in.EstimateMemo)
		if memo == "" {
			return InvalidTransitionf("estimate memo is required to enter %s", next)
		}
		c.EstimateMemo = memo
	case StagePaymentConfirmed:
		if in.FinalAmount == nil || in.FinalAmount.IsNegative() {
			return InvalidTransitionf("final amount >= 0 is required to enter %s", next)
		}
		amount := *in.FinalAmount
		c.FinalAmount = &amount
	}
	t := now
	*c.stamp(next) = &t
	c.Stage = next
	return nil
}

func (c *RepairCase) Complete(result RepairResult, memo string, now time.Time) error {
	if c.Stage != StagePaymentConfirmed {
		return InvalidTransitionf("repair case in stage %s cannot complete", c.Stage)
	}
	if !result.Valid() {
		return InvalidTransitionf("repair result is required to complete")
	}
	c.RepairResult = result
	if memo = strings.TrimSpace(memo); memo != "" {
		c.AdminMemo = memo
	}
	t := now
	c.CompletedAt = &t
	c.IsFixed = true
	c.Stage = StageCompleted
	return nil
}

// OpenAssetStatus is the asset status while the case is open.
func (c *RepairCase) OpenAssetStatus() AssetStatus {
	if c.DamageType == DamageLost {
		return AssetLost
	}
	return AssetMaintenance
}

// RevertTo moves the case back to an earlier stage. Entered data is kept; only the
// timestamps of the stages after target are cleared. Reopening a completed case
// clears IsFixed.
func (c *RepairCase) RevertTo(target RepairStage) error {
	if !target.Valid() {
		return Validationf("unknown repair stage %q", target)
	}
	if target.Index() >= c.Stage.Index() {
		return InvalidTransitionf("cannot revert from %s to %s", c.Stage, target)
	}
	if c.Stage == StageCompleted {
		c.IsFixed = false
	}
	for _, st := range RepairStages[target.Index()+1:] {
		*c.stamp(st) = nil
	}
	c.Stage = target
	return nil
}
