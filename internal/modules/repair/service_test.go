package repair

import (
	"context"
	"testing"
	"time"

	"filmrental/internal/domain"
	"filmrental/internal/modules/history"
	"filmrental/internal/repository"
	"filmrental/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockNotificationSender struct {
	mock.Mock
}

func (m *MockNotificationSender) Notify(ctx context.Context, msg domain.NotificationMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func setup(t *testing.T, status domain.AssetStatus) (*Service, *repository.Store, *domain.Asset, *MockNotificationSender) {
	t.Helper()
	store := testutil.NewStore(t)
	notifs := new(MockNotificationSender)
	notifs.On("Notify", mock.Anything, mock.Anything).Return(nil)
	svc := NewService(store, history.NewRecorder(), notifs)
	svc.now = func() time.Time { return time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC) }

	ctx := context.Background()
	eq := domain.NewEquipmentType("Sony FX3", 1)
	eq.TotalQuantity = 1
	require.NoError(t, store.Equipment.Create(ctx, eq))
	a := &domain.Asset{EquipmentID: eq.ID, SerialNumber: "FX3-001", Status: status}
	require.NoError(t, store.Assets.Create(ctx, a))
	return svc, store, a, notifs
}

func assetStatus(t *testing.T, store *repository.Store, id int64) domain.AssetStatus {
	t.Helper()
	a, err := store.Assets.GetByID(context.Background(), id)
	require.NoError(t, err)
	return a.Status
}

func amount(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestCreateSnapshotsAndMovesAsset(t *testing.T) {
	svc, store, a, notifs := setup(t, domain.AssetAvailable)
	ctx := context.Background()

	rc, err := svc.Create(ctx, testutil.Admin, CreateRepairRequest{AssetID: a.ID, DamageType: domain.DamageDamaged, Description: "dropped"})
	require.NoError(t, err)
	assert.Equal(t, "Sony FX3", rc.EquipmentName)
	assert.Equal(t, "FX3-001", rc.SerialNumber)
	assert.Equal(t, domain.StageDamageConfirmed, rc.Stage)
	assert.NotNil(t, rc.DamageConfirmedAt)
	assert.Equal(t, domain.AssetMaintenance, assetStatus(t, store, a.ID))
	notifs.AssertCalled(t, "Notify", mock.Anything, mock.MatchedBy(func(m domain.NotificationMessage) bool {
		return m.Type == domain.NotifRepairCreated && m.RelatedID == rc.ID
	}))

	_, err = svc.Create(ctx, testutil.Admin, CreateRepairRequest{AssetID: a.ID, DamageType: domain.DamageLost})
	require.NoError(t, err)
	assert.Equal(t, domain.AssetLost, assetStatus(t, store, a.ID))
}

func TestCreateLeavesRentedAssetAlone(t *testing.T) {
	svc, store, a, _ := setup(t, domain.AssetRented)

	_, err := svc.Create(context.Background(), testutil.Admin, CreateRepairRequest{AssetID: a.ID, DamageType: domain.DamageMissingParts})
	require.NoError(t, err)
	assert.Equal(t, domain.AssetRented, assetStatus(t, store, a.ID))
}

func TestCreateValidation(t *testing.T) {
	svc, _, _, _ := setup(t, domain.AssetAvailable)
	ctx := context.Background()

	_, err := svc.Create(ctx, testutil.Admin, CreateRepairRequest{DamageType: "scratched", EquipmentName: "FX3"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.Create(ctx, testutil.Admin, CreateRepairRequest{DamageType: domain.DamageDamaged})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.Create(ctx, testutil.Admin, CreateRepairRequest{DamageType: domain.DamageDamaged, AssetID: 999})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Create(ctx, testutil.Student, CreateRepairRequest{DamageType: domain.DamageDamaged, EquipmentName: "FX3"})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	rc, err := svc.Create(ctx, testutil.Admin, CreateRepairRequest{DamageType: domain.DamageDamaged, EquipmentName: "Tripod"})
	require.NoError(t, err)
	assert.Zero(t, rc.AssetID)
}

func TestStagesToCompletion(t *testing.T) {
	svc, store, a, _ := setup(t, domain.AssetAvailable)
	ctx := context.Background()
	rc, err := svc.Create(ctx, testutil.Admin, CreateRepairRequest{AssetID: a.ID, DamageType: domain.DamageDamaged})
	require.NoError(t, err)

	_, err = svc.Advance(ctx, testutil.Admin, rc.ID, domain.StageInput{})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition, "charge type required")

	_, err = svc.Complete(ctx, testutil.Admin, rc.ID, domain.ResultRepaired, "")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition, "cannot complete early")

	rc, err = svc.Advance(ctx, testutil.Admin, rc.ID, domain.StageInput{ChargeType: domain.ChargeStudent})
	require.NoError(t, err)
	rc, err = svc.Advance(ctx, testutil.Admin, rc.ID, domain.StageInput{EstimateMemo: "LCD panel 180,000 KRW"})
	require.NoError(t, err)
	rc, err = svc.Advance(ctx, testutil.Admin, rc.ID, domain.StageInput{FinalAmount: amount("180000")})
	require.NoError(t, err)
	assert.Equal(t, domain.StagePaymentConfirmed, rc.Stage)

	_, err = svc.Advance(ctx, testutil.Admin, rc.ID, domain.StageInput{})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition, "completion goes through Complete")

	rc, err = svc.Complete(ctx, testutil.Admin, rc.ID, domain.ResultRepaired, "fixed by vendor")
	require.NoError(t, err)
	assert.Equal(t, domain.StageCompleted, rc.Stage)
	assert.True(t, rc.IsFixed)
	assert.NotNil(t, rc.CompletedAt)
	assert.Equal(t, domain.AssetAvailable, assetStatus(t, store, a.ID))

	stored, err := svc.Get(ctx, rc.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.FinalAmount)
	assert.True(t, stored.FinalAmount.Equal(decimal.NewFromInt(180000)))
	assert.Equal(t, "fixed by vendor", stored.AdminMemo)
}

func TestCompleteDisposedRetiresAsset(t *testing.T) {
	svc, store, a, _ := setup(t, domain.AssetAvailable)
	ctx := context.Background()
	rc, err := svc.Create(ctx, testutil.Admin, CreateRepairRequest{AssetID: a.ID, DamageType: domain.DamageDamaged})
	require.NoError(t, err)
	for _, in := range []domain.StageInput{
		{ChargeType: domain.ChargeDepartment},
		{EstimateMemo: "beyond repair"},
		{FinalAmount: amount("0")},
	} {
		_, err := svc.Advance(ctx, testutil.Admin, rc.ID, in)
		require.NoError(t, err)
	}

	_, err = svc.Complete(ctx, testutil.Admin, rc.ID, domain.ResultDisposed, "")
	require.NoError(t, err)
	assert.Equal(t, domain.AssetRetired, assetStatus(t, store, a.ID))

	entries, _, err := store.History.List(ctx, repository.HistoryFilter{TargetType: domain.TargetAsset, TargetID: a.ID})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, string(domain.AssetRetired), entries[0].Changes[0].NewValue)
}

func TestRevertKeepsData(t *testing.T) {
	svc, _, a, _ := setup(t, domain.AssetAvailable)
	ctx := context.Background()
	rc, err := svc.Create(ctx, testutil.Admin, CreateRepairRequest{AssetID: a.ID, DamageType: domain.DamageDamaged})
	require.NoError(t, err)
	_, err = svc.Advance(ctx, testutil.Admin, rc.ID, domain.StageInput{ChargeType: domain.ChargeStudent})
	require.NoError(t, err)
	_, err = svc.Advance(ctx, testutil.Admin, rc.ID, domain.StageInput{EstimateMemo: "quote pending"})
	require.NoError(t, err)

	rc, err = svc.Revert(ctx, testutil.Admin, rc.ID, domain.StageDamageConfirmed)
	require.NoError(t, err)
	assert.Equal(t, domain.StageDamageConfirmed, rc.Stage)
	assert.Nil(t, rc.ChargeDecidedAt)
	assert.Nil(t, rc.EstimateRequestedAt)
	assert.Equal(t, domain.ChargeStudent, rc.ChargeType)
	assert.Equal(t, "quote pending", rc.EstimateMemo)

	_, err = svc.Revert(ctx, testutil.Admin, rc.ID, domain.StageChargeDecided)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestRevertCompletedReopensCase(t *testing.T) {
	svc, store, a, _ := setup(t, domain.AssetAvailable)
	ctx := context.Background()
	rc, err := svc.Create(ctx, testutil.Admin, CreateRepairRequest{AssetID: a.ID, DamageType: domain.DamageDamaged})
	require.NoError(t, err)
	for _, in := range []domain.StageInput{
		{ChargeType: domain.ChargeDepartment},
		{EstimateMemo: "sensor cleaning"},
		{FinalAmount: amount("30000")},
	} {
		_, err := svc.Advance(ctx, testutil.Admin, rc.ID, in)
		require.NoError(t, err)
	}
	_, err = svc.Complete(ctx, testutil.Admin, rc.ID, domain.ResultRepaired, "")
	require.NoError(t, err)
	require.Equal(t, domain.AssetAvailable, assetStatus(t, store, a.ID))

	rc, err = svc.Revert(ctx, testutil.Admin, rc.ID, domain.StagePaymentConfirmed)
	require.NoError(t, err)
	assert.Equal(t, domain.StagePaymentConfirmed, rc.Stage)
	assert.False(t, rc.IsFixed)
	assert.Nil(t, rc.CompletedAt)
	assert.Equal(t, domain.AssetMaintenance, assetStatus(t, store, a.ID))
}

func TestRevertCompletedKeepsManuallyEditedAsset(t *testing.T) {
	svc, store, a, _ := setup(t, domain.AssetAvailable)
	ctx := context.Background()
	rc, err := svc.Create(ctx, testutil.Admin, CreateRepairRequest{AssetID: a.ID, DamageType: domain.DamageDamaged})
	require.NoError(t, err)
	for _, in := range []domain.StageInput{
		{ChargeType: domain.ChargeStudent},
		{EstimateMemo: "beyond repair"},
		{FinalAmount: amount("0")},
	} {
		_, err := svc.Advance(ctx, testutil.Admin, rc.ID, in)
		require.NoError(t, err)
	}
	_, err = svc.Complete(ctx, testutil.Admin, rc.ID, domain.ResultDisposed, "")
	require.NoError(t, err)
	require.NoError(t, store.Assets.UpdateStatus(ctx, a.ID, domain.AssetBroken))

	rc, err = svc.Revert(ctx, testutil.Admin, rc.ID, domain.StageEstimateRequested)
	require.NoError(t, err)
	assert.False(t, rc.IsFixed)
	assert.Equal(t, domain.AssetBroken, assetStatus(t, store, a.ID))
}

func TestMemoFixedDeleteAndList(t *testing.T) {
	svc, _, a, _ := setup(t, domain.AssetAvailable)
	ctx := context.Background()
	rc, err := svc.Create(ctx, testutil.Admin, CreateRepairRequest{AssetID: a.ID, DamageType: domain.DamageDamaged})
	require.NoError(t, err)

	rc, err = svc.UpdateMemo(ctx, testutil.Admin, rc.ID, "  call vendor  ")
	require.NoError(t, err)
	assert.Equal(t, "call vendor", rc.AdminMemo)

	rc, err = svc.SetFixed(ctx, testutil.Admin, rc.ID, true)
	require.NoError(t, err)
	assert.True(t, rc.IsFixed)
	assert.Equal(t, domain.StageDamageConfirmed, rc.Stage)

	fixed := true
	list, err := svc.List(ctx, repository.RepairFilter{IsFixed: &fixed})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = svc.List(ctx, repository.RepairFilter{Stage: "shipping"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	require.NoError(t, svc.Delete(ctx, testutil.Admin, rc.ID))
	_, err = svc.Get(ctx, rc.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, testutil.Admin, rc.ID), domain.ErrNotFound)
}
