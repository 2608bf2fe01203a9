package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	allowed := map[ReservationStatus][]ReservationStatus{
		ReservationPending:  {ReservationApproved, ReservationRejected, ReservationCancelled},
		ReservationApproved: {ReservationRented, ReservationCancelled, ReservationPending},
		ReservationRented:   {ReservationReturned, ReservationCancelled, ReservationApproved},
	}
	all := []ReservationStatus{
		ReservationPending, ReservationApproved, ReservationRented,
		ReservationReturned, ReservationRejected, ReservationCancelled,
	}

	for _, from := range all {
		for _, to := range all {
			want := false
			for _, s := range allowed[from] {
				if s == to {
					want = true
				}
			}
			assert.Equal(t, want, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestTerminalStatusesHaveNoExits(t *testing.T) {
	for _, s := range []ReservationStatus{ReservationReturned, ReservationRejected, ReservationCancelled} {
		assert.True(t, s.IsTerminal())
		assert.Empty(t, reservationTransitions[s])
	}
}

func TestParseReservationStatus(t *testing.T) {
	st, err := ParseReservationStatus(" Approved ")
	require.NoError(t, err)
	assert.Equal(t, ReservationApproved, st)

	_, err = ParseReservationStatus("lost")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestReservationNumber(t *testing.T) {
	start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, "20250301-000042", ReservationNumber(start, 42))
}

func TestSpansDayIsInclusive(t *testing.T) {
	start := time.Date(2025, 3, 1, 18, 0, 0, 0, time.UTC)
	end := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)

	assert.False(t, SpansDay(start, end, time.Date(2025, 2, 28, 23, 0, 0, 0, time.UTC)))
	assert.True(t, SpansDay(start, end, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, SpansDay(start, end, time.Date(2025, 3, 3, 23, 59, 0, 0, time.UTC)))
	assert.False(t, SpansDay(start, end, time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)))
}

func TestParseDateTime(t *testing.T) {
	cases := map[string]time.Time{
		"2025-03-01":                time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		"2025-03-01 14:30":          time.Date(2025, 3, 1, 14, 30, 0, 0, time.UTC),
		"2025-03-01T08:00:00+09:00": time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC),
	}
	for in, want := range cases {
		got, err := ParseDateTime(in)
		require.NoError(t, err, in)
		assert.True(t, want.Equal(got), "%s: got %s", in, got)
	}

	_, err := ParseDateTime("03/01/2025")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestReservationHelpers(t *testing.T) {
	r := &Reservation{
		LeaderName: "Kim",
		Items: []ReservationItem{
			{EquipmentID: 7, Quantity: 2, AssignedAssets: []int64{1, 2}},
			{EquipmentID: 3, Quantity: 1, AssignedAssets: []int64{9}},
		},
	}

	assert.Equal(t, []int64{3, 7}, r.EquipmentIDs())
	assert.ElementsMatch(t, []int64{1, 2, 9}, r.AssignedAssetIDs())
	require.NotNil(t, r.Item(3))
	assert.Nil(t, r.Item(4))
	assert.Equal(t, "Kim", r.Contact())
}

func TestConflictErrorUnwraps(t *testing.T) {
	err := NewConflict("held by another reservation", 9, 3)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, []int64{3, 9}, err.AssetIDs)
	assert.Contains(t, err.Error(), "[3 9]")
}
