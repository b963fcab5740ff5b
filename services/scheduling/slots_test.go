package scheduling

import (
	"testing"
	"time"

	"mindmate/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

func TestNormalizePrefersSlotID(t *testing.T) {
	slot, err := rawSlot{SlotID: "s-1", ID: "legacy", StartTime: "2026-09-02T10:00:00Z"}.normalize()
	require.NoError(t, err)
	assert.Equal(t, "s-1", slot.ID)

	slot, err = rawSlot{ID: "legacy", StartTime: "2026-09-02T10:00:00Z"}.normalize()
	require.NoError(t, err)
	assert.Equal(t, "legacy", slot.ID)
}

func TestNormalizeRejectsMissingIdentifierOrStart(t *testing.T) {
	_, err := rawSlot{StartTime: "2026-09-02T10:00:00Z"}.normalize()
	assert.Error(t, err)

	_, err = rawSlot{SlotID: "s-1"}.normalize()
	assert.Error(t, err)
}

func TestNormalizeParsesTimeVariants(t *testing.T) {
	for _, raw := range []string{
		"2026-09-02T10:00:00Z",
		"2026-09-02T10:00:00",
		"2026-09-02 10:00:00",
		"2026-09-02",
	} {
		slot, err := rawSlot{SlotID: "s-1", StartTime: raw}.normalize()
		require.NoError(t, err, raw)
		assert.Equal(t, "2026-09-02", slot.DateKey(), raw)
	}
}

func TestNormalizeFallsBackToSlotDate(t *testing.T) {
	slot, err := rawSlot{SlotID: "s-1", SlotDate: "2026-09-02"}.normalize()
	require.NoError(t, err)
	assert.Equal(t, "2026-09-02", slot.DateKey())
}

func TestNormalizeDurationChain(t *testing.T) {
	// Explicit duration wins.
	slot, err := rawSlot{SlotID: "s-1", StartTime: "2026-09-02T10:00:00", DurationMinutes: 30}.normalize()
	require.NoError(t, err)
	assert.Equal(t, 30, slot.DurationMinutes)

	// Derived from end time.
	slot, err = rawSlot{SlotID: "s-1", StartTime: "2026-09-02T10:00:00", EndTime: "2026-09-02T11:30:00"}.normalize()
	require.NoError(t, err)
	assert.Equal(t, 90, slot.DurationMinutes)

	// Neither present: default applies.
	slot, err = rawSlot{SlotID: "s-1", StartTime: "2026-09-02T10:00:00"}.normalize()
	require.NoError(t, err)
	assert.Equal(t, defaultSlotMinutes, slot.DurationMinutes)
}

func TestNormalizeMissingFlagsDefaultTrue(t *testing.T) {
	slot, err := rawSlot{SlotID: "s-1", StartTime: "2026-09-02T10:00:00"}.normalize()
	require.NoError(t, err)
	assert.True(t, slot.IsAvailable)
	assert.True(t, slot.CanBeBooked)
	assert.True(t, slot.Bookable())

	slot, err = rawSlot{SlotID: "s-1", StartTime: "2026-09-02T10:00:00", IsAvailable: boolPtr(true), CanBeBooked: boolPtr(false)}.normalize()
	require.NoError(t, err)
	assert.False(t, slot.Bookable())
}

func TestNormalizeCanonicalizesVirtual(t *testing.T) {
	slot, err := rawSlot{SlotID: "s-1", StartTime: "2026-09-02T10:00:00", AppointmentType: "virtual"}.normalize()
	require.NoError(t, err)
	assert.Equal(t, models.ModeOnline, slot.Mode)
}

func TestNormalizeSlotsSortsAndDropsMalformed(t *testing.T) {
	raw := []rawSlot{
		{SlotID: "late", StartTime: "2026-09-02T15:00:00"},
		{SlotID: "broken", StartTime: "sometime"},
		{SlotID: "early", StartTime: "2026-09-02T09:00:00"},
	}

	var dropped []string
	slots := normalizeSlots(raw, func(id string, err error) {
		dropped = append(dropped, id)
	})

	require.Len(t, slots, 2)
	assert.Equal(t, "early", slots[0].ID)
	assert.Equal(t, "late", slots[1].ID)
	assert.Equal(t, []string{"broken"}, dropped)
	assert.True(t, slots[0].Start.Before(slots[1].Start.Add(time.Second)))
}
