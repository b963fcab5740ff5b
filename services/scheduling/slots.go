package scheduling

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"time"

	"mindmate/models"
)

// rawSlot mirrors the heterogeneous slot shapes the backend emits.
// Older deployments send a bare slot_date, newer ones a full start_time
// timestamp (with or without zone); some omit the bookability flags
// entirely. normalize collapses every known variant.
type rawSlot struct {
	SlotID          string `json:"slot_id"`
	ID              string `json:"id"`
	SpecialistID    string `json:"specialist_id"`
	SlotDate        string `json:"slot_date"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	DurationMinutes int    `json:"duration_minutes"`
	AppointmentType string `json:"appointment_type"`
	IsAvailable     *bool  `json:"is_available"`
	CanBeBooked     *bool  `json:"can_be_booked"`
}

// slotTimeLayouts are tried in order when parsing slot timestamps.
var slotTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// defaultSlotMinutes is assumed when neither a duration nor an end
// time is present on the wire.
const defaultSlotMinutes = 50

func parseSlotTime(value string) (time.Time, error) {
	for _, layout := range slotTimeLayouts {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized slot time %q", value)
}

// normalize maps a raw backend slot into the canonical TimeSlot shape.
func (r rawSlot) normalize() (models.TimeSlot, error) {
	id := r.SlotID
	if id == "" {
		id = r.ID
	}
	if id == "" {
		return models.TimeSlot{}, fmt.Errorf("slot missing identifier")
	}

	startRaw := r.StartTime
	if startRaw == "" {
		startRaw = r.SlotDate
	}
	if startRaw == "" {
		return models.TimeSlot{}, fmt.Errorf("slot %s missing start time", id)
	}
	start, err := parseSlotTime(startRaw)
	if err != nil {
		return models.TimeSlot{}, fmt.Errorf("slot %s: %w", id, err)
	}

	duration := r.DurationMinutes
	if duration <= 0 && r.EndTime != "" {
		if end, err := parseSlotTime(r.EndTime); err == nil && end.After(start) {
			duration = int(end.Sub(start).Minutes())
		}
	}
	if duration <= 0 {
		duration = defaultSlotMinutes
	}

	// A missing flag means the backend predates it; only an explicit
	// false marks the slot unbookable.
	available := r.IsAvailable == nil || *r.IsAvailable
	bookable := r.CanBeBooked == nil || *r.CanBeBooked

	return models.TimeSlot{
		ID:              id,
		SpecialistID:    r.SpecialistID,
		Start:           start,
		DurationMinutes: duration,
		Mode:            models.CanonicalMode(r.AppointmentType),
		IsAvailable:     available,
		CanBeBooked:     bookable,
	}, nil
}

func normalizeSlots(raw []rawSlot, logDrop func(id string, err error)) []models.TimeSlot {
	slots := make([]models.TimeSlot, 0, len(raw))
	for _, r := range raw {
		slot, err := r.normalize()
		if err != nil {
			if logDrop != nil {
				logDrop(r.SlotID, err)
			}
			continue
		}
		slots = append(slots, slot)
	}
	sort.Slice(slots, func(i, j int) bool {
		return slots[i].Start.Before(slots[j].Start)
	})
	return slots
}

// SlotsForDate fetches the slots of one specialist for a single
// calendar day, normalized and ordered ascending by start time.
func (c *HTTPClient) SlotsForDate(ctx context.Context, token, specialistID, date, appointmentType string) ([]models.TimeSlot, error) {
	query := url.Values{}
	query.Set("date", date)
	if appointmentType != "" {
		query.Set("appointment_type", appointmentType)
	}

	var raw []rawSlot
	path := fmt.Sprintf("/specialists/%s/available-slots/date", specialistID)
	if err := c.doJSON(ctx, token, "GET", path, query, nil, &raw); err != nil {
		return nil, err
	}
	return c.normalized(raw), nil
}

// SlotsForRange fetches the slots of one specialist over a date range.
func (c *HTTPClient) SlotsForRange(ctx context.Context, token, specialistID, startDate, endDate, appointmentType string) ([]models.TimeSlot, error) {
	query := url.Values{}
	query.Set("start_date", startDate)
	query.Set("end_date", endDate)
	if appointmentType != "" {
		query.Set("appointment_type", appointmentType)
	}

	var raw []rawSlot
	path := fmt.Sprintf("/specialists/%s/available-slots", specialistID)
	if err := c.doJSON(ctx, token, "GET", path, query, nil, &raw); err != nil {
		return nil, err
	}
	return c.normalized(raw), nil
}

func (c *HTTPClient) normalized(raw []rawSlot) []models.TimeSlot {
	return normalizeSlots(raw, func(id string, err error) {
		c.logger.Sugar().Warnf("dropping malformed slot %q: %v", id, err)
	})
}
