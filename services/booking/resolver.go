package booking

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"mindmate/models"
	"mindmate/services/scheduling"
	"mindmate/utils"

	"go.uber.org/zap"
)

const dayLayout = "2006-01-02"

// SlotResolver turns a (specialist, date, mode) selection into the
// bookable slot set. Date boundaries are enforced locally before any
// network call so an out-of-window pick costs nothing.
type SlotResolver struct {
	Sched       scheduling.Client
	HorizonDays int
	Now         func() time.Time
}

func NewSlotResolver(sched scheduling.Client, horizonDays int) *SlotResolver {
	if horizonDays <= 0 {
		horizonDays = 7
	}
	return &SlotResolver{Sched: sched, HorizonDays: horizonDays}
}

func (r *SlotResolver) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// ValidateDate parses a selected date and enforces the booking window:
// not before today, not after today plus the horizon. It returns the
// normalized day key.
func (r *SlotResolver) ValidateDate(date string) (string, error) {
	day, err := time.ParseInLocation(dayLayout, date, time.Local)
	if err != nil {
		return "", NewValidationError(FieldDate, "enter a date as YYYY-MM-DD")
	}

	now := r.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
	if day.Before(today) {
		return "", NewValidationError(FieldDate, "the selected date is in the past")
	}
	if day.After(today.AddDate(0, 0, r.HorizonDays)) {
		return "", NewValidationError(FieldDate,
			fmt.Sprintf("appointments can be booked at most %d days ahead", r.HorizonDays))
	}
	return day.Format(dayLayout), nil
}

// Resolve fetches and filters the slot set for one day. Only slots that
// carry both availability flags, match the requested mode and have not
// already started are kept; order is ascending by start time (the
// client normalizes order on decode).
//
// A 401 from the backend degrades to an empty set: the surrounding
// session middleware already vouched for the caller, so an expired
// backend token here renders as "no times available" rather than
// bouncing the whole wizard.
func (r *SlotResolver) Resolve(ctx context.Context, token, specialistID, date, mode string) ([]models.TimeSlot, error) {
	day, err := r.ValidateDate(date)
	if err != nil {
		return nil, err
	}
	canonical := models.CanonicalMode(mode)

	slots, err := r.Sched.SlotsForDate(ctx, token, specialistID, day, canonical)
	if err != nil {
		var apiErr *scheduling.APIError
		if errors.As(err, &apiErr) {
			switch apiErr.StatusCode {
			case http.StatusUnauthorized:
				utils.GetLogger().Warn("slot fetch unauthorized, degrading to empty set",
					zap.String("specialistID", specialistID), zap.String("date", day))
				return nil, nil
			case http.StatusNotFound:
				return nil, NewNotFoundError("specialist not found")
			}
		}
		utils.GetLogger().Error("slot fetch failed",
			zap.String("specialistID", specialistID), zap.String("date", day), zap.Error(err))
		return nil, NewServerError("could not load available times, please try again")
	}

	now := r.now()
	filtered := make([]models.TimeSlot, 0, len(slots))
	for _, s := range slots {
		if !s.Bookable() {
			continue
		}
		if !models.ModesEquivalent(s.Mode, canonical) {
			continue
		}
		if s.DateKey() != day {
			continue
		}
		if !s.Start.After(now) {
			continue
		}
		filtered = append(filtered, s)
	}
	return filtered, nil
}
