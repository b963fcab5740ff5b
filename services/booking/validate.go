package booking

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"mindmate/models"
)

// Field names shared between the draft, validation and the API surface.
const (
	FieldPatientName     = "patient_name"
	FieldPatientPhone    = "patient_phone"
	FieldConcern         = "presenting_concern"
	FieldNotes           = "patient_notes"
	FieldMode            = "consultation_mode"
	FieldDate            = "selected_date"
	FieldSlot            = "selected_slot_id"
	FieldPaymentMethod   = "payment_method_id"
	FieldPaymentEvidence = "payment_evidence"
)

const (
	minNameLen    = 2
	maxNameLen    = 100
	minConcernLen = 10
	maxConcernLen = 1000
	maxNotesLen   = 2000
)

// Phone is optional, but once provided it must be 10 to 15 digits with
// an optional leading plus.
var phonePattern = regexp.MustCompile(`^\+?[0-9]{10,15}$`)

// ValidateDraftFields runs every field rule against the draft and
// returns the full error map, touched or not. Callers decide which
// entries to surface; submission surfaces all of them at once.
func ValidateDraftFields(d *models.BookingDraft) map[string]string {
	errs := make(map[string]string)

	name := strings.TrimSpace(d.PatientName)
	switch {
	case name == "":
		errs[FieldPatientName] = "name is required"
	case utf8.RuneCountInString(name) < minNameLen:
		errs[FieldPatientName] = fmt.Sprintf("name must be at least %d characters", minNameLen)
	case utf8.RuneCountInString(name) > maxNameLen:
		errs[FieldPatientName] = fmt.Sprintf("name must be at most %d characters", maxNameLen)
	}

	if phone := strings.TrimSpace(d.PatientPhone); phone != "" && !phonePattern.MatchString(phone) {
		errs[FieldPatientPhone] = "enter a valid phone number (10 to 15 digits)"
	}

	concern := strings.TrimSpace(d.Concern)
	switch {
	case concern == "":
		errs[FieldConcern] = "please describe what brings you in"
	case utf8.RuneCountInString(concern) < minConcernLen:
		errs[FieldConcern] = fmt.Sprintf("description must be at least %d characters", minConcernLen)
	case utf8.RuneCountInString(concern) > maxConcernLen:
		errs[FieldConcern] = fmt.Sprintf("description must be at most %d characters", maxConcernLen)
	}

	if utf8.RuneCountInString(d.Notes) > maxNotesLen {
		errs[FieldNotes] = fmt.Sprintf("notes must be at most %d characters", maxNotesLen)
	}

	if d.Mode == models.ModeOnline {
		if strings.TrimSpace(d.PaymentMethodID) == "" {
			errs[FieldPaymentMethod] = "select a payment method"
		}
		if d.Evidence == nil || d.Evidence.Empty() {
			errs[FieldPaymentEvidence] = "attach a payment receipt or enter a transaction reference"
		}
	}

	return errs
}

// markAllTouched flips every validated field to touched so a failed
// submission renders all outstanding errors, not just visited fields.
func markAllTouched(d *models.BookingDraft) {
	for _, f := range []string{
		FieldPatientName, FieldPatientPhone, FieldConcern, FieldNotes,
		FieldMode, FieldDate, FieldSlot, FieldPaymentMethod, FieldPaymentEvidence,
	} {
		d.Touch(f)
	}
}
