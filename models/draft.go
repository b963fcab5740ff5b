package models

import "time"

// Step identifies the wizard step a draft is currently gated on.
type Step string

const (
	StepSelectingSpecialist Step = "selecting_specialist"
	StepSelectingMode       Step = "selecting_mode"
	StepSelectingSlot       Step = "selecting_slot"
	StepEnteringDetails     Step = "entering_details"
	StepCapturingPayment    Step = "capturing_payment"
	StepReadyToSubmit       Step = "ready_to_submit"
	StepSubmitting          Step = "submitting"
	StepSucceeded           Step = "succeeded"
	StepFailed              Step = "failed"
)

// Draft lifecycle states. "editing" covers every step before a
// submission attempt; the terminal/submit states are set explicitly.
const (
	DraftStateEditing    = "editing"
	DraftStateSubmitting = "submitting"
	DraftStateSucceeded  = "succeeded"
	DraftStateFailed     = "failed"
)

// BookingDraft holds the transient wizard state between opening the
// booking flow and a successful submission or explicit close. Drafts
// live in Redis with a TTL; none survives a session boundary.
type BookingDraft struct {
	ID        string `json:"draft_id"`
	PatientID string `json:"patient_id"`

	SpecialistID string `json:"specialist_id,omitempty"`
	Mode         string `json:"consultation_mode,omitempty"`
	Date         string `json:"selected_date,omitempty"`
	SlotID       string `json:"selected_slot_id,omitempty"`

	// Slots is the last resolved slot set for (specialist, date, mode).
	// SlotFetchSeq guards against a slow fetch for an abandoned date
	// overwriting the set resolved for the current one.
	Slots        []TimeSlot `json:"slots,omitempty"`
	SlotFetchSeq uint64     `json:"slot_fetch_seq"`

	PatientName  string `json:"patient_name,omitempty"`
	PatientPhone string `json:"patient_phone,omitempty"`
	Concern      string `json:"presenting_concern,omitempty"`
	Notes        string `json:"patient_notes,omitempty"`

	PaymentMethodID string           `json:"payment_method_id,omitempty"`
	Evidence        *PaymentEvidence `json:"payment_evidence,omitempty"`

	UploadBusy bool `json:"upload_busy"`
	SubmitBusy bool `json:"submit_busy"`

	State       string            `json:"state"`
	Touched     map[string]bool   `json:"touched,omitempty"`
	FieldErrors map[string]string `json:"field_errors,omitempty"`

	// FailureDetail carries the last recoverable submission failure so
	// the surfaces can render it without re-submitting.
	FailureDetail string `json:"failure_detail,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Step derives the current wizard step. Each step is gated on the
// previous one being satisfied; payment capture only exists for the
// online mode.
func (d *BookingDraft) Step() Step {
	switch d.State {
	case DraftStateSubmitting:
		return StepSubmitting
	case DraftStateSucceeded:
		return StepSucceeded
	case DraftStateFailed:
		return StepFailed
	}

	if d.SpecialistID == "" {
		return StepSelectingSpecialist
	}
	if d.Mode == "" {
		return StepSelectingMode
	}
	if d.Date == "" || d.SlotID == "" {
		return StepSelectingSlot
	}
	if !d.detailsComplete() {
		return StepEnteringDetails
	}
	if d.Mode == ModeOnline && !d.paymentComplete() {
		return StepCapturingPayment
	}
	return StepReadyToSubmit
}

// Phone is optional; it is validated for format only when present.
func (d *BookingDraft) detailsComplete() bool {
	return d.PatientName != "" && d.Concern != ""
}

func (d *BookingDraft) paymentComplete() bool {
	return d.PaymentMethodID != "" && d.Evidence != nil && !d.Evidence.Empty()
}

// SlotByID returns the slot with the given id from the cached set.
func (d *BookingDraft) SlotByID(id string) (TimeSlot, bool) {
	for _, s := range d.Slots {
		if s.ID == id {
			return s, true
		}
	}
	return TimeSlot{}, false
}

// ClearSlotSelection drops the selected date, slot and the cached slot
// set. Called whenever specialist or consultation mode changes: a slot
// resolved for a different mode or specialist is never valid.
func (d *BookingDraft) ClearSlotSelection() {
	d.Date = ""
	d.SlotID = ""
	d.Slots = nil
}

// ClearPayment removes payment method and evidence from the draft
// entirely, so stale payment state cannot leak into a submission made
// under a different consultation mode.
func (d *BookingDraft) ClearPayment() {
	d.PaymentMethodID = ""
	d.Evidence = nil
}

// Touch marks a field as touched so its validation error is rendered.
func (d *BookingDraft) Touch(field string) {
	if d.Touched == nil {
		d.Touched = make(map[string]bool)
	}
	d.Touched[field] = true
}
