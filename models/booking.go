package models

import "time"

// BookingRequest is the immutable payload derived from a validated
// draft at submit time. Payment fields are present only for the online
// consultation mode; the appointment type is always canonical.
type BookingRequest struct {
	SpecialistID      string `json:"specialist_id"`
	SlotID            string `json:"slot_id"`
	AppointmentType   string `json:"appointment_type"`
	PresentingConcern string `json:"presenting_concern"`
	PatientNotes      string `json:"patient_notes,omitempty"`
	PaymentMethodID   string `json:"payment_method_id,omitempty"`
	PaymentReceipt    string `json:"payment_receipt,omitempty"`
}

// BookingResult carries the server-assigned appointment identifier.
type BookingResult struct {
	AppointmentID string `json:"appointment_id"`
	Status        string `json:"status,omitempty"`
}

// Booking attempt outcomes persisted for history and conflict diagnostics.
const (
	OutcomeConfirmed = "confirmed"
	OutcomeConflict  = "conflict"
	OutcomeRejected  = "rejected"
	OutcomeError     = "error"
)

// BookingRecord is the persisted outcome of a single submission attempt.
type BookingRecord struct {
	ID            string    `bson:"id" json:"id"`
	PatientID     string    `bson:"patient_id" json:"patient_id"`
	SpecialistID  string    `bson:"specialist_id" json:"specialist_id"`
	SlotID        string    `bson:"slot_id" json:"slot_id"`
	Mode          string    `bson:"mode" json:"mode"`
	Date          string    `bson:"date" json:"date"`
	Outcome       string    `bson:"outcome" json:"outcome"`
	AppointmentID string    `bson:"appointment_id,omitempty" json:"appointment_id,omitempty"`
	CorrelationID string    `bson:"correlation_id" json:"correlation_id"`
	Detail        string    `bson:"detail,omitempty" json:"detail,omitempty"`
	CreatedAt     time.Time `bson:"created_at" json:"created_at"`
}
