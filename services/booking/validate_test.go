package booking

import (
	"strings"
	"testing"

	"mindmate/models"

	"github.com/stretchr/testify/assert"
)

func validDetailsDraft(mode string) *models.BookingDraft {
	d := &models.BookingDraft{
		Mode:         mode,
		PatientName:  "Jane Mwangi",
		PatientPhone: "+254712345678",
		Concern:      "I have been feeling anxious for several weeks now.",
	}
	if mode == models.ModeOnline {
		d.PaymentMethodID = "mpesa"
		d.Evidence = &models.PaymentEvidence{TextRef: "TX1"}
	}
	return d
}

func TestValidDraftHasNoErrors(t *testing.T) {
	assert.Empty(t, ValidateDraftFields(validDetailsDraft(models.ModeOnline)))
	assert.Empty(t, ValidateDraftFields(validDetailsDraft(models.ModeInPerson)))
}

func TestNameRules(t *testing.T) {
	d := validDetailsDraft(models.ModeInPerson)

	d.PatientName = ""
	assert.Contains(t, ValidateDraftFields(d), FieldPatientName)

	d.PatientName = "J"
	assert.Contains(t, ValidateDraftFields(d), FieldPatientName)

	d.PatientName = strings.Repeat("a", 101)
	assert.Contains(t, ValidateDraftFields(d), FieldPatientName)
}

func TestPhoneIsOptionalButValidated(t *testing.T) {
	d := validDetailsDraft(models.ModeInPerson)

	d.PatientPhone = ""
	assert.NotContains(t, ValidateDraftFields(d), FieldPatientPhone)

	d.PatientPhone = "12345"
	assert.Contains(t, ValidateDraftFields(d), FieldPatientPhone)

	d.PatientPhone = "0712345678"
	assert.NotContains(t, ValidateDraftFields(d), FieldPatientPhone)

	d.PatientPhone = "+254712345678"
	assert.NotContains(t, ValidateDraftFields(d), FieldPatientPhone)

	d.PatientPhone = "not-a-phone"
	assert.Contains(t, ValidateDraftFields(d), FieldPatientPhone)
}

func TestConcernRules(t *testing.T) {
	d := validDetailsDraft(models.ModeInPerson)

	d.Concern = ""
	assert.Contains(t, ValidateDraftFields(d), FieldConcern)

	d.Concern = "too short"
	assert.Contains(t, ValidateDraftFields(d), FieldConcern)

	d.Concern = strings.Repeat("a", 1001)
	assert.Contains(t, ValidateDraftFields(d), FieldConcern)
}

func TestNotesAreOptionalWithCap(t *testing.T) {
	d := validDetailsDraft(models.ModeInPerson)

	d.Notes = ""
	assert.NotContains(t, ValidateDraftFields(d), FieldNotes)

	d.Notes = strings.Repeat("a", 2001)
	assert.Contains(t, ValidateDraftFields(d), FieldNotes)
}

func TestPaymentRequiredOnlyForOnline(t *testing.T) {
	online := validDetailsDraft(models.ModeOnline)
	online.PaymentMethodID = ""
	online.Evidence = nil
	errs := ValidateDraftFields(online)
	assert.Contains(t, errs, FieldPaymentMethod)
	assert.Contains(t, errs, FieldPaymentEvidence)

	inPerson := validDetailsDraft(models.ModeInPerson)
	errs = ValidateDraftFields(inPerson)
	assert.NotContains(t, errs, FieldPaymentMethod)
	assert.NotContains(t, errs, FieldPaymentEvidence)
}

func TestEvidenceEitherFormSatisfies(t *testing.T) {
	d := validDetailsDraft(models.ModeOnline)

	d.Evidence = &models.PaymentEvidence{FileURL: "https://cdn.example/r.pdf"}
	assert.NotContains(t, ValidateDraftFields(d), FieldPaymentEvidence)

	d.Evidence = &models.PaymentEvidence{TextRef: "TX1"}
	assert.NotContains(t, ValidateDraftFields(d), FieldPaymentEvidence)

	d.Evidence = &models.PaymentEvidence{}
	assert.Contains(t, ValidateDraftFields(d), FieldPaymentEvidence)
}
