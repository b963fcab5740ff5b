package booking

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"mindmate/models"
	"mindmate/services/scheduling"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// readyDraft walks a draft to the ready-to-submit step.
func readyDraft(t *testing.T, svc *DefaultBookingFlowService, sched *stubSchedClient, mode string) *models.BookingDraft {
	t.Helper()
	ctx := context.Background()
	start := tomorrowAt(10)
	sched.slots = []models.TimeSlot{bookableSlot("slot-1", start, mode)}

	draft, err := svc.OpenDraft(ctx, "patient-1", "spec-1")
	require.NoError(t, err)
	draft, err = svc.SetMode(ctx, "patient-1", draft.ID, mode)
	require.NoError(t, err)
	draft, err = svc.SetDate(ctx, "tok", "patient-1", draft.ID, start.Format(dayLayout))
	require.NoError(t, err)
	draft, err = svc.SelectSlot(ctx, "patient-1", draft.ID, "slot-1")
	require.NoError(t, err)
	draft, err = svc.SetDetails(ctx, "patient-1", draft.ID, DetailsInput{
		PatientName:  "Jane Mwangi",
		PatientPhone: "+254712345678",
		Concern:      "I have been feeling anxious for several weeks now.",
	})
	require.NoError(t, err)
	if mode == models.ModeOnline {
		draft, err = svc.SetPayment(ctx, "patient-1", draft.ID, PaymentInput{
			PaymentMethodID: "mpesa",
			TransactionRef:  "TX-998877",
		})
		require.NoError(t, err)
	}
	require.Equal(t, models.StepReadyToSubmit, draft.Step())
	return draft
}

func TestSubmitSuccessDeletesDraftAndEnqueues(t *testing.T) {
	sched := &stubSchedClient{bookResult: &models.BookingResult{AppointmentID: "appt-42", Status: "confirmed"}}
	svc, queue := newTestService(t, sched)
	draft := readyDraft(t, svc, sched, models.ModeOnline)

	result, _, err := svc.Submit(context.Background(), "tok", "patient-1", draft.ID)
	require.NoError(t, err)
	assert.Equal(t, "appt-42", result.AppointmentID)
	assert.Equal(t, 1, queue.confirmed)
	assert.Equal(t, "appt-42", queue.lastAppt)

	_, err = svc.GetDraft(context.Background(), "patient-1", draft.ID)
	assert.True(t, IsNotFound(err))
}

func TestSubmitBlocksOnMissingFields(t *testing.T) {
	sched := &stubSchedClient{}
	svc, _ := newTestService(t, sched)
	ctx := context.Background()

	draft, _ := svc.OpenDraft(ctx, "patient-1", "spec-1")
	_, returned, err := svc.Submit(ctx, "tok", "patient-1", draft.ID)
	assert.True(t, IsValidation(err))
	assert.NotEmpty(t, returned.FieldErrors)
	assert.True(t, returned.Touched[FieldConcern], "all fields become touched on submit")
	assert.Zero(t, sched.bookCalls, "invalid draft must not reach the backend")
}

func TestSubmitLocalConflictWhenSlotWentStale(t *testing.T) {
	sched := &stubSchedClient{}
	svc, _ := newTestService(t, sched)
	ctx := context.Background()
	draft := readyDraft(t, svc, sched, models.ModeOnline)

	// The slot loses its bookable flag between selection and submit.
	stored, err := svc.Store.Get(ctx, draft.ID)
	require.NoError(t, err)
	stored.Slots[0].CanBeBooked = false
	require.NoError(t, svc.Store.Save(ctx, stored))

	_, returned, err := svc.Submit(ctx, "tok", "patient-1", draft.ID)
	assert.True(t, IsConflict(err))
	assert.Empty(t, returned.SlotID)
	assert.Zero(t, sched.bookCalls, "locally stale slot must not reach the backend")
}

func TestSubmitRemoteConflictClearsSlotAndRefetchesOnce(t *testing.T) {
	sched := &stubSchedClient{bookErr: &scheduling.APIError{StatusCode: http.StatusConflict, Detail: "slot already booked"}}
	svc, _ := newTestService(t, sched)
	draft := readyDraft(t, svc, sched, models.ModeOnline)

	slotCallsBefore := sched.slotCalls
	_, returned, err := svc.Submit(context.Background(), "tok", "patient-1", draft.ID)
	assert.True(t, IsConflict(err))
	assert.Empty(t, returned.SlotID)
	assert.Equal(t, models.DraftStateEditing, returned.State)
	assert.False(t, returned.SubmitBusy)
	assert.Equal(t, slotCallsBefore+1, sched.slotCalls, "exactly one refetch after a remote conflict")
}

func TestSubmitBadRequestSurfacesServerDetail(t *testing.T) {
	sched := &stubSchedClient{bookErr: &scheduling.APIError{StatusCode: http.StatusBadRequest, Detail: "patient has an overlapping appointment"}}
	svc, _ := newTestService(t, sched)
	draft := readyDraft(t, svc, sched, models.ModeOnline)

	_, returned, err := svc.Submit(context.Background(), "tok", "patient-1", draft.ID)
	require.Error(t, err)
	var fe *FlowError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, CodeValidation, fe.Code)
	assert.Equal(t, "patient has an overlapping appointment", fe.Message)
	assert.Equal(t, models.DraftStateEditing, returned.State)
	assert.Equal(t, "patient has an overlapping appointment", returned.FailureDetail)
}

func TestSubmitUnauthorizedDiscardsDraft(t *testing.T) {
	sched := &stubSchedClient{bookErr: &scheduling.APIError{StatusCode: http.StatusUnauthorized}}
	svc, _ := newTestService(t, sched)
	draft := readyDraft(t, svc, sched, models.ModeOnline)

	_, _, err := svc.Submit(context.Background(), "tok", "patient-1", draft.ID)
	assert.True(t, IsAuthentication(err))

	_, err = svc.GetDraft(context.Background(), "patient-1", draft.ID)
	assert.True(t, IsNotFound(err))
}

func TestSubmitServerErrorPreservesDraft(t *testing.T) {
	sched := &stubSchedClient{bookErr: errors.New("connection refused")}
	svc, _ := newTestService(t, sched)
	draft := readyDraft(t, svc, sched, models.ModeOnline)

	_, returned, err := svc.Submit(context.Background(), "tok", "patient-1", draft.ID)
	assert.True(t, IsServer(err))
	assert.Equal(t, models.DraftStateFailed, returned.State)
	assert.False(t, returned.SubmitBusy)
	assert.Equal(t, "slot-1", returned.SlotID, "selection survives a transient failure")
}

func TestSubmitIsSingleFlight(t *testing.T) {
	sched := &stubSchedClient{bookResult: &models.BookingResult{AppointmentID: "appt-1"}}
	svc, _ := newTestService(t, sched)
	draft := readyDraft(t, svc, sched, models.ModeOnline)
	ctx := context.Background()

	stored, err := svc.Store.Get(ctx, draft.ID)
	require.NoError(t, err)
	stored.SubmitBusy = true
	require.NoError(t, svc.Store.Save(ctx, stored))

	_, _, err = svc.Submit(ctx, "tok", "patient-1", draft.ID)
	assert.True(t, IsValidation(err))
	assert.Zero(t, sched.bookCalls)
}

func TestSubmitOnlineRequiresPayment(t *testing.T) {
	sched := &stubSchedClient{}
	svc, _ := newTestService(t, sched)
	ctx := context.Background()
	start := tomorrowAt(10)
	sched.slots = []models.TimeSlot{bookableSlot("slot-1", start, models.ModeOnline)}

	draft, _ := svc.OpenDraft(ctx, "patient-1", "spec-1")
	draft, _ = svc.SetMode(ctx, "patient-1", draft.ID, models.ModeOnline)
	draft, _ = svc.SetDate(ctx, "tok", "patient-1", draft.ID, start.Format(dayLayout))
	draft, _ = svc.SelectSlot(ctx, "patient-1", draft.ID, "slot-1")
	draft, _ = svc.SetDetails(ctx, "patient-1", draft.ID, DetailsInput{
		PatientName:  "Jane Mwangi",
		PatientPhone: "+254712345678",
		Concern:      "I have been feeling anxious for several weeks now.",
	})

	_, returned, err := svc.Submit(ctx, "tok", "patient-1", draft.ID)
	assert.True(t, IsValidation(err))
	assert.Contains(t, returned.FieldErrors, FieldPaymentMethod)
	assert.Contains(t, returned.FieldErrors, FieldPaymentEvidence)
	assert.Zero(t, sched.bookCalls)
}

func TestBuildRequestOmitsPaymentForInPerson(t *testing.T) {
	start := tomorrowAt(10)
	draft := &models.BookingDraft{
		SpecialistID: "spec-1",
		Mode:         models.ModeInPerson,
		Date:         start.Format(dayLayout),
		SlotID:       "slot-1",
		Concern:      "  Trouble sleeping for the last month.  ",
		// Leftovers that must never travel for in-person bookings.
		PaymentMethodID: "mpesa",
		Evidence:        &models.PaymentEvidence{TextRef: "TX1"},
	}

	req := buildRequest(draft)
	assert.Empty(t, req.PaymentMethodID)
	assert.Empty(t, req.PaymentReceipt)
	assert.Equal(t, "Trouble sleeping for the last month.", req.PresentingConcern)
	assert.Equal(t, models.ModeInPerson, req.AppointmentType)
}

func TestBuildRequestPrefersFileURLOverTextRef(t *testing.T) {
	draft := &models.BookingDraft{
		SpecialistID:    "spec-1",
		Mode:            models.ModeOnline,
		SlotID:          "slot-1",
		Concern:         "Ongoing anxiety and poor sleep.",
		PaymentMethodID: "mpesa",
		Evidence: &models.PaymentEvidence{
			FileURL: "https://cdn.example/receipt.pdf",
			TextRef: "TX1",
		},
	}

	req := buildRequest(draft)
	assert.Equal(t, "https://cdn.example/receipt.pdf", req.PaymentReceipt)
}

func TestBuildRequestCanonicalizesVirtualMode(t *testing.T) {
	draft := &models.BookingDraft{
		SpecialistID: "spec-1",
		Mode:         models.ModeVirtual,
		SlotID:       "slot-1",
		Concern:      "Ongoing anxiety and poor sleep.",
	}
	req := buildRequest(draft)
	assert.Equal(t, models.ModeOnline, req.AppointmentType)
}
