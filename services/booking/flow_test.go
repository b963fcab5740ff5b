package booking

import (
	"context"
	"testing"
	"time"

	"mindmate/models"
	"mindmate/services/scheduling"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubSchedClient is a controllable scheduling backend double.
type stubSchedClient struct {
	slots      []models.TimeSlot
	slotsErr   error
	slotCalls  int
	onSlots    func()
	bookResult *models.BookingResult
	bookErr    error
	bookCalls  int
}

func (s *stubSchedClient) SearchSpecialists(ctx context.Context, token string, q models.SpecialistQuery) (*models.SpecialistPage, error) {
	return &models.SpecialistPage{}, nil
}

func (s *stubSchedClient) SlotsForDate(ctx context.Context, token, specialistID, date, appointmentType string) ([]models.TimeSlot, error) {
	s.slotCalls++
	if s.onSlots != nil {
		s.onSlots()
	}
	if s.slotsErr != nil {
		return nil, s.slotsErr
	}
	return s.slots, nil
}

func (s *stubSchedClient) SlotsForRange(ctx context.Context, token, specialistID, startDate, endDate, appointmentType string) ([]models.TimeSlot, error) {
	return s.slots, nil
}

func (s *stubSchedClient) BookAppointment(ctx context.Context, token string, req models.BookingRequest) (*models.BookingResult, error) {
	s.bookCalls++
	if s.bookErr != nil {
		return nil, s.bookErr
	}
	return s.bookResult, nil
}

type stubQueue struct {
	confirmed int
	lastAppt  string
}

func (q *stubQueue) EnqueueBookingConfirmed(ctx context.Context, patientID, appointmentID, specialistID string) error {
	q.confirmed++
	q.lastAppt = appointmentID
	return nil
}

func newTestService(t *testing.T, sched scheduling.Client) (*DefaultBookingFlowService, *stubQueue) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisDraftStore(client)
	queue := &stubQueue{}
	svc := NewBookingFlowService(sched, store, NewSlotResolver(sched, 7), NewEvidenceUploader(nil, 5), nil, queue)
	return svc, queue
}

// tomorrowAt returns tomorrow at the given hour in the local zone.
func tomorrowAt(hour int) time.Time {
	now := time.Now()
	d := now.AddDate(0, 0, 1)
	return time.Date(d.Year(), d.Month(), d.Day(), hour, 0, 0, 0, time.Local)
}

func bookableSlot(id string, start time.Time, mode string) models.TimeSlot {
	return models.TimeSlot{
		ID:              id,
		SpecialistID:    "spec-1",
		Start:           start,
		DurationMinutes: 50,
		Mode:            mode,
		IsAvailable:     true,
		CanBeBooked:     true,
	}
}

func TestOpenDraftStartsEditing(t *testing.T) {
	svc, _ := newTestService(t, &stubSchedClient{})

	draft, err := svc.OpenDraft(context.Background(), "patient-1", "spec-1")
	require.NoError(t, err)
	assert.NotEmpty(t, draft.ID)
	assert.Equal(t, models.DraftStateEditing, draft.State)
	assert.Equal(t, models.StepSelectingMode, draft.Step())
}

func TestGetDraftRejectsForeignPatient(t *testing.T) {
	svc, _ := newTestService(t, &stubSchedClient{})
	ctx := context.Background()

	draft, err := svc.OpenDraft(ctx, "patient-1", "spec-1")
	require.NoError(t, err)

	_, err = svc.GetDraft(ctx, "patient-2", draft.ID)
	assert.True(t, IsNotFound(err))
}

func TestSetModeRejectsUnknownMode(t *testing.T) {
	svc, _ := newTestService(t, &stubSchedClient{})
	ctx := context.Background()

	draft, _ := svc.OpenDraft(ctx, "patient-1", "spec-1")
	_, err := svc.SetMode(ctx, "patient-1", draft.ID, "telepathy")
	assert.True(t, IsValidation(err))
}

func TestSetModeCanonicalizesVirtual(t *testing.T) {
	svc, _ := newTestService(t, &stubSchedClient{})
	ctx := context.Background()

	draft, _ := svc.OpenDraft(ctx, "patient-1", "spec-1")
	draft, err := svc.SetMode(ctx, "patient-1", draft.ID, models.ModeVirtual)
	require.NoError(t, err)
	assert.Equal(t, models.ModeOnline, draft.Mode)
}

func TestModeChangeClearsSlotAndPayment(t *testing.T) {
	start := tomorrowAt(10)
	sched := &stubSchedClient{slots: []models.TimeSlot{bookableSlot("slot-1", start, models.ModeOnline)}}
	svc, _ := newTestService(t, sched)
	ctx := context.Background()

	draft, _ := svc.OpenDraft(ctx, "patient-1", "spec-1")
	draft, err := svc.SetMode(ctx, "patient-1", draft.ID, models.ModeOnline)
	require.NoError(t, err)
	draft, err = svc.SetDate(ctx, "tok", "patient-1", draft.ID, start.Format(dayLayout))
	require.NoError(t, err)
	draft, err = svc.SelectSlot(ctx, "patient-1", draft.ID, "slot-1")
	require.NoError(t, err)
	draft, err = svc.SetPayment(ctx, "patient-1", draft.ID, PaymentInput{PaymentMethodID: "mpesa", TransactionRef: "TX123"})
	require.NoError(t, err)
	require.NotNil(t, draft.Evidence)

	draft, err = svc.SetMode(ctx, "patient-1", draft.ID, models.ModeInPerson)
	require.NoError(t, err)
	assert.Empty(t, draft.Date)
	assert.Empty(t, draft.SlotID)
	assert.Empty(t, draft.Slots)
	assert.Empty(t, draft.PaymentMethodID)
	assert.Nil(t, draft.Evidence)
}

func TestReselectingSameModeKeepsSelection(t *testing.T) {
	start := tomorrowAt(10)
	sched := &stubSchedClient{slots: []models.TimeSlot{bookableSlot("slot-1", start, models.ModeOnline)}}
	svc, _ := newTestService(t, sched)
	ctx := context.Background()

	draft, _ := svc.OpenDraft(ctx, "patient-1", "spec-1")
	draft, _ = svc.SetMode(ctx, "patient-1", draft.ID, models.ModeOnline)
	draft, _ = svc.SetDate(ctx, "tok", "patient-1", draft.ID, start.Format(dayLayout))
	draft, _ = svc.SelectSlot(ctx, "patient-1", draft.ID, "slot-1")

	// "virtual" is the same mode as "online"; nothing resets.
	draft, err := svc.SetMode(ctx, "patient-1", draft.ID, models.ModeVirtual)
	require.NoError(t, err)
	assert.Equal(t, "slot-1", draft.SlotID)
	assert.NotEmpty(t, draft.Slots)
}

func TestSpecialistChangeClearsSelection(t *testing.T) {
	start := tomorrowAt(10)
	sched := &stubSchedClient{slots: []models.TimeSlot{bookableSlot("slot-1", start, models.ModeOnline)}}
	svc, _ := newTestService(t, sched)
	ctx := context.Background()

	draft, _ := svc.OpenDraft(ctx, "patient-1", "spec-1")
	draft, _ = svc.SetMode(ctx, "patient-1", draft.ID, models.ModeOnline)
	draft, _ = svc.SetDate(ctx, "tok", "patient-1", draft.ID, start.Format(dayLayout))
	draft, _ = svc.SelectSlot(ctx, "patient-1", draft.ID, "slot-1")

	draft, err := svc.SetSpecialist(ctx, "patient-1", draft.ID, "spec-2")
	require.NoError(t, err)
	assert.Equal(t, "spec-2", draft.SpecialistID)
	assert.Empty(t, draft.SlotID)
	assert.Empty(t, draft.Slots)
}

func TestSetDateRequiresModeFirst(t *testing.T) {
	svc, _ := newTestService(t, &stubSchedClient{})
	ctx := context.Background()

	draft, _ := svc.OpenDraft(ctx, "patient-1", "spec-1")
	_, err := svc.SetDate(ctx, "tok", "patient-1", draft.ID, tomorrowAt(10).Format(dayLayout))
	assert.True(t, IsValidation(err))
}

func TestSetDateOutOfWindowLeavesDraftUntouched(t *testing.T) {
	sched := &stubSchedClient{}
	svc, _ := newTestService(t, sched)
	ctx := context.Background()

	draft, _ := svc.OpenDraft(ctx, "patient-1", "spec-1")
	draft, _ = svc.SetMode(ctx, "patient-1", draft.ID, models.ModeOnline)

	farOut := time.Now().AddDate(0, 0, 30).Format(dayLayout)
	returned, err := svc.SetDate(ctx, "tok", "patient-1", draft.ID, farOut)
	assert.True(t, IsValidation(err))
	assert.Empty(t, returned.Date)
	assert.Zero(t, sched.slotCalls, "out-of-window date must not reach the backend")
}

func TestSetDateStoresFilteredSlots(t *testing.T) {
	start := tomorrowAt(10)
	sched := &stubSchedClient{slots: []models.TimeSlot{
		bookableSlot("slot-1", start, models.ModeOnline),
		bookableSlot("slot-2", start.Add(time.Hour), models.ModeInPerson),
		{ID: "slot-3", Start: start.Add(2 * time.Hour), Mode: models.ModeOnline, IsAvailable: true, CanBeBooked: false},
	}}
	svc, _ := newTestService(t, sched)
	ctx := context.Background()

	draft, _ := svc.OpenDraft(ctx, "patient-1", "spec-1")
	draft, _ = svc.SetMode(ctx, "patient-1", draft.ID, models.ModeOnline)
	draft, err := svc.SetDate(ctx, "tok", "patient-1", draft.ID, start.Format(dayLayout))
	require.NoError(t, err)

	require.Len(t, draft.Slots, 1)
	assert.Equal(t, "slot-1", draft.Slots[0].ID)
}

func TestStaleSlotFetchIsDiscarded(t *testing.T) {
	start := tomorrowAt(10)
	sched := &stubSchedClient{slots: []models.TimeSlot{bookableSlot("slot-old", start, models.ModeOnline)}}
	svc, _ := newTestService(t, sched)
	ctx := context.Background()

	draft, _ := svc.OpenDraft(ctx, "patient-1", "spec-1")
	draft, _ = svc.SetMode(ctx, "patient-1", draft.ID, models.ModeOnline)

	// While the fetch is in flight, a newer request bumps the sequence,
	// as if the patient already moved on to another date.
	sched.onSlots = func() {
		current, err := svc.Store.Get(ctx, draft.ID)
		require.NoError(t, err)
		current.SlotFetchSeq++
		require.NoError(t, svc.Store.Save(ctx, current))
	}

	returned, err := svc.SetDate(ctx, "tok", "patient-1", draft.ID, start.Format(dayLayout))
	require.NoError(t, err)
	assert.Empty(t, returned.Slots, "superseded fetch result must be discarded")
}

func TestSelectSlotRejectsUnknownSlot(t *testing.T) {
	start := tomorrowAt(10)
	sched := &stubSchedClient{slots: []models.TimeSlot{bookableSlot("slot-1", start, models.ModeOnline)}}
	svc, _ := newTestService(t, sched)
	ctx := context.Background()

	draft, _ := svc.OpenDraft(ctx, "patient-1", "spec-1")
	draft, _ = svc.SetMode(ctx, "patient-1", draft.ID, models.ModeOnline)
	draft, _ = svc.SetDate(ctx, "tok", "patient-1", draft.ID, start.Format(dayLayout))

	_, err := svc.SelectSlot(ctx, "patient-1", draft.ID, "slot-unknown")
	assert.True(t, IsValidation(err))
}

func TestSetDetailsKeepsEagerErrors(t *testing.T) {
	svc, _ := newTestService(t, &stubSchedClient{})
	ctx := context.Background()

	draft, _ := svc.OpenDraft(ctx, "patient-1", "spec-1")
	draft, err := svc.SetDetails(ctx, "patient-1", draft.ID, DetailsInput{
		PatientName:  "A",
		PatientPhone: "12",
		Concern:      "short",
	})
	require.NoError(t, err)

	assert.Contains(t, draft.FieldErrors, FieldPatientName)
	assert.Contains(t, draft.FieldErrors, FieldPatientPhone)
	assert.Contains(t, draft.FieldErrors, FieldConcern)
	assert.True(t, draft.Touched[FieldPatientName])
}

func TestSetPaymentOnlyForOnlineMode(t *testing.T) {
	svc, _ := newTestService(t, &stubSchedClient{})
	ctx := context.Background()

	draft, _ := svc.OpenDraft(ctx, "patient-1", "spec-1")
	draft, _ = svc.SetMode(ctx, "patient-1", draft.ID, models.ModeInPerson)

	_, err := svc.SetPayment(ctx, "patient-1", draft.ID, PaymentInput{PaymentMethodID: "mpesa"})
	assert.True(t, IsValidation(err))
}

func TestCloseDraftDeletesIt(t *testing.T) {
	svc, _ := newTestService(t, &stubSchedClient{})
	ctx := context.Background()

	draft, _ := svc.OpenDraft(ctx, "patient-1", "spec-1")
	require.NoError(t, svc.CloseDraft(ctx, "patient-1", draft.ID))

	_, err := svc.GetDraft(ctx, "patient-1", draft.ID)
	assert.True(t, IsNotFound(err))
}
