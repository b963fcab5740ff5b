package booking

import (
	"context"
	"mime/multipart"
	"strings"
	"time"

	"mindmate/database/repository/records"
	"mindmate/models"
	"mindmate/services/scheduling"
	"mindmate/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DetailsInput carries the patient detail fields of the wizard.
type DetailsInput struct {
	PatientName  string `json:"patient_name"`
	PatientPhone string `json:"patient_phone"`
	Concern      string `json:"presenting_concern"`
	Notes        string `json:"patient_notes"`
}

// PaymentInput carries the payment method and optional free-text
// transaction reference. Receipt files go through UploadReceipt.
type PaymentInput struct {
	PaymentMethodID string `json:"payment_method_id"`
	TransactionRef  string `json:"transaction_ref"`
}

// ConfirmationQueue enqueues the post-booking confirmation push.
type ConfirmationQueue interface {
	EnqueueBookingConfirmed(ctx context.Context, patientID, appointmentID, specialistID string) error
}

// BookingFlowService drives the booking wizard: draft lifecycle, slot
// resolution, detail and payment capture, receipt evidence and the
// final submission.
type BookingFlowService interface {
	OpenDraft(ctx context.Context, patientID, specialistID string) (*models.BookingDraft, error)
	GetDraft(ctx context.Context, patientID, draftID string) (*models.BookingDraft, error)
	SetSpecialist(ctx context.Context, patientID, draftID, specialistID string) (*models.BookingDraft, error)
	SetMode(ctx context.Context, patientID, draftID, mode string) (*models.BookingDraft, error)
	SetDate(ctx context.Context, token, patientID, draftID, date string) (*models.BookingDraft, error)
	RefreshSlots(ctx context.Context, token, patientID, draftID string) (*models.BookingDraft, error)
	SelectSlot(ctx context.Context, patientID, draftID, slotID string) (*models.BookingDraft, error)
	SetDetails(ctx context.Context, patientID, draftID string, in DetailsInput) (*models.BookingDraft, error)
	SetPayment(ctx context.Context, patientID, draftID string, in PaymentInput) (*models.BookingDraft, error)
	UploadReceipt(ctx context.Context, patientID, draftID string, file *multipart.FileHeader) (*models.BookingDraft, error)
	RemoveReceipt(ctx context.Context, patientID, draftID string) (*models.BookingDraft, error)
	Submit(ctx context.Context, token, patientID, draftID string) (*models.BookingResult, *models.BookingDraft, error)
	CloseDraft(ctx context.Context, patientID, draftID string) error
	ListRecords(ctx context.Context, patientID string) ([]models.BookingRecord, error)
}

// DefaultBookingFlowService is the production implementation.
type DefaultBookingFlowService struct {
	Sched    scheduling.Client
	Store    DraftStore
	Resolver *SlotResolver
	Uploader *EvidenceUploader
	Records  records.Repository
	Queue    ConfirmationQueue
	logger   *zap.Logger
}

func NewBookingFlowService(
	sched scheduling.Client,
	store DraftStore,
	resolver *SlotResolver,
	uploader *EvidenceUploader,
	recordsRepo records.Repository,
	queue ConfirmationQueue,
) *DefaultBookingFlowService {
	return &DefaultBookingFlowService{
		Sched:    sched,
		Store:    store,
		Resolver: resolver,
		Uploader: uploader,
		Records:  recordsRepo,
		Queue:    queue,
		logger:   utils.GetLogger(),
	}
}

// OpenDraft starts a fresh draft. The specialist preselection is
// optional; the wizard can start from the search surface or from a
// specialist profile.
func (s *DefaultBookingFlowService) OpenDraft(ctx context.Context, patientID, specialistID string) (*models.BookingDraft, error) {
	draft := &models.BookingDraft{
		ID:           uuid.New().String(),
		PatientID:    patientID,
		SpecialistID: specialistID,
		State:        models.DraftStateEditing,
		CreatedAt:    time.Now(),
	}
	if err := s.Store.Save(ctx, draft); err != nil {
		return nil, err
	}
	s.logger.Info("booking draft opened",
		zap.String("draftID", draft.ID),
		zap.String("patientID", patientID),
		zap.String("specialistID", specialistID))
	return draft, nil
}

func (s *DefaultBookingFlowService) GetDraft(ctx context.Context, patientID, draftID string) (*models.BookingDraft, error) {
	return s.ownedDraft(ctx, patientID, draftID)
}

// ownedDraft loads a draft and verifies it belongs to the caller.
// Ownership failures render as not-found so draft ids leak nothing.
func (s *DefaultBookingFlowService) ownedDraft(ctx context.Context, patientID, draftID string) (*models.BookingDraft, error) {
	draft, err := s.Store.Get(ctx, draftID)
	if err != nil {
		return nil, err
	}
	if draft.PatientID != patientID {
		return nil, NewNotFoundError("booking draft not found or expired")
	}
	return draft, nil
}

// SetSpecialist switches the draft to a different specialist. Any slot
// selection and payment state belongs to the old specialist and is
// dropped.
func (s *DefaultBookingFlowService) SetSpecialist(ctx context.Context, patientID, draftID, specialistID string) (*models.BookingDraft, error) {
	draft, err := s.ownedDraft(ctx, patientID, draftID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(specialistID) == "" {
		return draft, NewValidationError("specialist_id", "specialist is required")
	}
	if specialistID != draft.SpecialistID {
		draft.SpecialistID = specialistID
		draft.ClearSlotSelection()
		draft.ClearPayment()
	}
	if err := s.Store.Save(ctx, draft); err != nil {
		return nil, err
	}
	return draft, nil
}

// SetMode records the consultation mode. A mode change invalidates the
// slot selection, and leaving the online mode drops payment state so it
// cannot leak into an in-person submission.
func (s *DefaultBookingFlowService) SetMode(ctx context.Context, patientID, draftID, mode string) (*models.BookingDraft, error) {
	draft, err := s.ownedDraft(ctx, patientID, draftID)
	if err != nil {
		return nil, err
	}

	canonical := models.CanonicalMode(strings.TrimSpace(mode))
	if canonical != models.ModeOnline && canonical != models.ModeInPerson {
		return draft, NewValidationError(FieldMode, "consultation mode must be online or in_person")
	}

	if canonical != draft.Mode {
		draft.Mode = canonical
		draft.ClearSlotSelection()
		if canonical != models.ModeOnline {
			draft.ClearPayment()
		}
	}
	draft.Touch(FieldMode)
	if err := s.Store.Save(ctx, draft); err != nil {
		return nil, err
	}
	return draft, nil
}

// SetDate picks a day and resolves its slot set. The window check runs
// before anything is stored; an out-of-window date leaves the draft
// untouched.
func (s *DefaultBookingFlowService) SetDate(ctx context.Context, token, patientID, draftID, date string) (*models.BookingDraft, error) {
	draft, err := s.ownedDraft(ctx, patientID, draftID)
	if err != nil {
		return nil, err
	}
	if draft.SpecialistID == "" || draft.Mode == "" {
		return draft, NewValidationError(FieldDate, "choose a specialist and consultation mode first")
	}

	day, err := s.Resolver.ValidateDate(date)
	if err != nil {
		return draft, err
	}

	draft.Date = day
	draft.SlotID = ""
	draft.Slots = nil
	draft.Touch(FieldDate)
	return s.resolveSlots(ctx, token, draft)
}

// RefreshSlots re-resolves the slot set for the already selected day.
func (s *DefaultBookingFlowService) RefreshSlots(ctx context.Context, token, patientID, draftID string) (*models.BookingDraft, error) {
	draft, err := s.ownedDraft(ctx, patientID, draftID)
	if err != nil {
		return nil, err
	}
	if draft.Date == "" {
		return draft, NewValidationError(FieldDate, "select a date first")
	}
	return s.resolveSlots(ctx, token, draft)
}

// resolveSlots runs a sequence-guarded slot fetch. The sequence number
// is bumped and persisted before the network call; after the fetch the
// draft is reloaded, and if another fetch superseded this one in the
// meantime its result is discarded. The newest request always wins,
// regardless of response arrival order.
func (s *DefaultBookingFlowService) resolveSlots(ctx context.Context, token string, draft *models.BookingDraft) (*models.BookingDraft, error) {
	seq := draft.SlotFetchSeq + 1
	draft.SlotFetchSeq = seq
	if err := s.Store.Save(ctx, draft); err != nil {
		return nil, err
	}

	slots, resolveErr := s.Resolver.Resolve(ctx, token, draft.SpecialistID, draft.Date, draft.Mode)

	current, err := s.Store.Get(ctx, draft.ID)
	if err != nil {
		return nil, err
	}
	if current.SlotFetchSeq != seq {
		s.logger.Debug("discarding stale slot fetch",
			zap.String("draftID", draft.ID),
			zap.Uint64("fetchSeq", seq),
			zap.Uint64("currentSeq", current.SlotFetchSeq))
		return current, nil
	}
	if resolveErr != nil {
		return current, resolveErr
	}

	current.Slots = slots
	if current.SlotID != "" {
		if _, ok := current.SlotByID(current.SlotID); !ok {
			current.SlotID = ""
		}
	}
	if err := s.Store.Save(ctx, current); err != nil {
		return nil, err
	}
	return current, nil
}

// SelectSlot picks a slot out of the cached set for the selected day.
func (s *DefaultBookingFlowService) SelectSlot(ctx context.Context, patientID, draftID, slotID string) (*models.BookingDraft, error) {
	draft, err := s.ownedDraft(ctx, patientID, draftID)
	if err != nil {
		return nil, err
	}
	if draft.Date == "" {
		return draft, NewValidationError(FieldSlot, "select a date first")
	}

	slot, ok := draft.SlotByID(slotID)
	if !ok || !slot.Bookable() {
		return draft, NewValidationError(FieldSlot, "that time is not available, pick another")
	}

	draft.SlotID = slot.ID
	draft.Touch(FieldSlot)
	if err := s.Store.Save(ctx, draft); err != nil {
		return nil, err
	}
	return draft, nil
}

// SetDetails captures the patient detail fields. Validation is eager:
// the full rule set runs on every change and the error map is kept on
// the draft, with touched flags deciding what surfaces render.
func (s *DefaultBookingFlowService) SetDetails(ctx context.Context, patientID, draftID string, in DetailsInput) (*models.BookingDraft, error) {
	draft, err := s.ownedDraft(ctx, patientID, draftID)
	if err != nil {
		return nil, err
	}

	draft.PatientName = strings.TrimSpace(in.PatientName)
	draft.PatientPhone = strings.TrimSpace(in.PatientPhone)
	draft.Concern = strings.TrimSpace(in.Concern)
	draft.Notes = strings.TrimSpace(in.Notes)
	draft.Touch(FieldPatientName)
	draft.Touch(FieldPatientPhone)
	draft.Touch(FieldConcern)
	draft.Touch(FieldNotes)
	draft.FieldErrors = ValidateDraftFields(draft)

	if err := s.Store.Save(ctx, draft); err != nil {
		return nil, err
	}
	return draft, nil
}

// SetPayment captures the payment method and optional free-text
// reference. Only meaningful for the online mode.
func (s *DefaultBookingFlowService) SetPayment(ctx context.Context, patientID, draftID string, in PaymentInput) (*models.BookingDraft, error) {
	draft, err := s.ownedDraft(ctx, patientID, draftID)
	if err != nil {
		return nil, err
	}
	if draft.Mode != models.ModeOnline {
		return draft, NewValidationError(FieldPaymentMethod, "payment only applies to online consultations")
	}

	draft.PaymentMethodID = strings.TrimSpace(in.PaymentMethodID)
	if ref := strings.TrimSpace(in.TransactionRef); ref != "" {
		if draft.Evidence == nil {
			draft.Evidence = &models.PaymentEvidence{}
		}
		draft.Evidence.TextRef = ref
	} else if draft.Evidence != nil {
		draft.Evidence.TextRef = ""
		if draft.Evidence.Empty() {
			draft.Evidence = nil
		}
	}
	draft.Touch(FieldPaymentMethod)
	draft.Touch(FieldPaymentEvidence)
	draft.FieldErrors = ValidateDraftFields(draft)

	if err := s.Store.Save(ctx, draft); err != nil {
		return nil, err
	}
	return draft, nil
}

// UploadReceipt validates and stores a receipt file, then attaches it
// as the active payment evidence. Local rejections cost no network
// call. While an upload is in flight the draft refuses a second one,
// and the flag is persisted so retries against another instance see it.
func (s *DefaultBookingFlowService) UploadReceipt(ctx context.Context, patientID, draftID string, file *multipart.FileHeader) (*models.BookingDraft, error) {
	draft, err := s.ownedDraft(ctx, patientID, draftID)
	if err != nil {
		return nil, err
	}
	if draft.Mode != models.ModeOnline {
		return draft, NewUploadError("payment receipts only apply to online consultations")
	}
	if draft.UploadBusy {
		return draft, NewUploadError("a receipt upload is already in progress")
	}
	if err := s.Uploader.ValidateReceipt(file); err != nil {
		return draft, err
	}

	draft.UploadBusy = true
	if err := s.Store.Save(ctx, draft); err != nil {
		return nil, err
	}

	evidence, upErr := s.Uploader.Upload(ctx, file)

	draft, err = s.ownedDraft(ctx, patientID, draftID)
	if err != nil {
		return nil, err
	}
	draft.UploadBusy = false
	if upErr != nil {
		if saveErr := s.Store.Save(ctx, draft); saveErr != nil {
			return nil, saveErr
		}
		return draft, upErr
	}

	// A fresh file supersedes any prior evidence of either form.
	if draft.Evidence != nil && draft.Evidence.FilePublicID != "" && draft.Evidence.FilePublicID != evidence.FilePublicID {
		if err := s.Uploader.Discard(ctx, draft.Evidence.FilePublicID); err != nil {
			s.logger.Warn("failed to discard replaced receipt",
				zap.String("draftID", draft.ID), zap.Error(err))
		}
	}
	draft.Evidence = evidence
	draft.Touch(FieldPaymentEvidence)
	draft.FieldErrors = ValidateDraftFields(draft)

	if err := s.Store.Save(ctx, draft); err != nil {
		return nil, err
	}
	s.logger.Info("receipt attached",
		zap.String("draftID", draft.ID),
		zap.String("fileName", evidence.FileName),
		zap.Int64("fileSize", evidence.FileSize))
	return draft, nil
}

// RemoveReceipt detaches and deletes the uploaded receipt file. Any
// text reference is cleared with it.
func (s *DefaultBookingFlowService) RemoveReceipt(ctx context.Context, patientID, draftID string) (*models.BookingDraft, error) {
	draft, err := s.ownedDraft(ctx, patientID, draftID)
	if err != nil {
		return nil, err
	}
	if draft.UploadBusy {
		return draft, NewUploadError("a receipt upload is in progress")
	}

	var publicID string
	if draft.Evidence != nil {
		publicID = draft.Evidence.FilePublicID
	}
	draft.Evidence = nil
	draft.FieldErrors = ValidateDraftFields(draft)
	if err := s.Store.Save(ctx, draft); err != nil {
		return nil, err
	}

	if publicID != "" {
		if err := s.Uploader.Discard(ctx, publicID); err != nil {
			s.logger.Warn("failed to delete removed receipt",
				zap.String("draftID", draft.ID), zap.Error(err))
		}
	}
	return draft, nil
}

// CloseDraft abandons the wizard and deletes the draft outright.
func (s *DefaultBookingFlowService) CloseDraft(ctx context.Context, patientID, draftID string) error {
	draft, err := s.ownedDraft(ctx, patientID, draftID)
	if err != nil {
		return err
	}
	if draft.Evidence != nil && draft.Evidence.FilePublicID != "" {
		if err := s.Uploader.Discard(ctx, draft.Evidence.FilePublicID); err != nil {
			s.logger.Warn("failed to delete receipt of closed draft",
				zap.String("draftID", draft.ID), zap.Error(err))
		}
	}
	return s.Store.Delete(ctx, draft.ID)
}

// ListRecords returns the caller's booking attempt history.
func (s *DefaultBookingFlowService) ListRecords(ctx context.Context, patientID string) ([]models.BookingRecord, error) {
	if s.Records == nil {
		return nil, nil
	}
	return s.Records.ListByPatient(ctx, patientID)
}
