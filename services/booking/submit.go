package booking

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"mindmate/models"
	"mindmate/services/scheduling"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Submit performs the final booking attempt. All local validation runs
// first, including a re-check of the selected slot against the cached
// set, so obviously doomed requests never reach the backend. Exactly
// one attempt is in flight per draft at any time.
//
// Outcome handling:
//   - success: outcome recorded, confirmation enqueued, draft deleted
//   - 401: session is gone, draft deleted, caller must re-authenticate
//   - 400: server detail surfaced verbatim, draft stays editable
//   - 409: remote conflict, slot cleared, slot set refreshed once
//   - 5xx or transport failure: draft preserved for a manual retry
func (s *DefaultBookingFlowService) Submit(ctx context.Context, token, patientID, draftID string) (*models.BookingResult, *models.BookingDraft, error) {
	draft, err := s.ownedDraft(ctx, patientID, draftID)
	if err != nil {
		return nil, nil, err
	}
	if draft.SubmitBusy {
		return nil, draft, NewValidationError("", "a submission is already in progress")
	}
	if draft.UploadBusy {
		return nil, draft, NewValidationError(FieldPaymentEvidence, "wait for the receipt upload to finish")
	}

	markAllTouched(draft)
	draft.FieldErrors = ValidateDraftFields(draft)

	switch {
	case draft.SpecialistID == "":
		draft.FieldErrors["specialist_id"] = "specialist is required"
	case draft.Mode == "":
		draft.FieldErrors[FieldMode] = "choose a consultation mode"
	case draft.Date == "" || draft.SlotID == "":
		draft.FieldErrors[FieldSlot] = "choose a time slot"
	}
	if len(draft.FieldErrors) > 0 {
		if err := s.Store.Save(ctx, draft); err != nil {
			return nil, nil, err
		}
		return nil, draft, NewValidationError("", "please correct the highlighted fields")
	}

	// Local conflict check: the cached slot may have gone stale since it
	// was selected. Cheaper than letting the backend 409 it.
	if stale, reason := s.slotStale(draft); stale {
		s.logger.Info("local slot conflict at submit",
			zap.String("draftID", draft.ID),
			zap.String("slotID", draft.SlotID),
			zap.String("reason", reason))
		s.recordOutcome(ctx, draft, models.OutcomeConflict, "", uuid.New().String(), "slot stale at submit: "+reason)
		draft.SlotID = ""
		refreshed, rerr := s.resolveSlots(ctx, token, draft)
		if rerr != nil {
			s.logger.Warn("slot refresh after local conflict failed",
				zap.String("draftID", draft.ID), zap.Error(rerr))
		}
		if refreshed != nil {
			draft = refreshed
		}
		return nil, draft, NewConflictError("that time is no longer available, please choose another")
	}

	req := buildRequest(draft)
	correlationID := uuid.New().String()

	draft.State = models.DraftStateSubmitting
	draft.SubmitBusy = true
	draft.FailureDetail = ""
	if err := s.Store.Save(ctx, draft); err != nil {
		return nil, nil, err
	}

	s.logger.Info("submitting booking",
		zap.String("draftID", draft.ID),
		zap.String("patientID", patientID),
		zap.String("specialistID", draft.SpecialistID),
		zap.String("slotID", draft.SlotID),
		zap.String("correlationID", correlationID))

	result, bookErr := s.Sched.BookAppointment(ctx, token, req)
	if bookErr != nil {
		return s.handleSubmitFailure(ctx, token, draft, correlationID, bookErr)
	}

	s.recordOutcome(ctx, draft, models.OutcomeConfirmed, result.AppointmentID, correlationID, "")
	if s.Queue != nil {
		if err := s.Queue.EnqueueBookingConfirmed(ctx, patientID, result.AppointmentID, draft.SpecialistID); err != nil {
			s.logger.Warn("failed to enqueue booking confirmation",
				zap.String("appointmentID", result.AppointmentID), zap.Error(err))
		}
	}
	if err := s.Store.Delete(ctx, draft.ID); err != nil {
		s.logger.Warn("failed to delete confirmed draft",
			zap.String("draftID", draft.ID), zap.Error(err))
	}

	s.logger.Info("booking confirmed",
		zap.String("draftID", draft.ID),
		zap.String("appointmentID", result.AppointmentID),
		zap.String("correlationID", correlationID))
	return result, nil, nil
}

// slotStale reports whether the selected slot can no longer be
// submitted, with a diagnostic reason.
func (s *DefaultBookingFlowService) slotStale(draft *models.BookingDraft) (bool, string) {
	slot, ok := draft.SlotByID(draft.SlotID)
	if !ok {
		return true, "slot missing from cached set"
	}
	if !slot.Bookable() {
		return true, "slot no longer bookable"
	}
	if slot.DateKey() != draft.Date {
		return true, "slot date mismatch"
	}
	if !models.ModesEquivalent(slot.Mode, draft.Mode) {
		return true, "slot mode mismatch"
	}
	if !slot.Start.After(s.Resolver.now()) {
		return true, "slot already started"
	}
	return false, ""
}

func (s *DefaultBookingFlowService) handleSubmitFailure(ctx context.Context, token string, draft *models.BookingDraft, correlationID string, bookErr error) (*models.BookingResult, *models.BookingDraft, error) {
	draft.SubmitBusy = false

	var apiErr *scheduling.APIError
	if errors.As(bookErr, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusUnauthorized:
			s.recordOutcome(ctx, draft, models.OutcomeError, "", correlationID, "session expired")
			if err := s.Store.Delete(ctx, draft.ID); err != nil {
				s.logger.Warn("failed to delete draft after auth failure",
					zap.String("draftID", draft.ID), zap.Error(err))
			}
			return nil, nil, NewAuthenticationError("your session has expired, please sign in again")

		case http.StatusBadRequest:
			detail := apiErr.Detail
			if detail == "" {
				detail = "the booking request was rejected"
			}
			draft.State = models.DraftStateEditing
			draft.FailureDetail = detail
			s.recordOutcome(ctx, draft, models.OutcomeRejected, "", correlationID, detail)
			if err := s.Store.Save(ctx, draft); err != nil {
				return nil, nil, err
			}
			return nil, draft, NewValidationError("", detail)

		case http.StatusForbidden:
			draft.State = models.DraftStateFailed
			draft.FailureDetail = apiErr.Detail
			s.recordOutcome(ctx, draft, models.OutcomeRejected, "", correlationID, apiErr.Detail)
			if err := s.Store.Save(ctx, draft); err != nil {
				return nil, nil, err
			}
			return nil, draft, NewAuthorizationError("you are not allowed to book this appointment")

		case http.StatusNotFound:
			draft.State = models.DraftStateEditing
			draft.FailureDetail = apiErr.Detail
			s.recordOutcome(ctx, draft, models.OutcomeRejected, "", correlationID, apiErr.Detail)
			if err := s.Store.Save(ctx, draft); err != nil {
				return nil, nil, err
			}
			return nil, draft, NewNotFoundError("the specialist or slot no longer exists")

		case http.StatusConflict:
			// Someone else took the slot between resolution and submit.
			s.recordOutcome(ctx, draft, models.OutcomeConflict, "", correlationID, apiErr.Detail)
			draft.State = models.DraftStateEditing
			draft.SlotID = ""
			refreshed, rerr := s.resolveSlots(ctx, token, draft)
			if rerr != nil {
				s.logger.Warn("slot refresh after remote conflict failed",
					zap.String("draftID", draft.ID), zap.Error(rerr))
			}
			if refreshed != nil {
				draft = refreshed
			} else if err := s.Store.Save(ctx, draft); err != nil {
				return nil, nil, err
			}
			return nil, draft, NewConflictError("that time was just booked by someone else, please choose another")
		}
	}

	// 5xx or transport failure. The attempt may or may not have landed;
	// the draft is preserved so the patient can retry deliberately.
	draft.State = models.DraftStateFailed
	draft.FailureDetail = "the booking service is temporarily unavailable"
	s.recordOutcome(ctx, draft, models.OutcomeError, "", correlationID, bookErr.Error())
	if err := s.Store.Save(ctx, draft); err != nil {
		return nil, nil, err
	}
	s.logger.Error("booking submission failed",
		zap.String("draftID", draft.ID),
		zap.String("correlationID", correlationID),
		zap.Error(bookErr))
	return nil, draft, NewServerError("something went wrong, please try again in a moment")
}

// buildRequest derives the immutable submission payload. Payment fields
// travel only for the online mode; the uploaded file URL wins over a
// free-text reference when both exist.
func buildRequest(draft *models.BookingDraft) models.BookingRequest {
	req := models.BookingRequest{
		SpecialistID:      draft.SpecialistID,
		SlotID:            draft.SlotID,
		AppointmentType:   models.CanonicalMode(draft.Mode),
		PresentingConcern: strings.TrimSpace(draft.Concern),
		PatientNotes:      strings.TrimSpace(draft.Notes),
	}
	if draft.Mode == models.ModeOnline {
		req.PaymentMethodID = draft.PaymentMethodID
		if draft.Evidence != nil {
			req.PaymentReceipt = draft.Evidence.Reference()
		}
	}
	return req
}

func (s *DefaultBookingFlowService) recordOutcome(ctx context.Context, draft *models.BookingDraft, outcome, appointmentID, correlationID, detail string) {
	if s.Records == nil {
		return
	}
	rec := models.BookingRecord{
		ID:            uuid.New().String(),
		PatientID:     draft.PatientID,
		SpecialistID:  draft.SpecialistID,
		SlotID:        draft.SlotID,
		Mode:          draft.Mode,
		Date:          draft.Date,
		Outcome:       outcome,
		AppointmentID: appointmentID,
		CorrelationID: correlationID,
		Detail:        detail,
		CreatedAt:     time.Now(),
	}
	if err := s.Records.Insert(ctx, rec); err != nil {
		s.logger.Warn("failed to persist booking record",
			zap.String("draftID", draft.ID),
			zap.String("outcome", outcome),
			zap.Error(err))
	}
}
